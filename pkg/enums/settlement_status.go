package enums

import "fmt"

// SettlementStatus tracks a withdrawal request through its lifecycle.
type SettlementStatus string

const (
	SettlementStatusPending    SettlementStatus = "pending"
	SettlementStatusApproved   SettlementStatus = "approved"
	SettlementStatusProcessing SettlementStatus = "processing"
	SettlementStatusCompleted  SettlementStatus = "completed"
	SettlementStatusCancelled  SettlementStatus = "cancelled"
)

var validSettlementStatuses = []SettlementStatus{
	SettlementStatusPending,
	SettlementStatusApproved,
	SettlementStatusProcessing,
	SettlementStatusCompleted,
	SettlementStatusCancelled,
}

var settlementTransitions = map[SettlementStatus][]SettlementStatus{
	SettlementStatusPending:    {SettlementStatusApproved, SettlementStatusCancelled},
	SettlementStatusApproved:   {SettlementStatusProcessing, SettlementStatusCancelled},
	SettlementStatusProcessing: {SettlementStatusCompleted},
}

// String implements fmt.Stringer.
func (s SettlementStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SettlementStatus.
func (s SettlementStatus) IsValid() bool {
	for _, candidate := range validSettlementStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s SettlementStatus) IsTerminal() bool {
	return s == SettlementStatusCompleted || s == SettlementStatusCancelled
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s SettlementStatus) CanTransitionTo(next SettlementStatus) bool {
	for _, candidate := range settlementTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseSettlementStatus converts raw input into a SettlementStatus.
func ParseSettlementStatus(value string) (SettlementStatus, error) {
	for _, candidate := range validSettlementStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement status %q", value)
}
