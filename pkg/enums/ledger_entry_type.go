package enums

import "fmt"

// LedgerEntryType names a movement between seller balance buckets.
type LedgerEntryType string

const (
	LedgerEntryEarningAvailable    LedgerEntryType = "earning_available"
	LedgerEntryEarningPending      LedgerEntryType = "earning_pending"
	LedgerEntryHoldReleased        LedgerEntryType = "hold_released"
	LedgerEntryWithdrawalReserved  LedgerEntryType = "withdrawal_reserved"
	LedgerEntryReservationReleased LedgerEntryType = "reservation_released"
	LedgerEntryWithdrawalFinalized LedgerEntryType = "withdrawal_finalized"
)

var validLedgerEntryTypes = []LedgerEntryType{
	LedgerEntryEarningAvailable,
	LedgerEntryEarningPending,
	LedgerEntryHoldReleased,
	LedgerEntryWithdrawalReserved,
	LedgerEntryReservationReleased,
	LedgerEntryWithdrawalFinalized,
}

// IsValid reports whether the value matches a known ledger entry type.
func (t LedgerEntryType) IsValid() bool {
	for _, candidate := range validLedgerEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLedgerEntryType converts raw input into LedgerEntryType.
func ParseLedgerEntryType(value string) (LedgerEntryType, error) {
	for _, candidate := range validLedgerEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry type %q", value)
}
