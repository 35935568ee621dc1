package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	pkgerrors "github.com/angelmondragon/shopledger-backend/pkg/errors"
)

const outcomeSuccess = "success"

// SettlementMetrics counts money-moving operations and their outcomes.
type SettlementMetrics struct {
	transitions     *prometheus.CounterVec
	conflictRetries *prometheus.CounterVec
	ledgerMovements *prometheus.CounterVec
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlement_transitions_total",
		Help:      "Settlement operations by transition and outcome.",
	}, []string{"transition", "outcome"})
	conflictRetries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlement_conflict_retries_total",
		Help:      "Transactions replayed after losing a concurrency race.",
	}, []string{"operation"})
	ledgerMovements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "balance_ledger_movements_total",
		Help:      "Seller balance bucket movements by entry type.",
	}, []string{"type"})
	reg.MustRegister(transitions, conflictRetries, ledgerMovements)
	return &SettlementMetrics{
		transitions:     transitions,
		conflictRetries: conflictRetries,
		ledgerMovements: ledgerMovements,
	}
}

// ObserveTransition records the outcome of a settlement operation. Failures
// are labelled with their error code.
func (m *SettlementMetrics) ObserveTransition(transition string, err error) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(transition), outcomeLabel(err)).Inc()
}

// IncConflictRetry counts one replay of the named operation.
func (m *SettlementMetrics) IncConflictRetry(operation string) {
	if m == nil || m.conflictRetries == nil {
		return
	}
	m.conflictRetries.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncLedgerMovement counts one committed-or-attempted bucket movement.
func (m *SettlementMetrics) IncLedgerMovement(entryType string) {
	if m == nil || m.ledgerMovements == nil {
		return
	}
	m.ledgerMovements.WithLabelValues(normalizeLabel(entryType)).Inc()
}

func outcomeLabel(err error) string {
	if err == nil {
		return outcomeSuccess
	}
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return string(pkgerrors.CodeInternal)
}
