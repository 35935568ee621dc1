package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateSettlement    OutboxAggregateType = "settlement"
	AggregateSellerBalance OutboxAggregateType = "seller_balance"
	AggregateOrder         OutboxAggregateType = "order"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateSettlement,
	AggregateSellerBalance,
	AggregateOrder,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType names domain events, both emitted and consumed.
type OutboxEventType string

const (
	EventSettlementRequested  OutboxEventType = "settlement_requested"
	EventSettlementApproved   OutboxEventType = "settlement_approved"
	EventSettlementProcessing OutboxEventType = "settlement_processing"
	EventSettlementCompleted  OutboxEventType = "settlement_completed"
	EventSettlementRejected   OutboxEventType = "settlement_rejected"
	EventEarningRecorded      OutboxEventType = "earning_recorded"
	EventEarningHoldReleased  OutboxEventType = "earning_hold_released"

	// published by the orders system
	EventOrderDelivered OutboxEventType = "order_delivered"
	EventOrderPaid      OutboxEventType = "order_paid"
)

var validOutboxEventTypes = []OutboxEventType{
	EventSettlementRequested,
	EventSettlementApproved,
	EventSettlementProcessing,
	EventSettlementCompleted,
	EventSettlementRejected,
	EventEarningRecorded,
	EventEarningHoldReleased,
	EventOrderDelivered,
	EventOrderPaid,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
