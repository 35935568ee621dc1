package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopledger-backend/pkg/enums"
)

// SettlementEvent is emitted on every settlement lifecycle step.
type SettlementEvent struct {
	SettlementID         uuid.UUID              `json:"settlement_id"`
	ShopID               uuid.UUID              `json:"shop_id"`
	SellerID             uuid.UUID              `json:"seller_id"`
	Status               enums.SettlementStatus `json:"status"`
	Method               enums.SettlementMethod `json:"method"`
	RequestedAmount      decimal.Decimal        `json:"requested_amount"`
	PlatformFee          decimal.Decimal        `json:"platform_fee"`
	NetAmount            decimal.Decimal        `json:"net_amount"`
	AllocatedOrderIDs    []uuid.UUID            `json:"allocated_order_ids,omitempty"`
	ActorID              *uuid.UUID             `json:"actor_id,omitempty"`
	TransactionReference *string                `json:"transaction_reference,omitempty"`
	FailureReason        *string                `json:"failure_reason,omitempty"`
	OccurredAt           time.Time              `json:"occurred_at"`
}

// EarningRecordedEvent reports an order credited to its shop's balance.
type EarningRecordedEvent struct {
	OrderID           uuid.UUID       `json:"order_id"`
	ShopID            uuid.UUID       `json:"shop_id"`
	OrderAmount       decimal.Decimal `json:"order_amount"`
	Commission        decimal.Decimal `json:"commission"`
	CommissionPercent decimal.Decimal `json:"commission_percent"`
	SettlementAmount  decimal.Decimal `json:"settlement_amount"`
	HoldUntil         time.Time       `json:"hold_until"`
	Available         bool            `json:"available"`
}

// EarningHoldReleasedEvent reports an earning moved from pending to available.
type EarningHoldReleasedEvent struct {
	OrderID    uuid.UUID       `json:"order_id"`
	ShopID     uuid.UUID       `json:"shop_id"`
	Amount     decimal.Decimal `json:"amount"`
	ReleasedAt time.Time       `json:"released_at"`
}

// OrderStatusEvent is published by the orders system when an order is
// delivered or its payment is captured.
type OrderStatusEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	ShopID        uuid.UUID           `json:"shop_id"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	DeliveredAt   *time.Time          `json:"delivered_at,omitempty"`
}
