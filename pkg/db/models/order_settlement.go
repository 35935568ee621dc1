package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderSettlement tags an order as backing a settlement. Append-only; an
// order appears in at most one row.
type OrderSettlement struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_order_settlements_order_id"`
	SettlementID      uuid.UUID       `gorm:"column:settlement_id;type:uuid;not null;index"`
	OrderAmount       decimal.Decimal `gorm:"column:order_amount;type:numeric(18,2);not null"`
	Commission        decimal.Decimal `gorm:"column:commission;type:numeric(18,2);not null"`
	CommissionPercent decimal.Decimal `gorm:"column:commission_percent;type:numeric(5,2);not null"`
	SettlementAmount  decimal.Decimal `gorm:"column:settlement_amount;type:numeric(18,2);not null"`
	OrderDeliveredAt  time.Time       `gorm:"column:order_delivered_at;not null"`
	EligibleAt        time.Time       `gorm:"column:eligible_at;not null"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (OrderSettlement) TableName() string { return "order_settlements" }
