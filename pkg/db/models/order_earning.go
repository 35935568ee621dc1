package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderEarning records that an order's proceeds were credited to its shop.
// ReleasedAt stays nil while the amount sits in the pending bucket.
type OrderEarning struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_order_earnings_order_id"`
	ShopID            uuid.UUID       `gorm:"column:shop_id;type:uuid;not null;index"`
	OrderAmount       decimal.Decimal `gorm:"column:order_amount;type:numeric(18,2);not null"`
	Commission        decimal.Decimal `gorm:"column:commission;type:numeric(18,2);not null"`
	CommissionPercent decimal.Decimal `gorm:"column:commission_percent;type:numeric(5,2);not null"`
	SettlementAmount  decimal.Decimal `gorm:"column:settlement_amount;type:numeric(18,2);not null"`
	DeliveredAt       time.Time       `gorm:"column:delivered_at;not null"`
	HoldUntil         time.Time       `gorm:"column:hold_until;not null;index"`
	ReleasedAt        *time.Time      `gorm:"column:released_at"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (OrderEarning) TableName() string { return "order_earnings" }
