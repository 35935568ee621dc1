package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SellerBalance is the per-shop money ledger. Funds only move between buckets;
// AvailableBalance + PendingBalance + TotalPendingWithdrawal + TotalWithdrawn
// always equals TotalEarned.
type SellerBalance struct {
	ID                     uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ShopID                 uuid.UUID       `gorm:"column:shop_id;type:uuid;not null;uniqueIndex:ux_seller_balances_shop_id"`
	SellerID               uuid.UUID       `gorm:"column:seller_id;type:uuid;not null;index"`
	AvailableBalance       decimal.Decimal `gorm:"column:available_balance;type:numeric(18,2);not null;default:0"`
	PendingBalance         decimal.Decimal `gorm:"column:pending_balance;type:numeric(18,2);not null;default:0"`
	TotalEarned            decimal.Decimal `gorm:"column:total_earned;type:numeric(18,2);not null;default:0"`
	TotalWithdrawn         decimal.Decimal `gorm:"column:total_withdrawn;type:numeric(18,2);not null;default:0"`
	TotalPendingWithdrawal decimal.Decimal `gorm:"column:total_pending_withdrawal;type:numeric(18,2);not null;default:0"`
	Version                int64           `gorm:"column:version;not null;default:0"`
	CreatedAt              time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (SellerBalance) TableName() string { return "seller_balances" }
