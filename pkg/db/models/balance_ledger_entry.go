package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopledger-backend/pkg/enums"
)

// BalanceLedgerEntry is an immutable record of one bucket movement together
// with the balance snapshot it produced.
type BalanceLedgerEntry struct {
	ID                     uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	ShopID                 uuid.UUID             `gorm:"column:shop_id;type:uuid;not null;index"`
	Type                   enums.LedgerEntryType `gorm:"column:type;not null"`
	Amount                 decimal.Decimal       `gorm:"column:amount;type:numeric(18,2);not null"`
	SettlementID           *uuid.UUID            `gorm:"column:settlement_id;type:uuid"`
	OrderID                *uuid.UUID            `gorm:"column:order_id;type:uuid"`
	AvailableBalance       decimal.Decimal       `gorm:"column:available_balance;type:numeric(18,2);not null"`
	PendingBalance         decimal.Decimal       `gorm:"column:pending_balance;type:numeric(18,2);not null"`
	TotalPendingWithdrawal decimal.Decimal       `gorm:"column:total_pending_withdrawal;type:numeric(18,2);not null"`
	TotalWithdrawn         decimal.Decimal       `gorm:"column:total_withdrawn;type:numeric(18,2);not null"`
	TotalEarned            decimal.Decimal       `gorm:"column:total_earned;type:numeric(18,2);not null"`
	CreatedAt              time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (BalanceLedgerEntry) TableName() string { return "balance_ledger_entries" }
