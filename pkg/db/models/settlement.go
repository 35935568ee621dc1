package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopledger-backend/pkg/enums"
)

// Settlement is a seller withdrawal request. RequestedAmount, PlatformFee,
// NetAmount and CommissionPercent are fixed when the row is inserted.
type Settlement struct {
	ID                   uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	SellerID             uuid.UUID              `gorm:"column:seller_id;type:uuid;not null;index"`
	ShopID               uuid.UUID              `gorm:"column:shop_id;type:uuid;not null;index"`
	RequestedAmount      decimal.Decimal        `gorm:"column:requested_amount;type:numeric(18,2);not null"`
	PlatformFee          decimal.Decimal        `gorm:"column:platform_fee;type:numeric(18,2);not null"`
	NetAmount            decimal.Decimal        `gorm:"column:net_amount;type:numeric(18,2);not null"`
	CommissionPercent    decimal.Decimal        `gorm:"column:commission_percent;type:numeric(5,2);not null"`
	Status               enums.SettlementStatus `gorm:"column:status;not null;index"`
	Method               enums.SettlementMethod `gorm:"column:method;not null"`
	BankAccountNumber    *string                `gorm:"column:bank_account_number"`
	BankName             *string                `gorm:"column:bank_name"`
	BankAccountHolder    *string                `gorm:"column:bank_account_holder"`
	RequestedAt          time.Time              `gorm:"column:requested_at;not null"`
	ApprovedAt           *time.Time             `gorm:"column:approved_at"`
	ApprovedBy           *uuid.UUID             `gorm:"column:approved_by;type:uuid"`
	ProcessedAt          *time.Time             `gorm:"column:processed_at"`
	ProcessedBy          *uuid.UUID             `gorm:"column:processed_by;type:uuid"`
	CompletedAt          *time.Time             `gorm:"column:completed_at"`
	CompletedBy          *uuid.UUID             `gorm:"column:completed_by;type:uuid"`
	CancelledAt          *time.Time             `gorm:"column:cancelled_at"`
	CancelledBy          *uuid.UUID             `gorm:"column:cancelled_by;type:uuid"`
	TransactionReference *string                `gorm:"column:transaction_reference"`
	FailureReason        *string                `gorm:"column:failure_reason"`
	UpdatedAt            time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (Settlement) TableName() string { return "settlements" }
