package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopledger-backend/pkg/enums"
)

// Order is owned by the orders system; this service only reads it.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ShopID        uuid.UUID           `gorm:"column:shop_id;type:uuid;not null;index"`
	BuyerID       uuid.UUID           `gorm:"column:buyer_id;type:uuid"`
	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:numeric(18,2);not null"`
	Status        enums.OrderStatus   `gorm:"column:status;not null"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;not null"`
	DeliveredAt   *time.Time          `gorm:"column:delivered_at"`
	CreatedAt     time.Time           `gorm:"column:created_at"`
	UpdatedAt     *time.Time          `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (Order) TableName() string { return "orders" }

// DeliveryTime falls back to the last update, then creation, when the orders
// system never stamped delivered_at.
func (o Order) DeliveryTime() time.Time {
	if o.DeliveredAt != nil {
		return *o.DeliveredAt
	}
	if o.UpdatedAt != nil {
		return *o.UpdatedAt
	}
	return o.CreatedAt
}
