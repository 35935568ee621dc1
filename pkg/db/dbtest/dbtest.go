// Package dbtest opens throwaway sqlite databases carrying the production
// schema, plus fixtures for the read-only tables owned by other systems.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopledger-backend/pkg/db"
	"github.com/angelmondragon/shopledger-backend/pkg/db/models"
	"github.com/angelmondragon/shopledger-backend/pkg/enums"
)

// Open returns a client over a private in-memory database. The pool is pinned
// to one connection, so code under test must stay on the tx handle while a
// transaction is open.
func Open(t testing.TB) *db.Client {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(models.All()...))
	return db.NewFromGorm(conn)
}

// MustCreateShop inserts a shop owned by ownerID.
func MustCreateShop(t testing.TB, conn *gorm.DB, ownerID uuid.UUID) models.Shop {
	t.Helper()
	shop := models.Shop{ID: uuid.New(), OwnerID: ownerID, Name: "shop-" + ownerID.String()[:8]}
	require.NoError(t, conn.Create(&shop).Error)
	return shop
}

// OrderOption tweaks a fixture order before insert.
type OrderOption func(*models.Order)

func WithStatus(status enums.OrderStatus) OrderOption {
	return func(o *models.Order) { o.Status = status }
}

func WithPaymentStatus(status enums.PaymentStatus) OrderOption {
	return func(o *models.Order) { o.PaymentStatus = status }
}

// WithoutDeliveredAt leaves delivered_at empty and stamps updated_at instead.
func WithoutDeliveredAt() OrderOption {
	return func(o *models.Order) {
		if o.DeliveredAt != nil {
			updated := *o.DeliveredAt
			o.UpdatedAt = &updated
		}
		o.DeliveredAt = nil
	}
}

// MustCreateOrder inserts a delivered, paid order for shopID.
func MustCreateOrder(t testing.TB, conn *gorm.DB, shopID uuid.UUID, total string, deliveredAt time.Time, opts ...OrderOption) models.Order {
	t.Helper()
	delivered := deliveredAt.UTC()
	order := models.Order{
		ID:            uuid.New(),
		ShopID:        shopID,
		BuyerID:       uuid.New(),
		TotalAmount:   decimal.RequireFromString(total),
		Status:        enums.OrderStatusDelivered,
		PaymentStatus: enums.PaymentStatusPaid,
		DeliveredAt:   &delivered,
		CreatedAt:     delivered.Add(-48 * time.Hour),
	}
	for _, opt := range opts {
		opt(&order)
	}
	require.NoError(t, conn.Create(&order).Error)
	return order
}
