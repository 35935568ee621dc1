package settlements

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopledger-backend/pkg/db/models"
	"github.com/angelmondragon/shopledger-backend/pkg/enums"
)

const deliveryTimeExpr = "COALESCE(delivered_at, updated_at, created_at)"

// EligibleOrder is a delivered, paid, unallocated order past its hold.
type EligibleOrder struct {
	OrderID     uuid.UUID
	DeliveredAt time.Time
	EligibleAt  time.Time
	Breakdown   Breakdown
}

// EligibilityScanner finds orders that can back a new settlement.
type EligibilityScanner struct {
	calc *Calculator
}

func NewEligibilityScanner(calc *Calculator) *EligibilityScanner {
	return &EligibilityScanner{calc: calc}
}

// GetEligibleOrders returns the shop's settleable orders oldest delivery
// first, id breaking ties. The hold is applied as a cutoff on the delivery
// time so the query stays portable.
func (s *EligibilityScanner) GetEligibleOrders(ctx context.Context, tx *gorm.DB, shopID uuid.UUID, holdPeriodDays int, now time.Time) ([]EligibleOrder, error) {
	hold := time.Duration(holdPeriodDays) * 24 * time.Hour
	if hold < 0 {
		hold = 0
	}
	cutoff := now.UTC().Add(-hold)

	var rows []models.Order
	if err := tx.WithContext(ctx).
		Model(&models.Order{}).
		Where("shop_id = ?", shopID).
		Where("status = ? AND payment_status = ?", enums.OrderStatusDelivered, enums.PaymentStatusPaid).
		Where(deliveryTimeExpr+" <= ?", cutoff).
		Where("NOT EXISTS (SELECT 1 FROM order_settlements os WHERE os.order_id = orders.id)").
		Order(deliveryTimeExpr + " ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]EligibleOrder, 0, len(rows))
	for _, row := range rows {
		delivered := row.DeliveryTime().UTC()
		out = append(out, EligibleOrder{
			OrderID:     row.ID,
			DeliveredAt: delivered,
			EligibleAt:  delivered.Add(hold),
			Breakdown:   s.calc.Compute(row.TotalAmount),
		})
	}
	return out, nil
}

// SelectOldestFirst takes orders in order until their settlement amounts
// cover amount. ok is false when the whole set falls short.
func SelectOldestFirst(orders []EligibleOrder, amount decimal.Decimal) (selected []EligibleOrder, covered decimal.Decimal, ok bool) {
	covered = decimal.Zero
	for _, order := range orders {
		if covered.GreaterThanOrEqual(amount) {
			break
		}
		selected = append(selected, order)
		covered = covered.Add(order.Breakdown.SettlementAmount)
	}
	return selected, covered, covered.GreaterThanOrEqual(amount)
}
