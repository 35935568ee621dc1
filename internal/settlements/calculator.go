package settlements

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Breakdown splits an order total into the platform's commission and the
// amount owed to the seller.
type Breakdown struct {
	OrderAmount       decimal.Decimal `json:"order_amount"`
	CommissionPercent decimal.Decimal `json:"commission_percent"`
	Commission        decimal.Decimal `json:"commission"`
	SettlementAmount  decimal.Decimal `json:"settlement_amount"`
}

// Compute rounds the commission half-up to cents; the seller gets the rest.
func Compute(orderAmount, commissionPercent decimal.Decimal) Breakdown {
	commission := orderAmount.Mul(commissionPercent).Div(hundred).Round(2)
	return Breakdown{
		OrderAmount:       orderAmount,
		CommissionPercent: commissionPercent,
		Commission:        commission,
		SettlementAmount:  orderAmount.Sub(commission),
	}
}

// PlatformFee is the commission charged on a withdrawal amount.
func PlatformFee(amount, commissionPercent decimal.Decimal) decimal.Decimal {
	return amount.Mul(commissionPercent).Div(hundred).Round(2)
}

// Calculator binds Compute to the configured commission rate.
type Calculator struct {
	percent decimal.Decimal
}

func NewCalculator(commissionPercent decimal.Decimal) (*Calculator, error) {
	if err := ValidatePercent(commissionPercent); err != nil {
		return nil, err
	}
	return &Calculator{percent: commissionPercent}, nil
}

func (c *Calculator) Percent() decimal.Decimal { return c.percent }

func (c *Calculator) Compute(orderAmount decimal.Decimal) Breakdown {
	return Compute(orderAmount, c.percent)
}

func ValidatePercent(p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(hundred) {
		return fmt.Errorf("commission percent must be between 0 and 100, got %s", p)
	}
	return nil
}
