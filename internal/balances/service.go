package balances

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopledger-backend/internal/shops"
	"github.com/angelmondragon/shopledger-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopledger-backend/pkg/errors"
)

// Service answers balance reads for sellers and admins.
type Service interface {
	GetBalance(ctx context.Context, shopID uuid.UUID) (*BalanceView, error)
	GetSellerBalance(ctx context.Context, sellerID uuid.UUID) (*BalanceView, error)
}

// BalanceView is the external shape of a seller balance.
type BalanceView struct {
	ShopID                 uuid.UUID       `json:"shop_id"`
	SellerID               uuid.UUID       `json:"seller_id"`
	AvailableBalance       decimal.Decimal `json:"available_balance"`
	PendingBalance         decimal.Decimal `json:"pending_balance"`
	TotalEarned            decimal.Decimal `json:"total_earned"`
	TotalWithdrawn         decimal.Decimal `json:"total_withdrawn"`
	TotalPendingWithdrawal decimal.Decimal `json:"total_pending_withdrawal"`
	UpdatedAt              *time.Time      `json:"updated_at,omitempty"`
}

func toView(b *models.SellerBalance) *BalanceView {
	updated := b.UpdatedAt
	return &BalanceView{
		ShopID:                 b.ShopID,
		SellerID:               b.SellerID,
		AvailableBalance:       b.AvailableBalance,
		PendingBalance:         b.PendingBalance,
		TotalEarned:            b.TotalEarned,
		TotalWithdrawn:         b.TotalWithdrawn,
		TotalPendingWithdrawal: b.TotalPendingWithdrawal,
		UpdatedAt:              &updated,
	}
}

type service struct {
	repo  Repository
	shops *shops.Repository
}

func NewService(repo Repository, shopRepo *shops.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("balance repository required")
	}
	if shopRepo == nil {
		return nil, fmt.Errorf("shop repository required")
	}
	return &service{repo: repo, shops: shopRepo}, nil
}

func (s *service) GetBalance(ctx context.Context, shopID uuid.UUID) (*BalanceView, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id is required")
	}
	balance, err := s.repo.FindByShopID(ctx, shopID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller balance not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller balance")
	}
	return toView(balance), nil
}

// GetSellerBalance resolves the seller's shop first. A shop that has never
// earned reports zeros rather than NOT_FOUND.
func (s *service) GetSellerBalance(ctx context.Context, sellerID uuid.UUID) (*BalanceView, error) {
	shop, err := s.shops.ResolveForSeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	view, err := s.GetBalance(ctx, shop.ID)
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return &BalanceView{ShopID: shop.ID, SellerID: sellerID}, nil
	}
	return view, err
}
