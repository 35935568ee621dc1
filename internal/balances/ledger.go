package balances

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopledger-backend/internal/ledger"
	"github.com/angelmondragon/shopledger-backend/pkg/db"
	"github.com/angelmondragon/shopledger-backend/pkg/db/models"
	"github.com/angelmondragon/shopledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopledger-backend/pkg/errors"
	"github.com/angelmondragon/shopledger-backend/pkg/logger"
	"github.com/angelmondragon/shopledger-backend/pkg/metrics"
)

// Ledger applies bucket movements to a shop's balance. Every method runs on
// the caller's transaction and leaves the row locked until that tx ends.
type Ledger struct {
	repo    Repository
	entries ledger.Repository
	metrics *metrics.SettlementMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// LedgerParams bundles the ledger collaborators. Metrics, Logger and Now are optional.
type LedgerParams struct {
	Repo    Repository
	Entries ledger.Repository
	Metrics *metrics.SettlementMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

func NewLedger(params LedgerParams) (*Ledger, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("balance repository required")
	}
	if params.Entries == nil {
		return nil, fmt.Errorf("ledger entry repository required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		repo:    params.Repo,
		entries: params.Entries,
		metrics: params.Metrics,
		logg:    logg,
		now:     now,
	}, nil
}

// GetOrCreate returns the shop's balance row, creating a zeroed one on first
// use. Concurrent callers converge on a single row.
func (l *Ledger) GetOrCreate(ctx context.Context, tx *gorm.DB, shopID, sellerID uuid.UUID) (*models.SellerBalance, error) {
	if shopID == uuid.Nil || sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id and seller id are required")
	}
	repo := l.repo.WithTx(tx)
	if err := repo.InsertIfAbsent(ctx, shopID, sellerID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create seller balance")
	}
	balance, err := repo.FindByShopIDForUpdate(ctx, shopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller balance")
	}
	return balance, nil
}

// ApplyEarning credits a settled order. Funds land in available when the hold
// already elapsed, otherwise in pending.
func (l *Ledger) ApplyEarning(ctx context.Context, tx *gorm.DB, shopID, orderID uuid.UUID, amount decimal.Decimal, holdElapsed bool) (*models.SellerBalance, error) {
	entryType := enums.LedgerEntryEarningPending
	if holdElapsed {
		entryType = enums.LedgerEntryEarningAvailable
	}
	return l.move(ctx, tx, movement{
		shopID:  shopID,
		orderID: &orderID,
		kind:    entryType,
		amount:  amount,
		apply: func(b *models.SellerBalance) error {
			b.TotalEarned = b.TotalEarned.Add(amount)
			if holdElapsed {
				b.AvailableBalance = b.AvailableBalance.Add(amount)
			} else {
				b.PendingBalance = b.PendingBalance.Add(amount)
			}
			return nil
		},
	})
}

// ReleaseHold moves an earning from pending to available once its hold ends.
func (l *Ledger) ReleaseHold(ctx context.Context, tx *gorm.DB, shopID, orderID uuid.UUID, amount decimal.Decimal) (*models.SellerBalance, error) {
	return l.move(ctx, tx, movement{
		shopID:  shopID,
		orderID: &orderID,
		kind:    enums.LedgerEntryHoldReleased,
		amount:  amount,
		apply: func(b *models.SellerBalance) error {
			if b.PendingBalance.LessThan(amount) {
				return pkgerrors.New(pkgerrors.CodeInvalidStateTransition, "pending balance is lower than the released amount").
					WithDetails(map[string]any{"pending_balance": b.PendingBalance.StringFixed(2), "amount": amount.StringFixed(2)})
			}
			b.PendingBalance = b.PendingBalance.Sub(amount)
			b.AvailableBalance = b.AvailableBalance.Add(amount)
			return nil
		},
	})
}

// ReserveForWithdrawal earmarks available funds for a settlement.
func (l *Ledger) ReserveForWithdrawal(ctx context.Context, tx *gorm.DB, shopID, settlementID uuid.UUID, amount decimal.Decimal) (*models.SellerBalance, error) {
	return l.move(ctx, tx, movement{
		shopID:       shopID,
		settlementID: &settlementID,
		kind:         enums.LedgerEntryWithdrawalReserved,
		amount:       amount,
		apply: func(b *models.SellerBalance) error {
			if b.AvailableBalance.LessThan(amount) {
				return insufficient(b.AvailableBalance, amount)
			}
			b.AvailableBalance = b.AvailableBalance.Sub(amount)
			b.TotalPendingWithdrawal = b.TotalPendingWithdrawal.Add(amount)
			return nil
		},
	})
}

// ReleaseReservation returns reserved funds to available after a rejection.
func (l *Ledger) ReleaseReservation(ctx context.Context, tx *gorm.DB, shopID, settlementID uuid.UUID, amount decimal.Decimal) (*models.SellerBalance, error) {
	return l.move(ctx, tx, movement{
		shopID:       shopID,
		settlementID: &settlementID,
		kind:         enums.LedgerEntryReservationReleased,
		amount:       amount,
		apply: func(b *models.SellerBalance) error {
			if b.TotalPendingWithdrawal.LessThan(amount) {
				return reservationTooSmall(b.TotalPendingWithdrawal, amount)
			}
			b.TotalPendingWithdrawal = b.TotalPendingWithdrawal.Sub(amount)
			b.AvailableBalance = b.AvailableBalance.Add(amount)
			return nil
		},
	})
}

// FinalizeWithdrawal books reserved funds as paid out.
func (l *Ledger) FinalizeWithdrawal(ctx context.Context, tx *gorm.DB, shopID, settlementID uuid.UUID, amount decimal.Decimal) (*models.SellerBalance, error) {
	return l.move(ctx, tx, movement{
		shopID:       shopID,
		settlementID: &settlementID,
		kind:         enums.LedgerEntryWithdrawalFinalized,
		amount:       amount,
		apply: func(b *models.SellerBalance) error {
			if b.TotalPendingWithdrawal.LessThan(amount) {
				return reservationTooSmall(b.TotalPendingWithdrawal, amount)
			}
			b.TotalPendingWithdrawal = b.TotalPendingWithdrawal.Sub(amount)
			b.TotalWithdrawn = b.TotalWithdrawn.Add(amount)
			return nil
		},
	})
}

type movement struct {
	shopID       uuid.UUID
	orderID      *uuid.UUID
	settlementID *uuid.UUID
	kind         enums.LedgerEntryType
	amount       decimal.Decimal
	apply        func(b *models.SellerBalance) error
}

func (l *Ledger) move(ctx context.Context, tx *gorm.DB, m movement) (*models.SellerBalance, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "balance movements require a transaction")
	}
	if err := validateAmount(m.amount); err != nil {
		return nil, err
	}

	repo := l.repo.WithTx(tx)
	current, err := repo.FindByShopIDForUpdate(ctx, m.shopID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller balance not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock seller balance")
	}

	next := *current
	if err := m.apply(&next); err != nil {
		return nil, err
	}
	if err := CheckInvariants(&next); err != nil {
		return nil, err
	}
	next.Version = current.Version + 1
	next.UpdatedAt = l.now().UTC()

	rows, err := repo.UpdateBuckets(ctx, &next, current.Version)
	if err != nil {
		if db.IsCheckViolation(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "balance constraint rejected update")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update seller balance")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "seller balance changed concurrently")
	}

	entry := &models.BalanceLedgerEntry{
		ShopID:                 m.shopID,
		Type:                   m.kind,
		Amount:                 m.amount,
		SettlementID:           m.settlementID,
		OrderID:                m.orderID,
		AvailableBalance:       next.AvailableBalance,
		PendingBalance:         next.PendingBalance,
		TotalPendingWithdrawal: next.TotalPendingWithdrawal,
		TotalWithdrawn:         next.TotalWithdrawn,
		TotalEarned:            next.TotalEarned,
		CreatedAt:              next.UpdatedAt,
	}
	if err := l.entries.WithTx(tx).Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
	}

	l.metrics.IncLedgerMovement(string(m.kind))
	l.logg.Debug(l.logg.WithFields(ctx, map[string]any{
		"shop_id": m.shopID.String(),
		"type":    string(m.kind),
		"amount":  m.amount.StringFixed(2),
		"version": next.Version,
	}), "balance.movement")

	return &next, nil
}

// CheckInvariants verifies non-negative buckets and that the buckets add up
// to the lifetime total.
func CheckInvariants(b *models.SellerBalance) error {
	buckets := []struct {
		name  string
		value decimal.Decimal
	}{
		{"available_balance", b.AvailableBalance},
		{"pending_balance", b.PendingBalance},
		{"total_pending_withdrawal", b.TotalPendingWithdrawal},
		{"total_withdrawn", b.TotalWithdrawn},
		{"total_earned", b.TotalEarned},
	}
	for _, bucket := range buckets {
		if bucket.value.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeInternal, bucket.name+" would become negative")
		}
	}
	sum := b.AvailableBalance.Add(b.PendingBalance).Add(b.TotalPendingWithdrawal).Add(b.TotalWithdrawn)
	if !sum.Equal(b.TotalEarned) {
		return pkgerrors.New(pkgerrors.CodeInternal, "balance buckets do not add up to total earned").
			WithDetails(map[string]any{"buckets": sum.StringFixed(2), "total_earned": b.TotalEarned.StringFixed(2)})
	}
	return nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !amount.Equal(amount.Round(2)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must have at most two decimal places")
	}
	return nil
}

func insufficient(available, amount decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "available balance is lower than the requested amount").
		WithDetails(map[string]any{"available_balance": available.StringFixed(2), "requested_amount": amount.StringFixed(2)})
}

func reservationTooSmall(reserved, amount decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeInvalidStateTransition, "reserved withdrawal is lower than the amount").
		WithDetails(map[string]any{"total_pending_withdrawal": reserved.StringFixed(2), "amount": amount.StringFixed(2)})
}
