package earnings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopledger-backend/internal/balances"
	"github.com/angelmondragon/shopledger-backend/internal/orders"
	"github.com/angelmondragon/shopledger-backend/internal/settlements"
	"github.com/angelmondragon/shopledger-backend/internal/shops"
	"github.com/angelmondragon/shopledger-backend/pkg/config"
	"github.com/angelmondragon/shopledger-backend/pkg/db"
	"github.com/angelmondragon/shopledger-backend/pkg/db/models"
	"github.com/angelmondragon/shopledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopledger-backend/pkg/errors"
	"github.com/angelmondragon/shopledger-backend/pkg/logger"
	"github.com/angelmondragon/shopledger-backend/pkg/metrics"
	"github.com/angelmondragon/shopledger-backend/pkg/outbox"
	"github.com/angelmondragon/shopledger-backend/pkg/outbox/payloads"
)

// Service credits delivered orders to their shop and releases held funds.
type Service interface {
	CalculateSettlementForOrder(ctx context.Context, orderID uuid.UUID) (*models.OrderEarning, error)
	ReleaseHold(ctx context.Context, earningID uuid.UUID) (bool, error)
	ListDue(ctx context.Context, limit int) ([]models.OrderEarning, error)
}

// ServiceParams packages the earnings service dependencies.
type ServiceParams struct {
	DB         settlements.TxRunner
	Repo       Repository
	Orders     orders.Repository
	Shops      *shops.Repository
	Ledger     *balances.Ledger
	Calculator *settlements.Calculator
	Outbox     settlements.Emitter
	Config     config.SettlementConfig
	Metrics    *metrics.SettlementMetrics
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	db      settlements.TxRunner
	repo    Repository
	orders  orders.Repository
	shops   *shops.Repository
	ledger  *balances.Ledger
	calc    *settlements.Calculator
	outbox  settlements.Emitter
	cfg     config.SettlementConfig
	metrics *metrics.SettlementMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.DB == nil:
		return nil, fmt.Errorf("database client required")
	case params.Repo == nil:
		return nil, fmt.Errorf("earnings repository required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Shops == nil:
		return nil, fmt.Errorf("shop repository required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("balance ledger required")
	case params.Calculator == nil:
		return nil, fmt.Errorf("settlement calculator required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:      params.DB,
		repo:    params.Repo,
		orders:  params.Orders,
		shops:   params.Shops,
		ledger:  params.Ledger,
		calc:    params.Calculator,
		outbox:  params.Outbox,
		cfg:     params.Config,
		metrics: params.Metrics,
		logg:    logg,
		now:     now,
	}, nil
}

func (s *service) policy(ctx context.Context, operation string) db.RetryPolicy {
	return db.RetryPolicy{
		MaxRetries: s.cfg.MaxRetries,
		BaseDelay:  s.cfg.RetryBaseDelay,
		OnRetry: func(attempt int, err error) {
			s.metrics.IncConflictRetry(operation)
			s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), operation+".retry")
		},
	}
}

// CalculateSettlementForOrder credits a delivered, paid order to its shop
// exactly once.
func (s *service) CalculateSettlementForOrder(ctx context.Context, orderID uuid.UUID) (*models.OrderEarning, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	ctx = s.logg.WithField(ctx, "order_id", orderID.String())

	var earning *models.OrderEarning
	err := db.Retry(ctx, s.policy(ctx, "calculate_earning"), func(ctx context.Context) error {
		return s.db.WithTx(ctx, func(tx *gorm.DB) error {
			created, err := s.calculateInTx(ctx, tx, orderID)
			if err != nil {
				return err
			}
			earning = created
			return nil
		})
	})
	s.metrics.ObserveTransition("earning", err)
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"shop_id":    earning.ShopID.String(),
		"amount":     earning.SettlementAmount.StringFixed(2),
		"hold_until": earning.HoldUntil,
		"available":  earning.ReleasedAt != nil,
	}), "earning.recorded")
	return earning, nil
}

func (s *service) calculateInTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.OrderEarning, error) {
	order, err := s.orders.WithTx(tx).FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status != enums.OrderStatusDelivered || order.PaymentStatus != enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodePreconditionFailed, "order must be delivered and paid").
			WithDetails(map[string]any{"status": string(order.Status), "payment_status": string(order.PaymentStatus)})
	}

	repo := s.repo.WithTx(tx)
	if _, err := repo.FindByOrderID(ctx, orderID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadySettled, "order earnings already recorded")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order earnings")
	}

	shop, err := s.shops.WithTx(tx).Resolve(ctx, order.ShopID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	breakdown := s.calc.Compute(order.TotalAmount)
	delivered := order.DeliveryTime().UTC()
	holdUntil := delivered.Add(s.cfg.HoldPeriod())
	holdElapsed := !now.Before(holdUntil)

	if _, err := s.ledger.GetOrCreate(ctx, tx, shop.ID, shop.OwnerID); err != nil {
		return nil, err
	}

	earning := &models.OrderEarning{
		ID:                uuid.New(),
		OrderID:           order.ID,
		ShopID:            shop.ID,
		OrderAmount:       breakdown.OrderAmount,
		Commission:        breakdown.Commission,
		CommissionPercent: breakdown.CommissionPercent,
		SettlementAmount:  breakdown.SettlementAmount,
		DeliveredAt:       delivered,
		HoldUntil:         holdUntil,
		CreatedAt:         now,
	}
	// nothing to hold when the commission ate the whole order
	if holdElapsed || !breakdown.SettlementAmount.IsPositive() {
		earning.ReleasedAt = &now
	}

	if err := repo.Create(ctx, earning); err != nil {
		if db.IsUniqueViolation(err, "ux_order_earnings_order_id", "order_earnings.order_id") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeAlreadySettled, err, "order earnings already recorded")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order earnings")
	}

	if breakdown.SettlementAmount.IsPositive() {
		if _, err := s.ledger.ApplyEarning(ctx, tx, shop.ID, order.ID, breakdown.SettlementAmount, holdElapsed); err != nil {
			return nil, err
		}
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventEarningRecorded,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.EarningRecordedEvent{
			OrderID:           order.ID,
			ShopID:            shop.ID,
			OrderAmount:       breakdown.OrderAmount,
			Commission:        breakdown.Commission,
			CommissionPercent: breakdown.CommissionPercent,
			SettlementAmount:  breakdown.SettlementAmount,
			HoldUntil:         holdUntil,
			Available:         earning.ReleasedAt != nil,
		},
		OccurredAt: now,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue earning recorded event")
	}
	return earning, nil
}

// ReleaseHold moves one earning from pending to available. It reports false
// when the earning was already released or is still on hold.
func (s *service) ReleaseHold(ctx context.Context, earningID uuid.UUID) (bool, error) {
	ctx = s.logg.WithField(ctx, "earning_id", earningID.String())

	released := false
	err := db.Retry(ctx, s.policy(ctx, "release_hold"), func(ctx context.Context) error {
		released = false
		return s.db.WithTx(ctx, func(tx *gorm.DB) error {
			ok, err := s.releaseInTx(ctx, tx, earningID)
			if err != nil {
				return err
			}
			released = ok
			return nil
		})
	})
	s.metrics.ObserveTransition("release_hold", err)
	return released, err
}

func (s *service) releaseInTx(ctx context.Context, tx *gorm.DB, earningID uuid.UUID) (bool, error) {
	repo := s.repo.WithTx(tx)
	earning, err := repo.FindByIDForUpdate(ctx, earningID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, pkgerrors.New(pkgerrors.CodeNotFound, "order earning not found")
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order earning")
	}
	now := s.now().UTC()
	if earning.ReleasedAt != nil || now.Before(earning.HoldUntil) {
		return false, nil
	}

	rows, err := repo.MarkReleased(ctx, earning.ID, now)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark earning released")
	}
	if rows == 0 {
		return false, nil
	}

	if _, err := s.ledger.ReleaseHold(ctx, tx, earning.ShopID, earning.OrderID, earning.SettlementAmount); err != nil {
		return false, err
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventEarningHoldReleased,
		AggregateType: enums.AggregateOrder,
		AggregateID:   earning.OrderID,
		Data: payloads.EarningHoldReleasedEvent{
			OrderID:    earning.OrderID,
			ShopID:     earning.ShopID,
			Amount:     earning.SettlementAmount,
			ReleasedAt: now,
		},
		OccurredAt: now,
	}); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue hold released event")
	}
	return true, nil
}

func (s *service) ListDue(ctx context.Context, limit int) ([]models.OrderEarning, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.repo.ListDue(ctx, s.now(), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due earnings")
	}
	return rows, nil
}
