package settlements

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopledger-backend/internal/balances"
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
	"github.com/angelmondragon/shopledger-backend/pkg/pagination"
)

// Service is the settlement request manager and admin state machine.
type Service interface {
	CreateRequest(ctx context.Context, input CreateSettlementInput) (*models.Settlement, error)
	Approve(ctx context.Context, settlementID, adminID uuid.UUID) (*models.Settlement, error)
	Process(ctx context.Context, settlementID, adminID uuid.UUID, transactionReference string) (*models.Settlement, error)
	Complete(ctx context.Context, settlementID, adminID uuid.UUID) (*models.Settlement, error)
	Reject(ctx context.Context, settlementID, adminID uuid.UUID, reason string) (*models.Settlement, error)

	GetSettlement(ctx context.Context, settlementID uuid.UUID) (*models.Settlement, error)
	GetSellerSettlement(ctx context.Context, sellerID, settlementID uuid.UUID) (*models.Settlement, error)
	ListSettlements(ctx context.Context, params ListParams) (*SettlementPage, error)
	ListSellerSettlements(ctx context.Context, sellerID uuid.UUID, status *enums.SettlementStatus, page pagination.Params) (*SettlementPage, error)
	ListAllocations(ctx context.Context, settlementID uuid.UUID) ([]models.OrderSettlement, error)
}

// BankDetails are mandatory for bank transfers only.
type BankDetails struct {
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	AccountHolder string `json:"account_holder"`
}

// CreateSettlementInput is a seller's withdrawal request.
type CreateSettlementInput struct {
	SellerID    uuid.UUID
	Amount      decimal.Decimal
	Method      enums.SettlementMethod
	BankDetails *BankDetails
}

// ListParams filters the admin settlement listing.
type ListParams struct {
	ShopID *uuid.UUID
	Status *enums.SettlementStatus
	Page   pagination.Params
}

// SettlementPage is one page of settlements, newest request first.
type SettlementPage struct {
	Settlements []models.Settlement `json:"settlements"`
	NextCursor  string              `json:"next_cursor,omitempty"`
}

// TxRunner opens a unit of work.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Emitter queues outbox events on the caller's transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams packages the settlement service dependencies.
type ServiceParams struct {
	DB         TxRunner
	Repo       Repository
	Shops      *shops.Repository
	Ledger     *balances.Ledger
	Calculator *Calculator
	Outbox     Emitter
	Config     config.SettlementConfig
	Metrics    *metrics.SettlementMetrics
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	db      TxRunner
	repo    Repository
	shops   *shops.Repository
	ledger  *balances.Ledger
	calc    *Calculator
	scanner *EligibilityScanner
	outbox  Emitter
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
		return nil, fmt.Errorf("settlement repository required")
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
		shops:   params.Shops,
		ledger:  params.Ledger,
		calc:    params.Calculator,
		scanner: NewEligibilityScanner(params.Calculator),
		outbox:  params.Outbox,
		cfg:     params.Config,
		metrics: params.Metrics,
		logg:    logg,
		now:     now,
	}, nil
}

func (s *service) retryPolicy(ctx context.Context, operation string) db.RetryPolicy {
	return db.RetryPolicy{
		MaxRetries: s.cfg.MaxRetries,
		BaseDelay:  s.cfg.RetryBaseDelay,
		OnRetry: func(attempt int, err error) {
			s.metrics.IncConflictRetry(operation)
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"operation": operation,
				"attempt":   attempt,
				"error":     errString(err),
			}), "settlement.retry")
		},
	}
}

func (s *service) CreateRequest(ctx context.Context, input CreateSettlementInput) (*models.Settlement, error) {
	created, err := s.createRequest(ctx, input)
	s.metrics.ObserveTransition("request", err)
	return created, err
}

func (s *service) createRequest(ctx context.Context, input CreateSettlementInput) (*models.Settlement, error) {
	if err := s.validateRequest(input); err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"seller_id": input.SellerID.String(),
		"amount":    input.Amount.StringFixed(2),
		"method":    string(input.Method),
	})

	var created *models.Settlement
	err := db.Retry(ctx, s.retryPolicy(ctx, "create_request"), func(ctx context.Context) error {
		return s.db.WithTx(ctx, func(tx *gorm.DB) error {
			settlement, err := s.createInTx(ctx, tx, input)
			if err != nil {
				return err
			}
			created = settlement
			return nil
		})
	})
	if err != nil {
		s.logFailure(ctx, "settlement.request.failed", err)
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"settlement_id": created.ID.String(),
		"shop_id":       created.ShopID.String(),
	}), "settlement.requested")
	return created, nil
}

func (s *service) validateRequest(input CreateSettlementInput) error {
	if input.SellerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if input.Amount.LessThan(s.cfg.MinSettlementAmount) {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount is below the minimum settlement amount").
			WithDetails(map[string]any{"min_settlement_amount": s.cfg.MinSettlementAmount.StringFixed(2)})
	}
	if !input.Amount.Equal(input.Amount.Round(2)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must have at most two decimal places")
	}
	if !input.Method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid settlement method").
			WithDetails(map[string]any{"method": string(input.Method)})
	}
	if input.Method.RequiresBankDetails() {
		missing := missingBankFields(input.BankDetails)
		if len(missing) > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "bank transfer requires complete bank details").
				WithDetails(map[string]any{"missing": missing})
		}
	}
	return nil
}

func missingBankFields(details *BankDetails) []string {
	if details == nil {
		return []string{"account_number", "bank_name", "account_holder"}
	}
	var missing []string
	if strings.TrimSpace(details.AccountNumber) == "" {
		missing = append(missing, "account_number")
	}
	if strings.TrimSpace(details.BankName) == "" {
		missing = append(missing, "bank_name")
	}
	if strings.TrimSpace(details.AccountHolder) == "" {
		missing = append(missing, "account_holder")
	}
	return missing
}

func (s *service) createInTx(ctx context.Context, tx *gorm.DB, input CreateSettlementInput) (*models.Settlement, error) {
	shop, err := s.shops.WithTx(tx).ResolveForSeller(ctx, input.SellerID)
	if err != nil {
		return nil, err
	}

	balance, err := s.ledger.GetOrCreate(ctx, tx, shop.ID, input.SellerID)
	if err != nil {
		return nil, err
	}
	if balance.AvailableBalance.LessThan(input.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientBalance, "available balance is lower than the requested amount").
			WithDetails(map[string]any{
				"available_balance": balance.AvailableBalance.StringFixed(2),
				"requested_amount":  input.Amount.StringFixed(2),
			})
	}

	now := s.now().UTC()
	eligible, err := s.scanner.GetEligibleOrders(ctx, tx, shop.ID, s.cfg.HoldPeriodDays, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan eligible orders")
	}
	selected, covered, ok := SelectOldestFirst(eligible, input.Amount)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientBalance, "eligible orders do not cover the requested amount").
			WithDetails(map[string]any{
				"eligible_amount":  covered.StringFixed(2),
				"requested_amount": input.Amount.StringFixed(2),
			})
	}

	percent := s.calc.Percent()
	fee := PlatformFee(input.Amount, percent)
	settlement := &models.Settlement{
		ID:                uuid.New(),
		SellerID:          input.SellerID,
		ShopID:            shop.ID,
		RequestedAmount:   input.Amount,
		PlatformFee:       fee,
		NetAmount:         input.Amount.Sub(fee),
		CommissionPercent: percent,
		Status:            enums.SettlementStatusPending,
		Method:            input.Method,
		RequestedAt:       now,
		UpdatedAt:         now,
	}
	if details := input.BankDetails; details != nil {
		settlement.BankAccountNumber = trimmedOrNil(details.AccountNumber)
		settlement.BankName = trimmedOrNil(details.BankName)
		settlement.BankAccountHolder = trimmedOrNil(details.AccountHolder)
	}

	repo := s.repo.WithTx(tx)
	if err := repo.Create(ctx, settlement); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create settlement")
	}

	allocations := make([]models.OrderSettlement, 0, len(selected))
	orderIDs := make([]uuid.UUID, 0, len(selected))
	for _, order := range selected {
		allocations = append(allocations, models.OrderSettlement{
			ID:                uuid.New(),
			OrderID:           order.OrderID,
			SettlementID:      settlement.ID,
			OrderAmount:       order.Breakdown.OrderAmount,
			Commission:        order.Breakdown.Commission,
			CommissionPercent: order.Breakdown.CommissionPercent,
			SettlementAmount:  order.Breakdown.SettlementAmount,
			OrderDeliveredAt:  order.DeliveredAt,
			EligibleAt:        order.EligibleAt,
			CreatedAt:         now,
		})
		orderIDs = append(orderIDs, order.OrderID)
	}
	if err := repo.CreateAllocations(ctx, allocations); err != nil {
		if db.IsUniqueViolation(err, "ux_order_settlements_order_id", "order_settlements.order_id") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConcurrencyConflict, err, "order already allocated by a concurrent request")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order allocations")
	}

	if _, err := s.ledger.ReserveForWithdrawal(ctx, tx, shop.ID, settlement.ID, input.Amount); err != nil {
		return nil, err
	}

	event := settlementEvent(settlement, nil)
	event.AllocatedOrderIDs = orderIDs
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventSettlementRequested,
		AggregateType: enums.AggregateSettlement,
		AggregateID:   settlement.ID,
		Actor:         &outbox.ActorRef{UserID: input.SellerID, ShopID: &shop.ID, Role: string(enums.MemberRoleSeller)},
		Data:          event,
		OccurredAt:    now,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue settlement requested event")
	}
	return settlement, nil
}

func (s *service) GetSettlement(ctx context.Context, settlementID uuid.UUID) (*models.Settlement, error) {
	if settlementID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settlement id is required")
	}
	settlement, err := s.repo.FindByID(ctx, settlementID)
	if err != nil {
		return nil, notFoundOr(err, "load settlement")
	}
	return settlement, nil
}

// GetSellerSettlement hides other shops' settlements behind NOT_FOUND.
func (s *service) GetSellerSettlement(ctx context.Context, sellerID, settlementID uuid.UUID) (*models.Settlement, error) {
	settlement, err := s.GetSettlement(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	if settlement.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "settlement not found")
	}
	return settlement, nil
}

func (s *service) ListSettlements(ctx context.Context, params ListParams) (*SettlementPage, error) {
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid settlement status")
	}
	cursor, err := pagination.ParseCursor(params.Page.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Page.Limit)
	filter := ListFilter{ShopID: params.ShopID, Status: params.Status, Limit: limit + 1}
	if cursor != nil {
		filter.BeforeRequestedAt = &cursor.CreatedAt
		filter.BeforeID = &cursor.ID
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list settlements")
	}
	page, next := pagination.Split(rows, limit, func(row models.Settlement) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.RequestedAt, ID: row.ID}
	})
	return &SettlementPage{Settlements: page, NextCursor: next}, nil
}

func (s *service) ListSellerSettlements(ctx context.Context, sellerID uuid.UUID, status *enums.SettlementStatus, page pagination.Params) (*SettlementPage, error) {
	shop, err := s.shops.ResolveForSeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	return s.ListSettlements(ctx, ListParams{ShopID: &shop.ID, Status: status, Page: page})
}

func (s *service) ListAllocations(ctx context.Context, settlementID uuid.UUID) ([]models.OrderSettlement, error) {
	if _, err := s.GetSettlement(ctx, settlementID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListAllocations(ctx, settlementID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order allocations")
	}
	return rows, nil
}

func settlementEvent(s *models.Settlement, actor *uuid.UUID) *payloads.SettlementEvent {
	return &payloads.SettlementEvent{
		SettlementID:         s.ID,
		ShopID:               s.ShopID,
		SellerID:             s.SellerID,
		Status:               s.Status,
		Method:               s.Method,
		RequestedAmount:      s.RequestedAmount,
		PlatformFee:          s.PlatformFee,
		NetAmount:            s.NetAmount,
		ActorID:              actor,
		TransactionReference: s.TransactionReference,
		FailureReason:        s.FailureReason,
		OccurredAt:           s.UpdatedAt,
	}
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "settlement not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func trimmedOrNil(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (s *service) logFailure(ctx context.Context, msg string, err error) {
	if typed := pkgerrors.As(err); typed != nil && typed.Code() != pkgerrors.CodeInternal && typed.Code() != pkgerrors.CodeDependency {
		s.logg.Warn(s.logg.WithField(ctx, "error_code", string(typed.Code())), msg)
		return
	}
	s.logg.Error(ctx, msg, err)
}
