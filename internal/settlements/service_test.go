package settlements

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopledger-backend/internal/balances"
	"github.com/angelmondragon/shopledger-backend/internal/ledger"
	"github.com/angelmondragon/shopledger-backend/internal/shops"
	"github.com/angelmondragon/shopledger-backend/pkg/config"
	"github.com/angelmondragon/shopledger-backend/pkg/db"
	"github.com/angelmondragon/shopledger-backend/pkg/db/dbtest"
	"github.com/angelmondragon/shopledger-backend/pkg/db/models"
	"github.com/angelmondragon/shopledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopledger-backend/pkg/errors"
	"github.com/angelmondragon/shopledger-backend/pkg/metrics"
	"github.com/angelmondragon/shopledger-backend/pkg/outbox"
	"github.com/angelmondragon/shopledger-backend/pkg/pagination"
)

var fixedNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	client   *db.Client
	svc      Service
	ledger   *balances.Ledger
	registry *prometheus.Registry
	sellerID uuid.UUID
	shopID   uuid.UUID
	adminID  uuid.UUID
}

func testConfig() config.SettlementConfig {
	return config.SettlementConfig{
		CommissionPercent:   decimal.NewFromInt(10),
		HoldPeriodDays:      7,
		MinSettlementAmount: decimal.NewFromInt(50000),
		MaxRetries:          3,
		RetryBaseDelay:      time.Millisecond,
	}
}

func newFixture(t *testing.T, wrap ...func(Repository) Repository) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	registry := prometheus.NewRegistry()
	m := metrics.NewSettlementMetrics(registry)
	clock := func() time.Time { return fixedNow }

	l, err := balances.NewLedger(balances.LedgerParams{
		Repo:    balances.NewRepository(client.DB()),
		Entries: ledger.NewRepository(client.DB()),
		Metrics: m,
		Now:     clock,
	})
	require.NoError(t, err)

	cfg := testConfig()
	calc, err := NewCalculator(cfg.CommissionPercent)
	require.NoError(t, err)

	var repo Repository = NewRepository(client.DB())
	for _, w := range wrap {
		repo = w(repo)
	}

	svc, err := NewService(ServiceParams{
		DB:         client,
		Repo:       repo,
		Shops:      shops.NewRepository(client.DB()),
		Ledger:     l,
		Calculator: calc,
		Outbox:     outbox.NewService(outbox.NewRepository(client.DB()), nil),
		Config:     cfg,
		Metrics:    m,
		Now:        clock,
	})
	require.NoError(t, err)

	sellerID := uuid.New()
	shop := dbtest.MustCreateShop(t, client.DB(), sellerID)
	return &fixture{
		client:   client,
		svc:      svc,
		ledger:   l,
		registry: registry,
		sellerID: sellerID,
		shopID:   shop.ID,
		adminID:  uuid.New(),
	}
}

// credit books an earning for a delivered order so the balance and the
// eligible order set stay consistent.
func (f *fixture) credit(t *testing.T, total string, deliveredAgo time.Duration) models.Order {
	t.Helper()
	order := dbtest.MustCreateOrder(t, f.client.DB(), f.shopID, total, fixedNow.Add(-deliveredAgo))
	amount := Compute(order.TotalAmount, decimal.NewFromInt(10)).SettlementAmount
	require.NoError(t, f.client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if _, err := f.ledger.GetOrCreate(context.Background(), tx, f.shopID, f.sellerID); err != nil {
			return err
		}
		_, err := f.ledger.ApplyEarning(context.Background(), tx, f.shopID, order.ID, amount, deliveredAgo >= 7*24*time.Hour)
		return err
	}))
	return order
}

func (f *fixture) balance(t *testing.T) models.SellerBalance {
	t.Helper()
	var b models.SellerBalance
	require.NoError(t, f.client.DB().Where("shop_id = ?", f.shopID).First(&b).Error)
	require.NoError(t, balances.CheckInvariants(&b))
	return b
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.client.DB().Model(model).Count(&n).Error)
	return n
}

func bankTransfer(seller uuid.UUID, amount string) CreateSettlementInput {
	return CreateSettlementInput{
		SellerID: seller,
		Amount:   dec(amount),
		Method:   enums.SettlementMethodBankTransfer,
		BankDetails: &BankDetails{
			AccountNumber: "0123456789",
			BankName:      "First Bank",
			AccountHolder: "Ada Seller",
		},
	}
}

func TestCreateRequestAllocatesAndReserves(t *testing.T) {
	f := newFixture(t)
	order := f.credit(t, "100000", 10*24*time.Hour)
	f.credit(t, "11111.11", 9*24*time.Hour)
	before := f.balance(t)
	require.True(t, before.AvailableBalance.Equal(dec("100000")))

	settlement, err := f.svc.CreateRequest(context.Background(), bankTransfer(f.sellerID, "80000"))
	require.NoError(t, err)

	assert.Equal(t, enums.SettlementStatusPending, settlement.Status)
	assert.True(t, settlement.RequestedAmount.Equal(dec("80000")))
	assert.True(t, settlement.PlatformFee.Equal(dec("8000")))
	assert.True(t, settlement.NetAmount.Equal(dec("72000")))
	assert.True(t, settlement.CommissionPercent.Equal(dec("10")))
	require.NotNil(t, settlement.BankName)
	assert.Equal(t, "First Bank", *settlement.BankName)

	b := f.balance(t)
	assert.True(t, b.AvailableBalance.Equal(dec("20000")), "available %s", b.AvailableBalance)
	assert.True(t, b.TotalPendingWithdrawal.Equal(dec("80000")))

	allocations, err := f.svc.ListAllocations(context.Background(), settlement.ID)
	require.NoError(t, err)
	require.Len(t, allocations, 1)
	assert.Equal(t, order.ID, allocations[0].OrderID)
	assert.True(t, allocations[0].SettlementAmount.Equal(dec("90000")))
	assert.True(t, allocations[0].Commission.Equal(dec("10000")))
	assert.True(t, allocations[0].EligibleAt.Equal(order.DeliveryTime().Add(7*24*time.Hour)))

	var events []models.OutboxEvent
	require.NoError(t, f.client.DB().Where("aggregate_id = ?", settlement.ID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventSettlementRequested, events[0].EventType)
}

func TestCreateRequestInsufficientBalanceLeavesNoRows(t *testing.T) {
	f := newFixture(t)
	f.credit(t, "100000", 10*24*time.Hour)
	f.credit(t, "11111.11", 9*24*time.Hour)

	_, err := f.svc.CreateRequest(context.Background(), bankTransfer(f.sellerID, "150000"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientBalance))

	assert.Zero(t, f.count(t, &models.Settlement{}))
	assert.Zero(t, f.count(t, &models.OrderSettlement{}))
	b := f.balance(t)
	assert.True(t, b.TotalPendingWithdrawal.IsZero())
}

func TestCreateRequestNeedsEligibleOrders(t *testing.T) {
	f := newFixture(t)
	f.credit(t, "100000", 10*24*time.Hour)
	ctx := context.Background()

	// Available funds without matching eligible orders are not withdrawable.
	require.NoError(t, f.client.DB().Model(&models.Order{}).Where("shop_id = ?", f.shopID).
		Update("payment_status", enums.PaymentStatusRefunded).Error)

	_, err := f.svc.CreateRequest(ctx, bankTransfer(f.sellerID, "60000"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientBalance))
	assert.Zero(t, f.count(t, &models.Settlement{}))
}

func TestCreateRequestPicksOldestOrdersFirst(t *testing.T) {
	f := newFixture(t)
	newest := f.credit(t, "40000", 8*24*time.Hour)
	oldest := f.credit(t, "40000", 30*24*time.Hour)
	middle := f.credit(t, "40000", 20*24*time.Hour)
	f.credit(t, "40000", 2*24*time.Hour)
	ctx := context.Background()

	first, err := f.svc.CreateRequest(ctx, bankTransfer(f.sellerID, "50000"))
	require.NoError(t, err)
	allocations, err := f.svc.ListAllocations(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, allocations, 2)
	assert.Equal(t, oldest.ID, allocations[0].OrderID)
	assert.Equal(t, middle.ID, allocations[1].OrderID)

	// Only the newest eligible order remains; it covers 36000.
	_, err = f.svc.CreateRequest(ctx, CreateSettlementInput{SellerID: f.sellerID, Amount: dec("50000"), Method: enums.SettlementMethodWallet})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientBalance))

	assert.Equal(t, int64(2), f.count(t, &models.OrderSettlement{}))
	var allocated []uuid.UUID
	require.NoError(t, f.client.DB().Model(&models.OrderSettlement{}).Pluck("order_id", &allocated).Error)
	assert.NotContains(t, allocated, newest.ID)
}

func TestCreateRequestValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]CreateSettlementInput{
		"below minimum":        bankTransfer(f.sellerID, "49999.99"),
		"sub-cent amount":      bankTransfer(f.sellerID, "50000.001"),
		"unknown method":       {SellerID: f.sellerID, Amount: dec("60000"), Method: "cheque"},
		"missing bank details": {SellerID: f.sellerID, Amount: dec("60000"), Method: enums.SettlementMethodBankTransfer},
		"blank bank name": {SellerID: f.sellerID, Amount: dec("60000"), Method: enums.SettlementMethodBankTransfer,
			BankDetails: &BankDetails{AccountNumber: "1", BankName: "  ", AccountHolder: "x"}},
		"missing seller": {Amount: dec("60000"), Method: enums.SettlementMethodWallet},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateRequest(ctx, input)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestCreateRequestUnknownSeller(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateRequest(context.Background(), bankTransfer(uuid.New(), "60000"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRejectReleasesReservation(t *testing.T) {
	f := newFixture(t)
	f.credit(t, "100000", 10*24*time.Hour)
	ctx := context.Background()
	settlement, err := f.svc.CreateRequest(ctx, bankTransfer(f.sellerID, "80000"))
	require.NoError(t, err)

	rejected, err := f.svc.Reject(ctx, settlement.ID, f.adminID, "bank info invalid")
	require.NoError(t, err)

	assert.Equal(t, enums.SettlementStatusCancelled, rejected.Status)
	require.NotNil(t, rejected.FailureReason)
	assert.Equal(t, "bank info invalid", *rejected.FailureReason)
	require.NotNil(t, rejected.CancelledBy)
	assert.Equal(t, f.adminID, *rejected.CancelledBy)

	b := f.balance(t)
	assert.True(t, b.AvailableBalance.Equal(dec("90000")))
	assert.True(t, b.TotalPendingWithdrawal.IsZero())
	// allocations survive the rejection
	assert.Equal(t, int64(1), f.count(t, &models.OrderSettlement{}))
}

// race runs fn from n goroutines at once and returns every result.
func race(n int, fn func() error) []error {
	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = fn()
		}(i)
	}
	close(start)
	wg.Wait()
	return errs
}

func tally(t *testing.T, errs []error) (wins, invalid int) {
	t.Helper()
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case pkgerrors.IsCode(err, pkgerrors.CodeInvalidStateTransition):
			invalid++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	return wins, invalid
}

func TestConcurrentRejectsHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	f.credit(t, "100000", 10*24*time.Hour)
	ctx := context.Background()
	settlement, err := f.svc.CreateRequest(ctx, bankTransfer(f.sellerID, "80000"))
	require.NoError(t, err)

	errs := race(8, func() error {
		_, err := f.svc.Reject(ctx, settlement.ID, f.adminID, "duplicate request")
		return err
	})

	wins, invalid := tally(t, errs)
	assert.Equal(t, 1, wins)
	assert.Equal(t, 7, invalid)

	b := f.balance(t)
	assert.True(t, b.AvailableBalance.Equal(dec("90000")), "available %s", b.AvailableBalance)
	assert.True(t, b.TotalPendingWithdrawal.IsZero())

	var released int64
	require.NoError(t, f.client.DB().Model(&models.BalanceLedgerEntry{}).
		Where("settlement_id = ? AND type = ?", settlement.ID, enums.LedgerEntryReservationReleased).
		Count(&released).Error)
	assert.Equal(t, int64(1), released)
}

func TestRacingCompleteAndRejectSerialize(t *testing.T) {
	f := newFixture(t)
	f.credit(t, "100000", 10*24*time.Hour)
	ctx := context.Background()
	settlement, err := f.svc.CreateRequest(ctx, bankTransfer(f.sellerID, "80000"))
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, settlement.ID, f.adminID)
	require.NoError(t, err)
	_, err = f.svc.Process(ctx, settlement.ID, f.adminID, "TRX-7")
	require.NoError(t, err)

	var mu sync.Mutex
	calls := 0
	errs := race(6, func() error {
		mu.Lock()
		calls++
		reject := calls%2 == 0
		mu.Unlock()
		if reject {
			_, err := f.svc.Reject(ctx, settlement.ID, f.adminID, "too late")
			return err
		}
		_, err := f.svc.Complete(ctx, settlement.ID, f.adminID)
		return err
	})

	wins, invalid := tally(t, errs)
	assert.Equal(t, 1, wins)
	assert.Equal(t, 5, invalid)

	stored, err := f.svc.GetSettlement(ctx, settlement.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SettlementStatusCompleted, stored.Status)

	b := f.balance(t)
	assert.True(t, b.TotalWithdrawn.Equal(dec("80000")))
	assert.True(t, b.TotalPendingWithdrawal.IsZero())
	assert.True(t, b.AvailableBalance.Equal(dec("10000")))
}

func TestFullLifecycleFinalizesWithdrawal(t *testing.T) {
	f := newFixture(t)
	f.credit(t, "100000", 10*24*time.Hour)
	ctx := context.Background()
	settlement, err := f.svc.CreateRequest(ctx, bankTransfer(f.sellerID, "80000"))
	require.NoError(t, err)

	approved, err := f.svc.Approve(ctx, settlement.ID, f.adminID)
	require.NoError(t, err)
	assert.Equal(t, enums.SettlementStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedAt)

	processing, err := f.svc.Process(ctx, settlement.ID, f.adminID, " TRX-42 ")
	require.NoError(t, err)
	require.NotNil(t, processing.TransactionReference)
	assert.Equal(t, "TRX-42", *processing.TransactionReference)

	before := f.balance(t)
	completed, err := f.svc.Complete(ctx, settlement.ID, f.adminID)
	require.NoError(t, err)
	assert.Equal(t, enums.SettlementStatusCompleted, completed.Status)
	assert.True(t, completed.RequestedAmount.Equal(dec("80000")))
	assert.True(t, completed.NetAmount.Equal(dec("72000")))

	after := f.balance(t)
	assert.True(t, before.TotalPendingWithdrawal.Sub(after.TotalPendingWithdrawal).Equal(dec("80000")))
	assert.True(t, after.TotalWithdrawn.Sub(before.TotalWithdrawn).Equal(dec("80000")))

	_, err = f.svc.Approve(ctx, settlement.ID, f.adminID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStateTransition))

	var events []models.OutboxEvent
	require.NoError(t, f.client.DB().Where("aggregate_id = ?", settlement.ID).Order("created_at ASC").Find(&events).Error)
	types := make([]enums.OutboxEventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType)
	}
	assert.ElementsMatch(t, []enums.OutboxEventType{
		enums.EventSettlementRequested,
		enums.EventSettlementApproved,
		enums.EventSettlementProcessing,
		enums.EventSettlementCompleted,
	}, types)
}

func TestTerminalStatesRejectEveryTransition(t *testing.T) {
	f := newFixture(t)
	f.credit(t, "100000", 10*24*time.Hour)
	f.credit(t, "100000", 9*24*time.Hour)
	ctx := context.Background()

	completed, err := f.svc.CreateRequest(ctx, bankTransfer(f.sellerID, "60000"))
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, completed.ID, f.adminID)
	require.NoError(t, err)
	_, err = f.svc.Process(ctx, completed.ID, f.adminID, "ref-1")
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, completed.ID, f.adminID)
	require.NoError(t, err)

	cancelled, err := f.svc.CreateRequest(ctx, bankTransfer(f.sellerID, "60000"))
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, cancelled.ID, f.adminID)
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, cancelled.ID, f.adminID, "duplicate")
	require.NoError(t, err)

	snapshot := f.balance(t)
	for _, id := range []uuid.UUID{completed.ID, cancelled.ID} {
		_, err = f.svc.Approve(ctx, id, f.adminID)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStateTransition))
		_, err = f.svc.Process(ctx, id, f.adminID, "ref-2")
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStateTransition))
		_, err = f.svc.Complete(ctx, id, f.adminID)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStateTransition))
		_, err = f.svc.Reject(ctx, id, f.adminID, "again")
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStateTransition))
	}
	after := f.balance(t)
	assert.True(t, snapshot.AvailableBalance.Equal(after.AvailableBalance))
	assert.Equal(t, snapshot.Version, after.Version)
}

func TestTransitionOrderingIsEnforced(t *testing.T) {
	f := newFixture(t)
	f.credit(t, "100000", 10*24*time.Hour)
	ctx := context.Background()
	settlement, err := f.svc.CreateRequest(ctx, bankTransfer(f.sellerID, "60000"))
	require.NoError(t, err)

	_, err = f.svc.Process(ctx, settlement.ID, f.adminID, "ref")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStateTransition))
	_, err = f.svc.Complete(ctx, settlement.ID, f.adminID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStateTransition))

	_, err = f.svc.Approve(ctx, settlement.ID, f.adminID)
	require.NoError(t, err)
	_, err = f.svc.Process(ctx, settlement.ID, f.adminID, "ref")
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, settlement.ID, f.adminID, "too late")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidStateTransition))
}

func TestTransitionGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, uuid.New(), uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = f.svc.Approve(ctx, uuid.New(), f.adminID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Process(ctx, uuid.New(), f.adminID, "   ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Reject(ctx, uuid.New(), f.adminID, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

type flakyAllocations struct {
	Repository
	failures *int
}

func (r flakyAllocations) WithTx(tx *gorm.DB) Repository {
	return flakyAllocations{Repository: r.Repository.WithTx(tx), failures: r.failures}
}

func (r flakyAllocations) CreateAllocations(ctx context.Context, rows []models.OrderSettlement) error {
	if *r.failures > 0 {
		*r.failures--
		return pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "lost allocation race")
	}
	return r.Repository.CreateAllocations(ctx, rows)
}

func TestCreateRequestRetriesConcurrencyConflicts(t *testing.T) {
	failures := 2
	f := newFixture(t, func(r Repository) Repository {
		return flakyAllocations{Repository: r, failures: &failures}
	})
	f.credit(t, "100000", 10*24*time.Hour)

	settlement, err := f.svc.CreateRequest(context.Background(), bankTransfer(f.sellerID, "60000"))
	require.NoError(t, err)
	assert.Zero(t, failures)

	assert.Equal(t, int64(1), f.count(t, &models.Settlement{}))
	b := f.balance(t)
	assert.True(t, b.TotalPendingWithdrawal.Equal(settlement.RequestedAmount))

	mfs, err := f.registry.Gather()
	require.NoError(t, err)
	var retries float64
	for _, mf := range mfs {
		if mf.GetName() == "shopledger_settlement_conflict_retries_total" {
			for _, m := range mf.GetMetric() {
				retries += m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(2), retries)
}

func TestCreateRequestGivesUpAfterRetryBudget(t *testing.T) {
	failures := 10
	f := newFixture(t, func(r Repository) Repository {
		return flakyAllocations{Repository: r, failures: &failures}
	})
	f.credit(t, "100000", 10*24*time.Hour)

	_, err := f.svc.CreateRequest(context.Background(), bankTransfer(f.sellerID, "60000"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConcurrencyConflict))
	assert.Equal(t, 6, failures)
	assert.Zero(t, f.count(t, &models.Settlement{}))
}

func TestListAndReadSettlements(t *testing.T) {
	f := newFixture(t)
	f.credit(t, "100000", 12*24*time.Hour)
	f.credit(t, "100000", 11*24*time.Hour)
	f.credit(t, "100000", 10*24*time.Hour)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		s, err := f.svc.CreateRequest(ctx, bankTransfer(f.sellerID, "50000"))
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}
	_, err := f.svc.Approve(ctx, ids[0], f.adminID)
	require.NoError(t, err)

	approved := enums.SettlementStatusApproved
	page, err := f.svc.ListSettlements(ctx, ListParams{Status: &approved})
	require.NoError(t, err)
	require.Len(t, page.Settlements, 1)
	assert.Equal(t, ids[0], page.Settlements[0].ID)

	first, err := f.svc.ListSellerSettlements(ctx, f.sellerID, nil, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Settlements, 2)
	require.NotEmpty(t, first.NextCursor)
	second, err := f.svc.ListSellerSettlements(ctx, f.sellerID, nil, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Settlements, 1)
	seen := map[uuid.UUID]bool{}
	for _, s := range append(first.Settlements, second.Settlements...) {
		seen[s.ID] = true
	}
	assert.Len(t, seen, 3)

	got, err := f.svc.GetSellerSettlement(ctx, f.sellerID, ids[1])
	require.NoError(t, err)
	assert.Equal(t, ids[1], got.ID)

	_, err = f.svc.GetSellerSettlement(ctx, uuid.New(), ids[1])
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.ListAllocations(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
