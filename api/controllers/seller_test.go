package controllers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopledger-backend/internal/balances"
	"github.com/angelmondragon/shopledger-backend/internal/ledger"
	"github.com/angelmondragon/shopledger-backend/internal/settlements"
	"github.com/angelmondragon/shopledger-backend/pkg/db/models"
	"github.com/angelmondragon/shopledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopledger-backend/pkg/errors"
	"github.com/angelmondragon/shopledger-backend/pkg/pagination"
)

type stubBalances struct {
	view *balances.BalanceView
	err  error
	got  uuid.UUID
}

func (s *stubBalances) GetSellerBalance(_ context.Context, sellerID uuid.UUID) (*balances.BalanceView, error) {
	s.got = sellerID
	return s.view, s.err
}

type stubShops struct {
	shop *models.Shop
	err  error
}

func (s stubShops) ResolveForSeller(context.Context, uuid.UUID) (*models.Shop, error) {
	return s.shop, s.err
}

type stubLedger struct {
	page   *ledger.EntryPage
	params pagination.Params
	shopID uuid.UUID
}

func (s *stubLedger) ListByShop(_ context.Context, shopID uuid.UUID, params pagination.Params) (*ledger.EntryPage, error) {
	s.shopID = shopID
	s.params = params
	return s.page, nil
}

type stubSellerSettlements struct {
	createFn  func(input settlements.CreateSettlementInput) (*models.Settlement, error)
	getFn     func(sellerID, id uuid.UUID) (*models.Settlement, error)
	listFn    func(sellerID uuid.UUID, status *enums.SettlementStatus, page pagination.Params) (*settlements.SettlementPage, error)
	allocated []models.OrderSettlement
}

func (s stubSellerSettlements) CreateRequest(_ context.Context, input settlements.CreateSettlementInput) (*models.Settlement, error) {
	return s.createFn(input)
}

func (s stubSellerSettlements) GetSellerSettlement(_ context.Context, sellerID, id uuid.UUID) (*models.Settlement, error) {
	return s.getFn(sellerID, id)
}

func (s stubSellerSettlements) ListSellerSettlements(_ context.Context, sellerID uuid.UUID, status *enums.SettlementStatus, page pagination.Params) (*settlements.SettlementPage, error) {
	return s.listFn(sellerID, status, page)
}

func (s stubSellerSettlements) ListAllocations(context.Context, uuid.UUID) ([]models.OrderSettlement, error) {
	return s.allocated, nil
}

func sampleSettlement(seller uuid.UUID) *models.Settlement {
	account := "0123456789"
	bank := "First Bank"
	return &models.Settlement{
		ID:                uuid.New(),
		SellerID:          seller,
		ShopID:            uuid.New(),
		RequestedAmount:   decimal.RequireFromString("60000"),
		PlatformFee:       decimal.RequireFromString("6000"),
		NetAmount:         decimal.RequireFromString("54000"),
		CommissionPercent: decimal.NewFromInt(10),
		Status:            enums.SettlementStatusPending,
		Method:            enums.SettlementMethodBankTransfer,
		BankAccountNumber: &account,
		BankName:          &bank,
		RequestedAt:       time.Now().UTC(),
	}
}

func TestSellerBalanceUsesCaller(t *testing.T) {
	seller := uuid.New()
	svc := &stubBalances{view: &balances.BalanceView{
		SellerID:         seller,
		AvailableBalance: decimal.RequireFromString("125.50"),
	}}

	resp := serve(t, http.MethodGet, "/balance", "/balance", "", seller, "seller", SellerBalance(svc, nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, seller, svc.got)
	var view balances.BalanceView
	decodeData(t, resp, &view)
	assert.True(t, view.AvailableBalance.Equal(decimal.RequireFromString("125.50")))
}

func TestSellerBalanceRequiresIdentity(t *testing.T) {
	resp := serve(t, http.MethodGet, "/balance", "/balance", "", uuid.Nil, "", SellerBalance(&stubBalances{}, nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestSellerLedgerPassesPageAndShop(t *testing.T) {
	seller := uuid.New()
	shop := &models.Shop{ID: uuid.New(), OwnerID: seller}
	entries := &stubLedger{page: &ledger.EntryPage{
		Entries: []models.BalanceLedgerEntry{{
			ID:     uuid.New(),
			ShopID: shop.ID,
			Type:   enums.LedgerEntryEarningAvailable,
			Amount: decimal.RequireFromString("90"),
		}},
		NextCursor: "next",
	}}

	resp := serve(t, http.MethodGet, "/ledger", "/ledger?limit=5&cursor=abc", "", seller, "seller",
		SellerLedger(stubShops{shop: shop}, entries, nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, shop.ID, entries.shopID)
	assert.Equal(t, pagination.Params{Limit: 5, Cursor: "abc"}, entries.params)

	var body ledgerListResponse
	decodeData(t, resp, &body)
	require.Len(t, body.Entries, 1)
	assert.Equal(t, "90.00", body.Entries[0].Amount)
	assert.Equal(t, "next", body.NextCursor)
}

func TestSellerLedgerRejectsOversizedLimit(t *testing.T) {
	seller := uuid.New()
	resp := serve(t, http.MethodGet, "/ledger", "/ledger?limit=500", "", seller, "seller",
		SellerLedger(stubShops{shop: &models.Shop{ID: uuid.New()}}, &stubLedger{}, nil))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSellerCreateSettlement(t *testing.T) {
	seller := uuid.New()
	var captured settlements.CreateSettlementInput
	svc := stubSellerSettlements{createFn: func(input settlements.CreateSettlementInput) (*models.Settlement, error) {
		captured = input
		return sampleSettlement(seller), nil
	}}

	body := `{"amount":"60000","method":"bank_transfer","bank_details":{"account_number":"0123456789","bank_name":"First Bank","account_holder":"Ada"}}`
	resp := serve(t, http.MethodPost, "/settlements", "/settlements", body, seller, "seller", SellerCreateSettlement(svc, nil))

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, seller, captured.SellerID)
	assert.True(t, captured.Amount.Equal(decimal.NewFromInt(60000)))
	assert.Equal(t, enums.SettlementMethodBankTransfer, captured.Method)
	require.NotNil(t, captured.BankDetails)
	assert.Equal(t, "Ada", captured.BankDetails.AccountHolder)

	var created settlementResponse
	decodeData(t, resp, &created)
	assert.Equal(t, "60000.00", created.RequestedAmount)
	assert.Equal(t, "54000.00", created.NetAmount)
	require.NotNil(t, created.BankAccountLast4)
	assert.Equal(t, "6789", *created.BankAccountLast4)
}

func TestSellerCreateSettlementValidation(t *testing.T) {
	seller := uuid.New()
	svc := stubSellerSettlements{createFn: func(settlements.CreateSettlementInput) (*models.Settlement, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}

	cases := map[string]string{
		"missing amount": `{"method":"wallet"}`,
		"unknown method": `{"amount":"100","method":"cheque"}`,
		"non decimal":    `{"amount":"lots","method":"wallet"}`,
		"unknown field":  `{"amount":"100","method":"wallet","extra":true}`,
		"malformed json": `{"amount":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp := serve(t, http.MethodPost, "/settlements", "/settlements", body, seller, "seller", SellerCreateSettlement(svc, nil))
			require.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Equal(t, string(pkgerrors.CodeValidation), decodeError(t, resp).Error.Code)
		})
	}
}

func TestSellerCreateSettlementInsufficientBalance(t *testing.T) {
	svc := stubSellerSettlements{createFn: func(settlements.CreateSettlementInput) (*models.Settlement, error) {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient available balance").
			WithDetails(map[string]any{"available": "100.00"})
	}}

	resp := serve(t, http.MethodPost, "/settlements", "/settlements", `{"amount":"60000","method":"wallet"}`, uuid.New(), "seller", SellerCreateSettlement(svc, nil))

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	envelope := decodeError(t, resp)
	assert.Equal(t, string(pkgerrors.CodeInsufficientBalance), envelope.Error.Code)
	assert.Equal(t, "100.00", envelope.Error.Details["available"])
}

func TestSellerListSettlementsFilters(t *testing.T) {
	seller := uuid.New()
	svc := stubSellerSettlements{listFn: func(got uuid.UUID, status *enums.SettlementStatus, page pagination.Params) (*settlements.SettlementPage, error) {
		assert.Equal(t, seller, got)
		require.NotNil(t, status)
		assert.Equal(t, enums.SettlementStatusCompleted, *status)
		assert.Equal(t, pagination.DefaultLimit, page.Limit)
		return &settlements.SettlementPage{Settlements: []models.Settlement{*sampleSettlement(seller)}}, nil
	}}

	resp := serve(t, http.MethodGet, "/settlements", "/settlements?status=COMPLETED", "", seller, "seller", SellerListSettlements(svc, nil))

	require.Equal(t, http.StatusOK, resp.Code)
	var body settlementListResponse
	decodeData(t, resp, &body)
	assert.Len(t, body.Settlements, 1)
}

func TestSellerListSettlementsUnknownStatus(t *testing.T) {
	resp := serve(t, http.MethodGet, "/settlements", "/settlements?status=paid", "", uuid.New(), "seller", SellerListSettlements(stubSellerSettlements{}, nil))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSellerGetSettlementIncludesAllocations(t *testing.T) {
	seller := uuid.New()
	settlement := sampleSettlement(seller)
	orderID := uuid.New()
	svc := stubSellerSettlements{
		getFn: func(gotSeller, id uuid.UUID) (*models.Settlement, error) {
			assert.Equal(t, seller, gotSeller)
			assert.Equal(t, settlement.ID, id)
			return settlement, nil
		},
		allocated: []models.OrderSettlement{{
			SettlementID:     settlement.ID,
			OrderID:          orderID,
			OrderAmount:      decimal.NewFromInt(100),
			Commission:       decimal.NewFromInt(10),
			SettlementAmount: decimal.NewFromInt(90),
		}},
	}

	resp := serve(t, http.MethodGet, "/settlements/{settlementId}", "/settlements/"+settlement.ID.String(), "", seller, "seller", SellerGetSettlement(svc, nil))

	require.Equal(t, http.StatusOK, resp.Code)
	var body settlementDetailResponse
	decodeData(t, resp, &body)
	assert.Equal(t, settlement.ID, body.Settlement.ID)
	require.Len(t, body.Allocations, 1)
	assert.Equal(t, orderID, body.Allocations[0].OrderID)
	assert.Equal(t, "90.00", body.Allocations[0].SettlementAmount)
}

func TestSellerGetSettlementOtherSeller(t *testing.T) {
	svc := stubSellerSettlements{getFn: func(uuid.UUID, uuid.UUID) (*models.Settlement, error) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "settlement not found")
	}}
	resp := serve(t, http.MethodGet, "/settlements/{settlementId}", "/settlements/"+uuid.NewString(), "", uuid.New(), "seller", SellerGetSettlement(svc, nil))
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSellerGetSettlementBadID(t *testing.T) {
	resp := serve(t, http.MethodGet, "/settlements/{settlementId}", "/settlements/not-a-uuid", "", uuid.New(), "seller", SellerGetSettlement(stubSellerSettlements{}, nil))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}
