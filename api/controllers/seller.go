package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopledger-backend/api/middleware"
	"github.com/angelmondragon/shopledger-backend/api/responses"
	"github.com/angelmondragon/shopledger-backend/api/validators"
	"github.com/angelmondragon/shopledger-backend/internal/balances"
	"github.com/angelmondragon/shopledger-backend/internal/ledger"
	"github.com/angelmondragon/shopledger-backend/internal/settlements"
	"github.com/angelmondragon/shopledger-backend/pkg/db/models"
	"github.com/angelmondragon/shopledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopledger-backend/pkg/errors"
	"github.com/angelmondragon/shopledger-backend/pkg/logger"
	"github.com/angelmondragon/shopledger-backend/pkg/pagination"
)

type sellerBalanceReader interface {
	GetSellerBalance(ctx context.Context, sellerID uuid.UUID) (*balances.BalanceView, error)
}

type sellerShopResolver interface {
	ResolveForSeller(ctx context.Context, sellerID uuid.UUID) (*models.Shop, error)
}

type shopLedgerReader interface {
	ListByShop(ctx context.Context, shopID uuid.UUID, params pagination.Params) (*ledger.EntryPage, error)
}

type sellerSettlementService interface {
	CreateRequest(ctx context.Context, input settlements.CreateSettlementInput) (*models.Settlement, error)
	GetSellerSettlement(ctx context.Context, sellerID, settlementID uuid.UUID) (*models.Settlement, error)
	ListSellerSettlements(ctx context.Context, sellerID uuid.UUID, status *enums.SettlementStatus, page pagination.Params) (*settlements.SettlementPage, error)
	ListAllocations(ctx context.Context, settlementID uuid.UUID) ([]models.OrderSettlement, error)
}

func sellerID(r *http.Request) (uuid.UUID, error) {
	id := middleware.ActorID(r.Context())
	if id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}
	return id, nil
}

// SellerBalance returns the caller's balance buckets.
func SellerBalance(svc sellerBalanceReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seller, err := sellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.GetSellerBalance(r.Context(), seller)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// SellerLedger pages through the caller's balance movements, newest first.
func SellerLedger(shops sellerShopResolver, entries shopLedgerReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seller, err := sellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := parsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shop, err := shops.ResolveForSeller(r.Context(), seller)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := entries.ListByShop(r.Context(), shop.ID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ledgerListResponse{
			Entries:    newLedgerEntryResponses(result.Entries),
			NextCursor: result.NextCursor,
		})
	}
}

func SellerCreateSettlement(svc sellerSettlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seller, err := sellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createSettlementBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount, err := validators.ParseAmount("amount", body.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := settlements.CreateSettlementInput{
			SellerID: seller,
			Amount:   amount,
			Method:   enums.SettlementMethod(body.Method),
		}
		if body.BankDetails != nil {
			input.BankDetails = &settlements.BankDetails{
				AccountNumber: validators.SanitizeString(body.BankDetails.AccountNumber, 64),
				BankName:      validators.SanitizeString(body.BankDetails.BankName, 128),
				AccountHolder: validators.SanitizeString(body.BankDetails.AccountHolder, 128),
			}
		}

		created, err := svc.CreateRequest(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newSettlementResponse(created))
	}
}

func SellerListSettlements(svc sellerSettlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seller, err := sellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := parsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := validators.ParseStatusQuery(r, "status")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListSellerSettlements(r.Context(), seller, status, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settlementListResponse{
			Settlements: newSettlementResponses(result.Settlements),
			NextCursor:  result.NextCursor,
		})
	}
}

// SellerGetSettlement answers NOT_FOUND for settlements of other sellers.
func SellerGetSettlement(svc sellerSettlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seller, err := sellerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "settlementId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		settlement, err := svc.GetSellerSettlement(r.Context(), seller, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		allocations, err := svc.ListAllocations(r.Context(), settlement.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settlementDetailResponse{
			Settlement:  newSettlementResponse(settlement),
			Allocations: newAllocationResponses(allocations),
		})
	}
}
