package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopledger-backend/api/middleware"
	"github.com/angelmondragon/shopledger-backend/api/responses"
	"github.com/angelmondragon/shopledger-backend/api/validators"
	"github.com/angelmondragon/shopledger-backend/internal/settlements"
	"github.com/angelmondragon/shopledger-backend/pkg/db/models"
	"github.com/angelmondragon/shopledger-backend/pkg/logger"
)

type adminSettlementReader interface {
	GetSettlement(ctx context.Context, settlementID uuid.UUID) (*models.Settlement, error)
	ListSettlements(ctx context.Context, params settlements.ListParams) (*settlements.SettlementPage, error)
	ListAllocations(ctx context.Context, settlementID uuid.UUID) ([]models.OrderSettlement, error)
}

type settlementWorkflow interface {
	Approve(ctx context.Context, settlementID, adminID uuid.UUID) (*models.Settlement, error)
	Process(ctx context.Context, settlementID, adminID uuid.UUID, transactionReference string) (*models.Settlement, error)
	Complete(ctx context.Context, settlementID, adminID uuid.UUID) (*models.Settlement, error)
	Reject(ctx context.Context, settlementID, adminID uuid.UUID, reason string) (*models.Settlement, error)
}

// AdminListSettlements lists settlements across shops; shop_id and status narrow it.
func AdminListSettlements(svc adminSettlementReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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
		params := settlements.ListParams{Status: status, Page: page}
		if raw := r.URL.Query().Get("shop_id"); raw != "" {
			shopID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, invalidField("shop_id", err))
				return
			}
			params.ShopID = &shopID
		}

		result, err := svc.ListSettlements(r.Context(), params)
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

func AdminGetSettlement(svc adminSettlementReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "settlementId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		settlement, err := svc.GetSettlement(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		allocations, err := svc.ListAllocations(r.Context(), id)
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

func AdminApproveSettlement(svc settlementWorkflow, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(logg, func(r *http.Request, id, admin uuid.UUID) (*models.Settlement, error) {
		return svc.Approve(r.Context(), id, admin)
	})
}

func AdminProcessSettlement(svc settlementWorkflow, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(logg, func(r *http.Request, id, admin uuid.UUID) (*models.Settlement, error) {
		var body processSettlementBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Process(r.Context(), id, admin, validators.SanitizeString(body.TransactionReference, 255))
	})
}

func AdminCompleteSettlement(svc settlementWorkflow, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(logg, func(r *http.Request, id, admin uuid.UUID) (*models.Settlement, error) {
		return svc.Complete(r.Context(), id, admin)
	})
}

func AdminRejectSettlement(svc settlementWorkflow, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(logg, func(r *http.Request, id, admin uuid.UUID) (*models.Settlement, error) {
		var body rejectSettlementBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Reject(r.Context(), id, admin, validators.SanitizeString(body.Reason, 1000))
	})
}

// transitionHandler passes the acting admin through; the workflow rejects a
// missing identity as UNAUTHORIZED.
func transitionHandler(logg *logger.Logger, apply func(r *http.Request, id, admin uuid.UUID) (*models.Settlement, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "settlementId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := apply(r, id, middleware.ActorID(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSettlementResponse(updated))
	}
}
