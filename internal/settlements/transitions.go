package settlements

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopledger-backend/pkg/db"
	"github.com/angelmondragon/shopledger-backend/pkg/db/models"
	"github.com/angelmondragon/shopledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopledger-backend/pkg/errors"
	"github.com/angelmondragon/shopledger-backend/pkg/outbox"
)

type transition struct {
	name    string
	to      enums.SettlementStatus
	event   enums.OutboxEventType
	updates func(adminID uuid.UUID, now time.Time) map[string]any
	effect  func(ctx context.Context, tx *gorm.DB, settlement *models.Settlement) error
}

func (s *service) Approve(ctx context.Context, settlementID, adminID uuid.UUID) (*models.Settlement, error) {
	return s.transition(ctx, settlementID, adminID, transition{
		name:  "approve",
		to:    enums.SettlementStatusApproved,
		event: enums.EventSettlementApproved,
		updates: func(adminID uuid.UUID, now time.Time) map[string]any {
			return map[string]any{"approved_at": now, "approved_by": adminID}
		},
	})
}

func (s *service) Process(ctx context.Context, settlementID, adminID uuid.UUID, transactionReference string) (*models.Settlement, error) {
	ref := strings.TrimSpace(transactionReference)
	if ref == "" {
		err := pkgerrors.New(pkgerrors.CodeValidation, "transaction reference is required")
		s.metrics.ObserveTransition("process", err)
		return nil, err
	}
	return s.transition(ctx, settlementID, adminID, transition{
		name:  "process",
		to:    enums.SettlementStatusProcessing,
		event: enums.EventSettlementProcessing,
		updates: func(adminID uuid.UUID, now time.Time) map[string]any {
			return map[string]any{"processed_at": now, "processed_by": adminID, "transaction_reference": ref}
		},
	})
}

func (s *service) Complete(ctx context.Context, settlementID, adminID uuid.UUID) (*models.Settlement, error) {
	return s.transition(ctx, settlementID, adminID, transition{
		name:  "complete",
		to:    enums.SettlementStatusCompleted,
		event: enums.EventSettlementCompleted,
		updates: func(adminID uuid.UUID, now time.Time) map[string]any {
			return map[string]any{"completed_at": now, "completed_by": adminID}
		},
		effect: func(ctx context.Context, tx *gorm.DB, settlement *models.Settlement) error {
			_, err := s.ledger.FinalizeWithdrawal(ctx, tx, settlement.ShopID, settlement.ID, settlement.RequestedAmount)
			return err
		},
	})
}

// Reject cancels a pending or approved settlement and hands the reserved
// amount back to the available bucket. Allocated orders stay consumed.
func (s *service) Reject(ctx context.Context, settlementID, adminID uuid.UUID, reason string) (*models.Settlement, error) {
	why := strings.TrimSpace(reason)
	if why == "" {
		err := pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required")
		s.metrics.ObserveTransition("reject", err)
		return nil, err
	}
	return s.transition(ctx, settlementID, adminID, transition{
		name:  "reject",
		to:    enums.SettlementStatusCancelled,
		event: enums.EventSettlementRejected,
		updates: func(adminID uuid.UUID, now time.Time) map[string]any {
			return map[string]any{"cancelled_at": now, "cancelled_by": adminID, "failure_reason": why}
		},
		effect: func(ctx context.Context, tx *gorm.DB, settlement *models.Settlement) error {
			_, err := s.ledger.ReleaseReservation(ctx, tx, settlement.ShopID, settlement.ID, settlement.RequestedAmount)
			return err
		},
	})
}

func (s *service) transition(ctx context.Context, settlementID, adminID uuid.UUID, t transition) (*models.Settlement, error) {
	updated, err := s.runTransition(ctx, settlementID, adminID, t)
	s.metrics.ObserveTransition(t.name, err)
	return updated, err
}

func (s *service) runTransition(ctx context.Context, settlementID, adminID uuid.UUID, t transition) (*models.Settlement, error) {
	if adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity is required")
	}
	if settlementID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settlement id is required")
	}

	ctx = s.logg.WithSettlementID(ctx, settlementID.String())
	ctx = s.logg.WithFields(ctx, map[string]any{"admin_id": adminID.String(), "transition": t.name})

	var updated *models.Settlement
	err := db.Retry(ctx, s.retryPolicy(ctx, t.name), func(ctx context.Context) error {
		return s.db.WithTx(ctx, func(tx *gorm.DB) error {
			settlement, err := s.applyTransition(ctx, tx, settlementID, adminID, t)
			if err != nil {
				return err
			}
			updated = settlement
			return nil
		})
	})
	if err != nil {
		s.logFailure(ctx, "settlement.transition.failed", err)
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"shop_id": updated.ShopID.String(),
		"amount":  updated.RequestedAmount.StringFixed(2),
		"status":  string(updated.Status),
	}), "settlement.transitioned")
	return updated, nil
}

func (s *service) applyTransition(ctx context.Context, tx *gorm.DB, settlementID, adminID uuid.UUID, t transition) (*models.Settlement, error) {
	repo := s.repo.WithTx(tx)
	current, err := repo.FindByIDForUpdate(ctx, settlementID)
	if err != nil {
		return nil, notFoundOr(err, "lock settlement")
	}
	if !current.Status.CanTransitionTo(t.to) {
		return nil, invalidTransition(current.Status, t.to)
	}

	now := s.now().UTC()
	updates := t.updates(adminID, now)
	updates["status"] = t.to
	updates["updated_at"] = now

	rows, err := repo.Transition(ctx, settlementID, current.Status, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update settlement status")
	}
	if rows == 0 {
		return nil, invalidTransition(current.Status, t.to)
	}

	updated, err := repo.FindByID(ctx, settlementID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload settlement")
	}

	if t.effect != nil {
		if err := t.effect(ctx, tx, updated); err != nil {
			return nil, err
		}
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     t.event,
		AggregateType: enums.AggregateSettlement,
		AggregateID:   updated.ID,
		Actor:         &outbox.ActorRef{UserID: adminID, Role: string(enums.MemberRoleAdmin)},
		Data:          settlementEvent(updated, &adminID),
		OccurredAt:    now,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue settlement event")
	}
	return updated, nil
}

func invalidTransition(from, to enums.SettlementStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidStateTransition, "settlement cannot move to "+string(to)+" from "+string(from)).
		WithDetails(map[string]any{"from": string(from), "to": string(to)})
}
