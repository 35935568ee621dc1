package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopledger-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopledger-backend/pkg/errors"
	"github.com/angelmondragon/shopledger-backend/pkg/pagination"
)

// Service exposes read access to the balance audit trail.
type Service interface {
	ListByShop(ctx context.Context, shopID uuid.UUID, params pagination.Params) (*EntryPage, error)
	ListBySettlement(ctx context.Context, settlementID uuid.UUID) ([]models.BalanceLedgerEntry, error)
}

// EntryPage is one page of ledger entries, newest first.
type EntryPage struct {
	Entries    []models.BalanceLedgerEntry `json:"entries"`
	NextCursor string                      `json:"next_cursor,omitempty"`
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListByShop(ctx context.Context, shopID uuid.UUID, params pagination.Params) (*EntryPage, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	filter := ListFilter{ShopID: shopID, Limit: limit + 1}
	if cursor != nil {
		filter.BeforeCreatedAt = &cursor.CreatedAt
		filter.BeforeID = &cursor.ID
	}

	entries, err := s.repo.ListByShop(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}

	page, next := pagination.Split(entries, limit, func(e models.BalanceLedgerEntry) pagination.Cursor {
		return pagination.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
	})
	return &EntryPage{Entries: page, NextCursor: next}, nil
}

func (s *service) ListBySettlement(ctx context.Context, settlementID uuid.UUID) ([]models.BalanceLedgerEntry, error) {
	if settlementID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settlement id is required")
	}
	entries, err := s.repo.ListBySettlement(ctx, settlementID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list settlement ledger entries")
	}
	return entries, nil
}
