package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopledger-backend/pkg/db/models"
)

// Repository manages persistence for balance ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.BalanceLedgerEntry) error
	ListByShop(ctx context.Context, filter ListFilter) ([]models.BalanceLedgerEntry, error)
	ListBySettlement(ctx context.Context, settlementID uuid.UUID) ([]models.BalanceLedgerEntry, error)
}

// ListFilter pages newest first. Before* mark the last row of the previous page.
type ListFilter struct {
	ShopID          uuid.UUID
	Limit           int
	BeforeCreatedAt *time.Time
	BeforeID        *uuid.UUID
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.BalanceLedgerEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByShop(ctx context.Context, filter ListFilter) ([]models.BalanceLedgerEntry, error) {
	query := r.db.WithContext(ctx).
		Where("shop_id = ?", filter.ShopID)
	if filter.BeforeCreatedAt != nil && filter.BeforeID != nil {
		query = query.Where("((created_at < ?) OR (created_at = ? AND id < ?))",
			filter.BeforeCreatedAt.UTC(), filter.BeforeCreatedAt.UTC(), *filter.BeforeID)
	}

	var entries []models.BalanceLedgerEntry
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(filter.Limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListBySettlement(ctx context.Context, settlementID uuid.UUID) ([]models.BalanceLedgerEntry, error) {
	var entries []models.BalanceLedgerEntry
	if err := r.db.WithContext(ctx).
		Where("settlement_id = ?", settlementID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
