package settlements

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/shopledger-backend/pkg/db/models"
	"github.com/angelmondragon/shopledger-backend/pkg/enums"
)

// Repository persists settlements and their order allocations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, settlement *models.Settlement) error
	CreateAllocations(ctx context.Context, rows []models.OrderSettlement) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Settlement, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Settlement, error)
	Transition(ctx context.Context, id uuid.UUID, from enums.SettlementStatus, updates map[string]any) (int64, error)
	List(ctx context.Context, filter ListFilter) ([]models.Settlement, error)
	ListAllocations(ctx context.Context, settlementID uuid.UUID) ([]models.OrderSettlement, error)
}

// ListFilter narrows settlement listings. Zero values mean "any".
// Before* mark the last row of the previous page.
type ListFilter struct {
	ShopID            *uuid.UUID
	Status            *enums.SettlementStatus
	Limit             int
	BeforeRequestedAt *time.Time
	BeforeID          *uuid.UUID
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, settlement *models.Settlement) error {
	if settlement.ID == uuid.Nil {
		settlement.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(settlement).Error
}

func (r *repository) CreateAllocations(ctx context.Context, rows []models.OrderSettlement) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		if rows[i].ID == uuid.Nil {
			rows[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	var settlement models.Settlement
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&settlement).Error; err != nil {
		return nil, err
	}
	return &settlement, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Settlement, error) {
	var settlement models.Settlement
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&settlement).Error; err != nil {
		return nil, err
	}
	return &settlement, nil
}

// Transition applies updates only while the row is still in status from.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, from enums.SettlementStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Settlement{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Settlement, error) {
	query := r.db.WithContext(ctx).Model(&models.Settlement{})
	if filter.ShopID != nil {
		query = query.Where("shop_id = ?", *filter.ShopID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.BeforeRequestedAt != nil && filter.BeforeID != nil {
		at := filter.BeforeRequestedAt.UTC()
		query = query.Where("((requested_at < ?) OR (requested_at = ? AND id < ?))", at, at, *filter.BeforeID)
	}

	var rows []models.Settlement
	if err := query.
		Order("requested_at DESC").
		Order("id DESC").
		Limit(filter.Limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListAllocations(ctx context.Context, settlementID uuid.UUID) ([]models.OrderSettlement, error) {
	var rows []models.OrderSettlement
	if err := r.db.WithContext(ctx).
		Where("settlement_id = ?", settlementID).
		Order("order_delivered_at ASC").
		Order("order_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
