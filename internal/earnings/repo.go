package earnings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/shopledger-backend/pkg/db/models"
)

// Repository persists order earnings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, earning *models.OrderEarning) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.OrderEarning, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.OrderEarning, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.OrderEarning, error)
	MarkReleased(ctx context.Context, id uuid.UUID, at time.Time) (int64, error)
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

func (r *repository) Create(ctx context.Context, earning *models.OrderEarning) error {
	if earning.ID == uuid.Nil {
		earning.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(earning).Error
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.OrderEarning, error) {
	var earning models.OrderEarning
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&earning).Error; err != nil {
		return nil, err
	}
	return &earning, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.OrderEarning, error) {
	var earning models.OrderEarning
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&earning).Error; err != nil {
		return nil, err
	}
	return &earning, nil
}

// ListDue returns unreleased earnings whose hold ended at or before now,
// oldest hold first.
func (r *repository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.OrderEarning, error) {
	var rows []models.OrderEarning
	if err := r.db.WithContext(ctx).
		Where("released_at IS NULL AND hold_until <= ?", now.UTC()).
		Order("hold_until ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkReleased stamps released_at unless another worker already did.
func (r *repository) MarkReleased(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderEarning{}).
		Where("id = ? AND released_at IS NULL", id).
		Update("released_at", at.UTC())
	return res.RowsAffected, res.Error
}
