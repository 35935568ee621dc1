package balances

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/shopledger-backend/pkg/db/models"
)

// Repository persists seller balance rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertIfAbsent(ctx context.Context, shopID, sellerID uuid.UUID) error
	FindByShopID(ctx context.Context, shopID uuid.UUID) (*models.SellerBalance, error)
	FindByShopIDForUpdate(ctx context.Context, shopID uuid.UUID) (*models.SellerBalance, error)
	UpdateBuckets(ctx context.Context, next *models.SellerBalance, expectedVersion int64) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to balance persistence.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// InsertIfAbsent creates a zeroed row; a concurrent creator wins silently.
func (r *repository) InsertIfAbsent(ctx context.Context, shopID, sellerID uuid.UUID) error {
	now := time.Now().UTC()
	row := models.SellerBalance{
		ID:        uuid.New(),
		ShopID:    shopID,
		SellerID:  sellerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "shop_id"}},
			DoNothing: true,
		}).
		Create(&row).Error
}

func (r *repository) FindByShopID(ctx context.Context, shopID uuid.UUID) (*models.SellerBalance, error) {
	var balance models.SellerBalance
	if err := r.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		First(&balance).Error; err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *repository) FindByShopIDForUpdate(ctx context.Context, shopID uuid.UUID) (*models.SellerBalance, error) {
	var balance models.SellerBalance
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("shop_id = ?", shopID).
		First(&balance).Error; err != nil {
		return nil, err
	}
	return &balance, nil
}

// UpdateBuckets writes every bucket plus next.Version, but only if the row is
// still at expectedVersion. The affected row count is returned.
func (r *repository) UpdateBuckets(ctx context.Context, next *models.SellerBalance, expectedVersion int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.SellerBalance{}).
		Where("shop_id = ? AND version = ?", next.ShopID, expectedVersion).
		Updates(map[string]any{
			"available_balance":        next.AvailableBalance,
			"pending_balance":          next.PendingBalance,
			"total_earned":             next.TotalEarned,
			"total_withdrawn":          next.TotalWithdrawn,
			"total_pending_withdrawal": next.TotalPendingWithdrawal,
			"version":                  next.Version,
			"updated_at":               next.UpdatedAt,
		})
	return res.RowsAffected, res.Error
}
