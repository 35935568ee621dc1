package shops

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopledger-backend/internal/repo"
	"github.com/angelmondragon/shopledger-backend/pkg/db/models"
)

// Repository reads shops owned by the catalog system.
type Repository struct {
	base repo.Base
}

// NewRepository binds a GORM DB to shop lookups.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// WithTx returns a repository running on tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.WithTx(tx)}
}

// FindByID loads a shop by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	if err := r.base.First(ctx, &shop, "id", id); err != nil {
		return nil, err
	}
	return &shop, nil
}

// FindByOwner returns the single shop a seller owns.
func (r *Repository) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	if err := r.base.First(ctx, &shop, "owner_id", ownerID); err != nil {
		return nil, err
	}
	return &shop, nil
}
