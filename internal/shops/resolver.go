package shops

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopledger-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopledger-backend/pkg/errors"
)

// ResolveForSeller maps a seller to their shop, translating a missing row to NOT_FOUND.
func (r *Repository) ResolveForSeller(ctx context.Context, sellerID uuid.UUID) (*models.Shop, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	shop, err := r.FindByOwner(ctx, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller has no shop")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller shop")
	}
	return shop, nil
}

// Resolve loads a shop by id, translating a missing row to NOT_FOUND.
func (r *Repository) Resolve(ctx context.Context, shopID uuid.UUID) (*models.Shop, error) {
	shop, err := r.FindByID(ctx, shopID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
	}
	return shop, nil
}
