package shops

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopledger-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/shopledger-backend/pkg/errors"
)

func TestResolveForSeller(t *testing.T) {
	client := dbtest.Open(t)
	owner := uuid.New()
	shop := dbtest.MustCreateShop(t, client.DB(), owner)
	repo := NewRepository(client.DB())
	ctx := context.Background()

	got, err := repo.ResolveForSeller(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, shop.ID, got.ID)

	_, err = repo.ResolveForSeller(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = repo.ResolveForSeller(ctx, uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestResolveByID(t *testing.T) {
	client := dbtest.Open(t)
	shop := dbtest.MustCreateShop(t, client.DB(), uuid.New())
	repo := NewRepository(client.DB())

	got, err := repo.Resolve(context.Background(), shop.ID)
	require.NoError(t, err)
	assert.Equal(t, shop.OwnerID, got.OwnerID)

	_, err = repo.Resolve(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
