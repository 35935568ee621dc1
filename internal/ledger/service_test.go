package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopledger-backend/pkg/db/dbtest"
	"github.com/angelmondragon/shopledger-backend/pkg/db/models"
	"github.com/angelmondragon/shopledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopledger-backend/pkg/errors"
	"github.com/angelmondragon/shopledger-backend/pkg/pagination"
)

type fakeRepository struct {
	listFn func(ctx context.Context, filter ListFilter) ([]models.BalanceLedgerEntry, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, entry *models.BalanceLedgerEntry) error {
	return nil
}

func (f *fakeRepository) ListByShop(ctx context.Context, filter ListFilter) ([]models.BalanceLedgerEntry, error) {
	if f.listFn != nil {
		return f.listFn(ctx, filter)
	}
	return nil, nil
}

func (f *fakeRepository) ListBySettlement(ctx context.Context, settlementID uuid.UUID) ([]models.BalanceLedgerEntry, error) {
	return nil, nil
}

func TestListByShopPagesNewestFirst(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc, err := NewService(repo)
	require.NoError(t, err)

	ctx := context.Background()
	shopID := uuid.New()
	otherShop := uuid.New()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		entry := &models.BalanceLedgerEntry{
			ShopID:      shopID,
			Type:        enums.LedgerEntryEarningPending,
			Amount:      decimal.NewFromInt(int64(100 * (i + 1))),
			TotalEarned: decimal.NewFromInt(int64(100 * (i + 1))),
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, entry))
		ids = append(ids, entry.ID)
	}
	require.NoError(t, repo.Create(ctx, &models.BalanceLedgerEntry{ShopID: otherShop, Type: enums.LedgerEntryEarningAvailable, Amount: decimal.NewFromInt(1)}))

	first, err := svc.ListByShop(ctx, shopID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Entries, 2)
	assert.Equal(t, ids[4], first.Entries[0].ID)
	assert.Equal(t, ids[3], first.Entries[1].ID)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.ListByShop(ctx, shopID, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Entries, 2)
	assert.Equal(t, ids[2], second.Entries[0].ID)
	assert.Equal(t, ids[1], second.Entries[1].ID)

	last, err := svc.ListByShop(ctx, shopID, pagination.Params{Limit: 2, Cursor: second.NextCursor})
	require.NoError(t, err)
	require.Len(t, last.Entries, 1)
	assert.Equal(t, ids[0], last.Entries[0].ID)
	assert.Empty(t, last.NextCursor)
}

func TestListByShopValidation(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	require.NoError(t, err)

	_, err = svc.ListByShop(context.Background(), uuid.Nil, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.ListByShop(context.Background(), uuid.New(), pagination.Params{Cursor: "not-a-cursor"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListByShopWrapsRepositoryErrors(t *testing.T) {
	repo := &fakeRepository{listFn: func(ctx context.Context, filter ListFilter) ([]models.BalanceLedgerEntry, error) {
		assert.Equal(t, pagination.DefaultLimit+1, filter.Limit)
		return nil, errors.New("connection reset")
	}}
	svc, err := NewService(repo)
	require.NoError(t, err)

	_, err = svc.ListByShop(context.Background(), uuid.New(), pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil)
	assert.Error(t, err)
}
