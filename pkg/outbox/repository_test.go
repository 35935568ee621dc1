package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopledger-backend/pkg/db/dbtest"
	"github.com/angelmondragon/shopledger-backend/pkg/db/models"
	"github.com/angelmondragon/shopledger-backend/pkg/enums"
	"github.com/angelmondragon/shopledger-backend/pkg/logger"
	"github.com/angelmondragon/shopledger-backend/pkg/outbox"
)

func TestEmitWritesEnvelopeInsideTx(t *testing.T) {
	client := dbtest.Open(t)
	repo := outbox.NewRepository(client.DB())
	svc := outbox.NewService(repo, logger.Nop())
	ctx := context.Background()
	aggregateID := uuid.New()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSettlementRequested,
			AggregateType: enums.AggregateSettlement,
			AggregateID:   aggregateID,
			Data:          map[string]string{"status": "pending"},
		})
	}))

	var rows []models.OutboxEvent
	require.NoError(t, client.DB().Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, aggregateID, rows[0].AggregateID)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	assert.JSONEq(t, `{"status":"pending"}`, string(envelope.Data))
}

func TestEmitRolledBackWithTx(t *testing.T) {
	client := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(client.DB()), logger.Nop())
	ctx := context.Background()

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := svc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSettlementApproved,
			AggregateType: enums.AggregateSettlement,
			AggregateID:   uuid.New(),
			Data:          map[string]string{},
		}); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitIfNotExistsSkipsDuplicates(t *testing.T) {
	client := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(client.DB()), logger.Nop())
	ctx := context.Background()
	event := outbox.DomainEvent{
		EventType:     enums.EventEarningRecorded,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Data:          map[string]string{},
	}

	for i := 0; i < 2; i++ {
		require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(ctx, tx, event)
		}))
	}

	var count int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestEmitRequiresTx(t *testing.T) {
	svc := outbox.NewService(outbox.NewRepository(nil), logger.Nop())
	err := svc.Emit(context.Background(), nil, outbox.DomainEvent{AggregateID: uuid.New()})
	require.Error(t, err)
}

func TestPublishLifecycle(t *testing.T) {
	client := dbtest.Open(t)
	repo := outbox.NewRepository(client.DB())
	ctx := context.Background()

	first := insertEvent(t, client.DB(), repo, time.Now().UTC().Add(-2*time.Minute))
	second := insertEvent(t, client.DB(), repo, time.Now().UTC().Add(-time.Minute))

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, first, rows[0].ID)

		require.NoError(t, repo.MarkPublishedTx(tx, first))
		return repo.MarkTerminalTx(tx, second, errors.New("bad payload"), 3)
	}))

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		require.NoError(t, err)
		assert.Empty(t, rows)
		return nil
	}))

	var terminal models.OutboxEvent
	require.NoError(t, client.DB().First(&terminal, "id = ?", second).Error)
	assert.Equal(t, 3, terminal.AttemptCount)
	require.NotNil(t, terminal.LastError)
	assert.Equal(t, "bad payload", *terminal.LastError)
}

func TestMarkFailedIncrementsAttempts(t *testing.T) {
	client := dbtest.Open(t)
	repo := outbox.NewRepository(client.DB())
	id := insertEvent(t, client.DB(), repo, time.Now().UTC())

	for i := 0; i < 2; i++ {
		require.NoError(t, repo.MarkFailedTx(client.DB(), id, errors.New("unavailable")))
	}

	var row models.OutboxEvent
	require.NoError(t, client.DB().First(&row, "id = ?", id).Error)
	assert.Equal(t, 2, row.AttemptCount)
	assert.Nil(t, row.PublishedAt)
}

func TestDeletePublishedBefore(t *testing.T) {
	client := dbtest.Open(t)
	repo := outbox.NewRepository(client.DB())
	ctx := context.Background()
	old := time.Now().UTC().Add(-40 * 24 * time.Hour)

	published := insertEvent(t, client.DB(), repo, old)
	pendingOld := insertEvent(t, client.DB(), repo, old)
	terminalOld := insertEvent(t, client.DB(), repo, old)
	publishedRecent := insertEvent(t, client.DB(), repo, time.Now().UTC())
	require.NoError(t, repo.MarkPublishedTx(client.DB(), published))
	require.NoError(t, repo.MarkPublishedTx(client.DB(), publishedRecent))
	require.NoError(t, repo.MarkTerminalTx(client.DB(), terminalOld, errors.New("dead"), 10))

	cutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)
	deleted, err := repo.DeletePublishedBefore(ctx, client.DB(), cutoff, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining []models.OutboxEvent
	require.NoError(t, client.DB().Order("created_at ASC").Find(&remaining).Error)
	ids := []uuid.UUID{}
	for _, row := range remaining {
		ids = append(ids, row.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{pendingOld, publishedRecent}, ids)
}

func TestDLQInsertTruncatesMessage(t *testing.T) {
	client := dbtest.Open(t)
	dlq := outbox.NewDLQRepository(client.DB())
	eventID := uuid.New()
	long := make([]byte, 2048)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)

	require.NoError(t, dlq.InsertTx(client.DB(), models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventSettlementCompleted,
		AggregateType: enums.AggregateSettlement,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
		FailedAt:      time.Now().UTC(),
	}))

	row, err := dlq.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, row)
	require.NotNil(t, row.ErrorMessage)
	assert.Len(t, *row.ErrorMessage, 1024)

	missing, err := dlq.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func insertEvent(t *testing.T, conn *gorm.DB, repo *outbox.Repository, createdAt time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, repo.Insert(conn, models.OutboxEvent{
		ID:            id,
		EventType:     enums.EventSettlementRequested,
		AggregateType: enums.AggregateSettlement,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1,"eventId":"x","data":{}}`),
		CreatedAt:     createdAt,
	}))
	return id
}
