package sql_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/iyhunko/product-catalog/internal/repository/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := sql.NewEventRepository(db)
	ctx := context.Background()

	t.Run("successful creation", func(t *testing.T) {
		event, err := model.NewEvent(model.EventProductCreated, map[string]any{
			"action":     "created",
			"product_id": 1,
			"name":       "Test Product",
			"price":      99.99,
		})
		require.NoError(t, err)

		mock.ExpectPrepare("INSERT INTO events").
			ExpectExec().
			WithArgs(sqlmock.AnyArg(), event.EventType, string(event.EventData), "pending", sqlmock.AnyArg(), nil).
			WillReturnResult(sqlmock.NewResult(1, 1))

		createdEvent, err := repo.Create(ctx, event)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, createdEvent.ID)
		assert.Equal(t, model.EventProductCreated, createdEvent.EventType)
		assert.Equal(t, model.EventStatusPending, createdEvent.Status)
		assert.False(t, createdEvent.CreatedAt.IsZero())

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEventRepository_ListPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := sql.NewEventRepository(db)
	ctx := context.Background()

	t.Run("list pending events", func(t *testing.T) {
		eventID1 := uuid.New()
		eventID2 := uuid.New()
		eventData := []byte(`{"action":"created"}`)
		createdAt1 := time.Now()
		createdAt2 := time.Now().Add(1 * time.Minute)

		rows := sqlmock.NewRows([]string{"id", "event_type", "event_data", "status", "created_at", "processed_at"}).
			AddRow(eventID1.String(), model.EventProductCreated, eventData, "pending", createdAt1, nil).
			AddRow(eventID2.String(), model.EventProductDeleted, eventData, "pending", createdAt2, nil)

		mock.ExpectPrepare("SELECT (.+) FROM events WHERE status").
			ExpectQuery().
			WithArgs("pending", 10).
			WillReturnRows(rows)

		events, err := repo.ListPending(ctx, 10)

		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, eventID1, events[0].ID)
		assert.Equal(t, model.EventProductCreated, events[0].EventType)
		assert.JSONEq(t, `{"action":"created"}`, string(events[0].EventData))
		assert.Nil(t, events[0].ProcessedAt)
		assert.Equal(t, eventID2, events[1].ID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("default limit", func(t *testing.T) {
		mock.ExpectPrepare("SELECT (.+) FROM events WHERE status").
			ExpectQuery().
			WithArgs("pending", repository.DefaultEventBatchSize).
			WillReturnRows(sqlmock.NewRows([]string{"id", "event_type", "event_data", "status", "created_at", "processed_at"}))

		events, err := repo.ListPending(ctx, 0)

		require.NoError(t, err)
		assert.Empty(t, events)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEventRepository_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := sql.NewEventRepository(db)
	ctx := context.Background()

	t.Run("marks event processed", func(t *testing.T) {
		eventID := uuid.New()

		mock.ExpectPrepare("UPDATE events SET status").
			ExpectExec().
			WithArgs("processed", eventID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateStatus(ctx, eventID, model.EventStatusProcessed)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown event", func(t *testing.T) {
		eventID := uuid.New()

		mock.ExpectPrepare("UPDATE events SET status").
			ExpectExec().
			WithArgs("failed", eventID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateStatus(ctx, eventID, model.EventStatusFailed)

		assert.True(t, errors.Is(err, repository.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		eventID := uuid.New()

		mock.ExpectPrepare("UPDATE events SET status").
			ExpectExec().
			WillReturnError(assert.AnError)

		err := repo.UpdateStatus(ctx, eventID, model.EventStatusFailed)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to update event status")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
