package sql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
)

// EventRepository implements repository.EventStore for outbox events.
type EventRepository struct {
	db  *sql.DB
	txn *sql.Tx
}

// NewEventRepository creates a new EventRepository instance.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// getExecutor returns the active executor (transaction if exists, otherwise db)
func (r *EventRepository) getExecutor() dbExecutor {
	if r.txn != nil {
		return r.txn
	}
	return r.db
}

// Create inserts a new event into the database.
func (r *EventRepository) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	event.InitMeta()

	query := `INSERT INTO events (id, event_type, event_data, status, created_at, processed_at) 
	          VALUES ($1, $2, $3, $4, $5, $6)`

	stmt, err := r.getExecutor().PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, event.ID, event.EventType, string(event.EventData), string(event.Status), event.CreatedAt, event.ProcessedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	return event, nil
}

// ListPending retrieves up to limit pending events, oldest first.
func (r *EventRepository) ListPending(ctx context.Context, limit int) ([]*model.Event, error) {
	sqlQuery := `SELECT id, event_type, event_data, status, created_at, processed_at 
	             FROM events 
	             WHERE status = $1 
	             ORDER BY created_at ASC 
	             LIMIT $2`

	stmt, err := r.getExecutor().PrepareContext(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	if limit <= 0 {
		limit = repository.DefaultEventBatchSize
	}

	rows, err := stmt.QueryContext(ctx, string(model.EventStatusPending), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		var event model.Event
		var status string
		var data []byte
		var processedAt sql.NullTime
		if err := rows.Scan(&event.ID, &event.EventType, &data, &status, &event.CreatedAt, &processedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.EventData = data
		event.Status = model.EventStatus(status)
		if processedAt.Valid {
			event.ProcessedAt = &processedAt.Time
		}
		events = append(events, &event)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return events, nil
}

// UpdateStatus updates the status and processed_at time of an event
func (r *EventRepository) UpdateStatus(ctx context.Context, eventID uuid.UUID, status model.EventStatus) error {
	query := `UPDATE events SET status = $1, processed_at = CURRENT_TIMESTAMP WHERE id = $2`

	stmt, err := r.getExecutor().PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare update statement: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, string(status), eventID)
	if err != nil {
		return fmt.Errorf("failed to update event status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("event %s: %w", eventID, repository.ErrNotFound)
	}

	return nil
}
