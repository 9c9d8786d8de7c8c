package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/model"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
)

// ProductStore is the durable keyed storage for product records.
type ProductStore interface {
	FindAll(ctx context.Context) ([]*model.Product, error)
	FindByID(ctx context.Context, id int64) (*model.Product, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	ExistsByNameExcludingID(ctx context.Context, name string, id int64) (bool, error)
	FindMatching(ctx context.Context, filter ProductFilter) ([]*model.Product, error)
	Insert(ctx context.Context, product *model.Product) (*model.Product, error)
	Update(ctx context.Context, product *model.Product) (*model.Product, error)
	DeleteByID(ctx context.Context, id int64) error
}

// EventStore persists outbox events.
type EventStore interface {
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	ListPending(ctx context.Context, limit int) ([]*model.Event, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.EventStatus) error
}

// Transactor runs a unit of work atomically: either every store effect made
// through the given stores is applied, or none is.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(products ProductStore, events EventStore) error) error
}

// ConstraintError represents a storage constraint violation (unique, check).
type ConstraintError struct {
	Constraint string
	Detail     string
}

func (e *ConstraintError) Error() string {
	if e.Constraint != "" {
		return "constraint " + e.Constraint + " violated: " + e.Detail
	}
	return "constraint violated: " + e.Detail
}

// DefaultEventBatchSize is the number of outbox events fetched per poll when
// no limit is given.
const DefaultEventBatchSize = 100
