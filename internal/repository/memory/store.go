// Package memory provides a process-local implementation of the product and
// outbox stores. Writes made through WithinTransaction are staged on a copy
// of the state and swapped in only when the unit of work succeeds.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
)

type state struct {
	products map[int64]model.Product
	events   []model.Event
	nextID   int64
}

func (s *state) clone() *state {
	c := &state{
		products: make(map[int64]model.Product, len(s.products)),
		events:   make([]model.Event, len(s.events)),
		nextID:   s.nextID,
	}
	for id, p := range s.products {
		c.products[id] = p
	}
	copy(c.events, s.events)
	return c
}

// Store is a thread-safe in-memory product and event store.
type Store struct {
	mu    sync.Mutex
	state *state
}

// NewStore creates an empty Store. Ids start at 1 and are never reused.
func NewStore() *Store {
	return &Store{state: &state{products: map[int64]model.Product{}, nextID: 1}}
}

// view binds store operations to one state without locking; the owner holds the lock.
type view struct {
	s *state
}

func (s *Store) locked(fn func(v view) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(view{s: s.state})
}

// WithinTransaction runs fn against a staged copy of the store and commits the
// copy only if fn returns nil. Transactions are serialised.
func (s *Store) WithinTransaction(ctx context.Context, fn func(products repository.ProductStore, events repository.EventStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	staged := s.state.clone()
	tx := view{s: staged}
	if err := fn(tx, tx); err != nil {
		return err
	}
	s.state = staged
	return nil
}

func (s *Store) FindAll(ctx context.Context) (result []*model.Product, err error) {
	err = s.locked(func(v view) error { result, err = v.FindAll(ctx); return err })
	return result, err
}

func (s *Store) FindByID(ctx context.Context, id int64) (result *model.Product, err error) {
	err = s.locked(func(v view) error { result, err = v.FindByID(ctx, id); return err })
	return result, err
}

func (s *Store) ExistsByID(ctx context.Context, id int64) (found bool, err error) {
	err = s.locked(func(v view) error { found, err = v.ExistsByID(ctx, id); return err })
	return found, err
}

func (s *Store) ExistsByName(ctx context.Context, name string) (found bool, err error) {
	err = s.locked(func(v view) error { found, err = v.ExistsByName(ctx, name); return err })
	return found, err
}

func (s *Store) ExistsByNameExcludingID(ctx context.Context, name string, id int64) (found bool, err error) {
	err = s.locked(func(v view) error { found, err = v.ExistsByNameExcludingID(ctx, name, id); return err })
	return found, err
}

func (s *Store) FindMatching(ctx context.Context, filter repository.ProductFilter) (result []*model.Product, err error) {
	err = s.locked(func(v view) error { result, err = v.FindMatching(ctx, filter); return err })
	return result, err
}

func (s *Store) Insert(ctx context.Context, product *model.Product) (result *model.Product, err error) {
	err = s.locked(func(v view) error { result, err = v.Insert(ctx, product); return err })
	return result, err
}

func (s *Store) Update(ctx context.Context, product *model.Product) (result *model.Product, err error) {
	err = s.locked(func(v view) error { result, err = v.Update(ctx, product); return err })
	return result, err
}

func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	return s.locked(func(v view) error { return v.DeleteByID(ctx, id) })
}

func (s *Store) Create(ctx context.Context, event *model.Event) (result *model.Event, err error) {
	err = s.locked(func(v view) error { result, err = v.Create(ctx, event); return err })
	return result, err
}

func (s *Store) ListPending(ctx context.Context, limit int) (result []*model.Event, err error) {
	err = s.locked(func(v view) error { result, err = v.ListPending(ctx, limit); return err })
	return result, err
}

func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status model.EventStatus) error {
	return s.locked(func(v view) error { return v.UpdateStatus(ctx, id, status) })
}

func (v view) sorted(keep func(p *model.Product) bool) []*model.Product {
	ids := make([]int64, 0, len(v.s.products))
	for id := range v.s.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	result := make([]*model.Product, 0, len(ids))
	for _, id := range ids {
		p := v.s.products[id]
		if keep(&p) {
			result = append(result, &p)
		}
	}
	return result
}

func (v view) FindAll(_ context.Context) ([]*model.Product, error) {
	return v.sorted(func(*model.Product) bool { return true }), nil
}

func (v view) FindByID(_ context.Context, id int64) (*model.Product, error) {
	p, ok := v.s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, repository.ErrNotFound)
	}
	return &p, nil
}

func (v view) ExistsByID(_ context.Context, id int64) (bool, error) {
	_, ok := v.s.products[id]
	return ok, nil
}

func (v view) ExistsByName(ctx context.Context, name string) (bool, error) {
	return v.ExistsByNameExcludingID(ctx, name, 0)
}

func (v view) ExistsByNameExcludingID(_ context.Context, name string, id int64) (bool, error) {
	for _, p := range v.s.products {
		if p.Name == name && p.ID != id {
			return true, nil
		}
	}
	return false, nil
}

func (v view) FindMatching(_ context.Context, filter repository.ProductFilter) ([]*model.Product, error) {
	return v.sorted(filter.Matches), nil
}

func (v view) checkConstraints(p *model.Product) error {
	for _, existing := range v.s.products {
		if existing.ID != p.ID && existing.Name == p.Name {
			return &repository.ConstraintError{
				Constraint: "products_name_key",
				Detail:     fmt.Sprintf("Key (name)=(%s) already exists.", p.Name),
			}
		}
	}
	if p.Price <= 0 {
		return &repository.ConstraintError{Constraint: "products_price_positive", Detail: "price must be positive"}
	}
	if p.Quantity <= 0 {
		return &repository.ConstraintError{Constraint: "products_quantity_positive", Detail: "quantity must be positive"}
	}
	if !p.Status.Valid() {
		return &repository.ConstraintError{Constraint: "products_status_valid", Detail: "unknown status " + string(p.Status)}
	}
	return nil
}

func (v view) Insert(_ context.Context, product *model.Product) (*model.Product, error) {
	product.InitMeta()
	product.ID = 0
	if err := v.checkConstraints(product); err != nil {
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}
	product.ID = v.s.nextID
	v.s.nextID++
	v.s.products[product.ID] = *product
	return product, nil
}

func (v view) Update(_ context.Context, product *model.Product) (*model.Product, error) {
	existing, ok := v.s.products[product.ID]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", product.ID, repository.ErrNotFound)
	}
	product.Touch()
	product.CreatedAt = existing.CreatedAt
	if err := v.checkConstraints(product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	v.s.products[product.ID] = *product
	return product, nil
}

func (v view) DeleteByID(_ context.Context, id int64) error {
	if _, ok := v.s.products[id]; !ok {
		return fmt.Errorf("product %d: %w", id, repository.ErrNotFound)
	}
	delete(v.s.products, id)
	return nil
}

func (v view) Create(_ context.Context, event *model.Event) (*model.Event, error) {
	event.InitMeta()
	v.s.events = append(v.s.events, *event)
	return event, nil
}

func (v view) ListPending(_ context.Context, limit int) ([]*model.Event, error) {
	if limit <= 0 {
		limit = repository.DefaultEventBatchSize
	}
	var result []*model.Event
	for i := range v.s.events {
		if len(result) == limit {
			break
		}
		if v.s.events[i].Status == model.EventStatusPending {
			e := v.s.events[i]
			result = append(result, &e)
		}
	}
	return result, nil
}

func (v view) UpdateStatus(_ context.Context, id uuid.UUID, status model.EventStatus) error {
	for i := range v.s.events {
		if v.s.events[i].ID == id {
			now := time.Now().UTC()
			v.s.events[i].Status = status
			v.s.events[i].ProcessedAt = &now
			return nil
		}
	}
	return fmt.Errorf("event %s: %w", id, repository.ErrNotFound)
}

var (
	_ repository.ProductStore = (*Store)(nil)
	_ repository.EventStore   = (*Store)(nil)
	_ repository.Transactor   = (*Store)(nil)
	_ repository.ProductStore = view{}
	_ repository.EventStore   = view{}
)
