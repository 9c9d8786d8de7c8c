package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iyhunko/product-catalog/internal/cache"
	"github.com/iyhunko/product-catalog/internal/dto"
	"github.com/iyhunko/product-catalog/internal/metrics"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/iyhunko/product-catalog/internal/sqs"
	"github.com/iyhunko/product-catalog/internal/validation"
)

// evictTimeout bounds the post-commit cache eviction.
const evictTimeout = 5 * time.Second

// ProductService applies business rules to product operations and keeps the
// read cache consistent with the store.
type ProductService struct {
	store        repository.ProductStore
	tx           repository.Transactor
	cache        cache.Cache
	changeEvents bool
}

type Option func(*ProductService)

// WithChangeEvents records an outbox event in the same transaction as every write.
func WithChangeEvents() Option {
	return func(ps *ProductService) {
		ps.changeEvents = true
	}
}

func NewProductService(store repository.ProductStore, tx repository.Transactor, readCache cache.Cache, opts ...Option) *ProductService {
	ps := &ProductService{
		store: store,
		tx:    tx,
		cache: readCache,
	}
	for _, opt := range opts {
		opt(ps)
	}
	return ps
}

// List returns every product in store order.
func (ps *ProductService) List(ctx context.Context) ([]dto.Product, error) {
	var cached []dto.Product
	if ps.fromCache(ctx, cache.KeyAll, metrics.CacheEntryAll, &cached) {
		return cached, nil
	}

	products, err := ps.store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	result := dto.ToExternalList(products)
	ps.toCache(ctx, cache.KeyAll, result)
	return result, nil
}

// Search returns the products matching every criterion of filter. Results are
// not cached, a filter without criteria included.
func (ps *ProductService) Search(ctx context.Context, filter repository.ProductFilter) ([]dto.Product, error) {
	if filter.IsEmpty() {
		slog.Debug("Product search without criteria, returning every product")
	}
	products, err := ps.store.FindMatching(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return dto.ToExternalList(products), nil
}

func (ps *ProductService) Get(ctx context.Context, id int64) (dto.Product, error) {
	key := cache.KeyForID(id)
	var cached dto.Product
	if ps.fromCache(ctx, key, metrics.CacheEntrySingle, &cached) {
		return cached, nil
	}

	product, err := ps.store.FindByID(ctx, id)
	if err != nil {
		return dto.Product{}, notFoundOr(id, err, "get product")
	}

	result := dto.ToExternal(product)
	ps.toCache(ctx, key, result)
	return result, nil
}

// Create validates input, stores it as a new product and returns the stored
// product with its id and timestamps.
func (ps *ProductService) Create(ctx context.Context, input dto.Product) (dto.Product, error) {
	var created *model.Product
	err := ps.tx.WithinTransaction(ctx, func(products repository.ProductStore, events repository.EventStore) error {
		if err := validation.NewRules(products).CheckCreate(ctx, input); err != nil {
			return err
		}

		record := dto.ToRecord(input)
		record.ID = 0
		var err error
		created, err = products.Insert(ctx, record)
		if err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		return ps.recordEvent(ctx, events, model.EventProductCreated, sqs.ActionCreated, created)
	})
	if err != nil {
		return dto.Product{}, err
	}

	metrics.ProductsCreated.Inc()
	slog.Info("Product created", slog.Int64("product_id", created.ID))

	if err := ps.evictAll(ctx); err != nil {
		return dto.Product{}, err
	}
	return dto.ToExternal(created), nil
}

// Update replaces the mutable fields of product id with input.
func (ps *ProductService) Update(ctx context.Context, id int64, input dto.Product) (dto.Product, error) {
	var updated *model.Product
	err := ps.tx.WithinTransaction(ctx, func(products repository.ProductStore, events repository.EventStore) error {
		existing, err := products.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(id, err, "load product")
		}
		if err := validation.NewRules(products).CheckUpdate(ctx, existing, input); err != nil {
			return err
		}

		dto.ApplyUpdate(existing, input)
		updated, err = products.Update(ctx, existing)
		if err != nil {
			return notFoundOr(id, err, "update product")
		}
		return ps.recordEvent(ctx, events, model.EventProductUpdated, sqs.ActionUpdated, updated)
	})
	if err != nil {
		return dto.Product{}, err
	}

	metrics.ProductsUpdated.Inc()
	slog.Info("Product updated", slog.Int64("product_id", id))

	if err := ps.evictAll(ctx); err != nil {
		return dto.Product{}, err
	}
	return dto.ToExternal(updated), nil
}

func (ps *ProductService) Delete(ctx context.Context, id int64) error {
	err := ps.tx.WithinTransaction(ctx, func(products repository.ProductStore, events repository.EventStore) error {
		if !ps.changeEvents {
			exists, err := products.ExistsByID(ctx, id)
			if err != nil {
				return fmt.Errorf("check product: %w", err)
			}
			if !exists {
				return &NotFoundError{ID: id}
			}
			return notFoundOr(id, products.DeleteByID(ctx, id), "delete product")
		}

		// the event needs the deleted product's fields
		existing, err := products.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(id, err, "load product")
		}
		if err := products.DeleteByID(ctx, id); err != nil {
			return notFoundOr(id, err, "delete product")
		}
		return ps.recordEvent(ctx, events, model.EventProductDeleted, sqs.ActionDeleted, existing)
	})
	if err != nil {
		return err
	}

	metrics.ProductsDeleted.Inc()
	slog.Info("Product deleted", slog.Int64("product_id", id))

	return ps.evictAll(ctx)
}

func (ps *ProductService) recordEvent(ctx context.Context, events repository.EventStore, eventType, action string, p *model.Product) error {
	if !ps.changeEvents {
		return nil
	}

	event, err := model.NewEvent(eventType, sqs.NewProductMessage(action, p))
	if err != nil {
		return fmt.Errorf("build %s event: %w", eventType, err)
	}
	if _, err := events.Create(ctx, event); err != nil {
		return fmt.Errorf("record %s event: %w", eventType, err)
	}
	return nil
}

// fromCache decodes the entry under key into dst. Cache failures are logged and
// reported as a miss so reads fall through to the store.
func (ps *ProductService) fromCache(ctx context.Context, key, entry string, dst any) bool {
	data, found, err := ps.cache.Get(ctx, key)
	if err == nil && found {
		err = json.Unmarshal(data, dst)
	}

	switch {
	case err != nil:
		metrics.CacheRequests.WithLabelValues(entry, metrics.CacheError).Inc()
		slog.Warn("Failed to read product cache", slog.String("key", key), slog.Any("err", err))
		return false
	case !found:
		metrics.CacheRequests.WithLabelValues(entry, metrics.CacheMiss).Inc()
		return false
	default:
		metrics.CacheRequests.WithLabelValues(entry, metrics.CacheHit).Inc()
		return true
	}
}

func (ps *ProductService) toCache(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err == nil {
		err = ps.cache.Put(ctx, key, data)
	}
	if err != nil {
		slog.Warn("Failed to populate product cache", slog.String("key", key), slog.Any("err", err))
	}
}

// evictAll runs after a committed write; a failure means readers may see stale data.
// The request context is detached so a client that disconnects after the commit
// cannot leave its write shadowed by old entries.
func (ps *ProductService) evictAll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), evictTimeout)
	defer cancel()

	if err := ps.cache.EvictAll(ctx); err != nil {
		slog.Error("Failed to evict product cache", slog.Any("err", err))
		return fmt.Errorf("evict product cache: %w", err)
	}
	return nil
}

func notFoundOr(id int64, err error, action string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{ID: id}
	}
	return fmt.Errorf("%s %d: %w", action, id, err)
}
