package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/iyhunko/product-catalog/internal/cache"
	"github.com/iyhunko/product-catalog/internal/dto"
	"github.com/iyhunko/product-catalog/internal/repository/memory"
	"github.com/iyhunko/product-catalog/internal/service"
	"github.com/stretchr/testify/require"
)

var errCacheDown = errors.New("cache unavailable")

// spyCache wraps an in-memory cache, counts calls and can be told to fail.
type spyCache struct {
	*cache.Memory

	mu        sync.Mutex
	gets      int
	puts      int
	evictions int
	failReads bool
	failEvict bool
}

func newSpyCache() *spyCache {
	return &spyCache{Memory: cache.NewMemory()}
}

func (s *spyCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	s.gets++
	fail := s.failReads
	s.mu.Unlock()
	if fail {
		return nil, false, errCacheDown
	}
	return s.Memory.Get(ctx, key)
}

func (s *spyCache) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.puts++
	fail := s.failReads
	s.mu.Unlock()
	if fail {
		return errCacheDown
	}
	return s.Memory.Put(ctx, key, value)
}

func (s *spyCache) EvictAll(ctx context.Context) error {
	s.mu.Lock()
	s.evictions++
	fail := s.failEvict
	s.mu.Unlock()
	if fail {
		return errCacheDown
	}
	return s.Memory.EvictAll(ctx)
}

func (s *spyCache) evictionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evictions
}

func newTestService(opts ...service.Option) (*service.ProductService, *memory.Store, *spyCache) {
	store := memory.NewStore()
	spy := newSpyCache()
	return service.NewProductService(store, store, spy, opts...), store, spy
}

func ptr[T any](v T) *T { return &v }

func input(name string, price float64, quantity int) dto.Product {
	return dto.Product{Name: name, Description: name + " description", Price: ptr(price), Quantity: ptr(quantity)}
}

func mustCreate(t *testing.T, ps *service.ProductService, in dto.Product) dto.Product {
	t.Helper()
	created, err := ps.Create(context.Background(), in)
	require.NoError(t, err)
	return created
}
