package service_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/iyhunko/product-catalog/internal/cache"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/iyhunko/product-catalog/internal/repository/memory"
	"github.com/iyhunko/product-catalog/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cancelAfterCommit cancels the caller's context as soon as a transaction has
// committed, as a client disconnecting right after the write would.
type cancelAfterCommit struct {
	repository.Transactor
	cancel context.CancelFunc
}

func (c *cancelAfterCommit) WithinTransaction(ctx context.Context, fn func(repository.ProductStore, repository.EventStore) error) error {
	err := c.Transactor.WithinTransaction(ctx, fn)
	c.cancel()
	return err
}

func newRedisCache(t *testing.T) *cache.Redis {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedis(client, "product-catalog:", 0)
}

func TestWrites_EvictCacheAfterClientDisconnect(t *testing.T) {
	tests := []struct {
		name  string
		write func(ctx context.Context, ps *service.ProductService, id int64) error
		want  []string
	}{
		{
			name: "create",
			write: func(ctx context.Context, ps *service.ProductService, _ int64) error {
				_, err := ps.Create(ctx, input("Keyboard", 49, 2))
				return err
			},
			want: []string{"Mouse", "Keyboard"},
		},
		{
			name: "update",
			write: func(ctx context.Context, ps *service.ProductService, id int64) error {
				_, err := ps.Update(ctx, id, input("Wireless Mouse", 29, 3))
				return err
			},
			want: []string{"Wireless Mouse"},
		},
		{
			name: "delete",
			write: func(ctx context.Context, ps *service.ProductService, id int64) error {
				return ps.Delete(ctx, id)
			},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			store := memory.NewStore()
			redisCache := newRedisCache(t)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			tx := &cancelAfterCommit{Transactor: store, cancel: cancel}
			ps := service.NewProductService(store, tx, redisCache)

			seed, err := service.NewProductService(store, store, redisCache).Create(context.Background(), input("Mouse", 19.99, 5))
			require.NoError(t, err)
			_, err = ps.List(context.Background())
			require.NoError(t, err)
			_, err = ps.Get(context.Background(), seed.ID)
			require.NoError(t, err)

			// when
			err = tt.write(ctx, ps, seed.ID)

			// then
			require.NoError(t, err)
			require.Error(t, ctx.Err())

			all, err := ps.List(context.Background())
			require.NoError(t, err)
			names := make([]string, 0, len(all))
			for _, p := range all {
				names = append(names, p.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}
