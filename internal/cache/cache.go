// Package cache provides the read cache sitting in front of the product store.
package cache

import (
	"context"
	"strconv"
)

const (
	// KeyAll holds the full product list.
	KeyAll = "products::all"
	keyOne = "products::"
)

// Cache stores encoded query results. Implementations must be safe for
// concurrent use.
type Cache interface {
	// Get returns the value stored under key; the bool reports whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	// EvictAll drops every entry.
	EvictAll(ctx context.Context) error
}

// KeyForID is the key of a single product entry.
func KeyForID(id int64) string {
	return keyOne + strconv.FormatInt(id, 10)
}
