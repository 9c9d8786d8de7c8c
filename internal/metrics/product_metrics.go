package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache entry kinds and lookup results used as labels of CacheRequests.
const (
	CacheEntryAll    = "all"
	CacheEntrySingle = "single"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

var (
	// ProductsCreated is a Prometheus counter for tracking the total number of products created.
	ProductsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_created_total",
		Help: "The total number of products created",
	})

	ProductsUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_updated_total",
		Help: "The total number of products updated",
	})

	// ProductsDeleted is a Prometheus counter for tracking the total number of products deleted.
	ProductsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_deleted_total",
		Help: "The total number of products deleted",
	})

	// CacheRequests counts read cache lookups by entry kind and result.
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "product_cache_requests_total",
		Help: "The total number of product read cache lookups",
	}, []string{"entry", "result"})
)
