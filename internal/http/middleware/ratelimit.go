package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/product-catalog/internal/http/apierror"
	"golang.org/x/time/rate"
)

// clientIdleTimeout is how long a client's bucket survives without requests.
const clientIdleTimeout = 5 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiters hands out one token bucket per client key.
type ClientLimiters struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	clients   map[string]*clientLimiter
	lastSweep time.Time
	now       func() time.Time
}

// NewClientLimiters returns limiters allowing limit requests per second with
// the given burst to each client.
func NewClientLimiters(limit rate.Limit, burst int) *ClientLimiters {
	return &ClientLimiters{
		limit:     limit,
		burst:     burst,
		clients:   make(map[string]*clientLimiter),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Get returns the bucket of key, creating it on first use. Buckets idle for
// longer than clientIdleTimeout are dropped along the way.
func (l *ClientLimiters) Get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > clientIdleTimeout {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > clientIdleTimeout {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter
}

// Len reports the number of tracked clients.
func (l *ClientLimiters) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// RateLimit rejects a client's requests with 429 once its token bucket is empty.
// Clients are told apart by IP.
func RateLimit(limiters *ClientLimiters) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiters.Get(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			apierror.Write(c, http.StatusTooManyRequests, apierror.LabelTooManyRequests, "Rate limit exceeded")
			return
		}
		c.Next()
	}
}
