package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Controller handles general HTTP requests.
type Controller struct {
	checks map[string]HealthCheck
}

// New creates a new Controller. checks are run by Health, keyed by dependency name.
func New(checks map[string]HealthCheck) *Controller {
	return &Controller{checks: checks}
}

// Ping handles the HTTP GET request for health check endpoint.
func (con *Controller) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

// Health runs every dependency check and answers 503 if any fails.
func (con *Controller) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(con.checks))
	for name, check := range con.checks {
		if err := check(ctx); err != nil {
			slog.Warn("Health check failed", slog.String("dependency", name), slog.Any("err", err))
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	c.JSON(status, gin.H{"status": http.StatusText(status), "checks": results})
}
