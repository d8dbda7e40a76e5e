package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// Pinger проверяет доступность внешней зависимости.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler предоставляет endpoint для проверки здоровья сервиса.
type HealthHandler struct {
	db    *sqlx.DB
	cache Pinger
}

// NewHealthHandler создаёт новый health handler. cache может быть nil.
func NewHealthHandler(db *sqlx.DB, cache Pinger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// HealthResponse представляет ответ health check.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Health обрабатывает GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		status = "unhealthy"
	} else {
		checks["database"] = "healthy"
	}

	// Кэш не критичен: при его недоступности чтение идёт в БД.
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			checks["cache"] = "degraded: " + err.Error()
		} else {
			checks["cache"] = "healthy"
		}
	}

	stats := h.db.Stats()
	if stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections {
		checks["connection_pool"] = "warning: pool exhausted"
	} else {
		checks["connection_pool"] = "healthy"
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
	})
}
