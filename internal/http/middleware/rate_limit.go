package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ignatzorin/catalog-backend/internal/http/response"
)

// RateLimitMiddleware ограничивает количество запросов с одного IP.
// По умолчанию: 100 запросов в минуту.
func RateLimitMiddleware(limit int64, period time.Duration) gin.HandlerFunc {
	return RateLimitWithStore(memory.NewStore(), limit, period)
}

// RateLimitWithStore позволяет подставить общее хранилище счётчиков.
func RateLimitWithStore(store limiter.Store, limit int64, period time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 100
	}
	if period <= 0 {
		period = time.Minute
	}

	instance := limiter.New(store, limiter.Rate{Period: period, Limit: limit})

	return func(c *gin.Context) {
		lc, err := instance.Get(c.Request.Context(), c.ClientIP())
		if err != nil {
			// Сбой хранилища счётчиков не блокирует чтение каталога.
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lc.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lc.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lc.Reset, 10))

		if lc.Reached {
			abortTooManyRequests(c)
			return
		}

		c.Next()
	}
}

func abortTooManyRequests(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, response.Response{
		Success: false,
		Error: &response.ErrorInfo{
			Code:    "RATE_LIMITED",
			Message: "слишком много запросов, попробуйте позже",
		},
	})
}
