package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/catalog-backend/internal/http/response"
)

// IDValidator проверяет, что параметр с указанным именем является положительным целым.
// Использование: router.GET("/catalogs/:id", IDValidator("id"), handler.Get)
func IDValidator(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.Param(paramName)
		if idStr == "" {
			response.BadRequest(c, "параметр "+paramName+" обязателен")
			return
		}

		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || id <= 0 {
			response.BadRequest(c, "параметр "+paramName+" должен быть положительным целым числом")
			return
		}

		c.Next()
	}
}
