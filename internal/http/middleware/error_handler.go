package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/catalog-backend/internal/http/response"
	"github.com/ignatzorin/catalog-backend/internal/logger"
	"github.com/ignatzorin/catalog-backend/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки, добавленные через c.Error, централизованно.
// Внутренние ошибки маскируются, AppError отдаются со своим кодом.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Проверяем, не был ли уже отправлен ответ
		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		fields := logrus.Fields{
			"error":      err.Error(),
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
			"request_id": c.GetString(ContextRequestIDKey),
		}

		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.HTTPStatus < 500 {
			logger.Log.WithFields(fields).Info("Request rejected")
		} else {
			logger.Log.WithFields(fields).Error("Request error")
		}

		response.Error(c, err)
	}
}
