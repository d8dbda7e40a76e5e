package common

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/catalog-backend/internal/http/middleware"
	"github.com/ignatzorin/catalog-backend/internal/pkg/apperror"
)

// CurrentSubject извлекает subject токена из контекста gin.
func CurrentSubject(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get(middleware.ContextSubjectKey)
	if !exists {
		return uuid.Nil, false
	}
	subject, ok := raw.(uuid.UUID)
	return subject, ok
}

// ParseIDParam разбирает положительный int64 из параметра пути.
func ParseIDParam(c *gin.Context, paramName string) (int64, error) {
	param := c.Param(paramName)
	if param == "" {
		return 0, apperror.Validation("параметр %s отсутствует", paramName)
	}

	id, err := strconv.ParseInt(param, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.Validation("параметр %s должен быть положительным целым числом", paramName)
	}
	return id, nil
}

// OptionalIntQuery разбирает необязательный целочисленный query-параметр.
// Отсутствующий параметр даёт nil, знак проверяет сервис.
func OptionalIntQuery(c *gin.Context, name string) (*int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperror.Validation("параметр %s должен быть целым числом", name)
	}
	return &v, nil
}

// BindJSON связывает тело запроса и возвращает ошибку валидации.
func BindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperror.Wrap(fmt.Errorf("bind json: %w", err), apperror.ErrCodeValidation, "некорректное тело запроса")
	}
	return nil
}
