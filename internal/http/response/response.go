package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/catalog-backend/internal/pkg/apperror"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PaginatedResponse struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination отражает запрошенное окно. Отсутствующие параметры не выводятся.
type Pagination struct {
	Offset *int `json:"offset,omitempty"`
	Limit  *int `json:"limit,omitempty"`
	Count  int  `json:"count"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func Paginated(c *gin.Context, data interface{}, count int, offset, limit *int) {
	c.JSON(http.StatusOK, PaginatedResponse{
		Success: true,
		Data:    data,
		Pagination: Pagination{
			Offset: offset,
			Limit:  limit,
			Count:  count,
		},
	})
}

func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, Response{
			Success: false,
			Error: &ErrorInfo{
				Code:    string(appErr.Code),
				Message: appErr.Message,
			},
		})
		return
	}

	c.JSON(http.StatusInternalServerError, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    string(apperror.ErrCodeInternal),
			Message: "внутренняя ошибка сервера",
		},
	})
}

func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, apperror.ErrCodeBadRequest, message)
}

func Unauthorized(c *gin.Context, message string) {
	abort(c, http.StatusUnauthorized, apperror.ErrCodeUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	abort(c, http.StatusForbidden, apperror.ErrCodeForbidden, message)
}

func abort(c *gin.Context, status int, code apperror.ErrorCode, message string) {
	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    string(code),
			Message: message,
		},
	})
}
