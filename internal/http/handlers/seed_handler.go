package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/catalog-backend/internal/http/response"
	"github.com/ignatzorin/catalog-backend/internal/pkg/apperror"
	"github.com/ignatzorin/catalog-backend/internal/service"
)

// SeedHandler обрабатывает запросы для генерации демо-каталогов.
type SeedHandler struct {
	seedService *service.SeedService
}

// NewSeedHandler создаёт новый seed handler.
func NewSeedHandler(seedService *service.SeedService) *SeedHandler {
	return &SeedHandler{seedService: seedService}
}

const maxSeedCatalogs = 100

// Seed генерирует демо-каталоги.
// POST /api/seed?num_catalogs=5
func (h *SeedHandler) Seed(c *gin.Context) {
	num, err := strconv.Atoi(c.DefaultQuery("num_catalogs", "5"))
	if err != nil || num < 1 {
		num = 5
	}
	if num > maxSeedCatalogs {
		num = maxSeedCatalogs
	}

	result, err := h.seedService.SeedData(c.Request.Context(), num)
	if err != nil {
		response.Error(c, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сгенерировать данные"))
		return
	}

	c.JSON(http.StatusCreated, response.Response{Success: true, Data: result})
}
