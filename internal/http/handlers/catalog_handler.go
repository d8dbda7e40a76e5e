package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/catalog-backend/internal/http/handlers/common"
	"github.com/ignatzorin/catalog-backend/internal/http/response"
	"github.com/ignatzorin/catalog-backend/internal/models"
	"github.com/ignatzorin/catalog-backend/internal/pkg/apperror"
	"github.com/ignatzorin/catalog-backend/internal/service"
)

// CatalogUseCase - операции каталога, доступные HTTP слою.
type CatalogUseCase interface {
	Find(ctx context.Context, id int64, depth *int) (*models.Catalog, error)
	FindAll(ctx context.Context, offset, limit *int) ([]models.Catalog, error)
	FindCategories(ctx context.Context, catalogID int64, depth *int) ([]models.Category, error)
	Modify(ctx context.Context, input service.ModifyCatalogInput) (*models.Catalog, error)
}

type CatalogHandler struct {
	catalogs CatalogUseCase
}

func NewCatalogHandler(catalogs CatalogUseCase) *CatalogHandler {
	return &CatalogHandler{catalogs: catalogs}
}

// ModifyCatalogRequest - тело PUT /api/catalogs/:id.
// id в теле необязателен, но если передан, должен совпадать с путём.
type ModifyCatalogRequest struct {
	ID          *int64  `json:"id"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// List GET /api/catalogs?offset=&limit=
func (h *CatalogHandler) List(c *gin.Context) {
	offset, err := common.OptionalIntQuery(c, "offset")
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, err := common.OptionalIntQuery(c, "limit")
	if err != nil {
		response.Error(c, err)
		return
	}

	catalogs, err := h.catalogs.FindAll(c.Request.Context(), offset, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, catalogs, len(catalogs), offset, limit)
}

// Get GET /api/catalogs/:id?depth=
func (h *CatalogHandler) Get(c *gin.Context) {
	id, err := common.ParseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	depth, err := common.OptionalIntQuery(c, "depth")
	if err != nil {
		response.Error(c, err)
		return
	}

	catalog, err := h.catalogs.Find(c.Request.Context(), id, depth)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, catalog)
}

// ListCategories GET /api/catalogs/:id/categories?depth=
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	id, err := common.ParseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	depth, err := common.OptionalIntQuery(c, "depth")
	if err != nil {
		response.Error(c, err)
		return
	}

	categories, err := h.catalogs.FindCategories(c.Request.Context(), id, depth)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, categories)
}

// Modify PUT /api/catalogs/:id
func (h *CatalogHandler) Modify(c *gin.Context) {
	id, err := common.ParseIDParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req ModifyCatalogRequest
	if err := common.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	if req.ID != nil && *req.ID != id {
		response.Error(c, apperror.Validation("id в теле (%d) не совпадает с id в пути (%d)", *req.ID, id))
		return
	}

	catalog, err := h.catalogs.Modify(c.Request.Context(), service.ModifyCatalogInput{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, catalog)
}
