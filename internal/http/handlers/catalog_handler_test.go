package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/catalog-backend/internal/models"
	"github.com/ignatzorin/catalog-backend/internal/pkg/apperror"
	"github.com/ignatzorin/catalog-backend/internal/service"
)

type mockCatalogUseCase struct {
	mock.Mock
}

func (m *mockCatalogUseCase) Find(ctx context.Context, id int64, depth *int) (*models.Catalog, error) {
	args := m.Called(ctx, id, depth)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Catalog), args.Error(1)
}

func (m *mockCatalogUseCase) FindAll(ctx context.Context, offset, limit *int) ([]models.Catalog, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Catalog), args.Error(1)
}

func (m *mockCatalogUseCase) FindCategories(ctx context.Context, catalogID int64, depth *int) ([]models.Category, error) {
	args := m.Called(ctx, catalogID, depth)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Category), args.Error(1)
}

func (m *mockCatalogUseCase) Modify(ctx context.Context, input service.ModifyCatalogInput) (*models.Catalog, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Catalog), args.Error(1)
}

func intPtr(v int) *int { return &v }

func newCatalogRouter(uc CatalogUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewCatalogHandler(uc)
	r.GET("/catalogs", h.List)
	r.GET("/catalogs/:id", h.Get)
	r.GET("/catalogs/:id/categories", h.ListCategories)
	r.PUT("/catalogs/:id", h.Modify)
	return r
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestCatalogHandler_Get(t *testing.T) {
	uc := new(mockCatalogUseCase)
	r := newCatalogRouter(uc)

	uc.On("Find", mock.Anything, int64(1), intPtr(2)).
		Return(&models.Catalog{ID: 1, Name: "Одежда", Visible: true}, nil)

	w := serve(r, http.MethodGet, "/catalogs/1?depth=2", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"visible":true`)
	uc.AssertExpectations(t)
}

func TestCatalogHandler_Get_NotFound(t *testing.T) {
	uc := new(mockCatalogUseCase)
	r := newCatalogRouter(uc)

	uc.On("Find", mock.Anything, int64(9999), (*int)(nil)).Return(nil, apperror.ErrCatalogNotFound)

	w := serve(r, http.MethodGet, "/catalogs/9999", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))
}

func TestCatalogHandler_Get_BadParams(t *testing.T) {
	uc := new(mockCatalogUseCase)
	r := newCatalogRouter(uc)

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/catalogs/abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/catalogs/1?depth=x", "").Code)
	uc.AssertNotCalled(t, "Find", mock.Anything, mock.Anything, mock.Anything)
}

func TestCatalogHandler_List(t *testing.T) {
	uc := new(mockCatalogUseCase)
	r := newCatalogRouter(uc)

	uc.On("FindAll", mock.Anything, intPtr(0), intPtr(2)).
		Return([]models.Catalog{{ID: 1}, {ID: 2}}, nil)
	uc.On("FindAll", mock.Anything, (*int)(nil), (*int)(nil)).
		Return([]models.Catalog{}, nil)

	w := serve(r, http.MethodGet, "/catalogs?offset=0&limit=2", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)

	w = serve(r, http.MethodGet, "/catalogs", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}

func TestCatalogHandler_List_Validation(t *testing.T) {
	uc := new(mockCatalogUseCase)
	r := newCatalogRouter(uc)

	uc.On("FindAll", mock.Anything, intPtr(-1), (*int)(nil)).
		Return(nil, apperror.Validation("offset не может быть отрицательным"))

	w := serve(r, http.MethodGet, "/catalogs?offset=-1", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

func TestCatalogHandler_ListCategories_DatabaseError(t *testing.T) {
	uc := new(mockCatalogUseCase)
	r := newCatalogRouter(uc)

	uc.On("FindCategories", mock.Anything, int64(3), (*int)(nil)).
		Return(nil, apperror.Wrap(errors.New("pq: connection refused"), apperror.ErrCodeDatabaseError, "не удалось получить категории каталога"))

	w := serve(r, http.MethodGet, "/catalogs/3/categories", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "DATABASE_ERROR", errorCode(t, w))
	assert.NotContains(t, w.Body.String(), "pq:")
}

func TestCatalogHandler_Modify(t *testing.T) {
	uc := new(mockCatalogUseCase)
	r := newCatalogRouter(uc)

	name := "Верхняя одежда"
	uc.On("Modify", mock.Anything, service.ModifyCatalogInput{ID: 1, Name: &name}).
		Return(&models.Catalog{ID: 1, Name: name}, nil)

	w := serve(r, http.MethodPut, "/catalogs/1", `{"name":"Верхняя одежда"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), name)
	uc.AssertExpectations(t)
}

func TestCatalogHandler_Modify_BadBody(t *testing.T) {
	uc := new(mockCatalogUseCase)
	r := newCatalogRouter(uc)

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPut, "/catalogs/1", `{"name":`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPut, "/catalogs/1", `{"id":2,"name":"x"}`).Code)
	uc.AssertNotCalled(t, "Modify", mock.Anything, mock.Anything)
}
