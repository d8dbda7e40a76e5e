package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/catalog-backend/internal/logger"
	"github.com/ignatzorin/catalog-backend/internal/metrics"
	"github.com/ignatzorin/catalog-backend/internal/models"
)

// Cache - хранилище байтов с TTL (Redis или память).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Store - операции хранилища каталогов, которые кэшируются декоратором.
type Store interface {
	FindByID(ctx context.Context, id int64) (*models.Catalog, error)
	FindAll(ctx context.Context, page models.Page) ([]models.Catalog, error)
	Merge(ctx context.Context, catalog *models.Catalog) (*models.Catalog, error)
	FindCategories(ctx context.Context, catalogID int64) ([]models.Category, error)
	CatalogExists(ctx context.Context, id int64) (bool, error)
	CreateCatalog(ctx context.Context, catalog *models.Catalog) error
	CreateCategory(ctx context.Context, category *models.Category) error
}

// CachedCatalogRepository кэширует чтение агрегатов по id.
// В кэш попадают сырые данные хранилища: видимость считается уже после чтения.
type CachedCatalogRepository struct {
	Store
	cache Cache
	ttl   time.Duration
}

func NewCachedCatalogRepository(store Store, cache Cache, ttl time.Duration) *CachedCatalogRepository {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedCatalogRepository{Store: store, cache: cache, ttl: ttl}
}

func catalogKey(id int64) string {
	return fmt.Sprintf("catalog:%d", id)
}

func categoriesKey(catalogID int64) string {
	return fmt.Sprintf("catalog:%d:categories", catalogID)
}

// FindByID читает каталог из кэша, при промахе идёт в хранилище.
func (r *CachedCatalogRepository) FindByID(ctx context.Context, id int64) (*models.Catalog, error) {
	var cached models.Catalog
	if r.lookup(ctx, "catalog", catalogKey(id), &cached) {
		return &cached, nil
	}

	catalog, err := r.Store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, catalogKey(id), catalog)
	return catalog, nil
}

// FindCategories кэширует плоский список категорий каталога.
func (r *CachedCatalogRepository) FindCategories(ctx context.Context, catalogID int64) ([]models.Category, error) {
	var cached []models.Category
	if r.lookup(ctx, "categories", categoriesKey(catalogID), &cached) {
		return cached, nil
	}

	categories, err := r.Store.FindCategories(ctx, catalogID)
	if err != nil {
		return nil, err
	}
	r.store(ctx, categoriesKey(catalogID), categories)
	return categories, nil
}

// Merge сохраняет изменения и сбрасывает закэшированный агрегат.
func (r *CachedCatalogRepository) Merge(ctx context.Context, catalog *models.Catalog) (*models.Catalog, error) {
	merged, err := r.Store.Merge(ctx, catalog)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, catalog.ID, catalogKey(catalog.ID))
	return merged, nil
}

// CreateCategory добавляет категорию и сбрасывает агрегат и список категорий каталога.
func (r *CachedCatalogRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	if err := r.Store.CreateCategory(ctx, category); err != nil {
		return err
	}
	r.invalidate(ctx, category.CatalogID, catalogKey(category.CatalogID), categoriesKey(category.CatalogID))
	return nil
}

func (r *CachedCatalogRepository) invalidate(ctx context.Context, catalogID int64, keys ...string) {
	if err := r.cache.Delete(ctx, keys...); err != nil {
		logger.Log.WithFields(logrus.Fields{"catalog_id": catalogID, "error": err}).Warn("catalog cache invalidate failed")
	}
}

// lookup возвращает true при попадании. Ошибки кэша не прерывают запрос.
func (r *CachedCatalogRepository) lookup(ctx context.Context, kind, key string, dest interface{}) bool {
	raw, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "error": err}).Warn("catalog cache get failed")
		metrics.CacheLookups.WithLabelValues(kind, "error").Inc()
		return false
	}
	if !ok {
		metrics.CacheLookups.WithLabelValues(kind, "miss").Inc()
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "error": err}).Warn("catalog cache entry is corrupted")
		metrics.CacheLookups.WithLabelValues(kind, "error").Inc()
		return false
	}
	metrics.CacheLookups.WithLabelValues(kind, "hit").Inc()
	return true
}

func (r *CachedCatalogRepository) store(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "error": err}).Warn("catalog cache marshal failed")
		return
	}
	if err := r.cache.Set(ctx, key, raw, r.ttl); err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "error": err}).Warn("catalog cache set failed")
	}
}
