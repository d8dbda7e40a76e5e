package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/catalog-backend/internal/logger"
	"github.com/ignatzorin/catalog-backend/internal/metrics"
	"github.com/ignatzorin/catalog-backend/internal/models"
	"github.com/ignatzorin/catalog-backend/internal/pkg/apperror"
	"github.com/ignatzorin/catalog-backend/internal/repository/common"
	"github.com/ignatzorin/catalog-backend/internal/validation"
)

// EventCatalogModified отправляется подписчикам каталога после modify.
const EventCatalogModified = "catalog.modified"

type CatalogStore interface {
	FindByID(ctx context.Context, id int64) (*models.Catalog, error)
	FindAll(ctx context.Context, page models.Page) ([]models.Catalog, error)
	Merge(ctx context.Context, catalog *models.Catalog) (*models.Catalog, error)
	FindCategories(ctx context.Context, catalogID int64) ([]models.Category, error)
	CatalogExists(ctx context.Context, id int64) (bool, error)
}

// CatalogNotifier рассылает события об изменении каталога.
type CatalogNotifier interface {
	BroadcastToCatalog(catalogID int64, event string, data any) error
}

// VisibilityPolicy определяет видимость на уровне каталога.
type VisibilityPolicy string

const (
	// VisibilityExists: существующий каталог всегда видим.
	VisibilityExists VisibilityPolicy = "exists"
	// VisibilityRoots: каталог видим, если у него есть видимая корневая категория.
	VisibilityRoots VisibilityPolicy = "roots"
	// VisibilityFilter: как roots, но невидимые каталоги скрыты из find/findAll.
	VisibilityFilter VisibilityPolicy = "filter"
)

// ParseVisibilityPolicy разбирает значение CATALOG_VISIBILITY_POLICY.
func ParseVisibilityPolicy(v string) (VisibilityPolicy, error) {
	switch p := VisibilityPolicy(strings.ToLower(strings.TrimSpace(v))); p {
	case VisibilityExists, VisibilityRoots, VisibilityFilter:
		return p, nil
	case "":
		return VisibilityRoots, nil
	default:
		return "", fmt.Errorf("неизвестная политика видимости каталога %q", v)
	}
}

// ModifyCatalogInput - отсоединённое представление каталога для modify.
// Категории не передаются и не учитываются.
type ModifyCatalogInput struct {
	ID          int64
	Name        *string
	Description *string
}

type CatalogService struct {
	store    CatalogStore
	policy   VisibilityPolicy
	notifier CatalogNotifier
	now      func() time.Time
}

func NewCatalogService(store CatalogStore, policy VisibilityPolicy) *CatalogService {
	if policy == "" {
		policy = VisibilityRoots
	}
	return &CatalogService{
		store:  store,
		policy: policy,
		now:    time.Now,
	}
}

// SetNotifier устанавливает получателя событий об изменениях.
func (s *CatalogService) SetNotifier(n CatalogNotifier) {
	s.notifier = n
}

// Find возвращает каталог с вычисленной видимостью.
// depth задаёт глубину раскрытия подкатегорий, nil - только корневые.
func (s *CatalogService) Find(ctx context.Context, id int64, depth *int) (*models.Catalog, error) {
	if err := validateDepth(depth); err != nil {
		return nil, err
	}

	catalog, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "не удалось получить каталог")
	}

	now := s.now()
	privileged := IsPrivileged(ctx)

	catalog.Visible = s.catalogVisible(catalog, now)
	if s.policy == VisibilityFilter && !catalog.Visible && !privileged {
		return nil, apperror.ErrCatalogNotFound
	}

	roots := selectCategories(catalog.RootCategories, now, privileged)
	if depth != nil && *depth > 0 && len(roots) > 0 {
		all, err := s.store.FindCategories(ctx, id)
		if err != nil {
			return nil, storeError(err, "не удалось получить категории каталога")
		}
		roots = attachChildren(roots, childrenByParent(all), *depth, now, privileged)
	}
	catalog.RootCategories = roots

	return catalog, nil
}

// FindAll возвращает каталоги с необязательной пагинацией.
func (s *CatalogService) FindAll(ctx context.Context, offset, limit *int) ([]models.Catalog, error) {
	if offset != nil && *offset < 0 {
		return nil, apperror.Validation("offset не может быть отрицательным")
	}
	if limit != nil && *limit < 0 {
		return nil, apperror.Validation("limit не может быть отрицательным")
	}

	now := s.now()
	privileged := IsPrivileged(ctx)
	page := models.Page{Offset: offset, Limit: limit}

	// При фильтрующей политике страница отсчитывается по уже отфильтрованному списку.
	filtering := s.policy == VisibilityFilter && !privileged
	storePage := page
	if filtering {
		storePage = models.Page{}
	}

	catalogs, err := s.store.FindAll(ctx, storePage)
	if err != nil {
		return nil, storeError(err, "не удалось получить список каталогов")
	}

	result := make([]models.Catalog, 0, len(catalogs))
	for _, c := range catalogs {
		c.Visible = s.catalogVisible(&c, now)
		if filtering && !c.Visible {
			continue
		}
		c.RootCategories = selectCategories(c.RootCategories, now, privileged)
		result = append(result, c)
	}

	if filtering {
		result = paginate(result, page)
	}
	return result, nil
}

// FindCategories возвращает видимые корневые категории каталога.
// Отсутствующий каталог - NotFound, пустой - пустой список.
func (s *CatalogService) FindCategories(ctx context.Context, catalogID int64, depth *int) ([]models.Category, error) {
	if err := validateDepth(depth); err != nil {
		return nil, err
	}

	exists, err := s.store.CatalogExists(ctx, catalogID)
	if err != nil {
		return nil, storeError(err, "не удалось проверить каталог")
	}
	if !exists {
		return nil, apperror.ErrCatalogNotFound
	}

	all, err := s.store.FindCategories(ctx, catalogID)
	if err != nil {
		return nil, storeError(err, "не удалось получить категории каталога")
	}

	now := s.now()
	privileged := IsPrivileged(ctx)

	roots := make([]models.Category, 0, len(all))
	for _, c := range all {
		if c.IsRoot() {
			roots = append(roots, c)
		}
	}
	roots = selectCategories(roots, now, privileged)

	if depth != nil && *depth > 0 {
		roots = attachChildren(roots, childrenByParent(all), *depth, now, privileged)
	}
	return roots, nil
}

// Modify переносит name/description на сохранённый каталог.
// Корневые категории остаются нетронутыми.
func (s *CatalogService) Modify(ctx context.Context, input ModifyCatalogInput) (*models.Catalog, error) {
	if input.ID <= 0 {
		return nil, apperror.Validation("id каталога обязателен")
	}
	if input.Name != nil {
		if err := validation.ValidateCatalogName(*input.Name); err != nil {
			return nil, apperror.Validation("%s", err.Error())
		}
	}
	if input.Description != nil {
		if err := validation.ValidateCatalogDescription(*input.Description); err != nil {
			return nil, apperror.Validation("%s", err.Error())
		}
	}

	stored, err := s.store.FindByID(ctx, input.ID)
	if err != nil {
		return nil, storeError(err, "не удалось получить каталог")
	}

	stored.ApplyPatch(models.CatalogPatch{Name: input.Name, Description: input.Description})

	merged, err := s.store.Merge(ctx, stored)
	if err != nil {
		return nil, storeError(err, "не удалось обновить каталог")
	}

	now := s.now()
	merged.Visible = s.catalogVisible(merged, now)
	merged.RootCategories = selectCategories(merged.RootCategories, now, IsPrivileged(ctx))
	metrics.CatalogModifications.Inc()

	s.notifyModified(merged)
	return merged, nil
}

func (s *CatalogService) catalogVisible(catalog *models.Catalog, now time.Time) bool {
	if s.policy == VisibilityExists {
		return true
	}
	for i := range catalog.RootCategories {
		if catalog.RootCategories[i].IsVisibleAt(now) {
			return true
		}
	}
	return false
}

func (s *CatalogService) notifyModified(catalog *models.Catalog) {
	if s.notifier == nil {
		return
	}
	payload := map[string]any{
		"id":          catalog.ID,
		"name":        catalog.Name,
		"description": catalog.Description,
	}
	if err := s.notifier.BroadcastToCatalog(catalog.ID, EventCatalogModified, payload); err != nil {
		logger.Log.WithFields(logrus.Fields{
			"catalog_id": catalog.ID,
			"error":      err,
		}).Warn("catalog service: не удалось отправить событие")
	}
}

// storeError отделяет "не найдено" от сбоев хранилища.
func storeError(err error, message string) error {
	if errors.Is(err, common.ErrNotFound) || apperror.IsNotFound(err) {
		return apperror.ErrCatalogNotFound
	}
	return apperror.Wrap(err, apperror.ErrCodeDatabaseError, message)
}

func validateDepth(depth *int) error {
	if depth != nil && *depth < 0 {
		return apperror.Validation("depth не может быть отрицательным")
	}
	return nil
}
