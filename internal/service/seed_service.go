package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/ignatzorin/catalog-backend/internal/models"
)

// CatalogWriter создаёт каталоги и категории для демо-данных.
type CatalogWriter interface {
	CreateCatalog(ctx context.Context, catalog *models.Catalog) error
	CreateCategory(ctx context.Context, category *models.Category) error
}

// SeedResult - итог генерации.
type SeedResult struct {
	CatalogIDs []int64 `json:"catalog_ids"`
	Categories int     `json:"categories"`
}

// SeedService генерирует демонстрационные каталоги.
type SeedService struct {
	writer CatalogWriter
	rnd    *rand.Rand
	now    func() time.Time
}

// NewSeedService создаёт новый сервис для генерации данных.
func NewSeedService(writer CatalogWriter) *SeedService {
	return &SeedService{
		writer: writer,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
}

var seedCatalogNames = []string{
	"Одежда", "Обувь", "Электроника", "Книги", "Дом и сад",
	"Спорт", "Игрушки", "Автотовары", "Красота", "Продукты",
}

var seedCategoryNames = []string{
	"Новинки", "Хиты продаж", "Распродажа", "Премиум", "Аксессуары",
	"Для детей", "Сезонное", "Подарки", "Эко", "Outlet",
}

// SeedData создаёт numCatalogs каталогов со случайными категориями
// и один пустой каталог. Каждый заполненный каталог получает видимую,
// выключенную, просроченную и ещё не начавшуюся корневую категорию.
func (s *SeedService) SeedData(ctx context.Context, numCatalogs int) (*SeedResult, error) {
	result := &SeedResult{CatalogIDs: make([]int64, 0, numCatalogs+1)}
	now := s.now()

	for i := 0; i < numCatalogs; i++ {
		name := seedCatalogNames[i%len(seedCatalogNames)]
		if i >= len(seedCatalogNames) {
			name = fmt.Sprintf("%s %d", name, i/len(seedCatalogNames)+1)
		}
		catalog := &models.Catalog{Name: name}
		if err := s.writer.CreateCatalog(ctx, catalog); err != nil {
			return nil, fmt.Errorf("seed service: failed to create catalog: %w", err)
		}
		result.CatalogIDs = append(result.CatalogIDs, catalog.ID)

		created, err := s.seedCategories(ctx, catalog.ID, now)
		if err != nil {
			return nil, err
		}
		result.Categories += created
	}

	empty := &models.Catalog{Name: "Пустой каталог"}
	if err := s.writer.CreateCatalog(ctx, empty); err != nil {
		return nil, fmt.Errorf("seed service: failed to create catalog: %w", err)
	}
	result.CatalogIDs = append(result.CatalogIDs, empty.ID)

	return result, nil
}

func (s *SeedService) seedCategories(ctx context.Context, catalogID int64, now time.Time) (int, error) {
	past := now.AddDate(0, -1, 0)
	future := now.AddDate(0, 1, 0)

	roots := []models.Category{
		{Name: s.categoryName()},
		{Name: s.categoryName(), Disabled: true},
		{Name: s.categoryName(), StartDate: &past, EndDate: &now},
		{Name: s.categoryName(), StartDate: &future},
	}

	created := 0
	for i := range roots {
		roots[i].CatalogID = catalogID
		if err := s.writer.CreateCategory(ctx, &roots[i]); err != nil {
			return created, fmt.Errorf("seed service: failed to create category: %w", err)
		}
		created++
	}

	// Подкатегории только у видимого корня.
	parentID := roots[0].ID
	for j := 0; j < 1+s.rnd.Intn(3); j++ {
		child := &models.Category{
			CatalogID: catalogID,
			ParentID:  &parentID,
			Name:      s.categoryName(),
			Disabled:  s.rnd.Intn(4) == 0,
		}
		if err := s.writer.CreateCategory(ctx, child); err != nil {
			return created, fmt.Errorf("seed service: failed to create category: %w", err)
		}
		created++
	}

	return created, nil
}

func (s *SeedService) categoryName() string {
	return seedCategoryNames[s.rnd.Intn(len(seedCategoryNames))]
}
