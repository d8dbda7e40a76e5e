package repository

import (
	"context"
	"fmt"
	"math"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/catalog-backend/internal/models"
	"github.com/ignatzorin/catalog-backend/internal/repository/common"
)

var ErrCatalogNotFound = fmt.Errorf("catalog: %w", common.ErrNotFound)

const (
	catalogColumns  = `id, name, description`
	categoryColumns = `id, catalog_id, parent_id, name, description, disabled, start_date, end_date`

	// unboundedLimit подставляется, когда задан только offset:
	// SQLite не принимает OFFSET без LIMIT.
	unboundedLimit int64 = math.MaxInt64
)

type CatalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// FindByID возвращает каталог с прикреплёнными корневыми категориями.
func (r *CatalogRepository) FindByID(ctx context.Context, id int64) (*models.Catalog, error) {
	catalog, err := common.GetByID[models.Catalog](ctx, r.db, "catalogs", catalogColumns, id, ErrCatalogNotFound)
	if err != nil {
		return nil, err
	}

	roots, err := r.listRootCategories(ctx, r.db, []int64{id})
	if err != nil {
		return nil, err
	}
	catalog.RootCategories = roots[id]

	return catalog, nil
}

// FindAll возвращает каталоги по возрастанию id.
// Пустая страница означает весь список.
func (r *CatalogRepository) FindAll(ctx context.Context, page models.Page) ([]models.Catalog, error) {
	query := `SELECT ` + catalogColumns + ` FROM catalogs ORDER BY id`
	var args []interface{}

	if !page.IsZero() {
		limit, offset := unboundedLimit, int64(0)
		if page.Limit != nil {
			limit = int64(*page.Limit)
		}
		if page.Offset != nil {
			offset = int64(*page.Offset)
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	catalogs := []models.Catalog{}
	if err := r.db.SelectContext(ctx, &catalogs, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("catalog repository: find all: %w", err)
	}
	if len(catalogs) == 0 {
		return catalogs, nil
	}

	ids := make([]int64, len(catalogs))
	for i := range catalogs {
		ids[i] = catalogs[i].ID
	}
	roots, err := r.listRootCategories(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range catalogs {
		catalogs[i].RootCategories = roots[catalogs[i].ID]
	}

	return catalogs, nil
}

// Merge обновляет только name и description. Связи с категориями не затрагиваются.
func (r *CatalogRepository) Merge(ctx context.Context, catalog *models.Catalog) (*models.Catalog, error) {
	var merged *models.Catalog

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			tx.Rebind(`UPDATE catalogs SET name = ?, description = ? WHERE id = ?`),
			catalog.Name, catalog.Description, catalog.ID,
		)
		if err != nil {
			return fmt.Errorf("catalog repository: merge: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("catalog repository: merge rows affected: %w", err)
		}
		if affected == 0 {
			return ErrCatalogNotFound
		}

		merged, err = common.GetByID[models.Catalog](ctx, tx, "catalogs", catalogColumns, catalog.ID, ErrCatalogNotFound)
		if err != nil {
			return err
		}

		roots, err := r.listRootCategories(ctx, tx, []int64{catalog.ID})
		if err != nil {
			return err
		}
		merged.RootCategories = roots[catalog.ID]
		return nil
	})
	if err != nil {
		return nil, err
	}

	return merged, nil
}

// FindCategories возвращает все категории каталога (корневые и вложенные).
func (r *CatalogRepository) FindCategories(ctx context.Context, catalogID int64) ([]models.Category, error) {
	categories := []models.Category{}
	err := r.db.SelectContext(ctx, &categories, r.db.Rebind(`
		SELECT `+categoryColumns+`
		FROM categories WHERE catalog_id = ? ORDER BY id
	`), catalogID)
	if err != nil {
		return nil, fmt.Errorf("catalog repository: find categories: %w", err)
	}
	return categories, nil
}

// CatalogExists проверяет наличие каталога без загрузки категорий.
func (r *CatalogRepository) CatalogExists(ctx context.Context, id int64) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT COUNT(*) FROM catalogs WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("catalog repository: exists: %w", err)
	}
	return count > 0, nil
}

// CreateCatalog создаёт каталог. Используется сидом и тестами.
func (r *CatalogRepository) CreateCatalog(ctx context.Context, catalog *models.Catalog) error {
	return r.db.QueryRowxContext(ctx,
		r.db.Rebind(`INSERT INTO catalogs (name, description) VALUES (?, ?) RETURNING id`),
		catalog.Name, catalog.Description,
	).Scan(&catalog.ID)
}

// CreateCategory создаёт категорию в каталоге.
func (r *CatalogRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	if category.CatalogID == 0 {
		return fmt.Errorf("catalog repository: create category: %w", common.ErrInvalidInput)
	}
	return r.db.QueryRowxContext(ctx, r.db.Rebind(`
		INSERT INTO categories (catalog_id, parent_id, name, description, disabled, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`),
		category.CatalogID, category.ParentID, category.Name, category.Description,
		category.Disabled, category.StartDate, category.EndDate,
	).Scan(&category.ID)
}

// listRootCategories загружает корневые категории сразу для нескольких каталогов.
func (r *CatalogRepository) listRootCategories(ctx context.Context, q common.Queryer, catalogIDs []int64) (map[int64][]models.Category, error) {
	query, args, err := sqlx.In(`
		SELECT `+categoryColumns+`
		FROM categories WHERE parent_id IS NULL AND catalog_id IN (?) ORDER BY id
	`, catalogIDs)
	if err != nil {
		return nil, fmt.Errorf("catalog repository: build root categories query: %w", err)
	}

	var categories []models.Category
	if err := q.SelectContext(ctx, &categories, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("catalog repository: list root categories: %w", err)
	}

	byCatalog := make(map[int64][]models.Category, len(catalogIDs))
	for _, c := range categories {
		byCatalog[c.CatalogID] = append(byCatalog[c.CatalogID], c)
	}
	return byCatalog, nil
}
