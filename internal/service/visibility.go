package service

import (
	"context"
	"time"

	"github.com/ignatzorin/catalog-backend/internal/models"
)

type privilegeKey struct{}

// WithPrivilege помечает запрос как привилегированный (администратор).
// Такие вызовы видят скрытые категории и каталоги.
func WithPrivilege(ctx context.Context) context.Context {
	return context.WithValue(ctx, privilegeKey{}, true)
}

func IsPrivileged(ctx context.Context) bool {
	v, _ := ctx.Value(privilegeKey{}).(bool)
	return v
}

// selectCategories оставляет видимые категории. Возвращает новый срез.
func selectCategories(categories []models.Category, now time.Time, privileged bool) []models.Category {
	out := make([]models.Category, 0, len(categories))
	for _, c := range categories {
		if privileged || c.IsVisibleAt(now) {
			out = append(out, c)
		}
	}
	return out
}

func childrenByParent(all []models.Category) map[int64][]models.Category {
	byParent := make(map[int64][]models.Category)
	for _, c := range all {
		if c.ParentID == nil {
			continue
		}
		byParent[*c.ParentID] = append(byParent[*c.ParentID], c)
	}
	return byParent
}

// attachChildren раскрывает подкатегории на depth уровней.
// Невидимая категория скрывает и всё своё поддерево.
func attachChildren(categories []models.Category, byParent map[int64][]models.Category, depth int, now time.Time, privileged bool) []models.Category {
	out := make([]models.Category, len(categories))
	for i, c := range categories {
		c.Children = nil
		if depth > 0 {
			children := selectCategories(byParent[c.ID], now, privileged)
			c.Children = attachChildren(children, byParent, depth-1, now, privileged)
		}
		out[i] = c
	}
	return out
}

func paginate(catalogs []models.Catalog, page models.Page) []models.Catalog {
	start := 0
	if page.Offset != nil {
		start = *page.Offset
	}
	if start >= len(catalogs) {
		return []models.Catalog{}
	}
	end := len(catalogs)
	if page.Limit != nil && *page.Limit < end-start {
		end = start + *page.Limit
	}
	return catalogs[start:end]
}
