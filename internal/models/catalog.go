package models

import (
	"strings"
	"time"
)

// Catalog представляет каталог с корневыми категориями.
type Catalog struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description,omitempty"`

	// Заполняются при чтении, в таблицу catalogs не пишутся.
	RootCategories []Category `db:"-" json:"root_categories,omitempty"`
	Visible        bool       `db:"-" json:"visible"`
}

// Category представляет узел иерархии каталога.
type Category struct {
	ID          int64      `db:"id" json:"id"`
	CatalogID   int64      `db:"catalog_id" json:"catalog_id"`
	ParentID    *int64     `db:"parent_id" json:"parent_id,omitempty"`
	Name        string     `db:"name" json:"name"`
	Description *string    `db:"description" json:"description,omitempty"`
	Disabled    bool       `db:"disabled" json:"disabled"`
	StartDate   *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate     *time.Time `db:"end_date" json:"end_date,omitempty"`
	Children    []Category `db:"-" json:"children,omitempty"`
}

// IsRoot сообщает, что категория принадлежит каталогу напрямую.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// IsExpiredAt проверяет окно активности категории на момент now.
// Окно полуоткрытое: [StartDate, EndDate).
func (c *Category) IsExpiredAt(now time.Time) bool {
	if c.StartDate != nil && now.Before(*c.StartDate) {
		return true
	}
	if c.EndDate != nil && !now.Before(*c.EndDate) {
		return true
	}
	return false
}

// IsVisibleAt возвращает true, если категория включена и не просрочена.
func (c *Category) IsVisibleAt(now time.Time) bool {
	return !c.Disabled && !c.IsExpiredAt(now)
}

// CatalogPatch содержит скалярные поля, которые разрешено менять через modify.
// nil означает "не менять".
type CatalogPatch struct {
	Name        *string
	Description *string
}

// ApplyPatch переносит разрешённые поля на сохранённый каталог.
// RootCategories не трогаются.
func (c *Catalog) ApplyPatch(p CatalogPatch) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		c.Description = p.Description
	}
}

// Page описывает необязательную пагинацию списка каталогов.
type Page struct {
	Offset *int
	Limit  *int
}

// IsZero сообщает, что пагинация не задана.
func (p Page) IsZero() bool {
	return p.Offset == nil && p.Limit == nil
}
