package db

import (
	"context"
	"embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/ignatzorin/catalog-backend/internal/logger"
)

//go:embed migrations
var embedMigrations embed.FS

// Поддерживаемые драйверы базы.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open подключается к базе выбранного драйвера.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverPostgres:
		return NewPostgres(ctx, dsn)
	case DriverSQLite:
		return NewSQLite(ctx, dsn)
	default:
		return nil, fmt.Errorf("db: неизвестный драйвер %q", driver)
	}
}

// RunMigrations применяет встроенные миграции goose для указанного драйвера.
func RunMigrations(ctx context.Context, conn *sqlx.DB, driver string) error {
	dialect, dir, err := migrationsFor(driver)
	if err != nil {
		return err
	}

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(logger.Log)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("db: goose set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, conn.DB, dir); err != nil {
		return fmt.Errorf("db: goose up: %w", err)
	}

	return nil
}

// migrationsFor возвращает диалект goose и каталог миграций.
func migrationsFor(driver string) (string, string, error) {
	switch driver {
	case DriverPostgres:
		return "postgres", "migrations/postgres", nil
	case DriverSQLite:
		return "sqlite3", "migrations/sqlite", nil
	default:
		return "", "", fmt.Errorf("db: нет миграций для драйвера %q", driver)
	}
}
