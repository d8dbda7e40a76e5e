package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

func init() {
	// modernc регистрируется как "sqlite", sqlx по умолчанию знает только "sqlite3".
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// NewSQLite открывает локальную базу SQLite. Путь ":memory:" создаёт базу в памяти.
func NewSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	if path == "" {
		path = "catalog.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("sqlite: не удалось создать каталог для базы: %w", err)
		}
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)"
	}

	conn, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: не удалось открыть базу: %w", err)
	}

	// База ":memory:" существует только внутри одного соединения.
	conn.SetMaxOpenConns(1)

	return conn, nil
}
