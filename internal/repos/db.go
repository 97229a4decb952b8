package repos

import (
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	applog "shopapp/internal/log"
)

// OpenDB opens the catalog snapshot database and ensures its schema.
// In-memory databases are pinned to a single connection, since every new
// connection to ":memory:" would otherwise see an empty database.
func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	applog.Info(nil, "db.open", map[string]any{"dsn": dsn})
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
-- Products, in the order the catalog returned them
CREATE TABLE IF NOT EXISTS products(
  id INTEGER PRIMARY KEY,
  position INTEGER NOT NULL,
  title TEXT NOT NULL,
  price TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL,
  image TEXT NOT NULL DEFAULT '',
  rating_rate REAL NOT NULL DEFAULT 0,
  rating_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_products_position ON products(position);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);

-- Categories
CREATE TABLE IF NOT EXISTS categories(
  name TEXT PRIMARY KEY,
  position INTEGER NOT NULL
);

-- When each snapshot was last replaced
CREATE TABLE IF NOT EXISTS snapshots(
  name TEXT PRIMARY KEY,
  fetched_at TEXT NOT NULL
);
`
	_, err := db.Exec(schema)
	return err
}
