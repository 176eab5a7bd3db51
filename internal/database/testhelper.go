package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sunnyside/kitchen/internal/config"
	_ "modernc.org/sqlite"
)

// NewInMemory creates a migrated in-memory database for tests and dry runs.
// A single connection keeps every query on the same in-memory schema.
func NewInMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	db := &DB{
		DB:     sqlDB,
		path:   ":memory:",
		config: &config.DatabaseConfig{},
	}

	m, err := NewMigrator(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if _, err := m.MigrateUp(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating in-memory database: %w", err)
	}

	return db, nil
}
