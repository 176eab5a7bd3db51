// Package testutil provides in-memory databases and fixtures for kitchen tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sunnyside/kitchen/internal/database"

	_ "modernc.org/sqlite" // SQLite driver
)

// TestDB wraps a test database connection.
type TestDB struct {
	*sql.DB
}

// NewTestDB creates an empty in-memory SQLite database.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// Every pooled connection would get its own empty :memory: database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	tdb := &TestDB{DB: db}
	t.Cleanup(func() { tdb.Close(t) })
	return tdb
}

// NewMigratedDB creates an in-memory database with the embedded schema applied.
func NewMigratedDB(t *testing.T) *TestDB {
	t.Helper()

	db, err := database.NewInMemory()
	if err != nil {
		t.Fatalf("failed to create migrated database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return &TestDB{DB: db.DB}
}

// RunMigrations executes the Up half of every .sql file in migrationsDir, in name order.
func (tdb *TestDB) RunMigrations(t *testing.T, migrationsDir string) {
	t.Helper()

	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("failed to read migrations directory: %v", err)
	}

	ctx := context.Background()
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".sql" {
			continue
		}

		sqlBytes, err := os.ReadFile(filepath.Join(migrationsDir, file.Name()))
		if err != nil {
			t.Fatalf("failed to read migration %s: %v", file.Name(), err)
		}

		script := string(sqlBytes)
		if idx := strings.Index(script, "-- +migrate Down"); idx >= 0 {
			script = script[:idx]
		}

		if _, err := tdb.ExecContext(ctx, script); err != nil {
			t.Fatalf("failed to execute migration %s: %v", file.Name(), err)
		}
	}
}

// Close closes the test database.
func (tdb *TestDB) Close(t *testing.T) {
	t.Helper()

	if err := tdb.DB.Close(); err != nil && !strings.Contains(err.Error(), "closed") {
		t.Errorf("failed to close test database: %v", err)
	}
}

// AssertRowCount asserts the row count for a table.
func (tdb *TestDB) AssertRowCount(t *testing.T, table string, expected int) {
	t.Helper()

	var count int
	if err := tdb.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
		t.Fatalf("failed to count rows in %s: %v", table, err)
	}

	if count != expected {
		t.Errorf("expected %d rows in %s, got %d", expected, table, count)
	}
}

// ExecSQL executes arbitrary SQL for test setup.
func (tdb *TestDB) ExecSQL(t *testing.T, query string, args ...any) {
	t.Helper()

	if _, err := tdb.Exec(query, args...); err != nil {
		t.Fatalf("failed to execute SQL: %v\nSQL: %s", err, query)
	}
}

// StockOf reads a product's stored stock quantity as text.
func (tdb *TestDB) StockOf(t *testing.T, productID string) string {
	t.Helper()

	var qty string
	if err := tdb.QueryRow("SELECT stock_quantity FROM products WHERE id = ?", productID).Scan(&qty); err != nil {
		t.Fatalf("failed to read stock of %s: %v", productID, err)
	}
	return qty
}
