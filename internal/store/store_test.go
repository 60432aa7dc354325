package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/absql/internal/querysql"
	"github.com/roach88/absql/internal/testutil"
)

// createTestStore opens a SQLite store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open("sqlite3", path, WithLogger(testutil.DiscardLogger()))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createOrdersSchema creates and fills the orders and items tables from
// testutil.OrdersTables.
func createOrdersSchema(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	for _, stmt := range []string{
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, total INTEGER NOT NULL)`,
		`CREATE TABLE items (order_id INTEGER NOT NULL REFERENCES orders(id), sku TEXT NOT NULL, qty INTEGER NOT NULL)`,
	} {
		if err := s.Exec(ctx, stmt); err != nil {
			t.Fatalf("Exec(%q) failed: %v", stmt, err)
		}
	}

	tables := testutil.OrdersTables()
	for _, table := range []string{"orders", "items"} {
		if err := s.Insert(ctx, table, tables[table]); err != nil {
			t.Fatalf("Insert(%s) failed: %v", table, err)
		}
	}
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open("sqlite3", path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		pragma   string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.pragma, func(t *testing.T) {
			if err := s.verifyPragma(tt.pragma, tt.expected); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestOpen_PragmasOnEveryConnection(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Hold two connections at once so the pool has to open a second one.
	c1, err := s.db.Conn(ctx)
	if err != nil {
		t.Fatalf("Conn() failed: %v", err)
	}
	defer c1.Close()
	c2, err := s.db.Conn(ctx)
	if err != nil {
		t.Fatalf("Conn() failed: %v", err)
	}
	defer c2.Close()

	var fk int
	if err := c2.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys on second connection = %d, want 1", fk)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("oracle", "scott/tiger")
	if err == nil {
		t.Fatal("Open() with unregistered driver should fail")
	}
}

func TestOpen_DialectFromDriver(t *testing.T) {
	s := createTestStore(t)

	if got := s.Dialect().Name(); got != "sqlite" {
		t.Errorf("Dialect() = %q, want sqlite", got)
	}
}

func TestOpen_WithDialect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open("sqlite3", path, WithDialect(querysql.Postgres{}))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if got := s.Dialect().Name(); got != "postgres" {
		t.Errorf("Dialect() = %q, want postgres", got)
	}
}

func TestClose_Nil(t *testing.T) {
	s := &Store{}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on empty store = %v", err)
	}
}
