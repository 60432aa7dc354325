package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/roach88/absql/internal/querysql"
)

// Store runs compiled queries against one database.
// It is safe for concurrent use.
type Store struct {
	db       *sql.DB
	driver   string
	compiler *querysql.SQLCompiler
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*options)

type options struct {
	dialect querysql.Dialect
	logger  *slog.Logger
}

// WithDialect overrides the dialect derived from the driver name.
func WithDialect(d querysql.Dialect) Option {
	return func(o *options) {
		o.dialect = d
	}
}

// WithLogger sets a custom logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// sqliteDriver is go-sqlite3 with the required pragmas applied to every
// new connection. busy_timeout and foreign_keys are per-connection
// settings, so running them once on the pool is not enough.
const sqliteDriver = "sqlite3_absql"

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: applyPragmas,
	})
}

// Open connects to a database with the named database/sql driver.
//
// For sqlite3 the required pragmas are applied (see package docs). The
// connection is verified with a ping before Open returns.
func Open(driver, dsn string, opts ...Option) (*Store, error) {
	name := driver
	if isSQLite(driver) {
		name = sqliteDriver
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s, err := NewWithDB(db, driver, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing connection pool. The store takes ownership
// of db and closes it on Close. driver selects the dialect unless
// WithDialect is given.
func NewWithDB(db *sql.DB, driver string, opts ...Option) (*Store, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.dialect == nil {
		d, err := querysql.DialectFor(driver)
		if err != nil {
			return nil, fmt.Errorf("driver %q: %w", driver, err)
		}
		o.dialect = d
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	return &Store{
		db:       db,
		driver:   driver,
		compiler: querysql.NewSQLCompiler(o.dialect),
		logger:   o.logger,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the SQL dialect queries are rendered in.
func (s *Store) Dialect() querysql.Dialect {
	return s.compiler.Dialect()
}

// Exec runs a statement that returns no rows, such as schema setup.
func (s *Store) Exec(ctx context.Context, stmt string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

func isSQLite(driver string) bool {
	return strings.HasPrefix(strings.ToLower(driver), "sqlite")
}

// applyPragmas sets required SQLite configuration on one connection.
func applyPragmas(conn *sqlite3.SQLiteConn) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma, nil); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
