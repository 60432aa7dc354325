// Package store executes compiled relational queries against a
// database/sql connection.
//
// A Store renders a sqlast.Query to dialect SQL with querysql, runs it
// with QueryContext, and streams the result rows back as ir.Object values
// keyed by result column name (c0, c1, ...). It implements
// engine.Executor, so a Store is what the merge engine runs root queries
// and materialized sub-queries against.
//
// # Drivers
//
// The sqlite3 (github.com/mattn/go-sqlite3), postgres (github.com/lib/pq)
// and mysql (github.com/go-sql-driver/mysql) drivers are registered by
// this package. The SQL dialect is derived from the driver name unless
// WithDialect overrides it.
//
// # SQLite Configuration
//
//   - WAL mode: Concurrent reads while sub-queries run
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The connection pool is not limited to one connection. The merge engine
// keeps the root cursor open while sub-queries run, so a single
// connection would deadlock. Use a file database rather than :memory:,
// since every pooled connection to :memory: sees its own empty database.
//
// # Value Conversion
//
// Driver values are converted with ir.FromAny. time.Time becomes an
// RFC 3339 string. Raw bytes are decoded by the column's database type,
// so MySQL's text protocol still yields numbers for numeric columns.
package store
