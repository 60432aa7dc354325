// Package harness provides a conformance testing framework for absql.
//
// A scenario describes a database fixture, one abstract query, and the
// merged rows it must produce. Run executes the scenario end-to-end: it
// seeds a fresh SQLite file database, compiles the query, executes the
// root statement and every materialized sub-query through store.Store,
// merges the rows with the engine, and compares the result.
//
// # Scenario Format
//
//	name: orders_with_items
//	description: Orders over 100 with their line items
//	setup:
//	  - CREATE TABLE orders (id INTEGER PRIMARY KEY, total INTEGER)
//	  - CREATE TABLE items (order_id INTEGER, sku TEXT, qty INTEGER)
//	tables:
//	  orders:
//	    - {id: 1, total: 250}
//	  items:
//	    - {order_id: 1, sku: A-1, qty: 2}
//	query:
//	  collection: orders
//	  fields:
//	    - {type: primitive, field: id, alias: id}
//	    - type: nested-single-many
//	      alias: lineItems
//	      nesting:
//	        local: {fields: [id]}
//	        foreign: {collection: items, fields: [order_id]}
//	      fields:
//	        - {type: primitive, field: sku, alias: sku}
//	expect:
//	  rows:
//	    - {id: 1, lineItems: [{sku: A-1}]}
//
// Instead of (or besides) exact rows, a scenario can list assertions:
// row_count, row_contains, row_order, statement_count and
// statement_contains. Expect.Error names the error code a failing query
// must produce, such as EXECUTION_FAILED or COMPILE_FAILED.
//
// # Determinism
//
// Each scenario gets its own database in a temp directory, so scenarios
// are isolated and may run in parallel. The run ID is fixed per scenario
// (default "test-run-default") so golden snapshots (see RunWithGolden)
// are reproducible. Golden snapshots list statements sorted, so they do
// not depend on the merge concurrency.
package harness
