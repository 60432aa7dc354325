// Package engine implements the streaming merge engine.
//
// A compiled query (sqlast.Result) describes one flat root statement plus
// templates for its to-many relations. The engine reads the root row
// stream, and for every root row:
//
//   - copies root columns to their aliases,
//   - rebuilds to-one objects from columns already present in the row,
//   - materializes and executes each to-many sub-query through an
//     injected Executor, drains it, and merges its rows recursively.
//
// Output is a lazy, finite, non-restartable Stream of merged objects in
// root-stream order.
//
// EXECUTION MODES:
//
// Sequential (default): a row is fully resolved before the next root row
// is read. The engine never reads ahead of the consumer.
//
// Parallel (WithConcurrency(n), n > 1): up to n root rows are resolved
// at once; a FIFO of pending slots restores root order before emission,
// and its capacity bounds read-ahead to n rows.
//
// Each to-many field costs one query per parent row (N+1 access). Use
// WithMaxSubQueries to bound it per stream.
//
// CANCELLATION:
//
// Closing a Stream cancels its context. In-flight root reads and sub-query
// executions observe it; partially merged rows are discarded.
package engine
