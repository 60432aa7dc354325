// Package sqlast defines the relational intermediate representation that
// the compiler emits: select/from/join/where/order/limit/offset clauses
// plus a flat, positionally indexed parameter list.
//
// Tables and columns are addressed by index, never by generated name.
// Every table in one statement has a distinct TableIndex and every
// selected column a distinct ColumnIndex. The renderer and the executor
// decide how indexes become SQL aliases and result-row keys.
//
// PARAMETERS:
//
// Literals never appear in the tree. Each one is appended to
// Query.Parameters and referenced by ValueRef.ParameterIndex (or
// ValuesRef.ParameterIndexes for sets). CheckParameters verifies that the
// references and the list agree exactly: no gaps, no duplicates, no
// dangling indexes.
//
// NEGATION:
//
// Where nodes carry a resolved Negate flag. There is no NOT wrapper node;
// the compiler folds input negations into the flags.
//
// RESULTS:
//
// A Result bundles the root statement, the alias mapping that turns its
// flat rows back into nested objects, and one SubQuery template per
// to-many relation. Templates are plain data; compiler.Materialize turns a
// template plus a parent row into a standalone Result.
package sqlast
