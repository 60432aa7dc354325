package sqlast

import "github.com/roach88/absql/internal/queryir"

// Result is everything one compile pass produces: a statement, the
// templates for its to-many relations, and the mapping that reassembles
// its rows.
type Result struct {
	Root         Query
	SubQueries   []SubQuery
	AliasMapping AliasMapping
}

// SubQuery is a deferred statement for one to-many relation.
//
// It holds the relation's field node as written by the caller and the
// column indexes, in the parent statement, of the local key columns. It
// becomes a runnable Result only once a parent row supplies the key
// values (see compiler.Materialize).
type SubQuery struct {
	Field queryir.NestedMany
	// KeyColumns[i] is the parent ColumnIndex holding the value of
	// Field.Nesting.Local.Fields[i].
	KeyColumns []int
}

// Alias returns the output key the sub-query's rows are nested under.
func (s SubQuery) Alias() string {
	return s.Field.Alias
}

// AliasMapping mirrors the requested field order and says where each
// output value comes from.
type AliasMapping []AliasEntry

// AliasEntry is one mapping entry.
//
// This is a sealed interface. AliasEntry types:
//   - RootAlias: value is a column of the current row
//   - NestedAlias: value is an object built from the same row (to-one)
//   - SubAlias: value is an array built from a sub-query (to-many)
type AliasEntry interface {
	aliasEntry()
	// Key returns the output key.
	Key() string
}

// RootAlias copies column ColumnIndex to Alias.
type RootAlias struct {
	Alias       string
	ColumnIndex int
}

func (RootAlias) aliasEntry()    {}
func (a RootAlias) Key() string { return a.Alias }

// NestedAlias builds an object under Alias from Children, reading the
// same row.
type NestedAlias struct {
	Alias    string
	Children AliasMapping
}

func (NestedAlias) aliasEntry()    {}
func (a NestedAlias) Key() string { return a.Alias }

// SubAlias nests the rows of SubQueries[Index] under Alias.
type SubAlias struct {
	Alias string
	Index int
}

func (SubAlias) aliasEntry()    {}
func (a SubAlias) Key() string { return a.Alias }
