package compiler

import (
	"fmt"

	"github.com/roach88/absql/internal/queryir"
	"github.com/roach88/absql/internal/sqlast"
)

// fieldCompiler walks a requested field list and accumulates the select
// list, to-one joins, and sub-query templates of one statement.
//
// Accumulating in one place keeps SubAlias indexes global: a to-many
// relation nested inside a to-one relation still points into the
// statement's single SubQueries list.
type fieldCompiler struct {
	idx        *IndexAllocator
	selects    []sqlast.Select
	joins      []sqlast.Join
	subQueries []sqlast.SubQuery
}

func newFieldCompiler(idx *IndexAllocator) *fieldCompiler {
	return &fieldCompiler{idx: idx}
}

// convert compiles fields against tableIndex and returns their alias
// mapping, in field order.
func (fc *fieldCompiler) convert(fields []queryir.Field, tableIndex int, path string) (sqlast.AliasMapping, error) {
	mapping := make(sqlast.AliasMapping, 0, len(fields))

	for i, f := range fields {
		fp := fmt.Sprintf("%s[%d]", path, i)

		switch field := f.(type) {
		case queryir.Primitive:
			col := fc.addSelect(sqlast.Column{TableIndex: tableIndex, Column: field.Field})
			mapping = append(mapping, sqlast.RootAlias{Alias: field.Alias, ColumnIndex: col})

		case queryir.Fn:
			col := fc.addSelect(sqlast.FnColumn{Function: field.Function, TableIndex: tableIndex, Column: field.Field})
			mapping = append(mapping, sqlast.RootAlias{Alias: field.Alias, ColumnIndex: col})

		case queryir.NestedOne:
			foreignIndex := fc.idx.NextTable()
			join, err := createJoin(field.Nesting, tableIndex, foreignIndex)
			if err != nil {
				return nil, withPath(err, fp)
			}
			// The synthesized join precedes any joins the nested fields add.
			fc.joins = append(fc.joins, join)

			children, err := fc.convert(field.Fields, foreignIndex, fp+".fields")
			if err != nil {
				return nil, err
			}
			mapping = append(mapping, sqlast.NestedAlias{Alias: field.Alias, Children: children})

		case queryir.NestedMany:
			nm, err := buildNestedMany(field, tableIndex, fc.idx)
			if err != nil {
				return nil, withPath(err, fp)
			}
			fc.selects = append(fc.selects, nm.selects...)
			fc.subQueries = append(fc.subQueries, nm.subQuery)
			mapping = append(mapping, sqlast.SubAlias{Alias: field.Alias, Index: len(fc.subQueries) - 1})

		default:
			return nil, shapeErrorf(fp, "unknown field node type %T", f)
		}
	}

	return mapping, nil
}

func (fc *fieldCompiler) addSelect(ref sqlast.ColumnRef) int {
	col := fc.idx.NextColumn()
	fc.selects = append(fc.selects, sqlast.Select{Ref: ref, ColumnIndex: col})
	return col
}

// withPath prefixes a shape error's path with the field location.
func withPath(err error, prefix string) error {
	ce, ok := err.(*CompileError)
	if !ok || ce.Kind != KindShape {
		return err
	}
	out := *ce
	if out.Path == "" {
		out.Path = prefix
	} else {
		out.Path = prefix + "." + out.Path
	}
	return &out
}
