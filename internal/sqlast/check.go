package sqlast

import (
	"fmt"
	"slices"
)

// ParameterIndexes returns every parameter index referenced by q, in tree
// order: where (including set members), limit, offset, then join
// conditions.
func ParameterIndexes(q Query) []int {
	var out []int
	if q.Clauses.Where != nil {
		out = collectWhere(out, q.Clauses.Where)
	}
	if q.Clauses.Limit != nil {
		out = append(out, q.Clauses.Limit.ParameterIndex)
	}
	if q.Clauses.Offset != nil {
		out = append(out, q.Clauses.Offset.ParameterIndex)
	}
	for _, j := range q.Clauses.Joins {
		if j.On != nil {
			out = collectWhere(out, j.On)
		}
	}
	return out
}

func collectWhere(out []int, w Where) []int {
	switch node := w.(type) {
	case ConditionNode:
		switch c := node.Condition.(type) {
		case StringCondition:
			out = append(out, c.CompareTo.ParameterIndex)
		case NumberCondition:
			out = append(out, c.CompareTo.ParameterIndex)
		case SetCondition:
			out = append(out, c.CompareTo.ParameterIndexes...)
		case FieldCondition:
		}
	case LogicalNode:
		for _, child := range node.Children {
			out = collectWhere(out, child)
		}
	}
	return out
}

// CheckParameters verifies that the parameter indexes referenced by q are
// exactly {0 … len(q.Parameters)-1}, each referenced once.
func CheckParameters(q Query) error {
	refs := ParameterIndexes(q)
	seen := make([]bool, len(q.Parameters))
	for _, idx := range refs {
		if idx < 0 || idx >= len(q.Parameters) {
			return fmt.Errorf("parameter index %d out of range (have %d parameters)", idx, len(q.Parameters))
		}
		if seen[idx] {
			return fmt.Errorf("parameter index %d referenced more than once", idx)
		}
		seen[idx] = true
	}
	if i := slices.Index(seen, false); i >= 0 {
		return fmt.Errorf("parameter %d is never referenced", i)
	}
	return nil
}
