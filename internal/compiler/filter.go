package compiler

import (
	"github.com/roach88/absql/internal/ir"
	"github.com/roach88/absql/internal/queryir"
	"github.com/roach88/absql/internal/sqlast"
)

// filterResult is a compiled where tree with the joins and parameters its
// targets and literals produced, both in traversal order.
type filterResult struct {
	where      sqlast.Where
	joins      []sqlast.Join
	parameters []ir.Value
}

// convertFilter compiles a filter tree, folding negation.
//
// negate is the flag carried down from enclosing NegateFilter nodes:
//   - NegateFilter emits nothing and recurses with the flag flipped.
//   - ConditionFilter emits a leaf carrying the flag.
//   - LogicalFilter takes the flag as its own, and compiles every child
//     starting from false. A negation above a logical node belongs to that
//     node, never to its children.
//
// So NOT(NOT(x)) compiles exactly like x, and NOT(a AND NOT b) compiles
// to a negated "and" whose children are a (false) and b (true).
func convertFilter(f queryir.Filter, tableIndex int, idx *IndexAllocator, negate bool) (filterResult, error) {
	switch filter := f.(type) {
	case queryir.NegateFilter:
		return convertFilter(filter.Child, tableIndex, idx, !negate)

	case queryir.ConditionFilter:
		cond, err := convertCondition(filter.Condition, tableIndex, idx)
		if err != nil {
			return filterResult{}, err
		}
		return filterResult{
			where:      sqlast.ConditionNode{Condition: cond.condition, Negate: negate},
			joins:      cond.joins,
			parameters: cond.parameters,
		}, nil

	case queryir.LogicalFilter:
		var res filterResult
		children := make([]sqlast.Where, 0, len(filter.Children))
		for _, child := range filter.Children {
			cr, err := convertFilter(child, tableIndex, idx, false)
			if err != nil {
				return filterResult{}, err
			}
			children = append(children, cr.where)
			res.joins = append(res.joins, cr.joins...)
			res.parameters = append(res.parameters, cr.parameters...)
		}
		res.where = sqlast.LogicalNode{Operator: filter.Operator, Negate: negate, Children: children}
		return res, nil

	default:
		return filterResult{}, shapeErrorf("filter", "unknown filter node type %T", f)
	}
}

type conditionResult struct {
	condition  sqlast.Condition
	joins      []sqlast.Join
	parameters []ir.Value
}

// convertCondition resolves the target first, then the comparison side.
// Literal comparison values become parameters.
func convertCondition(c queryir.Condition, tableIndex int, idx *IndexAllocator) (conditionResult, error) {
	switch cond := c.(type) {
	case queryir.StringCondition:
		target, err := convertTarget(cond.Target, tableIndex, idx)
		if err != nil {
			return conditionResult{}, err
		}
		return conditionResult{
			condition: sqlast.StringCondition{
				Target:    target.value,
				Operation: cond.Operation,
				CompareTo: sqlast.ValueRef{ParameterIndex: idx.NextParameter()},
			},
			joins:      target.joins,
			parameters: []ir.Value{ir.String(cond.CompareTo)},
		}, nil

	case queryir.NumberCondition:
		if !ir.IsNumeric(cond.CompareTo) {
			return conditionResult{}, shapeErrorf("condition.compareTo", "number condition needs a numeric value, got %s", ir.Kind(cond.CompareTo))
		}
		target, err := convertTarget(cond.Target, tableIndex, idx)
		if err != nil {
			return conditionResult{}, err
		}
		return conditionResult{
			condition: sqlast.NumberCondition{
				Target:    target.value,
				Operation: cond.Operation,
				CompareTo: sqlast.ValueRef{ParameterIndex: idx.NextParameter()},
			},
			joins:      target.joins,
			parameters: []ir.Value{cond.CompareTo},
		}, nil

	case queryir.FieldCondition:
		target, err := convertTarget(cond.Target, tableIndex, idx)
		if err != nil {
			return conditionResult{}, err
		}
		other, err := convertTarget(cond.CompareTo, tableIndex, idx)
		if err != nil {
			return conditionResult{}, err
		}
		return conditionResult{
			condition: sqlast.FieldCondition{
				Target:    target.value,
				Operation: cond.Operation,
				CompareTo: other.value,
			},
			joins: append(target.joins, other.joins...),
		}, nil

	case queryir.SetCondition:
		if len(cond.CompareTo) == 0 {
			return conditionResult{}, shapeErrorf("condition.compareTo", "set condition needs at least one value")
		}
		target, err := convertTarget(cond.Target, tableIndex, idx)
		if err != nil {
			return conditionResult{}, err
		}
		refs := make([]int, len(cond.CompareTo))
		for i := range cond.CompareTo {
			refs[i] = idx.NextParameter()
		}
		return conditionResult{
			condition: sqlast.SetCondition{
				Target:    target.value,
				Operation: cond.Operation,
				CompareTo: sqlast.ValuesRef{ParameterIndexes: refs},
			},
			joins:      target.joins,
			parameters: append([]ir.Value(nil), cond.CompareTo...),
		}, nil

	default:
		return conditionResult{}, shapeErrorf("condition", "unknown condition node type %T", c)
	}
}
