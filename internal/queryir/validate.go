package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/absql/internal/ir"
)

// Problem is one shape defect found in an abstract query.
type Problem struct {
	// Path locates the offending node, e.g. "fields[2].nesting.local.fields".
	Path    string
	Message string
}

func (p Problem) String() string {
	if p.Path == "" {
		return p.Message
	}
	return p.Path + ": " + p.Message
}

// ValidationResult lists every problem found in a query.
type ValidationResult struct {
	Problems []Problem
}

// OK reports whether the query has no problems.
func (r ValidationResult) OK() bool {
	return len(r.Problems) == 0
}

// Error joins all problems into one message. It returns "" when OK.
func (r ValidationResult) Error() string {
	msgs := make([]string, len(r.Problems))
	for i, p := range r.Problems {
		msgs[i] = p.String()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks a query tree for shape problems.
//
// Checks performed:
//  1. Collection names, field names and aliases are non-empty
//  2. Aliases are unique within one field list
//  3. Relation key lists are non-empty and positionally paired (same length)
//  4. Function types and names are known
//  5. Operators match their condition kind
//  6. Number literals are numeric; set literals are non-empty scalars
//  7. Logical nodes have a known operator and at least one child
//  8. Sort directions are known; limit and offset are non-negative
//  9. Every node is a known variant (unknown types are reported, not skipped)
//
// Validate collects all problems instead of stopping at the first one.
// It is a pure function with no side effects.
func Validate(q Query) ValidationResult {
	v := &validator{}
	if q.Collection == "" {
		v.addProblem("collection", "collection name is required")
	}
	v.validateFields("fields", q.Fields)
	v.validateModifiers("modifiers", q.Modifiers)
	return ValidationResult{Problems: v.problems}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []Problem
}

func (v *validator) addProblem(path, format string, args ...any) {
	v.problems = append(v.problems, Problem{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) validateFields(path string, fields []Field) {
	if len(fields) == 0 {
		v.addProblem(path, "at least one field is required")
		return
	}

	seen := make(map[string]int, len(fields))
	for i, f := range fields {
		fp := fmt.Sprintf("%s[%d]", path, i)
		if f == nil {
			v.addProblem(fp, "nil field node")
			continue
		}

		alias := AliasOf(f)
		if alias == "" {
			v.addProblem(fp+".alias", "alias is required")
		} else if prev, dup := seen[alias]; dup {
			v.addProblem(fp+".alias", "duplicate alias %q (also used by %s[%d])", alias, path, prev)
		} else {
			seen[alias] = i
		}

		switch field := f.(type) {
		case Primitive:
			v.requireName(fp+".field", field.Field)
		case Fn:
			v.requireName(fp+".field", field.Field)
			v.validateFunction(fp+".fn", field.Function)
		case NestedOne:
			v.validateRelation(fp+".nesting", field.Nesting)
			v.validateFields(fp+".fields", field.Fields)
		case NestedMany:
			v.validateRelation(fp+".nesting", field.Nesting)
			v.validateFields(fp+".fields", field.Fields)
			v.validateModifiers(fp+".modifiers", field.Modifiers)
		default:
			v.addProblem(fp, "unknown field node type %T", f)
		}
	}
}

func (v *validator) requireName(path, name string) {
	if name == "" {
		v.addProblem(path, "column name is required")
	}
}

func (v *validator) validateFunction(path string, fn Function) {
	switch fn.Type {
	case ExtractFn:
		if !extractFunctions[fn.Name] {
			v.addProblem(path, "unknown extract function %q", fn.Name)
		}
	case ArrayFn:
		if !arrayFunctions[fn.Name] {
			v.addProblem(path, "unknown array function %q", fn.Name)
		}
	default:
		v.addProblem(path, "unknown function type %q", fn.Type)
	}
}

// validateRelation enforces the composite-key invariant.
func (v *validator) validateRelation(path string, rel Relation) {
	if rel.Foreign.Collection == "" {
		v.addProblem(path+".foreign.collection", "foreign collection is required")
	}
	if len(rel.Local.Fields) == 0 {
		v.addProblem(path+".local.fields", "at least one key column is required")
	}
	if len(rel.Local.Fields) != len(rel.Foreign.Fields) {
		v.addProblem(path, "local and foreign key lists differ in length (%d vs %d)",
			len(rel.Local.Fields), len(rel.Foreign.Fields))
	}
	for i, name := range rel.Local.Fields {
		v.requireName(fmt.Sprintf("%s.local.fields[%d]", path, i), name)
	}
	for i, name := range rel.Foreign.Fields {
		v.requireName(fmt.Sprintf("%s.foreign.fields[%d]", path, i), name)
	}
}

func (v *validator) validateTarget(path string, t Target) {
	switch target := t.(type) {
	case TargetPrimitive:
		v.requireName(path+".field", target.Field)
	case TargetFn:
		v.requireName(path+".field", target.Field)
		v.validateFunction(path+".fn", target.Function)
	case TargetNested:
		v.validateRelation(path+".nesting", target.Nesting)
		if target.Field == nil {
			v.addProblem(path+".field", "nested target requires a field")
			return
		}
		v.validateTarget(path+".field", target.Field)
	case nil:
		v.addProblem(path, "target is required")
	default:
		v.addProblem(path, "unknown target node type %T", t)
	}
}

func (v *validator) validateModifiers(path string, m Modifiers) {
	if m.Filter != nil {
		v.validateFilter(path+".filter", m.Filter)
	}
	for i, s := range m.Sort {
		sp := fmt.Sprintf("%s.sort[%d]", path, i)
		if s.Direction != Ascending && s.Direction != Descending {
			v.addProblem(sp+".direction", "unknown sort direction %q", s.Direction)
		}
		v.validateTarget(sp+".target", s.Target)
	}
	if m.Limit != nil && m.Limit.Value < 0 {
		v.addProblem(path+".limit", "limit must not be negative, got %d", m.Limit.Value)
	}
	if m.Offset != nil && m.Offset.Value < 0 {
		v.addProblem(path+".offset", "offset must not be negative, got %d", m.Offset.Value)
	}
}

func (v *validator) validateFilter(path string, f Filter) {
	switch filter := f.(type) {
	case ConditionFilter:
		v.validateCondition(path+".condition", filter.Condition)
	case LogicalFilter:
		if filter.Operator != And && filter.Operator != Or {
			v.addProblem(path+".operator", "unknown logical operator %q", filter.Operator)
		}
		if len(filter.Children) == 0 {
			v.addProblem(path+".childNodes", "logical node requires at least one child")
		}
		for i, child := range filter.Children {
			v.validateFilter(fmt.Sprintf("%s.childNodes[%d]", path, i), child)
		}
	case NegateFilter:
		v.validateFilter(path+".childNode", filter.Child)
	case nil:
		v.addProblem(path, "filter node is required")
	default:
		v.addProblem(path, "unknown filter node type %T", f)
	}
}

func (v *validator) validateCondition(path string, c Condition) {
	switch cond := c.(type) {
	case StringCondition:
		v.checkOperator(path, "string", cond.Operation)
		v.validateTarget(path+".target", cond.Target)
	case NumberCondition:
		v.checkOperator(path, "number", cond.Operation)
		v.validateTarget(path+".target", cond.Target)
		if !ir.IsNumeric(cond.CompareTo) {
			v.addProblem(path+".compareTo", "number condition needs a numeric value, got %s", ir.Kind(cond.CompareTo))
		}
	case FieldCondition:
		v.checkOperator(path, "field", cond.Operation)
		v.validateTarget(path+".target", cond.Target)
		v.validateTarget(path+".compareTo", cond.CompareTo)
	case SetCondition:
		v.checkOperator(path, "set", cond.Operation)
		v.validateTarget(path+".target", cond.Target)
		if len(cond.CompareTo) == 0 {
			v.addProblem(path+".compareTo", "set condition needs at least one value")
		}
		for i, val := range cond.CompareTo {
			switch val.(type) {
			case ir.String, ir.Int, ir.Float, ir.Bool:
			default:
				v.addProblem(fmt.Sprintf("%s.compareTo[%d]", path, i), "set values must be scalars, got %s", ir.Kind(val))
			}
		}
	case nil:
		v.addProblem(path, "condition is required")
	default:
		v.addProblem(path, "unknown condition node type %T", c)
	}
}

func (v *validator) checkOperator(path, kind string, op Operator) {
	if !conditionOperators[kind][op] {
		v.addProblem(path+".operation", "operator %q is not valid for condition-%s", op, kind)
	}
}
