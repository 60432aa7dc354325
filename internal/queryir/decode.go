package queryir

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/absql/internal/ir"
)

// DecodeError reports a malformed wire document.
type DecodeError struct {
	Path    string
	Message string
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return "decode query: " + e.Message
	}
	return fmt.Sprintf("decode query: %s: %s", e.Path, e.Message)
}

// Decode parses a query from its YAML or JSON wire form. Every node must
// carry a "type" discriminator (except the root) and unknown keys are
// rejected. Decode checks wire syntax only; run Validate for shape rules.
func Decode(data []byte) (Query, error) {
	var raw any
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Query{}, &DecodeError{Message: "empty document"}
		}
		return Query{}, fmt.Errorf("decode query: %w", err)
	}
	return FromMap(raw)
}

// FromMap converts an already-decoded document (map[string]any as produced
// by yaml.v3 or encoding/json) into a Query.
func FromMap(raw any) (Query, error) {
	o, err := asObject("", raw)
	if err != nil {
		return Query{}, err
	}

	var q Query
	if q.Store, err = o.str("store", false); err != nil {
		return Query{}, err
	}
	if q.Collection, err = o.str("collection", true); err != nil {
		return Query{}, err
	}
	if q.Fields, err = o.fields("fields"); err != nil {
		return Query{}, err
	}
	if q.Modifiers, err = o.modifiers("modifiers"); err != nil {
		return Query{}, err
	}
	return q, o.done()
}

// object is a decoded mapping plus the keys consumed so far.
type object struct {
	path string
	m    map[string]any
	used map[string]bool
}

func asObject(path string, v any) (*object, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &DecodeError{Path: path, Message: fmt.Sprintf("expected an object, got %s", describe(v))}
	}
	return &object{path: path, m: m, used: make(map[string]bool, len(m))}, nil
}

func (o *object) child(key string) string {
	if o.path == "" {
		return key
	}
	return o.path + "." + key
}

func (o *object) fail(key, format string, args ...any) error {
	return &DecodeError{Path: o.child(key), Message: fmt.Sprintf(format, args...)}
}

func (o *object) get(key string) (any, bool) {
	o.used[key] = true
	v, ok := o.m[key]
	return v, ok && v != nil
}

// done rejects keys that no decoder step consumed.
func (o *object) done() error {
	var extra []string
	for k := range o.m {
		if !o.used[k] {
			extra = append(extra, k)
		}
	}
	if len(extra) == 0 {
		return nil
	}
	slices.Sort(extra)
	return &DecodeError{Path: o.path, Message: "unknown keys: " + strings.Join(extra, ", ")}
}

func (o *object) str(key string, required bool) (string, error) {
	v, ok := o.get(key)
	if !ok {
		if required {
			return "", o.fail(key, "is required")
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", o.fail(key, "expected a string, got %s", describe(v))
	}
	return s, nil
}

func (o *object) boolean(key string) (bool, error) {
	v, ok := o.get(key)
	if !ok {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, o.fail(key, "expected a boolean, got %s", describe(v))
	}
	return b, nil
}

func (o *object) integer(key string) (int64, error) {
	v, ok := o.get(key)
	if !ok {
		return 0, o.fail(key, "is required")
	}
	val, err := ir.FromAny(v)
	if err != nil {
		return 0, o.fail(key, "%v", err)
	}
	n, ok := val.(ir.Int)
	if !ok {
		return 0, o.fail(key, "expected an integer, got %s", describe(v))
	}
	return int64(n), nil
}

func (o *object) list(key string, required bool) ([]any, error) {
	v, ok := o.get(key)
	if !ok {
		if required {
			return nil, o.fail(key, "is required")
		}
		return nil, nil
	}
	l, ok := v.([]any)
	if !ok {
		return nil, o.fail(key, "expected a list, got %s", describe(v))
	}
	return l, nil
}

func (o *object) strings(key string) ([]string, error) {
	l, err := o.list(key, true)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(l))
	for i, v := range l {
		s, ok := v.(string)
		if !ok {
			return nil, &DecodeError{Path: fmt.Sprintf("%s[%d]", o.child(key), i), Message: "expected a string, got " + describe(v)}
		}
		out[i] = s
	}
	return out, nil
}

func (o *object) object(key string, required bool) (*object, error) {
	v, ok := o.get(key)
	if !ok {
		if required {
			return nil, o.fail(key, "is required")
		}
		return nil, nil
	}
	return asObject(o.child(key), v)
}

// kind reads the "type" discriminator.
func (o *object) kind() (string, error) {
	return o.str("type", true)
}

func (o *object) fields(key string) ([]Field, error) {
	l, err := o.list(key, true)
	if err != nil {
		return nil, err
	}
	out := make([]Field, 0, len(l))
	for i, v := range l {
		fo, err := asObject(fmt.Sprintf("%s[%d]", o.child(key), i), v)
		if err != nil {
			return nil, err
		}
		f, err := fo.field()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (o *object) field() (Field, error) {
	kind, err := o.kind()
	if err != nil {
		return nil, err
	}
	alias, err := o.str("alias", true)
	if err != nil {
		return nil, err
	}

	var f Field
	switch kind {
	case "primitive":
		name, err := o.str("field", true)
		if err != nil {
			return nil, err
		}
		f = Primitive{Field: name, Alias: alias}
	case "fn":
		name, err := o.str("field", true)
		if err != nil {
			return nil, err
		}
		fn, err := o.function("fn")
		if err != nil {
			return nil, err
		}
		f = Fn{Function: fn, Field: name, Alias: alias}
	case "nested-single-one":
		fields, err := o.fields("fields")
		if err != nil {
			return nil, err
		}
		rel, err := o.relation("nesting")
		if err != nil {
			return nil, err
		}
		f = NestedOne{Fields: fields, Nesting: rel, Alias: alias}
	case "nested-single-many":
		fields, err := o.fields("fields")
		if err != nil {
			return nil, err
		}
		rel, err := o.relation("nesting")
		if err != nil {
			return nil, err
		}
		mods, err := o.modifiers("modifiers")
		if err != nil {
			return nil, err
		}
		f = NestedMany{Fields: fields, Nesting: rel, Modifiers: mods, Alias: alias}
	default:
		return nil, o.fail("type", "unknown field type %q", kind)
	}
	return f, o.done()
}

func (o *object) function(key string) (Function, error) {
	fo, err := o.object(key, true)
	if err != nil {
		return Function{}, err
	}
	kind, err := fo.kind()
	if err != nil {
		return Function{}, err
	}
	name, err := fo.str("fn", true)
	if err != nil {
		return Function{}, err
	}
	ts, err := fo.boolean("isTimestampType")
	if err != nil {
		return Function{}, err
	}
	return Function{Type: FunctionType(kind), Name: name, IsTimestampType: ts}, fo.done()
}

func (o *object) relation(key string) (Relation, error) {
	ro, err := o.object(key, true)
	if err != nil {
		return Relation{}, err
	}
	// The relation kind (relational-many, relational-single) is implied by
	// the field node that owns it.
	if _, err := ro.str("type", false); err != nil {
		return Relation{}, err
	}

	lo, err := ro.object("local", true)
	if err != nil {
		return Relation{}, err
	}
	var rel Relation
	if rel.Local.Fields, err = lo.strings("fields"); err != nil {
		return Relation{}, err
	}
	if err := lo.done(); err != nil {
		return Relation{}, err
	}

	fo, err := ro.object("foreign", true)
	if err != nil {
		return Relation{}, err
	}
	if rel.Foreign.Store, err = fo.str("store", false); err != nil {
		return Relation{}, err
	}
	if rel.Foreign.Collection, err = fo.str("collection", true); err != nil {
		return Relation{}, err
	}
	if rel.Foreign.Fields, err = fo.strings("fields"); err != nil {
		return Relation{}, err
	}
	if err := fo.done(); err != nil {
		return Relation{}, err
	}
	return rel, ro.done()
}

func (o *object) modifiers(key string) (Modifiers, error) {
	mo, err := o.object(key, false)
	if err != nil || mo == nil {
		return Modifiers{}, err
	}

	var m Modifiers
	if fo, err := mo.object("filter", false); err != nil {
		return Modifiers{}, err
	} else if fo != nil {
		if m.Filter, err = fo.filter(); err != nil {
			return Modifiers{}, err
		}
	}

	sorts, err := mo.list("sort", false)
	if err != nil {
		return Modifiers{}, err
	}
	for i, v := range sorts {
		so, err := asObject(fmt.Sprintf("%s[%d]", mo.child("sort"), i), v)
		if err != nil {
			return Modifiers{}, err
		}
		s, err := so.sort()
		if err != nil {
			return Modifiers{}, err
		}
		m.Sort = append(m.Sort, s)
	}

	if lo, err := mo.object("limit", false); err != nil {
		return Modifiers{}, err
	} else if lo != nil {
		n, err := lo.counted("limit")
		if err != nil {
			return Modifiers{}, err
		}
		m.Limit = &Limit{Value: n}
	}

	if oo, err := mo.object("offset", false); err != nil {
		return Modifiers{}, err
	} else if oo != nil {
		n, err := oo.counted("offset")
		if err != nil {
			return Modifiers{}, err
		}
		m.Offset = &Offset{Value: n}
	}
	return m, mo.done()
}

// counted decodes a {type: limit|offset, value: n} node.
func (o *object) counted(want string) (int64, error) {
	if kind, err := o.str("type", false); err != nil {
		return 0, err
	} else if kind != "" && kind != want {
		return 0, o.fail("type", "expected %q, got %q", want, kind)
	}
	n, err := o.integer("value")
	if err != nil {
		return 0, err
	}
	return n, o.done()
}

func (o *object) sort() (Sort, error) {
	if kind, err := o.str("type", false); err != nil {
		return Sort{}, err
	} else if kind != "" && kind != "sort" {
		return Sort{}, o.fail("type", "expected \"sort\", got %q", kind)
	}
	dir, err := o.str("direction", true)
	if err != nil {
		return Sort{}, err
	}
	target, err := o.target("target")
	if err != nil {
		return Sort{}, err
	}
	return Sort{Direction: Direction(dir), Target: target}, o.done()
}

func (o *object) target(key string) (Target, error) {
	to, err := o.object(key, true)
	if err != nil {
		return nil, err
	}
	kind, err := to.kind()
	if err != nil {
		return nil, err
	}

	var t Target
	switch kind {
	case "primitive":
		name, err := to.str("field", true)
		if err != nil {
			return nil, err
		}
		t = TargetPrimitive{Field: name}
	case "fn":
		name, err := to.str("field", true)
		if err != nil {
			return nil, err
		}
		fn, err := to.function("fn")
		if err != nil {
			return nil, err
		}
		t = TargetFn{Function: fn, Field: name}
	case "nested-one-target":
		inner, err := to.target("field")
		if err != nil {
			return nil, err
		}
		rel, err := to.relation("nesting")
		if err != nil {
			return nil, err
		}
		t = TargetNested{Field: inner, Nesting: rel}
	default:
		return nil, to.fail("type", "unknown target type %q", kind)
	}
	return t, to.done()
}

func (o *object) filter() (Filter, error) {
	kind, err := o.kind()
	if err != nil {
		return nil, err
	}

	var f Filter
	switch kind {
	case "condition":
		co, err := o.object("condition", true)
		if err != nil {
			return nil, err
		}
		c, err := co.condition()
		if err != nil {
			return nil, err
		}
		f = ConditionFilter{Condition: c}
	case "logical":
		op, err := o.str("operator", true)
		if err != nil {
			return nil, err
		}
		l, err := o.list("childNodes", true)
		if err != nil {
			return nil, err
		}
		children := make([]Filter, 0, len(l))
		for i, v := range l {
			co, err := asObject(fmt.Sprintf("%s[%d]", o.child("childNodes"), i), v)
			if err != nil {
				return nil, err
			}
			child, err := co.filter()
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		f = LogicalFilter{Operator: LogicalOperator(op), Children: children}
	case "negate":
		co, err := o.object("childNode", true)
		if err != nil {
			return nil, err
		}
		child, err := co.filter()
		if err != nil {
			return nil, err
		}
		f = NegateFilter{Child: child}
	default:
		return nil, o.fail("type", "unknown filter type %q", kind)
	}
	return f, o.done()
}

func (o *object) condition() (Condition, error) {
	kind, err := o.kind()
	if err != nil {
		return nil, err
	}
	op, err := o.str("operation", true)
	if err != nil {
		return nil, err
	}
	target, err := o.target("target")
	if err != nil {
		return nil, err
	}

	var c Condition
	switch kind {
	case "condition-string":
		s, err := o.str("compareTo", true)
		if err != nil {
			return nil, err
		}
		c = StringCondition{Target: target, Operation: Operator(op), CompareTo: s}
	case "condition-number":
		raw, ok := o.get("compareTo")
		if !ok {
			return nil, o.fail("compareTo", "is required")
		}
		val, err := ir.FromAny(raw)
		if err != nil {
			return nil, o.fail("compareTo", "%v", err)
		}
		c = NumberCondition{Target: target, Operation: Operator(op), CompareTo: val}
	case "condition-field":
		other, err := o.target("compareTo")
		if err != nil {
			return nil, err
		}
		c = FieldCondition{Target: target, Operation: Operator(op), CompareTo: other}
	case "condition-set":
		l, err := o.list("compareTo", true)
		if err != nil {
			return nil, err
		}
		vals := make([]ir.Value, len(l))
		for i, raw := range l {
			if vals[i], err = ir.FromAny(raw); err != nil {
				return nil, &DecodeError{Path: fmt.Sprintf("%s[%d]", o.child("compareTo"), i), Message: err.Error()}
			}
		}
		c = SetCondition{Target: target, Operation: Operator(op), CompareTo: vals}
	default:
		return nil, o.fail("type", "unknown condition type %q", kind)
	}
	return c, o.done()
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "list"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64, uint64, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
