package sqlast

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/absql/internal/ir"
	"github.com/roach88/absql/internal/queryir"
)

// JSON encoding gives every union member a "type" discriminator so that
// `absql compile` output and golden files are self-describing. Only
// encoding is supported; the IR is never read back from JSON.

type fnJSON struct {
	Type            queryir.FunctionType `json:"type"`
	Fn              string               `json:"fn"`
	IsTimestampType bool                 `json:"isTimestampType,omitempty"`
}

func encodeFn(f queryir.Function) fnJSON {
	return fnJSON{Type: f.Type, Fn: f.Name, IsTimestampType: f.IsTimestampType}
}

// MarshalJSON implements json.Marshaler.
func (c Column) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type       string `json:"type"`
		TableIndex int    `json:"tableIndex"`
		Column     string `json:"column"`
	}{"primitive", c.TableIndex, c.Column})
}

// MarshalJSON implements json.Marshaler.
func (c FnColumn) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type       string `json:"type"`
		Fn         fnJSON `json:"fn"`
		TableIndex int    `json:"tableIndex"`
		Column     string `json:"column"`
	}{"fn", encodeFn(c.Function), c.TableIndex, c.Column})
}

// MarshalJSON flattens the column reference into the select entry.
func (s Select) MarshalJSON() ([]byte, error) {
	type entry struct {
		Type        string  `json:"type"`
		Fn          *fnJSON `json:"fn,omitempty"`
		TableIndex  int     `json:"tableIndex"`
		Column      string  `json:"column"`
		ColumnIndex int     `json:"columnIndex"`
	}
	switch ref := s.Ref.(type) {
	case Column:
		return json.Marshal(entry{Type: "primitive", TableIndex: ref.TableIndex, Column: ref.Column, ColumnIndex: s.ColumnIndex})
	case FnColumn:
		fn := encodeFn(ref.Function)
		return json.Marshal(entry{Type: "fn", Fn: &fn, TableIndex: ref.TableIndex, Column: ref.Column, ColumnIndex: s.ColumnIndex})
	default:
		return nil, fmt.Errorf("unknown column reference %T", s.Ref)
	}
}

// MarshalJSON implements json.Marshaler.
func (j Join) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type       string `json:"type"`
		Table      string `json:"table"`
		TableIndex int    `json:"tableIndex"`
		On         Where  `json:"on"`
	}{"join", j.Table, j.TableIndex, j.On})
}

// MarshalJSON implements json.Marshaler.
func (n ConditionNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      string    `json:"type"`
		Condition Condition `json:"condition"`
		Negate    bool      `json:"negate"`
	}{"condition", n.Condition, n.Negate})
}

// MarshalJSON implements json.Marshaler.
func (n LogicalNode) MarshalJSON() ([]byte, error) {
	children := n.Children
	if children == nil {
		children = []Where{}
	}
	return json.Marshal(struct {
		Type       string                  `json:"type"`
		Operator   queryir.LogicalOperator `json:"operator"`
		Negate     bool                    `json:"negate"`
		ChildNodes []Where                 `json:"childNodes"`
	}{"logical", n.Operator, n.Negate, children})
}

type conditionJSON struct {
	Type      string           `json:"type"`
	Operation queryir.Operator `json:"operation"`
	Target    ColumnRef        `json:"target"`
	CompareTo any              `json:"compareTo"`
}

// MarshalJSON implements json.Marshaler.
func (c StringCondition) MarshalJSON() ([]byte, error) {
	return json.Marshal(conditionJSON{"condition-string", c.Operation, c.Target, c.CompareTo})
}

// MarshalJSON implements json.Marshaler.
func (c NumberCondition) MarshalJSON() ([]byte, error) {
	return json.Marshal(conditionJSON{"condition-number", c.Operation, c.Target, c.CompareTo})
}

// MarshalJSON implements json.Marshaler.
func (c FieldCondition) MarshalJSON() ([]byte, error) {
	return json.Marshal(conditionJSON{"condition-field", c.Operation, c.Target, c.CompareTo})
}

// MarshalJSON implements json.Marshaler.
func (c SetCondition) MarshalJSON() ([]byte, error) {
	return json.Marshal(conditionJSON{"condition-set", c.Operation, c.Target, c.CompareTo})
}

// MarshalJSON implements json.Marshaler.
func (v ValueRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type           string `json:"type"`
		ParameterIndex int    `json:"parameterIndex"`
	}{"value", v.ParameterIndex})
}

// MarshalJSON implements json.Marshaler.
func (v ValuesRef) MarshalJSON() ([]byte, error) {
	idx := v.ParameterIndexes
	if idx == nil {
		idx = []int{}
	}
	return json.Marshal(struct {
		Type             string `json:"type"`
		ParameterIndexes []int  `json:"parameterIndexes"`
	}{"values", idx})
}

// MarshalJSON implements json.Marshaler.
func (o Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      string    `json:"type"`
		OrderBy   ColumnRef `json:"orderBy"`
		Direction Direction `json:"direction"`
	}{"order", o.By, o.Direction})
}

// MarshalJSON implements json.Marshaler.
func (q Query) MarshalJSON() ([]byte, error) {
	type from struct {
		Table      string `json:"table"`
		TableIndex int    `json:"tableIndex"`
	}
	type clauses struct {
		Select []Select  `json:"select"`
		From   from      `json:"from"`
		Joins  []Join    `json:"joins"`
		Where  Where     `json:"where,omitempty"`
		Order  []Order   `json:"order,omitempty"`
		Limit  *ValueRef `json:"limit,omitempty"`
		Offset *ValueRef `json:"offset,omitempty"`
	}

	c := q.Clauses
	out := struct {
		Clauses    clauses    `json:"clauses"`
		Parameters []ir.Value `json:"parameters"`
	}{
		Clauses: clauses{
			Select: nonNil(c.Select),
			From:   from{c.From.Table, c.From.TableIndex},
			Joins:  nonNil(c.Joins),
			Where:  c.Where,
			Order:  c.Order,
			Limit:  c.Limit,
			Offset: c.Offset,
		},
		Parameters: nonNil(q.Parameters),
	}
	return json.Marshal(out)
}

// MarshalJSON implements json.Marshaler.
func (a RootAlias) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        string `json:"type"`
		Alias       string `json:"alias"`
		ColumnIndex int    `json:"columnIndex"`
	}{"root", a.Alias, a.ColumnIndex})
}

// MarshalJSON implements json.Marshaler.
func (a NestedAlias) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string       `json:"type"`
		Alias    string       `json:"alias"`
		Children AliasMapping `json:"children"`
	}{"nested", a.Alias, nonNil(a.Children)})
}

// MarshalJSON implements json.Marshaler.
func (a SubAlias) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		Alias string `json:"alias"`
		Index int    `json:"index"`
	}{"sub", a.Alias, a.Index})
}

// MarshalJSON describes the template without its unmaterialized fields.
func (s SubQuery) MarshalJSON() ([]byte, error) {
	f := s.Field
	return json.Marshal(struct {
		Alias         string   `json:"alias"`
		Store         string   `json:"store,omitempty"`
		Collection    string   `json:"collection"`
		LocalFields   []string `json:"localFields"`
		ForeignFields []string `json:"foreignFields"`
		KeyColumns    []int    `json:"keyColumns"`
	}{f.Alias, f.Nesting.Foreign.Store, f.Nesting.Foreign.Collection,
		nonNil(f.Nesting.Local.Fields), nonNil(f.Nesting.Foreign.Fields), nonNil(s.KeyColumns)})
}

// MarshalJSON implements json.Marshaler.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RootQuery    Query        `json:"rootQuery"`
		SubQueries   []SubQuery   `json:"subQueries"`
		AliasMapping AliasMapping `json:"aliasMapping"`
	}{r.Root, nonNil(r.SubQueries), nonNil(r.AliasMapping)})
}

func nonNil[S ~[]E, E any](s S) S {
	if s == nil {
		return S{}
	}
	return s
}
