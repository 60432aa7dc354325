package sqlast

import (
	"github.com/roach88/absql/internal/ir"
	"github.com/roach88/absql/internal/queryir"
)

// Query is one complete relational statement.
type Query struct {
	Clauses    Clauses
	Parameters []ir.Value
}

// Clauses holds the statement clauses. Where, Order, Limit and Offset are
// only set when the corresponding modifier was present.
type Clauses struct {
	Select []Select
	From   From
	Joins  []Join
	Where  Where     // nil = no WHERE
	Order  []Order   // nil = no ORDER BY
	Limit  *ValueRef // nil = no LIMIT
	Offset *ValueRef // nil = no OFFSET
}

// From names the statement's root table.
type From struct {
	Table      string
	TableIndex int
}

// ColumnRef addresses a column of an indexed table.
//
// This is a sealed interface. ColumnRef types:
//   - Column: a plain column
//   - FnColumn: a function applied to a column
type ColumnRef interface {
	columnRef()
	// Table returns the index of the table the column belongs to.
	Table() int
}

// Column is a plain column reference.
type Column struct {
	TableIndex int
	Column     string
}

func (Column) columnRef()   {}
func (c Column) Table() int { return c.TableIndex }

// FnColumn applies Function to a column.
type FnColumn struct {
	Function   queryir.Function
	TableIndex int
	Column     string
}

func (FnColumn) columnRef()   {}
func (c FnColumn) Table() int { return c.TableIndex }

// Select is one entry of the select list. ColumnIndex is unique within the
// statement and is how result rows are addressed.
type Select struct {
	Ref         ColumnRef
	ColumnIndex int
}

// Join is a LEFT JOIN of Table, aliased by TableIndex, on the On condition.
type Join struct {
	Table      string
	TableIndex int
	On         Where
}

// Where is a node of the compiled boolean tree.
//
// This is a sealed interface. Where types:
//   - ConditionNode: a comparison leaf
//   - LogicalNode: and/or over children
type Where interface {
	whereNode()
}

// ConditionNode is a comparison leaf. Negate inverts it.
type ConditionNode struct {
	Condition Condition
	Negate    bool
}

func (ConditionNode) whereNode() {}

// LogicalNode combines Children with Operator. Negate inverts the
// combination as a whole; each child carries its own flag.
type LogicalNode struct {
	Operator queryir.LogicalOperator
	Negate   bool
	Children []Where
}

func (LogicalNode) whereNode() {}

// Condition is a compiled comparison.
//
// This is a sealed interface. Condition types mirror queryir's:
//   - StringCondition: column vs string parameter
//   - NumberCondition: column vs numeric parameter
//   - FieldCondition: column vs column
//   - SetCondition: column vs list of parameters
type Condition interface {
	conditionNode()
}

// StringCondition compares Target to a string parameter.
type StringCondition struct {
	Target    ColumnRef
	Operation queryir.Operator
	CompareTo ValueRef
}

func (StringCondition) conditionNode() {}

// NumberCondition compares Target to a numeric parameter.
type NumberCondition struct {
	Target    ColumnRef
	Operation queryir.Operator
	CompareTo ValueRef
}

func (NumberCondition) conditionNode() {}

// FieldCondition compares Target to another column.
type FieldCondition struct {
	Target    ColumnRef
	Operation queryir.Operator
	CompareTo ColumnRef
}

func (FieldCondition) conditionNode() {}

// SetCondition tests Target for membership in a list of parameters.
type SetCondition struct {
	Target    ColumnRef
	Operation queryir.Operator
	CompareTo ValuesRef
}

func (SetCondition) conditionNode() {}

// ValueRef points at one entry of Query.Parameters.
type ValueRef struct {
	ParameterIndex int
}

// ValuesRef points at several entries of Query.Parameters, in order.
type ValuesRef struct {
	ParameterIndexes []int
}

// Direction is a SQL sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Order is one ORDER BY entry.
type Order struct {
	By        ColumnRef
	Direction Direction
}
