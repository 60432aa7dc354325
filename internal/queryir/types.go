package queryir

import "github.com/roach88/absql/internal/ir"

// Query is the root of an abstract query tree.
//
// Store identifies the data store the collection lives in. The compiler
// carries it through to sub-query templates but does not interpret it.
type Query struct {
	Store      string
	Collection string
	Fields     []Field
	Modifiers  Modifiers
}

// Field is one requested output field.
//
// This is a sealed interface. Field types:
//   - Primitive: a plain column
//   - Fn: a column wrapped in a function (extract, count)
//   - NestedOne: a to-one relation, fetched through a join
//   - NestedMany: a to-many relation, fetched by a correlated sub-query
type Field interface {
	fieldNode()
	fieldAlias() string
}

// Primitive selects one column of the current collection.
type Primitive struct {
	Field string // column name
	Alias string // key in the output object
}

func (Primitive) fieldNode()           {}
func (f Primitive) fieldAlias() string { return f.Alias }

// Fn selects a column wrapped in a function.
//
// Example:
//
//	Fn{Function: Function{Type: ExtractFn, Name: "year", IsTimestampType: true},
//	   Field: "created_at", Alias: "createdYear"}
type Fn struct {
	Function Function
	Field    string
	Alias    string
}

func (Fn) fieldNode()           {}
func (f Fn) fieldAlias() string { return f.Alias }

// NestedOne fetches a to-one relation through a join. Its fields land in
// the same result row as the parent and are reassembled into a nested
// object under Alias.
type NestedOne struct {
	Fields  []Field
	Nesting Relation
	Alias   string
}

func (NestedOne) fieldNode()           {}
func (f NestedOne) fieldAlias() string { return f.Alias }

// NestedMany fetches a to-many relation. It is never joined: each parent
// row triggers one independent sub-query against Nesting.Foreign, filtered
// by the parent's key values. Modifiers apply to that sub-query only.
type NestedMany struct {
	Fields    []Field
	Nesting   Relation
	Modifiers Modifiers
	Alias     string
}

func (NestedMany) fieldNode()           {}
func (f NestedMany) fieldAlias() string { return f.Alias }

// AliasOf returns the output key of any field node.
func AliasOf(f Field) string {
	return f.fieldAlias()
}

// Relation links the current collection to a foreign one.
//
// Local.Fields and Foreign.Fields are positionally paired: Local.Fields[i]
// on the current table matches Foreign.Fields[i] on the foreign table.
// Both lists must be non-empty and the same length. More than one pair
// is a composite key.
type Relation struct {
	Local   LocalKeys
	Foreign ForeignKeys
}

// LocalKeys lists the key columns on the current table.
type LocalKeys struct {
	Fields []string
}

// ForeignKeys lists the key columns on the related table.
type ForeignKeys struct {
	Store      string
	Collection string
	Fields     []string
}

// FunctionType groups functions by argument kind.
type FunctionType string

const (
	// ExtractFn extracts a date/time part from a timestamp column.
	ExtractFn FunctionType = "extractFn"
	// ArrayFn aggregates over a column (count).
	ArrayFn FunctionType = "arrayFn"
)

// Function names a function applied to a column. Functions take no
// arguments besides the column itself.
type Function struct {
	Type FunctionType
	Name string
	// IsTimestampType is set when the column stores a timestamp rather
	// than a date, which changes how some dialects extract parts.
	IsTimestampType bool
}

var extractFunctions = map[string]bool{
	"year": true, "month": true, "week": true, "day": true,
	"weekday": true, "hour": true, "minute": true, "second": true,
}

var arrayFunctions = map[string]bool{
	"count": true,
}

// Target is the thing a condition or sort entry refers to.
//
// This is a sealed interface. Target types:
//   - TargetPrimitive: a column on the current table
//   - TargetFn: a function over a column on the current table
//   - TargetNested: a target on a related table, reached through a to-one
//     relation (the compiler synthesizes a join for it)
type Target interface {
	targetNode()
}

// TargetPrimitive refers to a column of the current table.
type TargetPrimitive struct {
	Field string
}

func (TargetPrimitive) targetNode() {}

// TargetFn refers to a function over a column of the current table.
type TargetFn struct {
	Function Function
	Field    string
}

func (TargetFn) targetNode() {}

// TargetNested refers to Field on the table reached through Nesting.
// Field may itself be a TargetNested, forming a join chain.
type TargetNested struct {
	Field   Target
	Nesting Relation
}

func (TargetNested) targetNode() {}

// Filter is a boolean filter tree.
//
// This is a sealed interface. Filter types:
//   - ConditionFilter: a single comparison leaf
//   - LogicalFilter: and/or over child filters
//   - NegateFilter: logical NOT of a child filter
//
// NegateFilter only exists in the input tree. The compiler folds it into
// negate flags on the nodes it produces.
type Filter interface {
	filterNode()
}

// ConditionFilter wraps one condition.
type ConditionFilter struct {
	Condition Condition
}

func (ConditionFilter) filterNode() {}

// LogicalOperator combines child filters.
type LogicalOperator string

const (
	And LogicalOperator = "and"
	Or  LogicalOperator = "or"
)

// LogicalFilter combines Children with Operator. Children are kept in
// order.
type LogicalFilter struct {
	Operator LogicalOperator
	Children []Filter
}

func (LogicalFilter) filterNode() {}

// NegateFilter inverts Child.
type NegateFilter struct {
	Child Filter
}

func (NegateFilter) filterNode() {}

// Operator is a comparison operator. Which operators are valid depends on
// the condition kind.
type Operator string

const (
	OpEq         Operator = "eq"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
	OpIn         Operator = "in"
)

// Condition is one comparison.
//
// This is a sealed interface. Condition types:
//   - StringCondition: column vs string literal (eq, contains, starts_with, ends_with)
//   - NumberCondition: column vs numeric literal (eq, lt, lte, gt, gte)
//   - FieldCondition: column vs another column (eq)
//   - SetCondition: column vs a list of literals (in)
type Condition interface {
	conditionNode()
}

// StringCondition compares Target to a string literal.
type StringCondition struct {
	Target    Target
	Operation Operator
	CompareTo string
}

func (StringCondition) conditionNode() {}

// NumberCondition compares Target to a numeric literal. CompareTo must be
// an ir.Int or ir.Float.
type NumberCondition struct {
	Target    Target
	Operation Operator
	CompareTo ir.Value
}

func (NumberCondition) conditionNode() {}

// FieldCondition compares Target to another target. CompareTo resolves
// against the same table as Target and may reach through relations.
type FieldCondition struct {
	Target    Target
	Operation Operator
	CompareTo Target
}

func (FieldCondition) conditionNode() {}

// SetCondition tests Target for membership in CompareTo. Each element
// becomes its own parameter.
type SetCondition struct {
	Target    Target
	Operation Operator
	CompareTo []ir.Value
}

func (SetCondition) conditionNode() {}

var conditionOperators = map[string]map[Operator]bool{
	"string": {OpEq: true, OpContains: true, OpStartsWith: true, OpEndsWith: true},
	"number": {OpEq: true, OpLt: true, OpLte: true, OpGt: true, OpGte: true},
	"field":  {OpEq: true},
	"set":    {OpIn: true},
}

// Modifiers restrict and order the rows of one query scope. Every member
// is optional.
type Modifiers struct {
	Filter Filter  // nil = no filter
	Sort   []Sort  // empty = no ordering
	Limit  *Limit  // nil = no limit
	Offset *Offset // nil = no offset
}

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

// Sort orders by Target in Direction.
type Sort struct {
	Direction Direction
	Target    Target
}

// Limit caps the number of returned rows.
type Limit struct {
	Value int64
}

// Offset skips rows.
type Offset struct {
	Value int64
}
