// Package query is the language-neutral query model a collection compiles
// to SQL: a tagged filter tree, ordering, pagination,
// grouping, aggregates and joins, built fluently and then lowered by
// Compile. The model is a plain value — serializable, with no reference to
// any live connection — so it can cross a collection boundary (subquery
// filters) or be logged/replayed.
package query

// Operator is a leaf filter's comparison. The compiler rejects an operator
// it does not implement; it does not check an operator against the field's
// storage type.
type Operator string

const (
	EQ                 Operator = "eq"
	NEQ                Operator = "neq"
	GT                 Operator = "gt"
	GTE                Operator = "gte"
	LT                 Operator = "lt"
	LTE                Operator = "lte"
	In                 Operator = "in"
	NotIn              Operator = "nin"
	Like               Operator = "like"
	ILike              Operator = "ilike"
	StartsWith         Operator = "startswith"
	EndsWith           Operator = "endswith"
	Contains           Operator = "contains"
	Exists             Operator = "exists"
	NotExists          Operator = "not_exists"
	Between            Operator = "between"
	JSONArrayContains  Operator = "json_array_contains"
	JSONArrayNContains Operator = "json_array_not_contains"
)

// GroupType is how a Group's children combine.
type GroupType string

const (
	And GroupType = "and"
	Or  GroupType = "or"
)

// Node is one entry in a filter list: a Leaf, a Group, or a Subquery.
// Exactly one of the three is non-zero.
type Node struct {
	Leaf     *Leaf
	Group    *Group
	Subquery *Subquery
}

// IsZero reports whether n carries no Leaf, Group, or Subquery, i.e. no
// filter at all (as opposed to a trivially-true one).
func (n Node) IsZero() bool {
	return n.Leaf == nil && n.Group == nil && n.Subquery == nil
}

// Leaf is a single field comparison.
type Leaf struct {
	Field    string
	Operator Operator
	Value    any
	Value2   any // second bound, for Between
}

// Group is a nested and/or combination of nodes.
type Group struct {
	Type    GroupType
	Filters []Node
}

// Subquery correlates a field against another collection's query.
type Subquery struct {
	Field      string
	Operator   Operator // Exists, NotExists, In, or NotIn
	Query      *Model
	Collection string
}

// Ordering is one ORDER BY clause.
type Ordering struct {
	Field string
	Desc  bool
}

// JoinKind is the kind of SQL join a Join clause compiles to.
type JoinKind string

const (
	InnerJoin JoinKind = "INNER"
	LeftJoin  JoinKind = "LEFT"
	RightJoin JoinKind = "RIGHT"
	FullJoin  JoinKind = "FULL"
)

// JoinOp is the comparison operator relating a join's two sides.
type JoinOp string

const (
	JoinEQ  JoinOp = "="
	JoinNEQ JoinOp = "!="
	JoinLT  JoinOp = "<"
	JoinLTE JoinOp = "<="
	JoinGT  JoinOp = ">"
	JoinGTE JoinOp = ">="
)

// Join is one join clause.
type Join struct {
	Kind       JoinKind
	Collection string
	Left       string
	Right      string
	Op         JoinOp
}

// AggregateFunc is one of the supported aggregate functions.
type AggregateFunc string

const (
	Count AggregateFunc = "COUNT"
	Sum   AggregateFunc = "SUM"
	Avg   AggregateFunc = "AVG"
	Min   AggregateFunc = "MIN"
	Max   AggregateFunc = "MAX"
)

// Aggregate is one SELECT aggregate.
type Aggregate struct {
	Func     AggregateFunc
	Field    string
	Distinct bool
	Alias    string
}

// Model is the full query value: filters, ordering, pagination, grouping,
// aggregates, joins, and projection.
type Model struct {
	Filters      []Node
	OrderBy      []Ordering
	Limit        int
	Offset       int
	GroupBy      []string
	Having       []Node
	Distinct     bool
	Aggregates   []Aggregate
	Joins        []Join
	SelectFields []string

	// limitSet/offsetSet distinguish "0" from "unset" so a zero-valued
	// Model doesn't implicitly page.
	limitSet  bool
	offsetSet bool
}

// HasLimit reports whether a limit was explicitly set.
func (m *Model) HasLimit() bool { return m.limitSet }

// HasOffset reports whether an offset was explicitly set.
func (m *Model) HasOffset() bool { return m.offsetSet }
