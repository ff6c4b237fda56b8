package query

import "fmt"

// BuildError is raised for a query malformed at build time rather than at
// compile/execution time.
type BuildError struct {
	Msg string
}

func (e *BuildError) Error() string { return "query: " + e.Msg }

// Builder fluently assembles a Model. It is single-threaded from
// construction to Build; callers must not share one across goroutines.
type Builder struct {
	model Model
	err   error
}

// New starts a new query builder.
func New() *Builder { return &Builder{} }

// Where adds a top-level filter node; multiple calls AND together.
func (b *Builder) Where(n Node) *Builder {
	b.model.Filters = append(b.model.Filters, n)
	return b
}

// OrderBy appends an ordering clause.
func (b *Builder) OrderBy(field string, desc bool) *Builder {
	b.model.OrderBy = append(b.model.OrderBy, Ordering{Field: field, Desc: desc})
	return b
}

// Limit sets the row limit. Negative limits are a build error.
func (b *Builder) Limit(n int) *Builder {
	if n < 0 {
		b.err = &BuildError{Msg: fmt.Sprintf("limit must be non-negative, got %d", n)}
		return b
	}
	b.model.Limit = n
	b.model.limitSet = true
	return b
}

// Offset sets the row offset. Negative offsets are a build error.
func (b *Builder) Offset(n int) *Builder {
	if n < 0 {
		b.err = &BuildError{Msg: fmt.Sprintf("offset must be non-negative, got %d", n)}
		return b
	}
	b.model.Offset = n
	b.model.offsetSet = true
	return b
}

// Page sets limit/offset from a 1-indexed page number and page size.
// p and s must both be >= 1.
func (b *Builder) Page(p, s int) *Builder {
	if p < 1 {
		b.err = &BuildError{Msg: fmt.Sprintf("page must be >= 1, got %d", p)}
		return b
	}
	if s < 1 {
		b.err = &BuildError{Msg: fmt.Sprintf("page size must be >= 1, got %d", s)}
		return b
	}
	return b.Limit(s).Offset((p - 1) * s)
}

// GroupBy appends one or more grouping fields.
func (b *Builder) GroupBy(fields ...string) *Builder {
	b.model.GroupBy = append(b.model.GroupBy, fields...)
	return b
}

// Having adds a HAVING filter node, evaluated after GROUP BY.
func (b *Builder) Having(n Node) *Builder {
	b.model.Having = append(b.model.Having, n)
	return b
}

// Distinct marks the query DISTINCT.
func (b *Builder) Distinct() *Builder {
	b.model.Distinct = true
	return b
}

// Select restricts the returned fields/aggregates to fields.
func (b *Builder) Select(fields ...string) *Builder {
	b.model.SelectFields = append(b.model.SelectFields, fields...)
	return b
}

// Aggregate adds an aggregate expression.
func (b *Builder) Aggregate(fn AggregateFunc, field string, distinct bool, alias string) *Builder {
	b.model.Aggregates = append(b.model.Aggregates, Aggregate{
		Func: fn, Field: field, Distinct: distinct, Alias: alias,
	})
	return b
}

// Join adds a join clause.
func (b *Builder) Join(kind JoinKind, collection, left string, op JoinOp, right string) *Builder {
	b.model.Joins = append(b.model.Joins, Join{
		Kind: kind, Collection: collection, Left: left, Right: right, Op: op,
	})
	return b
}

// Build validates and returns the assembled Model.
func (b *Builder) Build() (*Model, error) {
	if b.err != nil {
		return nil, b.err
	}
	m := b.model
	return &m, nil
}

// --- Filter-tree leaf constructors, grounded on the combinator style of a
// predicate-expression package in the retrieval pack: each constructor
// returns a Node wrapping a single comparison, and AllOf/AnyOf combine
// nodes into groups. ---

func leaf(field string, op Operator, value any, value2 any) Node {
	return Node{Leaf: &Leaf{Field: field, Operator: op, Value: value, Value2: value2}}
}

// FieldEQ builds an equality leaf.
func FieldEQ(field string, value any) Node { return leaf(field, EQ, value, nil) }

// FieldNEQ builds an inequality leaf.
func FieldNEQ(field string, value any) Node { return leaf(field, NEQ, value, nil) }

// FieldGT builds a greater-than leaf.
func FieldGT(field string, value any) Node { return leaf(field, GT, value, nil) }

// FieldGTE builds a greater-than-or-equal leaf.
func FieldGTE(field string, value any) Node { return leaf(field, GTE, value, nil) }

// FieldLT builds a less-than leaf.
func FieldLT(field string, value any) Node { return leaf(field, LT, value, nil) }

// FieldLTE builds a less-than-or-equal leaf.
func FieldLTE(field string, value any) Node { return leaf(field, LTE, value, nil) }

// FieldIn builds a membership leaf.
func FieldIn(field string, values ...any) Node { return leaf(field, In, values, nil) }

// FieldNotIn builds a negated membership leaf.
func FieldNotIn(field string, values ...any) Node { return leaf(field, NotIn, values, nil) }

// FieldLike builds a raw LIKE leaf.
func FieldLike(field, pattern string) Node { return leaf(field, Like, pattern, nil) }

// FieldILike builds a case-insensitive LIKE leaf.
func FieldILike(field, pattern string) Node { return leaf(field, ILike, pattern, nil) }

// FieldStartsWith builds a prefix-match leaf.
func FieldStartsWith(field, prefix string) Node { return leaf(field, StartsWith, prefix, nil) }

// FieldEndsWith builds a suffix-match leaf.
func FieldEndsWith(field, suffix string) Node { return leaf(field, EndsWith, suffix, nil) }

// FieldContains builds a substring-match leaf.
func FieldContains(field, substr string) Node { return leaf(field, Contains, substr, nil) }

// FieldExists builds an IS NOT NULL leaf.
func FieldExists(field string) Node { return leaf(field, Exists, nil, nil) }

// FieldNotExists builds an IS NULL leaf.
func FieldNotExists(field string) Node { return leaf(field, NotExists, nil, nil) }

// FieldBetween builds an inclusive-range leaf.
func FieldBetween(field string, lo, hi any) Node { return leaf(field, Between, lo, hi) }

// FieldArrayContains builds a JSON-array membership leaf.
func FieldArrayContains(field string, value any) Node {
	return leaf(field, JSONArrayContains, value, nil)
}

// FieldArrayNotContains builds a negated JSON-array membership leaf.
func FieldArrayNotContains(field string, value any) Node {
	return leaf(field, JSONArrayNContains, value, nil)
}

// AllOf groups nodes with AND.
func AllOf(nodes ...Node) Node {
	return Node{Group: &Group{Type: And, Filters: nodes}}
}

// AnyOf groups nodes with OR.
func AnyOf(nodes ...Node) Node {
	return Node{Group: &Group{Type: Or, Filters: nodes}}
}

// ExistsIn builds a subquery filter correlating field against another
// collection's query result.
func ExistsIn(field, collection string, sub *Model) Node {
	return Node{Subquery: &Subquery{Field: field, Operator: Exists, Query: sub, Collection: collection}}
}

// NotExistsIn builds the negated counterpart of ExistsIn.
func NotExistsIn(field, collection string, sub *Model) Node {
	return Node{Subquery: &Subquery{Field: field, Operator: NotExists, Query: sub, Collection: collection}}
}

// InSubquery builds a field IN (subquery) filter.
func InSubquery(field, collection string, sub *Model) Node {
	return Node{Subquery: &Subquery{Field: field, Operator: In, Query: sub, Collection: collection}}
}

// NotInSubquery builds a field NOT IN (subquery) filter.
func NotInSubquery(field, collection string, sub *Model) Node {
	return Node{Subquery: &Subquery{Field: field, Operator: NotIn, Query: sub, Collection: collection}}
}
