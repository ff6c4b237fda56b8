package query

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	sqldialect "github.com/syssam/skibbadb/dialect/sql"
	"github.com/syssam/skibbadb/schema"
)

var foldCaser = cases.Fold()

// foldCase applies Unicode case folding to s, used for the ilike operator
// so comparisons aren't limited to ASCII the way strings.ToLower/SQLite's
// LOWER() are.
func foldCase(s string) string { return foldCaser.String(s) }

// CompileError is raised when a Model cannot be lowered to SQL: an unknown
// field under strict promotion, or an operator the compiler does not
// implement. Operators are not checked against the field's storage type.
type CompileError struct {
	Field string
	Msg   string
}

func (e *CompileError) Error() string {
	if e.Field == "" {
		return "query: " + e.Msg
	}
	return fmt.Sprintf("query: field %q: %s", e.Field, e.Msg)
}

// Compiled is a lowered query: parameterized SQL text plus its bound
// arguments in placeholder order.
type Compiled struct {
	SQL  string
	Args []any
}

// Compile lowers m into a SELECT statement against table, resolving field
// references against d (promoted column vs. JSON extraction). strict,
// when true, rejects any field not declared on d at all
// (promoted or not); when false, an undeclared field still compiles via
// json_extract, assuming it may exist in the document.
func Compile(table string, d *schema.Descriptor, m *Model, strict bool) (*Compiled, error) {
	c := &compiler{table: table, d: d, strict: strict, b: sqldialect.NewBuilder()}
	return c.compile(m)
}

type compiler struct {
	table  string
	d      *schema.Descriptor
	strict bool
	b      *sqldialect.Builder
}

func (c *compiler) compile(m *Model) (*Compiled, error) {
	c.b.WriteString("SELECT ")
	if m.Distinct {
		c.b.WriteString("DISTINCT ")
	}
	if err := c.writeProjection(m); err != nil {
		return nil, err
	}
	c.b.WriteString(" FROM ")
	c.b.Ident(c.table)

	for _, j := range m.Joins {
		if err := c.writeJoin(j); err != nil {
			return nil, err
		}
	}

	if len(m.Filters) > 0 {
		c.b.WriteString(" WHERE ")
		if err := c.writeGroup(&Group{Type: And, Filters: m.Filters}); err != nil {
			return nil, err
		}
	}

	if len(m.GroupBy) > 0 {
		c.b.WriteString(" GROUP BY ")
		c.b.Join(", ", len(m.GroupBy), func(i int, b *sqldialect.Builder) {
			b.WriteString(c.resolve(m.GroupBy[i]))
		})
	}

	if len(m.Having) > 0 {
		c.b.WriteString(" HAVING ")
		if err := c.writeGroup(&Group{Type: And, Filters: m.Having}); err != nil {
			return nil, err
		}
	}

	if len(m.OrderBy) > 0 {
		c.b.WriteString(" ORDER BY ")
		for i, o := range m.OrderBy {
			if i > 0 {
				c.b.WriteString(", ")
			}
			c.b.WriteString(c.resolve(o.Field))
			if o.Desc {
				c.b.WriteString(" DESC")
			} else {
				c.b.WriteString(" ASC")
			}
		}
	}

	if m.HasLimit() {
		c.b.WriteString(" LIMIT ")
		c.b.Arg(m.Limit)
	}
	if m.HasOffset() {
		c.b.WriteString(" OFFSET ")
		c.b.Arg(m.Offset)
	}

	sqlText, args := c.b.Query()
	return &Compiled{SQL: sqlText, Args: args}, nil
}

func (c *compiler) writeProjection(m *Model) error {
	switch {
	case len(m.Aggregates) > 0:
		for i, a := range m.Aggregates {
			if i > 0 {
				c.b.WriteString(", ")
			}
			c.b.WriteString(string(a.Func)).WriteString("(")
			if a.Distinct {
				c.b.WriteString("DISTINCT ")
			}
			if a.Field == "" || a.Field == "*" {
				c.b.WriteString("*")
			} else {
				c.b.WriteString(c.resolve(a.Field))
			}
			c.b.WriteString(")")
			if a.Alias != "" {
				c.b.WriteString(" AS ").Ident(a.Alias)
			}
		}
	case len(m.SelectFields) > 0:
		for i, f := range m.SelectFields {
			if i > 0 {
				c.b.WriteString(", ")
			}
			c.b.WriteString(c.resolve(f))
		}
	default:
		c.b.WriteString("_id, doc")
	}
	return nil
}

func (c *compiler) writeJoin(j Join) error {
	switch j.Kind {
	case InnerJoin:
		c.b.WriteString(" INNER JOIN ")
	case LeftJoin:
		c.b.WriteString(" LEFT JOIN ")
	case RightJoin:
		c.b.WriteString(" RIGHT JOIN ")
	case FullJoin:
		c.b.WriteString(" FULL JOIN ")
	default:
		return &CompileError{Msg: fmt.Sprintf("unknown join kind %q", j.Kind)}
	}
	c.b.Ident(j.Collection)
	c.b.WriteString(" ON ")
	c.b.WriteString(c.resolve(j.Left))
	c.b.WriteString(" " + string(j.Op) + " ")
	c.b.WriteString(c.resolve(j.Right))
	return nil
}

// resolve returns the SQL access expression for a field path: the bare
// promoted column if one exists, else a json_extract over doc.
func (c *compiler) resolve(field string) string {
	if f, ok := c.d.Field(field); ok && f.Promotion() != nil {
		return `"` + schema.ColumnName(field) + `"`
	}
	return fmt.Sprintf("json_extract(doc, '$.%s')", field)
}

func (c *compiler) checkField(field string) error {
	if !c.strict {
		return nil
	}
	if _, ok := c.d.Field(field); !ok {
		return &CompileError{Field: field, Msg: "unknown field"}
	}
	return nil
}

func (c *compiler) writeGroup(g *Group) error {
	sep := " AND "
	if g.Type == Or {
		sep = " OR "
	}
	for i, n := range g.Filters {
		if i > 0 {
			c.b.WriteString(sep)
		}
		if err := c.writeNode(n); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) writeNode(n Node) error {
	switch {
	case n.Leaf != nil:
		return c.writeLeaf(n.Leaf)
	case n.Group != nil:
		c.b.WriteString("(")
		if err := c.writeGroup(n.Group); err != nil {
			return err
		}
		c.b.WriteString(")")
		return nil
	case n.Subquery != nil:
		return c.writeSubquery(n.Subquery)
	default:
		return &CompileError{Msg: "empty filter node"}
	}
}

func (c *compiler) writeLeaf(l *Leaf) error {
	if err := c.checkField(l.Field); err != nil {
		return err
	}
	access := c.resolve(l.Field)

	switch l.Operator {
	case EQ:
		c.b.WriteString(access + " = ").Arg(l.Value)
	case NEQ:
		c.b.WriteString(access + " != ").Arg(l.Value)
	case GT:
		c.b.WriteString(access + " > ").Arg(l.Value)
	case GTE:
		c.b.WriteString(access + " >= ").Arg(l.Value)
	case LT:
		c.b.WriteString(access + " < ").Arg(l.Value)
	case LTE:
		c.b.WriteString(access + " <= ").Arg(l.Value)
	case In, NotIn:
		return c.writeInSet(access, l)
	case Like:
		c.b.WriteString(access + " LIKE ").Arg(l.Value)
	case ILike:
		// SQLite's LOWER() only folds ASCII; the pattern side is folded
		// with x/text/cases so non-ASCII literals (e.g. "CAFÉ") still
		// match case-insensitively against an ASCII-folded column.
		c.b.WriteString("LOWER(" + access + ") LIKE ").Arg(foldCase(fmt.Sprint(l.Value)))
	case StartsWith:
		c.b.WriteString(access + " LIKE ").Arg(escapeLike(fmt.Sprint(l.Value)) + "%")
		c.b.WriteString(` ESCAPE '\'`)
	case EndsWith:
		c.b.WriteString(access + " LIKE ").Arg("%" + escapeLike(fmt.Sprint(l.Value)))
		c.b.WriteString(` ESCAPE '\'`)
	case Contains:
		c.b.WriteString(access + " LIKE ").Arg("%" + escapeLike(fmt.Sprint(l.Value)) + "%")
		c.b.WriteString(` ESCAPE '\'`)
	case Exists:
		c.b.WriteString(access + " IS NOT NULL")
	case NotExists:
		c.b.WriteString(access + " IS NULL")
	case Between:
		c.b.WriteString(access + " >= ").Arg(l.Value)
		c.b.WriteString(" AND " + access + " <= ").Arg(l.Value2)
	case JSONArrayContains:
		c.b.WriteString(fmt.Sprintf("EXISTS(SELECT 1 FROM json_each(%s) WHERE value = ", access)).Arg(l.Value)
		c.b.WriteString(")")
	case JSONArrayNContains:
		c.b.WriteString(fmt.Sprintf("NOT EXISTS(SELECT 1 FROM json_each(%s) WHERE value = ", access)).Arg(l.Value)
		c.b.WriteString(")")
	default:
		return &CompileError{Field: l.Field, Msg: fmt.Sprintf("unsupported operator %q", l.Operator)}
	}
	return nil
}

func (c *compiler) writeInSet(access string, l *Leaf) error {
	values, ok := l.Value.([]any)
	if !ok {
		values = []any{l.Value}
	}
	if len(values) == 0 {
		// Empty IN/NIN must yield FALSE/TRUE, not invalid SQL.
		if l.Operator == In {
			c.b.WriteString("FALSE")
		} else {
			c.b.WriteString("TRUE")
		}
		return nil
	}
	if l.Operator == NotIn {
		c.b.WriteString(access + " NOT IN (")
	} else {
		c.b.WriteString(access + " IN (")
	}
	c.b.Args(values...)
	c.b.WriteString(")")
	return nil
}

func (c *compiler) writeSubquery(s *Subquery) error {
	if err := c.checkField(s.Field); err != nil {
		return err
	}
	sub, err := Compile(s.Collection, c.d, s.Query, false)
	if err != nil {
		return err
	}
	access := c.resolve(s.Field)
	switch s.Operator {
	case Exists:
		c.b.WriteString("EXISTS (" + sub.SQL + ")")
	case NotExists:
		c.b.WriteString("NOT EXISTS (" + sub.SQL + ")")
	case In:
		c.b.WriteString(access + " IN (" + sub.SQL + ")")
	case NotIn:
		c.b.WriteString(access + " NOT IN (" + sub.SQL + ")")
	default:
		return &CompileError{Field: s.Field, Msg: fmt.Sprintf("unsupported subquery operator %q", s.Operator)}
	}
	c.b.AppendArgs(sub.Args...)
	return nil
}

// escapeLike escapes SQLite LIKE wildcards so user-supplied substrings are
// matched literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
