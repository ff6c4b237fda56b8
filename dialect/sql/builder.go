package sql

import (
	"strconv"
	"strings"
)

// Builder assembles a parameterized SQL statement incrementally, keeping
// identifier quoting and placeholder counting in one place. The query
// compiler (query) builds its statements with it; the DDL compiler
// (dialect/sql/schema) formats its statements directly.
type Builder struct {
	sb   strings.Builder
	args []any
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// WriteString appends raw SQL text verbatim. Callers must never pass user
// input here; only text the compiler itself produced (keywords, already
// quoted identifiers).
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// WriteByte appends a single raw byte.
func (b *Builder) WriteByte(c byte) *Builder {
	b.sb.WriteByte(c)
	return b
}

// Ident appends a quoted identifier. SQLite double-quotes identifiers;
// embedded quotes are doubled per the engine's escaping rule.
func (b *Builder) Ident(name string) *Builder {
	b.sb.WriteByte('"')
	b.sb.WriteString(strings.ReplaceAll(name, `"`, `""`))
	b.sb.WriteByte('"')
	return b
}

// IdentList appends a comma-separated, quoted identifier list.
func (b *Builder) IdentList(names []string) *Builder {
	for i, n := range names {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.Ident(n)
	}
	return b
}

// Arg appends a "?" placeholder and records v to be bound at that
// position. SQLite uses positional "?" placeholders rather than numbered
// ones, so no renumbering is required across clauses.
func (b *Builder) Arg(v any) *Builder {
	b.sb.WriteByte('?')
	b.args = append(b.args, v)
	return b
}

// AppendArgs records additional bound values without writing any
// placeholder text. Used when splicing in SQL that already carries its own
// "?" marks (e.g. a compiled subquery) so the argument order still lines
// up with the placeholders already written.
func (b *Builder) AppendArgs(vs ...any) *Builder {
	b.args = append(b.args, vs...)
	return b
}

// Args appends one placeholder per value, comma-separated.
func (b *Builder) Args(vs ...any) *Builder {
	for i, v := range vs {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.Arg(v)
	}
	return b
}

// Join appends each element of fn's output separated by sep.
func (b *Builder) Join(sep string, n int, fn func(i int, b *Builder)) *Builder {
	for i := 0; i < n; i++ {
		if i > 0 {
			b.sb.WriteString(sep)
		}
		fn(i, b)
	}
	return b
}

// Query returns the accumulated SQL text and its bound arguments, in the
// order placeholders were written.
func (b *Builder) Query() (string, []any) {
	return b.sb.String(), b.args
}

// String returns the accumulated SQL text without its arguments, useful in
// error messages and tests.
func (b *Builder) String() string { return b.sb.String() }

// Len reports the number of placeholders written so far.
func (b *Builder) Len() int { return len(b.args) }

// itoa is used by callers that need to name a placeholder positionally in
// diagnostics (e.g. "argument 3 of 5").
func itoa(i int) string { return strconv.Itoa(i) }
