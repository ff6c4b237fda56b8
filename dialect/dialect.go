package dialect

import "context"

// SQLite is the only engine family skibbadb targets. The constant is kept
// (rather than inlined) so driver wrappers and error messages stay
// consistent if a second dialect is ever added.
const SQLite = "sqlite3"

// ExecQuerier wraps the two primitives every storage operation compiles
// down to: a statement that returns no rows, and one that does.
type ExecQuerier interface {
	Exec(ctx context.Context, query string, args, v any) error
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the contract the core consumes from a SQL binding (spec §4.7):
// exec, query, transaction and close, plus a dialect tag for error-message
// classification.
type Driver interface {
	ExecQuerier
	Tx(ctx context.Context) (Tx, error)
	Close() error
	Dialect() string
}

// Tx is a Driver bound to an in-flight transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}
