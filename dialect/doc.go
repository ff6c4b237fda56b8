// Package dialect defines the SQL driver contract skibbadb consumes
// (Exec, Query, Tx and Close), plus a dialect tag used when
// classifying engine errors.
//
// skibbadb targets a single engine family — SQLite, via the vec0 extension
// for vector search and json_extract/json_each for document predicates — so
// unlike a multi-dialect ORM this package carries one constant, SQLite,
// rather than a dialect enum. Keeping the constant (instead of inlining the
// driver name everywhere) leaves room for a future libsql/remote-replica
// binding without touching call sites.
//
// # Driver interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Sub-packages
//
//   - dialect/sql: driver/connection wrapping, statistics/debug wrappers, statement builder
//   - dialect/sql/schema: DDL compiler and migration shape-diff
package dialect
