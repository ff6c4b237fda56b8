// Package sql is skibbadb's SQLite driver layer and its low-level
// parameterized statement builder.
//
// # Driver
//
// Driver implements dialect.Driver over database/sql. Open opens a
// connection by database/sql driver name (normally "sqlite", registered by
// modernc.org/sqlite) and OpenDB wraps an already-open *sql.DB. Tx wraps a
// transaction as a dialect.Tx, and Rows carries a result set back from
// Query. WithPragma attaches PRAGMA statements to a context; they run on
// the connection ahead of each statement executed with that context.
//
// # Statistics and debug logging
//
// StatsDriver (NewStatsDriver, OpenWithStats) counts queries, execs, errors
// and slow statements; DebugDriver (NewDebugDriver) logs every statement
// through an injectable log function.
//
// # Builder
//
// Builder assembles raw SQL text, quoted identifiers and "?" placeholders,
// keeping the bound arguments in order:
//
//	b := sql.NewBuilder()
//	b.WriteString("SELECT _id, doc FROM ").Ident("users").
//	    WriteString(" WHERE ").Ident("email").WriteString(" = ").Arg("a@example.com")
//	query, args := b.Query()
//
// # Usage in skibbadb
//
// The query compiler (package query) builds its SELECT statements with
// Builder. Document CRUD (package skibbadb), the DDL compiler (package
// dialect/sql/schema) and the vector engine (package vector) format their
// SQL directly and run it through Driver.
package sql
