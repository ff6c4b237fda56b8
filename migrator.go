package skibbadb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	ddlschema "github.com/syssam/skibbadb/dialect/sql/schema"
	"github.com/syssam/skibbadb/schema"
)

// metadataTableDDL creates the process-wide migration bookkeeping table.
const metadataTableDDL = `CREATE TABLE IF NOT EXISTS _skibbadb_migrations (
  collection_name TEXT PRIMARY KEY,
  version INTEGER NOT NULL,
  completed_alters TEXT NOT NULL DEFAULT '[]',
  created_at TEXT,
  updated_at TEXT
)`

// Plan is the list of DDL statements (CREATE on first run, ALTER TABLE ADD
// COLUMN and index/vec0 creation afterwards) the migrator would apply, or the
// reasons a diff is breaking. It carries no upgrade or seed steps. In "print"
// mode Migrate logs it instead of executing it.
type Plan struct {
	Collection string
	Statements []string
	Breaking   bool
	Reasons    []string
}

func (p *Plan) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "migration plan for %q:\n", p.Collection)
	if p.Breaking {
		sb.WriteString("  BREAKING:\n")
		for _, r := range p.Reasons {
			fmt.Fprintf(&sb, "    - %s\n", r)
		}
		return sb.String()
	}
	if len(p.Statements) == 0 {
		sb.WriteString("  (no changes)\n")
		return sb.String()
	}
	for _, s := range p.Statements {
		fmt.Fprintf(&sb, "  %s\n", s)
	}
	return sb.String()
}

// Migrator runs once per collection registration: it ensures the metadata
// table exists, introspects the collection's live table shape, diffs it
// against the descriptor's compiled shape, and either applies the additive
// difference or refuses on a breaking one.
type Migrator struct {
	db   *sql.DB
	mode MigrationMode
}

// NewMigrator returns a Migrator bound to db's raw connection, used for
// atlas-based introspection (dialect/sql/schema.Introspect needs a
// *sql.DB, not the dialect.Driver abstraction).
func NewMigrator(db *sql.DB, mode MigrationMode) *Migrator {
	return &Migrator{db: db, mode: mode}
}

// EnsureMetadataTable creates _skibbadb_migrations if absent. Idempotent,
// and tolerates being called from within an enclosing transaction.
func (m *Migrator) EnsureMetadataTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, metadataTableDDL)
	return err
}

// Plan computes, but does not execute, the migration plan for tableName
// against descriptor d.
func (m *Migrator) Plan(ctx context.Context, tableName string, d *schema.Descriptor) (*Plan, error) {
	if err := d.CheckConfig(); err != nil {
		return nil, err
	}
	desired, err := ddlschema.Compile(tableName, d)
	if err != nil {
		return nil, err
	}

	current, err := ddlschema.Introspect(ctx, m.db, tableName)
	if err != nil {
		return nil, NewDatabaseError(BreakingMigration, "shape cannot be introspected; manual migration required", err)
	}

	if current == nil {
		// First-run: the whole compiled DDL is the plan.
		return &Plan{Collection: tableName, Statements: desired.Statements()}, nil
	}

	// CreateTableSQL writes _id and doc itself, so Compile leaves them out of
	// desired.Columns; leave them out of the introspected side too, or Diff
	// would report them as dropped columns.
	base := *current
	base.Columns = nil
	for _, col := range current.Columns {
		if col.Name != "_id" && col.Name != "doc" {
			base.Columns = append(base.Columns, col)
		}
	}
	result := ddlschema.Diff(&base, desired)
	if result.HasBreakingChanges() {
		reasons := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			if e.Breaking {
				reasons = append(reasons, e.Error())
			}
		}
		return &Plan{Collection: tableName, Breaking: true, Reasons: reasons}, nil
	}

	return &Plan{Collection: tableName, Statements: additiveStatements(current, desired)}, nil
}

// additiveStatements renders ALTER TABLE ADD COLUMN for every column in
// desired absent from current.
func additiveStatements(current, desired *ddlschema.Table) []string {
	var stmts []string
	for _, col := range desired.Columns {
		if current.Column(col.Name) != nil {
			continue
		}
		def := fmt.Sprintf("ALTER TABLE %q ADD COLUMN %q %s", desired.Name, col.Name, col.Type)
		if !col.Nullable {
			def += " NOT NULL DEFAULT NULL"
		}
		stmts = append(stmts, def)
	}
	for _, idx := range desired.Indexes {
		stmts = append(stmts, desired.CreateIndexSQL(idx))
	}
	for _, vt := range desired.VecTables {
		stmts = append(stmts, vt.CreateVecTableSQL())
	}
	return stmts
}

// Migrate applies the plan for tableName/d. First contact (no row yet in
// the metadata table) always runs the plan, even if declaredVersion is 0,
// since no record existing is not the same as "already at version 0".
// After that: an equal version is a no-op, stored > declared warns and
// no-ops, a breaking diff raises DatabaseError(BREAKING_MIGRATION), and a
// non-breaking diff runs inside a transaction (unless inTx is true,
// meaning the caller already holds one).
func (m *Migrator) Migrate(ctx context.Context, tableName string, d *schema.Descriptor, declaredVersion int, inTx bool) error {
	if err := m.EnsureMetadataTable(ctx); err != nil {
		return NewDatabaseError(DBNotInitialized, "metadata table initialization failed", err)
	}

	stored, existed, err := m.storedVersion(ctx, tableName)
	if err != nil {
		return err
	}
	if existed {
		if stored == declaredVersion {
			return nil
		}
		if stored > declaredVersion {
			slog.Warn("skibbadb: stored schema version is newer than declared; migration skipped",
				"collection", tableName, "stored", stored, "declared", declaredVersion)
			return nil
		}
	}

	plan, err := m.Plan(ctx, tableName, d)
	if err != nil {
		return err
	}
	if plan.Breaking {
		return NewDatabaseError(BreakingMigration, strings.Join(plan.Reasons, "; "), nil)
	}
	if m.mode == MigrationPrint {
		slog.Info("skibbadb: migration plan (print mode, not executed)", "plan", plan.String())
		return nil
	}

	if inTx {
		return m.apply(ctx, m.db, tableName, declaredVersion, plan)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return NewDatabaseError(ConnectionCreateFailed, "failed to begin migration transaction", err)
	}
	if err := m.apply(ctx, tx, tableName, declaredVersion, plan); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// migrationExecer is satisfied by both *sql.DB and *sql.Tx, so apply runs
// the plan's statements against whichever the caller opened.
type migrationExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (m *Migrator) apply(ctx context.Context, ex migrationExecer, tableName string, declaredVersion int, plan *Plan) error {
	for _, stmt := range plan.Statements {
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return m.recordVersionWith(ctx, ex, tableName, declaredVersion)
}

// storedVersion reads the version last recorded for tableName. existed is
// false when the collection has never been migrated before (no first
// contact has happened yet), which Migrate must not confuse with "already
// at version 0".
func (m *Migrator) storedVersion(ctx context.Context, tableName string) (version int, existed bool, err error) {
	row := m.db.QueryRowContext(ctx, `SELECT version FROM _skibbadb_migrations WHERE collection_name = ?`, tableName)
	scanErr := row.Scan(&version)
	if scanErr == sql.ErrNoRows {
		return 0, false, nil
	}
	if scanErr != nil {
		return 0, false, NewDatabaseError(DBNotInitialized, "failed to read migration version", scanErr)
	}
	return version, true, nil
}

// recordVersionWith stores the applied version for tableName, executing
// against whichever executor the caller's transaction (or lack of one) is
// using, so the write joins the same atomic unit as the DDL that preceded it.
func (m *Migrator) recordVersionWith(ctx context.Context, ex migrationExecer, tableName string, version int) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := ex.ExecContext(ctx, `
		INSERT INTO _skibbadb_migrations (collection_name, version, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(collection_name) DO UPDATE SET version = excluded.version, updated_at = excluded.updated_at
	`, tableName, version, now, now)
	return err
}
