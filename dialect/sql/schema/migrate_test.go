package schema

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	skschema "github.com/syssam/skibbadb/schema"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCompileAndCreateTableSQL(t *testing.T) {
	d := skschema.New(
		skschema.String("email").Promote(skschema.Unique(), skschema.NotNullable()),
		skschema.Int("age").Optional().Promote(),
	)
	require.NoError(t, d.CheckConfig())

	tbl, err := Compile("users", d)
	require.NoError(t, err)
	require.Equal(t, "users", tbl.Name)

	sqlStr := tbl.CreateTableSQL()
	require.True(t, strings.Contains(sqlStr, `"_id" TEXT PRIMARY KEY`))
	require.True(t, strings.Contains(sqlStr, `"doc" TEXT NOT NULL`))
	require.True(t, strings.Contains(sqlStr, `"email" TEXT NOT NULL UNIQUE`))
	require.True(t, strings.Contains(sqlStr, `"age" INTEGER`))
}

func TestCompileVectorFieldProducesSidecar(t *testing.T) {
	d := skschema.New(
		skschema.Array("embedding").Numeric().Promote(skschema.Vector(384, skschema.VectorFloat)),
	)
	require.NoError(t, d.CheckConfig())

	tbl, err := Compile("docs", d)
	require.NoError(t, err)
	require.Len(t, tbl.VecTables, 1)
	require.Equal(t, "docs_embedding_vec", tbl.VecTables[0].Name)

	vecSQL := tbl.VecTables[0].CreateVecTableSQL()
	require.True(t, strings.Contains(vecSQL, "USING vec0"))
	require.True(t, strings.Contains(vecSQL, "float[384]"))
}

func TestCompileForeignKey(t *testing.T) {
	d := skschema.New(
		skschema.String("authorId").Promote(skschema.ForeignKey("users._id", skschema.Cascade, skschema.NoAction)),
	)
	require.NoError(t, d.CheckConfig())

	tbl, err := Compile("posts", d)
	require.NoError(t, err)
	require.Len(t, tbl.ForeignKeys, 1)
	require.Equal(t, "users", tbl.ForeignKeys[0].RefTable.Name)
	require.Equal(t, "_id", tbl.ForeignKeys[0].RefCol.Name)

	sqlStr := tbl.CreateTableSQL()
	require.True(t, strings.Contains(sqlStr, "FOREIGN KEY"))
	require.True(t, strings.Contains(sqlStr, "ON DELETE CASCADE"))
}

func TestCompileForeignKeyRewritesIDReferenceToUnderscoreID(t *testing.T) {
	d := skschema.New(
		skschema.String("organizationId").Promote(skschema.ForeignKey("organizations.id", skschema.Cascade, skschema.NoAction)),
	)
	require.NoError(t, d.CheckConfig())

	tbl, err := Compile("users", d)
	require.NoError(t, err)
	require.Len(t, tbl.ForeignKeys, 1)
	require.Equal(t, "organizations", tbl.ForeignKeys[0].RefTable.Name)
	require.Equal(t, "_id", tbl.ForeignKeys[0].RefCol.Name)

	sqlStr := tbl.CreateTableSQL()
	require.True(t, strings.Contains(sqlStr, `REFERENCES "organizations"("_id")`))
}

func TestSubstituteColumnNameIsWholeWordOnly(t *testing.T) {
	expr := "age >= 0 AND age <= 120 AND agent = 1"
	got := substituteColumnName(expr, "age", "user_age")
	require.Equal(t, "user_age >= 0 AND user_age <= 120 AND agent = 1", got)
}

func TestSubstituteColumnNameNoopWhenPathEqualsColumn(t *testing.T) {
	expr := "age >= 0"
	got := substituteColumnName(expr, "age", "age")
	require.Equal(t, expr, got)
}

func TestCompileCompositeUniqueIndex(t *testing.T) {
	d := skschema.New(
		skschema.String("tenant").Promote(),
		skschema.String("slug").Promote(),
	)
	require.NoError(t, d.CheckConfig())

	tbl, err := Compile("articles", d)
	require.NoError(t, err)

	idx, err := CompileUniqueIndex(tbl, "articles_tenant_slug_unique", "tenant", "slug")
	require.NoError(t, err)
	require.True(t, idx.Unique)
	require.Len(t, idx.Columns, 2)

	idxSQL := tbl.CreateIndexSQL(idx)
	require.True(t, strings.Contains(idxSQL, "UNIQUE INDEX"))
	require.True(t, strings.Contains(idxSQL, `"tenant", "slug"`))
}

func TestCompileUniqueIndexRejectsUnpromotedField(t *testing.T) {
	d := skschema.New(skschema.String("tenant").Promote())
	tbl, err := Compile("articles", d)
	require.NoError(t, err)

	_, err = CompileUniqueIndex(tbl, "bad", "tenant", "missing")
	require.Error(t, err)
}

func TestStatementsOrdersTableThenIndexesThenVecTables(t *testing.T) {
	d := skschema.New(
		skschema.String("email").Promote(skschema.Unique()),
		skschema.Array("embedding").Numeric().Promote(skschema.Vector(8, skschema.VectorFloat)),
	)
	require.NoError(t, d.CheckConfig())
	tbl, err := Compile("users", d)
	require.NoError(t, err)

	stmts := tbl.Statements()
	require.True(t, strings.HasPrefix(stmts[0], "CREATE TABLE"))
	require.True(t, strings.Contains(stmts[len(stmts)-1], "USING vec0"))
}

func TestIntrospectMissingTableReturnsNil(t *testing.T) {
	db := openMemory(t)
	tbl, err := Introspect(context.Background(), db, "does_not_exist")
	require.NoError(t, err)
	require.Nil(t, tbl)
}

func TestIntrospectRoundTripsCreatedTable(t *testing.T) {
	db := openMemory(t)
	_, err := db.Exec(`CREATE TABLE widgets (_id TEXT PRIMARY KEY, doc TEXT NOT NULL, sku TEXT NOT NULL UNIQUE)`)
	require.NoError(t, err)

	tbl, err := Introspect(context.Background(), db, "widgets")
	require.NoError(t, err)
	require.NotNil(t, tbl)
	require.Equal(t, "widgets", tbl.Name)
	require.NotNil(t, tbl.Column("sku"))
}

func TestDiffNilCurrentIsNeverBreaking(t *testing.T) {
	d := skschema.New(skschema.String("email").Promote(skschema.Unique()))
	desired, err := Compile("users", d)
	require.NoError(t, err)

	result := Diff(nil, desired)
	require.False(t, result.HasBreakingChanges())
}

func TestDiffDetectsDroppedColumnAsBreaking(t *testing.T) {
	current := NewTable("users")
	current.AddColumn(&Column{Name: "_id", Type: "TEXT"})
	current.AddColumn(&Column{Name: "doc", Type: "TEXT"})
	current.AddColumn(&Column{Name: "email", Type: "TEXT", Unique: true})

	desired := NewTable("users")
	desired.AddColumn(&Column{Name: "_id", Type: "TEXT"})
	desired.AddColumn(&Column{Name: "doc", Type: "TEXT"})

	result := Diff(current, desired)
	require.True(t, result.HasBreakingChanges())
}

func TestDiffNewNullableColumnIsAdditive(t *testing.T) {
	current := NewTable("users")
	current.AddColumn(&Column{Name: "_id", Type: "TEXT"})

	desired := NewTable("users")
	desired.AddColumn(&Column{Name: "_id", Type: "TEXT"})
	desired.AddColumn(&Column{Name: "nickname", Type: "TEXT", Nullable: true})

	result := Diff(current, desired)
	require.False(t, result.HasBreakingChanges())
}
