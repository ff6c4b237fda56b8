package skibbadb_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/skibbadb"
	"github.com/syssam/skibbadb/query"
	"github.com/syssam/skibbadb/schema"
)

// matchAll is a trivially-true filter (every document has a non-null
// "name") used where tests want every row without exercising a specific
// predicate.
var matchAll = query.Node{Leaf: &query.Leaf{Field: "name", Operator: query.Exists}}

func openTestDB(t *testing.T) *skibbadb.Database {
	t.Helper()
	db, err := skibbadb.Open(skibbadb.WithMemory())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func usersDescriptor() *schema.Descriptor {
	return schema.New(
		schema.String("name").Promote(),
		schema.String("email").Promote(schema.Unique()),
		schema.Int("age").Optional(),
	)
}

func registerUsers(t *testing.T, db *skibbadb.Database) *skibbadb.Collection {
	t.Helper()
	col, err := db.RegisterCollection(context.Background(), "users", usersDescriptor(), 1)
	require.NoError(t, err)
	return col
}

func TestCollectionInsertAndFindByID(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	col := registerUsers(t, db)

	doc, err := col.Insert(ctx, map[string]any{"name": "Ada", "email": "ada@example.com", "age": float64(30)})
	require.NoError(t, err)
	require.NotEmpty(t, doc["_id"])

	found, err := col.FindByID(ctx, doc["_id"].(string))
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, "Ada", found["name"])
	require.Equal(t, "ada@example.com", found["email"])
}

func TestCollectionFindByIDMissingReturnsNil(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	col := registerUsers(t, db)

	found, err := col.FindByID(ctx, "does-not-exist")
	require.NoError(t, err)
	require.Nil(t, found)
}

func TestCollectionInsertDuplicateUniqueFieldFails(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	col := registerUsers(t, db)

	_, err := col.Insert(ctx, map[string]any{"name": "Ada", "email": "dup@example.com"})
	require.NoError(t, err)

	_, err = col.Insert(ctx, map[string]any{"name": "Grace", "email": "dup@example.com"})
	require.Error(t, err)
	require.True(t, skibbadb.IsUniqueConstraintError(err))
}

func TestCollectionPutMergesAndRevalidates(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	col := registerUsers(t, db)

	doc, err := col.Insert(ctx, map[string]any{"name": "Ada", "email": "ada@example.com"})
	require.NoError(t, err)
	id := doc["_id"].(string)

	updated, err := col.Put(ctx, id, map[string]any{"age": float64(31)})
	require.NoError(t, err)
	require.Equal(t, "Ada", updated["name"])
	require.Equal(t, float64(31), updated["age"])

	found, err := col.FindByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, float64(31), found["age"])
}

func TestCollectionPutMissingIDReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	col := registerUsers(t, db)

	_, err := col.Put(ctx, "missing-id", map[string]any{"age": float64(1)})
	require.Error(t, err)
	require.True(t, skibbadb.IsNotFound(err))
}

func TestCollectionUpsertInsertsThenUpdates(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	col := registerUsers(t, db)

	id := "fixed-id"
	_, err := col.Upsert(ctx, id, map[string]any{"name": "Ada", "email": "ada@example.com"})
	require.NoError(t, err)

	_, err = col.Upsert(ctx, id, map[string]any{"name": "Ada Lovelace", "email": "ada@example.com"})
	require.NoError(t, err)

	found, err := col.FindByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", found["name"])
}

func TestCollectionDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	col := registerUsers(t, db)

	doc, err := col.Insert(ctx, map[string]any{"name": "Ada", "email": "ada@example.com"})
	require.NoError(t, err)
	id := doc["_id"].(string)

	require.NoError(t, col.Delete(ctx, id))
	found, err := col.FindByID(ctx, id)
	require.NoError(t, err)
	require.Nil(t, found)

	// deleting again is a no-op, not an error
	require.NoError(t, col.Delete(ctx, id))
}

func TestCollectionInsertBulkCollectsPerDocumentErrors(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	col := registerUsers(t, db)

	docs := []map[string]any{
		{"name": "Ada", "email": "ada@example.com"},
		{"name": "Grace", "email": "ada@example.com"}, // duplicate email, should fail
		{"name": "Hedy", "email": "hedy@example.com"},
	}

	results, err := col.InsertBulk(ctx, docs)
	require.Error(t, err)
	// Exactly one of the two conflicting-email documents (index 0 or 1)
	// wins the unique constraint race; which one is not deterministic
	// under concurrent insertion, but the unrelated third document must
	// always succeed.
	succeeded := 0
	for _, r := range results[:2] {
		if r != nil {
			succeeded++
		}
	}
	require.Equal(t, 1, succeeded)
	require.NotNil(t, results[2])
}

func TestCollectionInsertReportsTheActualCollidedUniqueField(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	d := schema.New(
		schema.String("email").Promote(schema.Unique()),
		schema.String("username").Promote(schema.Unique()),
	)
	col, err := db.RegisterCollection(ctx, "accounts", d, 1)
	require.NoError(t, err)

	_, err = col.Insert(ctx, map[string]any{"email": "ada@example.com", "username": "ada"})
	require.NoError(t, err)

	// email is declared first but username is the field that actually
	// collides; the error must name username, not email.
	_, err = col.Insert(ctx, map[string]any{"email": "other@example.com", "username": "ada"})
	require.Error(t, err)
	var uce *skibbadb.UniqueConstraintError
	require.ErrorAs(t, err, &uce)
	require.Equal(t, "username", uce.Field)
}

func TestCollectionInsertDuplicateSuppliedIDReportsIDField(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	col := registerUsers(t, db)

	_, err := col.Upsert(ctx, "fixed-id", map[string]any{"name": "Ada", "email": "ada@example.com"})
	require.NoError(t, err)

	_, err = col.Insert(ctx, map[string]any{"_id": "fixed-id", "name": "Grace", "email": "grace@example.com"})
	require.Error(t, err)
	var uce *skibbadb.UniqueConstraintError
	require.ErrorAs(t, err, &uce)
	require.Equal(t, "id", uce.Field)
}

func TestCollectionWhereToArrayAndCount(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	col := registerUsers(t, db)

	_, err := col.Insert(ctx, map[string]any{"name": "Ada", "email": "ada@example.com", "age": float64(30)})
	require.NoError(t, err)
	_, err = col.Insert(ctx, map[string]any{"name": "Grace", "email": "grace@example.com", "age": float64(40)})
	require.NoError(t, err)

	count, err := col.Where(matchAll).Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	docs, err := col.Where(matchAll).OrderBy("name", false).ToArray(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, "Ada", docs[0]["name"])

	first, err := col.Where(matchAll).OrderBy("age", true).First(ctx)
	require.NoError(t, err)
	require.Equal(t, "Grace", first["name"])
}
