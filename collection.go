package skibbadb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/skibbadb/dialect"
	sqldialect "github.com/syssam/skibbadb/dialect/sql"
	"github.com/syssam/skibbadb/dialect/sql/sqlgraph"
	"github.com/syssam/skibbadb/internal/codec"
	"github.com/syssam/skibbadb/internal/typeinfer"
	"github.com/syssam/skibbadb/query"
	"github.com/syssam/skibbadb/schema"
	"github.com/syssam/skibbadb/vector"
)

// vectorPromotions returns the collection's vector-storage promotions,
// used to dual-write the vec0 sidecar alongside the base row.
func (c *Collection) vectorPromotions() []schema.PromotedField {
	var out []schema.PromotedField
	for _, pf := range c.d.Promotions() {
		if storage, err := schema.StorageOf(pf.Field); err == nil && storage == typeinfer.Vector {
			out = append(out, pf)
		}
	}
	return out
}

// toFloatSlice converts a decoded JSON array (typically []any of
// float64/int) into []float64 for the vec0 sidecar.
func toFloatSlice(v any) ([]float64, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]float64, len(arr))
	for i, e := range arr {
		switch n := e.(type) {
		case float64:
			out[i] = n
		case int:
			out[i] = float64(n)
		default:
			return nil, false
		}
	}
	return out, true
}

// writeVectors dual-writes the vec0 sidecar rows for doc's vector fields,
// within tx, in the same transaction as the base-row write it accompanies.
func (c *Collection) writeVectors(ctx context.Context, tx dialect.ExecQuerier, id string, doc map[string]any) error {
	for _, pf := range c.vectorPromotions() {
		v, ok := doc[pf.Field.Path]
		if !ok || v == nil {
			if err := vector.Delete(ctx, tx, c.name, schema.ColumnName(pf.Field.Path), id); err != nil {
				return fmt.Errorf("skibbadb: %s: vector field %q: %w", c.name, pf.Field.Path, err)
			}
			continue
		}
		floats, ok := toFloatSlice(v)
		if !ok {
			return NewValidationError(c.name, pf.Field.Path, "vector field must be a numeric array")
		}
		if err := vector.Upsert(ctx, tx, c.name, schema.ColumnName(pf.Field.Path), id, floats); err != nil {
			return fmt.Errorf("skibbadb: %s: vector field %q: %w", c.name, pf.Field.Path, err)
		}
	}
	return nil
}

// deleteVectors removes id's vec0 sidecar rows for every vector field, in
// the same transaction as the base-row delete.
func (c *Collection) deleteVectors(ctx context.Context, tx dialect.ExecQuerier, id string) error {
	for _, pf := range c.vectorPromotions() {
		if err := vector.Delete(ctx, tx, c.name, schema.ColumnName(pf.Field.Path), id); err != nil {
			return fmt.Errorf("skibbadb: %s: vector field %q: %w", c.name, pf.Field.Path, err)
		}
	}
	return nil
}

// runQuery executes sqlText/args and decodes the result set into a slice
// of column-name-keyed maps, since collections have no fixed row shape
// beyond "_id, doc, [promoted columns...]".
func runQuery(ctx context.Context, db *Database, sqlText string, args []any) ([]map[string]any, error) {
	rows := &sqldialect.Rows{}
	if err := db.driver.Query(ctx, sqlText, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			switch v := vals[i].(type) {
			case []byte:
				row[c] = string(v)
			default:
				row[c] = v
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Collection is a schema-bound set of documents backed by one SQL table.
// Collections are obtained from
// Database.RegisterCollection/Database.Collection and are safe for
// concurrent use; each operation opens its own driver round-trip.
type Collection struct {
	db   *Database
	name string
	d    *schema.Descriptor
}

func newCollection(db *Database, name string, d *schema.Descriptor) *Collection {
	return &Collection{db: db, name: name, d: d}
}

// Name returns the collection's table/name.
func (c *Collection) Name() string { return c.name }

// Descriptor returns the collection's schema descriptor.
func (c *Collection) Descriptor() *schema.Descriptor { return c.d }

// execWrite runs sqlText/args against the base table and, when the
// collection has vector promotions, wraps it with the matching vec0
// dual-write in one transaction. When deleting is true the document's vec0
// rows are removed instead of written.
func (c *Collection) execWrite(ctx context.Context, sqlText string, args []any, id string, doc map[string]any, deleting bool) error {
	if len(c.vectorPromotions()) == 0 {
		return c.db.driver.Exec(ctx, sqlText, args, nil)
	}

	tx, err := c.db.driver.Tx(ctx)
	if err != nil {
		return NewDatabaseError(ConnectionCreateFailed, "failed to begin write transaction", err)
	}
	if err := tx.Exec(ctx, sqlText, args, nil); err != nil {
		tx.Rollback()
		return err
	}
	if deleting {
		err = c.deleteVectors(ctx, tx, id)
	} else {
		err = c.writeVectors(ctx, tx, id, doc)
	}
	if err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Insert validates doc, assigns an id if absent, and writes it.
func (c *Collection) Insert(ctx context.Context, doc map[string]any) (map[string]any, error) {
	if c.db.IsClosed() {
		return nil, nil // writes on a closed database are silent no-ops
	}

	in := cloneMap(doc)
	id, hadID := in["_id"].(string)
	if !hadID || id == "" {
		id = uuid.NewString()
		in["_id"] = id
	}

	validated, err := c.d.Validate(in)
	if err != nil {
		return nil, translateValidationError(c.name, err)
	}
	validated["_id"] = id

	var hookErr error
	var hv any
	if hv, hookErr = c.db.hooks.Run(ctx, BeforeInsert, c.name, validated); hookErr != nil {
		return nil, hookErr
	}
	if m, ok := hv.(map[string]any); ok {
		validated = m
	}

	encoded, err := codec.Marshal(codec.FromMap(validated))
	if err != nil {
		return nil, fmt.Errorf("skibbadb: %s: encode document: %w", c.name, err)
	}

	cols, vals := c.promotedColumnValues(validated)
	sqlText := c.insertSQL(cols)
	args := append([]any{id, string(encoded)}, vals...)

	if err := c.execWrite(ctx, sqlText, args, id, validated, false); err != nil {
		return nil, c.classifyWriteError(err, validated)
	}

	if _, err := c.db.hooks.Run(ctx, AfterInsert, c.name, validated); err != nil {
		return nil, err
	}

	return validated, nil
}

// InsertBulk inserts docs, each through its own Insert with its own
// validation and error surfacing. Up to 8 inserts run concurrently
// (errgroup); each document is still written atomically and independently
// of the others.
func (c *Collection) InsertBulk(ctx context.Context, docs []map[string]any) ([]map[string]any, error) {
	results := make([]map[string]any, len(docs))
	errs := make([]error, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			res, err := c.Insert(gctx, doc)
			results[i] = res
			errs[i] = err
			return nil // per-document errors are collected, not propagated as a group failure
		})
	}
	_ = g.Wait()

	if agg := NewAggregateError(errs...); agg != nil {
		return results, agg
	}
	return results, nil
}

// Put fetches id, shallow-merges partial at the top level, re-validates,
// and writes the merged document.
func (c *Collection) Put(ctx context.Context, id string, partial map[string]any) (map[string]any, error) {
	if c.db.IsClosed() {
		return nil, nil
	}

	existing, err := c.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, NewNotFoundError(c.name, id)
	}

	merged := cloneMap(existing)
	for k, v := range partial {
		merged[k] = v
	}

	validated, err := c.d.Validate(merged)
	if err != nil {
		return nil, translateValidationError(c.name, err)
	}
	validated["_id"] = id

	if hv, err := c.db.hooks.Run(ctx, BeforeUpdate, c.name, validated); err != nil {
		return nil, err
	} else if m, ok := hv.(map[string]any); ok {
		validated = m
	}

	encoded, err := codec.Marshal(codec.FromMap(validated))
	if err != nil {
		return nil, fmt.Errorf("skibbadb: %s: encode document: %w", c.name, err)
	}

	cols, vals := c.promotedColumnValues(validated)
	sqlText := c.updateSQL(cols)
	args := append([]any{string(encoded)}, vals...)
	args = append(args, id)

	if err := c.execWrite(ctx, sqlText, args, id, validated, false); err != nil {
		return nil, c.classifyWriteError(err, validated)
	}

	if _, err := c.db.hooks.Run(ctx, AfterUpdate, c.name, validated); err != nil {
		return nil, err
	}

	return validated, nil
}

// Upsert validates a full document with the given id and writes it with
// INSERT ... ON CONFLICT(_id) DO UPDATE semantics.
func (c *Collection) Upsert(ctx context.Context, id string, doc map[string]any) (map[string]any, error) {
	if c.db.IsClosed() {
		return nil, nil
	}

	in := cloneMap(doc)
	in["_id"] = id
	validated, err := c.d.Validate(in)
	if err != nil {
		return nil, translateValidationError(c.name, err)
	}
	validated["_id"] = id

	encoded, err := codec.Marshal(codec.FromMap(validated))
	if err != nil {
		return nil, fmt.Errorf("skibbadb: %s: encode document: %w", c.name, err)
	}

	cols, vals := c.promotedColumnValues(validated)
	sqlText := c.upsertSQL(cols)
	args := append([]any{id, string(encoded)}, vals...)
	args = append(args, append([]any{string(encoded)}, vals...)...)

	if err := c.execWrite(ctx, sqlText, args, id, validated, false); err != nil {
		return nil, c.classifyWriteError(err, validated)
	}
	return validated, nil
}

// Delete removes id. Deleting an absent id is not an error.
func (c *Collection) Delete(ctx context.Context, id string) error {
	if c.db.IsClosed() {
		return nil
	}
	if _, err := c.db.hooks.Run(ctx, BeforeDelete, c.name, id); err != nil {
		return err
	}
	sqlText := fmt.Sprintf(`DELETE FROM %q WHERE _id = ?`, c.name)
	if err := c.execWrite(ctx, sqlText, []any{id}, id, nil, true); err != nil {
		return fmt.Errorf("skibbadb: %s: delete: %w", c.name, err)
	}
	_, err := c.db.hooks.Run(ctx, AfterDelete, c.name, id)
	return err
}

// FindByID reads the document at id and decodes it from the stored doc
// blob. Only _id and doc are selected, so promoted column values (for
// example a column cleared by an ON DELETE SET NULL cascade) are not
// reflected in the result. Returns nil, nil if id doesn't exist.
func (c *Collection) FindByID(ctx context.Context, id string) (map[string]any, error) {
	if c.db.IsClosed() {
		return nil, nil
	}
	sqlText := fmt.Sprintf(`SELECT _id, doc FROM %q WHERE _id = ?`, c.name)

	rows, err := runQuery(ctx, c.db, sqlText, []any{id})
	if err != nil {
		return nil, fmt.Errorf("skibbadb: %s: findById: %w", c.name, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	raw, _ := rows[0]["doc"].(string)
	dc, err := codec.Unmarshal([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("skibbadb: %s: decode document: %w", c.name, err)
	}

	colToField := make(map[string]string)
	for _, pf := range c.d.Promotions() {
		colToField[schema.ColumnName(pf.Field.Path)] = pf.Field.Path
	}
	codec.Overlay(dc, colToField, rows[0])

	m := dc.Map()
	m["_id"] = id
	return m, nil
}

// Where starts a query against this collection.
func (c *Collection) Where(n query.Node) *CollectionQuery {
	return &CollectionQuery{col: c, b: query.New().Where(n)}
}

// VectorSearch runs a k-NN search over a declared vector promotion,
// optionally post-filtered by where, and returns the matching documents
// ordered by ascending distance.
func (c *Collection) VectorSearch(ctx context.Context, field string, vec []float64, limit int, where query.Node) ([]map[string]any, error) {
	pf, ok := c.d.Field(field)
	if !ok || pf.Promotion() == nil || pf.Promotion().VectorDimensions == 0 {
		return nil, NewValidationError(c.name, field, "not a declared vector promotion")
	}

	params := vector.SearchParams{
		Collection: c.name,
		Field:      schema.ColumnName(field),
		Vector:     vec,
		Dimensions: pf.Promotion().VectorDimensions,
		Limit:      limit,
	}
	if !where.IsZero() {
		m := &query.Model{Filters: []query.Node{where}}
		compiled, err := query.Compile(c.name, c.d, m, false)
		if err != nil {
			return nil, err
		}
		whereSQL, err := splitWhere(compiled.SQL)
		if err != nil {
			return nil, err
		}
		params.Where, params.WhereArgs = whereSQL, compiled.Args
	}

	matches, err := vector.Search(ctx, c.db.driver, params)
	if err != nil {
		return nil, fmt.Errorf("skibbadb: %s: vectorSearch: %w", c.name, err)
	}

	out := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		doc, err := c.FindByID(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			out = append(out, doc)
		}
	}
	return out, nil
}

// splitWhere extracts the WHERE clause body from a compiled "SELECT ...
// WHERE <body>" statement, since query.Compile always produces a full
// SELECT and vectorSearch only wants the predicate to splice into its own
// query against the base table.
func splitWhere(sql string) (string, error) {
	const marker = " WHERE "
	i := strings.Index(sql, marker)
	if i < 0 {
		return "", fmt.Errorf("skibbadb: vectorSearch: where clause produced no predicate")
	}
	body := sql[i+len(marker):]
	if j := strings.Index(body, " ORDER BY "); j >= 0 {
		body = body[:j]
	}
	if j := strings.Index(body, " LIMIT "); j >= 0 {
		body = body[:j]
	}
	return body, nil
}

// CollectionQuery is a query builder bound to a collection; ToArray,
// First, and Count each compile the held query and execute it.
type CollectionQuery struct {
	col *Collection
	b   *query.Builder
}

// Where adds another top-level AND filter.
func (q *CollectionQuery) Where(n query.Node) *CollectionQuery {
	q.b.Where(n)
	return q
}

// OrderBy appends an ordering clause.
func (q *CollectionQuery) OrderBy(field string, desc bool) *CollectionQuery {
	q.b.OrderBy(field, desc)
	return q
}

// Limit sets the row limit.
func (q *CollectionQuery) Limit(n int) *CollectionQuery {
	q.b.Limit(n)
	return q
}

// Offset sets the row offset.
func (q *CollectionQuery) Offset(n int) *CollectionQuery {
	q.b.Offset(n)
	return q
}

// ToArray compiles and executes the query, returning decoded documents.
func (q *CollectionQuery) ToArray(ctx context.Context) ([]map[string]any, error) {
	col := q.col
	if col.db.IsClosed() {
		return nil, nil
	}

	if _, err := col.db.hooks.Run(ctx, BeforeQuery, col.name, q.b); err != nil {
		return nil, err
	}

	m, err := q.b.Build()
	if err != nil {
		return nil, err
	}
	compiled, err := query.Compile(col.name, col.d, m, false)
	if err != nil {
		return nil, err
	}

	rows, err := runQuery(ctx, col.db, compiled.SQL, compiled.Args)
	if err != nil {
		return nil, fmt.Errorf("skibbadb: %s: query: %w", col.name, err)
	}

	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		raw, _ := row["doc"].(string)
		if raw == "" {
			continue
		}
		dc, err := codec.Unmarshal([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("skibbadb: %s: decode document: %w", col.name, err)
		}
		doc := dc.Map()
		if id, ok := row["_id"]; ok {
			doc["_id"] = id
		}
		out = append(out, doc)
	}

	if _, err := col.db.hooks.Run(ctx, AfterQuery, col.name, out); err != nil {
		return nil, err
	}
	return out, nil
}

// First returns the first matching document, or nil if none match.
func (q *CollectionQuery) First(ctx context.Context) (map[string]any, error) {
	docs, err := q.Limit(1).ToArray(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

// Count returns the number of matching rows.
func (q *CollectionQuery) Count(ctx context.Context) (int64, error) {
	m, err := q.b.Build()
	if err != nil {
		return 0, err
	}
	m.Aggregates = []query.Aggregate{{Func: query.Count, Field: "*", Alias: "count"}}
	compiled, err := query.Compile(q.col.name, q.col.d, m, false)
	if err != nil {
		return 0, err
	}
	rows, err := runQuery(ctx, q.col.db, compiled.SQL, compiled.Args)
	if err != nil {
		return 0, fmt.Errorf("skibbadb: %s: count: %w", q.col.name, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	switch v := rows[0]["count"].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	default:
		return 0, nil
	}
}

// promotedColumnValues returns the promoted columns (in declaration
// order) and their values extracted from a validated document.
func (c *Collection) promotedColumnValues(doc map[string]any) (cols []string, vals []any) {
	for _, pf := range c.d.Promotions() {
		col := schema.ColumnName(pf.Field.Path)
		v, ok := doc[pf.Field.Path]
		cols = append(cols, col)
		if !ok || v == nil {
			vals = append(vals, nil)
			continue
		}
		if b, ok := v.(bool); ok {
			if b {
				vals = append(vals, 1)
			} else {
				vals = append(vals, 0)
			}
			continue
		}
		switch v.(type) {
		case []any, []float64, []float32, map[string]any:
			// arrays and objects go into their TEXT column as JSON
			if b, err := json.Marshal(v); err == nil {
				vals = append(vals, string(b))
				continue
			}
		}
		vals = append(vals, v)
	}
	return cols, vals
}

func (c *Collection) insertSQL(cols []string) string {
	names := append([]string{"_id", "doc"}, cols...)
	placeholders := make([]string, len(names))
	for i := range names {
		placeholders[i] = "?"
	}
	return fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s)`,
		c.name, quoteCSV(names), csv(placeholders))
}

func (c *Collection) updateSQL(cols []string) string {
	sets := []string{`"doc" = ?`}
	for _, col := range cols {
		sets = append(sets, fmt.Sprintf(`%q = ?`, col))
	}
	return fmt.Sprintf(`UPDATE %q SET %s WHERE _id = ?`, c.name, csv(sets))
}

func (c *Collection) upsertSQL(cols []string) string {
	names := append([]string{"_id", "doc"}, cols...)
	placeholders := make([]string, len(names))
	for i := range names {
		placeholders[i] = "?"
	}
	sets := []string{`"doc" = ?`}
	for _, col := range cols {
		sets = append(sets, fmt.Sprintf(`%q = ?`, col))
	}
	return fmt.Sprintf(
		`INSERT INTO %q (%s) VALUES (%s) ON CONFLICT(_id) DO UPDATE SET %s`,
		c.name, quoteCSV(names), csv(placeholders), csv(sets),
	)
}

func (c *Collection) classifyWriteError(err error, doc map[string]any) error {
	if sqlgraph.IsUniqueConstraintError(err) {
		field, value := collidedUniqueField(c.d, doc, err)
		return NewUniqueConstraintError(c.name, field, value)
	}
	if sqlgraph.IsForeignKeyConstraintError(err) {
		return NewValidationError(c.name, "", "foreign key constraint: references a non-existent row")
	}
	if sqlgraph.IsCheckConstraintError(err) {
		return NewValidationError(c.name, "", "check constraint violated")
	}
	return fmt.Errorf("skibbadb: %s: write: %w", c.name, err)
}

// collidedUniqueField names the field that actually collided with a UNIQUE
// constraint, by parsing the engine's error for the violated column and
// mapping it back through the descriptor. "_id" (a duplicate supplied id)
// maps to the document field "id". Falls back to the first
// unique-promoted field only if the column can't be recovered from err.
func collidedUniqueField(d *schema.Descriptor, doc map[string]any, err error) (string, any) {
	if col, ok := sqlgraph.UniqueConstraintColumn(err); ok {
		if col == "_id" {
			return "id", doc["_id"]
		}
		if f, ok := d.PromotedFieldByColumn(col); ok {
			return f.Path, doc[f.Path]
		}
	}
	for _, pf := range d.Promotions() {
		if pf.Promotion.Unique {
			return pf.Field.Path, doc[pf.Field.Path]
		}
	}
	return "", nil
}

func translateValidationError(collection string, err error) error {
	if fe, ok := err.(*schema.FieldError); ok {
		return NewValidationError(collection, fe.Path, fe.Err.Error())
	}
	return NewValidationError(collection, "", err.Error())
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func quoteCSV(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%q", n)
	}
	return out
}

func csv(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
