package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/syssam/skibbadb/dialect"
	sqldialect "github.com/syssam/skibbadb/dialect/sql"
)

// ErrDisabled is returned by every operation in this package when built
// without the skibbadb_vec tag.
var ErrDisabled = errors.New("vector: sqlite-vec is not linked into this build; rebuild with -tags skibbadb_vec")

// TableName returns the vec0 sidecar table name for a collection/column
// pair: "<collection>_<column>_vec". It mirrors
// dialect/sql/schema's naming so callers outside that package (the
// collection runtime) can address the sidecar without recompiling DDL.
func TableName(collection, column string) string {
	return collection + "_" + column + "_vec"
}

// Encode renders vec as the literal sqlite-vec accepts via vec_f32(?):
// a JSON array of numbers.
func Encode(vec []float64) (string, error) {
	b, err := json.Marshal(vec)
	if err != nil {
		return "", fmt.Errorf("vector: encode: %w", err)
	}
	return string(b), nil
}

// Upsert writes (or replaces) the vec0 sidecar row for id with vec, in the
// same transaction the caller is already holding for the base-table write.
// vec0 tables don't support ON CONFLICT, so this deletes any existing row
// first.
func Upsert(ctx context.Context, tx dialect.ExecQuerier, collection, column string, id string, vec []float64) error {
	if !Enabled {
		return ErrDisabled
	}
	if err := Delete(ctx, tx, collection, column, id); err != nil {
		return err
	}
	literal, err := Encode(vec)
	if err != nil {
		return err
	}
	table := TableName(collection, column)
	sqlText := fmt.Sprintf(`INSERT INTO %q (_id, %q) VALUES (?, vec_f32(?))`, table, column)
	return tx.Exec(ctx, sqlText, []any{id, literal}, nil)
}

// Delete removes id's vec0 sidecar row, if present. Deleting an absent id
// is not an error.
func Delete(ctx context.Context, tx dialect.ExecQuerier, collection, column, id string) error {
	if !Enabled {
		return ErrDisabled
	}
	table := TableName(collection, column)
	sqlText := fmt.Sprintf(`DELETE FROM %q WHERE _id = ?`, table)
	return tx.Exec(ctx, sqlText, []any{id}, nil)
}

// Match is one k-NN search result: the base row id and its distance from
// the query vector, ascending.
type Match struct {
	ID       string
	Distance float64
}

// SearchParams holds the arguments for a k-NN vector search: field,
// vector, limit, and an optional where predicate.
type SearchParams struct {
	Collection string
	Field      string
	Vector     []float64
	Dimensions int
	Limit      int

	// Where, if non-empty, is a pre-compiled SQL predicate over the base
	// table (promoted columns or json_extract expressions), already
	// parameterized with WhereArgs by the caller's query compiler.
	Where     string
	WhereArgs []any
}

// Search runs a k-NN query against the field's vec0 sidecar, returning the
// nearest Limit ids ordered by ascending distance, optionally restricted
// to rows also matching Where against the base table.
func Search(ctx context.Context, q dialect.ExecQuerier, p SearchParams) ([]Match, error) {
	if !Enabled {
		return nil, ErrDisabled
	}
	if p.Limit <= 0 {
		return nil, fmt.Errorf("vector: search: limit must be positive")
	}
	if len(p.Vector) != p.Dimensions {
		return nil, fmt.Errorf("vector: search: query vector has %d dimensions, field %q declares %d", len(p.Vector), p.Field, p.Dimensions)
	}

	literal, err := Encode(p.Vector)
	if err != nil {
		return nil, err
	}
	vecTable := TableName(p.Collection, p.Field)

	sqlText := fmt.Sprintf(`SELECT v._id AS id, v.distance AS distance FROM %q v WHERE v.%q MATCH vec_f32(?) AND k = ?`, vecTable, p.Field)
	args := []any{literal, p.Limit}

	if p.Where != "" {
		sqlText += fmt.Sprintf(` AND v._id IN (SELECT _id FROM %q WHERE %s)`, p.Collection, p.Where)
		args = append(args, p.WhereArgs...)
	}
	sqlText += " ORDER BY v.distance ASC"

	rows := &sqldialect.Rows{}
	if err := q.Query(ctx, sqlText, args, rows); err != nil {
		return nil, fmt.Errorf("vector: search: %w", err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Distance); err != nil {
			return nil, fmt.Errorf("vector: search: scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
