package schema

import (
	"context"
	"database/sql"
	"fmt"

	atlas "ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"
)

// Introspect reads back the live shape of tableName from db using atlas's
// SQLite driver, converting the result to this package's Table so it can
// be compared against a freshly compiled Table with Diff/ValidateDiff.
// Returns a nil Table with no error if the table does not
// exist yet (a first-run migration has nothing to diff against).
func Introspect(ctx context.Context, db *sql.DB, tableName string) (*Table, error) {
	drv, err := sqlite.Open(db)
	if err != nil {
		return nil, fmt.Errorf("schema: open atlas sqlite driver: %w", err)
	}
	at, err := drv.InspectTable(ctx, tableName, nil)
	if err != nil {
		if atlas.IsNotExistError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("schema: inspect table %q: %w", tableName, err)
	}
	return fromAtlas(at), nil
}

// Diff compares a table's previously-recorded shape against its freshly
// compiled shape and classifies the migration as additive or breaking.
// A nil current table (table does not exist yet) never
// produces breaking changes.
func Diff(current, desired *Table, opts ...ValidateOption) *ValidationResult {
	var cur []*Table
	if current != nil {
		cur = []*Table{current}
	}
	return ValidateDiff(cur, []*Table{desired}, opts...)
}

func fromAtlas(at *atlas.Table) *Table {
	t := NewTable(at.Name)
	cols := make(map[string]*Column, len(at.Columns))
	for _, c := range at.Columns {
		col := &Column{
			Name:     c.Name,
			Type:     atlasTypeName(c.Type),
			Nullable: c.Type != nil && c.Type.Null,
		}
		if c.Default != nil {
			col.Default = fmt.Sprint(c.Default)
		}
		t.AddColumn(col)
		cols[c.Name] = col
	}
	if at.PrimaryKey != nil {
		for _, p := range at.PrimaryKey.Parts {
			if p.C != nil {
				if col, ok := cols[p.C.Name]; ok {
					t.PrimaryKey = append(t.PrimaryKey, col)
				}
			}
		}
	}
	for _, idx := range at.Indexes {
		ix := &Index{Name: idx.Name, Unique: idx.Unique}
		for _, p := range idx.Parts {
			if p.C != nil {
				if col, ok := cols[p.C.Name]; ok {
					ix.Columns = append(ix.Columns, col)
					continue
				}
			}
			if p.X != nil {
				if raw, ok := p.X.(*atlas.RawExpr); ok {
					ix.Exprs = append(ix.Exprs, raw.X)
				}
			}
		}
		t.AddIndex(ix)
	}
	for _, fk := range at.ForeignKeys {
		f := &ForeignKey{
			Symbol:   fk.Symbol,
			OnDelete: string(fk.OnDelete),
			OnUpdate: string(fk.OnUpdate),
		}
		if fk.RefTable != nil {
			f.RefTable = NewTable(fk.RefTable.Name)
		}
		for _, c := range fk.Columns {
			if col, ok := cols[c.Name]; ok {
				f.Columns = append(f.Columns, col)
			}
		}
		for _, c := range fk.RefColumns {
			f.RefCol = &Column{Name: c.Name}
			break
		}
		t.AddForeignKey(f)
	}
	return t
}

func atlasTypeName(ct *atlas.ColumnType) string {
	if ct == nil || ct.Raw == "" {
		return "TEXT"
	}
	return ct.Raw
}
