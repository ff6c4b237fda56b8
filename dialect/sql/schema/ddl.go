package schema

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/syssam/skibbadb/internal/typeinfer"
	"github.com/syssam/skibbadb/schema"
)

// Compile derives the DDL Table for a collection from its descriptor.
// Column order is fixed (_id, doc) followed by promoted columns in
// declaration order. CheckConfig is assumed to already
// have been run by the caller (schema.Descriptor.CheckConfig).
func Compile(tableName string, d *schema.Descriptor) (*Table, error) {
	t := NewTable(tableName)

	for _, pf := range d.Promotions() {
		storage, err := schema.StorageOf(pf.Field)
		if err != nil {
			return nil, fmt.Errorf("schema: table %q: %w", tableName, err)
		}

		if storage == typeinfer.Vector {
			vt := &VecTable{
				Name:       vecTableName(tableName, schema.ColumnName(pf.Field.Path)),
				SourceCol:  schema.ColumnName(pf.Field.Path),
				Dimensions: pf.Promotion.VectorDimensions,
				ElemType:   string(pf.Promotion.VectorType),
			}
			if vt.ElemType == "" {
				vt.ElemType = string(schema.VectorFloat)
			}
			// The raw JSON array is still kept as a TEXT column on the
			// main table; the vec0 table indexes it for nearest-neighbor
			// search.
			t.AddColumn(&Column{
				Name:     schema.ColumnName(pf.Field.Path),
				Type:     string(typeinfer.Text),
				Nullable: pf.Promotion.Nullable,
			})
			t.VecTables = append(t.VecTables, vt)
			continue
		}

		col := &Column{
			Name:     schema.ColumnName(pf.Field.Path),
			Type:     string(storage),
			Nullable: pf.Promotion.Nullable,
			Unique:   pf.Promotion.Unique,
		}
		if pf.Promotion.CheckExpr != "" {
			col.Check = substituteColumnName(pf.Promotion.CheckExpr, pf.Field.Path, col.Name)
		}
		t.AddColumn(col)

		if pf.Promotion.Unique {
			t.AddIndex(&Index{
				Name:    indexName(tableName, "unique", col.Name),
				Unique:  true,
				Columns: []*Column{col},
			})
		}

		if pf.Promotion.ForeignKeyRef != "" {
			refTable, refCol, err := splitRef(pf.Promotion.ForeignKeyRef)
			if err != nil {
				return nil, fmt.Errorf("schema: table %q: field %q: %w", tableName, pf.Field.Path, err)
			}
			t.AddForeignKey(&ForeignKey{
				Symbol:   foreignKeyName(tableName, col.Name),
				Columns:  []*Column{col},
				RefTable: NewTable(refTable),
				RefCol:   &Column{Name: refCol},
				OnDelete: string(pf.Promotion.OnDelete),
				OnUpdate: string(pf.Promotion.OnUpdate),
			})
		}
	}

	return t, nil
}

// CompileUniqueIndex builds a composite unique index spanning several
// promoted fields, identified by their document paths. Every path must already be promoted
// on t.
func CompileUniqueIndex(t *Table, name string, paths ...string) (*Index, error) {
	idx := &Index{Name: name, Unique: true}
	for _, p := range paths {
		col := t.Column(schema.ColumnName(p))
		if col == nil {
			return nil, fmt.Errorf("schema: table %q: composite index %q references unpromoted field %q", t.Name, name, p)
		}
		idx.Columns = append(idx.Columns, col)
	}
	t.AddIndex(idx)
	return idx, nil
}

// CompileJSONIndex builds a secondary index over a json_extract expression
// for a field that was never promoted to a real column. SQLite can still
// use this index via its generated-column/expression-index support.
func CompileJSONIndex(t *Table, name, path string, unique bool) *Index {
	expr := fmt.Sprintf("json_extract(doc, '$.%s')", path)
	idx := &Index{Name: name, Unique: unique, Exprs: []string{expr}}
	t.AddIndex(idx)
	return idx
}

// Statements renders every DDL statement needed to materialize t: the
// CREATE TABLE, one CREATE INDEX per index, and one CREATE VIRTUAL TABLE
// per vec0 sidecar. All are IF NOT EXISTS.
func (t *Table) Statements() []string {
	stmts := []string{t.CreateTableSQL()}
	for _, idx := range t.Indexes {
		stmts = append(stmts, t.CreateIndexSQL(idx))
	}
	for _, vt := range t.VecTables {
		stmts = append(stmts, vt.CreateVecTableSQL())
	}
	return stmts
}

// splitRef splits a "table.column" foreign key reference. A reference to
// "id" is rewritten to "_id", the real primary-key column every table
// actually has, so callers never need to know that document ids are
// document-model "id" but storage-model "_id".
func splitRef(ref string) (table, column string, err error) {
	i := strings.LastIndexByte(ref, '.')
	if i < 0 {
		return "", "", fmt.Errorf("foreign key reference %q must be \"table.column\"", ref)
	}
	table, column = ref[:i], ref[i+1:]
	if column == "id" {
		column = "_id"
	}
	return table, column, nil
}

// columnNameBoundary reports whether r cannot extend an identifier, so a
// match ending/starting there is a whole-word match rather than a prefix
// of a longer identifier.
func columnNameBoundary(r rune) bool {
	return !(r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r))
}

// substituteColumnName rewrites every whole-word occurrence of fieldPath in
// expr to colName, leaving identifiers that merely contain fieldPath as a
// substring (e.g. "fieldPath2") untouched.
func substituteColumnName(expr, fieldPath, colName string) string {
	if fieldPath == colName {
		return expr
	}
	var sb strings.Builder
	rest := expr
	for {
		i := strings.Index(rest, fieldPath)
		if i < 0 {
			sb.WriteString(rest)
			break
		}
		before := rune(0)
		if i > 0 {
			before, _ = utf8.DecodeLastRuneInString(rest[:i])
		}
		after := rune(0)
		if i+len(fieldPath) < len(rest) {
			after, _ = utf8.DecodeRuneInString(rest[i+len(fieldPath):])
		}
		boundaryBefore := i == 0 || columnNameBoundary(before)
		boundaryAfter := i+len(fieldPath) == len(rest) || columnNameBoundary(after)

		sb.WriteString(rest[:i])
		if boundaryBefore && boundaryAfter {
			sb.WriteString(colName)
		} else {
			sb.WriteString(fieldPath)
		}
		rest = rest[i+len(fieldPath):]
	}
	return sb.String()
}
