// Package schema compiles a collection's schema.Descriptor to SQLite DDL:
// one CREATE TABLE per collection, plus the side statements promoted
// fields require (unique/secondary indexes, composite unique indexes, and
// vec0 virtual tables for vector fields), all issued IF NOT EXISTS.
// It also diffs a previously-recorded shape against the
// descriptor's current shape to classify a migration as additive or
// breaking.
package schema

import "fmt"

// Table is the DDL-level description of one collection's table.
type Table struct {
	Name        string
	Columns     []*Column
	PrimaryKey  []*Column
	Indexes     []*Index
	ForeignKeys []*ForeignKey
	// VecTables lists the vec0 sidecar virtual tables this collection's
	// vector-promoted columns require.
	VecTables []*VecTable
}

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// AddColumn appends a column and returns the table, for chaining.
func (t *Table) AddColumn(c *Column) *Table {
	t.Columns = append(t.Columns, c)
	return t
}

// AddIndex appends an index and returns the table, for chaining.
func (t *Table) AddIndex(i *Index) *Table {
	t.Indexes = append(t.Indexes, i)
	return t
}

// AddForeignKey appends a foreign key and returns the table, for chaining.
func (t *Table) AddForeignKey(fk *ForeignKey) *Table {
	t.ForeignKeys = append(t.ForeignKeys, fk)
	return t
}

// NewTable returns an empty table named name.
func NewTable(name string) *Table {
	return &Table{Name: name}
}

// Column is a SQL column: either the fixed _id/doc pair every collection
// table has, or a promoted field.
type Column struct {
	Name     string
	Type     string // SQLite storage class: TEXT, INTEGER, REAL, BLOB
	Nullable bool
	Unique   bool
	Default  any
	Size     int64  // informational only; SQLite ignores VARCHAR(n) length
	Check    string // raw CHECK(...) expression body, column name already substituted
}

// Index is a non-unique or unique secondary index, potentially composite
// and potentially over a json_extract expression rather than a column.
type Index struct {
	Name    string
	Unique  bool
	Columns []*Column
	// Exprs holds a raw SQL expression per indexed position when Columns is
	// nil or shorter — used for json_extract($.path) indexes on fields
	// that were not promoted to a real column.
	Exprs []string
}

// ForeignKey is a single-column foreign key constraint.
type ForeignKey struct {
	Symbol   string
	Columns  []*Column
	RefTable *Table
	RefCol   *Column
	OnDelete string
	OnUpdate string
}

// VecTable is a vec0 virtual table sidecar to a vector-promoted column.
type VecTable struct {
	Name       string // "<table>_<column>_vec"
	SourceCol  string // the owning table's TEXT column holding the raw JSON array
	Dimensions int
	ElemType   string // "float" for now; sqlite-vec also supports int8/bit
}

// CreateTableSQL renders the CREATE TABLE IF NOT EXISTS statement for t.
// Column order is _id, doc, then promoted columns in declaration order.
func (t *Table) CreateTableSQL() string {
	sql := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n", quoteIdent(t.Name))
	sql += "  \"_id\" TEXT PRIMARY KEY,\n  \"doc\" TEXT NOT NULL"
	for _, c := range t.Columns {
		sql += ",\n  " + c.defSQL()
	}
	for _, fk := range t.ForeignKeys {
		sql += ",\n  " + fk.defSQL()
	}
	sql += "\n)"
	return sql
}

func (c *Column) defSQL() string {
	def := quoteIdent(c.Name) + " " + c.Type
	if !c.Nullable {
		def += " NOT NULL"
	}
	if c.Unique {
		def += " UNIQUE"
	}
	if c.Check != "" {
		def += fmt.Sprintf(" CHECK (%s)", c.Check)
	}
	if c.Default != nil {
		def += fmt.Sprintf(" DEFAULT %v", sqlLiteral(c.Default))
	}
	return def
}

func (fk *ForeignKey) defSQL() string {
	cols := make([]string, len(fk.Columns))
	for i, c := range fk.Columns {
		cols[i] = quoteIdent(c.Name)
	}
	def := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(%s)",
		joinIdent(cols), quoteIdent(fk.RefTable.Name), quoteIdent(fk.RefCol.Name))
	if fk.OnDelete != "" {
		def += " ON DELETE " + fk.OnDelete
	}
	if fk.OnUpdate != "" {
		def += " ON UPDATE " + fk.OnUpdate
	}
	return def
}

// CreateIndexSQL renders the CREATE [UNIQUE] INDEX IF NOT EXISTS statement
// for idx on table t.
func (t *Table) CreateIndexSQL(idx *Index) string {
	kind := "INDEX"
	if idx.Unique {
		kind = "UNIQUE INDEX"
	}
	var parts []string
	for _, c := range idx.Columns {
		if c != nil {
			parts = append(parts, quoteIdent(c.Name))
		}
	}
	parts = append(parts, idx.Exprs...)
	return fmt.Sprintf("CREATE %s IF NOT EXISTS %s ON %s (%s)",
		kind, quoteIdent(idx.Name), quoteIdent(t.Name), joinIdent(parts))
}

// CreateVecTableSQL renders the CREATE VIRTUAL TABLE IF NOT EXISTS vec0(...)
// statement for a vector sidecar.
func (v *VecTable) CreateVecTableSQL() string {
	elem := v.ElemType
	if elem == "" {
		elem = "float"
	}
	return fmt.Sprintf(
		"CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(_id TEXT PRIMARY KEY, %s %s[%d])",
		quoteIdent(v.Name), quoteIdent(v.SourceCol), elem, v.Dimensions,
	)
}

func quoteIdent(s string) string { return `"` + s + `"` }

func joinIdent(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

func sqlLiteral(v any) string {
	switch t := v.(type) {
	case string:
		return "'" + t + "'"
	default:
		return fmt.Sprintf("%v", t)
	}
}
