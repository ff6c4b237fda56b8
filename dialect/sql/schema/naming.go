package schema

import (
	"fmt"

	"github.com/go-openapi/inflect"

	"github.com/syssam/skibbadb/vector"
)

// indexName derives a default index name from its table and columns,
// normalized through inflect's underscore rules so a field path like
// "userProfile.displayName" and a promoted column "userProfile_displayName"
// produce the same identifier style as the rest of the schema.
func indexName(table string, suffix string, cols ...string) string {
	parts := table
	for _, c := range cols {
		parts += "_" + c
	}
	return inflect.Underscore(parts) + "_" + suffix
}

// foreignKeyName derives a default foreign-key constraint symbol.
func foreignKeyName(table, col string) string {
	return inflect.Underscore(fmt.Sprintf("%s_%s", table, col)) + "_fk"
}

// vecTableName derives the vec0 sidecar virtual table name for a vector
// column. Delegated to the vector package
// so the DDL compiler and the search path never disagree on the name.
func vecTableName(table, col string) string {
	return vector.TableName(table, col)
}
