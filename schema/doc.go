// Package schema defines collection schemas: a fluent field builder, the
// promotion descriptor that lifts a field into a real SQL column, and a
// declarative YAML loader for schemas defined outside Go source.
//
// # Quick start
//
//	users := schema.New(
//	    schema.String("email").Promote(schema.Unique(), schema.NotNullable()),
//	    schema.String("name"),
//	    schema.Int("age").Optional(),
//	    schema.String("organizationId").Promote(
//	        schema.ForeignKey("organizations._id", schema.Cascade, schema.NoAction),
//	    ),
//	    schema.Array("embedding").Numeric().Promote(schema.Vector(384, schema.VectorFloat)),
//	)
//
// Fields default to required; Optional, Default, and DefaultFunc relax
// that. Promote is what makes a field visible to the SQL engine as a
// column rather than only as JSON inside the doc blob — see
// dialect/sql/schema for how a Descriptor compiles to DDL.
//
// # Mixins
//
// Reusable field sets (timestamps, soft delete) live in schema/mixin;
// compose them with mixin.Flatten before calling New:
//
//	fields := mixin.Flatten([]mixin.Mixin{mixin.TimeSoftDelete{}}, []*schema.Field{
//	    schema.String("email").Promote(schema.Unique()),
//	})
//	users := schema.New(fields...)
//
// # Declarative schemas
//
// LoadDescriptor parses the same shape from YAML, for callers that want
// schemas as data rather than Go code (see yaml.go).
package schema
