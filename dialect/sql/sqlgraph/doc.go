// Package sqlgraph classifies raw SQL engine errors into the constraint
// violation they represent — unique, foreign key, or check — independent
// of whatever shape the underlying driver gives them. The root package's
// collection runtime uses this to turn a failed insert/put into a
// UniqueConstraintError rather than an opaque DatabaseError.
package sqlgraph
