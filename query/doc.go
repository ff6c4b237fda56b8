// Package query additionally documents the filter-tree leaf constructors:
// FieldEQ, FieldGT, FieldIn, and friends each return a Node that AllOf/AnyOf
// combine into and/or groups, mirroring how a predicate-expression package
// in the wider ORM ecosystem builds nested boolean trees over field
// comparisons. Compile lowers the resulting Model to parameterized SQL,
// choosing a promoted column or a json_extract expression per field.
package query
