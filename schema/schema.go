// Package schema defines the immutable schema descriptor a collection is
// bound to: field paths, nominal types, optionality,
// defaults, and the promotion rules that lift a field into a real SQL
// column for native constraint enforcement and SARGable queries.
//
// A Descriptor is built either fluently, with the Field constructors in
// this package, or by parsing a declarative YAML document with
// LoadDescriptor.
package schema

import (
	"fmt"
	"time"

	"github.com/syssam/skibbadb/internal/typeinfer"
)

// NominalType is a schema-level field type, independent of SQL storage.
type NominalType string

const (
	TypeString NominalType = "string"
	TypeNumber NominalType = "number" // real
	TypeInt    NominalType = "integer"
	TypeBool   NominalType = "boolean"
	TypeDate   NominalType = "date"
	TypeArray  NominalType = "array"
	TypeObject NominalType = "object"
	TypeUnion  NominalType = "union" // tagged union
)

// FieldError describes a single field that failed validation. The root
// package wraps it into the public ValidationError so this package stays
// free of a dependency on skibbadb's error taxonomy.
type FieldError struct {
	Path string
	Err  error
}

func (e *FieldError) Error() string { return fmt.Sprintf("schema: field %q: %s", e.Path, e.Err) }
func (e *FieldError) Unwrap() error { return e.Err }

// ConfigError is raised for schema problems detectable before any
// document is validated: a vector promotion missing dimensions or on a
// non-array field, and the like. Detection
// may be deferred to first use, but must surface before any DDL is
// issued.
type ConfigError struct {
	Path string
	Msg  string
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return "schema: " + e.Msg
	}
	return fmt.Sprintf("schema: field %q: %s", e.Path, e.Msg)
}

// Field describes one document field: its path, nominal type, optionality,
// default, and (optionally) its promotion descriptor.
type Field struct {
	Path     string
	Type     NominalType
	Required bool
	DefVal   any
	DefFunc  func() any

	// ArrayNumeric marks a TypeArray field whose elements are numbers, the
	// precondition for promoting it to a VECTOR column.
	ArrayNumeric bool

	promotion *Promotion
}

// String declares a required TEXT-nominal field.
func String(path string) *Field { return &Field{Path: path, Type: TypeString, Required: true} }

// Number declares a required real-number field.
func Number(path string) *Field { return &Field{Path: path, Type: TypeNumber, Required: true} }

// Int declares a required integer field.
func Int(path string) *Field { return &Field{Path: path, Type: TypeInt, Required: true} }

// Bool declares a required boolean field.
func Bool(path string) *Field { return &Field{Path: path, Type: TypeBool, Required: true} }

// Date declares a required date field (ISO-8601 on the wire).
func Date(path string) *Field { return &Field{Path: path, Type: TypeDate, Required: true} }

// Array declares a required array field. Call Numeric() to mark its
// elements numeric, the precondition for Vector() promotion.
func Array(path string) *Field { return &Field{Path: path, Type: TypeArray, Required: true} }

// Object declares a required nested-object field.
func Object(path string) *Field { return &Field{Path: path, Type: TypeObject, Required: true} }

// Union declares a required tagged-union field.
func Union(path string) *Field { return &Field{Path: path, Type: TypeUnion, Required: true} }

// Optional marks the field not required on input.
func (f *Field) Optional() *Field { f.Required = false; return f }

// Default sets a literal default value, applied when the field is absent
// on insert/put. Setting a default implies Optional.
func (f *Field) Default(v any) *Field {
	f.DefVal = v
	f.Required = false
	return f
}

// DefaultFunc sets a producer default (e.g. time.Now), called once per
// validated document. Setting a default implies Optional.
func (f *Field) DefaultFunc(fn func() any) *Field {
	f.DefFunc = fn
	f.Required = false
	return f
}

// Numeric marks an Array field's elements as numeric.
func (f *Field) Numeric() *Field { f.ArrayNumeric = true; return f }

// Promote attaches a promotion descriptor to the field, lifting it into a
// real SQL column.
func (f *Field) Promote(opts ...PromotionOption) *Field {
	p := &Promotion{Nullable: true}
	for _, opt := range opts {
		opt(p)
	}
	f.promotion = p
	return f
}

// Promotion returns the field's promotion descriptor, or nil if the field
// isn't promoted.
func (f *Field) Promotion() *Promotion { return f.promotion }

// Promotion describes how a field is lifted into a SQL column: storage
// override, uniqueness, foreign key, nullability, check constraint, and
// (for vector fields) dimensionality.
type Promotion struct {
	Override typeinfer.Storage

	Unique bool

	ForeignKeyRef string // "<table>.<column>"
	OnDelete      RefAction
	OnUpdate      RefAction

	Nullable bool // default true

	CheckExpr string

	VectorDimensions int
	VectorType       VectorType
}

// RefAction is a foreign-key ON DELETE/ON UPDATE action.
type RefAction string

const (
	NoAction   RefAction = ""
	Cascade    RefAction = "CASCADE"
	SetNull    RefAction = "SET NULL"
	Restrict   RefAction = "RESTRICT"
)

// VectorType is the element type stored in a vec0 sidecar column.
type VectorType string

const (
	VectorFloat VectorType = "float"
)

// PromotionOption configures a Promotion built by Field.Promote.
type PromotionOption func(*Promotion)

// StorageType overrides type inference with an explicit storage type.
func StorageType(t typeinfer.Storage) PromotionOption {
	return func(p *Promotion) { p.Override = t }
}

// Unique marks the promoted column UNIQUE.
func Unique() PromotionOption { return func(p *Promotion) { p.Unique = true } }

// NotNullable marks the promoted column NOT NULL (overriding the nullable
// default of true).
func NotNullable() PromotionOption { return func(p *Promotion) { p.Nullable = false } }

// ForeignKey declares "<table>.<column>" as the referenced column, with
// the given ON DELETE/ON UPDATE actions.
func ForeignKey(ref string, onDelete, onUpdate RefAction) PromotionOption {
	return func(p *Promotion) {
		p.ForeignKeyRef = ref
		p.OnDelete = onDelete
		p.OnUpdate = onUpdate
	}
}

// Check attaches a CHECK(<expr>) constraint; the field path in expr is
// substituted whole-word by the column name at DDL-compile time.
func Check(expr string) PromotionOption {
	return func(p *Promotion) { p.CheckExpr = expr }
}

// Vector declares the promotion as a vector field with the given
// dimensionality and element type.
func Vector(dimensions int, vt VectorType) PromotionOption {
	return func(p *Promotion) {
		p.VectorDimensions = dimensions
		if vt == "" {
			vt = VectorFloat
		}
		p.VectorType = vt
		p.Override = typeinfer.Vector
	}
}

// Descriptor is the immutable value a collection is bound to: an ordered
// set of fields, some of them promoted.
type Descriptor struct {
	fields []*Field
	byPath map[string]*Field
}

// New builds a Descriptor from fields, in declaration order. Mixin fields
// (schema/mixin) should be flattened into this list by the caller before
// constructing the descriptor.
func New(fields ...*Field) *Descriptor {
	d := &Descriptor{byPath: make(map[string]*Field, len(fields))}
	for _, f := range fields {
		d.fields = append(d.fields, f)
		d.byPath[f.Path] = f
	}
	return d
}

// Fields returns the declared fields in declaration order.
func (d *Descriptor) Fields() []*Field { return d.fields }

// Field looks up a field by path.
func (d *Descriptor) Field(path string) (*Field, bool) {
	f, ok := d.byPath[path]
	return f, ok
}

// Promotions returns the promoted fields' paths in declaration order,
// alongside their promotion descriptors. Order matters: promoted columns
// must appear after _id/doc in the order the promotions were declared.
func (d *Descriptor) Promotions() []PromotedField {
	var out []PromotedField
	for _, f := range d.fields {
		if f.promotion != nil {
			out = append(out, PromotedField{Field: f, Promotion: f.promotion})
		}
	}
	return out
}

// PromotedField pairs a field with its promotion descriptor.
type PromotedField struct {
	Field     *Field
	Promotion *Promotion
}

// PromotedFieldByColumn looks up the promoted field whose promoted column
// name is col, for translating a storage-level column name (as named in a
// UNIQUE/FOREIGN KEY constraint violation) back to its document field path.
func (d *Descriptor) PromotedFieldByColumn(col string) (*Field, bool) {
	for _, pf := range d.Promotions() {
		if ColumnName(pf.Field.Path) == col {
			return pf.Field, true
		}
	}
	return nil, false
}

// ColumnName returns the promoted column name for a (possibly dotted)
// field path: dots replaced by underscores.
func ColumnName(path string) string {
	out := make([]byte, len(path))
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			out[i] = '_'
		} else {
			out[i] = path[i]
		}
	}
	return string(out)
}

// CheckConfig validates the descriptor itself, independent of any
// document: a vector promotion must declare a positive dimensionality and
// be on an array-typed field. (A promotion is attached to its field, so it
// always names a declared one.) This must run before any DDL is issued.
func (d *Descriptor) CheckConfig() error {
	for _, f := range d.fields {
		p := f.promotion
		if p == nil {
			continue
		}
		if p.Override == typeinfer.Vector && p.VectorDimensions <= 0 {
			return &ConfigError{Path: f.Path, Msg: "vector promotion requires a positive vectorDimensions"}
		}
		if p.Override == typeinfer.Vector && f.Type != TypeArray {
			return &ConfigError{Path: f.Path, Msg: "vector promotion requires an array-typed field"}
		}
	}
	return nil
}

// StorageOf returns the inferred (or overridden) storage type for field f.
func StorageOf(f *Field) (typeinfer.Storage, error) {
	override := typeinfer.Storage("")
	dims := 0
	if f.promotion != nil {
		override = f.promotion.Override
		dims = f.promotion.VectorDimensions
	}
	return typeinfer.Infer(typeinfer.Input{
		Nominal:          typeinfer.Nominal(f.Type),
		Override:         override,
		ElementIsNumeric: f.ArrayNumeric,
		VectorDimensions: dims,
	})
}

// Validate checks input against the descriptor: required fields must be
// present, date-typed fields given as RFC3339 strings are normalized to
// time.Time, and defaults (literal or produced) are applied for absent
// optional fields. It returns a new map; input is never mutated.
//
// Validate only checks shape the descriptor itself can decide — presence,
// date parsing, defaulting. Uniqueness, foreign-key, and check-constraint
// violations surface later, from the SQL engine.
func (d *Descriptor) Validate(input map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(input))
	for k, v := range input {
		out[k] = v
	}
	for _, f := range d.fields {
		v, present := out[f.Path]
		if !present {
			switch {
			case f.DefFunc != nil:
				out[f.Path] = f.DefFunc()
			case f.DefVal != nil:
				out[f.Path] = f.DefVal
			case f.Required:
				return nil, &FieldError{Path: f.Path, Err: fmt.Errorf("required field is missing")}
			}
			continue
		}
		if v == nil {
			if f.Required {
				return nil, &FieldError{Path: f.Path, Err: fmt.Errorf("required field is nil")}
			}
			continue
		}
		if f.Type == TypeDate {
			if s, ok := v.(string); ok {
				t, err := time.Parse(time.RFC3339Nano, s)
				if err != nil {
					return nil, &FieldError{Path: f.Path, Err: fmt.Errorf("invalid date: %w", err)}
				}
				out[f.Path] = t
			}
		}
	}
	return out, nil
}
