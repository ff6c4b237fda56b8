// Package mixin provides reusable field sets that can be embedded into
// multiple collection schemas: timestamp tracking, soft deletion, and the
// like. A mixin is any value implementing Mixin; Flatten composes one or
// more mixins' fields ahead of a schema's own fields when building a
// schema.Descriptor.
package mixin

import (
	"time"

	"github.com/syssam/skibbadb/schema"
)

// Mixin is a reusable, named set of fields.
type Mixin interface {
	Fields() []*schema.Field
}

// Flatten concatenates the fields of each mixin, in order, ahead of own,
// the schema's own fields. Later occurrences of a path win: a schema can
// override a mixin field by declaring the same path itself.
func Flatten(mixins []Mixin, own []*schema.Field) []*schema.Field {
	byPath := make(map[string]int)
	var out []*schema.Field
	add := func(f *schema.Field) {
		if idx, ok := byPath[f.Path]; ok {
			out[idx] = f
			return
		}
		byPath[f.Path] = len(out)
		out = append(out, f)
	}
	for _, m := range mixins {
		for _, f := range m.Fields() {
			add(f)
		}
	}
	for _, f := range own {
		add(f)
	}
	return out
}

// Time adds createdAt and updatedAt timestamp fields. createdAt is set
// once on insert; updatedAt is refreshed by the caller's before-update
// hook (the mixin only supplies the default on first insert).
type Time struct{}

func (Time) Fields() []*schema.Field {
	now := func() any { return time.Now().UTC() }
	return []*schema.Field{
		schema.Date("createdAt").DefaultFunc(now),
		schema.Date("updatedAt").DefaultFunc(now),
	}
}

// CreateTime adds only createdAt.
type CreateTime struct{}

func (CreateTime) Fields() []*schema.Field {
	return []*schema.Field{
		schema.Date("createdAt").DefaultFunc(func() any { return time.Now().UTC() }),
	}
}

// UpdateTime adds only updatedAt.
type UpdateTime struct{}

func (UpdateTime) Fields() []*schema.Field {
	return []*schema.Field{
		schema.Date("updatedAt").DefaultFunc(func() any { return time.Now().UTC() }),
	}
}

// SoftDelete adds an optional deletedAt field. A non-nil value marks the
// document deleted without removing the row; query-level filtering on
// deletedAt is the caller's responsibility.
type SoftDelete struct{}

func (SoftDelete) Fields() []*schema.Field {
	return []*schema.Field{
		schema.Date("deletedAt").Optional(),
	}
}

// TimeSoftDelete composes Time and SoftDelete.
type TimeSoftDelete struct{}

func (TimeSoftDelete) Fields() []*schema.Field {
	return append(Time{}.Fields(), SoftDelete{}.Fields()...)
}
