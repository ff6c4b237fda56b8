package mixin

import (
	"testing"

	"github.com/syssam/skibbadb/schema"
)

func TestFlattenPreservesMixinOrder(t *testing.T) {
	fields := Flatten([]Mixin{Time{}, SoftDelete{}}, nil)
	if len(fields) != 3 {
		t.Fatalf("len(fields) = %d, want 3", len(fields))
	}
	want := []string{"createdAt", "updatedAt", "deletedAt"}
	for i, w := range want {
		if fields[i].Path != w {
			t.Errorf("fields[%d].Path = %q, want %q", i, fields[i].Path, w)
		}
	}
}

func TestFlattenOwnFieldOverridesMixin(t *testing.T) {
	own := []*schema.Field{schema.Date("createdAt").Optional()}
	fields := Flatten([]Mixin{CreateTime{}}, own)
	if len(fields) != 1 {
		t.Fatalf("len(fields) = %d, want 1 (own field should replace mixin field)", len(fields))
	}
	if fields[0].DefFunc != nil {
		t.Fatal("expected own (no default) field to win over mixin's defaulted field")
	}
}
