package sql

import "testing"

func TestBuilderIdent(t *testing.T) {
	b := NewBuilder()
	b.Ident(`users"table`)
	got := b.String()
	want := `"users""table"`
	if got != want {
		t.Fatalf("Ident() = %q, want %q", got, want)
	}
}

func TestBuilderArgsProduceOnePlaceholderPerValue(t *testing.T) {
	b := NewBuilder()
	b.WriteString("WHERE id IN (").Args(1, 2, 3).WriteString(")")
	query, args := b.Query()
	if want := "WHERE id IN (?, ?, ?)"; query != want {
		t.Fatalf("Query() = %q, want %q", query, want)
	}
	if len(args) != 3 {
		t.Fatalf("len(args) = %d, want 3", len(args))
	}
}

func TestBuilderJoin(t *testing.T) {
	b := NewBuilder()
	cols := []string{"a", "b", "c"}
	b.Join(", ", len(cols), func(i int, b *Builder) { b.Ident(cols[i]) })
	if want := `"a", "b", "c"`; b.String() != want {
		t.Fatalf("Join() = %q, want %q", b.String(), want)
	}
}
