package codec

import (
	"testing"
	"time"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	d := NewDocument()
	d.Set("id", "abc-123")
	d.Set("name", "Ada Lovelace")
	d.Set("born", time.Date(1815, 12, 10, 0, 0, 0, 0, time.UTC))
	d.Set("tags", []any{"math", "computing"})
	d.Set("meta", map[string]any{"active": true})

	data, err := Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	name, ok := got.Get("name")
	if !ok || name != "Ada Lovelace" {
		t.Fatalf("name = %v, %v", name, ok)
	}
	born, ok := got.Get("born")
	if !ok {
		t.Fatal("born missing after round-trip")
	}
	bt, ok := born.(time.Time)
	if !ok || !bt.Equal(time.Date(1815, 12, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("born = %v, want 1815-12-10", born)
	}
}

func TestMarshalUnmarshalEpochAndExtremeDates(t *testing.T) {
	for _, tc := range []time.Time{
		time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC),
	} {
		d := NewDocument()
		d.Set("at", tc)
		data, err := Marshal(d)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		got, err := Unmarshal(data)
		if err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		at, _ := got.Get("at")
		atTime, ok := at.(time.Time)
		if !ok || !atTime.Equal(tc) {
			t.Errorf("at = %v, want %v", at, tc)
		}
	}
}

func TestUnmarshalUnknownTaggedValuePassesThrough(t *testing.T) {
	got, err := Unmarshal([]byte(`{"weird":{"__type":"Money","value":"10 USD"}}`))
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	weird, ok := got.Get("weird")
	if !ok {
		t.Fatal("weird missing")
	}
	m, ok := weird.(map[string]any)
	if !ok || m["__type"] != "Money" {
		t.Fatalf("weird = %v, want pass-through object", weird)
	}
}

func TestUnicodeRoundTrip(t *testing.T) {
	d := NewDocument()
	d.Set("name", "日本語 🎉 Ünïcödé")
	data, err := Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	name, _ := got.Get("name")
	if name != "日本語 🎉 Ünïcödé" {
		t.Fatalf("name = %v", name)
	}
}

func TestOverlayPromotedColumnsWinAndNilClears(t *testing.T) {
	d := NewDocument()
	d.Set("email", "old@example.com")
	d.Set("organizationId", "org-1")

	Overlay(d, map[string]string{
		"email":           "email",
		"organization_id": "organizationId",
	}, map[string]any{
		"email":           "new@example.com",
		"organization_id": nil, // simulates an ON DELETE SET NULL cascade
	})

	email, _ := d.Get("email")
	if email != "new@example.com" {
		t.Fatalf("email = %v, want promoted column value", email)
	}
	if _, ok := d.Get("organizationId"); ok {
		t.Fatalf("organizationId should have been cleared by SET NULL overlay")
	}
}

func TestCloneIsIndependentAtTopLevel(t *testing.T) {
	d := NewDocument()
	d.Set("a", 1)
	c := d.Clone()
	c.Set("a", 2)
	c.Set("b", 3)

	a, _ := d.Get("a")
	if a != 1 {
		t.Fatalf("original mutated: a = %v", a)
	}
	if _, ok := d.Get("b"); ok {
		t.Fatal("original mutated: b should not exist")
	}
}
