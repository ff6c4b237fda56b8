// Package codec implements skibbadb's canonical document wire format:
// JSON text with a tagged form for native dates,
// {"__type":"Date","value":"<ISO-8601>"}, and the promoted-column overlay
// used to reconstruct a document after a read.
package codec

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// dateTag is the __type discriminator for encoded time.Time values.
const dateTag = "Date"

// taggedDate is the wire shape of a tagged date value.
type taggedDate struct {
	Type  string `json:"__type"`
	Value string `json:"value"`
}

// Document is an ordered mapping from field name to JSON-shaped value.
// Key order is preserved through Keys. Marshal encodes the fields as a
// JSON object with keys in sorted order, so re-encoding is stable
// byte-for-byte regardless of insertion order.
type Document struct {
	fields map[string]any
	order  []string
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{fields: make(map[string]any)}
}

// Set assigns a value to field, appending it to the key order the first
// time the field is seen.
func (d *Document) Set(field string, value any) {
	if d.fields == nil {
		d.fields = make(map[string]any)
	}
	if _, ok := d.fields[field]; !ok {
		d.order = append(d.order, field)
	}
	d.fields[field] = value
}

// Get returns the value at field and whether it was present.
func (d *Document) Get(field string) (any, bool) {
	v, ok := d.fields[field]
	return v, ok
}

// Delete removes field from the document.
func (d *Document) Delete(field string) {
	if _, ok := d.fields[field]; !ok {
		return
	}
	delete(d.fields, field)
	for i, f := range d.order {
		if f == field {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Keys returns the field names in insertion order.
func (d *Document) Keys() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Len returns the number of fields.
func (d *Document) Len() int { return len(d.order) }

// Clone returns a deep-enough copy: top-level keys are independent, nested
// values are shared.
func (d *Document) Clone() *Document {
	c := NewDocument()
	for _, k := range d.order {
		c.Set(k, d.fields[k])
	}
	return c
}

// Map returns the document as a plain map, for callers that don't need
// field-order stability (e.g. handing a document back to application code).
func (d *Document) Map() map[string]any {
	out := make(map[string]any, len(d.fields))
	for k, v := range d.fields {
		out[k] = v
	}
	return out
}

// FromMap builds a Document from a plain map. Since maps have no stable
// order, keys are sorted so Marshal output is deterministic.
func FromMap(m map[string]any) *Document {
	d := NewDocument()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		d.Set(k, m[k])
	}
	return d
}

// Marshal encodes the document to its canonical wire form, tagging any
// time.Time value (including nested ones) as {"__type":"Date","value":...}.
func Marshal(d *Document) ([]byte, error) {
	tagged := tagValue(d.Map())
	return json.Marshal(tagged)
}

// Unmarshal decodes the canonical wire form, restoring tagged dates back to
// time.Time. Unknown __type values pass through untouched as plain
// objects.
func Unmarshal(data []byte) (*Document, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("codec: unmarshal document: %w", err)
	}
	return FromMap(untagValue(raw).(map[string]any)), nil
}

func tagValue(v any) any {
	switch val := v.(type) {
	case time.Time:
		return taggedDate{Type: dateTag, Value: val.UTC().Format(time.RFC3339Nano)}
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			out[k] = tagValue(v)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, v := range val {
			out[i] = tagValue(v)
		}
		return out
	default:
		return v
	}
}

func untagValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if typ, ok := val["__type"]; ok && typ == dateTag {
			if s, ok := val["value"].(string); ok {
				if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
					return t
				}
			}
			// Malformed tagged date: pass through as a plain object rather
			// than fail the whole document decode.
			return val
		}
		out := make(map[string]any, len(val))
		for k, v := range val {
			out[k] = untagValue(v)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, v := range val {
			out[i] = untagValue(v)
		}
		return out
	default:
		return v
	}
}

// Overlay applies promoted-column values onto a decoded document so that
// promoted columns win on divergence, enabling SET NULL
// cascades performed at the SQL engine to be observable through findById.
// A nil value for a nullable column clears the field from the document
// rather than setting it to JSON null, matching "absent" semantics.
func Overlay(doc *Document, columnToField map[string]string, row map[string]any) {
	for col, field := range columnToField {
		v, ok := row[col]
		if !ok {
			continue
		}
		if v == nil {
			doc.Delete(field)
			continue
		}
		doc.Set(field, v)
	}
}
