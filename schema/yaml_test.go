package schema_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/skibbadb/internal/typeinfer"
	"github.com/syssam/skibbadb/schema"
)

const sampleYAML = `
fields:
  - path: email
    type: string
    promote: {unique: true, notNullable: true}
  - path: age
    type: integer
    required: false
  - path: embedding
    type: array
    numeric: true
    promote: {vectorDimensions: 384}
`

func TestLoadDescriptorParsesPromotionsAndVector(t *testing.T) {
	d, err := schema.LoadDescriptor(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	email, ok := d.Field("email")
	require.True(t, ok)
	assert.True(t, email.Required)
	require.NotNil(t, email.Promotion())
	assert.True(t, email.Promotion().Unique)
	assert.False(t, email.Promotion().Nullable)

	age, ok := d.Field("age")
	require.True(t, ok)
	assert.False(t, age.Required)

	emb, ok := d.Field("embedding")
	require.True(t, ok)
	storage, err := schema.StorageOf(emb)
	require.NoError(t, err)
	assert.Equal(t, typeinfer.Vector, storage)
}

func TestLoadDescriptorRejectsUnknownFields(t *testing.T) {
	_, err := schema.LoadDescriptor(strings.NewReader("fields:\n  - path: x\n    type: string\n    bogus: true\n"))
	require.Error(t, err)
}

func TestLoadDescriptorRejectsMissingPath(t *testing.T) {
	_, err := schema.LoadDescriptor(strings.NewReader("fields:\n  - type: string\n"))
	require.Error(t, err)
}
