package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableName(t *testing.T) {
	require.Equal(t, "users_embedding_vec", TableName("users", "embedding"))
}

func TestEncodeProducesJSONArray(t *testing.T) {
	literal, err := Encode([]float64{1, 0.5, -2})
	require.NoError(t, err)
	require.Equal(t, "[1,0.5,-2]", literal)
}

func TestSearchRejectsNonPositiveLimit(t *testing.T) {
	if !Enabled {
		t.Skip("built without -tags skibbadb_vec")
	}
	_, err := Search(context.Background(), nil, SearchParams{
		Collection: "docs", Field: "embedding", Vector: []float64{1, 0}, Dimensions: 2, Limit: 0,
	})
	require.Error(t, err)
}

func TestSearchRejectsDimensionMismatch(t *testing.T) {
	if !Enabled {
		t.Skip("built without -tags skibbadb_vec")
	}
	_, err := Search(context.Background(), nil, SearchParams{
		Collection: "docs", Field: "embedding", Vector: []float64{1, 0, 0}, Dimensions: 2, Limit: 1,
	})
	require.Error(t, err)
}

func TestOperationsDisabledWithoutBuildTag(t *testing.T) {
	if Enabled {
		t.Skip("built with -tags skibbadb_vec")
	}
	require.ErrorIs(t, Delete(context.Background(), nil, "docs", "embedding", "id-1"), ErrDisabled)
	require.ErrorIs(t, Upsert(context.Background(), nil, "docs", "embedding", "id-1", []float64{1, 0}), ErrDisabled)
	_, err := Search(context.Background(), nil, SearchParams{Collection: "docs", Field: "embedding", Vector: []float64{1}, Dimensions: 1, Limit: 1})
	require.ErrorIs(t, err, ErrDisabled)
}
