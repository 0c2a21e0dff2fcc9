package knowledge

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dshills/agentgraph-go/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStore interface {
	Store
	Writer
}

func stores(t *testing.T) map[string]testStore {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "knowledge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]testStore{
		"memory": NewMemStore(),
		"sqlite": sqlite,
	}
}

func seed(t *testing.T, s Writer) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, "pets", graph.Document{Title: "cats", Body: "meow", Source: "kb"}, []float32{1, 0}))
	require.NoError(t, s.Add(ctx, "pets", graph.Document{Title: "dogs", Body: "woof", Ref: "https://dogs"}, []float32{0.8, 0.6}))
	require.NoError(t, s.Add(ctx, "pets", graph.Document{Title: "fish", Body: "blub"}, []float32{0, 1}))
	require.NoError(t, s.Add(ctx, "cars", graph.Document{Title: "sedan"}, []float32{1, 0, 0}))
}

func TestStore_Match(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, s)
			ctx := context.Background()

			matches, err := s.Match(ctx, "pets", []float32{1, 0}, 0.5, 0)
			require.NoError(t, err)
			require.Len(t, matches, 2)
			assert.Equal(t, "cats", matches[0].Document.Title)
			assert.Equal(t, "kb", matches[0].Document.Source)
			assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
			assert.Equal(t, "dogs", matches[1].Document.Title)
			assert.Equal(t, "https://dogs", matches[1].Document.Ref)
			assert.InDelta(t, 0.8, matches[1].Similarity, 1e-6)

			limited, err := s.Match(ctx, "pets", []float32{1, 0}, -1, 1)
			require.NoError(t, err)
			require.Len(t, limited, 1)
			assert.Equal(t, "cats", limited[0].Document.Title)

			none, err := s.Match(ctx, "pets", []float32{1, 0}, 1.1, 0)
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestStore_UnknownCollection(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Match(context.Background(), "missing", []float32{1}, 0, 0)
			require.ErrorIs(t, err, ErrCollectionNotFound)
		})
	}
}

func TestStore_DimensionMismatch(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, s)
			err := s.Add(context.Background(), "pets", graph.Document{Title: "bird"}, []float32{1, 2, 3})
			require.ErrorIs(t, err, ErrDimensionMismatch)
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{2, 0}, []float32{5, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}

func TestVectorEncoding(t *testing.T) {
	v := []float32{0.25, -1.5, 3}
	assert.Equal(t, v, decodeVector(encodeVector(v)))
}

func TestSQLiteStore_Closed(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	_, err = s.Match(context.Background(), "pets", []float32{1}, 0, 0)
	require.ErrorIs(t, err, ErrClosed)
}
