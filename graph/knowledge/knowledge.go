// Package knowledge provides the local knowledge base searched by search
// nodes: documents grouped into collections, matched by embedding
// similarity.
package knowledge

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/dshills/agentgraph-go/graph"
)

var (
	// ErrCollectionNotFound is returned when matching against an unknown collection.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrDimensionMismatch is returned when a vector's length differs from
	// the collection's.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("knowledge store is closed")
)

// Match is a document returned by a similarity lookup.
type Match struct {
	Document   graph.Document `json:"document"`
	Similarity float64        `json:"similarity"`
}

// Store looks up documents by embedding similarity.
//
// Match returns at most limit documents of the collection whose cosine
// similarity to embedding is at least threshold, most similar first.
// A limit of zero or less means no limit.
type Store interface {
	Match(ctx context.Context, collectionID string, embedding []float32, threshold float64, limit int) ([]Match, error)
}

// Writer adds documents to a store.
type Writer interface {
	Add(ctx context.Context, collectionID string, doc graph.Document, embedding []float32) error
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector is zero or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

type entry struct {
	doc    graph.Document
	vector []float32
}

// rank scores entries against query and applies threshold and limit. Ties
// keep insertion order.
func rank(entries []entry, query []float32, threshold float64, limit int) []Match {
	matches := make([]Match, 0, len(entries))
	for _, e := range entries {
		sim := CosineSimilarity(e.vector, query)
		if sim >= threshold {
			matches = append(matches, Match{Document: e.doc, Similarity: sim})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
