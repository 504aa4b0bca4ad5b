// Package vectorstore holds embedded chunks in memory and answers
// brute-force cosine similarity queries over them.
package vectorstore

import (
	"fmt"
	"math"
	"sort"

	"github.com/cloo-solutions/docintel/internal/domain"
)

// Store is an in-memory index for one retrieval scope.
//
// Index is not safe for concurrent use. Once indexing is finished the store
// is never written again and Search may be called from any number of
// goroutines.
type Store struct {
	dimension int
	chunks    []domain.Chunk
}

// New creates an empty Store. Its dimensionality is fixed by the first chunk indexed.
func New() *Store {
	return &Store{}
}

// Index adds an embedded chunk to the store.
func (s *Store) Index(chunk domain.Chunk) error {
	if !chunk.HasEmbedding() {
		return domain.EmbeddingFailure(fmt.Sprintf("chunk %d has no embedding", chunk.Index), nil)
	}
	if s.dimension == 0 {
		s.dimension = len(chunk.Embedding)
	}
	if len(chunk.Embedding) != s.dimension {
		return fmt.Errorf("chunk %d: expected %d dimensions, got %d: %w",
			chunk.Index, s.dimension, len(chunk.Embedding), domain.ErrDimensionMismatch)
	}
	s.chunks = append(s.chunks, chunk)
	return nil
}

// Len returns the number of indexed chunks.
func (s *Store) Len() int {
	return len(s.chunks)
}

// Dimensions returns the vector size of the store, or 0 when empty.
func (s *Store) Dimensions() int {
	return s.dimension
}

// Search returns up to k chunks ordered by descending cosine similarity to
// query. Equal scores keep indexing order. k larger than the store returns
// every chunk.
func (s *Store) Search(query []float32, k int) ([]domain.ScoredChunk, error) {
	if len(s.chunks) == 0 || k <= 0 {
		return []domain.ScoredChunk{}, nil
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("query: expected %d dimensions, got %d: %w",
			s.dimension, len(query), domain.ErrDimensionMismatch)
	}

	scored := make([]domain.ScoredChunk, len(s.chunks))
	for i, c := range s.chunks {
		scored[i] = domain.ScoredChunk{
			Chunk: c,
			Score: CosineSimilarity(query, c.Embedding),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// CosineSimilarity returns dot(a,b) / (|a|*|b|). It is 0 when either vector
// has zero magnitude or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / math.Sqrt(normA*normB)
	// rounding can push parallel vectors just outside [-1, 1]
	return math.Max(-1, math.Min(1, sim))
}
