package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/docintel/internal/domain"
)

// DefaultTopK is the number of passages retrieved per question.
const DefaultTopK = 3

// Searcher is a read-only vector index.
type Searcher interface {
	Search(query []float32, k int) ([]domain.ScoredChunk, error)
}

// QueryEmbedder turns a question into a query vector.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// Retrieval is the ranked result of one retrieval call.
type Retrieval struct {
	Passages []domain.ScoredChunk
	Context  string
}

// TopScore returns the best similarity, or -1 when nothing was retrieved.
func (r *Retrieval) TopScore() float64 {
	if r == nil || len(r.Passages) == 0 {
		return -1
	}
	return r.Passages[0].Score
}

// Relevant reports whether at least one passage scores at or above threshold.
func (r *Retrieval) Relevant(threshold float64) bool {
	return r.TopScore() >= threshold
}

// Retriever embeds questions and looks up the closest passages.
type Retriever struct {
	embedder QueryEmbedder
}

// NewRetriever creates a new Retriever instance
func NewRetriever(embedder QueryEmbedder) *Retriever {
	return &Retriever{embedder: embedder}
}

// Retrieve returns up to k passages from searcher ranked against question.
func (r *Retriever) Retrieve(ctx context.Context, searcher Searcher, question string, k int) (*Retrieval, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	query, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, err
	}

	passages, err := searcher.Search(query, k)
	if err != nil {
		return nil, domain.EmbeddingFailure("similarity search failed", err)
	}

	return &Retrieval{
		Passages: passages,
		Context:  FormatContext(passages),
	}, nil
}

// FormatContext concatenates passages, labelling each with its rank and score.
func FormatContext(passages []domain.ScoredChunk) string {
	var b strings.Builder
	for i, p := range passages {
		fmt.Fprintf(&b, "Source %d (Relevance: %.2f):\n%s\n\n", i+1, p.Score, p.Chunk.Text)
	}
	return b.String()
}
