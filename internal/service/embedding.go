package service

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/docintel/internal/domain"
)

// DefaultEmbedBatchSize is the number of texts sent per embedding call.
const DefaultEmbedBatchSize = 100

// EmbeddingAPI is implemented by the embedding providers.
type EmbeddingAPI interface {
	EmbedBatch(ctx context.Context, texts []string, role domain.EmbeddingRole) ([][]float32, error)
}

// EmbeddingService embeds texts in fixed-size sequential batches.
type EmbeddingService struct {
	api       EmbeddingAPI
	batchSize int
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(api EmbeddingAPI, batchSize int) *EmbeddingService {
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	return &EmbeddingService{
		api:       api,
		batchSize: batchSize,
	}
}

// Embed returns one vector per text, in input order. A failed batch is
// retried one item at a time before the failure is propagated.
func (s *EmbeddingService) Embed(ctx context.Context, texts []string, role domain.EmbeddingRole) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := s.embedBatch(ctx, texts[start:end], role)
		if err != nil {
			log.Printf("embedding batch %d-%d failed, retrying per item: %v", start, end-1, err)
			batch, err = s.embedEach(ctx, texts[start:end], start, role)
			if err != nil {
				return nil, err
			}
		}
		vectors = append(vectors, batch...)
	}

	if err := checkDimensions(vectors); err != nil {
		return nil, err
	}
	return vectors, nil
}

// EmbedDocuments embeds chunks for indexing and returns them with their
// Embedding field set.
func (s *EmbeddingService) EmbedDocuments(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error) {
	vectors, err := s.Embed(ctx, ChunkTexts(chunks), domain.RoleDocument)
	if err != nil {
		return nil, err
	}

	embedded := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		c.Embedding = vectors[i]
		embedded[i] = c
	}
	return embedded, nil
}

// EmbedQuery embeds a single search query.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := s.Embed(ctx, []string{query}, domain.RoleQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (s *EmbeddingService) embedBatch(ctx context.Context, texts []string, role domain.EmbeddingRole) ([][]float32, error) {
	vectors, err := s.api.EmbedBatch(ctx, texts, role)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("provider returned %d embeddings for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}

func (s *EmbeddingService) embedEach(ctx context.Context, texts []string, offset int, role domain.EmbeddingRole) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, domain.EmbeddingFailure("embedding cancelled", err)
		}
		v, err := s.embedBatch(ctx, []string{text}, role)
		if err != nil {
			return nil, domain.EmbeddingFailure(fmt.Sprintf("failed to embed item %d", offset+i), err)
		}
		vectors[i] = v[0]
	}
	return vectors, nil
}

func checkDimensions(vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 {
			return domain.EmbeddingFailure(fmt.Sprintf("embedding %d is empty", i), nil)
		}
		if len(v) != dim {
			return domain.EmbeddingFailure(
				fmt.Sprintf("embedding %d has %d dimensions, expected %d", i, len(v), dim),
				domain.ErrDimensionMismatch)
		}
	}
	return nil
}
