package service

import (
	"fmt"

	"github.com/cloo-solutions/docintel/internal/domain"
)

// ChunkConfig controls how documents are windowed for embedding.
type ChunkConfig struct {
	Size    int // window length in characters
	Overlap int // characters shared by consecutive windows
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    1000,
		Overlap: 200,
	}
}

// Validate rejects configurations that would not advance through the text.
func (c ChunkConfig) Validate() error {
	if c.Size <= 0 {
		return domain.ValidationError(fmt.Sprintf("chunk size must be positive, got %d", c.Size))
	}
	if c.Overlap < 0 {
		return domain.ValidationError(fmt.Sprintf("chunk overlap cannot be negative, got %d", c.Overlap))
	}
	if c.Overlap >= c.Size {
		return fmt.Errorf("size=%d overlap=%d: %w", c.Size, c.Overlap, domain.ErrInvalidChunkConfig)
	}
	return nil
}

// ChunkText splits text into windows of up to cfg.Size characters, each
// starting cfg.Size-cfg.Overlap characters after the previous one. The last
// window is the first one that reaches the end of the text, so a trailing
// fragment already contained in its predecessor is never emitted. Empty text
// yields no chunks.
func ChunkText(text string, cfg ChunkConfig) ([]domain.Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return []domain.Chunk{}, nil
	}

	step := cfg.Size - cfg.Overlap
	chunks := make([]domain.Chunk, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + cfg.Size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, domain.Chunk{
			Index: len(chunks),
			Start: start,
			Text:  string(runes[start:end]),
		})
		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}

// ChunkTexts returns only the text of each chunk.
func ChunkTexts(chunks []domain.Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}

// TruncateText silently cuts text to at most limit characters. A
// non-positive limit disables truncation.
func TruncateText(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
