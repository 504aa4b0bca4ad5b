package service

import (
	"context"
	"strings"

	"github.com/cloo-solutions/docintel/internal/domain"
	"github.com/cloo-solutions/docintel/internal/vectorstore"
)

// EmptyDocumentAnswer is returned for documents without any text.
const EmptyDocumentAnswer = "The document contains no text to search."

// Source identifies one passage an answer was grounded on.
type Source struct {
	Rank       int     `json:"rank"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	RecordID   string  `json:"record_id,omitempty"`
}

// Answer is a generated answer with the passages used to produce it.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// DocumentEmbedder embeds chunks for indexing and questions for lookup.
type DocumentEmbedder interface {
	QueryEmbedder
	EmbedDocuments(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// AnswerGenerator produces guarded answers from retrieved context.
type AnswerGenerator interface {
	Answer(ctx context.Context, retrieval *Retrieval, question string) (string, error)
}

// QAConfig tunes document question answering.
type QAConfig struct {
	Chunking ChunkConfig
	TopK     int
	MaxChars int
}

// DocumentQAService answers questions about a single supplied document.
// Every call builds its own store, so calls share no state.
type DocumentQAService struct {
	embedder  DocumentEmbedder
	generator AnswerGenerator
	retriever *Retriever
	cfg       QAConfig
}

// NewDocumentQAService creates a new DocumentQAService instance
func NewDocumentQAService(embedder DocumentEmbedder, generator AnswerGenerator, cfg QAConfig) *DocumentQAService {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxDocumentChars
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking = DefaultChunkConfig()
	}
	return &DocumentQAService{
		embedder:  embedder,
		generator: generator,
		retriever: NewRetriever(embedder),
		cfg:       cfg,
	}
}

// Answer answers question using only documentText.
func (s *DocumentQAService) Answer(ctx context.Context, documentText, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ValidationError("question is required")
	}

	chunks, err := ChunkText(TruncateText(documentText, s.cfg.MaxChars), s.cfg.Chunking)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return &Answer{Text: EmptyDocumentAnswer, Sources: []Source{}}, nil
	}

	embedded, err := s.embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		return nil, err
	}

	store := vectorstore.New()
	for _, c := range embedded {
		if err := store.Index(c); err != nil {
			return nil, domain.EmbeddingFailure("failed to index document", err)
		}
	}

	retrieval, err := s.retriever.Retrieve(ctx, store, question, s.cfg.TopK)
	if err != nil {
		return nil, err
	}

	text, err := s.generator.Answer(ctx, retrieval, question)
	if err != nil {
		return nil, err
	}

	return &Answer{Text: text, Sources: sourcesOf(retrieval)}, nil
}

func sourcesOf(retrieval *Retrieval) []Source {
	sources := make([]Source, len(retrieval.Passages))
	for i, p := range retrieval.Passages {
		sources[i] = Source{
			Rank:       i + 1,
			ChunkIndex: p.Chunk.Index,
			Score:      p.Score,
			RecordID:   p.Chunk.SourceID,
		}
	}
	return sources
}
