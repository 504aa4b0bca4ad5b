package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cloo-solutions/docintel/internal/domain"
	"github.com/cloo-solutions/docintel/internal/vectorstore"
)

// LoadDataset reads knowledge records from a JSON or YAML file, chosen by
// extension. A missing file yields an empty dataset.
func LoadDataset(path string) ([]domain.KnowledgeRecord, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("warning: knowledge base file not found at %s, starting with an empty knowledge base", path)
		return []domain.KnowledgeRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base: %w", err)
	}

	records, err := ParseDataset(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// ParseDataset decodes records in the format named by ext (".json", ".yaml" or ".yml").
func ParseDataset(data []byte, ext string) ([]domain.KnowledgeRecord, error) {
	var records []domain.KnowledgeRecord

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("invalid yaml dataset: %w", err)
		}
	case ".json", "":
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("invalid json dataset: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", ext)
	}

	for _, r := range records {
		if err := domain.ValidateKnowledgeRecord(r); err != nil {
			return nil, err
		}
	}
	if records == nil {
		records = []domain.KnowledgeRecord{}
	}
	return records, nil
}

// TextEmbedder embeds raw texts.
type TextEmbedder interface {
	Embed(ctx context.Context, texts []string, role domain.EmbeddingRole) ([][]float32, error)
}

// Progress receives the number of records embedded so far.
type Progress interface {
	Add(n int) error
}

// KnowledgeBase is the embedded dataset. It is never modified after
// BuildKnowledgeBase returns and is safe for concurrent queries.
type KnowledgeBase struct {
	records []domain.KnowledgeRecord
	store   *vectorstore.Store
}

// EmptyKnowledgeBase returns a knowledge base without records.
func EmptyKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{records: []domain.KnowledgeRecord{}, store: vectorstore.New()}
}

// BuildKnowledgeBase embeds every record with the document role. progress may be nil.
func BuildKnowledgeBase(ctx context.Context, records []domain.KnowledgeRecord, embedder TextEmbedder, progress Progress) (*KnowledgeBase, error) {
	kb := &KnowledgeBase{
		records: append([]domain.KnowledgeRecord(nil), records...),
		store:   vectorstore.New(),
	}

	for start := 0; start < len(records); start += DefaultEmbedBatchSize {
		end := start + DefaultEmbedBatchSize
		if end > len(records) {
			end = len(records)
		}

		texts := make([]string, 0, end-start)
		for _, r := range records[start:end] {
			texts = append(texts, r.Text())
		}

		vectors, err := embedder.Embed(ctx, texts, domain.RoleDocument)
		if err != nil {
			return nil, fmt.Errorf("failed to embed knowledge base: %w", err)
		}

		for i, v := range vectors {
			r := records[start+i]
			chunk := domain.Chunk{
				Index:     start + i,
				SourceID:  r.ID,
				Text:      texts[i],
				Embedding: v,
			}
			if err := kb.store.Index(chunk); err != nil {
				return nil, fmt.Errorf("record %s: %w", r.ID, err)
			}
		}

		if progress != nil {
			_ = progress.Add(end - start)
		}
	}

	return kb, nil
}

// Len returns the number of records.
func (kb *KnowledgeBase) Len() int {
	return len(kb.records)
}

// Search implements Searcher.
func (kb *KnowledgeBase) Search(query []float32, k int) ([]domain.ScoredChunk, error) {
	return kb.store.Search(query, k)
}

// ChatService answers free-form questions from the knowledge base.
type ChatService struct {
	kb        *KnowledgeBase
	retriever *Retriever
	generator AnswerGenerator
	topK      int
}

// NewChatService creates a new ChatService instance
func NewChatService(kb *KnowledgeBase, embedder QueryEmbedder, generator AnswerGenerator, topK int) *ChatService {
	if kb == nil {
		kb = EmptyKnowledgeBase()
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &ChatService{
		kb:        kb,
		retriever: NewRetriever(embedder),
		generator: generator,
		topK:      topK,
	}
}

// Chat answers question grounded in the knowledge base.
func (s *ChatService) Chat(ctx context.Context, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ValidationError("question is required")
	}

	retrieval, err := s.retriever.Retrieve(ctx, s.kb, question, s.topK)
	if err != nil {
		return nil, err
	}

	text, err := s.generator.Answer(ctx, retrieval, question)
	if err != nil {
		return nil, err
	}

	return &Answer{Text: text, Sources: sourcesOf(retrieval)}, nil
}
