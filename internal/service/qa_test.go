package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/cloo-solutions/docintel/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAnswerGenerator mocks the guarded generator
type MockAnswerGenerator struct {
	mock.Mock
}

func (m *MockAnswerGenerator) Answer(ctx context.Context, retrieval *Retrieval, question string) (string, error) {
	args := m.Called(ctx, retrieval, question)
	return args.String(0), args.Error(1)
}

// MockDocumentEmbedder mocks document and query embedding
type MockDocumentEmbedder struct {
	mock.Mock
}

func (m *MockDocumentEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockDocumentEmbedder) EmbedDocuments(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error) {
	args := m.Called(ctx, chunks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Chunk), args.Error(1)
}

const labReport = "Complete blood count: hemoglobin low, ferritin low, suggesting iron deficiency anemia. " +
	"Lipid panel: cholesterol elevated, LDL high. " +
	"Thyroid: TSH within normal range."

func TestDocumentQAService_Answer(t *testing.T) {
	embedder := newKeywordEmbedder("hemoglobin", "ferritin", "anemia", "cholesterol", "ldl", "tsh")
	gen := new(MockAnswerGenerator)
	svc := NewDocumentQAService(embedder, gen, QAConfig{Chunking: ChunkConfig{Size: 60, Overlap: 10}, TopK: 2})
	ctx := context.Background()

	gen.On("Answer", ctx, mock.MatchedBy(func(r *Retrieval) bool {
		return len(r.Passages) == 2 &&
			strings.Contains(r.Passages[0].Chunk.Text, "cholesterol") &&
			strings.HasPrefix(r.Context, "Source 1 (Relevance: ")
	}), "is my cholesterol ldl high?").Return("Your LDL cholesterol appears elevated.", nil)

	answer, err := svc.Answer(ctx, labReport, "is my cholesterol ldl high?")
	require.NoError(t, err)
	assert.Equal(t, "Your LDL cholesterol appears elevated.", answer.Text)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, 1, answer.Sources[0].Rank)
	assert.Equal(t, 2, answer.Sources[1].Rank)
	assert.GreaterOrEqual(t, answer.Sources[0].Score, answer.Sources[1].Score)
	gen.AssertExpectations(t)
}

func TestDocumentQAService_Answer_SingleChunkWithTopK3(t *testing.T) {
	embedder := newKeywordEmbedder("glucose", "fasting")
	gen := new(MockAnswerGenerator)
	svc := NewDocumentQAService(embedder, gen, QAConfig{TopK: 3})
	ctx := context.Background()

	gen.On("Answer", ctx, mock.MatchedBy(func(r *Retrieval) bool {
		return len(r.Passages) == 1
	}), "what is my fasting glucose?").Return("Your fasting glucose is 92 mg/dL.", nil)

	answer, err := svc.Answer(ctx, "Fasting glucose: 92 mg/dL.", "what is my fasting glucose?")
	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, 0, answer.Sources[0].ChunkIndex)
	assert.InDelta(t, 1.0, answer.Sources[0].Score, 1e-9)
}

func TestDocumentQAService_Answer_EmptyDocument(t *testing.T) {
	embedder := new(MockDocumentEmbedder)
	gen := new(MockAnswerGenerator)
	svc := NewDocumentQAService(embedder, gen, QAConfig{})

	answer, err := svc.Answer(context.Background(), "", "anything?")
	require.NoError(t, err)
	assert.Equal(t, EmptyDocumentAnswer, answer.Text)
	assert.Empty(t, answer.Sources)
	embedder.AssertNotCalled(t, "EmbedDocuments", mock.Anything, mock.Anything)
	gen.AssertNotCalled(t, "Answer", mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentQAService_Answer_RequiresQuestion(t *testing.T) {
	svc := NewDocumentQAService(new(MockDocumentEmbedder), new(MockAnswerGenerator), QAConfig{})

	_, err := svc.Answer(context.Background(), labReport, "   ")
	assert.True(t, domain.HasCode(err, domain.ErrCodeValidation))
}

func TestDocumentQAService_Answer_TruncatesDocument(t *testing.T) {
	embedder := new(MockDocumentEmbedder)
	gen := new(MockAnswerGenerator)
	svc := NewDocumentQAService(embedder, gen, QAConfig{Chunking: ChunkConfig{Size: 4, Overlap: 0}, MaxChars: 8})
	ctx := context.Background()

	embedder.On("EmbedDocuments", ctx, mock.MatchedBy(func(chunks []domain.Chunk) bool {
		return len(chunks) == 2 && chunks[1].Text == "EFGH"
	})).Return(nil, domain.EmbeddingFailure("stop here", nil))

	_, err := svc.Answer(ctx, "ABCDEFGHIJKLMNOP", "q")
	assert.True(t, domain.HasCode(err, domain.ErrCodeEmbedding))
	embedder.AssertExpectations(t)
}

func TestDocumentQAService_Answer_GenerationFailure(t *testing.T) {
	embedder := newKeywordEmbedder("glucose")
	gen := new(MockAnswerGenerator)
	svc := NewDocumentQAService(embedder, gen, QAConfig{})
	ctx := context.Background()

	gen.On("Answer", ctx, mock.Anything, "glucose?").
		Return("", domain.GenerationFailure("answer generation failed", errors.New("blocked")))

	_, err := svc.Answer(ctx, "glucose 92", "glucose?")
	assert.True(t, domain.HasCode(err, domain.ErrCodeGeneration))
}

func TestDocumentQAService_Answer_ConcurrentCallsAreIndependent(t *testing.T) {
	embedder := newKeywordEmbedder("alpha", "beta")
	gen := new(MockAnswerGenerator)
	svc := NewDocumentQAService(embedder, gen, QAConfig{TopK: 1})
	ctx := context.Background()

	gen.On("Answer", ctx, mock.Anything, mock.Anything).Return("ok", nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc := "alpha alpha"
			if i%2 == 1 {
				doc = "beta beta"
			}
			answer, err := svc.Answer(ctx, doc, "alpha or beta?")
			assert.NoError(t, err)
			assert.Len(t, answer.Sources, 1)
		}(i)
	}
	wg.Wait()
}
