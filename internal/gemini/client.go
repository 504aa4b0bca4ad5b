// Package gemini provides embeddings and text generation backed by the
// Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/cloo-solutions/docintel/internal/domain"
)

const (
	DefaultEmbeddingModel      = "text-embedding-004"
	DefaultEmbeddingDimensions = 768
	DefaultSummaryModel        = "gemini-2.5-flash-lite"
	DefaultChatModel           = "gemini-2.5-flash"
)

var (
	ErrNoAPIKey        = errors.New("GEMINI_API_KEY not set")
	ErrEmptyText       = errors.New("text cannot be empty")
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// taskTypes maps embedding roles to Gemini task types.
var taskTypes = map[domain.EmbeddingRole]string{
	domain.RoleDocument: "RETRIEVAL_DOCUMENT",
	domain.RoleQuery:    "RETRIEVAL_QUERY",
}

// ModelsAPI is the subset of *genai.Models used by Client.
type ModelsAPI interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Config struct {
	APIKey              string
	EmbeddingModel      string
	GenerationModel     string
	EmbeddingDimensions int
	RequestsPerSecond   float64
	Timeout             time.Duration
}

// Client embeds and generates text with one Gemini model pair.
type Client struct {
	models          ModelsAPI
	embeddingModel  string
	generationModel string
	dimensions      int
	limiter         *rate.Limiter
}

// NewClient connects to the Gemini API.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return newClient(client.Models, cfg), nil
}

func newClient(models ModelsAPI, cfg Config) *Client {
	c := &Client{
		models:          models,
		embeddingModel:  cfg.EmbeddingModel,
		generationModel: cfg.GenerationModel,
		dimensions:      cfg.EmbeddingDimensions,
	}
	if c.embeddingModel == "" {
		c.embeddingModel = DefaultEmbeddingModel
	}
	if c.generationModel == "" {
		c.generationModel = DefaultSummaryModel
	}
	if c.dimensions <= 0 {
		c.dimensions = DefaultEmbeddingDimensions
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

// WithGenerationModel returns a copy of c that generates with model. The copy
// shares the connection and rate limiter.
func (c *Client) WithGenerationModel(model string) *Client {
	clone := *c
	if model != "" {
		clone.generationModel = model
	}
	return &clone
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// EmbedBatch embeds texts with the task type matching role.
func (c *Client) EmbedBatch(ctx context.Context, texts []string, role domain.EmbeddingRole) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyText
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		if t == "" {
			return nil, ErrEmptyText
		}
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	taskType, ok := taskTypes[role]
	if !ok {
		taskType = taskTypes[domain.RoleDocument]
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.models.EmbedContent(ctx, c.embeddingModel, contents, &genai.EmbedContentConfig{
		TaskType: taskType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", got, len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) != c.dimensions {
			n := 0
			if e != nil {
				n = len(e.Values)
			}
			return nil, fmt.Errorf("embedding %d: got %d, expected %d: %w", i, n, c.dimensions, ErrWrongDimensions)
		}
		vectors[i] = e.Values
	}
	return vectors, nil
}

// Generate sends prompt.System as the system instruction and prompt.User as
// the only user turn.
func (c *Client) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	var config *genai.GenerateContentConfig
	if prompt.System != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		}
	}

	resp, err := c.models.GenerateContent(ctx, c.generationModel, genai.Text(prompt.User), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil {
		return "", nil
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	return resp.Text(), nil
}
