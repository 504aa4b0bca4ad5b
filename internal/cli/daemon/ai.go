package daemon

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/docintel/internal/config"
	"github.com/cloo-solutions/docintel/internal/gemini"
	"github.com/cloo-solutions/docintel/internal/openai"
	"github.com/cloo-solutions/docintel/internal/service"
)

// AI is the provider the services run on: one embedder and a generator per task.
type AI struct {
	Name     string
	Embedder service.EmbeddingAPI
	Summary  service.TextGenerator
	Chat     service.TextGenerator
}

// NewAI builds the configured provider. It returns nil when the provider has
// no credential, in which case AI-backed features report "not configured".
func NewAI(ctx context.Context, cfg *config.Config) (*AI, error) {
	if !cfg.HasAI() {
		return nil, nil
	}

	switch cfg.Provider() {
	case config.ProviderOpenAI:
		base := openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
			ChatModel:           cfg.SummaryModel,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			RequestsPerSecond:   cfg.AIRequestsPerSecond,
			Timeout:             cfg.AIRequestTimeout,
		}
		summary := openai.NewClientWithConfig(base)

		chatCfg := base
		chatCfg.ChatModel = cfg.ChatModel
		return &AI{
			Name:     config.ProviderOpenAI,
			Embedder: summary,
			Summary:  summary,
			Chat:     openai.NewClientWithConfig(chatCfg),
		}, nil

	case config.ProviderGemini:
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:              cfg.GeminiAPIKey,
			EmbeddingModel:      cfg.EmbeddingModel,
			GenerationModel:     cfg.SummaryModel,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			RequestsPerSecond:   cfg.AIRequestsPerSecond,
			Timeout:             cfg.AIRequestTimeout,
		})
		if err != nil {
			return nil, err
		}

		chatModel := cfg.ChatModel
		if chatModel == "" {
			chatModel = gemini.DefaultChatModel
		}
		return &AI{
			Name:     config.ProviderGemini,
			Embedder: client,
			Summary:  client,
			Chat:     client.WithGenerationModel(chatModel),
		}, nil
	}

	return nil, fmt.Errorf("unknown AI provider %q", cfg.AIProvider)
}
