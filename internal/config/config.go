package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8000"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`

	// Shared secret required on job, qa and chat routes when set
	ServiceToken string `envconfig:"SERVICE_TOKEN"`

	AIProvider          string        `envconfig:"AI_PROVIDER" default:"gemini"`
	GeminiAPIKey        string        `envconfig:"GEMINI_API_KEY"`
	OpenAIAPIKey        string        `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel      string        `envconfig:"EMBEDDING_MODEL"`
	SummaryModel        string        `envconfig:"SUMMARY_MODEL"`
	ChatModel           string        `envconfig:"CHAT_MODEL"`
	EmbeddingDimensions int           `envconfig:"EMBEDDING_DIMENSIONS"`
	EmbedBatchSize      int           `envconfig:"EMBED_BATCH_SIZE" default:"100"`
	AIRequestsPerSecond float64       `envconfig:"AI_REQUESTS_PER_SECOND" default:"5"`
	AIRequestTimeout    time.Duration `envconfig:"AI_REQUEST_TIMEOUT" default:"60s"`

	BackendURL      string        `envconfig:"BACKEND_URL" default:"http://localhost:4000/api"`
	CallbackTimeout time.Duration `envconfig:"CALLBACK_TIMEOUT" default:"10s"`

	KnowledgeBasePath string  `envconfig:"KNOWLEDGE_BASE_PATH" default:"data/medquad_sample.json"`
	ChunkSize         int     `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap      int     `envconfig:"CHUNK_OVERLAP" default:"200"`
	TopK              int     `envconfig:"TOP_K" default:"3"`
	MaxDocumentChars  int     `envconfig:"MAX_DOCUMENT_CHARS" default:"30000"`
	MaxStoredChars    int     `envconfig:"MAX_STORED_CHARS" default:"100000"`
	DeclineThreshold  float64 `envconfig:"DECLINE_THRESHOLD" default:"0.25"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"patient-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	NATSURL        string `envconfig:"NATS_URL"`
	NATSJobSubject string `envconfig:"NATS_JOB_SUBJECT" default:"docintel.jobs.submit"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("DOCINTEL", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate rejects configurations the retrieval pipeline cannot run with.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("invalid config: CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("invalid config: CHUNK_OVERLAP (%d) must be in [0, CHUNK_SIZE=%d)", c.ChunkOverlap, c.ChunkSize)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("invalid config: TOP_K must be positive, got %d", c.TopK)
	}
	if c.EmbedBatchSize <= 0 {
		return fmt.Errorf("invalid config: EMBED_BATCH_SIZE must be positive, got %d", c.EmbedBatchSize)
	}
	switch c.Provider() {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("invalid config: unknown AI_PROVIDER %q", c.AIProvider)
	}
	return nil
}

// Provider returns the normalized AI provider name.
func (c *Config) Provider() string {
	return strings.ToLower(strings.TrimSpace(c.AIProvider))
}

func (c *Config) HasGemini() bool {
	return c.GeminiAPIKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// HasAI reports whether the selected provider has its credential.
func (c *Config) HasAI() bool {
	switch c.Provider() {
	case ProviderGemini:
		return c.HasGemini()
	case ProviderOpenAI:
		return c.HasOpenAI()
	}
	return false
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasNATS() bool {
	return c.NATSURL != ""
}
