package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/docintel/internal/api/handlers"
	"github.com/cloo-solutions/docintel/internal/api/middleware"
)

type RouterConfig struct {
	ServiceToken   string
	MaxBodyBytes   int64
	HealthHandler  *handlers.HealthHandler
	ProcessHandler *handlers.ProcessHandler
	QAHandler      *handlers.QAHandler
	ChatHandler    *handlers.ChatHandler
}

// DefaultMaxBodyBytes fits a MAX_DOCUMENT_CHARS document with multi-byte text.
const DefaultMaxBodyBytes int64 = 5 * 1024 * 1024

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", cfg.HealthHandler.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.ServiceTokenAuth(cfg.ServiceToken))

		r.Post("/process", cfg.ProcessHandler.Process)
		r.Post("/qa", cfg.QAHandler.Answer)
		r.Post("/chat", cfg.ChatHandler.Chat)
	})

	return r
}
