package daemon

import (
	"context"

	"github.com/cloo-solutions/docintel/internal/domain"
	"github.com/cloo-solutions/docintel/internal/service"
)

type NoOpSummarizer struct{}

func (s *NoOpSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	return "", domain.ErrAINotConfigured
}

type NoOpQAService struct{}

func (s *NoOpQAService) Answer(ctx context.Context, documentText, question string) (*service.Answer, error) {
	return nil, domain.ErrAINotConfigured
}

type NoOpChatService struct{}

func (s *NoOpChatService) Chat(ctx context.Context, question string) (*service.Answer, error) {
	return nil, domain.ErrAINotConfigured
}
