// Package extract turns documents into plain text for summarization and
// retrieval.
package extract

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cloo-solutions/docintel/internal/domain"
	"github.com/cloo-solutions/docintel/internal/storage"
)

const (
	// MaxDocumentBytes caps how much of a source is read
	MaxDocumentBytes = int64(50 * 1024 * 1024)
	// DefaultFetchTimeout bounds remote downloads
	DefaultFetchTimeout = 60 * time.Second
)

// ObjectGetter downloads objects from an object store.
type ObjectGetter interface {
	GetObject(ctx context.Context, bucket, key string, maxBytes int64) (*storage.Object, error)
}

type Option func(*Service)

// WithHTTPClient overrides the client used for http(s) sources.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		s.httpClient = client
	}
}

// WithObjectStore enables s3:// sources.
func WithObjectStore(objects ObjectGetter) Option {
	return func(s *Service) {
		s.objects = objects
	}
}

// WithMaxBytes overrides MaxDocumentBytes.
func WithMaxBytes(n int64) Option {
	return func(s *Service) {
		s.maxBytes = n
	}
}

// Service extracts text from local files, http(s) URLs and s3:// objects.
type Service struct {
	httpClient *http.Client
	objects    ObjectGetter
	maxBytes   int64
}

func NewService(opts ...Option) *Service {
	s := &Service{
		httpClient: &http.Client{Timeout: DefaultFetchTimeout},
		maxBytes:   MaxDocumentBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Extract reads source and renders it as text using the strategy for mimeType.
func (s *Service) Extract(ctx context.Context, source, mimeType string) (string, error) {
	mediaType, err := normalizeMediaType(mimeType)
	if err != nil {
		return "", err
	}
	strategy, ok := formatFor(mediaType)
	if !ok {
		return "", domain.ExtractionFailure(
			fmt.Sprintf("cannot extract %s (supported: %s)", mediaType, strings.Join(SupportedMediaTypes(), ", ")),
			domain.ErrUnsupportedMediaType)
	}

	data, err := s.read(ctx, source)
	if err != nil {
		return "", err
	}

	text, err := strategy.extract(data)
	if err != nil {
		return "", domain.ExtractionFailure(fmt.Sprintf("failed to read %s document", strategy.name), err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.ErrNoTextExtracted
	}
	return text, nil
}

func (s *Service) read(ctx context.Context, source string) ([]byte, error) {
	switch {
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return s.fetch(ctx, source)
	case strings.HasPrefix(source, "s3://"):
		return s.download(ctx, source)
	default:
		return s.open(strings.TrimPrefix(source, "file://"))
	}
}

func (s *Service) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.ExtractionFailure("invalid document url", err)
	}
	req.Header.Set("User-Agent", "docintel/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, domain.ExtractionFailure("document source unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.ExtractionFailure(fmt.Sprintf("document source returned %d", resp.StatusCode), nil)
	}

	data, err := storage.ReadLimited(resp.Body, s.maxBytes)
	if err != nil {
		return nil, domain.ExtractionFailure("failed to download document", err)
	}
	return data, nil
}

func (s *Service) download(ctx context.Context, source string) ([]byte, error) {
	if s.objects == nil {
		return nil, domain.ErrObjectStoreNotConfigured
	}

	bucket, key, err := storage.ParseObjectURL(source)
	if err != nil {
		return nil, domain.ExtractionFailure("invalid object url", err)
	}

	obj, err := s.objects.GetObject(ctx, bucket, key, s.maxBytes)
	if err != nil {
		return nil, domain.ExtractionFailure("failed to download document", err)
	}
	return obj.Body, nil
}

func (s *Service) open(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ExtractionFailure(fmt.Sprintf("document not found: %s", path), err)
		}
		return nil, domain.ExtractionFailure("failed to open document", err)
	}
	defer f.Close()

	data, err := storage.ReadLimited(f, s.maxBytes)
	if err != nil {
		return nil, domain.ExtractionFailure("failed to read document", err)
	}
	return data, nil
}

func normalizeMediaType(mimeType string) (string, error) {
	if strings.TrimSpace(mimeType) == "" {
		return "", domain.ExtractionFailure("media type is required", domain.ErrUnsupportedMediaType)
	}
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return "", domain.ExtractionFailure(fmt.Sprintf("invalid media type %q", mimeType), domain.ErrUnsupportedMediaType)
	}
	return mediaType, nil
}
