package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cloo-solutions/docintel/internal/api/handlers"
	"github.com/cloo-solutions/docintel/internal/callback"
	"github.com/cloo-solutions/docintel/internal/config"
	"github.com/cloo-solutions/docintel/internal/domain"
	"github.com/cloo-solutions/docintel/internal/extract"
	"github.com/cloo-solutions/docintel/internal/intake"
	"github.com/cloo-solutions/docintel/internal/jobs"
	"github.com/cloo-solutions/docintel/internal/server"
	"github.com/cloo-solutions/docintel/internal/service"
	"github.com/cloo-solutions/docintel/internal/storage"
)

// App is the assembled daemon: HTTP routes, job dispatcher and optional NATS intake.
type App struct {
	cfg        *config.Config
	Router     http.Handler
	Dispatcher *jobs.Dispatcher
	Knowledge  *service.KnowledgeBase

	nc *nats.Conn
}

// NewApp wires every component from cfg. ai may be nil.
func NewApp(ctx context.Context, cfg *config.Config, ai *AI) (*App, error) {
	var extractOpts []extract.Option
	if cfg.HasS3() {
		objects, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		extractOpts = append(extractOpts, extract.WithObjectStore(objects))
		log.Printf("s3 sources enabled (default bucket %s)", cfg.S3Bucket)
	}
	extractor := extract.NewService(extractOpts...)
	reporter := callback.NewClient(cfg.BackendURL, cfg.CallbackTimeout)

	var (
		summarizer jobs.Summarizer            = &NoOpSummarizer{}
		qaSvc      handlers.DocumentQAService = &NoOpQAService{}
		chatSvc    handlers.ChatService       = &NoOpChatService{}
		kb                                    = service.EmptyKnowledgeBase()
	)

	if ai != nil {
		embeddings := service.NewEmbeddingService(ai.Embedder, cfg.EmbedBatchSize)
		summarizer = service.NewGuardedGenerator(ai.Summary, cfg.MaxDocumentChars, cfg.DeclineThreshold)
		answerer := service.NewGuardedGenerator(ai.Chat, cfg.MaxDocumentChars, cfg.DeclineThreshold)

		qaSvc = service.NewDocumentQAService(embeddings, answerer, service.QAConfig{
			Chunking: service.ChunkConfig{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap},
			TopK:     cfg.TopK,
			MaxChars: cfg.MaxDocumentChars,
		})

		kb = loadKnowledgeBase(ctx, cfg.KnowledgeBasePath, embeddings)
		chatSvc = service.NewChatService(kb, embeddings, answerer, cfg.TopK)
		log.Printf("AI provider %s ready", ai.Name)
	} else {
		log.Println("no AI provider credential set: summarization, Q&A and chat are disabled")
	}

	pipeline := jobs.NewPipeline(extractor, summarizer, reporter, cfg.MaxStoredChars)
	dispatcher := jobs.NewDispatcher(pipeline)
	dispatcher.OnDone(func(job domain.Job, outcome jobs.Outcome) {
		log.Printf("job %s: finished %s", job.DocumentID, outcome.State)
	})

	router := server.NewRouter(server.RouterConfig{
		ServiceToken:   cfg.ServiceToken,
		HealthHandler:  handlers.NewHealthHandler(dispatcher, kb.Len()),
		ProcessHandler: handlers.NewProcessHandler(dispatcher),
		QAHandler:      handlers.NewQAHandler(qaSvc),
		ChatHandler:    handlers.NewChatHandler(chatSvc),
	})

	return &App{
		cfg:        cfg,
		Router:     router,
		Dispatcher: dispatcher,
		Knowledge:  kb,
	}, nil
}

// loadKnowledgeBase never fails: chat degrades to declining every question.
func loadKnowledgeBase(ctx context.Context, path string, embedder service.TextEmbedder) *service.KnowledgeBase {
	records, err := service.LoadDataset(path)
	if err != nil {
		log.Printf("knowledge base: %v; continuing with an empty knowledge base", err)
		return service.EmptyKnowledgeBase()
	}

	kb, err := service.BuildKnowledgeBase(ctx, records, embedder, nil)
	if err != nil {
		log.Printf("knowledge base: %v; continuing with an empty knowledge base", err)
		return service.EmptyKnowledgeBase()
	}

	log.Printf("knowledge base: %d records loaded from %s", kb.Len(), path)
	return kb
}

// StartIntake subscribes to the NATS job subject when NATS_URL is set.
func (a *App) StartIntake() error {
	if !a.cfg.HasNATS() {
		return nil
	}

	nc, err := intake.Connect(a.cfg.NATSURL, "docinteld")
	if err != nil {
		return err
	}

	subscriber := intake.NewSubscriber(nc, a.cfg.NATSJobSubject, a.Dispatcher)
	if err := subscriber.Start(); err != nil {
		nc.Close()
		return err
	}

	a.nc = nc
	return nil
}

// Shutdown stops intake and waits for running jobs until ctx expires.
func (a *App) Shutdown(ctx context.Context) error {
	// Drain delivers queued submissions before the connection closes.
	if a.nc != nil {
		if err := a.nc.Drain(); err != nil {
			log.Printf("nats drain failed: %v", err)
			a.nc.Close()
		}
		waitClosed(ctx, a.nc)
	}
	return a.Dispatcher.Stop(ctx)
}

func waitClosed(ctx context.Context, nc *nats.Conn) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for !nc.IsClosed() {
		select {
		case <-ctx.Done():
			nc.Close()
			return
		case <-ticker.C:
		}
	}
}
