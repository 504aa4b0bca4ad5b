package daemon

import (
	"context"
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/docintel/internal/config"
	"github.com/cloo-solutions/docintel/internal/domain"
	"github.com/cloo-solutions/docintel/internal/service"
)

// KBCmd returns the knowledge base command group
func KBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Inspect the knowledge base dataset",
	}
	cmd.AddCommand(KBVerifyCmd())
	return cmd
}

// KBVerifyCmd returns the kb verify command
func KBVerifyCmd() *cobra.Command {
	var (
		file  string
		query string
		topK  int
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Parse and embed the knowledge base dataset",
		Long: `Parses the dataset, embeds every record with the configured provider and,
with --query, prints the records retrieved for a question.
Without an AI provider credential only parsing is checked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if file == "" {
				file = cfg.KnowledgeBasePath
			}
			if topK <= 0 {
				topK = cfg.TopK
			}

			ai, err := NewAI(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to create AI provider: %w", err)
			}

			var embeddings KBEmbedder
			if ai != nil {
				embeddings = service.NewEmbeddingService(ai.Embedder, cfg.EmbedBatchSize)
			}
			return verifyKnowledgeBase(ctx, cmd.OutOrStdout(), file, embeddings, query, topK)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Dataset path (default: KNOWLEDGE_BASE_PATH)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Print the records retrieved for this question")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of records to retrieve (default: TOP_K)")

	return cmd
}

// KBEmbedder embeds dataset texts and questions.
type KBEmbedder interface {
	service.TextEmbedder
	service.QueryEmbedder
}

func verifyKnowledgeBase(ctx context.Context, w io.Writer, path string, embedder KBEmbedder, query string, topK int) error {
	records, err := service.LoadDataset(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Parsed %d records from %s\n", len(records), path)

	if embedder == nil {
		fmt.Fprintln(w, "Embedding skipped: "+domain.ErrAINotConfigured.Message)
		return nil
	}
	if len(records) == 0 {
		return nil
	}

	bar := progressbar.NewOptions(len(records),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Embedding"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)

	kb, err := service.BuildKnowledgeBase(ctx, records, embedder, bar)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Embedded %d records\n", kb.Len())

	if query == "" {
		return nil
	}

	retrieval, err := service.NewRetriever(embedder).Retrieve(ctx, kb, query, topK)
	if err != nil {
		return err
	}
	if len(retrieval.Passages) == 0 {
		fmt.Fprintln(w, "No records retrieved.")
		return nil
	}
	fmt.Fprint(w, retrieval.Context)
	return nil
}
