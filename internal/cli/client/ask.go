package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/docintel/internal/extract"
)

// QARequest mirrors the POST /qa body.
type QARequest struct {
	Context  string `json:"context"`
	Question string `json:"question"`
}

// Source is one retrieved passage behind an answer.
type Source struct {
	Rank       int     `json:"rank"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	RecordID   string  `json:"record_id,omitempty"`
}

// AnswerResponse is returned by /qa and /chat.
type AnswerResponse struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var (
		file     string
		mimeType string
		text     string
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about a document",
		Long: `Asks a question answered only from the given document.
The document is read locally: --file is extracted on this machine (pdf, html, text),
--text is sent as is, and "-" reads text from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			documentText, err := loadDocument(cmd, file, mimeType, text)
			if err != nil {
				return err
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post(cmd.Context(), "/qa", QARequest{Context: documentText, Question: args[0]})
			if err != nil {
				return fmt.Errorf("ask failed: %w", err)
			}

			return printAnswer(cmd.OutOrStdout(), resp, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Document to ask about (\"-\" for stdin)")
	cmd.Flags().StringVarP(&mimeType, "mime-type", "m", "", "Media type of --file (default: inferred from extension)")
	cmd.Flags().StringVar(&text, "text", "", "Document text")

	return cmd
}

func loadDocument(cmd *cobra.Command, file, mimeType, text string) (string, error) {
	switch {
	case text != "" && file != "":
		return "", fmt.Errorf("use either --file or --text")
	case text != "":
		return text, nil
	case file == "":
		return "", fmt.Errorf("a document is required: use --file or --text")
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	if _, err := os.Stat(file); err != nil {
		return "", fmt.Errorf("cannot read %s: %w", file, err)
	}
	if mimeType == "" {
		mimeType = guessMimeType(file)
	}
	return extract.NewService().Extract(cmd.Context(), file, mimeType)
}

func printAnswer(w io.Writer, resp *APIResponse, outputJSON bool) error {
	var answer AnswerResponse
	if err := json.Unmarshal(resp.Data, &answer); err != nil {
		return fmt.Errorf("failed to parse answer: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(answer, "", "  ")
		fmt.Fprintln(w, string(output))
		return nil
	}

	fmt.Fprintln(w, answer.Answer)
	if len(answer.Sources) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	for _, s := range answer.Sources {
		if s.RecordID != "" {
			fmt.Fprintf(w, "  [%d] record %s (%.2f)\n", s.Rank, s.RecordID, s.Score)
		} else {
			fmt.Fprintf(w, "  [%d] chunk %d (%.2f)\n", s.Rank, s.ChunkIndex, s.Score)
		}
	}
	return nil
}
