package client

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/docintel/internal/domain"
	"github.com/cloo-solutions/docintel/internal/extract"
	"github.com/cloo-solutions/docintel/internal/intake"
)

// SubmitRequest mirrors the POST /process body.
type SubmitRequest struct {
	DocumentID string `json:"document_id"`
	FilePath   string `json:"file_path"`
	MimeType   string `json:"mime_type"`
}

// SubmitResponse is the accepted-job acknowledgement.
type SubmitResponse struct {
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
}

// SubmitCmd creates the submit command.
func SubmitCmd() *cobra.Command {
	var (
		mimeType string
		natsURL  string
		subject  string
	)

	cmd := &cobra.Command{
		Use:   "submit <document-id> <file-path>",
		Short: "Submit a document for summarization",
		Long: `Submits a document for background extraction and summarization.
The result is delivered to the backend's status callback, not to this command.
file-path is a path readable by the server, an http(s) URL or an s3://bucket/key object.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			if mimeType == "" {
				mimeType = guessMimeType(args[1])
			}
			if mimeType == "" {
				return fmt.Errorf("cannot infer media type of %s: use --mime-type (one of %s)", args[1], strings.Join(extract.SupportedMediaTypes(), ", "))
			}

			req := SubmitRequest{DocumentID: args[0], FilePath: args[1], MimeType: mimeType}

			var resp *SubmitResponse
			var err error
			if natsURL != "" {
				resp, err = submitOverNATS(cmd.Context(), natsURL, subject, req)
			} else {
				resp, err = submitOverHTTP(cmd, req)
			}
			if err != nil {
				return err
			}

			if outputJSON {
				output, _ := json.MarshalIndent(resp, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", resp.Message, resp.DocumentID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&mimeType, "mime-type", "m", "", "Media type of the document (default: inferred from extension)")
	cmd.Flags().StringVar(&natsURL, "nats-url", "", "Submit over NATS instead of HTTP")
	cmd.Flags().StringVar(&subject, "subject", "docintel.jobs.submit", "NATS subject for job submission")

	return cmd
}

func submitOverHTTP(cmd *cobra.Command, req SubmitRequest) (*SubmitResponse, error) {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return nil, err
	}

	resp, err := api.Post(cmd.Context(), "/process", req)
	if err != nil {
		return nil, fmt.Errorf("submit failed: %w", err)
	}

	var submitResp SubmitResponse
	if err := json.Unmarshal(resp.Data, &submitResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &submitResp, nil
}

func submitOverNATS(ctx context.Context, natsURL, subject string, req SubmitRequest) (*SubmitResponse, error) {
	nc, err := intake.Connect(natsURL, "docintel-cli")
	if err != nil {
		return nil, err
	}
	defer nc.Close()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	reply, err := intake.Request(ctx, nc, subject, domain.Job{
		DocumentID: req.DocumentID,
		Source:     req.FilePath,
		MimeType:   req.MimeType,
	})
	if err != nil {
		return nil, err
	}
	if !reply.Accepted {
		return nil, fmt.Errorf("submit rejected: %s", reply.Error)
	}
	return &SubmitResponse{Message: "Job accepted", DocumentID: reply.DocumentID}, nil
}

func guessMimeType(path string) string {
	switch ext := filepath.Ext(path); ext {
	case ".md", ".markdown":
		return "text/markdown"
	case "":
		return ""
	default:
		mt, _, err := mime.ParseMediaType(mime.TypeByExtension(ext))
		if err != nil {
			return ""
		}
		return mt
	}
}
