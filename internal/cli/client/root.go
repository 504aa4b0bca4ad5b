package client

import (
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/docintel/internal/cli"
)

// RootCmd builds the docintel command tree.
func RootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "docintel",
		Short: "docintel CLI - clinical document summaries and Q&A",
		Long: `docintel submits documents for summarization and asks questions
about documents and the medical knowledge base.

Environment variables:
  DOCINTEL_API_URL         API base URL (default: http://localhost:8000)
  DOCINTEL_SERVICE_TOKEN   Service token, when the server requires one`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("token", "", "Service token (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(SubmitCmd())
	rootCmd.AddCommand(AskCmd())
	rootCmd.AddCommand(ChatCmd())
	rootCmd.AddCommand(AuthCmd())

	return rootCmd
}
