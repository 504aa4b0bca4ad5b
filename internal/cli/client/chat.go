package client

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ChatRequest mirrors the POST /chat body.
type ChatRequest struct {
	Question string `json:"question"`
}

// ChatCmd creates the chat command.
func ChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat [question]",
		Short: "Ask the medical knowledge base",
		Long: `Asks a general medical question answered from the knowledge base.
Without a question argument, starts an interactive session; an empty line or "exit" ends it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			ask := func(question string) error {
				resp, err := api.Post(cmd.Context(), "/chat", ChatRequest{Question: question})
				if err != nil {
					return fmt.Errorf("chat failed: %w", err)
				}
				return printAnswer(cmd.OutOrStdout(), resp, outputJSON)
			}

			if len(args) == 1 {
				return ask(args[0])
			}

			out := cmd.OutOrStdout()
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					break
				}
				question := strings.TrimSpace(scanner.Text())
				if question == "" || question == "exit" {
					break
				}
				if err := ask(question); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
				}
				fmt.Fprintln(out)
			}
			return scanner.Err()
		},
	}
}
