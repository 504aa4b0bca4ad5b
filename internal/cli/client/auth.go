package client

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// AuthCmd creates the auth parent command
func AuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage connection settings",
		Long:  "Store, clear and inspect the API URL and service token used by docintel",
	}

	cmd.AddCommand(AuthLoginCmd())
	cmd.AddCommand(AuthLogoutCmd())
	cmd.AddCommand(AuthStatusCmd())

	return cmd
}

// AuthLoginCmd creates the auth login command
func AuthLoginCmd() *cobra.Command {
	var token string
	var apiURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store API URL and service token",
		Long:  "Store API URL and service token in global config (~/.config/docintel/config.json)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := SaveGlobalConfig(&GlobalConfig{Token: token, APIURL: apiURL}); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Saved connection settings")
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "service-token", "", "Service token sent as a bearer token")
	cmd.Flags().StringVar(&apiURL, "url", defaultAPIURL, "API URL")

	return cmd
}

// AuthLogoutCmd creates the auth logout command
func AuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear stored connection settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteGlobalConfig(); err != nil {
				return fmt.Errorf("failed to logout: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cleared connection settings")
			return nil
		},
	}
}

// AuthStatusCmd creates the auth status command
func AuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where connection settings come from",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			token, _ := cmd.Flags().GetString("token")
			apiURL, _ := cmd.Flags().GetString("api-url")

			conn, err := ResolveConnection(token, apiURL)
			if err != nil {
				return err
			}
			return writeStatus(cmd.OutOrStdout(), conn, outputJSON)
		},
	}
}

func writeStatus(w io.Writer, conn *Connection, outputJSON bool) error {
	if outputJSON {
		status := map[string]interface{}{
			"api_url":      conn.APIURL,
			"url_source":   string(conn.URLSource),
			"token_source": string(conn.TokenSource),
		}
		if conn.Token != "" {
			status["token"] = maskToken(conn.Token)
		}
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	fmt.Fprintf(w, "API URL: %s (%s)\n", conn.APIURL, conn.URLSource)
	if conn.Token == "" {
		fmt.Fprintln(w, "Service token: not set")
		return nil
	}
	fmt.Fprintf(w, "Service token: %s (%s)\n", maskToken(conn.Token), conn.TokenSource)
	return nil
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
