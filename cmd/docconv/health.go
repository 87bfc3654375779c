package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kirillkom/document-converter/internal/adapters/notify"
	"github.com/kirillkom/document-converter/internal/bootstrap"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the conversion server is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := bootstrap.NewClient(clientConfig(), notify.NewConsole(cmd.ErrOrStderr(), nil), slog.Default())
		if err != nil {
			return err
		}
		status, err := client.API.Health(cmd.Context())
		if err != nil {
			return fmt.Errorf("%s: %w", client.API.BaseURL(), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (version %s)\n", client.API.BaseURL(), status.Status, status.Version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
