package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/document-converter/internal/adapters/notify"
	"github.com/kirillkom/document-converter/internal/bootstrap"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the conversions the server supports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := bootstrap.NewClient(clientConfig(), notify.NewConsole(cmd.ErrOrStderr(), nil), slog.Default())
		if err != nil {
			return err
		}
		formats, err := client.API.Formats(cmd.Context())
		if err != nil {
			return fmt.Errorf("list formats: %w", err)
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(formats)
		}

		sources := make([]string, 0, len(formats.Conversions))
		for source := range formats.Conversions {
			sources = append(sources, source)
		}
		sort.Strings(sources)
		for _, source := range sources {
			fmt.Fprintf(out, "%-5s -> %s\n", source, strings.Join(formats.Conversions[source], ", "))
		}
		return nil
	},
}

func init() {
	formatsCmd.Flags().Bool("json", false, "output the raw server response")

	rootCmd.AddCommand(formatsCmd)
}
