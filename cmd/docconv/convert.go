package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kirillkom/document-converter/internal/adapters/notify"
	"github.com/kirillkom/document-converter/internal/bootstrap"
	"github.com/kirillkom/document-converter/internal/core/domain"
)

var convertCmd = &cobra.Command{
	Use:   "convert FILE",
	Short: "Convert a document and save the result",
	Long: `Convert uploads FILE, prints upload and processing progress, and saves the
converted document into the download directory. Existing files are never
overwritten. Ctrl-C cancels the conversion.

When --to is omitted the target is chosen from the source type:
pdf -> docx, docx/txt/html -> pdf, md -> html.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringP("to", "t", "", "target format: pdf, docx, txt, html or md")
	convertCmd.Flags().StringP("out", "o", "", "directory for the converted file (default: DOWNLOAD_DIR or .)")
	convertCmd.Flags().BoolP("quiet", "q", false, "do not print progress")
	_ = viper.BindPFlag("download_dir", convertCmd.Flags().Lookup("out"))

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	path := args[0]
	toFlag, _ := cmd.Flags().GetString("to")
	quiet, _ := cmd.Flags().GetBool("quiet")

	target, err := resolveTarget(toFlag, path)
	if err != nil {
		return err
	}

	file, err := domain.NewSourceFileFromPath(path, filepath.Base(path), declaredType(path))
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	logger := slog.Default()
	notifier := notify.NewConsole(cmd.ErrOrStderr(), logger)
	client, err := bootstrap.NewClient(clientConfig(), notifier, logger)
	if err != nil {
		return err
	}
	logger.Debug("convert_start",
		"file", path,
		"target", target,
		"api_url", client.API.BaseURL(),
		"download_dir", client.Downloads.Dir(),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if !quiet {
		printer := &progressPrinter{out: cmd.ErrOrStderr()}
		unsubscribe := client.Controller.Subscribe(printer.observe)
		defer unsubscribe()
	}

	result, err := client.Controller.ConvertDocument(ctx, file, target)
	if err != nil {
		return err
	}
	if !result.Success {
		return errors.New(result.Message)
	}

	saved, err := client.Controller.DownloadFile(ctx, result)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), saved)
	return nil
}

// resolveTarget returns the requested format unparsed so that the controller
// reports an unknown name the same way the server would.
func resolveTarget(flag, path string) (domain.Format, error) {
	if v := strings.TrimSpace(flag); v != "" {
		if f, ok := domain.ParseFormat(v); ok {
			return f, nil
		}
		return domain.Format(v), nil
	}
	f, ok := domain.DefaultTarget(path)
	if !ok {
		return "", fmt.Errorf("cannot pick a target format for %q, use --to", filepath.Base(path))
	}
	return f, nil
}

func declaredType(path string) string {
	f, ok := domain.FormatForExtension(domain.FileExtension(path))
	if !ok {
		return ""
	}
	return f.ContentType()
}

// progressPrinter writes one line per visible state change.
type progressPrinter struct {
	out io.Writer

	mu   sync.Mutex
	last string
}

func (p *progressPrinter) observe(state domain.ConversionState) {
	line := formatProgress(state)
	p.mu.Lock()
	defer p.mu.Unlock()
	if line == p.last {
		return
	}
	p.last = line
	fmt.Fprintln(p.out, line)
}

func formatProgress(state domain.ConversionState) string {
	ls := state.LoadingStates
	return fmt.Sprintf("%3d%%  upload=%s processing=%s download=%s", state.Progress, ls.Upload, ls.Processing, ls.Download)
}
