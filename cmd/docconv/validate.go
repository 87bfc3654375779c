package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kirillkom/document-converter/internal/core/domain"
	"github.com/kirillkom/document-converter/internal/core/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Check files against the upload rules without converting them",
	Long: `Validate runs the same checks the converter applies before upload: filename
safety, size limit, extension and declared type. With --content the file
header is also inspected for executables and mismatched signatures.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().Bool("content", false, "also inspect file contents")
	validateCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(validateCmd)
}

type validationReport struct {
	File   string                      `json:"file"`
	Size   string                      `json:"size,omitempty"`
	Result domain.FileValidationResult `json:"result"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	inspect, _ := cmd.Flags().GetBool("content")
	asJSON, _ := cmd.Flags().GetBool("json")
	limit := clientConfig().MaxUploadBytes

	reports := make([]validationReport, 0, len(args))
	failed := 0
	for _, path := range args {
		report := validatePath(path, limit, inspect)
		if !report.Result.IsValid {
			failed++
		}
		reports = append(reports, report)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			if r.Result.IsValid {
				fmt.Fprintf(out, "ok    %s (%s)\n", r.File, r.Size)
				continue
			}
			fmt.Fprintf(out, "fail  %s: %s [%s]\n", r.File, r.Result.Message, r.Result.RiskLevel)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed validation", failed, len(args))
	}
	return nil
}

func validatePath(path string, limit int64, inspect bool) validationReport {
	report := validationReport{File: path}
	// validation applies to the name as uploaded, not the local path
	file, err := domain.NewSourceFileFromPath(path, filepath.Base(path), declaredType(path))
	if err != nil {
		report.Result = domain.FileValidationResult{
			Message:   err.Error(),
			RiskLevel: domain.RiskMedium,
		}
		return report
	}
	report.Size = validation.FormatFileSize(file.Size)

	report.Result = validation.ValidateFileWithLimit(file, limit)
	if !report.Result.IsValid || !inspect {
		return report
	}

	header, err := readHeader(path)
	if err != nil {
		report.Result = domain.FileValidationResult{Message: err.Error(), RiskLevel: domain.RiskMedium}
		return report
	}
	report.Result = validation.InspectContent(header, domain.FileExtension(path))
	return report
}

func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, validation.SniffLength)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}
