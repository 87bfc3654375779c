package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	httpadapter "github.com/kirillkom/document-converter/internal/adapters/http"
	"github.com/kirillkom/document-converter/internal/config"
	"github.com/kirillkom/document-converter/internal/core/domain"
	"github.com/kirillkom/document-converter/internal/core/usecase"
	"github.com/kirillkom/document-converter/internal/infrastructure/document"
)

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		flag, path string
		want       domain.Format
		wantErr    bool
	}{
		{flag: "", path: "report.pdf", want: domain.FormatDOCX},
		{flag: "", path: "notes.md", want: domain.FormatHTML},
		{flag: "Markdown", path: "report.pdf", want: domain.FormatMarkdown},
		{flag: "xls", path: "report.pdf", want: domain.Format("xls")},
		{flag: "", path: "archive.zip", wantErr: true},
	}
	for _, tt := range tests {
		got, err := resolveTarget(tt.flag, tt.path)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Fatalf("resolveTarget(%q, %q) = %q, %v", tt.flag, tt.path, got, err)
		}
	}
}

func TestProgressPrinterSkipsDuplicates(t *testing.T) {
	var out bytes.Buffer
	p := &progressPrinter{out: &out}

	state := domain.ConversionState{IsConverting: true, Progress: 15, LoadingStates: domain.LoadingStates{
		Upload: domain.UploadUploading, Processing: domain.ProcessingIdle, Download: domain.DownloadIdle,
	}}
	p.observe(state)
	p.observe(state)
	state.Progress = 30
	p.observe(state)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", out.String())
	}
	if lines[0] != " 15%  upload=uploading processing=idle download=idle" {
		t.Fatalf("unexpected line %q", lines[0])
	}
}

func TestConvertCommandAgainstServer(t *testing.T) {
	engine := document.NewDefaultEngine()
	uc := usecase.NewConvertDocumentUseCase(engine, nil, 0)
	server := httptest.NewServer(httpadapter.NewRouter(config.Config{AppVersion: "test"}, uc, engine).Handler())
	defer server.Close()

	dir := t.TempDir()
	src := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(src, []byte("NOTES\n\nRemember the milk.\n"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	outDir := filepath.Join(dir, "out")

	t.Setenv("CONVERTER_API_URL", server.URL)
	t.Setenv("DOCCONV_API_URL", "")

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"convert", src, "--to", "md", "--out", outDir, "--quiet"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("convert failed: %v\nstderr: %s", err, stderr.String())
	}

	saved := strings.TrimSpace(stdout.String())
	if filepath.Base(saved) != "notes.md" || filepath.Dir(saved) != outDir {
		t.Fatalf("unexpected saved path %q", saved)
	}
	content, err := os.ReadFile(saved)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(content), "# NOTES") || !strings.Contains(string(content), "Remember the milk.") {
		t.Fatalf("unexpected markdown:\n%s", content)
	}
	if !strings.Contains(stderr.String(), "[success]") {
		t.Fatalf("expected success notification, got %q", stderr.String())
	}
}
