package validation

import (
	"strings"
	"testing"

	"github.com/kirillkom/document-converter/internal/core/domain"
)

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		wantValid bool
		wantRisk  domain.RiskLevel
	}{
		{name: "plain", filename: "report.pdf", wantValid: true, wantRisk: domain.RiskLow},
		{name: "unicode", filename: "relatório final.docx", wantValid: true, wantRisk: domain.RiskLow},
		{name: "empty", filename: "", wantRisk: domain.RiskHigh},
		{name: "whitespace", filename: "   ", wantRisk: domain.RiskHigh},
		{name: "dot dot", filename: "..report.pdf", wantRisk: domain.RiskCritical},
		{name: "forward slash", filename: "etc/passwd", wantRisk: domain.RiskCritical},
		{name: "backslash", filename: `dir\file.txt`, wantRisk: domain.RiskCritical},
		{name: "traversal with control char", filename: "../\x00.txt", wantRisk: domain.RiskCritical},
		{name: "null byte", filename: "report\x00.pdf", wantRisk: domain.RiskHigh},
		{name: "reserved char", filename: "what?.txt", wantRisk: domain.RiskHigh},
		{name: "angle brackets", filename: "<script>.html", wantRisk: domain.RiskHigh},
		{name: "too long", filename: strings.Repeat("a", 252) + ".txt", wantRisk: domain.RiskMedium},
		{name: "exactly max", filename: strings.Repeat("a", 251) + ".txt", wantValid: true, wantRisk: domain.RiskLow},
		{name: "accented within limit", filename: strings.Repeat("ó", 200) + ".txt", wantValid: true, wantRisk: domain.RiskLow},
		{name: "accented too long", filename: strings.Repeat("ó", 252) + ".txt", wantRisk: domain.RiskMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateFilename(tt.filename)
			if got.IsValid != tt.wantValid {
				t.Fatalf("IsValid = %v, want %v (%s)", got.IsValid, tt.wantValid, got.Message)
			}
			if got.RiskLevel != tt.wantRisk {
				t.Fatalf("RiskLevel = %s, want %s", got.RiskLevel, tt.wantRisk)
			}
		})
	}
}

func TestValidateFilenameTraversalAlwaysCritical(t *testing.T) {
	bases := []string{"", "a", "report.pdf", "x\x01y", "long" + strings.Repeat("z", 300)}
	markers := []string{"..", "/", `\`}
	for _, base := range bases {
		for _, marker := range markers {
			for _, name := range []string{marker + base, base + marker, base[:len(base)/2] + marker + base[len(base)/2:]} {
				got := ValidateFilename(name)
				if got.IsValid || got.RiskLevel != domain.RiskCritical {
					t.Fatalf("ValidateFilename(%q) = %+v, want critical", name, got)
				}
			}
		}
	}
}

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name      string
		file      *domain.SourceFile
		wantValid bool
		wantRisk  domain.RiskLevel
		wantMsg   string
	}{
		{
			name:      "valid pdf",
			file:      domain.NewSourceFile("report.pdf", "application/pdf", 2*1024*1024, nil),
			wantValid: true,
			wantRisk:  domain.RiskLow,
		},
		{
			name:     "nil file",
			file:     nil,
			wantRisk: domain.RiskHigh,
			wantMsg:  "No file provided",
		},
		{
			name:     "empty name short-circuits before size",
			file:     domain.NewSourceFile("", "", 0, nil),
			wantRisk: domain.RiskHigh,
			wantMsg:  "Filename cannot be empty",
		},
		{
			name:     "too large",
			file:     domain.NewSourceFile("big.pdf", "application/pdf", MaxFileSize+1, nil),
			wantRisk: domain.RiskMedium,
			wantMsg:  "File too large",
		},
		{
			name:      "exactly max size",
			file:      domain.NewSourceFile("big.pdf", "application/pdf", MaxFileSize, nil),
			wantValid: true,
			wantRisk:  domain.RiskLow,
		},
		{
			name:     "unsupported extension",
			file:     domain.NewSourceFile("tool.exe", "", 10, nil),
			wantRisk: domain.RiskMedium,
			wantMsg:  "File type not supported",
		},
		{
			name:     "no extension",
			file:     domain.NewSourceFile("README", "", 10, nil),
			wantRisk: domain.RiskMedium,
		},
		{
			name:     "mime mismatch",
			file:     domain.NewSourceFile("report.pdf", "application/x-msdownload", 10, nil),
			wantRisk: domain.RiskHigh,
			wantMsg:  "Invalid file type detected",
		},
		{
			name:      "mime with parameters",
			file:      domain.NewSourceFile("notes.txt", "text/plain; charset=utf-8", 10, nil),
			wantValid: true,
			wantRisk:  domain.RiskLow,
		},
		{
			name:      "markdown declared as text/plain",
			file:      domain.NewSourceFile("notes.md", "text/plain", 10, nil),
			wantValid: true,
			wantRisk:  domain.RiskLow,
		},
		{
			name:      "uppercase extension",
			file:      domain.NewSourceFile("PAGE.HTM", "text/html", 10, nil),
			wantValid: true,
			wantRisk:  domain.RiskLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateFile(tt.file)
			if got.IsValid != tt.wantValid {
				t.Fatalf("IsValid = %v, want %v (%s)", got.IsValid, tt.wantValid, got.Message)
			}
			if got.RiskLevel != tt.wantRisk {
				t.Fatalf("RiskLevel = %s, want %s", got.RiskLevel, tt.wantRisk)
			}
			if tt.wantMsg != "" && !strings.Contains(got.Message, tt.wantMsg) {
				t.Fatalf("Message = %q, want it to contain %q", got.Message, tt.wantMsg)
			}
		})
	}
}

func TestValidateFileOversizedAlwaysMedium(t *testing.T) {
	for _, size := range []int64{MaxFileSize + 1, MaxFileSize * 2, 1 << 40} {
		for _, name := range []string{"a.pdf", "b.docx", "c.md", "d.unknown"} {
			got := ValidateFile(domain.NewSourceFile(name, "", size, nil))
			if got.IsValid || got.RiskLevel != domain.RiskMedium {
				t.Fatalf("ValidateFile(%s, %d) = %+v, want medium", name, size, got)
			}
			if got.Details["maxSize"] != int64(MaxFileSize) {
				t.Fatalf("expected maxSize detail, got %+v", got.Details)
			}
		}
	}
}

func TestValidateFormat(t *testing.T) {
	for in, want := range map[string]domain.Format{
		"pdf":      domain.FormatPDF,
		" DOCX ":   domain.FormatDOCX,
		"markdown": domain.FormatMarkdown,
		"md":       domain.FormatMarkdown,
		"html":     domain.FormatHTML,
		"Txt":      domain.FormatTXT,
	} {
		got, err := ValidateFormat(in)
		if err != nil {
			t.Fatalf("ValidateFormat(%q) error = %v", in, err)
		}
		if got != want {
			t.Fatalf("ValidateFormat(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := ValidateFormat("rtf"); !domain.IsKind(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}

func TestFormatFileSize(t *testing.T) {
	if got := FormatFileSize(MaxFileSize); got != "16.0 MB" {
		t.Fatalf("FormatFileSize() = %q", got)
	}
	if got := FormatFileSize(512); got != "512.0 B" {
		t.Fatalf("FormatFileSize() = %q", got)
	}
}
