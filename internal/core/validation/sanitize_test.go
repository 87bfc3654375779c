package validation

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "report.pdf", want: "report.pdf"},
		{in: "../../etc/passwd", want: "____etc_passwd"},
		{in: `a\b/c.txt`, want: "a_b_c.txt"},
		{in: "what?<>.md", want: "what___.md"},
		{in: "...hidden", want: "_.hidden"},
		{in: "tab\there.txt", want: "tab_here.txt"},
		{in: "", want: "document.txt"},
		{in: "   ", want: "document.txt"},
	}

	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Fatalf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFilenameTruncatesPreservingExtension(t *testing.T) {
	in := strings.Repeat("a", 300) + ".docx"
	got := SanitizeFilename(in)
	if len(got) != MaxFilenameLength {
		t.Fatalf("expected %d bytes, got %d", MaxFilenameLength, len(got))
	}
	if !strings.HasSuffix(got, ".docx") {
		t.Fatalf("expected extension preserved, got %q", got[len(got)-10:])
	}

	multibyte := strings.Repeat("é", 200) + ".txt"
	got = SanitizeFilename(multibyte)
	if len(got) > MaxFilenameLength {
		t.Fatalf("expected at most %d bytes, got %d", MaxFilenameLength, len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a rune: %q", got)
	}
	if !strings.HasSuffix(got, ".txt") {
		t.Fatalf("expected extension preserved")
	}
}

func TestSanitizeFilenameIdempotent(t *testing.T) {
	inputs := []string{
		"",
		" ",
		"report.pdf",
		"../../x",
		"....",
		".....txt",
		"a.b.c",
		"\x00\x01\x02",
		"\xff\xfe.txt",
		strings.Repeat("a", 250) + "." + strings.Repeat("b", 10),
		strings.Repeat("x.", 200) + "md",
		strings.Repeat("é", 300),
		"." + strings.Repeat("e", 400),
		strings.Repeat("a", 240) + "." + strings.Repeat("b", 5) + "." + strings.Repeat("c", 20),
	}
	for _, in := range inputs {
		once := SanitizeFilename(in)
		twice := SanitizeFilename(once)
		if once != twice {
			t.Fatalf("not idempotent for %q: %q != %q", in, once, twice)
		}
		if once == "" {
			t.Fatalf("empty result for %q", in)
		}
		if strings.Contains(once, "..") {
			t.Fatalf("result for %q still contains '..': %q", in, once)
		}
		if len(once) > MaxFilenameLength {
			t.Fatalf("result for %q exceeds %d bytes", in, MaxFilenameLength)
		}
	}
}

func TestSanitizeFilenameOutputPassesValidation(t *testing.T) {
	for _, in := range []string{"../a.pdf", "a/b\\c.txt", "<x>.md", strings.Repeat("z", 400) + ".html"} {
		got := SanitizeFilename(in)
		if res := ValidateFilename(got); !res.IsValid {
			t.Fatalf("sanitized %q -> %q still invalid: %s", in, got, res.Message)
		}
	}
}

func TestSanitizeText(t *testing.T) {
	if got := SanitizeText("  hello\x00\x07 world\n ", 100); got != "hello world" {
		t.Fatalf("SanitizeText() = %q", got)
	}
	if got := SanitizeText("line1\tline2\nline3", 100); got != "line1\tline2\nline3" {
		t.Fatalf("SanitizeText() dropped allowed whitespace: %q", got)
	}
	if got := SanitizeText(strings.Repeat("ñ", 20), 5); got != "ñññññ" {
		t.Fatalf("SanitizeText() = %q", got)
	}
}
