package validation

import (
	"bytes"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/kirillkom/document-converter/internal/core/domain"
)

// SniffLength is how many leading bytes InspectContent needs.
const SniffLength = 1024

var dangerousSignatures = []struct {
	name  string
	magic []byte
}{
	{"pe-executable", []byte{0x4d, 0x5a}},
	{"elf-executable", []byte{0x7f, 0x45, 0x4c, 0x46}},
	{"java-class", []byte{0xca, 0xfe, 0xba, 0xbe}},
	{"mach-o", []byte{0xfe, 0xed, 0xfa}},
}

var (
	pdfMagic = []byte("%PDF")
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xd0, 0xcf, 0x11, 0xe0}
)

var extensionSizeLimits = map[string]int64{
	".pdf":      50 * 1024 * 1024,
	".docx":     25 * 1024 * 1024,
	".doc":      25 * 1024 * 1024,
	".txt":      10 * 1024 * 1024,
	".html":     10 * 1024 * 1024,
	".htm":      10 * 1024 * 1024,
	".md":       5 * 1024 * 1024,
	".markdown": 5 * 1024 * 1024,
}

// SizeLimitFor returns the per-extension size limit, never above ceiling.
func SizeLimitFor(ext string, ceiling int64) int64 {
	limit, ok := extensionSizeLimits[strings.ToLower(ext)]
	if !ok {
		limit = MaxFileSize
	}
	if ceiling > 0 && limit > ceiling {
		return ceiling
	}
	return limit
}

// InspectContent checks the leading bytes of an upload against executable
// signatures and against what the extension promises.
func InspectContent(header []byte, ext string) domain.FileValidationResult {
	for _, sig := range dangerousSignatures {
		if bytes.HasPrefix(header, sig.magic) {
			return invalid("Dangerous file signature detected", domain.RiskCritical, map[string]any{
				"signature": hex.EncodeToString(sig.magic),
				"kind":      sig.name,
			})
		}
	}

	detected := http.DetectContentType(header)
	mismatch := func() domain.FileValidationResult {
		return invalid("File content does not match its extension", domain.RiskHigh, map[string]any{
			"extension":    ext,
			"detectedType": detected,
		})
	}

	switch strings.ToLower(ext) {
	case ".pdf":
		if !bytes.HasPrefix(header, pdfMagic) {
			return mismatch()
		}
	case ".docx":
		if !bytes.HasPrefix(header, zipMagic) {
			return mismatch()
		}
	case ".doc":
		if !bytes.HasPrefix(header, oleMagic) && !bytes.HasPrefix(header, zipMagic) {
			return mismatch()
		}
	case ".txt", ".md", ".markdown", ".html", ".htm":
		if len(header) > 0 && !strings.HasPrefix(detected, "text/") {
			return mismatch()
		}
	default:
		return invalid("File type not supported", domain.RiskMedium, map[string]any{
			"extension": ext,
		})
	}

	return domain.FileValidationResult{
		IsValid:   true,
		Message:   "File content validation passed",
		RiskLevel: domain.RiskLow,
	}
}
