// Package validation checks and sanitizes candidate files before they are
// submitted for conversion. Every function is pure and never panics; failures
// are reported through domain.FileValidationResult rather than errors.
package validation

import (
	"fmt"
	"mime"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/document-converter/internal/core/domain"
)

const (
	MaxFileSize       = 16 * 1024 * 1024
	MaxFilenameLength = 255
)

var reservedChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// ValidateFilename rejects empty, traversal-prone, reserved-character and
// overlong names. Traversal markers are checked first so that "/" and "\"
// always classify as critical.
func ValidateFilename(name string) domain.FileValidationResult {
	if strings.TrimSpace(name) == "" {
		return invalid("Filename cannot be empty", domain.RiskHigh, nil)
	}

	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return invalid("Path traversal attempt detected in filename", domain.RiskCritical, map[string]any{
			"filename": name,
		})
	}

	if matches := reservedChars.FindAllString(name, -1); len(matches) > 0 {
		return invalid("Filename contains invalid characters", domain.RiskHigh, map[string]any{
			"filename":       name,
			"dangerousChars": matches,
		})
	}

	// Counted in characters; SanitizeFilename separately caps the stored name at 255 bytes.
	if length := utf8.RuneCountInString(name); length > MaxFilenameLength {
		return invalid(fmt.Sprintf("Filename too long (maximum %d characters)", MaxFilenameLength), domain.RiskMedium, map[string]any{
			"length":    length,
			"maxLength": MaxFilenameLength,
		})
	}

	return domain.FileValidationResult{
		IsValid:   true,
		Message:   "Filename validation passed",
		RiskLevel: domain.RiskLow,
	}
}

// ValidateFile runs the filename check and then the size, extension and
// declared MIME type checks against the default 16 MiB limit.
func ValidateFile(file *domain.SourceFile) domain.FileValidationResult {
	return ValidateFileWithLimit(file, MaxFileSize)
}

func ValidateFileWithLimit(file *domain.SourceFile, maxSize int64) domain.FileValidationResult {
	if file == nil {
		return invalid("No file provided", domain.RiskHigh, nil)
	}
	if maxSize <= 0 {
		maxSize = MaxFileSize
	}

	if res := ValidateFilename(file.Name); !res.IsValid {
		return res
	}

	if file.Size > maxSize {
		return invalid(fmt.Sprintf("File too large. Maximum size is %s", FormatFileSize(maxSize)), domain.RiskMedium, map[string]any{
			"actualSize": file.Size,
			"maxSize":    maxSize,
		})
	}

	ext := domain.FileExtension(file.Name)
	source, ok := domain.FormatForExtension(ext)
	if !ok {
		allowed := domain.AllowedExtensions()
		return invalid(fmt.Sprintf("File type not supported. Allowed types: %s", strings.Join(allowed, ", ")), domain.RiskMedium, map[string]any{
			"extension":         ext,
			"allowedExtensions": allowed,
		})
	}

	if declared := normalizeMIME(file.MIMEType); declared != "" && !mimeAllowed(source, declared) {
		return invalid("Invalid file type detected", domain.RiskHigh, map[string]any{
			"mimeType":         declared,
			"allowedMimeTypes": acceptedMIMETypes(source),
		})
	}

	return domain.FileValidationResult{
		IsValid:   true,
		Message:   "File validation passed",
		RiskLevel: domain.RiskLow,
	}
}

// ValidateFormat resolves a target format name.
func ValidateFormat(s string) (domain.Format, error) {
	f, ok := domain.ParseFormat(s)
	if !ok {
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "validate format", fmt.Errorf("%q", s))
	}
	return f, nil
}

// FormatFileSize renders a byte count as "16.0 MB".
func FormatFileSize(bytes int64) string {
	units := []string{"B", "KB", "MB", "GB"}
	size := float64(bytes)
	unit := 0
	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", size, units[unit])
}

func invalid(message string, risk domain.RiskLevel, details map[string]any) domain.FileValidationResult {
	return domain.FileValidationResult{
		IsValid:   false,
		Message:   message,
		RiskLevel: risk,
		Details:   details,
	}
}

func normalizeMIME(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(raw)
	}
	return mediaType
}

// Markdown files are commonly declared as text/plain by browsers and OSes.
func acceptedMIMETypes(f domain.Format) []string {
	types := f.MIMETypes()
	if f == domain.FormatMarkdown {
		types = append(types, "text/plain")
	}
	return types
}

func mimeAllowed(f domain.Format, declared string) bool {
	for _, candidate := range acceptedMIMETypes(f) {
		if candidate == declared {
			return true
		}
	}
	return false
}
