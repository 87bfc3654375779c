package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const fallbackFilename = "document.txt"

var textControlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

// SanitizeFilename never fails and is idempotent: reserved characters and ".."
// become "_", the name is cut to MaxFilenameLength bytes keeping its extension,
// and an empty result falls back to document.txt.
func SanitizeFilename(name string) string {
	s := strings.ToValidUTF8(name, "_")
	s = reservedChars.ReplaceAllString(s, "_")
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", "_")
	}

	if len(s) > MaxFilenameLength {
		s = truncatePreservingExtension(s, MaxFilenameLength)
	}

	if strings.TrimSpace(s) == "" {
		return fallbackFilename
	}
	return s
}

func truncatePreservingExtension(s string, limit int) string {
	dot := strings.LastIndex(s, ".")
	if dot <= 0 || len(s)-dot >= limit {
		return strings.TrimRight(cutAtRuneBoundary(s, limit), ".")
	}
	ext := s[dot:]
	stem := cutAtRuneBoundary(s[:dot], limit-len(ext))
	// a stem ending in "." would form ".." with the extension
	return strings.TrimRight(stem, ".") + ext
}

func cutAtRuneBoundary(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// SanitizeText strips control characters other than tab and newlines,
// truncates to maxLength runes and trims surrounding whitespace.
func SanitizeText(input string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = 1000
	}
	s := textControlChars.ReplaceAllString(input, "")
	if utf8.RuneCountInString(s) > maxLength {
		s = string([]rune(s)[:maxLength])
	}
	return strings.TrimSpace(s)
}
