package domain

import (
	"path/filepath"
	"strings"
)

type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatTXT      Format = "txt"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "md"
)

// SupportedFormats lists every target format in display order.
var SupportedFormats = []Format{FormatPDF, FormatDOCX, FormatTXT, FormatHTML, FormatMarkdown}

var formatExtensions = map[Format][]string{
	FormatPDF:      {".pdf"},
	FormatDOCX:     {".docx", ".doc"},
	FormatTXT:      {".txt"},
	FormatHTML:     {".html", ".htm"},
	FormatMarkdown: {".md", ".markdown"},
}

var formatMIMETypes = map[Format][]string{
	FormatPDF: {"application/pdf"},
	FormatDOCX: {
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/msword",
	},
	FormatTXT:      {"text/plain"},
	FormatHTML:     {"text/html"},
	FormatMarkdown: {"text/markdown", "text/x-markdown"},
}

var defaultTargets = map[string]Format{
	".pdf":      FormatDOCX,
	".docx":     FormatPDF,
	".doc":      FormatPDF,
	".txt":      FormatPDF,
	".html":     FormatPDF,
	".htm":      FormatPDF,
	".md":       FormatHTML,
	".markdown": FormatHTML,
}

// ParseFormat normalizes a user-supplied format name. "markdown" is accepted
// as an alias of md.
func ParseFormat(s string) (Format, bool) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "markdown" {
		return FormatMarkdown, true
	}
	for _, f := range SupportedFormats {
		if string(f) == normalized {
			return f, true
		}
	}
	return "", false
}

func (f Format) String() string {
	return string(f)
}

// Extension is the canonical file extension written for this format.
func (f Format) Extension() string {
	exts := formatExtensions[f]
	if len(exts) == 0 {
		return ""
	}
	return exts[0]
}

func (f Format) ContentType() string {
	switch f {
	case FormatTXT, FormatHTML, FormatMarkdown:
		return formatMIMETypes[f][0] + "; charset=utf-8"
	}
	types := formatMIMETypes[f]
	if len(types) == 0 {
		return "application/octet-stream"
	}
	return types[0]
}

// MIMETypes returns the declared MIME types accepted for the format.
func (f Format) MIMETypes() []string {
	return append([]string(nil), formatMIMETypes[f]...)
}

// FormatForExtension maps a file extension (with or without the leading dot)
// to the source format it is read as.
func FormatForExtension(ext string) (Format, bool) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for f, exts := range formatExtensions {
		for _, candidate := range exts {
			if candidate == ext {
				return f, true
			}
		}
	}
	return "", false
}

// AllowedExtensions lists every accepted source extension.
func AllowedExtensions() []string {
	out := make([]string, 0, 8)
	for _, f := range SupportedFormats {
		out = append(out, formatExtensions[f]...)
	}
	return out
}

// AllowedMIMETypes lists every accepted declared MIME type.
func AllowedMIMETypes() []string {
	out := make([]string, 0, 8)
	for _, f := range SupportedFormats {
		out = append(out, formatMIMETypes[f]...)
	}
	return out
}

// DefaultTarget suggests a target format for a freshly selected file.
func DefaultTarget(filename string) (Format, bool) {
	f, ok := defaultTargets[strings.ToLower(filepath.Ext(filename))]
	return f, ok
}

// FileExtension returns the lowercased extension including the dot, or "".
func FileExtension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx == -1 {
		return ""
	}
	return strings.ToLower(filename[idx:])
}
