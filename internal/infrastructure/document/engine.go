// Package document converts between the supported document formats through a
// format-neutral domain.Document: a reader parses the source into blocks and a
// writer renders those blocks into the target format.
package document

import (
	"bytes"
	"context"
	"fmt"

	"github.com/kirillkom/document-converter/internal/core/domain"
	"github.com/kirillkom/document-converter/internal/core/ports"
)

type Engine struct {
	readers map[domain.Format]ports.DocumentReader
	writers map[domain.Format]ports.DocumentWriter
}

func NewEngine(readers []ports.DocumentReader, writers []ports.DocumentWriter) *Engine {
	e := &Engine{
		readers: make(map[domain.Format]ports.DocumentReader, len(readers)),
		writers: make(map[domain.Format]ports.DocumentWriter, len(writers)),
	}
	for _, r := range readers {
		e.readers[r.Format()] = r
	}
	for _, w := range writers {
		e.writers[w.Format()] = w
	}
	return e
}

// NewDefaultEngine registers a reader and a writer for every supported format.
func NewDefaultEngine() *Engine {
	return NewEngine(
		[]ports.DocumentReader{
			TextReader{},
			MarkdownReader{},
			HTMLReader{},
			PDFReader{},
			DOCXReader{},
		},
		[]ports.DocumentWriter{
			TextWriter{},
			MarkdownWriter{},
			HTMLWriter{},
			PDFWriter{},
			DOCXWriter{},
		},
	)
}

func (e *Engine) Convert(ctx context.Context, source domain.Format, data []byte, target domain.Format) ([]byte, error) {
	reader, ok := e.readers[source]
	if !ok {
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "convert", fmt.Errorf("no reader for %q", source))
	}
	writer, ok := e.writers[target]
	if !ok {
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "convert", fmt.Errorf("no writer for %q", target))
	}

	doc, err := reader.Read(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc.Source = source

	var out bytes.Buffer
	if err := writer.Write(ctx, doc, &out); err != nil {
		return nil, fmt.Errorf("write %s: %w", target, err)
	}
	return out.Bytes(), nil
}

// Conversions lists, for every readable format, the formats it can be written as.
func (e *Engine) Conversions() map[domain.Format][]domain.Format {
	out := make(map[domain.Format][]domain.Format, len(e.readers))
	for _, source := range domain.SupportedFormats {
		if _, ok := e.readers[source]; !ok {
			continue
		}
		targets := make([]domain.Format, 0, len(e.writers))
		for _, target := range domain.SupportedFormats {
			if _, ok := e.writers[target]; ok {
				targets = append(targets, target)
			}
		}
		out[source] = targets
	}
	return out
}
