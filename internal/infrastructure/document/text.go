package document

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/document-converter/internal/core/domain"
)

type TextReader struct{}

func (TextReader) Format() domain.Format { return domain.FormatTXT }

func (TextReader) Read(_ context.Context, data []byte) (*domain.Document, error) {
	if !utf8.Valid(data) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read txt", fmt.Errorf("content is not valid UTF-8 text"))
	}
	text := strings.TrimPrefix(string(data), "\ufeff")
	blocks := DetectBlocks(text)
	return &domain.Document{
		Title:  firstHeading(blocks),
		Source: domain.FormatTXT,
		Blocks: blocks,
	}, nil
}

type TextWriter struct{}

func (TextWriter) Format() domain.Format { return domain.FormatTXT }

func (TextWriter) Write(_ context.Context, doc *domain.Document, w io.Writer) error {
	bw := bufio.NewWriter(w)
	ordinal := 0
	for i, block := range doc.Blocks {
		if i > 0 && !(block.Kind == domain.BlockListItem && doc.Blocks[i-1].Kind == domain.BlockListItem) {
			bw.WriteString("\n")
		}
		if block.Kind != domain.BlockListItem {
			ordinal = 0
		}

		switch block.Kind {
		case domain.BlockHeading:
			if block.Level <= 1 {
				bw.WriteString(strings.ToUpper(block.Text))
			} else {
				bw.WriteString(block.Text)
			}
		case domain.BlockListItem:
			if block.Level == 1 {
				ordinal++
				fmt.Fprintf(bw, "%d. %s", ordinal, block.Text)
			} else {
				bw.WriteString("- " + block.Text)
			}
		case domain.BlockQuote:
			bw.WriteString("> " + block.Text)
		default:
			bw.WriteString(block.Text)
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}
