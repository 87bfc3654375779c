package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/document-converter/internal/core/domain"
)

// PDFReader extracts the embedded text layer. Scanned, image-only PDFs yield
// an empty document.
type PDFReader struct{}

func (PDFReader) Format() domain.Format { return domain.FormatPDF }

func (PDFReader) Read(ctx context.Context, data []byte) (doc *domain.Document, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = domain.WrapError(domain.ErrInvalidInput, "read pdf", fmt.Errorf("malformed pdf: %v", r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read pdf", err)
	}

	fonts := make(map[string]*pdf.Font)
	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := p.Font(name)
				fonts[name] = &f
			}
		}
		text, err := p.GetPlainText(fonts)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "read pdf", fmt.Errorf("page %d: %w", i, err))
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			pages = append(pages, trimmed)
		}
	}

	blocks := DetectBlocks(strings.Join(pages, "\n\n"))
	title := pdfInfoString(r, "Title")
	if title == "" {
		title = firstHeading(blocks)
	}
	return &domain.Document{
		Title:  title,
		Author: pdfInfoString(r, "Author"),
		Source: domain.FormatPDF,
		Blocks: blocks,
	}, nil
}

func pdfInfoString(r *pdf.Reader, key string) string {
	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return ""
	}
	return strings.TrimSpace(info.Key(key).Text())
}

const (
	pdfFont       = "Helvetica"
	pdfBodySize   = 11
	pdfLineHeight = 5.5
)

var pdfHeadingSizes = map[int]float64{1: 18, 2: 15, 3: 13, 4: 12, 5: 11, 6: 11}

// PDFWriter lays blocks out on A4 pages with the core Helvetica font. Text is
// translated to cp1252; characters outside it are not representable.
type PDFWriter struct{}

func (PDFWriter) Format() domain.Format { return domain.FormatPDF }

func (PDFWriter) Write(_ context.Context, doc *domain.Document, w io.Writer) error {
	p := fpdf.New("P", "mm", "A4", "")
	p.SetMargins(20, 20, 20)
	p.SetAutoPageBreak(true, 20)
	if doc.Title != "" {
		p.SetTitle(doc.Title, true)
	}
	if doc.Author != "" {
		p.SetAuthor(doc.Author, true)
	}
	p.SetCreator("document-converter", true)
	tr := p.UnicodeTranslatorFromDescriptor("")

	p.AddPage()
	ordinal := 0
	for _, block := range doc.Blocks {
		if block.Kind != domain.BlockListItem {
			ordinal = 0
		}
		switch block.Kind {
		case domain.BlockHeading:
			size, ok := pdfHeadingSizes[block.Level]
			if !ok {
				size = pdfHeadingSizes[1]
			}
			p.SetFont(pdfFont, "B", size)
			p.Ln(2)
			p.MultiCell(0, size*0.5, tr(block.Text), "", "L", false)
			p.Ln(2)
		case domain.BlockListItem:
			p.SetFont(pdfFont, "", pdfBodySize)
			marker := "- "
			if block.Level == 1 {
				ordinal++
				marker = fmt.Sprintf("%d. ", ordinal)
			}
			p.SetX(p.GetX() + 5)
			p.MultiCell(0, pdfLineHeight, tr(marker+block.Text), "", "L", false)
		case domain.BlockQuote:
			p.SetFont(pdfFont, "I", pdfBodySize)
			p.SetX(p.GetX() + 8)
			p.MultiCell(0, pdfLineHeight, tr(block.Text), "", "L", false)
			p.Ln(2)
		default:
			p.SetFont(pdfFont, "", pdfBodySize)
			p.MultiCell(0, pdfLineHeight, tr(block.Text), "", "L", false)
			p.Ln(3)
		}
	}

	if err := p.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return p.Output(w)
}
