package document

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/document-converter/internal/core/domain"
)

const sampleMarkdown = `---
title: Quarterly Report
author: Finance Team
---

# Quarterly Report

Revenue grew **strongly** this quarter, see [the dashboard](https://example.com).

## Highlights

- New customers
- Lower churn

1. Plan
2. Execute

> Numbers are preliminary.
`

func TestMarkdownReaderParsesFrontMatterAndBlocks(t *testing.T) {
	doc, err := MarkdownReader{}.Read(context.Background(), []byte(sampleMarkdown))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if doc.Title != "Quarterly Report" || doc.Author != "Finance Team" {
		t.Fatalf("unexpected metadata: title=%q author=%q", doc.Title, doc.Author)
	}

	want := []domain.Block{
		{Kind: domain.BlockHeading, Level: 1, Text: "Quarterly Report"},
		{Kind: domain.BlockParagraph, Text: "Revenue grew strongly this quarter, see the dashboard."},
		{Kind: domain.BlockHeading, Level: 2, Text: "Highlights"},
		{Kind: domain.BlockListItem, Text: "New customers"},
		{Kind: domain.BlockListItem, Text: "Lower churn"},
		{Kind: domain.BlockListItem, Level: 1, Text: "Plan"},
		{Kind: domain.BlockListItem, Level: 1, Text: "Execute"},
		{Kind: domain.BlockQuote, Text: "Numbers are preliminary."},
	}
	if len(doc.Blocks) != len(want) {
		t.Fatalf("expected %d blocks, got %d: %+v", len(want), len(doc.Blocks), doc.Blocks)
	}
	for i := range want {
		if doc.Blocks[i] != want[i] {
			t.Fatalf("block %d = %+v, want %+v", i, doc.Blocks[i], want[i])
		}
	}
}

func TestMarkdownReaderRejectsBadFrontMatter(t *testing.T) {
	_, err := MarkdownReader{}.Read(context.Background(), []byte("---\ntitle: [unclosed\n---\nbody"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestHTMLReader(t *testing.T) {
	page := `<!DOCTYPE html><html><head><title>Guide</title><meta name="author" content="Ana"><style>p{}</style></head>
<body><h1>Getting started</h1><p>Install the <b>tool</b> first.</p>
<div>Loose text in a div</div>
<ul><li>one</li><li>two</li></ul><ol><li>first</li></ol>
<blockquote>Be careful</blockquote><script>alert(1)</script></body></html>`

	doc, err := HTMLReader{}.Read(context.Background(), []byte(page))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if doc.Title != "Guide" || doc.Author != "Ana" {
		t.Fatalf("unexpected metadata: %q %q", doc.Title, doc.Author)
	}
	want := []domain.Block{
		{Kind: domain.BlockHeading, Level: 1, Text: "Getting started"},
		{Kind: domain.BlockParagraph, Text: "Install the tool first."},
		{Kind: domain.BlockParagraph, Text: "Loose text in a div"},
		{Kind: domain.BlockListItem, Text: "one"},
		{Kind: domain.BlockListItem, Text: "two"},
		{Kind: domain.BlockListItem, Level: 1, Text: "first"},
		{Kind: domain.BlockQuote, Text: "Be careful"},
	}
	if len(doc.Blocks) != len(want) {
		t.Fatalf("expected %d blocks, got %d: %+v", len(want), len(doc.Blocks), doc.Blocks)
	}
	for i := range want {
		if doc.Blocks[i] != want[i] {
			t.Fatalf("block %d = %+v, want %+v", i, doc.Blocks[i], want[i])
		}
	}
}

func TestHTMLWriterEscapesAndGroupsLists(t *testing.T) {
	doc := &domain.Document{
		Title: "<Report>",
		Blocks: []domain.Block{
			{Kind: domain.BlockHeading, Level: 2, Text: "A & B"},
			{Kind: domain.BlockListItem, Text: "x"},
			{Kind: domain.BlockListItem, Text: "y"},
			{Kind: domain.BlockParagraph, Text: "<script>alert(1)</script>"},
		},
	}
	var out bytes.Buffer
	if err := (HTMLWriter{}).Write(context.Background(), doc, &out); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	html := out.String()
	if !strings.Contains(html, "<title>&lt;Report&gt;</title>") {
		t.Fatalf("title not escaped: %s", html)
	}
	if !strings.Contains(html, "<h2>A &amp; B</h2>") {
		t.Fatalf("heading not rendered: %s", html)
	}
	if strings.Count(html, "<ul>") != 1 || strings.Count(html, "<li>") != 2 {
		t.Fatalf("list items not grouped: %s", html)
	}
	if strings.Contains(html, "<script>") {
		t.Fatalf("paragraph not escaped: %s", html)
	}
}

func TestDOCXRoundTrip(t *testing.T) {
	in := &domain.Document{
		Title:  "Plan & Budget",
		Author: "Ops",
		Blocks: []domain.Block{
			{Kind: domain.BlockHeading, Level: 1, Text: "Plan & Budget"},
			{Kind: domain.BlockParagraph, Text: "Spend <less> than last year."},
			{Kind: domain.BlockListItem, Text: "hire"},
			{Kind: domain.BlockListItem, Level: 1, Text: "ship"},
			{Kind: domain.BlockQuote, Text: "Approved"},
		},
	}

	var buf bytes.Buffer
	if err := (DOCXWriter{}).Write(context.Background(), in, &buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("PK\x03\x04")) {
		t.Fatalf("expected zip container")
	}

	out, err := DOCXReader{}.Read(context.Background(), buf.Bytes())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if out.Title != in.Title || out.Author != in.Author {
		t.Fatalf("metadata mismatch: %q %q", out.Title, out.Author)
	}
	if len(out.Blocks) != len(in.Blocks) {
		t.Fatalf("expected %d blocks, got %+v", len(in.Blocks), out.Blocks)
	}
	for i := range in.Blocks {
		if out.Blocks[i] != in.Blocks[i] {
			t.Fatalf("block %d = %+v, want %+v", i, out.Blocks[i], in.Blocks[i])
		}
	}
}

func TestDOCXReaderRejectsLegacyAndBrokenFiles(t *testing.T) {
	_, err := DOCXReader{}.Read(context.Background(), append([]byte{}, oleSignature...))
	if !domain.IsKind(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format for OLE, got %v", err)
	}

	_, err = DOCXReader{}.Read(context.Background(), []byte("not a zip"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, _ = zw.Create("other.xml")
	_ = zw.Close()
	_, err = DOCXReader{}.Read(context.Background(), buf.Bytes())
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for missing body, got %v", err)
	}
}

func TestPDFWriterProducesReadablePDF(t *testing.T) {
	doc := &domain.Document{
		Title: "Quarterly",
		Blocks: []domain.Block{
			{Kind: domain.BlockHeading, Level: 1, Text: "Quarterly"},
			{Kind: domain.BlockParagraph, Text: "Revenue grew"},
			{Kind: domain.BlockListItem, Level: 1, Text: "Expand"},
		},
	}
	var buf bytes.Buffer
	if err := (PDFWriter{}).Write(context.Background(), doc, &buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected pdf header")
	}

	out, err := PDFReader{}.Read(context.Background(), buf.Bytes())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !strings.Contains(out.PlainText(), "Revenue") {
		t.Fatalf("expected extracted text, got %q", out.PlainText())
	}
}

func TestPDFReaderRejectsGarbage(t *testing.T) {
	_, err := PDFReader{}.Read(context.Background(), []byte("%PDF-1.4 but nothing else"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestEngineConvertsBetweenAllFormats(t *testing.T) {
	engine := NewDefaultEngine()
	ctx := context.Background()

	sources := map[domain.Format][]byte{
		domain.FormatMarkdown: []byte(sampleMarkdown),
		domain.FormatTXT:      []byte("TITLE\n\nBody text here.\n\n- a\n- b\n"),
		domain.FormatHTML:     []byte("<html><body><h1>Title</h1><p>Body text</p></body></html>"),
	}
	for source, data := range sources {
		for _, target := range domain.SupportedFormats {
			out, err := engine.Convert(ctx, source, data, target)
			if err != nil {
				t.Fatalf("convert %s -> %s: %v", source, target, err)
			}
			if len(out) == 0 {
				t.Fatalf("convert %s -> %s produced no output", source, target)
			}
		}
	}
}

func TestEngineMarkdownToText(t *testing.T) {
	out, err := NewDefaultEngine().Convert(context.Background(), domain.FormatMarkdown, []byte(sampleMarkdown), domain.FormatTXT)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	want := "QUARTERLY REPORT\n\nRevenue grew strongly this quarter, see the dashboard.\n\nHighlights\n\n- New customers\n- Lower churn\n1. Plan\n2. Execute\n\n> Numbers are preliminary.\n"
	if string(out) != want {
		t.Fatalf("unexpected text output:\n%q\nwant\n%q", out, want)
	}
}

func TestEngineUnknownFormats(t *testing.T) {
	engine := NewEngine(nil, nil)
	_, err := engine.Convert(context.Background(), domain.FormatTXT, []byte("x"), domain.FormatPDF)
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}

	if got := NewDefaultEngine().Conversions(); len(got) != len(domain.SupportedFormats) || len(got[domain.FormatPDF]) != len(domain.SupportedFormats) {
		t.Fatalf("unexpected conversions: %v", got)
	}
}
