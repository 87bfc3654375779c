package document

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/document-converter/internal/core/domain"
)

const (
	docxBodyPart = "word/document.xml"
	docxCorePart = "docProps/core.xml"
)

var oleSignature = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}

// DOCXReader reads paragraphs from WordprocessingML packages. Legacy binary
// .doc files are rejected.
type DOCXReader struct{}

func (DOCXReader) Format() domain.Format { return domain.FormatDOCX }

func (DOCXReader) Read(ctx context.Context, data []byte) (*domain.Document, error) {
	if bytes.HasPrefix(data, oleSignature) {
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "read docx", errors.New("legacy binary .doc files are not supported"))
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read docx", err)
	}

	var body, core *zip.File
	for _, f := range zr.File {
		switch f.Name {
		case docxBodyPart:
			body = f
		case docxCorePart:
			core = f
		}
	}
	if body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read docx", fmt.Errorf("missing %s", docxBodyPart))
	}

	blocks, err := readDOCXBody(ctx, body)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read docx", err)
	}

	doc := &domain.Document{Source: domain.FormatDOCX, Blocks: blocks}
	if core != nil {
		if props, err := readDOCXCore(core); err == nil {
			doc.Title = strings.TrimSpace(props.Title)
			doc.Author = strings.TrimSpace(props.Creator)
		}
	}
	if doc.Title == "" {
		doc.Title = firstHeading(blocks)
	}
	return doc, nil
}

type docxParagraph struct {
	style    string
	numbered bool
	text     strings.Builder
}

func readDOCXBody(ctx context.Context, f *zip.File) ([]domain.Block, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var (
		blocks []domain.Block
		para   *docxParagraph
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.Name, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				para = &docxParagraph{}
			case "pStyle":
				if para != nil {
					para.style = xmlAttr(t, "val")
				}
			case "numPr":
				if para != nil {
					para.numbered = true
				}
			case "t":
				inText = true
			case "tab":
				if para != nil {
					para.text.WriteString("\t")
				}
			case "br", "cr":
				if para != nil {
					para.text.WriteString(" ")
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if para != nil {
					if block, ok := para.block(); ok {
						blocks = append(blocks, block)
					}
					para = nil
				}
			}
		case xml.CharData:
			if inText && para != nil {
				para.text.Write(t)
			}
		}
	}
	return blocks, nil
}

func (p *docxParagraph) block() (domain.Block, bool) {
	text := strings.TrimSpace(p.text.String())
	if text == "" {
		return domain.Block{}, false
	}
	style := strings.ToLower(strings.ReplaceAll(p.style, " ", ""))

	switch {
	case style == "title":
		return domain.Block{Kind: domain.BlockHeading, Level: 1, Text: text}, true
	case strings.HasPrefix(style, "heading"):
		level, err := strconv.Atoi(strings.TrimPrefix(style, "heading"))
		if err != nil || level < 1 {
			level = 1
		}
		if level > 6 {
			level = 6
		}
		return domain.Block{Kind: domain.BlockHeading, Level: level, Text: text}, true
	case strings.Contains(style, "quote"):
		return domain.Block{Kind: domain.BlockQuote, Text: text}, true
	case strings.HasPrefix(style, "listnumber"):
		return domain.Block{Kind: domain.BlockListItem, Level: 1, Text: stripListMarker(text)}, true
	case strings.HasPrefix(style, "list") || p.numbered:
		return domain.Block{Kind: domain.BlockListItem, Text: stripListMarker(text)}, true
	}
	return domain.Block{Kind: domain.BlockParagraph, Text: text}, true
}

func stripListMarker(text string) string {
	text = bulletPrefix.ReplaceAllString(text, "")
	return strings.TrimSpace(orderedPrefix.ReplaceAllString(text, ""))
}

type docxCoreProps struct {
	Title   string `xml:"title"`
	Creator string `xml:"creator"`
}

func readDOCXCore(f *zip.File) (docxCoreProps, error) {
	var props docxCoreProps
	rc, err := f.Open()
	if err != nil {
		return props, err
	}
	defer rc.Close()
	err = xml.NewDecoder(rc).Decode(&props)
	return props, err
}

func xmlAttr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

const (
	docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>
</Types>`

	docxRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>
</Relationships>`

	docxDocumentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

	docxStyles = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:rPr><w:sz w:val="22"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/><w:pPr><w:outlineLvl w:val="0"/></w:pPr><w:rPr><w:b/><w:sz w:val="36"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/><w:basedOn w:val="Normal"/><w:pPr><w:outlineLvl w:val="1"/></w:pPr><w:rPr><w:b/><w:sz w:val="30"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading3"><w:name w:val="heading 3"/><w:basedOn w:val="Normal"/><w:pPr><w:outlineLvl w:val="2"/></w:pPr><w:rPr><w:b/><w:sz w:val="26"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading4"><w:name w:val="heading 4"/><w:basedOn w:val="Normal"/><w:pPr><w:outlineLvl w:val="3"/></w:pPr><w:rPr><w:b/><w:sz w:val="24"/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading5"><w:name w:val="heading 5"/><w:basedOn w:val="Normal"/><w:pPr><w:outlineLvl w:val="4"/></w:pPr><w:rPr><w:b/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Heading6"><w:name w:val="heading 6"/><w:basedOn w:val="Normal"/><w:pPr><w:outlineLvl w:val="5"/></w:pPr><w:rPr><w:b/><w:i/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="Quote"><w:name w:val="Quote"/><w:basedOn w:val="Normal"/><w:pPr><w:ind w:left="720"/></w:pPr><w:rPr><w:i/></w:rPr></w:style>
<w:style w:type="paragraph" w:styleId="ListBullet"><w:name w:val="List Bullet"/><w:basedOn w:val="Normal"/><w:pPr><w:ind w:left="720" w:hanging="360"/></w:pPr></w:style>
<w:style w:type="paragraph" w:styleId="ListNumber"><w:name w:val="List Number"/><w:basedOn w:val="Normal"/><w:pPr><w:ind w:left="720" w:hanging="360"/></w:pPr></w:style>
</w:styles>`
)

// DOCXWriter emits a minimal WordprocessingML package. List markers are
// written into the text so no numbering part is needed.
type DOCXWriter struct{}

func (DOCXWriter) Format() domain.Format { return domain.FormatDOCX }

func (DOCXWriter) Write(_ context.Context, doc *domain.Document, w io.Writer) error {
	zw := zip.NewWriter(w)

	parts := []struct {
		name    string
		content []byte
	}{
		{"[Content_Types].xml", []byte(docxContentTypes)},
		{"_rels/.rels", []byte(docxRootRels)},
		{"word/_rels/document.xml.rels", []byte(docxDocumentRels)},
		{"word/styles.xml", []byte(docxStyles)},
		{docxBodyPart, renderDOCXBody(doc.Blocks)},
		{docxCorePart, renderDOCXCore(doc)},
	}
	for _, part := range parts {
		fw, err := zw.Create(part.name)
		if err != nil {
			return fmt.Errorf("create %s: %w", part.name, err)
		}
		if _, err := fw.Write(part.content); err != nil {
			return fmt.Errorf("write %s: %w", part.name, err)
		}
	}
	return zw.Close()
}

func renderDOCXBody(blocks []domain.Block) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	ordinal := 0
	for _, block := range blocks {
		if block.Kind != domain.BlockListItem {
			ordinal = 0
		}
		style, text := "", block.Text
		switch block.Kind {
		case domain.BlockHeading:
			level := block.Level
			if level < 1 || level > 6 {
				level = 1
			}
			style = "Heading" + strconv.Itoa(level)
		case domain.BlockQuote:
			style = "Quote"
		case domain.BlockListItem:
			if block.Level == 1 {
				ordinal++
				style = "ListNumber"
				text = strconv.Itoa(ordinal) + ". " + text
			} else {
				style = "ListBullet"
				text = "• " + text
			}
		}

		b.WriteString("<w:p>")
		if style != "" {
			b.WriteString(`<w:pPr><w:pStyle w:val="` + style + `"/></w:pPr>`)
		}
		for i, line := range strings.Split(text, "\n") {
			if i > 0 {
				b.WriteString("<w:r><w:br/></w:r>")
			}
			b.WriteString(`<w:r><w:t xml:space="preserve">`)
			_ = xml.EscapeText(&b, []byte(line))
			b.WriteString("</w:t></w:r>")
		}
		b.WriteString("</w:p>")
	}

	b.WriteString(`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="708" w:footer="708" w:gutter="0"/></w:sectPr>`)
	b.WriteString("</w:body></w:document>")
	return b.Bytes()
}

func renderDOCXCore(doc *domain.Document) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	b.WriteString("<dc:title>")
	_ = xml.EscapeText(&b, []byte(doc.Title))
	b.WriteString("</dc:title><dc:creator>")
	_ = xml.EscapeText(&b, []byte(doc.Author))
	b.WriteString("</dc:creator>")
	b.WriteString(`<dcterms:created xsi:type="dcterms:W3CDTF">` + time.Now().UTC().Format(time.RFC3339) + `</dcterms:created>`)
	b.WriteString("</cp:coreProperties>")
	return b.Bytes()
}
