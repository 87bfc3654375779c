package document

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/document-converter/internal/core/domain"
)

type frontMatter struct {
	Title  string `yaml:"title,omitempty"`
	Author string `yaml:"author,omitempty"`
}

var (
	atxHeading     = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*#*\s*$`)
	mdBullet       = regexp.MustCompile(`^\s*[-*+]\s+(.*)$`)
	mdOrdered      = regexp.MustCompile(`^\s*\d{1,9}[.)]\s+(.*)$`)
	mdQuote        = regexp.MustCompile(`^\s*>\s?(.*)$`)
	mdFence        = regexp.MustCompile("^\\s*(```|~~~)")
	mdRule         = regexp.MustCompile(`^\s*([-*_])(\s*[-*_]){2,}\s*$`)
	inlineImage    = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	inlineLink     = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	inlineEmphasis = regexp.MustCompile(`(\*\*|\*|~~)([^*~]+?)(\*\*|\*|~~)`)
	inlineCode     = regexp.MustCompile("`([^`]*)`")
)

type MarkdownReader struct{}

func (MarkdownReader) Format() domain.Format { return domain.FormatMarkdown }

func (MarkdownReader) Read(_ context.Context, data []byte) (*domain.Document, error) {
	if !utf8.Valid(data) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read md", fmt.Errorf("content is not valid UTF-8 text"))
	}
	text := normalizeNewlines(strings.TrimPrefix(string(data), "\ufeff"))

	meta, body, err := splitFrontMatter(text)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read md front matter", err)
	}

	blocks := parseMarkdownBlocks(body)
	title := meta.Title
	if title == "" {
		for _, b := range blocks {
			if b.Kind == domain.BlockHeading && b.Level == 1 {
				title = b.Text
				break
			}
		}
	}
	return &domain.Document{
		Title:  title,
		Author: meta.Author,
		Source: domain.FormatMarkdown,
		Blocks: blocks,
	}, nil
}

func splitFrontMatter(text string) (frontMatter, string, error) {
	var meta frontMatter
	if !strings.HasPrefix(text, "---\n") {
		return meta, text, nil
	}
	rest := text[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end == -1 {
		return meta, text, nil
	}
	if err := yaml.Unmarshal([]byte(rest[:end]), &meta); err != nil {
		return meta, text, err
	}
	body := rest[end+len("\n---"):]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = ""
	}
	return meta, body, nil
}

func parseMarkdownBlocks(body string) []domain.Block {
	var (
		blocks    []domain.Block
		paragraph []string
		fence     []string
		inFence   bool
	)
	flush := func() {
		if len(paragraph) > 0 {
			blocks = append(blocks, domain.Block{Kind: domain.BlockParagraph, Text: stripInline(joinLines(paragraph))})
			paragraph = nil
		}
	}

	for _, line := range strings.Split(body, "\n") {
		if mdFence.MatchString(line) {
			if inFence {
				blocks = append(blocks, domain.Block{Kind: domain.BlockParagraph, Text: strings.Join(fence, "\n")})
				fence = nil
			} else {
				flush()
			}
			inFence = !inFence
			continue
		}
		if inFence {
			fence = append(fence, line)
			continue
		}

		switch {
		case strings.TrimSpace(line) == "":
			flush()
		case mdRule.MatchString(line):
			flush()
		case atxHeading.MatchString(line):
			flush()
			m := atxHeading.FindStringSubmatch(line)
			blocks = append(blocks, domain.Block{Kind: domain.BlockHeading, Level: len(m[1]), Text: stripInline(m[2])})
		case mdBullet.MatchString(line):
			flush()
			m := mdBullet.FindStringSubmatch(line)
			blocks = append(blocks, domain.Block{Kind: domain.BlockListItem, Text: stripInline(m[1])})
		case mdOrdered.MatchString(line):
			flush()
			m := mdOrdered.FindStringSubmatch(line)
			blocks = append(blocks, domain.Block{Kind: domain.BlockListItem, Level: 1, Text: stripInline(m[1])})
		case mdQuote.MatchString(line):
			flush()
			m := mdQuote.FindStringSubmatch(line)
			text := stripInline(strings.TrimSpace(m[1]))
			if n := len(blocks); n > 0 && blocks[n-1].Kind == domain.BlockQuote {
				blocks[n-1].Text = strings.TrimSpace(blocks[n-1].Text + " " + text)
			} else if text != "" {
				blocks = append(blocks, domain.Block{Kind: domain.BlockQuote, Text: text})
			}
		default:
			paragraph = append(paragraph, line)
		}
	}
	if inFence && len(fence) > 0 {
		blocks = append(blocks, domain.Block{Kind: domain.BlockParagraph, Text: strings.Join(fence, "\n")})
	}
	flush()
	return blocks
}

func stripInline(s string) string {
	s = inlineImage.ReplaceAllString(s, "$1")
	s = inlineLink.ReplaceAllString(s, "$1")
	s = inlineCode.ReplaceAllString(s, "$1")
	s = inlineEmphasis.ReplaceAllString(s, "$2")
	return strings.TrimSpace(s)
}

type MarkdownWriter struct{}

func (MarkdownWriter) Format() domain.Format { return domain.FormatMarkdown }

func (MarkdownWriter) Write(_ context.Context, doc *domain.Document, w io.Writer) error {
	bw := bufio.NewWriter(w)

	if doc.Title != "" || doc.Author != "" {
		meta, err := yaml.Marshal(frontMatter{Title: doc.Title, Author: doc.Author})
		if err != nil {
			return fmt.Errorf("marshal front matter: %w", err)
		}
		bw.WriteString("---\n")
		bw.Write(meta)
		bw.WriteString("---\n\n")
	}

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
			level := block.Level
			if level < 1 {
				level = 1
			}
			if level > 6 {
				level = 6
			}
			bw.WriteString(strings.Repeat("#", level) + " " + block.Text)
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
