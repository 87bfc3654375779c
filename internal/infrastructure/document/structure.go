package document

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kirillkom/document-converter/internal/core/domain"
)

const maxHeadingRunes = 80

var (
	bulletPrefix   = regexp.MustCompile(`^\s*(?:[-*+•])\s+`)
	orderedPrefix  = regexp.MustCompile(`^\s*\d{1,3}[.)]\s+`)
	sectionPrefix  = regexp.MustCompile(`^(\d+(?:\.\d+)+)\.?\s+\S`)
	quotePrefix    = regexp.MustCompile(`^\s*>\s?`)
	trailingPunct  = ".,;:!?"
	blankLineSplit = regexp.MustCompile(`\n[ \t]*\n`)
)

// DetectBlocks classifies plain text into headings, list items, quotes and
// paragraphs. Paragraphs are separated by blank lines; wrapped lines inside a
// paragraph are joined with a space.
func DetectBlocks(text string) []domain.Block {
	text = normalizeNewlines(text)
	var blocks []domain.Block

	for _, chunk := range blankLineSplit.Split(text, -1) {
		lines := nonEmptyLines(chunk)
		if len(lines) == 0 {
			continue
		}

		if len(lines) == 1 {
			if level, ok := headingLevel(lines[0]); ok {
				blocks = append(blocks, domain.Block{Kind: domain.BlockHeading, Level: level, Text: strings.TrimSpace(lines[0])})
				continue
			}
		}

		if isQuote(lines) {
			quoted := make([]string, 0, len(lines))
			for _, line := range lines {
				quoted = append(quoted, strings.TrimSpace(quotePrefix.ReplaceAllString(line, "")))
			}
			blocks = append(blocks, domain.Block{Kind: domain.BlockQuote, Text: strings.Join(quoted, " ")})
			continue
		}

		if listMarker(lines[0]) {
			blocks = append(blocks, listBlocks(lines)...)
			continue
		}

		blocks = append(blocks, domain.Block{Kind: domain.BlockParagraph, Text: joinLines(lines)})
	}
	return blocks
}

// headingLevel recognizes short standalone lines: ALL CAPS titles are level 1
// and dotted section numbers ("2.1 Methods") take their depth as level.
func headingLevel(line string) (int, bool) {
	line = strings.TrimSpace(line)
	if line == "" || utf8.RuneCountInString(line) > maxHeadingRunes {
		return 0, false
	}
	if strings.ContainsAny(line[len(line)-1:], trailingPunct) {
		return 0, false
	}
	if m := sectionPrefix.FindStringSubmatch(line); m != nil {
		level := strings.Count(m[1], ".") + 1
		if level > 6 {
			level = 6
		}
		return level, true
	}
	if listMarker(line) {
		return 0, false
	}
	if isUpperTitle(line) {
		return 1, true
	}
	return 0, false
}

func isUpperTitle(line string) bool {
	letters := 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 2
}

func isQuote(lines []string) bool {
	for _, line := range lines {
		if !quotePrefix.MatchString(line) {
			return false
		}
	}
	return true
}

func listMarker(line string) bool {
	return bulletPrefix.MatchString(line) || orderedPrefix.MatchString(line)
}

// listBlocks turns marker lines into list items; unmarked lines continue the
// previous item.
func listBlocks(lines []string) []domain.Block {
	var out []domain.Block
	for _, line := range lines {
		switch {
		case orderedPrefix.MatchString(line):
			out = append(out, domain.Block{Kind: domain.BlockListItem, Level: 1, Text: strings.TrimSpace(orderedPrefix.ReplaceAllString(line, ""))})
		case bulletPrefix.MatchString(line):
			out = append(out, domain.Block{Kind: domain.BlockListItem, Text: strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))})
		default:
			last := &out[len(out)-1]
			last.Text = strings.TrimSpace(last.Text + " " + strings.TrimSpace(line))
		}
	}
	return out
}

func firstHeading(blocks []domain.Block) string {
	for _, b := range blocks {
		if b.Kind == domain.BlockHeading {
			return b.Text
		}
	}
	return ""
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func nonEmptyLines(chunk string) []string {
	raw := strings.Split(chunk, "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		if strings.TrimSpace(line) != "" {
			out = append(out, strings.TrimRight(line, " \t"))
		}
	}
	return out
}

func joinLines(lines []string) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, strings.TrimSpace(line))
	}
	return strings.Join(parts, " ")
}
