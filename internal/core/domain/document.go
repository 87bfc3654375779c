package domain

import "strings"

type BlockKind string

const (
	BlockHeading   BlockKind = "heading"
	BlockParagraph BlockKind = "paragraph"
	BlockListItem  BlockKind = "list_item"
	BlockQuote     BlockKind = "quote"
)

// Block is one structural element of an extracted document. Level is used by
// headings (1-6) and ordered list items (1 = numbered).
type Block struct {
	Kind  BlockKind `json:"kind"`
	Level int       `json:"level,omitempty"`
	Text  string    `json:"text"`
}

// Document is the format-neutral representation passed from readers to writers.
type Document struct {
	Title  string  `json:"title,omitempty"`
	Author string  `json:"author,omitempty"`
	Source Format  `json:"source"`
	Blocks []Block `json:"blocks"`
}

func (d *Document) PlainText() string {
	var b strings.Builder
	for i, block := range d.Blocks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block.Text)
	}
	return b.String()
}

func (d *Document) WordCount() int {
	count := 0
	for _, block := range d.Blocks {
		count += len(strings.Fields(block.Text))
	}
	return count
}
