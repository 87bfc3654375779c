package document

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/kirillkom/document-converter/internal/core/domain"
)

type HTMLReader struct{}

func (HTMLReader) Format() domain.Format { return domain.FormatHTML }

func (HTMLReader) Read(_ context.Context, data []byte) (*domain.Document, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read html", err)
	}

	w := &htmlWalker{doc: &domain.Document{Source: domain.FormatHTML}}
	w.container(root)
	w.flush()

	if w.doc.Title == "" {
		w.doc.Title = firstHeading(w.doc.Blocks)
	}
	return w.doc, nil
}

type htmlWalker struct {
	doc *domain.Document
	run strings.Builder
}

// container walks the children of a block-level node. Text and inline
// elements accumulate into a paragraph run that is flushed at the next block.
func (w *htmlWalker) container(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			w.run.WriteString(c.Data)
			w.run.WriteString(" ")
		case html.ElementNode:
			if isInline(c.DataAtom) {
				w.run.WriteString(textContent(c))
				w.run.WriteString(" ")
				continue
			}
			w.flush()
			w.element(c)
		case html.DocumentNode:
			w.container(c)
		}
	}
}

func (w *htmlWalker) element(n *html.Node) {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Svg:
	case atom.Head:
		w.head(n)
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		w.add(domain.BlockHeading, int(n.Data[1]-'0'), textContent(n))
	case atom.P:
		w.add(domain.BlockParagraph, 0, textContent(n))
	case atom.Blockquote:
		w.add(domain.BlockQuote, 0, textContent(n))
	case atom.Pre:
		if text := strings.Trim(rawText(n), "\n"); strings.TrimSpace(text) != "" {
			w.doc.Blocks = append(w.doc.Blocks, domain.Block{Kind: domain.BlockParagraph, Text: text})
		}
	case atom.Ul, atom.Ol:
		level := 0
		if n.DataAtom == atom.Ol {
			level = 1
		}
		for li := n.FirstChild; li != nil; li = li.NextSibling {
			if li.Type == html.ElementNode && li.DataAtom == atom.Li {
				w.add(domain.BlockListItem, level, textContent(li))
			}
		}
	default:
		w.container(n)
		w.flush()
	}
}

func (w *htmlWalker) head(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Title:
			w.doc.Title = textContent(c)
		case atom.Meta:
			if strings.EqualFold(attr(c, "name"), "author") {
				w.doc.Author = strings.TrimSpace(attr(c, "content"))
			}
		}
	}
}

func (w *htmlWalker) add(kind domain.BlockKind, level int, text string) {
	if text == "" {
		return
	}
	w.doc.Blocks = append(w.doc.Blocks, domain.Block{Kind: kind, Level: level, Text: text})
}

func (w *htmlWalker) flush() {
	text := collapseSpace(w.run.String())
	w.run.Reset()
	w.add(domain.BlockParagraph, 0, text)
}

func isInline(a atom.Atom) bool {
	switch a {
	case atom.A, atom.Abbr, atom.B, atom.Code, atom.Em, atom.I, atom.Kbd, atom.Mark, atom.Q,
		atom.S, atom.Small, atom.Span, atom.Strong, atom.Sub, atom.Sup, atom.U, atom.Time, atom.Br:
		return true
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			case atom.Br:
				b.WriteString(" ")
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && !isInline(n.DataAtom) {
			b.WriteString(" ")
		}
	}
	walk(n)
	return collapseSpace(b.String())
}

func rawText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

const htmlPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
{{- with .Author}}
<meta name="author" content="{{.}}">
{{- end}}
<title>{{.Title}}</title>
<style>
body { font-family: Georgia, serif; max-width: 46em; margin: 2em auto; line-height: 1.5; }
blockquote { border-left: 3px solid #ccc; margin-left: 0; padding-left: 1em; color: #555; }
pre { white-space: pre-wrap; }
</style>
</head>
<body>
{{- range .Nodes}}
{{- if .Heading}}
{{heading .Level .Text}}
{{- else if .Items}}
{{if .Ordered}}<ol>{{else}}<ul>{{end}}
{{- range .Items}}
<li>{{.}}</li>
{{- end}}
{{if .Ordered}}</ol>{{else}}</ul>{{end}}
{{- else if .Quote}}
<blockquote><p>{{.Text}}</p></blockquote>
{{- else if .Preformatted}}
<pre>{{.Text}}</pre>
{{- else}}
<p>{{.Text}}</p>
{{- end}}
{{- end}}
</body>
</html>
`

var htmlTemplate = template.Must(template.New("document").Funcs(template.FuncMap{
	"heading": func(level int, text string) template.HTML {
		if level < 1 {
			level = 1
		}
		if level > 6 {
			level = 6
		}
		return template.HTML(fmt.Sprintf("<h%d>%s</h%d>", level, template.HTMLEscapeString(text), level))
	},
}).Parse(htmlPage))

type htmlNode struct {
	Heading      bool
	Quote        bool
	Preformatted bool
	Ordered      bool
	Level        int
	Text         string
	Items        []string
}

type HTMLWriter struct{}

func (HTMLWriter) Format() domain.Format { return domain.FormatHTML }

func (HTMLWriter) Write(_ context.Context, doc *domain.Document, w io.Writer) error {
	title := doc.Title
	if title == "" {
		title = "Document"
	}
	return htmlTemplate.Execute(w, struct {
		Title  string
		Author string
		Nodes  []htmlNode
	}{
		Title:  title,
		Author: doc.Author,
		Nodes:  groupHTMLNodes(doc.Blocks),
	})
}

// groupHTMLNodes folds consecutive list items of the same kind into one list.
func groupHTMLNodes(blocks []domain.Block) []htmlNode {
	var nodes []htmlNode
	for _, b := range blocks {
		switch b.Kind {
		case domain.BlockHeading:
			nodes = append(nodes, htmlNode{Heading: true, Level: b.Level, Text: b.Text})
		case domain.BlockQuote:
			nodes = append(nodes, htmlNode{Quote: true, Text: b.Text})
		case domain.BlockListItem:
			ordered := b.Level == 1
			if n := len(nodes); n > 0 && nodes[n-1].Items != nil && nodes[n-1].Ordered == ordered {
				nodes[n-1].Items = append(nodes[n-1].Items, b.Text)
				continue
			}
			nodes = append(nodes, htmlNode{Ordered: ordered, Items: []string{b.Text}})
		default:
			nodes = append(nodes, htmlNode{Preformatted: strings.Contains(b.Text, "\n"), Text: b.Text})
		}
	}
	return nodes
}
