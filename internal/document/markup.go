package document

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/bobmcallan/regradar/internal/models"
)

// extractMarkup extracts structural blocks from tag-structured content
// (HTML, or XML parsed leniently). Boilerplate elements are skipped;
// headings become section boundaries, other block elements paragraph
// boundaries.
func extractMarkup(data []byte) ([]block, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", models.ErrUnsupportedFormat)
	}

	w := &markupWalker{counts: make(map[string]int)}
	w.walk(doc)

	if len(w.blocks) == 0 {
		// No recognizable block structure: fall back to the full text stream.
		if text := collectText(doc); text != "" {
			w.blocks = append(w.blocks, block{
				text:    text,
				kind:    models.BoundaryParagraph,
				locator: "body",
			})
		}
	}

	return w.blocks, nil
}

type markupWalker struct {
	blocks []block
	counts map[string]int
}

func (w *markupWalker) locate(tag string) string {
	w.counts[tag]++
	return fmt.Sprintf("%s[%d]", tag, w.counts[tag])
}

func (w *markupWalker) emit(n *html.Node, kind models.BoundaryKind) {
	text := collectText(n)
	if text == "" {
		return
	}
	w.blocks = append(w.blocks, block{
		text:    text,
		kind:    kind,
		locator: w.locate(n.Data),
	})
}

func (w *markupWalker) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Nav, atom.Footer, atom.Header:
			return

		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Title:
			w.emit(n, models.BoundarySection)
			return

		case atom.P, atom.Table, atom.Ul, atom.Ol, atom.Blockquote, atom.Pre:
			w.emit(n, models.BoundaryParagraph)
			return

		default:
			// XML documents carry no HTML block atoms. Treat any leaf
			// element holding only text as a paragraph unit.
			if n.DataAtom == 0 && isTextLeaf(n) {
				w.emit(n, models.BoundaryParagraph)
				return
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

// isTextLeaf reports whether a node has text content and no element children.
func isTextLeaf(n *html.Node) bool {
	hasText := false
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			return false
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				hasText = true
			}
		}
	}
	return hasText
}

// collectText extracts all visible text from a node subtree.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(collapseSpaces(text))
			}
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
