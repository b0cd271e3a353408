// Package document normalizes uploaded regulatory documents into a single
// clean text stream with structural boundaries, and splits that stream
// into size-bounded chunks for AI analysis.
package document

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/bobmcallan/regradar/internal/models"
)

// block is one structural unit produced by a format extractor before
// assembly into NormalizedText.
type block struct {
	text    string
	kind    models.BoundaryKind
	locator string
}

// Extract normalizes raw document bytes into a NormalizedText.
// Extraction is pure: no side effects beyond the returned value.
// Returns models.ErrUnsupportedFormat for formats the extractor cannot
// parse and models.ErrEmptyDocument when no analyzable text remains.
func Extract(doc models.Document) (*models.NormalizedText, error) {
	var blocks []block
	var err error

	switch doc.Format {
	case models.FormatMarkup:
		blocks, err = extractMarkup(doc.Data)
	case models.FormatPlain:
		blocks, err = extractPlain(doc.Data)
	case models.FormatPDF:
		blocks, err = extractPDF(doc.Data)
	default:
		return nil, fmt.Errorf("format %q: %w", doc.Format, models.ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}

	nt := assemble(blocks)
	if nt.Text == "" {
		return nil, fmt.Errorf("document %q: %w", doc.Name, models.ErrEmptyDocument)
	}
	return nt, nil
}

// assemble joins blocks with explicit paragraph separators and records a
// boundary at the start of each block.
func assemble(blocks []block) *models.NormalizedText {
	nt := &models.NormalizedText{}
	var sb strings.Builder

	for _, b := range blocks {
		text := strings.TrimSpace(b.text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		nt.Boundaries = append(nt.Boundaries, models.Boundary{
			Offset:  sb.Len(),
			Kind:    b.kind,
			Locator: b.locator,
		})
		sb.WriteString(text)
	}

	nt.Text = sb.String()
	return nt
}

// extractPlain normalizes line endings, splits paragraphs on blank lines,
// and collapses intra-paragraph whitespace.
func extractPlain(data []byte) ([]block, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var blocks []block
	var para strings.Builder
	paraLine := 1

	flush := func() {
		if para.Len() > 0 {
			blocks = append(blocks, block{
				text:    para.String(),
				kind:    models.BoundaryParagraph,
				locator: fmt.Sprintf("line %d", paraLine),
			})
			para.Reset()
		}
	}

	for i, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if para.Len() == 0 {
			paraLine = i + 1
		} else {
			para.WriteByte(' ')
		}
		para.WriteString(collapseSpaces(trimmed))
	}
	flush()

	return blocks, nil
}

// collapseSpaces reduces runs of whitespace to a single space.
func collapseSpaces(s string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			prevSpace = true
			continue
		}
		sb.WriteRune(r)
		prevSpace = false
	}
	return strings.TrimRight(sb.String(), " ")
}
