package document

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/bobmcallan/regradar/internal/models"
)

// maxPDFTextBytes bounds total extracted text so a pathological PDF cannot
// balloon a run; the upload cap limits file size, not decompressed text.
const maxPDFTextBytes = 4 << 20

// extractPDF pulls plain text from a PDF page by page. Each page becomes a
// section unit so the chunker can align splits to page breaks.
func extractPDF(data []byte) ([]block, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", models.ErrUnsupportedFormat)
	}

	var blocks []block
	extracted := 0
	totalPages := r.NumPage()

	for i := 1; i <= totalPages; i++ {
		if extracted > maxPDFTextBytes {
			break
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = collapseSpaces(text)
		if text == "" {
			continue
		}

		extracted += len(text)
		blocks = append(blocks, block{
			text:    text,
			kind:    models.BoundarySection,
			locator: fmt.Sprintf("page %d", i),
		})
	}

	return blocks, nil
}
