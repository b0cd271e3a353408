// Package models defines the data types shared across Regradar services.
package models

// DocumentFormat identifies how uploaded bytes should be interpreted.
type DocumentFormat string

const (
	FormatMarkup DocumentFormat = "markup" // tag-structured: HTML or XML
	FormatPlain  DocumentFormat = "plain"  // plain text / markdown
	FormatPDF    DocumentFormat = "pdf"
)

// Document is a raw uploaded regulatory document. Immutable once received;
// owned exclusively by one analysis run.
type Document struct {
	Name   string         `json:"name"`
	Format DocumentFormat `json:"format"`
	Data   []byte         `json:"-"`
}

// BoundaryKind classifies a structural break recorded by the extractor.
type BoundaryKind string

const (
	BoundarySection   BoundaryKind = "section"   // heading or page break
	BoundaryParagraph BoundaryKind = "paragraph" // paragraph, table, or list block
)

// Boundary marks the start offset of a structural unit within the
// normalized text, together with a locator back into the source document
// (tag path for markup, line number for plain text, page for PDF).
type Boundary struct {
	Offset  int          `json:"offset"`
	Kind    BoundaryKind `json:"kind"`
	Locator string       `json:"locator"`
}

// NormalizedText is the single clean text stream produced by the extractor.
// Blocks are separated by "\n\n"; Boundaries is ordered by offset and always
// starts at offset 0. Read-only after extraction.
type NormalizedText struct {
	Text       string     `json:"text"`
	Boundaries []Boundary `json:"boundaries"`
}

// Chunk is one contiguous slice of normalized text, the unit of AI analysis.
// Chunks are contiguous and non-overlapping: concatenating Text for the
// ordered sequence reconstructs NormalizedText.Text exactly.
type Chunk struct {
	Index int    `json:"index"`
	Start int    `json:"start"` // byte offset into NormalizedText.Text, inclusive
	End   int    `json:"end"`   // exclusive
	Text  string `json:"text"`

	// ForcedSplit is set when the boundary was placed inside a single
	// structural unit because that unit alone exceeds the size budget.
	ForcedSplit bool `json:"forced_split,omitempty"`
}
