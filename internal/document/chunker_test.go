package document

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bobmcallan/regradar/internal/models"
)

// rejoin concatenates chunk text in order.
func rejoin(chunks []models.Chunk) string {
	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString(c.Text)
	}
	return sb.String()
}

func assertChunkInvariants(t *testing.T, nt *models.NormalizedText, chunks []models.Chunk, maxSize int) {
	t.Helper()

	if rejoin(chunks) != nt.Text {
		t.Fatal("concatenated chunks do not reproduce the normalized text")
	}

	pos := 0
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.Start != pos {
			t.Errorf("chunk %d starts at %d, want %d (gap or overlap)", i, c.Start, pos)
		}
		if c.End-c.Start > maxSize {
			t.Errorf("chunk %d size %d exceeds budget %d", i, c.End-c.Start, maxSize)
		}
		if c.Text != nt.Text[c.Start:c.End] {
			t.Errorf("chunk %d text does not match its offsets", i)
		}
		pos = c.End
	}
}

func TestSplitChunksSingleChunk(t *testing.T) {
	nt := &models.NormalizedText{
		Text:       "Short document.",
		Boundaries: []models.Boundary{{Offset: 0, Kind: models.BoundaryParagraph}},
	}

	chunks, err := SplitChunks(nt, 1000, 100)
	if err != nil {
		t.Fatalf("SplitChunks failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].ForcedSplit {
		t.Error("single chunk should not be marked forced")
	}
	assertChunkInvariants(t, nt, chunks, 1000)
}

func TestSplitChunksPrefersBoundaryInLookback(t *testing.T) {
	// Three paragraphs of 40 bytes each (incl. separators); budget of 100
	// with a wide lookback should split at the paragraph boundary, not
	// mid-paragraph.
	para := strings.Repeat("word ", 7) + "end."
	text := para + "\n\n" + para + "\n\n" + para
	nt := &models.NormalizedText{
		Text: text,
		Boundaries: []models.Boundary{
			{Offset: 0, Kind: models.BoundaryParagraph},
			{Offset: len(para) + 2, Kind: models.BoundaryParagraph},
			{Offset: 2*(len(para)+2), Kind: models.BoundaryParagraph},
		},
	}

	chunks, err := SplitChunks(nt, 100, 80)
	if err != nil {
		t.Fatalf("SplitChunks failed: %v", err)
	}
	assertChunkInvariants(t, nt, chunks, 100)

	if chunks[0].End != 2*(len(para)+2) {
		t.Errorf("first split at %d, want paragraph boundary %d", chunks[0].End, 2*(len(para)+2))
	}
	for _, c := range chunks {
		if c.ForcedSplit {
			t.Errorf("chunk %d marked forced, splits landed on boundaries", c.Index)
		}
	}
}

func TestSplitChunksLatestBoundaryWins(t *testing.T) {
	// Two boundaries inside the lookback window: the later one must win so
	// chunks stay as full as possible.
	text := strings.Repeat("a", 50) + "\n\n" + strings.Repeat("b", 20) + "\n\n" + strings.Repeat("c", 60)
	nt := &models.NormalizedText{
		Text: text,
		Boundaries: []models.Boundary{
			{Offset: 0},
			{Offset: 52},
			{Offset: 74},
		},
	}

	chunks, err := SplitChunks(nt, 100, 100)
	if err != nil {
		t.Fatalf("SplitChunks failed: %v", err)
	}
	assertChunkInvariants(t, nt, chunks, 100)

	if chunks[0].End != 74 {
		t.Errorf("first split at %d, want latest boundary 74", chunks[0].End)
	}
}

func TestSplitChunksOversizedUnitForcedSplit(t *testing.T) {
	// One structural unit at ~3.5x the budget: it must be split into pieces
	// within budget, all marked forced, and full coverage preserved.
	unit := strings.TrimSpace(strings.Repeat("row of table data ", 70)) // ~1250 bytes
	nt := &models.NormalizedText{
		Text:       unit,
		Boundaries: []models.Boundary{{Offset: 0, Kind: models.BoundaryParagraph}},
	}

	maxSize := len(unit)*2/7 + 1 // budget ~3.5x smaller than the unit
	chunks, err := SplitChunks(nt, maxSize, 50)
	if err != nil {
		t.Fatalf("SplitChunks failed: %v", err)
	}
	assertChunkInvariants(t, nt, chunks, maxSize)

	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks for a 3.5x oversized unit, got %d", len(chunks))
	}
	for _, c := range chunks[:len(chunks)-1] {
		if !c.ForcedSplit {
			t.Errorf("chunk %d inside oversized unit not marked forced", c.Index)
		}
	}
}

func TestSplitChunksUnbrokenTokenHardSplit(t *testing.T) {
	// No whitespace at all: hard split at rune boundaries with progress.
	text := strings.Repeat("€", 100) // 3 bytes per rune
	nt := &models.NormalizedText{
		Text:       text,
		Boundaries: []models.Boundary{{Offset: 0}},
	}

	chunks, err := SplitChunks(nt, 10, 5)
	if err != nil {
		t.Fatalf("SplitChunks failed: %v", err)
	}
	assertChunkInvariants(t, nt, chunks, 10)

	for _, c := range chunks {
		if !utf8.ValidString(c.Text) {
			t.Fatalf("chunk %d split mid-rune: %q", c.Index, c.Text)
		}
	}
	last := chunks[len(chunks)-1]
	for _, c := range chunks {
		if c != last && !c.ForcedSplit {
			t.Errorf("hard-split chunk %d not marked forced", c.Index)
		}
	}
}

func TestSplitChunksTinyBudgetStillProgresses(t *testing.T) {
	nt := &models.NormalizedText{Text: "€€€", Boundaries: []models.Boundary{{Offset: 0}}}

	// Budget smaller than one rune: each chunk must still take a whole rune.
	chunks, err := SplitChunks(nt, 1, 0)
	if err != nil {
		t.Fatalf("SplitChunks failed: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if rejoin(chunks) != nt.Text {
		t.Fatal("coverage lost on tiny budget")
	}
}

func TestSplitChunksDeterministic(t *testing.T) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 50)
	nt := &models.NormalizedText{
		Text:       strings.TrimSpace(text),
		Boundaries: []models.Boundary{{Offset: 0}, {Offset: 450}, {Offset: 900}},
	}

	first, err := SplitChunks(nt, 300, 60)
	if err != nil {
		t.Fatalf("SplitChunks failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, _ := SplitChunks(nt, 300, 60)
		if len(again) != len(first) {
			t.Fatalf("chunk count varies between runs: %d vs %d", len(again), len(first))
		}
		for j := range again {
			if again[j] != first[j] {
				t.Fatalf("chunk %d differs between runs", j)
			}
		}
	}
}

func TestSplitChunksInvalidBudget(t *testing.T) {
	nt := &models.NormalizedText{Text: "content"}
	if _, err := SplitChunks(nt, 0, 10); !errors.Is(err, models.ErrChunking) {
		t.Errorf("err = %v, want ErrChunking", err)
	}
}

func TestSplitChunksEmptyText(t *testing.T) {
	chunks, err := SplitChunks(&models.NormalizedText{}, 100, 10)
	if err != nil {
		t.Fatalf("SplitChunks failed: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for empty text, got %d", len(chunks))
	}
}
