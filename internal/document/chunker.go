package document

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/bobmcallan/regradar/internal/models"
)

// SplitChunks divides normalized text into ordered, size-bounded chunks.
//
// The walk accumulates up to maxSize bytes, then backs up to the latest
// structural boundary within the lookback window. With no boundary in the
// window it splits at the nearest preceding whitespace; with no whitespace
// at all it hard-splits at a rune boundary. A split landing inside a
// structural unit larger than maxSize is flagged as forced.
//
// Invariants: chunks are contiguous and non-overlapping, concatenating
// their text reproduces nt.Text exactly, and the result is deterministic
// for a given input and budget.
func SplitChunks(nt *models.NormalizedText, maxSize, lookback int) ([]models.Chunk, error) {
	if maxSize < 1 {
		return nil, fmt.Errorf("max chunk size %d: %w", maxSize, models.ErrChunking)
	}
	if lookback < 0 {
		lookback = 0
	}

	text := nt.Text
	if text == "" {
		return nil, nil
	}

	offsets := boundaryOffsets(nt.Boundaries)

	var chunks []models.Chunk
	start := 0
	for start < len(text) {
		end, forced := splitPoint(text, offsets, start, maxSize, lookback)
		chunks = append(chunks, models.Chunk{
			Index:       len(chunks),
			Start:       start,
			End:         end,
			Text:        text[start:end],
			ForcedSplit: forced,
		})
		start = end
	}

	return chunks, nil
}

// splitPoint finds the end of the chunk beginning at start.
func splitPoint(text string, offsets []int, start, maxSize, lookback int) (end int, forced bool) {
	limit := start + maxSize
	if limit >= len(text) {
		return len(text), false
	}

	// Latest structural boundary within the lookback window wins, keeping
	// chunks as full as possible.
	if b, ok := latestBoundary(offsets, start, limit, lookback); ok {
		return b, false
	}

	// No usable boundary: back up to the nearest whitespace so the split
	// never lands mid-word. The whitespace byte stays with this chunk.
	for i := limit - 1; i > start; i-- {
		if isSpaceByte(text[i]) {
			return i + 1, unitExceedsBudget(offsets, i, len(text), maxSize)
		}
	}

	// A single unbroken token longer than the budget: hard-split on a rune
	// boundary, taking at least one rune to guarantee progress.
	end = limit
	for end > start && !utf8.RuneStart(text[end]) {
		end--
	}
	if end <= start {
		_, size := utf8.DecodeRuneInString(text[start:])
		end = start + size
	}
	return end, true
}

// latestBoundary returns the largest boundary offset in (start, limit]
// that also falls inside the lookback window [limit-lookback, limit].
func latestBoundary(offsets []int, start, limit, lookback int) (int, bool) {
	i := sort.SearchInts(offsets, limit+1) - 1
	if i < 0 {
		return 0, false
	}
	b := offsets[i]
	if b <= start || b < limit-lookback {
		return 0, false
	}
	return b, true
}

// unitExceedsBudget reports whether the structural unit containing pos is
// itself larger than maxSize, which makes a split inside it a forced split.
func unitExceedsBudget(offsets []int, pos, textLen, maxSize int) bool {
	unitStart := 0
	unitEnd := textLen
	i := sort.SearchInts(offsets, pos+1) - 1
	if i >= 0 {
		unitStart = offsets[i]
	}
	if i+1 < len(offsets) {
		unitEnd = offsets[i+1]
	}
	return unitEnd-unitStart > maxSize
}

func boundaryOffsets(boundaries []models.Boundary) []int {
	offsets := make([]int, 0, len(boundaries))
	for _, b := range boundaries {
		offsets = append(offsets, b.Offset)
	}
	sort.Ints(offsets)
	return offsets
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}
