// Package highlight marks regulatory risk vocabulary in report text.
package highlight

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bobmcallan/regradar/internal/models"
)

// Find returns spans for every vocabulary match in text: case-insensitive,
// whole words only, longest match first, non-overlapping. Pure function of
// (text, vocabulary). Span offsets are byte positions in text itself.
func Find(text string, vocabulary []string) []models.HighlightSpan {
	if text == "" || len(vocabulary) == 0 {
		return nil
	}

	var candidates []models.HighlightSpan
	for _, term := range vocabulary {
		t := strings.TrimSpace(term)
		if t == "" {
			continue
		}
		for start := 0; start < len(text); {
			if end, ok := foldMatch(text, t, start); ok && wordBounded(text, start, end) {
				candidates = append(candidates, models.HighlightSpan{
					Start: start,
					End:   end,
					Term:  text[start:end],
				})
			}
			_, size := utf8.DecodeRuneInString(text[start:])
			start += size
		}
	}

	if len(candidates) == 0 {
		return nil
	}

	// A multi-word phrase beats an overlapping single-word match: earlier
	// start wins, then the longer span.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Start != candidates[j].Start {
			return candidates[i].Start < candidates[j].Start
		}
		return candidates[i].End > candidates[j].End
	})

	spans := candidates[:0]
	lastEnd := -1
	for _, c := range candidates {
		if c.Start < lastEnd {
			continue
		}
		spans = append(spans, c)
		lastEnd = c.End
	}

	return spans
}

// foldMatch reports whether term matches text at byte offset start under
// simple case folding, returning the end offset of the match. Folding runs
// rune-by-rune over the original text, so case pairs whose encodings differ
// in length (e.g. U+0130) cannot shift span offsets.
func foldMatch(text, term string, start int) (end int, ok bool) {
	i := start
	for _, tr := range term {
		if i >= len(text) {
			return 0, false
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.ToLower(r) != unicode.ToLower(tr) {
			return 0, false
		}
		i += size
	}
	return i, true
}

// wordBounded reports whether [start,end) is not glued to adjacent letters
// or digits.
func wordBounded(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
