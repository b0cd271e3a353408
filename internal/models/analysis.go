package models

import (
	"fmt"
	"time"
)

// Severity is the enumerated impact strength assigned per chunk and
// aggregated for the whole report.
type Severity string

const (
	SeverityNone   Severity = "none"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"

	// SeverityUnavailable is the overall severity when every chunk in a run
	// is degraded. Distinct from none: nothing could be assessed at all.
	SeverityUnavailable Severity = "unavailable"
)

// Rank orders severities for worst-case aggregation. Unavailable ranks
// below none so it never wins a max against an assessed chunk.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityNone:
		return 0
	default:
		return -1
	}
}

// ParseSeverity maps a free-form provider token to a Severity.
// Returns false when the token is not a recognized level.
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(s) {
	case SeverityNone, SeverityLow, SeverityMedium, SeverityHigh:
		return Severity(s), true
	}
	return SeverityNone, false
}

// DegradedMarker is the impact text carried by a chunk whose analysis
// could not be obtained after retries.
const DegradedMarker = "analysis unavailable for this segment"

// AnalysisTarget is the validated company a document is assessed against.
type AnalysisTarget struct {
	Ticker   string `json:"ticker"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
}

// HighlightSpan marks a matched regulatory term within report text.
// Offsets are byte positions; local to the chunk narrative until the
// aggregator remaps them into the merged report's coordinate space.
type HighlightSpan struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Term  string `json:"term"`
}

// ChunkResult is the outcome of analyzing one chunk. Immutable once created.
type ChunkResult struct {
	Index      int             `json:"index"`
	Impact     string          `json:"impact"`
	Severity   Severity        `json:"severity"`
	Degraded   bool            `json:"degraded,omitempty"`
	Highlights []HighlightSpan `json:"highlights,omitempty"`
	Attempts   int             `json:"attempts"`
	Elapsed    time.Duration   `json:"-"`
}

// AnalysisReport is the terminal artifact of a run: per-chunk narratives
// merged in chunk order with highlighted terms in merged-text coordinates.
type AnalysisReport struct {
	RunID           string          `json:"run_id"`
	Target          AnalysisTarget  `json:"target"`
	Document        string          `json:"document"`
	Narrative       string          `json:"narrative"`
	OverallSeverity Severity        `json:"overall_severity"`
	Highlights      []HighlightSpan `json:"highlights,omitempty"`
	Chunks          []ChunkResult   `json:"chunks"`
	DegradedChunks  int             `json:"degraded_chunks"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// Summary returns a short consolidated header for the report: overall
// severity plus chunk accounting. Used as regulation context for
// follow-up company impact queries.
func (r *AnalysisReport) Summary() string {
	assessed := len(r.Chunks) - r.DegradedChunks
	return fmt.Sprintf("Regulatory impact on %s (%s): overall severity %s across %d assessed segments (%d unavailable).",
		r.Target.Name, r.Target.Ticker, r.OverallSeverity, assessed, r.DegradedChunks)
}
