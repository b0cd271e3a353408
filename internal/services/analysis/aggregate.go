package analysis

import (
	"strings"
	"time"

	"github.com/bobmcallan/regradar/internal/models"
)

// severitySeparator is inserted between consecutive chunk narratives that
// disagree materially on severity, so the merged text does not imply a
// false continuity of impact.
const severitySeparator = "\n\n---\n\n"

const narrativeSeparator = "\n\n"

// materialDisagreement reports whether two adjacent chunk results differ
// enough to warrant a visual break: two or more severity levels apart, or
// one of the two is degraded.
func materialDisagreement(a, b models.ChunkResult) bool {
	if a.Degraded != b.Degraded {
		return true
	}
	diff := a.Severity.Rank() - b.Severity.Rank()
	if diff < 0 {
		diff = -diff
	}
	return diff >= 2
}

// BuildReport merges an ordered, complete ChunkResult sequence into one
// AnalysisReport: narratives concatenated in chunk order, highlight spans
// remapped into the merged coordinate space with boundary duplicates
// dropped, and overall severity taken as the worst non-degraded chunk.
func BuildReport(runID, docName string, target models.AnalysisTarget, results []models.ChunkResult) *models.AnalysisReport {
	report := &models.AnalysisReport{
		RunID:       runID,
		Target:      target,
		Document:    docName,
		Chunks:      results,
		GeneratedAt: time.Now(),
	}

	var sb strings.Builder
	overall := models.SeverityUnavailable

	for i, res := range results {
		if res.Degraded {
			report.DegradedChunks++
		} else if res.Severity.Rank() > overall.Rank() {
			overall = res.Severity
		}

		if i > 0 {
			if materialDisagreement(results[i-1], res) {
				sb.WriteString(severitySeparator)
			} else {
				sb.WriteString(narrativeSeparator)
			}
		}

		base := sb.Len()
		sb.WriteString(res.Impact)

		for _, span := range res.Highlights {
			global := models.HighlightSpan{
				Start: base + span.Start,
				End:   base + span.End,
				Term:  span.Term,
			}
			if isJunctionDuplicate(report.Highlights, global, base) {
				continue
			}
			report.Highlights = append(report.Highlights, global)
		}
	}

	report.Narrative = sb.String()
	report.OverallSeverity = overall
	return report
}

// isJunctionDuplicate drops a span that repeats the previous chunk's last
// term right across the junction between the two chunks. base is the merged
// offset where the current chunk's narrative begins: the check applies only
// when the previous span sits in an earlier chunk, so a term legitimately
// repeated within one chunk keeps both highlights.
func isJunctionDuplicate(spans []models.HighlightSpan, next models.HighlightSpan, base int) bool {
	if len(spans) == 0 {
		return false
	}
	prev := spans[len(spans)-1]
	if prev.End > base {
		return false
	}
	if !strings.EqualFold(prev.Term, next.Term) {
		return false
	}
	return next.Start-prev.End <= len(severitySeparator)
}

// buildReport assembles the report for a finished run.
func (m *Manager) buildReport(r *run) *models.AnalysisReport {
	r.mu.Lock()
	results := make([]models.ChunkResult, len(r.results))
	copy(results, r.results)
	r.mu.Unlock()

	return BuildReport(r.id, r.document, r.target, results)
}
