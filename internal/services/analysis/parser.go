package analysis

import (
	"strings"

	"github.com/bobmcallan/regradar/internal/models"
)

// parseChunkResponse extracts the severity and impact narrative from the
// model's semi-structured response. The response is untrusted: anything
// that does not carry a recognizable SEVERITY line degrades the chunk
// rather than guessing. Returns ok=false for the degraded fallback.
func parseChunkResponse(index int, raw string) (models.ChunkResult, bool) {
	var severity models.Severity
	severityFound := false
	var impact []string
	inImpact := false

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)

		switch {
		case !severityFound && strings.HasPrefix(upper, "SEVERITY:"):
			token := strings.ToLower(strings.TrimSpace(trimmed[len("SEVERITY:"):]))
			token = strings.Trim(token, ".*`")
			if s, ok := models.ParseSeverity(token); ok {
				severity = s
				severityFound = true
			}

		case strings.HasPrefix(upper, "IMPACT:"):
			inImpact = true
			if rest := strings.TrimSpace(trimmed[len("IMPACT:"):]); rest != "" {
				impact = append(impact, rest)
			}

		case inImpact && trimmed != "":
			impact = append(impact, trimmed)
		}
	}

	if !severityFound {
		return degradedResult(index), false
	}

	narrative := strings.TrimSpace(strings.Join(impact, " "))
	if narrative == "" {
		// Tolerate a missing IMPACT label: use everything after the
		// severity line.
		if i := strings.Index(strings.ToUpper(raw), "SEVERITY:"); i >= 0 {
			if nl := strings.IndexByte(raw[i:], '\n'); nl >= 0 {
				narrative = strings.TrimSpace(raw[i+nl:])
			}
		}
	}
	if narrative == "" {
		return degradedResult(index), false
	}

	return models.ChunkResult{
		Index:    index,
		Impact:   narrative,
		Severity: severity,
	}, true
}

// degradedResult is the placeholder carried by a chunk whose analysis
// could not be obtained.
func degradedResult(index int) models.ChunkResult {
	return models.ChunkResult{
		Index:    index,
		Impact:   models.DegradedMarker,
		Severity: models.SeverityNone,
		Degraded: true,
	}
}
