package models

import "errors"

// Sentinel errors for the analysis pipeline. Handlers map these to HTTP
// status codes; services wrap them with context via fmt.Errorf and %w.
var (
	// ErrUnsupportedFormat is returned when the declared document format
	// cannot be parsed by the text extractor.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrEmptyDocument is returned when extraction yields no analyzable text.
	ErrEmptyDocument = errors.New("document contains no analyzable text")

	// ErrChunking indicates a chunker configuration problem (max chunk size
	// below the minimum possible unit). This is an operator error, not a
	// document error.
	ErrChunking = errors.New("invalid chunking configuration")

	// ErrInvalidTarget is returned when the target ticker fails validation.
	// No AI calls are issued for an invalid target.
	ErrInvalidTarget = errors.New("unknown or invalid ticker")

	// ErrAnalysisFailed marks a non-retryable provider failure (bad
	// credentials, malformed request). The whole run is aborted.
	ErrAnalysisFailed = errors.New("analysis provider rejected the request")

	// ErrUnknownRun is returned for run IDs not present in the registry.
	ErrUnknownRun = errors.New("unknown analysis run")

	// ErrReportPending is returned when a report is requested before the
	// run has completed.
	ErrReportPending = errors.New("analysis still in progress")

	// ErrRunCancelled is returned when a report is requested for a run
	// that was cancelled. Cancellation is terminal: no partial report.
	ErrRunCancelled = errors.New("analysis run was cancelled")
)
