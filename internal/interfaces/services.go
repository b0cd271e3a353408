// Package interfaces defines service contracts for Regradar
package interfaces

import (
	"context"

	"github.com/bobmcallan/regradar/internal/models"
)

// AnalysisService drives chunked regulatory document analysis runs.
type AnalysisService interface {
	// StartAnalysis validates the target, chunks the document, and launches
	// the run in the background. Returns immediately with the run ID and the
	// number of chunks queued.
	StartAnalysis(ctx context.Context, doc models.Document, ticker string) (runID string, chunksTotal int, err error)

	// GetProgress returns the current progress for a run.
	// Returns models.ErrUnknownRun for unrecognized IDs.
	GetProgress(runID string) (*models.Progress, error)

	// GetReport returns the finished report. Returns models.ErrReportPending
	// while the run is in flight; the run is discarded from the registry once
	// its report has been retrieved.
	GetReport(runID string) (*models.AnalysisReport, error)

	// Cancel aborts an in-flight run. Cancellation is terminal: no partial
	// report is produced.
	Cancel(runID string) error

	// LatestReportSummary returns a short summary of the most recently
	// completed report, or "" when none exists. Used as regulation context
	// for company impact queries; held in memory only.
	LatestReportSummary() string
}

// TargetValidator checks that a ticker refers to a real listed company
// before any AI cost is incurred.
type TargetValidator interface {
	// ValidateTicker resolves a ticker symbol to a validated target.
	// Returns models.ErrInvalidTarget when the symbol is unknown.
	ValidateTicker(ctx context.Context, symbol string) (*models.AnalysisTarget, error)
}

// MarketService serves the dashboard collaborators: index snapshot and
// company-specific impact assessments.
type MarketService interface {
	TargetValidator

	// GetIndexOverview returns the configured market index snapshot.
	GetIndexOverview(ctx context.Context) (*models.IndexSnapshot, error)

	// CompanyImpact generates an AI impact assessment for one company using
	// the latest completed regulatory analysis as context.
	CompanyImpact(ctx context.Context, symbol string) (*models.CompanyImpact, error)
}

// ReportContextProvider supplies regulation context from completed runs.
// Implemented by the analysis service; consumed by the market service.
type ReportContextProvider interface {
	LatestReportSummary() string
}
