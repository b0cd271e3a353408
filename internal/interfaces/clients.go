// Package interfaces defines service contracts for Regradar
package interfaces

import (
	"context"

	"github.com/bobmcallan/regradar/internal/models"
)

// GeminiClient provides access to the Gemini API
type GeminiClient interface {
	// GenerateContent generates AI content from a prompt
	GenerateContent(ctx context.Context, prompt string) (string, error)

	// AnalyzeChunk asks the model to classify the regulatory impact of one
	// document chunk on the target company. The response is semi-structured
	// text; the analysis service parses it into a ChunkResult.
	AnalyzeChunk(ctx context.Context, target models.AnalysisTarget, chunk models.Chunk, totalChunks int) (string, error)
}

// EODHDClient provides access to the EODHD API
type EODHDClient interface {
	// SearchTicker looks up candidate tickers matching a query
	SearchTicker(ctx context.Context, query string) ([]*models.TickerMatch, error)

	// GetRealTimeQuote retrieves a delayed real-time quote
	GetRealTimeQuote(ctx context.Context, ticker string) (*models.RealTimeQuote, error)
}
