package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/regradar/internal/common"
	"github.com/bobmcallan/regradar/internal/interfaces"
	"github.com/bobmcallan/regradar/internal/models"
	"github.com/bobmcallan/regradar/internal/services/analysis"
)

// handleGetVersion implements the get_version tool
func handleGetVersion() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := fmt.Sprintf("Regradar MCP Server\nVersion: %s\nBuild: %s\nCommit: %s\nStatus: OK",
			common.GetVersion(), common.GetBuild(), common.GetGitCommit())
		return textResult(result), nil
	}
}

// handleAnalyzeDocument implements the analyze_document tool
func handleAnalyzeDocument(manager *analysis.Manager, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("text")
		if err != nil || text == "" {
			return errorResult("Error: text parameter is required"), nil
		}

		ticker, err := request.RequireString("ticker")
		if err != nil || ticker == "" {
			return errorResult("Error: ticker parameter is required"), nil
		}

		format := models.FormatPlain
		if request.GetString("format", "plain") == "markup" {
			format = models.FormatMarkup
		}

		name := request.GetString("name", "document")

		doc := models.Document{
			Name:   name,
			Format: format,
			Data:   []byte(text),
		}

		runID, chunksTotal, err := manager.StartAnalysis(ctx, doc, ticker)
		if err != nil {
			logger.Error().Err(err).Str("ticker", ticker).Msg("Analysis start failed")
			return errorResult(fmt.Sprintf("Analysis error: %v", err)), nil
		}

		return textResult(fmt.Sprintf("Analysis started.\nRun ID: %s\nChunks: %d\n\nPoll get_progress with this run ID, then fetch the report with get_report.",
			runID, chunksTotal)), nil
	}
}

// handleGetProgress implements the get_progress tool
func handleGetProgress(manager *analysis.Manager, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		runID, err := request.RequireString("run_id")
		if err != nil || runID == "" {
			return errorResult("Error: run_id parameter is required"), nil
		}

		progress, err := manager.GetProgress(runID)
		if err != nil {
			return errorResult(fmt.Sprintf("Progress error: %v", err)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Run %s: %s\n", progress.RunID, progress.Status)
		fmt.Fprintf(&sb, "Chunks: %d/%d\n", progress.ChunksCompleted, progress.ChunksTotal)
		if progress.ChunksCompleted > 0 && progress.Status == models.RunStatusRunning {
			fmt.Fprintf(&sb, "Avg chunk: %.1fs\n", progress.AvgChunkSeconds)
			fmt.Fprintf(&sb, "Est. remaining: %.0fs\n", progress.EstimatedSecondsRemaining)
		}
		return textResult(sb.String()), nil
	}
}

// handleGetReport implements the get_report tool
func handleGetReport(manager *analysis.Manager, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		runID, err := request.RequireString("run_id")
		if err != nil || runID == "" {
			return errorResult("Error: run_id parameter is required"), nil
		}

		report, err := manager.GetReport(runID)
		if err != nil {
			if errors.Is(err, models.ErrReportPending) {
				return textResult("Analysis still in progress. Poll get_progress and try again."), nil
			}
			logger.Error().Err(err).Str("run_id", runID).Msg("Report retrieval failed")
			return errorResult(fmt.Sprintf("Report error: %v", err)), nil
		}

		return textResult(formatReport(report)), nil
	}
}

// handleCancelAnalysis implements the cancel_analysis tool
func handleCancelAnalysis(manager *analysis.Manager, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		runID, err := request.RequireString("run_id")
		if err != nil || runID == "" {
			return errorResult("Error: run_id parameter is required"), nil
		}

		if err := manager.Cancel(runID); err != nil {
			return errorResult(fmt.Sprintf("Cancel error: %v", err)), nil
		}

		return textResult(fmt.Sprintf("Run %s cancelled.", runID)), nil
	}
}

// handleCompanyImpact implements the company_impact tool
func handleCompanyImpact(marketService interfaces.MarketService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ticker, err := request.RequireString("ticker")
		if err != nil || ticker == "" {
			return errorResult("Error: ticker parameter is required"), nil
		}

		impact, err := marketService.CompanyImpact(ctx, ticker)
		if err != nil {
			logger.Error().Err(err).Str("ticker", ticker).Msg("Company impact failed")
			return errorResult(fmt.Sprintf("Impact error: %v", err)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "# %s (%s)\n\n", impact.Target.Name, impact.Target.Ticker)
		if impact.Price != 0 {
			fmt.Fprintf(&sb, "Price: %.2f (%.2f%%)\n\n", impact.Price, impact.ChangePct)
		}
		sb.WriteString(impact.Assessment)
		if !impact.ContextUsed {
			sb.WriteString("\n\n*No completed regulatory analysis was available as context.*")
		}
		return textResult(sb.String()), nil
	}
}

// handleMarketOverview implements the market_overview tool
func handleMarketOverview(marketService interfaces.MarketService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snapshot, err := marketService.GetIndexOverview(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Market overview failed")
			return errorResult(fmt.Sprintf("Overview error: %v", err)), nil
		}

		return textResult(fmt.Sprintf("%s: %.2f (%+.2f, %+.2f%%) [%s]",
			snapshot.Symbol, snapshot.Price, snapshot.Change, snapshot.ChangePct, snapshot.Source)), nil
	}
}

// formatReport renders an analysis report as markdown for MCP clients.
func formatReport(report *models.AnalysisReport) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Regulatory Impact Report: %s\n\n", report.Target.Name)
	fmt.Fprintf(&sb, "**Document:** %s\n", report.Document)
	fmt.Fprintf(&sb, "**Overall severity:** %s\n", report.OverallSeverity)
	fmt.Fprintf(&sb, "**Segments:** %d analyzed, %d unavailable\n\n",
		len(report.Chunks)-report.DegradedChunks, report.DegradedChunks)

	sb.WriteString(report.Narrative)

	if len(report.Highlights) > 0 {
		seen := make(map[string]bool)
		var terms []string
		for _, h := range report.Highlights {
			key := strings.ToLower(h.Term)
			if !seen[key] {
				seen[key] = true
				terms = append(terms, h.Term)
			}
		}
		fmt.Fprintf(&sb, "\n\n**Regulatory terms found:** %s\n", strings.Join(terms, ", "))
	}

	return sb.String()
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}
