package app

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// registerTools registers all MCP tools on the App's MCPServer.
func (a *App) registerTools() {
	s := a.MCPServer
	logger := a.Logger

	s.AddTool(createGetVersionTool(), handleGetVersion())
	s.AddTool(createAnalyzeDocumentTool(), handleAnalyzeDocument(a.AnalysisManager, logger))
	s.AddTool(createGetProgressTool(), handleGetProgress(a.AnalysisManager, logger))
	s.AddTool(createGetReportTool(), handleGetReport(a.AnalysisManager, logger))
	s.AddTool(createCancelAnalysisTool(), handleCancelAnalysis(a.AnalysisManager, logger))
	s.AddTool(createCompanyImpactTool(), handleCompanyImpact(a.MarketService, logger))
	s.AddTool(createMarketOverviewTool(), handleMarketOverview(a.MarketService, logger))
}

// createGetVersionTool returns the get_version tool definition
func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the Regradar MCP server version and status. Use this to verify connectivity."),
	)
}

// createAnalyzeDocumentTool returns the analyze_document tool definition
func createAnalyzeDocumentTool() mcp.Tool {
	return mcp.NewTool("analyze_document",
		mcp.WithDescription("Start a chunked AI analysis of a regulatory document against a target company. Returns a run ID immediately; poll get_progress and fetch the report with get_report."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The document content: HTML, XML, or plain text"),
		),
		mcp.WithString("ticker",
			mcp.Required(),
			mcp.Description("Target company ticker with exchange suffix (e.g., 'AAPL.US', 'BHP.AU')"),
		),
		mcp.WithString("format",
			mcp.Description("Document format: 'markup' for HTML/XML, 'plain' for text/markdown (default: plain)"),
		),
		mcp.WithString("name",
			mcp.Description("Document name for the report header (default: 'document')"),
		),
	)
}

// createGetProgressTool returns the get_progress tool definition
func createGetProgressTool() mcp.Tool {
	return mcp.NewTool("get_progress",
		mcp.WithDescription("Get the progress of a running analysis: chunks completed, average chunk latency, and estimated time remaining."),
		mcp.WithString("run_id",
			mcp.Required(),
			mcp.Description("The run ID returned by analyze_document"),
		),
	)
}

// createGetReportTool returns the get_report tool definition
func createGetReportTool() mcp.Tool {
	return mcp.NewTool("get_report",
		mcp.WithDescription("Retrieve the finished analysis report: merged narrative, overall severity, and highlighted regulatory terms. The run is discarded after retrieval."),
		mcp.WithString("run_id",
			mcp.Required(),
			mcp.Description("The run ID returned by analyze_document"),
		),
	)
}

// createCancelAnalysisTool returns the cancel_analysis tool definition
func createCancelAnalysisTool() mcp.Tool {
	return mcp.NewTool("cancel_analysis",
		mcp.WithDescription("Cancel an in-flight analysis run. Cancellation is terminal: no partial report is produced."),
		mcp.WithString("run_id",
			mcp.Required(),
			mcp.Description("The run ID returned by analyze_document"),
		),
	)
}

// createCompanyImpactTool returns the company_impact tool definition
func createCompanyImpactTool() mcp.Tool {
	return mcp.NewTool("company_impact",
		mcp.WithDescription("Generate an AI impact assessment for one company, grounded in the most recently completed regulatory analysis."),
		mcp.WithString("ticker",
			mcp.Required(),
			mcp.Description("Company ticker with exchange suffix (e.g., 'AAPL.US')"),
		),
	)
}

// createMarketOverviewTool returns the market_overview tool definition
func createMarketOverviewTool() mcp.Tool {
	return mcp.NewTool("market_overview",
		mcp.WithDescription("Get the configured market index snapshot: price, change, and change percent."),
	)
}
