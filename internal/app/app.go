// Package app wires configuration, clients, and services into one
// application core shared by the server binary and the tests.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/regradar/internal/clients/eodhd"
	"github.com/bobmcallan/regradar/internal/clients/gemini"
	"github.com/bobmcallan/regradar/internal/common"
	"github.com/bobmcallan/regradar/internal/interfaces"
	"github.com/bobmcallan/regradar/internal/services/analysis"
	"github.com/bobmcallan/regradar/internal/services/market"
)

// App holds all initialized services, clients, and the MCP server.
type App struct {
	Config          *common.Config
	Logger          *common.Logger
	EODHDClient     interfaces.EODHDClient
	GeminiClient    interfaces.GeminiClient
	AnalysisManager *analysis.Manager
	MarketService   interfaces.MarketService
	MCPServer       *server.MCPServer
	StartupTime     time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes configuration, clients, services, and the MCP server.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	// Local .env for development; absent in production
	_ = godotenv.Load()

	binDir := getBinaryDir()

	// Load configuration - check provided path, REGRADAR_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("REGRADAR_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "regradar.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/regradar.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLogger(config.Logging.Level)

	ctx := context.Background()

	eodhdKey, err := common.ResolveAPIKey("eodhd_api_key", config.Clients.EODHD.APIKey)
	if err != nil {
		logger.Warn().Msg("EODHD API key not configured - ticker validation and quotes will be unavailable")
	}

	geminiKey, err := common.ResolveAPIKey("gemini_api_key", config.Clients.Gemini.APIKey)
	if err != nil {
		logger.Warn().Msg("Gemini API key not configured - AI analysis will be unavailable")
	}

	a := &App{
		Config:      config,
		Logger:      logger,
		StartupTime: startupStart,
	}

	if eodhdKey != "" {
		a.EODHDClient = eodhd.NewClient(eodhdKey,
			eodhd.WithBaseURL(config.Clients.EODHD.BaseURL),
			eodhd.WithLogger(logger),
			eodhd.WithRateLimit(config.Clients.EODHD.RateLimit),
			eodhd.WithTimeout(config.Clients.EODHD.GetTimeout()),
		)
	}

	if geminiKey != "" {
		geminiClient, err := gemini.NewClient(ctx, geminiKey,
			gemini.WithLogger(logger),
			gemini.WithModel(config.Clients.Gemini.Model),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
		} else {
			a.GeminiClient = geminiClient
		}
	}

	marketService, err := market.NewService(a.EODHDClient, a.GeminiClient, logger, config.Analysis)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize market service: %w", err)
	}
	a.MarketService = marketService

	a.AnalysisManager = analysis.NewManager(a.GeminiClient, marketService, logger, config.Analysis)
	marketService.SetContextProvider(a.AnalysisManager)

	a.MCPServer = server.NewMCPServer(
		"regradar",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)
	a.registerTools()

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// Start launches the analysis manager's background loops.
func (a *App) Start() {
	a.AnalysisManager.Start()
}

// Close releases all resources held by the App. In-flight analysis runs
// are cancelled and waited for.
func (a *App) Close() {
	if a.AnalysisManager != nil {
		a.AnalysisManager.Stop()
	}
}
