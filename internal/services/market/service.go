// Package market validates analysis targets against the EODHD universe and
// serves the dashboard collaborators: index snapshot and company-specific
// impact assessments grounded in the latest completed regulatory analysis.
package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bobmcallan/regradar/internal/common"
	"github.com/bobmcallan/regradar/internal/interfaces"
	"github.com/bobmcallan/regradar/internal/models"
)

const validatedTickerCacheSize = 512

// Service implements MarketService.
type Service struct {
	eodhd   interfaces.EODHDClient
	gemini  interfaces.GeminiClient
	context interfaces.ReportContextProvider
	logger  *common.Logger
	config  common.AnalysisConfig

	// validated caches resolved targets so repeat analyses of the same
	// ticker skip the search round-trip.
	validated *lru.Cache[string, *models.AnalysisTarget]
}

// NewService creates a new market service. The report context provider is
// wired after construction to break the cycle with the analysis service.
func NewService(
	eodhd interfaces.EODHDClient,
	gemini interfaces.GeminiClient,
	logger *common.Logger,
	config common.AnalysisConfig,
) (*Service, error) {
	cache, err := lru.New[string, *models.AnalysisTarget](validatedTickerCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create ticker cache: %w", err)
	}

	return &Service{
		eodhd:     eodhd,
		gemini:    gemini,
		logger:    logger,
		config:    config,
		validated: cache,
	}, nil
}

// SetContextProvider wires the source of latest-report context.
func (s *Service) SetContextProvider(provider interfaces.ReportContextProvider) {
	s.context = provider
}

// ValidateTicker resolves a ticker symbol to a validated target. A symbol
// is valid only when the search returns an exact code match.
func (s *Service) ValidateTicker(ctx context.Context, symbol string) (*models.AnalysisTarget, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("empty ticker: %w", models.ErrInvalidTarget)
	}
	if s.eodhd == nil {
		return nil, fmt.Errorf("no market data provider configured: %w", models.ErrInvalidTarget)
	}

	if target, ok := s.validated.Get(symbol); ok {
		return target, nil
	}

	matches, err := s.eodhd.SearchTicker(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("ticker lookup %q: %w", symbol, err)
	}

	for _, match := range matches {
		if !strings.EqualFold(match.Code, symbol) {
			continue
		}
		target := &models.AnalysisTarget{
			Ticker:   strings.ToUpper(match.Code),
			Name:     match.Name,
			Exchange: match.Exchange,
		}
		s.validated.Add(symbol, target)
		s.logger.Debug().
			Str("ticker", target.Ticker).
			Str("name", target.Name).
			Msg("Validated analysis target")
		return target, nil
	}

	return nil, fmt.Errorf("ticker %q: %w", symbol, models.ErrInvalidTarget)
}

// GetIndexOverview returns the configured market index snapshot. A quote
// failure degrades to a static snapshot rather than failing the dashboard.
func (s *Service) GetIndexOverview(ctx context.Context) (*models.IndexSnapshot, error) {
	symbol := s.config.IndexSymbol
	if symbol == "" {
		symbol = "GSPC.INDX"
	}

	if s.eodhd == nil {
		return &models.IndexSnapshot{
			Symbol: symbol,
			Source: "fallback",
			AsOf:   time.Now(),
		}, nil
	}

	quote, err := s.eodhd.GetRealTimeQuote(ctx, symbol)
	if err != nil {
		s.logger.Warn().Str("symbol", symbol).Err(err).Msg("Index quote unavailable, using fallback")
		return &models.IndexSnapshot{
			Symbol: symbol,
			Source: "fallback",
			AsOf:   time.Now(),
		}, nil
	}

	return &models.IndexSnapshot{
		Symbol:    symbol,
		Price:     quote.Close,
		Change:    quote.Change,
		ChangePct: quote.ChangePct,
		Source:    "eodhd",
		AsOf:      time.Unix(quote.Timestamp, 0),
	}, nil
}

// CompanyImpact generates an AI impact assessment for one company, grounded
// in the latest completed regulatory analysis when one exists.
func (s *Service) CompanyImpact(ctx context.Context, symbol string) (*models.CompanyImpact, error) {
	if s.gemini == nil {
		return nil, fmt.Errorf("no AI provider configured: %w", models.ErrAnalysisFailed)
	}

	target, err := s.ValidateTicker(ctx, symbol)
	if err != nil {
		return nil, err
	}

	impact := &models.CompanyImpact{
		Target:      *target,
		GeneratedAt: time.Now(),
	}

	if quote, err := s.eodhd.GetRealTimeQuote(ctx, target.Ticker); err == nil {
		impact.Price = quote.Close
		impact.ChangePct = quote.ChangePct
	} else {
		s.logger.Warn().Str("ticker", target.Ticker).Err(err).Msg("Company quote unavailable")
	}

	regulationContext := ""
	if s.context != nil {
		regulationContext = s.context.LatestReportSummary()
	}
	impact.ContextUsed = regulationContext != ""

	assessment, err := s.gemini.GenerateContent(ctx, buildImpactPrompt(target, regulationContext))
	if err != nil {
		return nil, fmt.Errorf("company impact for %s: %w", target.Ticker, err)
	}
	impact.Assessment = strings.TrimSpace(assessment)

	return impact, nil
}

// buildImpactPrompt frames the company assessment. Without prior analysis
// context the model is asked for a general regulatory exposure overview.
func buildImpactPrompt(target *models.AnalysisTarget, regulationContext string) string {
	var sb strings.Builder
	sb.WriteString("You are a financial analyst assessing regulatory impact.\n\n")
	fmt.Fprintf(&sb, "Company: %s (%s, %s)\n\n", target.Name, target.Ticker, target.Exchange)

	if regulationContext != "" {
		sb.WriteString("Recent regulatory analysis findings:\n")
		sb.WriteString(regulationContext)
		sb.WriteString("\n\nBased on these findings, assess the likely impact on this company. ")
	} else {
		sb.WriteString("No recent regulatory analysis is available. ")
		sb.WriteString("Give a general overview of this company's regulatory exposure. ")
	}

	sb.WriteString("Keep the assessment under 200 words and be specific about business segments affected.")
	return sb.String()
}

// Ensure Service implements MarketService
var _ interfaces.MarketService = (*Service)(nil)
