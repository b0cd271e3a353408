package models

import "time"

// TickerMatch is one candidate returned by the EODHD search endpoint.
type TickerMatch struct {
	Code     string `json:"Code"`
	Exchange string `json:"Exchange"`
	Name     string `json:"Name"`
	Country  string `json:"Country"`
	Currency string `json:"Currency"`
}

// RealTimeQuote is a delayed real-time quote from EODHD.
type RealTimeQuote struct {
	Code          string  `json:"code"`
	Close         float64 `json:"close"`
	PreviousClose float64 `json:"previousClose"`
	Change        float64 `json:"change"`
	ChangePct     float64 `json:"change_p"`
	Volume        int64   `json:"volume"`
	Timestamp     int64   `json:"timestamp"`
}

// IndexSnapshot is the dashboard view of a market index.
type IndexSnapshot struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change    float64   `json:"change"`
	ChangePct float64   `json:"change_percent"`
	Source    string    `json:"source"` // "eodhd" or "fallback"
	AsOf      time.Time `json:"as_of"`
}

// CompanyImpact is the AI-generated company-specific impact assessment,
// grounded in the most recent completed regulatory analysis.
type CompanyImpact struct {
	Target      AnalysisTarget `json:"target"`
	Price       float64        `json:"price,omitempty"`
	ChangePct   float64        `json:"change_percent,omitempty"`
	Assessment  string         `json:"assessment"`
	ContextUsed bool           `json:"context_used"` // false when no prior report was available
	GeneratedAt time.Time      `json:"generated_at"`
}
