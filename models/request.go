package models

import "strings"

// AnalysisContext selects the base weighting profile for a request
type AnalysisContext string

const (
	ContextInvestment AnalysisContext = "investment"
	ContextTrading    AnalysisContext = "trading"
)

// Valid reports whether c is a known context
func (c AnalysisContext) Valid() bool {
	return c == ContextInvestment || c == ContextTrading
}

// Timeframe is the trading horizon. Only meaningful when the context is trading.
type Timeframe string

const (
	Timeframe1D Timeframe = "1D"
	Timeframe1W Timeframe = "1W"
	Timeframe1M Timeframe = "1M"
	Timeframe3M Timeframe = "3M"
	Timeframe6M Timeframe = "6M"
	Timeframe1Y Timeframe = "1Y"
)

// Timeframes lists every supported horizon from shortest to longest
var Timeframes = []Timeframe{Timeframe1D, Timeframe1W, Timeframe1M, Timeframe3M, Timeframe6M, Timeframe1Y}

// Valid reports whether t is a known timeframe
func (t Timeframe) Valid() bool {
	for _, tf := range Timeframes {
		if t == tf {
			return true
		}
	}
	return false
}

// IsShort reports whether the horizon is short enough for technical noise to dominate
func (t Timeframe) IsShort() bool {
	return t == Timeframe1D || t == Timeframe1W
}

// AnalysisRequest is an accepted analysis request. Treat it as immutable once built.
type AnalysisRequest struct {
	Ticker    string          `json:"ticker"`
	Context   AnalysisContext `json:"context"`
	Timeframe Timeframe       `json:"trading_timeframe,omitempty"`
}

// NewAnalysisRequest normalises the ticker and drops a timeframe that has no
// meaning outside the trading context, so equivalent requests share cache keys.
func NewAnalysisRequest(ticker string, ctx AnalysisContext, timeframe Timeframe) AnalysisRequest {
	req := AnalysisRequest{
		Ticker:    strings.ToUpper(strings.TrimSpace(ticker)),
		Context:   ctx,
		Timeframe: timeframe,
	}
	if ctx != ContextTrading {
		req.Timeframe = ""
	}
	return req
}

// HasTimeframe reports whether a trading horizon applies to this request
func (r AnalysisRequest) HasTimeframe() bool {
	return r.Context == ContextTrading && r.Timeframe != ""
}
