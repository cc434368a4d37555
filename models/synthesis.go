package models

import "github.com/shopspring/decimal"

// Recommendation is the label derived from the final score
type Recommendation string

const (
	RecommendationBuy  Recommendation = "BUY"
	RecommendationSell Recommendation = "SELL"
	RecommendationHold Recommendation = "HOLD"
)

// ConvergenceFactor records that several producers agree
type ConvergenceFactor struct {
	Category           string                 `json:"category"`
	Description        string                 `json:"description"`
	Weight             float64                `json:"weight"`
	SupportingAnalyses []ProducerName         `json:"supporting_analyses"`
	Metadata           map[string]interface{} `json:"metadata,omitempty"`
}

// DivergenceFactor records that producers disagree
type DivergenceFactor struct {
	Category            string                 `json:"category"`
	Description         string                 `json:"description"`
	Weight              float64                `json:"weight"`
	ConflictingAnalyses []ProducerName         `json:"conflicting_analyses"`
	Metadata            map[string]interface{} `json:"metadata,omitempty"`
}

// ProducerSummary is the per-producer section of the report
type ProducerSummary struct {
	Score      int     `json:"score"`
	Confidence float64 `json:"confidence"`
	Summary    string  `json:"summary"`
	Degraded   bool    `json:"degraded,omitempty"`
}

// WeightSet holds one weight per producer
type WeightSet struct {
	Fundamental  decimal.Decimal `json:"fundamental"`
	Technical    decimal.Decimal `json:"technical"`
	SentimentEco decimal.Decimal `json:"sentiment_eco"`
}

// FullReport is the structured report attached to a synthesis
type FullReport struct {
	Ticker             string              `json:"ticker"`
	Context            AnalysisContext     `json:"context"`
	Timeframe          Timeframe           `json:"timeframe,omitempty"`
	Fundamental        ProducerSummary     `json:"fundamental"`
	Technical          ProducerSummary     `json:"technical"`
	SentimentEco       ProducerSummary     `json:"sentiment_eco"`
	Weights            WeightSet           `json:"weights"`
	RawScore           decimal.Decimal     `json:"raw_score"`
	NetSentiment       decimal.Decimal     `json:"net_sentiment"`
	Recommendation     Recommendation      `json:"recommendation"`
	ConvergenceFactors []ConvergenceFactor `json:"convergence_factors"`
	DivergenceFactors  []DivergenceFactor  `json:"divergence_factors"`
	Limitations        []string            `json:"limitations"`
	KeyEcos            []KeyEco            `json:"key_ecos"`
}

// SynthesisResult is the terminal artifact of one analysis
type SynthesisResult struct {
	SynthesisScore     int                 `json:"synthesis_score"`
	Recommendation     Recommendation      `json:"recommendation"`
	ConvergenceFactors []ConvergenceFactor `json:"convergence_factors"`
	DivergenceFactors  []DivergenceFactor  `json:"divergence_factors"`
	Confidence         float64             `json:"confidence"`
	FullReport         FullReport          `json:"full_report"`
}

// KeyEco is a headline-level sentiment/ecosystem signal surfaced to callers
type KeyEco struct {
	Source    string `json:"source"`
	Headline  string `json:"headline"`
	Sentiment string `json:"sentiment"`
}
