// Package synthesis combines the three producer results into one weighted
// score, a recommendation and a structured report.
//
// Synthesis is a pure function of its inputs: the same request and results
// always produce an identical SynthesisResult.
package synthesis

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"tradelens/config"
	"tradelens/models"
)

// ErrContractViolation is returned for inputs that bypassed the adapter
// contract. It is a programming error and is never retried.
var ErrContractViolation = errors.New("analysis result contract violation")

// Score adjustment applied per unit of net sentiment
const netSentimentScale = 5

// Confidence bounds and spread penalty
const (
	minConfidence           = 0.1
	maxConfidence           = 1.0
	confidenceSpreadPenalty = 0.2
)

// Synthesizer computes SynthesisResults. It holds no mutable state and is
// safe for concurrent use.
type Synthesizer struct {
	investment weights
	trading    weights
	themes     *themeMatcher
	strategy   RecommendationStrategy
}

// Option configures a Synthesizer
type Option func(*Synthesizer)

// WithStrategy overrides the recommendation strategy
func WithStrategy(strategy RecommendationStrategy) Option {
	return func(s *Synthesizer) {
		s.strategy = strategy
	}
}

// NewSynthesizer creates a Synthesizer from synthesis configuration and a theme table
func NewSynthesizer(cfg config.SynthesisConfig, themes []config.Theme, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		investment: fromConfig(cfg.InvestmentWeights),
		trading:    fromConfig(cfg.TradingWeights),
		themes:     newThemeMatcher(themes),
		strategy:   StrategyFromName(cfg.Strategy),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// input is one producer's result in report order
type input struct {
	name   models.ProducerName
	result *models.AnalysisResult
}

// Synthesize combines the three producer results for req
func (s *Synthesizer) Synthesize(req models.AnalysisRequest, fundamental, technical, sentimentEco *models.AnalysisResult) (*models.SynthesisResult, error) {
	in := []input{
		{name: models.ProducerFundamental, result: fundamental},
		{name: models.ProducerTechnical, result: technical},
		{name: models.ProducerSentimentEco, result: sentimentEco},
	}
	if err := validate(req, in); err != nil {
		return nil, err
	}

	w := s.weightsFor(req)

	weighted, total := 0.0, 0.0
	for _, item := range in {
		weighted += float64(item.result.Score) * w.get(item.name)
		total += w.get(item.name)
	}
	raw := weighted / total

	convergence := s.detectConvergence(in)
	divergence := detectDivergence(req, in)

	net := 0.0
	for _, c := range convergence {
		net += c.Weight
	}
	for _, d := range divergence {
		net -= d.Weight
	}

	adjusted := (raw + net*netSentimentScale) * scoreMultiplier(req)
	score := int(math.Round(clamp(adjusted, 0, 100)))

	confidence := s.confidence(in, w)
	recommendation := s.strategy.DetermineAction(score, confidence)

	result := &models.SynthesisResult{
		SynthesisScore:     score,
		Recommendation:     recommendation,
		ConvergenceFactors: convergence,
		DivergenceFactors:  divergence,
		Confidence:         confidence,
	}
	result.FullReport = buildReport(req, in, w, raw, net, result)
	return result, nil
}

// confidence is the weighted mean producer confidence less a spread penalty
func (s *Synthesizer) confidence(in []input, w weights) float64 {
	weighted, total := 0.0, 0.0
	for _, item := range in {
		weighted += item.result.Confidence * w.get(item.name)
		total += w.get(item.name)
	}
	hi, lo := extremes(in, func(r *models.AnalysisResult) float64 { return r.Confidence })
	spread := in[hi].result.Confidence - in[lo].result.Confidence

	c := weighted/total - confidenceSpreadPenalty*spread
	return round4(clamp(c, minConfidence, maxConfidence))
}

func validate(req models.AnalysisRequest, in []input) error {
	if !req.Context.Valid() {
		return fmt.Errorf("%w: unknown context %q", ErrContractViolation, req.Context)
	}
	degraded := 0
	for _, item := range in {
		if item.result == nil {
			return fmt.Errorf("%w: %s result is missing", ErrContractViolation, item.name)
		}
		if err := item.result.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrContractViolation, item.name, err)
		}
		if item.result.Degraded {
			degraded++
		}
	}
	if len(in)-degraded < 2 {
		return fmt.Errorf("%w: only %d live results", ErrContractViolation, len(in)-degraded)
	}
	return nil
}

func resultOf(in []input, name models.ProducerName) *models.AnalysisResult {
	for _, item := range in {
		if item.name == name {
			return item.result
		}
	}
	return nil
}

func scoresOf(in []input) []float64 {
	scores := make([]float64, len(in))
	for i, item := range in {
		scores[i] = float64(item.result.Score)
	}
	return scores
}

func namesOf(in []input) []models.ProducerName {
	names := make([]models.ProducerName, len(in))
	for i, item := range in {
		names[i] = item.name
	}
	return names
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// stdDev is the population standard deviation
func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	variance := 0.0
	for _, v := range values {
		variance += (v - m) * (v - m)
	}
	return math.Sqrt(variance / float64(len(values)))
}

func allAtLeast(values []float64, floor float64) bool {
	for _, v := range values {
		if v < floor {
			return false
		}
	}
	return true
}

func allAtMost(values []float64, ceiling float64) bool {
	for _, v := range values {
		if v > ceiling {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

func round4(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(4).Float64()
	return f
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func joinNames(names []models.ProducerName) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	if len(parts) <= 2 {
		return strings.Join(parts, " and ")
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}
