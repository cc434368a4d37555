package synthesis

import (
	"fmt"
	"math"

	"tradelens/models"
)

// Divergence thresholds
const (
	scoreRangeMin       = 30
	scoreRangeMaxWeight = 0.8

	fundamentalTechnicalMin       = 25
	fundamentalTechnicalMaxWeight = 0.7

	timeHorizonGap    = 20
	timeHorizonWeight = 0.6

	confidenceSpreadMin    = 0.4
	confidenceSpreadWeight = 0.4

	epsilon = 1e-9
)

// Divergence categories
const (
	CategoryScoreRange           = "score_range"
	CategoryFundamentalTechnical = "fundamental_technical"
	CategoryTimeHorizon          = "time_horizon"
	CategoryConfidence           = "confidence"
)

func detectDivergence(req models.AnalysisRequest, in []input) []models.DivergenceFactor {
	factors := []models.DivergenceFactor{}

	hi, lo := extremes(in, func(r *models.AnalysisResult) float64 { return float64(r.Score) })
	if spread := in[hi].result.Score - in[lo].result.Score; spread >= scoreRangeMin {
		factors = append(factors, models.DivergenceFactor{
			Category: CategoryScoreRange,
			Description: fmt.Sprintf("Wide score range of %d points between %s (%d) and %s (%d)",
				spread, in[hi].name, in[hi].result.Score, in[lo].name, in[lo].result.Score),
			Weight:              math.Min(scoreRangeMaxWeight, float64(spread)/100),
			ConflictingAnalyses: []models.ProducerName{in[hi].name, in[lo].name},
			Metadata:            map[string]interface{}{"range": spread},
		})
	}

	fundamental := resultOf(in, models.ProducerFundamental)
	technical := resultOf(in, models.ProducerTechnical)
	sentiment := resultOf(in, models.ProducerSentimentEco)

	if diff := abs(fundamental.Score - technical.Score); diff >= fundamentalTechnicalMin {
		direction := "stronger"
		if technical.Score > fundamental.Score {
			direction = "weaker"
		}
		factors = append(factors, models.DivergenceFactor{
			Category: CategoryFundamentalTechnical,
			Description: fmt.Sprintf("Fundamentals are %s than technicals by %d points (%d vs %d)",
				direction, diff, fundamental.Score, technical.Score),
			Weight:              math.Min(fundamentalTechnicalMaxWeight, float64(diff)/100),
			ConflictingAnalyses: []models.ProducerName{models.ProducerFundamental, models.ProducerTechnical},
			Metadata:            map[string]interface{}{"difference": diff},
		})
	}

	if req.HasTimeframe() && req.Timeframe.IsShort() {
		longView := float64(fundamental.Score+sentiment.Score) / 2
		if gap := longView - float64(technical.Score); gap >= timeHorizonGap {
			factors = append(factors, models.DivergenceFactor{
				Category: CategoryTimeHorizon,
				Description: fmt.Sprintf("Short-term technicals (%d) lag the longer-term view (%.1f) over %s",
					technical.Score, longView, req.Timeframe),
				Weight: timeHorizonWeight,
				ConflictingAnalyses: []models.ProducerName{
					models.ProducerTechnical, models.ProducerFundamental, models.ProducerSentimentEco,
				},
				Metadata: map[string]interface{}{"gap": round2(gap), "timeframe": string(req.Timeframe)},
			})
		}
	}

	hi, lo = extremes(in, func(r *models.AnalysisResult) float64 { return r.Confidence })
	if spread := in[hi].result.Confidence - in[lo].result.Confidence; spread >= confidenceSpreadMin-epsilon {
		factors = append(factors, models.DivergenceFactor{
			Category: CategoryConfidence,
			Description: fmt.Sprintf("Confidence varies widely: %s %.0f%% vs %s %.0f%%",
				in[hi].name, in[hi].result.Confidence*100, in[lo].name, in[lo].result.Confidence*100),
			Weight:              confidenceSpreadWeight,
			ConflictingAnalyses: []models.ProducerName{in[hi].name, in[lo].name},
			Metadata:            map[string]interface{}{"spread": round4(spread)},
		})
	}

	return factors
}

// extremes returns the indexes of the highest and lowest value.
// Ties resolve to the earliest producer.
func extremes(in []input, value func(*models.AnalysisResult) float64) (hi, lo int) {
	for i := 1; i < len(in); i++ {
		if value(in[i].result) > value(in[hi].result) {
			hi = i
		}
		if value(in[i].result) < value(in[lo].result) {
			lo = i
		}
	}
	return hi, lo
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
