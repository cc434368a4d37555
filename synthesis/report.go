package synthesis

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"tradelens/models"
)

const (
	maxSummaryFactors       = 2
	maxKeyEcos              = 5
	lowConfidenceThreshold  = 0.5
	lowProducerConfidence   = 0.3
	majorDivergenceWeight   = 0.7
	summaryMetadataKey      = "summary"
	keyEcosMetadataKey      = "key_ecos"
	defaultKeyEcoSourceName = "sentiment_eco"
)

var producerTitles = map[models.ProducerName]string{
	models.ProducerFundamental:  "Fundamental",
	models.ProducerTechnical:    "Technical",
	models.ProducerSentimentEco: "Sentiment/ESG",
}

func buildReport(req models.AnalysisRequest, in []input, w weights, raw, net float64, result *models.SynthesisResult) models.FullReport {
	report := models.FullReport{
		Ticker:         req.Ticker,
		Context:        req.Context,
		Recommendation: result.Recommendation,
		Weights: models.WeightSet{
			Fundamental:  decimal.NewFromFloat(w.fundamental).Round(4),
			Technical:    decimal.NewFromFloat(w.technical).Round(4),
			SentimentEco: decimal.NewFromFloat(w.sentimentEco).Round(4),
		},
		RawScore:           decimal.NewFromFloat(raw).Round(2),
		NetSentiment:       decimal.NewFromFloat(net).Round(2),
		ConvergenceFactors: result.ConvergenceFactors,
		DivergenceFactors:  result.DivergenceFactors,
		Limitations:        limitations(req, in, result),
		KeyEcos:            keyEcos(resultOf(in, models.ProducerSentimentEco)),
	}
	if req.HasTimeframe() {
		report.Timeframe = req.Timeframe
	}

	report.Fundamental = summarize(models.ProducerFundamental, resultOf(in, models.ProducerFundamental))
	report.Technical = summarize(models.ProducerTechnical, resultOf(in, models.ProducerTechnical))
	report.SentimentEco = summarize(models.ProducerSentimentEco, resultOf(in, models.ProducerSentimentEco))
	return report
}

func summarize(name models.ProducerName, r *models.AnalysisResult) models.ProducerSummary {
	summary := models.ProducerSummary{
		Score:      r.Score,
		Confidence: r.Confidence,
		Degraded:   r.Degraded,
	}

	if r.Degraded {
		summary.Summary = fmt.Sprintf("%s analysis unavailable; a neutral score of %d was used.", producerTitles[name], r.Score)
		return summary
	}
	if s, ok := r.Metadata[summaryMetadataKey].(string); ok && strings.TrimSpace(s) != "" {
		summary.Summary = strings.TrimSpace(s)
		return summary
	}

	text := fmt.Sprintf("%s analysis is %s at %d/100 (confidence %.0f%%).",
		producerTitles[name], outlook(r.Score), r.Score, r.Confidence*100)
	if top := topFactors(r.Factors, maxSummaryFactors); len(top) > 0 {
		text += " Key factors: " + strings.Join(top, "; ") + "."
	}
	summary.Summary = text
	return summary
}

func outlook(score int) string {
	switch {
	case score >= 70:
		return "bullish"
	case score >= 55:
		return "moderately bullish"
	case score > 45:
		return "neutral"
	case score > 30:
		return "moderately bearish"
	default:
		return "bearish"
	}
}

// topFactors returns the descriptions of the n most influential factors.
// Equal influence keeps producer order.
func topFactors(factors []models.Factor, n int) []string {
	idx := make([]int, len(factors))
	for i := range idx {
		idx[i] = i
	}
	influence := func(f models.Factor) float64 { return f.Weight * f.Confidence }
	// insertion sort keeps ties stable
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && influence(factors[idx[j]]) > influence(factors[idx[j-1]]); j-- {
			idx[j], idx[j-1] = idx[j-1], idx[j]
		}
	}

	var out []string
	for _, i := range idx {
		if len(out) == n {
			break
		}
		if d := strings.TrimSpace(factors[i].Description); d != "" {
			out = append(out, d)
		}
	}
	return out
}

func limitations(req models.AnalysisRequest, in []input, result *models.SynthesisResult) []string {
	out := []string{}

	for _, item := range in {
		if item.result.Degraded {
			out = append(out, fmt.Sprintf("%s analysis was unavailable; a neutral default (score %d, confidence %.0f%%) was substituted",
				producerTitles[item.name], item.result.Score, item.result.Confidence*100))
		}
	}
	for _, item := range in {
		if !item.result.Degraded && item.result.Confidence < lowProducerConfidence {
			out = append(out, fmt.Sprintf("%s analysis reported low confidence (%.0f%%)",
				producerTitles[item.name], item.result.Confidence*100))
		}
	}

	if result.Confidence < lowConfidenceThreshold {
		out = append(out, fmt.Sprintf("Overall confidence is low (%.0f%%)", result.Confidence*100))
	}
	if req.HasTimeframe() && req.Timeframe.IsShort() {
		out = append(out, fmt.Sprintf("The %s horizon is short; technical signals are noisy at this range", req.Timeframe))
	}
	for _, d := range result.DivergenceFactors {
		if d.Weight >= majorDivergenceWeight {
			out = append(out, "Analyses disagree significantly; weigh the recommendation accordingly")
			break
		}
	}
	return out
}

// keyEcos takes headline signals from the sentiment producer's metadata,
// falling back to its factors.
func keyEcos(r *models.AnalysisResult) []models.KeyEco {
	out := []models.KeyEco{}
	if r == nil || r.Degraded {
		return out
	}

	if raw, ok := r.Metadata[keyEcosMetadataKey].([]interface{}); ok {
		for _, item := range raw {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			eco := models.KeyEco{
				Source:    stringField(m, "source"),
				Headline:  stringField(m, "headline"),
				Sentiment: stringField(m, "sentiment"),
			}
			if eco.Headline == "" {
				continue
			}
			out = append(out, eco)
			if len(out) == maxKeyEcos {
				return out
			}
		}
		if len(out) > 0 {
			return out
		}
	}

	source := defaultKeyEcoSourceName
	if len(r.DataSources) > 0 {
		source = r.DataSources[0]
	}
	for _, f := range r.Factors {
		if strings.TrimSpace(f.Description) == "" {
			continue
		}
		out = append(out, models.KeyEco{
			Source:    source,
			Headline:  f.Description,
			Sentiment: string(f.Type),
		})
		if len(out) == maxKeyEcos {
			break
		}
	}
	return out
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}
