package synthesis

import (
	"tradelens/config"
	"tradelens/models"
)

// weights is a per-producer weight triple
type weights struct {
	fundamental  float64
	technical    float64
	sentimentEco float64
}

func fromConfig(w config.Weights) weights {
	return weights{fundamental: w.Fundamental, technical: w.Technical, sentimentEco: w.SentimentEco}
}

func (w weights) sum() float64 {
	return w.fundamental + w.technical + w.sentimentEco
}

func (w weights) get(name models.ProducerName) float64 {
	switch name {
	case models.ProducerFundamental:
		return w.fundamental
	case models.ProducerTechnical:
		return w.technical
	case models.ProducerSentimentEco:
		return w.sentimentEco
	default:
		return 0
	}
}

func (w weights) scale(m weights) weights {
	return weights{
		fundamental:  w.fundamental * m.fundamental,
		technical:    w.technical * m.technical,
		sentimentEco: w.sentimentEco * m.sentimentEco,
	}
}

func (w weights) normalize() weights {
	total := w.sum()
	if total <= 0 {
		return weights{fundamental: 1.0 / 3, technical: 1.0 / 3, sentimentEco: 1.0 / 3}
	}
	return weights{
		fundamental:  w.fundamental / total,
		technical:    w.technical / total,
		sentimentEco: w.sentimentEco / total,
	}
}

// timeframeWeightMultipliers shift weight toward technicals on short
// horizons and toward fundamentals and ESG on long ones.
var timeframeWeightMultipliers = map[models.Timeframe]weights{
	models.Timeframe1D: {fundamental: 0.5, technical: 1.5, sentimentEco: 0.5},
	models.Timeframe1W: {fundamental: 0.7, technical: 1.3, sentimentEco: 0.7},
	models.Timeframe1M: {fundamental: 1.0, technical: 1.0, sentimentEco: 1.0},
	models.Timeframe3M: {fundamental: 1.2, technical: 0.9, sentimentEco: 1.1},
	models.Timeframe6M: {fundamental: 1.3, technical: 0.8, sentimentEco: 1.2},
	models.Timeframe1Y: {fundamental: 1.5, technical: 0.6, sentimentEco: 1.3},
}

// timeframeScoreMultipliers scale the final score per horizon
var timeframeScoreMultipliers = map[models.Timeframe]float64{
	models.Timeframe1D: 0.95,
	models.Timeframe1W: 0.97,
	models.Timeframe1M: 1.00,
	models.Timeframe3M: 1.02,
	models.Timeframe6M: 1.03,
	models.Timeframe1Y: 1.05,
}

// weightsFor returns the normalized weights for a request
func (s *Synthesizer) weightsFor(req models.AnalysisRequest) weights {
	base := s.investment
	if req.Context == models.ContextTrading {
		base = s.trading
	}
	if req.HasTimeframe() {
		if m, ok := timeframeWeightMultipliers[req.Timeframe]; ok {
			base = base.scale(m)
		}
	}
	return base.normalize()
}

func scoreMultiplier(req models.AnalysisRequest) float64 {
	if !req.HasTimeframe() {
		return 1.0
	}
	if m, ok := timeframeScoreMultipliers[req.Timeframe]; ok {
		return m
	}
	return 1.0
}
