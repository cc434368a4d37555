package mocks

import "tradelens/models"

// ProducerRequest is the wire body a producer receives.
type ProducerRequest struct {
	Ticker    string `json:"ticker"`
	Context   string `json:"context"`
	Timeframe string `json:"trading_timeframe,omitempty"`
}

// ProducerFault makes a producer answer with an error envelope.
type ProducerFault struct {
	Status  int
	Code    string
	Message string
}

// errorEnvelope is the wire error body
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// DefaultResult returns the canned result a producer answers with until
// a test overrides it.
func DefaultResult(producer models.ProducerName) models.AnalysisResult {
	switch producer {
	case models.ProducerFundamental:
		return models.AnalysisResult{
			Producer:   producer,
			Score:      78,
			Confidence: 0.8,
			Factors: []models.Factor{
				{Type: models.FactorPositive, Category: "growth", Description: "Revenue growth of 12% year over year", Weight: 0.8, Confidence: 0.9},
				{Type: models.FactorPositive, Category: "profitability", Description: "Operating margin expanding", Weight: 0.6, Confidence: 0.8},
			},
			Metadata:    map[string]interface{}{"summary": "Strong fundamentals with reasonable valuation."},
			DataSources: []string{"filings"},
		}
	case models.ProducerTechnical:
		return models.AnalysisResult{
			Producer:   producer,
			Score:      74,
			Confidence: 0.7,
			Factors: []models.Factor{
				{Type: models.FactorPositive, Category: "momentum", Description: "Price above the 50-day moving average", Weight: 0.7, Confidence: 0.8},
			},
			Metadata:    map[string]interface{}{},
			DataSources: []string{"market_data"},
		}
	default:
		return models.AnalysisResult{
			Producer:   producer,
			Score:      72,
			Confidence: 0.75,
			Factors: []models.Factor{
				{Type: models.FactorPositive, Category: "sales", Description: "Analysts expect sales expansion", Weight: 0.6, Confidence: 0.7},
			},
			Metadata: map[string]interface{}{
				"key_ecos": []interface{}{
					map[string]interface{}{"headline": "New product launch well received", "source": "newswire", "sentiment": "positive"},
				},
			},
			DataSources: []string{"news"},
		}
	}
}
