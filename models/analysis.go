package models

import (
	"fmt"
	"math"
)

// ProducerName identifies one of the three analysis producers
type ProducerName string

const (
	ProducerFundamental  ProducerName = "fundamental"
	ProducerTechnical    ProducerName = "technical"
	ProducerSentimentEco ProducerName = "sentiment_eco"
)

// Producers lists the producers in report order
var Producers = []ProducerName{ProducerFundamental, ProducerTechnical, ProducerSentimentEco}

// FactorType is the direction a factor pushes the score
type FactorType string

const (
	FactorPositive FactorType = "positive"
	FactorNegative FactorType = "negative"
)

// Factor is a single observation a producer used to justify its score
type Factor struct {
	Type        FactorType `json:"type"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Weight      float64    `json:"weight"`
	Confidence  float64    `json:"confidence"`
}

// AnalysisResult is the common output shape of every producer.
// It is a value type: never mutate one after it has been returned.
type AnalysisResult struct {
	Producer    ProducerName           `json:"producer"`
	Score       int                    `json:"score"`
	Confidence  float64                `json:"confidence"`
	Factors     []Factor               `json:"factors"`
	Metadata    map[string]interface{} `json:"metadata"`
	DataSources []string               `json:"dataSources"`
	Degraded    bool                   `json:"degraded,omitempty"`
}

// Neutral default values substituted for a failed producer slot
const (
	NeutralScore      = 50
	NeutralConfidence = 0.1
)

// NeutralResult returns the placeholder used when a producer could not deliver
func NeutralResult(producer ProducerName) *AnalysisResult {
	return &AnalysisResult{
		Producer:    producer,
		Score:       NeutralScore,
		Confidence:  NeutralConfidence,
		Factors:     []Factor{},
		Metadata:    map[string]interface{}{},
		DataSources: []string{},
		Degraded:    true,
	}
}

// Validate checks the result against the producer contract
func (r *AnalysisResult) Validate() error {
	if r == nil {
		return fmt.Errorf("analysis result is nil")
	}
	if r.Score < 0 || r.Score > 100 {
		return fmt.Errorf("score %d out of range [0,100]", r.Score)
	}
	if !inUnitRange(r.Confidence) {
		return fmt.Errorf("confidence %v out of range [0,1]", r.Confidence)
	}
	for i, f := range r.Factors {
		if f.Type != FactorPositive && f.Type != FactorNegative {
			return fmt.Errorf("factor %d: unknown type %q", i, f.Type)
		}
		if !inUnitRange(f.Weight) {
			return fmt.Errorf("factor %d: weight %v out of range [0,1]", i, f.Weight)
		}
		if !inUnitRange(f.Confidence) {
			return fmt.Errorf("factor %d: confidence %v out of range [0,1]", i, f.Confidence)
		}
	}
	return nil
}

func inUnitRange(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
