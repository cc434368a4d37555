package synthesis

import "tradelens/models"

// RecommendationStrategy turns a final score and confidence into a label
type RecommendationStrategy interface {
	// DetermineAction converts a 0-100 score and 0-1 confidence into a recommendation
	DetermineAction(score int, confidence float64) models.Recommendation
	// Name returns the strategy name for logging/display
	Name() string
}

// DefaultStrategy labels score >= 70 BUY and score <= 30 SELL
type DefaultStrategy struct {
	BuyThreshold  int
	SellThreshold int
}

// NewDefaultStrategy creates a strategy with the standard thresholds
func NewDefaultStrategy() *DefaultStrategy {
	return &DefaultStrategy{
		BuyThreshold:  70,
		SellThreshold: 30,
	}
}

func (s *DefaultStrategy) DetermineAction(score int, confidence float64) models.Recommendation {
	return label(score, s.BuyThreshold, s.SellThreshold)
}

func (s *DefaultStrategy) Name() string {
	return "default"
}

// ConservativeStrategy uses the standard thresholds but holds when
// confidence is below a floor
type ConservativeStrategy struct {
	BuyThreshold  int
	SellThreshold int
	MinConfidence float64
}

// NewConservativeStrategy creates a conservative strategy
func NewConservativeStrategy() *ConservativeStrategy {
	return &ConservativeStrategy{
		BuyThreshold:  75,
		SellThreshold: 25,
		MinConfidence: 0.5,
	}
}

func (s *ConservativeStrategy) DetermineAction(score int, confidence float64) models.Recommendation {
	if confidence < s.MinConfidence {
		return models.RecommendationHold
	}
	return label(score, s.BuyThreshold, s.SellThreshold)
}

func (s *ConservativeStrategy) Name() string {
	return "conservative"
}

// AggressiveStrategy uses narrower thresholds
type AggressiveStrategy struct {
	BuyThreshold  int
	SellThreshold int
}

// NewAggressiveStrategy creates an aggressive strategy
func NewAggressiveStrategy() *AggressiveStrategy {
	return &AggressiveStrategy{
		BuyThreshold:  65,
		SellThreshold: 35,
	}
}

func (s *AggressiveStrategy) DetermineAction(score int, confidence float64) models.Recommendation {
	return label(score, s.BuyThreshold, s.SellThreshold)
}

func (s *AggressiveStrategy) Name() string {
	return "aggressive"
}

func label(score, buy, sell int) models.Recommendation {
	if score >= buy {
		return models.RecommendationBuy
	}
	if score <= sell {
		return models.RecommendationSell
	}
	return models.RecommendationHold
}

// StrategyFromName returns a strategy by name
func StrategyFromName(name string) RecommendationStrategy {
	switch name {
	case "conservative":
		return NewConservativeStrategy()
	case "aggressive":
		return NewAggressiveStrategy()
	default:
		return NewDefaultStrategy()
	}
}
