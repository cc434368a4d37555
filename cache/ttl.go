package cache

import (
	"time"

	"tradelens/config"
	"tradelens/models"
)

// TTLClass names an expiry bucket tied to how quickly the underlying data goes stale
type TTLClass string

const (
	TTLTechnical   TTLClass = "technical"
	TTLFundamental TTLClass = "fundamental"
	TTLSentiment   TTLClass = "sentiment"
	// TTLShortest resolves to the shortest configured class
	TTLShortest TTLClass = "shortest"
)

// Default durations per class
const (
	DefaultTechnicalTTL   = 5 * time.Minute
	DefaultFundamentalTTL = 4 * time.Hour
	DefaultSentimentTTL   = 24 * time.Hour
)

// TTLs maps each class to a duration
type TTLs struct {
	Technical   time.Duration
	Fundamental time.Duration
	Sentiment   time.Duration
}

// DefaultTTLs returns the built-in TTL table
func DefaultTTLs() TTLs {
	return TTLs{
		Technical:   DefaultTechnicalTTL,
		Fundamental: DefaultFundamentalTTL,
		Sentiment:   DefaultSentimentTTL,
	}
}

// TTLsFromConfig builds the TTL table from cache configuration
func TTLsFromConfig(cfg config.CacheConfig) TTLs {
	return TTLs{
		Technical:   time.Duration(cfg.TechnicalTTLSeconds) * time.Second,
		Fundamental: time.Duration(cfg.FundamentalTTLSeconds) * time.Second,
		Sentiment:   time.Duration(cfg.SentimentTTLSeconds) * time.Second,
	}
}

// Duration returns the duration for a class
func (t TTLs) Duration(class TTLClass) time.Duration {
	switch class {
	case TTLTechnical:
		return t.Technical
	case TTLFundamental:
		return t.Fundamental
	case TTLSentiment:
		return t.Sentiment
	default:
		return t.Shortest()
	}
}

// Shortest returns the minimum of the three classes
func (t TTLs) Shortest() time.Duration {
	shortest := t.Technical
	if t.Fundamental < shortest {
		shortest = t.Fundamental
	}
	if t.Sentiment < shortest {
		shortest = t.Sentiment
	}
	return shortest
}

// ClassFor returns the TTL class for a producer's results
func ClassFor(producer models.ProducerName) TTLClass {
	switch producer {
	case models.ProducerTechnical:
		return TTLTechnical
	case models.ProducerFundamental:
		return TTLFundamental
	case models.ProducerSentimentEco:
		return TTLSentiment
	default:
		return TTLShortest
	}
}
