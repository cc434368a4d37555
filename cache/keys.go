package cache

import (
	"strings"

	"tradelens/models"
)

// Scope kinds used for the last key segment and as the metrics label
const (
	KindProducer  = "producer"
	KindBundle    = "bundle"
	KindSynthesis = "synthesis"
)

const noTimeframe = "-"

// Key is the composite cache key {ticker, context, timeframe-or-absent, scope}.
// Two keys built from equivalent requests always render to the same string.
type Key struct {
	Ticker    string
	Context   models.AnalysisContext
	Timeframe models.Timeframe
	Scope     string
}

// String renders the key as "TICKER|context|timeframe|scope"
func (k Key) String() string {
	tf := string(k.Timeframe)
	if tf == "" {
		tf = noTimeframe
	}
	return strings.Join([]string{k.Ticker, string(k.Context), tf, k.Scope}, "|")
}

// Kind returns the metrics label for the key's scope
func (k Key) Kind() string {
	switch k.Scope {
	case KindBundle, KindSynthesis:
		return k.Scope
	default:
		return KindProducer
	}
}

func baseKey(req models.AnalysisRequest, scope string) Key {
	tf := req.Timeframe
	if !req.HasTimeframe() {
		tf = ""
	}
	return Key{
		Ticker:    strings.ToUpper(strings.TrimSpace(req.Ticker)),
		Context:   req.Context,
		Timeframe: tf,
		Scope:     scope,
	}
}

// ProducerKey returns the key for a single producer's result
func ProducerKey(req models.AnalysisRequest, producer models.ProducerName) Key {
	return baseKey(req, string(producer))
}

// BundleKey returns the key for a fully assembled set of producer results
func BundleKey(req models.AnalysisRequest) Key {
	return baseKey(req, KindBundle)
}

// SynthesisKey returns the key for a final synthesized result
func SynthesisKey(req models.AnalysisRequest) Key {
	return baseKey(req, KindSynthesis)
}
