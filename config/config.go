package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Database configuration (profile store)
	Database DatabaseConfig

	// HTTP server configuration
	HTTP HTTPConfig

	// Credential resolver configuration
	Credentials CredentialConfig

	// Analysis producer endpoints and invocation policy
	Producers ProducersConfig

	// Result cache TTL classes
	Cache CacheConfig

	// Synthesis weighting and degraded-mode policy
	Synthesis SynthesisConfig

	// Analysis request admission
	Analysis AnalysisConfig

	// Logging configuration
	Log LogConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port                  int
	CORSAllowedOrigins    string
	RequestTimeoutSeconds int
}

// CredentialConfig holds configuration for resolving per-user API credentials
type CredentialConfig struct {
	Secret              string // server-side secret the encryption key is derived from
	CacheTTLSeconds     int
	Prefix              string // fixed token prefix, e.g. "sk-"
	BodyLength          int    // number of characters after the prefix
	ProbeURL            string // optional liveness endpoint; empty disables probing
	ProbeTimeoutSeconds int
}

// ProducerEndpoint holds the location and timeout for one producer
type ProducerEndpoint struct {
	URL            string
	TimeoutSeconds int
}

// ProducersConfig holds configuration shared by the producer adapters
type ProducersConfig struct {
	Fundamental        ProducerEndpoint
	Technical          ProducerEndpoint
	SentimentEco       ProducerEndpoint
	MaxAttempts        int
	InitialBackoffMs   int
	MaxBackoffMs       int
	RateLimitPerSecond int
	RecordRuns         bool // persist producer run audit records when a database is configured
}

// CacheConfig holds result cache TTL classes and memory bounds
type CacheConfig struct {
	TechnicalTTLSeconds   int
	FundamentalTTLSeconds int
	SentimentTTLSeconds   int
	SweepIntervalSeconds  int // 0 disables the background sweep
	MaxEntries            int // 0 means unbounded
}

// Weights holds one weight per producer
type Weights struct {
	Fundamental  float64
	Technical    float64
	SentimentEco float64
}

// Sum returns the total of the three weights
func (w Weights) Sum() float64 {
	return w.Fundamental + w.Technical + w.SentimentEco
}

// SynthesisConfig holds synthesis configuration
type SynthesisConfig struct {
	InvestmentWeights Weights
	TradingWeights    Weights
	ThemesFile        string
	Strategy          string // recommendation strategy: default, conservative or aggressive
	AllowDegraded     bool   // substitute neutral defaults when one producer fails
}

// AnalysisConfig holds admission control for analysis requests
type AnalysisConfig struct {
	ConcurrencyLimit int
}

// LogConfig holds logger configuration
type LogConfig struct {
	Format string // json or text
	Level  string // debug, info, warn, error
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		HTTP: HTTPConfig{
			Port:                  getEnvInt("HTTP_PORT", 8080),
			CORSAllowedOrigins:    getEnvString("CORS_ALLOWED_ORIGINS", "*"),
			RequestTimeoutSeconds: getEnvInt("HTTP_REQUEST_TIMEOUT_SECONDS", 120),
		},
		Credentials: CredentialConfig{
			Secret:              os.Getenv("CREDENTIAL_SECRET"),
			CacheTTLSeconds:     getEnvInt("CREDENTIAL_CACHE_TTL_SECONDS", 300),
			Prefix:              getEnvString("CREDENTIAL_PREFIX", "sk-"),
			BodyLength:          getEnvInt("CREDENTIAL_BODY_LENGTH", 48),
			ProbeURL:            os.Getenv("CREDENTIAL_PROBE_URL"),
			ProbeTimeoutSeconds: getEnvInt("CREDENTIAL_PROBE_TIMEOUT_SECONDS", 5),
		},
		Producers: ProducersConfig{
			Fundamental: ProducerEndpoint{
				URL:            os.Getenv("PRODUCER_FUNDAMENTAL_URL"),
				TimeoutSeconds: getEnvInt("PRODUCER_FUNDAMENTAL_TIMEOUT_SECONDS", 30),
			},
			Technical: ProducerEndpoint{
				URL:            os.Getenv("PRODUCER_TECHNICAL_URL"),
				TimeoutSeconds: getEnvInt("PRODUCER_TECHNICAL_TIMEOUT_SECONDS", 20),
			},
			SentimentEco: ProducerEndpoint{
				URL:            os.Getenv("PRODUCER_SENTIMENT_URL"),
				TimeoutSeconds: getEnvInt("PRODUCER_SENTIMENT_TIMEOUT_SECONDS", 45),
			},
			MaxAttempts:        getEnvInt("PRODUCER_MAX_ATTEMPTS", 3),
			InitialBackoffMs:   getEnvInt("PRODUCER_INITIAL_BACKOFF_MS", 500),
			MaxBackoffMs:       getEnvInt("PRODUCER_MAX_BACKOFF_MS", 5000),
			RateLimitPerSecond: getEnvInt("PRODUCER_RATE_LIMIT_PER_SECOND", 10),
			RecordRuns:         getEnvBool("PRODUCER_RECORD_RUNS", false),
		},
		Cache: CacheConfig{
			TechnicalTTLSeconds:   getEnvInt("CACHE_TECHNICAL_TTL_SECONDS", 300),
			FundamentalTTLSeconds: getEnvInt("CACHE_FUNDAMENTAL_TTL_SECONDS", 4*3600),
			SentimentTTLSeconds:   getEnvInt("CACHE_SENTIMENT_TTL_SECONDS", 24*3600),
			SweepIntervalSeconds:  getEnvIntAllowZero("CACHE_SWEEP_INTERVAL_SECONDS", 600),
			MaxEntries:            getEnvIntAllowZero("CACHE_MAX_ENTRIES", 10000),
		},
		Synthesis: SynthesisConfig{
			InvestmentWeights: Weights{
				Fundamental:  getEnvFloat("INVESTMENT_WEIGHT_FUNDAMENTAL", DefaultInvestmentWeights.Fundamental),
				Technical:    getEnvFloat("INVESTMENT_WEIGHT_TECHNICAL", DefaultInvestmentWeights.Technical),
				SentimentEco: getEnvFloat("INVESTMENT_WEIGHT_SENTIMENT", DefaultInvestmentWeights.SentimentEco),
			},
			TradingWeights: Weights{
				Fundamental:  getEnvFloat("TRADING_WEIGHT_FUNDAMENTAL", DefaultTradingWeights.Fundamental),
				Technical:    getEnvFloat("TRADING_WEIGHT_TECHNICAL", DefaultTradingWeights.Technical),
				SentimentEco: getEnvFloat("TRADING_WEIGHT_SENTIMENT", DefaultTradingWeights.SentimentEco),
			},
			ThemesFile:    os.Getenv("SYNTHESIS_THEMES_FILE"),
			Strategy:      getEnvString("SYNTHESIS_STRATEGY", "default"),
			AllowDegraded: getEnvBool("SYNTHESIS_ALLOW_DEGRADED", true),
		},
		Analysis: AnalysisConfig{
			ConcurrencyLimit: getEnvInt("ANALYSIS_CONCURRENCY_LIMIT", 16),
		},
		Log: LogConfig{
			Format: getEnvString("LOG_FORMAT", "json"),
			Level:  getEnvString("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultInvestmentWeights favours fundamentals for long-horizon decisions
var DefaultInvestmentWeights = Weights{Fundamental: 0.50, Technical: 0.20, SentimentEco: 0.30}

// DefaultTradingWeights favours technicals for trading decisions
var DefaultTradingWeights = Weights{Fundamental: 0.25, Technical: 0.55, SentimentEco: 0.20}

// Validate validates the configuration
func (c *Config) Validate() error {
	for name, w := range map[string]Weights{
		"investment": c.Synthesis.InvestmentWeights,
		"trading":    c.Synthesis.TradingWeights,
	} {
		sum := w.Sum()
		if sum < 0.99 || sum > 1.01 {
			return fmt.Errorf("%s weights must sum to 1.0, got %.2f (fundamental=%.2f, technical=%.2f, sentiment_eco=%.2f)",
				name, sum, w.Fundamental, w.Technical, w.SentimentEco)
		}
		if w.Fundamental < 0 || w.Technical < 0 || w.SentimentEco < 0 {
			return fmt.Errorf("%s weights must be non-negative", name)
		}
	}

	if c.Producers.MaxAttempts <= 0 {
		return fmt.Errorf("PRODUCER_MAX_ATTEMPTS must be positive, got %d", c.Producers.MaxAttempts)
	}
	if c.Producers.InitialBackoffMs > c.Producers.MaxBackoffMs {
		return fmt.Errorf("PRODUCER_INITIAL_BACKOFF_MS (%d) must not exceed PRODUCER_MAX_BACKOFF_MS (%d)",
			c.Producers.InitialBackoffMs, c.Producers.MaxBackoffMs)
	}
	for name, ep := range map[string]ProducerEndpoint{
		"FUNDAMENTAL": c.Producers.Fundamental,
		"TECHNICAL":   c.Producers.Technical,
		"SENTIMENT":   c.Producers.SentimentEco,
	} {
		if ep.TimeoutSeconds <= 0 {
			return fmt.Errorf("PRODUCER_%s_TIMEOUT_SECONDS must be positive, got %d", name, ep.TimeoutSeconds)
		}
	}

	if c.Credentials.BodyLength <= 0 {
		return fmt.Errorf("CREDENTIAL_BODY_LENGTH must be positive, got %d", c.Credentials.BodyLength)
	}

	// Volatility ordering: market data must not outlive fundamentals or sentiment
	if c.Cache.TechnicalTTLSeconds > c.Cache.FundamentalTTLSeconds ||
		c.Cache.TechnicalTTLSeconds > c.Cache.SentimentTTLSeconds {
		return fmt.Errorf("CACHE_TECHNICAL_TTL_SECONDS (%d) must be the shortest TTL class", c.Cache.TechnicalTTLSeconds)
	}

	switch c.Synthesis.Strategy {
	case "", "default", "conservative", "aggressive":
	default:
		return fmt.Errorf("SYNTHESIS_STRATEGY must be default, conservative or aggressive, got %q", c.Synthesis.Strategy)
	}

	if c.Analysis.ConcurrencyLimit <= 0 {
		return fmt.Errorf("ANALYSIS_CONCURRENCY_LIMIT must be positive, got %d", c.Analysis.ConcurrencyLimit)
	}

	return nil
}

// HasDatabase returns true if database configuration is available
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasCredentialProbe returns true if credential liveness probing is enabled
func (c *Config) HasCredentialProbe() bool {
	return c.Credentials.ProbeURL != ""
}

// CredentialCacheTTL returns the decrypted-credential cache TTL
func (c *Config) CredentialCacheTTL() time.Duration {
	return time.Duration(c.Credentials.CacheTTLSeconds) * time.Second
}

// RequestTimeout returns the HTTP request timeout
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the per-attempt timeout for a producer endpoint
func (e ProducerEndpoint) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvIntAllowZero(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil && parsed >= 0 && parsed <= 1 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:                  8080,
			CORSAllowedOrigins:    "*",
			RequestTimeoutSeconds: 30,
		},
		Credentials: CredentialConfig{
			Secret:              "test-credential-secret",
			CacheTTLSeconds:     300,
			Prefix:              "sk-",
			BodyLength:          48,
			ProbeTimeoutSeconds: 1,
		},
		Producers: ProducersConfig{
			Fundamental:        ProducerEndpoint{TimeoutSeconds: 5},
			Technical:          ProducerEndpoint{TimeoutSeconds: 5},
			SentimentEco:       ProducerEndpoint{TimeoutSeconds: 5},
			MaxAttempts:        3,
			InitialBackoffMs:   1,
			MaxBackoffMs:       5,
			RateLimitPerSecond: 100,
		},
		Cache: CacheConfig{
			TechnicalTTLSeconds:   300,
			FundamentalTTLSeconds: 4 * 3600,
			SentimentTTLSeconds:   24 * 3600,
		},
		Synthesis: SynthesisConfig{
			InvestmentWeights: DefaultInvestmentWeights,
			TradingWeights:    DefaultTradingWeights,
			Strategy:          "default",
			AllowDegraded:     true,
		},
		Analysis: AnalysisConfig{
			ConcurrencyLimit: 4,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
	}
}
