package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Theme groups factors from different producers under a shared topic.
// A factor belongs to the first theme whose keyword appears in its
// category or description.
type Theme struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// themesFile is the on-disk YAML layout
type themesFile struct {
	Themes []Theme `yaml:"themes"`
}

// DefaultThemes is the built-in theme table, in matching order
var DefaultThemes = []Theme{
	{Name: "growth", Keywords: []string{"growth", "revenue", "expansion", "earnings", "sales"}},
	{Name: "profitability", Keywords: []string{"profit", "margin", "roe", "return on equity", "income"}},
	{Name: "valuation", Keywords: []string{"valuation", "p/e", "undervalued", "overvalued", "price target", "multiple"}},
	{Name: "momentum", Keywords: []string{"momentum", "trend", "breakout", "moving average", "rsi", "macd"}},
	{Name: "sustainability", Keywords: []string{"esg", "sustainab", "environment", "governance", "social", "climate"}},
	{Name: "risk", Keywords: []string{"risk", "volatil", "debt", "leverage", "lawsuit", "uncertain"}},
	{Name: "quality", Keywords: []string{"quality", "moat", "competitive", "management", "brand"}},
}

// LoadThemes reads a theme table from a YAML file. An empty path returns the
// built-in table.
func LoadThemes(path string) ([]Theme, error) {
	if path == "" {
		return DefaultThemes, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read themes file: %w", err)
	}

	var file themesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse themes file: %w", err)
	}

	if err := ValidateThemes(file.Themes); err != nil {
		return nil, err
	}

	return normalizeThemes(file.Themes), nil
}

// ValidateThemes checks a theme table is usable
func ValidateThemes(themes []Theme) error {
	if len(themes) == 0 {
		return errors.New("theme table is empty")
	}
	seen := make(map[string]bool, len(themes))
	for i, th := range themes {
		if th.Name == "" {
			return fmt.Errorf("theme %d has no name", i)
		}
		if seen[th.Name] {
			return fmt.Errorf("duplicate theme %q", th.Name)
		}
		seen[th.Name] = true
		if len(th.Keywords) == 0 {
			return fmt.Errorf("theme %q has no keywords", th.Name)
		}
	}
	return nil
}

func normalizeThemes(themes []Theme) []Theme {
	out := make([]Theme, len(themes))
	for i, th := range themes {
		keywords := make([]string, 0, len(th.Keywords))
		for _, k := range th.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				keywords = append(keywords, k)
			}
		}
		out[i] = Theme{Name: th.Name, Keywords: keywords}
	}
	return out
}
