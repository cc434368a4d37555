package synthesis

import (
	"strings"

	"tradelens/config"
)

// themeMatcher assigns factors to the first theme with a matching keyword
type themeMatcher struct {
	themes []config.Theme
}

func newThemeMatcher(themes []config.Theme) *themeMatcher {
	normalized := make([]config.Theme, 0, len(themes))
	for _, th := range themes {
		keywords := make([]string, 0, len(th.Keywords))
		for _, k := range th.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				keywords = append(keywords, k)
			}
		}
		normalized = append(normalized, config.Theme{Name: th.Name, Keywords: keywords})
	}
	return &themeMatcher{themes: normalized}
}

// match returns the theme index for a factor, or -1
func (m *themeMatcher) match(category, description string) int {
	text := strings.ToLower(category + " " + description)
	for i, th := range m.themes {
		for _, k := range th.Keywords {
			if strings.Contains(text, k) {
				return i
			}
		}
	}
	return -1
}

func (m *themeMatcher) name(i int) string {
	return m.themes[i].Name
}
