package synthesis

import (
	"fmt"
	"math"

	"tradelens/models"
)

// Convergence thresholds
const (
	strongPositiveFloor  = 70
	strongPositiveMean   = 75
	strongPositiveWeight = 0.9

	strongNegativeCeiling = 40
	strongNegativeMean    = 35
	strongNegativeWeight  = 0.8

	thematicMaxWeight = 0.8

	alignmentMaxStdDev = 10
	alignmentMinMean   = 50
	alignmentWeight    = 0.6
)

// Convergence categories
const (
	CategoryStrongPositive = "strong_positive"
	CategoryStrongNegative = "strong_negative"
	CategoryThematic       = "thematic"
	CategoryScoreAlignment = "score_alignment"
)

func (s *Synthesizer) detectConvergence(in []input) []models.ConvergenceFactor {
	factors := []models.ConvergenceFactor{}
	scores := scoresOf(in)
	avg := mean(scores)

	if allAtLeast(scores, strongPositiveFloor) && avg >= strongPositiveMean {
		factors = append(factors, models.ConvergenceFactor{
			Category:           CategoryStrongPositive,
			Description:        fmt.Sprintf("Strong positive convergence: all analyses score %d or higher (average %.1f)", strongPositiveFloor, avg),
			Weight:             strongPositiveWeight,
			SupportingAnalyses: namesOf(in),
			Metadata:           map[string]interface{}{"average_score": round2(avg)},
		})
	}

	if allAtMost(scores, strongNegativeCeiling) && avg <= strongNegativeMean {
		factors = append(factors, models.ConvergenceFactor{
			Category:           CategoryStrongNegative,
			Description:        fmt.Sprintf("Strong negative convergence: all analyses score %d or lower (average %.1f)", strongNegativeCeiling, avg),
			Weight:             strongNegativeWeight,
			SupportingAnalyses: namesOf(in),
			Metadata:           map[string]interface{}{"average_score": round2(avg)},
		})
	}

	factors = append(factors, s.thematicConvergence(in)...)

	if sd := stdDev(scores); sd <= alignmentMaxStdDev && avg >= alignmentMinMean {
		factors = append(factors, models.ConvergenceFactor{
			Category:           CategoryScoreAlignment,
			Description:        fmt.Sprintf("Scores are closely aligned (standard deviation %.1f around %.1f)", sd, avg),
			Weight:             alignmentWeight,
			SupportingAnalyses: namesOf(in),
			Metadata:           map[string]interface{}{"std_dev": round2(sd), "average_score": round2(avg)},
		})
	}

	return factors
}

type themeMember struct {
	producer models.ProducerName
	factor   models.Factor
}

type themeGroup struct {
	theme     int
	direction models.FactorType
	members   []themeMember
}

// thematicConvergence groups factors by (theme, direction). A group backed by
// at least two distinct producers becomes a convergence factor.
func (s *Synthesizer) thematicConvergence(in []input) []models.ConvergenceFactor {
	var groups []*themeGroup
	find := func(theme int, dir models.FactorType) *themeGroup {
		for _, g := range groups {
			if g.theme == theme && g.direction == dir {
				return g
			}
		}
		g := &themeGroup{theme: theme, direction: dir}
		groups = append(groups, g)
		return g
	}

	for _, item := range in {
		for _, f := range item.result.Factors {
			theme := s.themes.match(f.Category, f.Description)
			if theme < 0 {
				continue
			}
			g := find(theme, f.Type)
			g.members = append(g.members, themeMember{producer: item.name, factor: f})
		}
	}

	// Table order, positive before negative, for a stable report
	ordered := make([]*themeGroup, 0, len(groups))
	for theme := range s.themes.themes {
		for _, dir := range []models.FactorType{models.FactorPositive, models.FactorNegative} {
			for _, g := range groups {
				if g.theme == theme && g.direction == dir {
					ordered = append(ordered, g)
				}
			}
		}
	}

	var factors []models.ConvergenceFactor
	for _, g := range ordered {
		producers := distinctProducers(g.members)
		if len(producers) < 2 {
			continue
		}

		total := 0.0
		for _, m := range g.members {
			total += m.factor.Weight * m.factor.Confidence
		}
		weight := math.Min(thematicMaxWeight, total/float64(len(g.members)))

		name := s.themes.name(g.theme)
		factors = append(factors, models.ConvergenceFactor{
			Category: CategoryThematic,
			Description: fmt.Sprintf("%s %s signals confirmed by %s",
				title(name), g.direction, joinNames(producers)),
			Weight:             round4(weight),
			SupportingAnalyses: producers,
			Metadata: map[string]interface{}{
				"theme":        name,
				"direction":    string(g.direction),
				"factor_count": len(g.members),
			},
		})
	}
	return factors
}

func distinctProducers(members []themeMember) []models.ProducerName {
	var out []models.ProducerName
	seen := make(map[models.ProducerName]bool, 3)
	for _, m := range members {
		if !seen[m.producer] {
			seen[m.producer] = true
			out = append(out, m.producer)
		}
	}
	return out
}
