// ABOUTME: Report aggregation: statistics, tier histogram, ranked ordering
// ABOUTME: Pure function of the result mapping; identical input, identical report
package report

import (
	"math"
	"sort"
	"time"

	"github.com/harper/photo-critic/internal/models"
)

// Aggregate builds the report from the merged result mapping. incomplete is
// the count of requests whose chunk never reached a collectible state.
// Successes below minScore are kept in statistics (including the tier
// histogram) but excluded from the ranked results.
func Aggregate(results map[string]models.ResultItem, incomplete int, minScore float64, tiers []models.Tier, generatedAt time.Time) models.Report {
	var successes, errored []models.ResultItem
	for _, r := range results {
		if r.Succeeded() {
			successes = append(successes, r)
		} else {
			errored = append(errored, r)
		}
	}

	byRank := func(items []models.ResultItem) func(i, j int) bool {
		return func(i, j int) bool {
			if items[i].Overall() != items[j].Overall() {
				return items[i].Overall() > items[j].Overall()
			}
			return items[i].Index < items[j].Index
		}
	}
	sort.SliceStable(successes, byRank(successes))
	sort.SliceStable(errored, func(i, j int) bool { return errored[i].Index < errored[j].Index })

	stats := models.Statistics{
		TotalImages:       len(results),
		Succeeded:         len(successes),
		Errored:           len(errored),
		Incomplete:        incomplete,
		ScoreDistribution: map[string]int{},
	}

	for _, tier := range tiers {
		stats.ScoreDistribution[tier.Label] = 0
	}
	var overall, composition, lighting, subject, technical float64
	for _, r := range successes {
		c := r.Critique
		overall += c.OverallScore
		composition += c.CompositionScore
		lighting += c.LightingScore
		subject += c.SubjectScore
		technical += c.TechnicalScore
		for _, tier := range tiers {
			if tier.Contains(c.OverallScore) {
				stats.ScoreDistribution[tier.Label]++
				break
			}
		}
	}
	if n := float64(len(successes)); n > 0 {
		stats.MeanOverallScore = round2(overall / n)
		stats.MeanCompositionScore = round2(composition / n)
		stats.MeanLightingScore = round2(lighting / n)
		stats.MeanSubjectScore = round2(subject / n)
		stats.MeanTechnicalScore = round2(technical / n)
	}

	ranked := make([]models.ResultItem, 0, len(successes))
	for _, r := range successes {
		if r.Overall() >= minScore {
			ranked = append(ranked, r)
		}
	}

	return models.Report{
		GeneratedAt: generatedAt,
		Statistics:  stats,
		Results:     ranked,
		Errors:      errored,
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
