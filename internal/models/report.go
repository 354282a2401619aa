// ABOUTME: Report value: summary statistics plus ranked critique results
// ABOUTME: Regenerated deterministically from a fixed result set
package models

import "time"

// Tier is a fixed score bucket used for the distribution histogram.
type Tier struct {
	Label string
	Min   float64
	Max   float64

	// MaxInclusive marks the top tier, which includes its upper bound.
	MaxInclusive bool
}

// DefaultTiers are the fixed half-open score ranges, highest first.
// Only the top tier includes its upper bound.
var DefaultTiers = []Tier{
	{Label: "excellent (9-10)", Min: 9, Max: 10, MaxInclusive: true},
	{Label: "great (8-9)", Min: 8, Max: 9},
	{Label: "good (7-8)", Min: 7, Max: 8},
	{Label: "average (6-7)", Min: 6, Max: 7},
	{Label: "below_average (5-6)", Min: 5, Max: 6},
	{Label: "poor (0-5)", Min: 0, Max: 5},
}

// Contains reports whether score falls in this tier.
func (t Tier) Contains(score float64) bool {
	if score < t.Min {
		return false
	}
	if t.MaxInclusive {
		return score <= t.Max
	}
	return score < t.Max
}

// Statistics summarizes one run. TotalImages counts every item that produced
// a ResultItem (successes and errors); Incomplete counts items whose batch
// never reached a collectible state and is surfaced so the report never
// pretends completeness it doesn't have.
type Statistics struct {
	TotalImages          int            `json:"total_images"`
	Succeeded            int            `json:"succeeded"`
	Errored              int            `json:"errored"`
	Incomplete           int            `json:"incomplete"`
	MeanOverallScore     float64        `json:"mean_overall_score"`
	MeanCompositionScore float64        `json:"mean_composition_score"`
	MeanLightingScore    float64        `json:"mean_lighting_score"`
	MeanSubjectScore     float64        `json:"mean_subject_score"`
	MeanTechnicalScore   float64        `json:"mean_technical_score"`
	ScoreDistribution    map[string]int `json:"score_distribution"`
}

// Report is the final aggregation artifact. Results holds successful
// critiques only, sorted descending by overall score with ties broken by
// discovery order; Errors lists every per-item failure.
type Report struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Statistics  Statistics   `json:"statistics"`
	Results     []ResultItem `json:"results"`
	Errors      []ResultItem `json:"errors,omitempty"`
}
