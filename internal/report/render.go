// ABOUTME: Report rendering to JSON and Markdown artifacts
// ABOUTME: Pure functions of the Report value; no recomputation of scores
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harper/photo-critic/internal/models"
)

// RenderJSON serializes the report with stable field and key ordering.
func RenderJSON(r models.Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	return append(data, '\n'), nil
}

// RenderMarkdown renders the report grouped by tier, highest first.
func RenderMarkdown(r models.Report) []byte {
	var b strings.Builder

	b.WriteString("# Photo Critic Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))

	b.WriteString("## Statistics\n\n")
	fmt.Fprintf(&b, "- **Total Images:** %d\n", r.Statistics.TotalImages)
	fmt.Fprintf(&b, "- **Mean Overall Score:** %.2f/10\n", r.Statistics.MeanOverallScore)
	fmt.Fprintf(&b, "- **Mean Composition Score:** %.2f/10\n", r.Statistics.MeanCompositionScore)
	fmt.Fprintf(&b, "- **Mean Lighting Score:** %.2f/10\n", r.Statistics.MeanLightingScore)
	fmt.Fprintf(&b, "- **Mean Subject Score:** %.2f/10\n", r.Statistics.MeanSubjectScore)
	fmt.Fprintf(&b, "- **Mean Technical Score:** %.2f/10\n", r.Statistics.MeanTechnicalScore)
	if r.Statistics.Incomplete > 0 {
		fmt.Fprintf(&b, "- **Incomplete (no result):** %d\n", r.Statistics.Incomplete)
	}
	if r.Statistics.Errored > 0 {
		fmt.Fprintf(&b, "- **Errored:** %d\n", r.Statistics.Errored)
	}

	b.WriteString("\n### Score Distribution\n\n")
	for _, tier := range models.DefaultTiers {
		fmt.Fprintf(&b, "- **%s:** %d\n", tier.Label, r.Statistics.ScoreDistribution[tier.Label])
	}

	b.WriteString("\n---\n\n## Detailed Results\n")

	for _, tier := range models.DefaultTiers {
		var tierResults []models.ResultItem
		for _, res := range r.Results {
			if tier.Contains(res.Overall()) {
				tierResults = append(tierResults, res)
			}
		}
		if len(tierResults) == 0 {
			continue
		}

		fmt.Fprintf(&b, "\n### %s\n", titleCase(tier.Label))
		for _, res := range tierResults {
			writeResult(&b, res)
		}
	}

	if len(r.Errors) > 0 {
		b.WriteString("\n---\n\n## Errors\n\n")
		for _, res := range r.Errors {
			fmt.Fprintf(&b, "- `%s`: %s (%s)\n", res.Path, res.ErrMsg, res.ErrKind)
		}
	}

	return []byte(b.String())
}

func writeResult(b *strings.Builder, res models.ResultItem) {
	c := res.Critique
	fmt.Fprintf(b, "\n#### %s - **%.1f/10**\n\n", res.Filename, c.OverallScore)
	fmt.Fprintf(b, "**Path:** `%s`\n\n", res.Path)
	fmt.Fprintf(b, "**Summary:** %s\n\n", c.Summary)
	b.WriteString("**Scores:**\n")
	fmt.Fprintf(b, "- Composition: %.1f/10 - %s\n", c.CompositionScore, c.CompositionNotes)
	fmt.Fprintf(b, "- Lighting: %.1f/10 - %s\n", c.LightingScore, c.LightingNotes)
	fmt.Fprintf(b, "- Subject: %.1f/10 - %s\n", c.SubjectScore, c.SubjectNotes)
	fmt.Fprintf(b, "- Technical: %.1f/10 - %s\n", c.TechnicalScore, c.TechnicalNotes)
	b.WriteString("\n**Strengths:**\n")
	for _, s := range c.Strengths {
		fmt.Fprintf(b, "- %s\n", s)
	}
	b.WriteString("\n**Improvements:**\n")
	for _, s := range c.Improvements {
		fmt.Fprintf(b, "- %s\n", s)
	}
}

// titleCase uppercases the first letter of each word in a tier label,
// leaving the range suffix intact, e.g. "below_average (5-6)" → "Below Average (5-6)".
func titleCase(label string) string {
	words := strings.Split(strings.ReplaceAll(label, "_", " "), " ")
	for i, w := range words {
		if w == "" || strings.HasPrefix(w, "(") {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
