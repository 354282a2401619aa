// ABOUTME: Terminal presentation sink for run progress and summaries
// ABOUTME: Pure side effects; holds no orchestration state
package term

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/harper/photo-critic/internal/batch"
	"github.com/harper/photo-critic/internal/discovery"
	"github.com/harper/photo-critic/internal/models"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Heading lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Heading: lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) headingStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Heading).Bold(true)
}

func (t Theme) successStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// Printer renders run progress to a writer. Quiet suppresses everything
// except errors and the final summary.
type Printer struct {
	out   io.Writer
	theme Theme
	quiet bool
}

// NewPrinter creates a printer over the given writer.
func NewPrinter(out io.Writer, quiet bool) *Printer {
	return &Printer{out: out, theme: defaultTheme, quiet: quiet}
}

// Stage prints a numbered stage heading.
func (p *Printer) Stage(n int, label string) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, "\n%s\n", p.theme.headingStyle().Render(fmt.Sprintf("%d. %s", n, label)))
}

// Info prints a plain line.
func (p *Printer) Info(format string, args ...any) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Success prints a highlighted success line.
func (p *Printer) Success(format string, args ...any) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, p.theme.successStyle().Render(fmt.Sprintf(format, args...)))
}

// Error prints a highlighted error line, regardless of quiet.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.out, p.theme.errorStyle().Render(fmt.Sprintf(format, args...)))
}

// Hint prints a dimmed hint line.
func (p *Printer) Hint(format string, args ...any) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, p.theme.hintStyle().Render(fmt.Sprintf(format, args...)))
}

// JobUpdate implements batch.ProgressSink.
func (p *Printer) JobUpdate(chunkID string, state batch.JobState, counts batch.Counts) {
	if p.quiet {
		return
	}
	line := fmt.Sprintf("  %s: %s", chunkID, state)
	if counts.Total > 0 {
		line += fmt.Sprintf(" (%d/%d done, %d failed)", counts.Completed, counts.Total, counts.Failed)
	}
	switch state {
	case batch.StateSucceeded:
		fmt.Fprintln(p.out, p.theme.successStyle().Render(line))
	case batch.StateExpired, batch.StateSubmissionFailed, batch.StatePartiallyFailed:
		fmt.Fprintln(p.out, p.theme.errorStyle().Render(line))
	default:
		fmt.Fprintln(p.out, line)
	}
}

// DiscoveryTable prints the discovery summary.
func (p *Printer) DiscoveryTable(stats discovery.Stats) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, "  Total Images: %d\n", stats.Total)
	fmt.Fprintf(p.out, "  Total Size:   %.2f MB\n", stats.TotalSizeMB)
	fmt.Fprintf(p.out, "  Average Size: %.2f MB\n", stats.AvgSizeMB)

	exts := make([]string, 0, len(stats.ByExtension))
	for ext := range stats.ByExtension {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		fmt.Fprintf(p.out, "    %s: %d\n", ext, stats.ByExtension[ext])
	}
}

// Summary prints the final run statistics. Incomplete items are surfaced
// prominently so a partial run is never mistaken for a complete one.
func (p *Printer) Summary(stats models.Statistics) {
	fmt.Fprintln(p.out)
	p.Success("%d critiqued, mean score %.2f", stats.Succeeded, stats.MeanOverallScore)
	if stats.Errored > 0 {
		p.Error("%d items errored", stats.Errored)
	}
	if stats.Incomplete > 0 {
		p.Error("%d items INCOMPLETE (no result from provider; re-run to resume)", stats.Incomplete)
	}
}
