package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/archlint/archlint/internal/domain"
	"github.com/archlint/archlint/internal/domain/rules"
)

// ── Claude-inspired warm palette ──
var (
	accent     = lipgloss.Color("#D97706") // amber
	fg         = lipgloss.Color("#E8E6E3") // warm light gray
	dim        = lipgloss.Color("#6B7280") // muted gray
	faint      = lipgloss.Color("#3F3F46") // very dim
	success    = lipgloss.Color("#22C55E") // green
	danger     = lipgloss.Color("#EF4444") // red
	warning    = lipgloss.Color("#F59E0B") // amber-yellow
	info       = lipgloss.Color("#8B949E") // soft blue-gray
	mutedSlate = lipgloss.Color("#4B5563") // dark gray
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Align(lipgloss.Center)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 4).
			Align(lipgloss.Center).
			Width(68)

	dimStyle      = lipgloss.NewStyle().Foreground(dim)
	faintStyle    = lipgloss.NewStyle().Foreground(faint)
	passStyle     = lipgloss.NewStyle().Foreground(success)
	failStyle     = lipgloss.NewStyle().Foreground(danger)
	warnStyle     = lipgloss.NewStyle().Foreground(warning)
	critTagStyle  = lipgloss.NewStyle().Foreground(danger).Bold(true)
	warnTagStyle  = lipgloss.NewStyle().Foreground(warning).Bold(true)
	suggTagStyle  = lipgloss.NewStyle().Foreground(info)
	fileStyle     = lipgloss.NewStyle().Foreground(dim)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(fg)
	mutedStyle    = lipgloss.NewStyle().Foreground(mutedSlate)
	separatorLine = faintStyle.Render(strings.Repeat("─", 64))
)

// RenderReport formats an audit report for terminal output: a summary
// box, the layer census, findings grouped by file, and a totals line.
func RenderReport(rep *domain.Report) string {
	var b strings.Builder

	// ── Header ──
	title := headerStyle.Render("archlint")
	subtitle := dimStyle.Render("Architecture Conformance")
	verdict := verdictLine(rep)
	stats := dimStyle.Render(fmt.Sprintf("%d units  ·  %d edges  ·  %d findings",
		rep.Meta.Units, rep.Meta.Edges, rep.Summary.Total))

	b.WriteString(boxStyle.Render(title + "\n" + subtitle + "\n\n" + verdict + "\n" + stats))
	b.WriteString("\n\n")

	// ── Context ──
	if len(rep.Meta.Frameworks) > 0 {
		b.WriteString("  " + dimStyle.Render("frameworks: "+strings.Join(rep.Meta.Frameworks, ", ")) + "\n")
	}
	if census := censusLine(rep.Meta.Layers); census != "" {
		b.WriteString("  " + dimStyle.Render(census) + "\n")
	}
	b.WriteString("\n")
	b.WriteString("  " + separatorLine)
	b.WriteString("\n\n")

	// ── Findings ──
	if len(rep.Findings) == 0 {
		b.WriteString("  " + passStyle.Render("No findings.") + "\n")
		return b.String()
	}

	for _, ff := range rep.Files {
		b.WriteString("  " + fileStyle.Render(ff.Path) + "\n")
		for _, f := range ff.Findings {
			renderFinding(&b, f)
		}
		b.WriteString("\n")
	}

	// ── Totals ──
	b.WriteString("  " + separatorLine)
	b.WriteString("\n\n")
	b.WriteString("  " + totalsLine(rep) + "\n")
	return b.String()
}

func verdictLine(rep *domain.Report) string {
	crit := rep.CountBySeverity(domain.SeverityCritical)
	switch {
	case crit > 0:
		return lipgloss.NewStyle().Bold(true).Foreground(danger).
			Render(fmt.Sprintf("%d critical violations", crit))
	case rep.Summary.Total > 0:
		return lipgloss.NewStyle().Bold(true).Foreground(warning).
			Render(fmt.Sprintf("%d findings, none critical", rep.Summary.Total))
	default:
		return lipgloss.NewStyle().Bold(true).Foreground(success).
			Render("conforms")
	}
}

func censusLine(layers map[string]int) string {
	if len(layers) == 0 {
		return ""
	}
	var parts []string
	for _, l := range domain.KnownLayers {
		if n := layers[string(l)]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", l, n))
		}
	}
	return strings.Join(parts, "  ·  ")
}

func renderFinding(b *strings.Builder, f domain.Finding) {
	loc := "   ·"
	if f.Line > 0 {
		loc = fmt.Sprintf("%4d", f.Line)
	}
	fmt.Fprintf(b, "    %s %s  %s  %s\n",
		severityTag(f.Severity),
		faintStyle.Render(loc),
		dimStyle.Render(padRight(f.Rule, 24)),
		f.Description,
	)
}

func severityTag(s domain.Severity) string {
	switch s {
	case domain.SeverityCritical:
		return critTagStyle.Render(padRight(string(s), 10))
	case domain.SeverityImportant:
		return warnTagStyle.Render(padRight(string(s), 10))
	default:
		return suggTagStyle.Render(padRight(string(s), 10))
	}
}

func totalsLine(rep *domain.Report) string {
	var parts []string
	if n := rep.CountBySeverity(domain.SeverityCritical); n > 0 {
		parts = append(parts, critTagStyle.Render(fmt.Sprintf("%d critical", n)))
	}
	if n := rep.CountBySeverity(domain.SeverityImportant); n > 0 {
		parts = append(parts, warnTagStyle.Render(fmt.Sprintf("%d important", n)))
	}
	if n := rep.CountBySeverity(domain.SeveritySuggestion); n > 0 {
		parts = append(parts, suggTagStyle.Render(fmt.Sprintf("%d suggestions", n)))
	}
	line := strings.Join(parts, "  ")
	if rep.Summary.ParseFailures > 0 {
		line += "  " + mutedStyle.Render(fmt.Sprintf("(%d files unparsable)", rep.Summary.ParseFailures))
	}
	return line
}

// RenderRules lists the rule table with severities and fix hints.
func RenderRules(specs []rules.Spec) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + titleStyle.Render("Rules") + "\n")
	b.WriteString("  " + faintStyle.Render(strings.Repeat("─", 50)) + "\n\n")

	for _, spec := range specs {
		fmt.Fprintf(&b, "  %s %s  %s\n",
			severityTag(spec.Severity),
			titleStyle.Render(padRight(spec.ID, 26)),
			dimStyle.Render(spec.Summary),
		)
		if hint := rules.FixHint(rules.FixKey(spec.ID)); hint != "" {
			fmt.Fprintf(&b, "  %s %s\n",
				strings.Repeat(" ", 10),
				faintStyle.Render("fix: "+hint),
			)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderHistory formats saved run history, newest entry last, with a
// trend marker against the previous run's total.
func RenderHistory(entries []domain.RunEntry) string {
	if len(entries) == 0 {
		return "  " + dimStyle.Render("No run history found.") + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + titleStyle.Render("Run History") + "\n")
	b.WriteString("  " + faintStyle.Render(strings.Repeat("─", 50)) + "\n\n")

	for i, e := range entries {
		hash := e.CommitHash
		if len(hash) > 7 {
			hash = hash[:7]
		}
		if hash == "" {
			hash = "·······"
		}

		date := e.Timestamp
		if len(date) > 10 {
			date = date[:10]
		}

		counts := fmt.Sprintf("%s %s %s",
			critTagStyle.Render(fmt.Sprintf("%dC", e.Critical)),
			warnTagStyle.Render(fmt.Sprintf("%dI", e.Important)),
			suggTagStyle.Render(fmt.Sprintf("%dS", e.Suggestion)),
		)

		line := fmt.Sprintf("  %s  %s  %s  %s",
			dimStyle.Render(date),
			faintStyle.Render(hash),
			counts,
			dimStyle.Render(fmt.Sprintf("%d units", e.Units)),
		)

		if i > 0 {
			prev := entries[i-1]
			diff := total(e) - total(prev)
			if diff > 0 {
				line += "  " + failStyle.Render(fmt.Sprintf("↑%d", diff))
			} else if diff < 0 {
				line += "  " + passStyle.Render(fmt.Sprintf("↓%d", -diff))
			}
		}

		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}

func total(e domain.RunEntry) int {
	return e.Critical + e.Important + e.Suggestion
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
