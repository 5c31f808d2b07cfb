package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/archlint/archlint/internal/domain"
	"github.com/archlint/archlint/internal/domain/report"
)

var (
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	hintStyle          = lipgloss.NewStyle().Foreground(dim).Italic(true)
)

// RenderDiff renders a baseline comparison: regressions in full, fixed
// findings as a short list, unchanged ones as a count only.
func RenderDiff(d report.Diff) string {
	var b strings.Builder

	// Header
	newLabel := passStyle.Render("0 new")
	if len(d.New) > 0 {
		newLabel = failStyle.Render(fmt.Sprintf("%d new", len(d.New)))
	}
	counts := newLabel + dimStyle.Render(fmt.Sprintf(
		"  ·  %d fixed  ·  %d unchanged", len(d.Fixed), len(d.Unchanged)))

	title := titleStyle.Render("Baseline Comparison")
	b.WriteString(boxStyle.Render(title + "\n" + counts))
	b.WriteString("\n")

	renderDiffSection(&b, "New Findings", d.New, true)
	renderDiffSection(&b, "Fixed", d.Fixed, false)

	if len(d.New) == 0 && len(d.Fixed) == 0 {
		b.WriteString("\n  " + passStyle.Render("No changes against the baseline.") + "\n")
	}

	// Footer
	b.WriteString("\n")
	b.WriteString("  " + hintStyle.Render("Run audit --save-baseline to accept the current findings."))
	b.WriteString("\n")

	return b.String()
}

func renderDiffSection(b *strings.Builder, title string, items []domain.Finding, regression bool) {
	if len(items) == 0 {
		return
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s %s\n",
		sectionHeaderStyle.Render(title),
		dimStyle.Render(fmt.Sprintf("(%d)", len(items))),
	))

	for _, f := range items {
		if regression {
			loc := f.Unit
			if f.Line > 0 {
				loc = fmt.Sprintf("%s:%d", f.Unit, f.Line)
			}
			fmt.Fprintf(b, "    %s %s\n", failStyle.Render("●"), fileStyle.Render(loc))
			fmt.Fprintf(b, "      %s %s\n", severityTag(f.Severity), dimStyle.Render(f.Description))
		} else {
			fmt.Fprintf(b, "    %s %s  %s\n",
				passStyle.Render("✓"),
				dimStyle.Render(f.Unit),
				faintStyle.Render(f.Description),
			)
		}
	}
}
