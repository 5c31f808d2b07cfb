package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/archlint/archlint/internal/domain"
	"github.com/archlint/archlint/internal/domain/graph"
)

const (
	graphMaxRows      = 15
	outlierMultiplier = 2.0
)

// RenderGraph produces a terminal view of the dependency graph: a
// summary header, a per-unit metrics table, import cycles, and
// coupling outliers.
func RenderGraph(g *graph.DependencyGraph, layers map[string]domain.Layer, rootPath string) string {
	if g == nil || len(g.Units) == 0 {
		return "\n  " + dimStyle.Render("No Python units found.") + "\n\n"
	}

	var b strings.Builder

	// ── Header box ──
	renderGraphHeader(&b, g, rootPath)

	// ── Metrics table ──
	renderUnitTable(&b, g, layers)

	// ── Cycles ──
	renderCyclesSection(&b, g)

	// ── Coupling outliers ──
	renderOutliersSection(&b, g)

	b.WriteString("\n")
	return b.String()
}

func renderGraphHeader(b *strings.Builder, g *graph.DependencyGraph, rootPath string) {
	externals := 0
	for _, n := range g.Nodes {
		if n.External {
			externals++
		}
	}
	cycleCount := len(g.Cycles())

	title := headerStyle.Render("Dependency Graph")
	rootLine := lipgloss.NewStyle().Bold(true).Foreground(fg).Render(rootPath)

	cycleLabel := passStyle.Render(fmt.Sprintf("%d cycles", cycleCount))
	if cycleCount > 0 {
		cycleLabel = failStyle.Render(fmt.Sprintf("%d cycles", cycleCount))
	}

	stats := dimStyle.Render(fmt.Sprintf(
		"%d units  ·  %d edges  ·  %d external  ·  ", len(g.Units), g.EdgeCount(), externals)) + cycleLabel

	b.WriteString(boxStyle.Render(title + "\n\n" + rootLine + "\n" + stats))
	b.WriteString("\n\n")
}

type unitRow struct {
	path   string
	layer  domain.Layer
	fanIn  int
	fanOut int
}

func renderUnitTable(b *strings.Builder, g *graph.DependencyGraph, layers map[string]domain.Layer) {
	var rows []unitRow
	for path := range g.Units {
		rows = append(rows, unitRow{
			path:   path,
			layer:  layers[path],
			fanIn:  g.FanIn(path),
			fanOut: g.FanOutInternal(path),
		})
	}

	// Most-depended-on units first, then alphabetical.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].fanIn != rows[j].fanIn {
			return rows[i].fanIn > rows[j].fanIn
		}
		return rows[i].path < rows[j].path
	})

	hdrLine := fmt.Sprintf("  %-38s %3s %3s  %s", "Unit", "In", "Out", "Layer")
	b.WriteString(titleStyle.Render(hdrLine) + "\n")
	b.WriteString("  " + faintStyle.Render(strings.Repeat("─", 62)) + "\n")

	shown := graphMaxRows
	if len(rows) < shown {
		shown = len(rows)
	}

	for _, r := range rows[:shown] {
		line := fmt.Sprintf("  %s %3d %3d  %s",
			dimStyle.Render(truncateOrPad(r.path, 38)), r.fanIn, r.fanOut, layerLabel(r.layer))
		b.WriteString(line + "\n")
	}

	remaining := len(rows) - shown
	if remaining > 0 {
		b.WriteString(faintStyle.Render(fmt.Sprintf("  (%d more units)\n", remaining)))
	}

	b.WriteString("\n")
}

func layerLabel(l domain.Layer) string {
	s := padRight(string(l), 12)
	switch l {
	case domain.LayerRouter:
		return warnStyle.Render(s)
	case domain.LayerOperations:
		return passStyle.Render(s)
	case domain.LayerDatabase:
		return suggTagStyle.Render(s)
	case domain.LayerModel:
		return dimStyle.Render(s)
	default:
		return mutedStyle.Render(s)
	}
}

func renderCyclesSection(b *strings.Builder, g *graph.DependencyGraph) {
	b.WriteString("  " + titleStyle.Render("Cycles") + "\n")
	cycles := g.Cycles()
	if len(cycles) == 0 {
		b.WriteString("    " + passStyle.Render("(none)") + "\n")
	} else {
		for _, cycle := range cycles {
			// Show as a → b → a
			parts := make([]string, len(cycle), len(cycle)+1)
			copy(parts, cycle)
			parts = append(parts, cycle[0])
			b.WriteString("    " + failStyle.Render(strings.Join(parts, " → ")) + "\n")
		}
	}
	b.WriteString("\n")
}

func renderOutliersSection(b *strings.Builder, g *graph.DependencyGraph) {
	b.WriteString("  " + titleStyle.Render("Coupling Outliers") + "\n")
	outliers := g.CouplingOutliers(outlierMultiplier)
	if len(outliers) == 0 {
		b.WriteString("    " + passStyle.Render("(none)") + "\n")
		return
	}
	for _, o := range outliers {
		b.WriteString("    " + warnStyle.Render(fmt.Sprintf(
			"%s imports %d units (median: %.0f)", o.Unit, o.FanOut, o.MedianOut)) + "\n")
	}
}

func truncateOrPad(s string, width int) string {
	if len(s) > width {
		return s[:width-1] + "…"
	}
	return padRight(s, width)
}
