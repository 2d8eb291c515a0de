package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-gridmap/pkg/network"
	"github.com/dd0wney/cluso-gridmap/pkg/pipeline"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF"))

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 2).
			MarginRight(2)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

type summary struct {
	RunID   string
	Result  *pipeline.Result
	Skipped int
	Outputs []string
}

func (s summary) roleCounts() map[network.Role]int {
	counts := make(map[network.Role]int, len(network.Roles))
	for _, site := range s.Result.Sites {
		counts[site.Role]++
	}
	return counts
}

func (s summary) totalArea() float64 {
	total := 0.0
	for _, site := range s.Result.Sites {
		total += site.Area
	}
	return total
}

func line(label string, value any) string {
	return fmt.Sprintf("%s %v", labelStyle.Render(fmt.Sprintf("%-22s", label)), value)
}

func warnLine(label string, n int) string {
	v := fmt.Sprint(n)
	if n > 0 {
		v = warnStyle.Render(v)
	}
	return line(label, v)
}

// Render draws the run summary printed after a successful run.
func (s summary) Render() string {
	d := s.Result.Diagnostics

	var roles strings.Builder
	roles.WriteString(titleStyle.Render("Roles") + "\n")
	counts := s.roleCounts()
	for _, role := range network.Roles {
		roles.WriteString(line(string(role), counts[role]) + "\n")
	}

	var diag strings.Builder
	diag.WriteString(titleStyle.Render("Diagnostics") + "\n")
	diag.WriteString(line("sites", len(s.Result.Sites)) + "\n")
	diag.WriteString(line("area (km²)", fmt.Sprintf("%.2f", s.totalArea()/1e6)) + "\n")
	diag.WriteString(warnLine("engulfed", len(d.Engulfed)) + "\n")
	diag.WriteString(warnLine("dropped", len(d.Dropped)) + "\n")
	diag.WriteString(warnLine("unresolved", len(d.Unresolved)) + "\n")
	diag.WriteString(warnLine("broken cycles", len(d.BrokenCycles)) + "\n")
	diag.WriteString(warnLine("unassigned gaps", len(d.Unassigned)) + "\n")
	diag.WriteString(warnLine("inconsistencies", len(d.Inconsistencies)) + "\n")
	diag.WriteString(warnLine("skipped rows", s.Skipped))

	var out strings.Builder
	out.WriteString(titleStyle.Render("gridmap run "+s.RunID) + "\n")
	out.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		boxStyle.Render(strings.TrimRight(roles.String(), "\n")),
		boxStyle.Render(diag.String())))
	if len(s.Outputs) > 0 {
		out.WriteString("\n" + titleStyle.Render("Outputs") + "\n")
		for _, o := range s.Outputs {
			out.WriteString("  " + o + "\n")
		}
	}
	return strings.TrimRight(out.String(), "\n")
}
