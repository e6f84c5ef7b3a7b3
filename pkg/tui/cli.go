// Package tui renders discovery results for the terminal.
// Simple, streaming output: no full-screen UI, just styled text.
package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	"github.com/logflow/patternflow/internal/model"
	"github.com/logflow/patternflow/pkg/activities"
	"github.com/logflow/patternflow/pkg/discovery"
	"github.com/logflow/patternflow/pkg/report"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
	codeStyle    = lipgloss.NewStyle().Background(lipgloss.Color("#1a1a1a")).Foreground(white).Padding(0, 1)
)

const rule = "  ─────────────────────────────────────"

// PrintHeader prints the banner.
func PrintHeader(w io.Writer, version string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("  PATTERNFLOW")+mutedStyle.Render(" "+version))
	fmt.Fprintln(w, mutedStyle.Render("  Activity discovery for event logs"))
	fmt.Fprintln(w)
}

// PrintSummary prints the totals of one discovery pass.
func PrintSummary(w io.Writer, log *model.Log, res *discovery.Result) {
	fmt.Fprintln(w, successStyle.Render("  ✓ DISCOVERY COMPLETE"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Run:"), codeStyle.Render(res.RunID.String()))
	fmt.Fprintf(w, "  %s %s %s\n", mutedStyle.Render("Traces:"),
		titleStyle.Render(formatNumber(int64(len(log.Traces)))),
		mutedStyle.Render(fmt.Sprintf("(%s events)", formatNumber(int64(log.EventCount())))))
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Activities:"), titleStyle.Render(formatNumber(int64(res.Forest.Len()))))
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Instances:"), titleStyle.Render(formatNumber(int64(res.InstanceCount()))))
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Time:"), titleStyle.Render(formatDuration(res.Duration)))
	fmt.Fprintln(w)
}

// PrintForest prints the activity hierarchy as an indented tree.
func PrintForest(w io.Writer, forest *activities.Forest) {
	fmt.Fprintln(w, accentStyle.Render("▸ ACTIVITIES"))
	if forest.Len() == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  none found"))
		return
	}

	var walk func(id activities.NodeID, prefix string, last bool, depth int)
	walk = func(id activities.NodeID, prefix string, last bool, depth int) {
		node := forest.Node(id)
		branch, next := "├─ ", "│  "
		if last {
			branch, next = "└─ ", "   "
		}
		if depth == 0 {
			branch, next = "", ""
		}
		fmt.Fprintf(w, "  %s%s%s %s\n",
			mutedStyle.Render(prefix),
			mutedStyle.Render(branch),
			titleStyle.Render(node.Name),
			mutedStyle.Render(fmt.Sprintf("[L%d, %d classes]", node.Level, node.Classes.Len())))
		for i, c := range node.Children {
			walk(c, prefix+next, i == len(node.Children)-1, depth+1)
		}
	}
	for _, root := range forest.Roots() {
		walk(root, "", true, 0)
	}
	fmt.Fprintln(w)
}

// PrintInstances prints the segmentation of up to limit traces. Gaps
// are shown as dotted runs. A limit of zero or less prints every trace.
func PrintInstances(w io.Writer, log *model.Log, res *discovery.Result, limit int) {
	fmt.Fprintln(w, accentStyle.Render("▸ INSTANCES"))
	n := len(log.Traces)
	if limit > 0 && limit < n {
		n = limit
	}

	for i := 0; i < n; i++ {
		tr := log.Traces[i]
		var parts []string
		activities.Walk(len(tr.Events), res.Instances[i],
			func(start, end int) {
				parts = append(parts, mutedStyle.Render(fmt.Sprintf("·%d", end-start)))
			},
			func(in activities.Instance) {
				name := res.Forest.Node(in.Node).Name
				parts = append(parts, titleStyle.Render(name)+mutedStyle.Render(fmt.Sprintf("@%d+%d", in.Start, in.Length)))
			})
		fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render(tr.CaseID+":"), strings.Join(parts, " "))
	}
	if n < len(log.Traces) {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("  … %d more traces", len(log.Traces)-n)))
	}
	fmt.Fprintln(w)
}

// PrintReport prints per-activity statistics.
func PrintReport(w io.Writer, r *report.Report) {
	fmt.Fprintln(w, accentStyle.Render("▸ COVERAGE"))
	fmt.Fprintln(w, mutedStyle.Render(rule))
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Events covered:"),
		titleStyle.Render(fmt.Sprintf("%.1f%%", 100*r.EventCoverage())))
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Traces without activity:"),
		titleStyle.Render(formatNumber(int64(r.Uncovered().GetCardinality()))))
	fmt.Fprintln(w, mutedStyle.Render(rule))

	for i := range r.Activities {
		st := &r.Activities[i]
		fmt.Fprintf(w, "  %s%-20s %s\n",
			strings.Repeat("  ", st.Depth),
			st.Name,
			mutedStyle.Render(fmt.Sprintf("%d instances, mean %.1f events, %.0f%% of traces",
				st.Instances, st.MeanLength(), 100*r.TraceCoverage(st.Node))))
	}
	fmt.Fprintln(w)
}

// PrintError prints a failure line.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, accentStyle.Render("  ✗ "+err.Error()))
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

// ShowProgress creates a progress indicator for reading a log. A total
// of -1 renders a spinner with a running count.
func ShowProgress(w io.Writer, total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("events"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}
