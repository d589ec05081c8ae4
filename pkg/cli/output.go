package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/devicelab-dev/wallet-e2e/pkg/core"
	"github.com/devicelab-dev/wallet-e2e/pkg/scenarios"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// Slow step threshold in milliseconds
const slowThresholdMs = 5000

// colorsEnabled determines if ANSI colors should be used
var colorsEnabled = true

func init() {
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
		return
	}
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			colorsEnabled = false
		}
	}
}

// color returns the color code if colors are enabled, empty string otherwise
func color(c string) string {
	if colorsEnabled {
		return c
	}
	return ""
}

func printSetupSuccess(out io.Writer, msg string) {
	fmt.Fprintf(out, "  %s✓%s %s\n", color(colorGreen), color(colorReset), msg)
}

// progress prints live scenario progress.
type progress struct {
	out io.Writer
}

func (p *progress) scenarioStart(idx, total int, sc scenarios.Scenario) {
	fmt.Fprintf(p.out, "\n  %s[%d/%d]%s %s%s%s\n",
		color(colorCyan), idx+1, total, color(colorReset),
		color(colorBold), sc.Name, color(colorReset))
	if sc.Description != "" {
		fmt.Fprintf(p.out, "        %s%s%s\n", color(colorGray), sc.Description, color(colorReset))
	}
}

func (p *progress) stepComplete(_ scenarios.Scenario, step core.StepResult) {
	ms := step.Duration.Milliseconds()
	if step.Status == core.StatusPassed {
		symbolColor := color(colorGreen)
		durColor := ""
		if ms > slowThresholdMs {
			symbolColor = color(colorYellow)
			durColor = color(colorYellow)
		}
		fmt.Fprintf(p.out, "    %s✓%s %s %s(%s)%s\n",
			symbolColor, color(colorReset), step.Name,
			durColor, formatDuration(ms), color(colorReset))
		return
	}
	fmt.Fprintf(p.out, "    %s✗%s %s (%s)\n",
		color(colorRed), color(colorReset), step.Name, formatDuration(ms))
	if step.Error != "" {
		fmt.Fprintf(p.out, "      %s╰─%s %s\n", color(colorGray), color(colorReset), step.Error)
	}
}

func (p *progress) scenarioEnd(res core.ScenarioResult) {
	ms := res.Duration.Milliseconds()
	switch res.Status {
	case core.StatusPassed:
		fmt.Fprintf(p.out, "  %s✓%s %s %s(%s)%s\n",
			color(colorGreen), color(colorReset), res.Name,
			color(colorGray), formatDuration(ms), color(colorReset))
	case core.StatusSkipped:
		fmt.Fprintf(p.out, "  %s-%s %s skipped\n", color(colorCyan), color(colorReset), res.Name)
	default:
		fmt.Fprintf(p.out, "  %s✗%s %s %s(%s)%s\n",
			color(colorRed), color(colorReset), res.Name,
			color(colorGray), formatDuration(ms), color(colorReset))
		if res.Error != "" {
			fmt.Fprintf(p.out, "    %s%s:%s %s\n", color(colorGray), res.Category, color(colorReset), res.Error)
		}
		for _, a := range res.Attachments {
			if a.Path != "" {
				fmt.Fprintf(p.out, "    %s%s:%s %s\n", color(colorGray), a.Name, color(colorReset), a.Path)
			}
		}
	}
}

func statusLabel(s core.Status) (string, string) {
	switch s {
	case core.StatusPassed:
		return "✓ PASS", color(colorGreen)
	case core.StatusFailed:
		return "✗ FAIL", color(colorRed)
	case core.StatusErrored:
		return "! ERR", color(colorRed)
	case core.StatusSkipped:
		return "- SKIP", color(colorCyan)
	default:
		return "?", ""
	}
}

func printSummary(out io.Writer, suite *core.SuiteResult) {
	fmt.Fprintln(out)
	if suite.Passed > 0 {
		fmt.Fprintf(out, "  %s%d passing%s (%s)\n",
			color(colorGreen), suite.Passed, color(colorReset), formatDuration(suite.Duration.Milliseconds()))
	}
	if suite.Failed > 0 {
		fmt.Fprintf(out, "  %s%d failing%s\n", color(colorRed), suite.Failed, color(colorReset))
	}
	if suite.Errored > 0 {
		fmt.Fprintf(out, "  %s%d errored%s\n", color(colorRed), suite.Errored, color(colorReset))
	}
	if suite.Skipped > 0 {
		fmt.Fprintf(out, "  %s%d skipped%s\n", color(colorCyan), suite.Skipped, color(colorReset))
	}
	fmt.Fprintln(out)

	tableWidth := 84
	fmt.Fprintln(out, strings.Repeat("═", tableWidth))
	fmt.Fprintf(out, "  %-36s %6s %6s %10s  %s\n", "Scenario", "Status", "Steps", "Duration", "Category")
	fmt.Fprintln(out, strings.Repeat("─", tableWidth))

	for _, sc := range suite.Scenarios {
		status, statusColor := statusLabel(sc.Status)
		name := sc.Name
		if len(name) > 36 {
			name = name[:33] + "..."
		}
		category := ""
		if sc.Category != core.ErrCategoryNone {
			category = sc.Category.String()
		}
		fmt.Fprintf(out, "  %-36s %s%6s%s %6d %10s  %s\n",
			name, statusColor, status, color(colorReset),
			len(sc.Steps), formatDuration(sc.Duration.Milliseconds()), category)
	}

	fmt.Fprintln(out, strings.Repeat("─", tableWidth))
	statusStr := fmt.Sprintf("%d/%d", suite.Passed, suite.Total)
	statusColor := color(colorGreen)
	if !suite.Success() {
		statusColor = color(colorRed)
	}
	fmt.Fprintf(out, "  %s%-36s%s %s%6s%s %6s %10s\n",
		color(colorBold), "TOTAL", color(colorReset),
		statusColor, statusStr, color(colorReset),
		"", formatDuration(suite.Duration.Milliseconds()))
	fmt.Fprintln(out, strings.Repeat("═", tableWidth))
}

func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm %ds", mins, secs)
}
