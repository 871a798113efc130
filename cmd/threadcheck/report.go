package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wasm-threadcheck/harness"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	caseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB")).
			Width(caseWidth)

	passStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#90EE90"))

	failStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const caseWidth = 20

// resultLine renders one finished case.
func resultLine(r harness.Result) string {
	var b strings.Builder
	if r.Passed() {
		b.WriteString(passStyle.Render("PASS"))
	} else {
		b.WriteString(failStyle.Render("FAIL"))
	}
	b.WriteString("  ")
	b.WriteString(caseStyle.Render(r.Case.String()))
	b.WriteString(" ")
	switch {
	case r.Err != nil:
		b.WriteString(failStyle.Render("error: " + r.Err.Error()))
	case r.Mismatch != nil:
		fmt.Fprintf(&b, "expected %s, observed %s", r.Expected, failStyle.Render(r.Observed.String()))
	default:
		b.WriteString(r.Observed.String())
	}
	b.WriteString(" ")
	b.WriteString(helpStyle.Render(r.Duration.Round(time.Millisecond).String()))
	return b.String()
}

func printResult(w io.Writer, r harness.Result) {
	fmt.Fprintln(w, resultLine(r))
}

func summaryLine(report harness.Report) string {
	passed := len(report.Results) - report.Failed()
	line := fmt.Sprintf("%d/%d cases passed in %s", passed, len(report.Results), report.Elapsed.Round(time.Millisecond))
	if report.Passed() {
		return passStyle.Render(line)
	}
	return failStyle.Render(line)
}

func printSummary(w io.Writer, report harness.Report) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, summaryLine(report))
	if err := report.Distinct(); err != nil {
		fmt.Fprintln(w, failStyle.Render("abnormal termination is not distinguishable from exit: "+err.Error()))
	}
}
