package install

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	clilogging "github.com/mocher01/agixt-configs-sub000/internal/cli/logging"
	pkgconfig "github.com/mocher01/agixt-configs-sub000/pkg/config"
	"github.com/mocher01/agixt-configs-sub000/pkg/probe"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Width(14)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

// writeSummary renders the human-readable install summary.
func writeSummary(w io.Writer, opts Options, resolved *pkgconfig.Resolution, installDir string, results []probe.Result) error {
	var b strings.Builder

	title := "AGiXT installed"
	if opts.DryRun {
		title = "AGiXT install (dry run)"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	rows := []struct {
		label string
		value string
	}{
		{"Install path", installDir},
		{"Version", resolved.Set.Get("AGIXT_VERSION")},
		{"Model", resolved.Set.Get("MODEL_REPO")},
		{"Max tokens", resolved.Set.Get("LLM_MAX_TOKENS")},
		{"Backend", resolved.Set.Get("AGIXT_URI")},
		{"Web UI", fmt.Sprintf("http://localhost:%s", resolved.Set.Get("INTERACTIVE_PORT"))},
		{"Inference", resolved.Set.Get("EZLOCALAI_URI")},
		{"API key", clilogging.RedactValue("AGIXT_API_KEY", resolved.Set.Get("AGIXT_API_KEY"))},
	}

	var detail strings.Builder
	for _, row := range rows {
		detail.WriteString(labelStyle.Render(row.label))
		detail.WriteString(" ")
		detail.WriteString(row.value)
		detail.WriteString("\n")
	}
	b.WriteString(boxStyle.Render(strings.TrimRight(detail.String(), "\n")))
	b.WriteString("\n")

	for _, warning := range resolved.Warnings {
		b.WriteString(warnStyle.Render("! " + warning))
		b.WriteString("\n")
	}

	for _, result := range results {
		if result.Healthy {
			b.WriteString(okStyle.Render(fmt.Sprintf("✓ %s", result.Endpoint.Service)))
		} else {
			b.WriteString(failStyle.Render(fmt.Sprintf("✗ %s: %s", result.Endpoint.Service, result.Detail)))
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
