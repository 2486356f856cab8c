package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/confrel/confrel/pkg/engine"
	"github.com/confrel/confrel/pkg/rules"
)

var (
	accent  = lipgloss.Color("#D97706") // amber
	dim     = lipgloss.Color("#6B7280") // muted gray
	success = lipgloss.Color("#22C55E") // green
	danger  = lipgloss.Color("#EF4444") // red
	warning = lipgloss.Color("#F59E0B") // amber-yellow
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	dimStyle     = lipgloss.NewStyle().Foreground(dim)
	passStyle    = lipgloss.NewStyle().Foreground(success)
	failStyle    = lipgloss.NewStyle().Foreground(danger).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(warning).Bold(true)
	ruleIDStyle  = lipgloss.NewStyle().Bold(true)
	summaryStyle = lipgloss.NewStyle().Foreground(dim)
)

// RenderJSON renders the report as indented JSON. Findings keep their
// canonical order, so the output is byte-identical across runs on the
// same inputs.
func RenderJSON(r Report) ([]byte, error) {
	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling report: %w", err)
	}
	return append(out, '\n'), nil
}

// RenderText renders a human-readable report. With color disabled the
// same layout is produced without ANSI escapes.
func RenderText(r Report, color bool) string {
	var b strings.Builder

	b.WriteString(styled(color, titleStyle, "confrel"))
	b.WriteString(styled(color, dimStyle, "  cross-file relationship check"))
	b.WriteString("\n\n")

	for _, f := range r.Findings {
		renderFinding(&b, f, color)
	}

	if len(r.Findings) > 0 {
		b.WriteString("\n")
	}
	b.WriteString(renderSummary(r.Summary, color))
	b.WriteString("\n")

	return b.String()
}

func renderFinding(b *strings.Builder, f engine.Finding, color bool) {
	b.WriteString("  ")
	b.WriteString(outcomeTag(f, color))
	b.WriteString("  ")
	b.WriteString(styled(color, ruleIDStyle, f.RuleID))

	if f.LeftPath != "" || f.RightPath != "" {
		b.WriteString("  ")
		b.WriteString(styled(color, dimStyle, f.LeftPath+" / "+f.RightPath))
	}
	b.WriteString("\n")

	if f.Message != "" {
		b.WriteString("        ")
		b.WriteString(f.Message)
		b.WriteString("\n")
	}
}

func outcomeTag(f engine.Finding, color bool) string {
	switch {
	case f.Outcome == engine.OutcomePass:
		return styled(color, passStyle, "PASS")
	case f.Severity == rules.SeverityWarning:
		return styled(color, warnStyle, "WARN")
	default:
		return styled(color, failStyle, "FAIL")
	}
}

func renderSummary(s Summary, color bool) string {
	parts := []string{
		fmt.Sprintf("%d checked", s.Total),
		fmt.Sprintf("%d passed", s.Passed),
	}
	if s.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", s.Failed))
	}
	if s.Missing > 0 {
		parts = append(parts, fmt.Sprintf("%d missing", s.Missing))
	}
	if s.TypeMismatch > 0 {
		parts = append(parts, fmt.Sprintf("%d type mismatches", s.TypeMismatch))
	}
	if s.Errors > 0 {
		parts = append(parts, fmt.Sprintf("%d errors", s.Errors))
	}
	if s.Warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warnings", s.Warnings))
	}
	return "  " + styled(color, summaryStyle, strings.Join(parts, ", "))
}

func styled(color bool, style lipgloss.Style, s string) string {
	if !color {
		return s
	}
	return style.Render(s)
}
