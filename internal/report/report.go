// Package report renders session summaries and profile statistics.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/ColonelBlimp/cwtutor/internal/practice"
	"github.com/ColonelBlimp/cwtutor/internal/profile"
)

// weakestShown is how many weak characters a summary lists
const weakestShown = 5

var (
	headStyle = lipgloss.NewStyle().Bold(true)
	goodStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	fairStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	poorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// SummaryLines describes a finished run, one fact per line.
func SummaryLines(sum practice.Summary) []string {
	state := "complete"
	if !sum.Completed {
		state = "finished early"
	}
	lines := []string{
		fmt.Sprintf("Run %s: %d/%d correct", state, sum.Correct, sum.Correct+sum.Incorrect),
		fmt.Sprintf("Accuracy %.1f%%  Speed %.1f WPM  Time %s", sum.Accuracy, sum.WPM, sum.Elapsed().Round(time.Second)),
	}
	if t := sum.Timing; t.Elements > 0 {
		lines = append(lines, fmt.Sprintf("Timing dit %.2f  dah %.2f  spread %.2f (%d elements)",
			t.DitRatio, t.DahRatio, t.Spread, t.Elements))
	}
	var weak []string
	for _, tok := range sum.Stats.Weakest() {
		if sum.Stats[tok].Incorrect == 0 || len(weak) == weakestShown {
			break
		}
		weak = append(weak, Token(tok))
	}
	if len(weak) > 0 {
		lines = append(lines, "Practise: "+strings.Join(weak, " "))
	}
	return lines
}

// Token renders a prosign in <XX> notation.
func Token(tok string) string {
	if len(tok) > 1 {
		return "<" + tok + ">"
	}
	return tok
}

// WriteStats prints the lifetime table of a profile, weakest characters
// first. color enables ANSI styling.
func WriteStats(w io.Writer, name string, s profile.Scores, color bool) error {
	style := func(st lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return st.Render(text)
	}

	hs := s.HighScores
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", style(headStyle, "Profile "+name))
	fmt.Fprintf(&b, "Sessions %d  Best WPM %.1f  Best accuracy %.1f%%\n\n", hs.TotalSessions, hs.BestWPM, hs.BestAccuracy)

	stats := s.Stats()
	if len(stats) == 0 {
		b.WriteString("No characters scored yet.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	header := []string{"Char", "Accuracy", "Correct", "Incorrect"}
	order := stats.Weakest()
	rows := make([][]string, 0, len(order))
	for _, tok := range order {
		cs := stats[tok]
		rows = append(rows, []string{
			Token(tok),
			fmt.Sprintf("%.1f%%", practice.Accuracy(cs.Correct, cs.Incorrect)),
			fmt.Sprintf("%d", cs.Correct),
			fmt.Sprintf("%d", cs.Incorrect),
		})
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	b.WriteString(style(headStyle, formatRow(header, widths)) + "\n")
	for i, row := range rows {
		line := formatRow(row, widths)
		cs := stats[order[i]]
		b.WriteString(style(accuracyStyle(practice.Accuracy(cs.Correct, cs.Incorrect)), line) + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func formatRow(cells []string, widths []int) string {
	padded := make([]string, len(cells))
	for i, cell := range cells {
		padded[i] = runewidth.FillRight(cell, widths[i])
	}
	return strings.TrimRight(strings.Join(padded, "  "), " ")
}

func accuracyStyle(pct float64) lipgloss.Style {
	switch {
	case pct >= 90:
		return goodStyle
	case pct >= 70:
		return fairStyle
	default:
		return poorStyle
	}
}
