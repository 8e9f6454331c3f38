package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ColonelBlimp/cwtutor/internal/practice"
	"github.com/ColonelBlimp/cwtutor/internal/profile"
)

// ErrNoSessions indicates there is nothing to chart
var ErrNoSessions = errors.New("no sessions recorded")

// WriteChart renders an HTML page with the speed and accuracy history of a
// profile and its per-character accuracy.
func WriteChart(w io.Writer, name string, s profile.Scores) error {
	if len(s.Sessions) == 0 {
		return ErrNoSessions
	}
	page := components.NewPage()
	page.PageTitle = "CW Tutor: " + name
	page.AddCharts(historyChart(name, s.Sessions), accuracyChart(s))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func historyChart(name string, sessions []profile.SessionRecord) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Session history",
			Subtitle: name,
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "time",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:  "value",
			Scale: opts.Bool(true),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	wpm := make([]opts.LineData, 0, len(sessions))
	acc := make([]opts.LineData, 0, len(sessions))
	for _, rec := range sessions {
		wpm = append(wpm, opts.LineData{Value: []interface{}{rec.At, rec.WPM}})
		acc = append(acc, opts.LineData{Value: []interface{}{rec.At, rec.Accuracy}})
	}

	line.AddSeries("WPM", wpm).
		AddSeries("Accuracy %", acc).
		SetSeriesOptions(charts.WithLineStyleOpts(opts.LineStyle{Width: 2}))
	return line
}

func accuracyChart(s profile.Scores) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Accuracy by character"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Max: 100}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	stats := s.Stats()
	order := stats.Weakest()
	labels := make([]string, 0, len(order))
	items := make([]opts.BarData, 0, len(order))
	for _, tok := range order {
		cs := stats[tok]
		labels = append(labels, Token(tok))
		items = append(items, opts.BarData{Value: practice.Accuracy(cs.Correct, cs.Incorrect)})
	}
	bar.SetXAxis(labels).AddSeries("Accuracy %", items)
	return bar
}
