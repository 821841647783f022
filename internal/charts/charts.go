// Package charts renders session summaries as self-contained ECharts
// HTML documents.
package charts

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/laplens-data/laplens/internal/gps"
	"github.com/laplens-data/laplens/internal/telemetry"
)

// Pace colors for lap time bars.
const (
	ColorBest   = "#0066ff"
	ColorFast   = "#00cc66"
	ColorMedium = "#ffcc00"
	ColorSlow   = "#ff3333"
)

func paceColor(lap telemetry.LapSummary, bestTime float64) string {
	if lap.Best {
		return ColorBest
	}
	switch telemetry.Pace(lap.LapTime, bestTime) {
	case telemetry.PaceFast:
		return ColorFast
	case telemetry.PaceMedium:
		return ColorMedium
	default:
		return ColorSlow
	}
}

// RenderLapTimes writes a bar chart of lap times colored by pace
// relative to the best lap.
func RenderLapTimes(w io.Writer, summary *telemetry.SessionSummary, title string) error {
	if len(summary.Laps) == 0 {
		return fmt.Errorf("no laps to chart")
	}

	bestTime := 0.0
	if best := summary.Lap(summary.BestLap); best != nil {
		bestTime = best.LapTime
	}

	x := make([]string, 0, len(summary.Laps))
	y := make([]opts.BarData, 0, len(summary.Laps))
	for _, lap := range summary.Laps {
		x = append(x, fmt.Sprintf("Lap %d", lap.Lap))
		y = append(y, opts.BarData{
			Value:     lap.LapTime,
			ItemStyle: &opts.ItemStyle{Color: paceColor(lap, bestTime)},
		})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("best lap %d (%.3fs)", summary.BestLap, bestTime)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Lap time (s)", Scale: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("lap time", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	return bar.Render(w)
}

// RenderDeltas writes a bar chart of each lap's delta to the best lap.
// The best lap's bar is exactly zero.
func RenderDeltas(w io.Writer, summary *telemetry.SessionSummary, title string) error {
	if len(summary.Laps) == 0 {
		return fmt.Errorf("no laps to chart")
	}

	x := make([]string, 0, len(summary.Laps))
	y := make([]opts.BarData, 0, len(summary.Laps))
	for _, lap := range summary.Laps {
		x = append(x, fmt.Sprintf("Lap %d", lap.Lap))
		color := ColorSlow
		if lap.Best {
			color = ColorBest
		} else if lap.Consistent {
			color = ColorFast
		}
		y = append(y, opts.BarData{
			Value:     lap.DeltaToBest,
			ItemStyle: &opts.ItemStyle{Color: color},
		})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Delta to best (s)"}),
	)
	bar.SetXAxis(x).AddSeries("delta", y)

	return bar.Render(w)
}

// RenderSectorComparison writes a grouped bar chart: one series per
// sector, one bar group per lap. Laps with a sector mismatch have no
// bars.
func RenderSectorComparison(w io.Writer, summary *telemetry.SessionSummary, title string) error {
	if len(summary.Laps) == 0 {
		return fmt.Errorf("no laps to chart")
	}

	x := make([]string, 0, len(summary.Laps))
	for _, lap := range summary.Laps {
		x = append(x, fmt.Sprintf("Lap %d", lap.Lap))
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Sector time (s)", Scale: opts.Bool(true)}),
	)
	bar.SetXAxis(x)

	for sector := 1; sector <= summary.SectorCount; sector++ {
		y := make([]opts.BarData, 0, len(summary.Laps))
		for _, lap := range summary.Laps {
			var value interface{}
			for _, sec := range lap.Sectors {
				if sec.Sector == sector {
					value = sec.SectorTime
					break
				}
			}
			y = append(y, opts.BarData{Value: value})
		}
		bar.AddSeries(fmt.Sprintf("Sector %d", sector), y)
	}

	return bar.Render(w)
}

// RenderTrackMap writes a speed-colored scatter of the driven GPS line.
func RenderTrackMap(w io.Writer, samples []telemetry.Sample, title string) error {
	data := make([]opts.ScatterData, 0, len(samples))
	maxSpeed := 0.0
	for _, s := range samples {
		if !gps.HasFix(s) {
			continue
		}
		if s.Speed > maxSpeed {
			maxSpeed = s.Speed
		}
		data = append(data, opts.ScatterData{Value: []interface{}{s.Longitude, s.Latitude, s.Speed}})
	}
	if len(data) == 0 {
		return fmt.Errorf("no GPS data to chart")
	}
	if maxSpeed == 0 {
		maxSpeed = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("points=%d", len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Longitude", Scale: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Latitude", Scale: opts.Bool(true)}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxSpeed),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{ColorSlow, ColorMedium, ColorFast}},
		}),
	)
	scatter.AddSeries("speed", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))

	return scatter.Render(w)
}
