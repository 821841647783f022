package gps

import (
	"fmt"
	"image/color"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/laplens-data/laplens/internal/telemetry"
)

// lapPalette colors individual laps on multi-lap comparison maps.
var lapPalette = []color.Color{
	color.RGBA{R: 0xFF, G: 0x6B, B: 0x6B, A: 0xFF},
	color.RGBA{R: 0x4E, G: 0xCD, B: 0xC4, A: 0xFF},
	color.RGBA{R: 0x45, G: 0xB7, B: 0xD1, A: 0xFF},
	color.RGBA{R: 0xFF, G: 0xA0, B: 0x7A, A: 0xFF},
	color.RGBA{R: 0x98, G: 0xD8, B: 0xC8, A: 0xFF},
}

// RenderTrackMap draws the driven line colored by speed and saves it as
// a PNG. Samples without a GPS fix are skipped.
func RenderTrackMap(samples []telemetry.Sample, title, outFile string) error {
	pts, speeds := fixedPoints(samples)
	if len(pts) == 0 {
		return fmt.Errorf("no GPS data to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"

	minSpeed, maxSpeed := speeds[0], speeds[0]
	for _, v := range speeds {
		if v < minSpeed {
			minSpeed = v
		}
		if v > maxSpeed {
			maxSpeed = v
		}
	}

	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("failed to build scatter: %w", err)
	}
	sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		return draw.GlyphStyle{
			Color:  speedColor(speeds[i], minSpeed, maxSpeed),
			Radius: vg.Points(1.5),
			Shape:  draw.CircleGlyph{},
		}
	}
	p.Add(sc)

	if err := p.Save(10*vg.Inch, 8*vg.Inch, outFile); err != nil {
		return fmt.Errorf("failed to save track map: %w", err)
	}
	return nil
}

// RenderLapComparison draws one line per requested lap and saves a PNG.
func RenderLapComparison(samples []telemetry.Sample, laps []int, title, outFile string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"

	sorted := append([]int(nil), laps...)
	sort.Ints(sorted)

	plotted := 0
	for i, lapNum := range sorted {
		var pts plotter.XYs
		for _, s := range samples {
			if s.Lap != lapNum || !HasFix(s) {
				continue
			}
			pts = append(pts, plotter.XY{X: s.Longitude, Y: s.Latitude})
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("lap %d: %w", lapNum, err)
		}
		line.Color = lapPalette[i%len(lapPalette)]
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("Lap %d", lapNum), line)
		plotted++
	}
	if plotted == 0 {
		return fmt.Errorf("no GPS data to plot for laps %v", laps)
	}

	p.Legend.Top = true
	p.Legend.Left = true

	if err := p.Save(10*vg.Inch, 8*vg.Inch, outFile); err != nil {
		return fmt.Errorf("failed to save lap comparison: %w", err)
	}
	return nil
}

func fixedPoints(samples []telemetry.Sample) (plotter.XYs, []float64) {
	var pts plotter.XYs
	var speeds []float64
	for _, s := range samples {
		if !HasFix(s) {
			continue
		}
		pts = append(pts, plotter.XY{X: s.Longitude, Y: s.Latitude})
		speeds = append(speeds, s.Speed)
	}
	return pts, speeds
}

// speedColor maps a speed onto a red-to-green gradient, slow to fast.
func speedColor(speed, min, max float64) color.Color {
	t := 0.5
	if max > min {
		t = (speed - min) / (max - min)
	}
	r := uint8(255 * (1 - t))
	g := uint8(255 * t)
	return color.RGBA{R: r, G: g, B: 0x30, A: 0xFF}
}
