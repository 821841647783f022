package charts

import (
	"bytes"
	"strings"
	"testing"

	"github.com/laplens-data/laplens/internal/telemetry"
)

func chartSummary() *telemetry.SessionSummary {
	return &telemetry.SessionSummary{
		BestLap:     2,
		SectorCount: 2,
		Laps: []telemetry.LapSummary{
			{Lap: 1, LapTime: 101.0, DeltaToBest: 1.0, Consistent: true,
				Sectors: []telemetry.SectorSummary{
					{Sector: 1, SectorTime: 50.0}, {Sector: 2, SectorTime: 51.0},
				}},
			{Lap: 2, LapTime: 100.0, Best: true, Consistent: true,
				Sectors: []telemetry.SectorSummary{
					{Sector: 1, SectorTime: 49.5}, {Sector: 2, SectorTime: 50.5},
				}},
			{Lap: 3, LapTime: 108.0, DeltaToBest: 8.0},
		},
	}
}

func TestRenderLapTimes(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderLapTimes(&buf, chartSummary(), "Lap Times"); err != nil {
		t.Fatalf("RenderLapTimes failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Lap Times", "Lap 1", "Lap 3", ColorBest, ColorSlow} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRenderLapTimesEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderLapTimes(&buf, &telemetry.SessionSummary{}, "x"); err == nil {
		t.Fatal("expected error for empty summary")
	}
}

func TestRenderDeltas(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderDeltas(&buf, chartSummary(), "Deltas"); err != nil {
		t.Fatalf("RenderDeltas failed: %v", err)
	}
	if !strings.Contains(buf.String(), "delta") {
		t.Error("output missing delta series")
	}
}

func TestRenderSectorComparison(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSectorComparison(&buf, chartSummary(), "Sectors"); err != nil {
		t.Fatalf("RenderSectorComparison failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Sector 1") || !strings.Contains(out, "Sector 2") {
		t.Error("output missing sector series")
	}
}

func TestRenderTrackMap(t *testing.T) {
	samples := []telemetry.Sample{
		{Latitude: 33.530, Longitude: -86.620, Speed: 120},
		{Latitude: 33.531, Longitude: -86.619, Speed: 150},
	}
	var buf bytes.Buffer
	if err := RenderTrackMap(&buf, samples, "Track Map"); err != nil {
		t.Fatalf("RenderTrackMap failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Track Map") {
		t.Error("output missing title")
	}

	if err := RenderTrackMap(&buf, []telemetry.Sample{{Speed: 1}}, "x"); err == nil {
		t.Fatal("expected error without GPS data")
	}
}
