package telemetry

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var sessionStart = time.Date(2025, 4, 12, 14, 0, 0, 0, time.UTC)

// sampleAt builds a minimal sample at an offset (seconds) into the session.
func sampleAt(sec float64, lap, sector int) Sample {
	return Sample{
		Time:   sessionStart.Add(time.Duration(sec * float64(time.Second))),
		Lap:    lap,
		Sector: sector,
		Speed:  100,
	}
}

func TestSummarizeLapTimesAndDeltas(t *testing.T) {
	// Two laps, three samples each. Lap 1 takes 20s, lap 2 takes 19s, so
	// lap 2 is the session best and lap 1 trails by exactly 1.0s.
	samples := []Sample{
		sampleAt(0, 1, 1),
		sampleAt(10, 1, 1),
		sampleAt(20, 1, 1),
		sampleAt(100, 2, 1),
		sampleAt(108, 2, 1),
		sampleAt(119, 2, 1),
	}

	summary, err := Summarize(samples, Config{SectorCount: 1})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if len(summary.Laps) != 2 {
		t.Fatalf("got %d laps, want 2", len(summary.Laps))
	}
	if summary.BestLap != 2 {
		t.Errorf("best lap = %d, want 2", summary.BestLap)
	}

	lap1, lap2 := summary.Laps[0], summary.Laps[1]
	if lap1.LapTime != 20.0 {
		t.Errorf("lap 1 time = %v, want 20.0", lap1.LapTime)
	}
	if lap2.LapTime != 19.0 {
		t.Errorf("lap 2 time = %v, want 19.0", lap2.LapTime)
	}
	if lap2.DeltaToBest != 0.0 {
		t.Errorf("best lap delta = %v, want exactly 0.0", lap2.DeltaToBest)
	}
	if !lap2.Best {
		t.Error("lap 2 should carry the best flag")
	}
	if lap1.DeltaToBest != 1.0 {
		t.Errorf("lap 1 delta = %v, want 1.0", lap1.DeltaToBest)
	}
}

func TestSummarizeDeterministic(t *testing.T) {
	samples := []Sample{
		sampleAt(0, 1, 1), sampleAt(5, 1, 2), sampleAt(11, 1, 2),
		sampleAt(20, 2, 1), sampleAt(24, 2, 2), sampleAt(30, 2, 2),
	}
	cfg := Config{SectorCount: 2}

	first, err := Summarize(samples, cfg)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	second, err := Summarize(samples, cfg)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated invocation differs (-first +second):\n%s", diff)
	}
}

func TestSummarizeRejectsDecreasingLapNumbers(t *testing.T) {
	samples := []Sample{
		sampleAt(0, 1, 1), sampleAt(1, 1, 1),
		sampleAt(2, 2, 1), sampleAt(3, 2, 1),
		sampleAt(4, 1, 1),
	}

	_, err := Summarize(samples, Config{SectorCount: 1})
	var malformed *MalformedInputError
	if !errors.As(err, &malformed) {
		t.Fatalf("got %v, want MalformedInputError", err)
	}
}

func TestSummarizeRejectsSingleSampleLap(t *testing.T) {
	samples := []Sample{
		sampleAt(0, 1, 1), sampleAt(10, 1, 1),
		sampleAt(20, 2, 1), // lap 2 has one sample, no duration
	}

	_, err := Summarize(samples, Config{SectorCount: 1})
	var malformed *MalformedInputError
	if !errors.As(err, &malformed) {
		t.Fatalf("got %v, want MalformedInputError", err)
	}
	if malformed.Lap != 2 {
		t.Errorf("error lap = %d, want 2", malformed.Lap)
	}
}

func TestSummarizeRejectsDecreasingTimestamps(t *testing.T) {
	samples := []Sample{
		sampleAt(0, 1, 1), sampleAt(10, 1, 1), sampleAt(5, 1, 1),
	}

	_, err := Summarize(samples, Config{SectorCount: 1})
	var malformed *MalformedInputError
	if !errors.As(err, &malformed) {
		t.Fatalf("got %v, want MalformedInputError", err)
	}
}

func TestSummarizeSectorMismatch(t *testing.T) {
	// Lap 1 has all three sectors; lap 2 only shows two sector runs. Lap 2
	// keeps its time but loses the sector breakdown.
	samples := []Sample{
		sampleAt(0, 1, 1), sampleAt(10, 1, 2), sampleAt(20, 1, 3), sampleAt(30, 1, 3),
		sampleAt(40, 2, 1), sampleAt(50, 2, 2), sampleAt(65, 2, 2),
	}

	summary, err := Summarize(samples, Config{SectorCount: 3})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	lap2 := summary.Lap(2)
	if lap2 == nil {
		t.Fatal("lap 2 missing from summary")
	}
	if !lap2.SectorMismatch {
		t.Error("lap 2 should be flagged sector-mismatched")
	}
	if len(lap2.Sectors) != 0 {
		t.Errorf("lap 2 has %d sectors, want none", len(lap2.Sectors))
	}
	if lap2.LapTime != 25.0 {
		t.Errorf("lap 2 time = %v, want 25.0", lap2.LapTime)
	}

	if len(summary.Warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(summary.Warnings))
	}
	w := summary.Warnings[0]
	if w.Lap != 2 || w.Runs != 2 || w.Want != 3 {
		t.Errorf("warning = %+v, want lap 2 with 2 runs of 3", w)
	}
}

func TestSummarizePartialLapNeverWinsBest(t *testing.T) {
	// Lap 2 ends mid-lap: numerically shorter elapsed time but only one of
	// two sectors. Lap 1 must stay the best lap.
	samples := []Sample{
		sampleAt(0, 1, 1), sampleAt(10, 1, 2), sampleAt(20, 1, 2),
		sampleAt(30, 2, 1), sampleAt(35, 2, 1),
	}

	summary, err := Summarize(samples, Config{SectorCount: 2})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary.BestLap != 1 {
		t.Errorf("best lap = %d, want 1 (partial lap 2 excluded)", summary.BestLap)
	}
	if summary.Lap(1).DeltaToBest != 0.0 {
		t.Errorf("lap 1 delta = %v, want 0.0", summary.Lap(1).DeltaToBest)
	}
}

func TestSummarizeBestSectorDeltas(t *testing.T) {
	// Sector 1 is fastest on lap 2 (4s vs 5s); sector 2 fastest on lap 1
	// (6s vs 8s).
	samples := []Sample{
		sampleAt(0, 1, 1), sampleAt(5, 1, 2), sampleAt(11, 1, 2),
		sampleAt(20, 2, 1), sampleAt(24, 2, 2), sampleAt(32, 2, 2),
	}

	summary, err := Summarize(samples, Config{SectorCount: 2})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	lap1, lap2 := summary.Lap(1), summary.Lap(2)
	if d := lap2.Sectors[0].DeltaToBest; d != 0.0 {
		t.Errorf("lap 2 sector 1 delta = %v, want 0.0", d)
	}
	if d := lap1.Sectors[0].DeltaToBest; d != 1.0 {
		t.Errorf("lap 1 sector 1 delta = %v, want 1.0", d)
	}
	if d := lap1.Sectors[1].DeltaToBest; d != 0.0 {
		t.Errorf("lap 1 sector 2 delta = %v, want 0.0", d)
	}
	if d := lap2.Sectors[1].DeltaToBest; d != 2.0 {
		t.Errorf("lap 2 sector 2 delta = %v, want 2.0", d)
	}
	want := []float64{4.0, 6.0}
	if diff := cmp.Diff(want, summary.SectorBests); diff != "" {
		t.Errorf("sector bests differ (-want +got):\n%s", diff)
	}

	for _, lap := range summary.Laps {
		for _, sec := range lap.Sectors {
			if sec.DeltaToBest < 0 {
				t.Errorf("lap %d sector %d has negative delta %v", lap.Lap, sec.Sector, sec.DeltaToBest)
			}
		}
	}
}

func TestSummarizeTieGoesToLowestLap(t *testing.T) {
	samples := []Sample{
		sampleAt(0, 1, 1), sampleAt(20, 1, 1),
		sampleAt(30, 2, 1), sampleAt(50, 2, 1),
	}

	summary, err := Summarize(samples, Config{SectorCount: 1})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary.BestLap != 1 {
		t.Errorf("best lap = %d, want 1 on tie", summary.BestLap)
	}
}

func TestSummarizeConsistencyFlag(t *testing.T) {
	// Best 100s; 101s is within the default 2%, 105s is not.
	samples := []Sample{
		sampleAt(0, 1, 1), sampleAt(100, 1, 1),
		sampleAt(110, 2, 1), sampleAt(211, 2, 1),
		sampleAt(220, 3, 1), sampleAt(325, 3, 1),
	}

	summary, err := Summarize(samples, Config{SectorCount: 1})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if !summary.Lap(1).Consistent {
		t.Error("best lap should be consistent")
	}
	if !summary.Lap(2).Consistent {
		t.Error("lap within 2% of best should be consistent")
	}
	if summary.Lap(3).Consistent {
		t.Error("lap 5% off best should not be consistent")
	}
}

func TestSummarizeSpeedStats(t *testing.T) {
	samples := []Sample{
		{Time: sessionStart, Lap: 1, Sector: 1, Speed: 80},
		{Time: sessionStart.Add(10 * time.Second), Lap: 1, Sector: 1, Speed: 120},
		{Time: sessionStart.Add(20 * time.Second), Lap: 1, Sector: 1, Speed: 100},
	}

	summary, err := Summarize(samples, Config{SectorCount: 1})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	lap := summary.Laps[0]
	if lap.MaxSpeed != 120 || lap.MinSpeed != 80 {
		t.Errorf("speed range = [%v, %v], want [80, 120]", lap.MinSpeed, lap.MaxSpeed)
	}
	if math.Abs(lap.AvgSpeed-100) > 1e-9 {
		t.Errorf("avg speed = %v, want 100", lap.AvgSpeed)
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	_, err := Summarize(nil, Config{SectorCount: 1})
	var malformed *MalformedInputError
	if !errors.As(err, &malformed) {
		t.Fatalf("got %v, want MalformedInputError", err)
	}
}

func TestSummarizeInvalidSectorCount(t *testing.T) {
	samples := []Sample{sampleAt(0, 1, 1), sampleAt(1, 1, 1)}
	if _, err := Summarize(samples, Config{}); err == nil {
		t.Fatal("expected error for zero sector count")
	}
}
