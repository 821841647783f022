package story

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/laplens-data/laplens/internal/telemetry"
)

func sessionOf(lapTimes ...float64) *telemetry.SessionSummary {
	s := &telemetry.SessionSummary{SectorCount: 1}
	for i, t := range lapTimes {
		s.Laps = append(s.Laps, telemetry.LapSummary{
			Lap:     i + 1,
			LapTime: t,
			Sectors: []telemetry.SectorSummary{{Sector: 1, SectorTime: t}},
		})
	}
	return s
}

func TestAnalyzeTrajectory(t *testing.T) {
	g := NewGenerator("Barber Motorsports Park")

	tests := []struct {
		name  string
		times []float64
		trend string
	}{
		{"improving", []float64{102, 101.5, 101, 100.5, 100}, TrendImproving},
		{"declining", []float64{100, 100.5, 101, 101.5, 102}, TrendDeclining},
		{"steady", []float64{100, 100.05, 99.95, 100.02, 100}, TrendConsistent},
		{"too few laps", []float64{100, 101}, TrendInsufficient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.AnalyzeTrajectory(sessionOf(tt.times...))
			if got.Trend != tt.trend {
				t.Errorf("trend = %q, want %q (slope %v)", got.Trend, tt.trend, got.Slope)
			}
		})
	}
}

func TestAnalyzeTrajectorySlope(t *testing.T) {
	g := NewGenerator("")
	// Perfectly linear: half a second gained per lap.
	got := g.AnalyzeTrajectory(sessionOf(102, 101.5, 101, 100.5, 100))
	if math.Abs(got.Slope-(-0.5)) > 1e-9 {
		t.Errorf("slope = %v, want -0.5", got.Slope)
	}
	if got.FastestStint == nil {
		t.Fatal("expected a fastest stint")
	}
	if got.FastestStint.StartLap != 3 || got.FastestStint.EndLap != 5 {
		t.Errorf("stint = laps %d-%d, want 3-5", got.FastestStint.StartLap, got.FastestStint.EndLap)
	}
}

func TestFindBreakthrough(t *testing.T) {
	g := NewGenerator("")

	got := g.FindBreakthrough(sessionOf(102, 101.9, 101.2, 101.1), nil)
	if got == nil {
		t.Fatal("expected a breakthrough")
	}
	if got.Type != "breakthrough" || got.Lap != 3 {
		t.Errorf("got type %q lap %d, want breakthrough at lap 3", got.Type, got.Lap)
	}
	if math.Abs(got.Improvement-0.7) > 1e-9 {
		t.Errorf("improvement = %v, want 0.7", got.Improvement)
	}
}

func TestFindBreakthroughFallsBackToBestLap(t *testing.T) {
	g := NewGenerator("")
	got := g.FindBreakthrough(sessionOf(101, 100.9, 100.8), nil)
	if got == nil {
		t.Fatal("expected a best-lap entry")
	}
	if got.Type != "best_lap" || got.Lap != 3 {
		t.Errorf("got type %q lap %d, want best_lap at lap 3", got.Type, got.Lap)
	}
}

func TestConsistencyScore(t *testing.T) {
	g := NewGenerator("")

	// Identical laps: zero variation, perfect ten.
	perfect := g.ConsistencyScore(sessionOf(100, 100, 100))
	if perfect.Score != 10.0 || perfect.Rating != "Excellent" {
		t.Errorf("perfect session scored %.1f (%s)", perfect.Score, perfect.Rating)
	}

	// Wild variation lands near the bottom of the scale.
	wild := g.ConsistencyScore(sessionOf(100, 120, 90, 130))
	if wild.Score > 4.0 {
		t.Errorf("wild session scored %.1f, want low", wild.Score)
	}

	na := g.ConsistencyScore(sessionOf(100, 101))
	if na.Rating != "N/A" {
		t.Errorf("two laps rated %q, want N/A", na.Rating)
	}
}

func TestRiskIndex(t *testing.T) {
	g := NewGenerator("")

	if got := g.RiskIndex(nil); got.Rating != "N/A" {
		t.Errorf("empty telemetry rated %q, want N/A", got.Rating)
	}

	// All samples at full throttle and heavy braking, varied speed.
	var samples []telemetry.Sample
	base := time.Date(2025, 4, 12, 14, 0, 0, 0, time.UTC)
	speeds := []float64{200, 80, 200, 80, 200, 80}
	for i, sp := range speeds {
		samples = append(samples, telemetry.Sample{
			Time:       base.Add(time.Duration(i) * time.Second),
			Speed:      sp,
			Throttle:   95,
			BrakeFront: 60,
			BrakeRear:  55,
		})
	}
	got := g.RiskIndex(samples)
	if got.Score < 8.0 {
		t.Errorf("score = %.1f, want >= 8 for flat-out telemetry", got.Score)
	}
	if got.Rating != "Very Aggressive" {
		t.Errorf("rating = %q", got.Rating)
	}
	if len(got.Components) != 3 {
		t.Errorf("components = %v", got.Components)
	}
}

func TestTechnicalInsights(t *testing.T) {
	g := NewGenerator("")

	if got := g.TechnicalInsights(nil); got != nil {
		t.Errorf("insights for empty telemetry = %v", got)
	}

	// Flat-out laps: full throttle, heavy braking, widening steering.
	base := time.Date(2025, 4, 12, 14, 0, 0, 0, time.UTC)
	var samples []telemetry.Sample
	for i := 0; i < 6; i++ {
		samples = append(samples, telemetry.Sample{
			Time:          base.Add(time.Duration(i) * time.Second),
			Speed:         150,
			Throttle:      95,
			BrakeFront:    60,
			BrakeRear:     50,
			SteeringAngle: float64(i * 10),
			LongG:         -1.2,
			LatG:          1.0,
		})
	}

	got := g.TechnicalInsights(samples)
	if len(got) != 5 {
		t.Fatalf("got %d insights: %v", len(got), got)
	}
	joined := strings.Join(got, "\n")
	for _, want := range []string{
		"Peak braking: 55 bar",
		"100.0% heavy braking",
		"Full throttle 100.0%",
		"Max braking G-force: 1.20g",
		"Max lateral G: 1.00g",
		"Steering smoothness",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("insights missing %q:\n%s", want, joined)
		}
	}
}

func TestSectorInsightsOrdering(t *testing.T) {
	g := NewGenerator("")
	s := &telemetry.SessionSummary{SectorCount: 2}
	// Sector 1 tight (0.05s range), sector 2 loose (0.5s range).
	s.Laps = []telemetry.LapSummary{
		{Lap: 1, LapTime: 60, Sectors: []telemetry.SectorSummary{
			{Sector: 1, SectorTime: 30.00}, {Sector: 2, SectorTime: 30.0},
		}},
		{Lap: 2, LapTime: 60.55, Sectors: []telemetry.SectorSummary{
			{Sector: 1, SectorTime: 30.05}, {Sector: 2, SectorTime: 30.5},
		}},
	}

	insights := g.SectorInsights(s)
	if len(insights) != 2 {
		t.Fatalf("got %d insights, want 2", len(insights))
	}
	if insights[0].Sector != 2 || insights[0].Performance != "weakness" {
		t.Errorf("insight 0 = %+v, want sector 2 weakness", insights[0])
	}
	if insights[1].Sector != 1 || insights[1].Performance != "strength" {
		t.Errorf("insight 1 = %+v, want sector 1 strength", insights[1])
	}
}

func TestOptimalLap(t *testing.T) {
	g := NewGenerator("")
	s := &telemetry.SessionSummary{SectorCount: 2}
	s.Laps = []telemetry.LapSummary{
		{Lap: 1, LapTime: 61, Sectors: []telemetry.SectorSummary{
			{Sector: 1, SectorTime: 30.0}, {Sector: 2, SectorTime: 31.0},
		}},
		{Lap: 2, LapTime: 60.5, Sectors: []telemetry.SectorSummary{
			{Sector: 1, SectorTime: 30.2}, {Sector: 2, SectorTime: 30.3},
		}},
	}

	got := g.OptimalLap(s)
	if math.Abs(got.OptimalTime-60.3) > 1e-9 {
		t.Errorf("optimal = %v, want 60.3", got.OptimalTime)
	}
	if math.Abs(got.ActualBest-60.5) > 1e-9 {
		t.Errorf("actual best = %v, want 60.5", got.ActualBest)
	}
	if math.Abs(got.PotentialGain-0.2) > 1e-9 {
		t.Errorf("gain = %v, want 0.2", got.PotentialGain)
	}
	// Only sector 1 gave away more than the reporting threshold.
	if len(got.GapBreakdown) != 1 || got.GapBreakdown[0].Sector != 1 {
		t.Errorf("gap breakdown = %+v", got.GapBreakdown)
	}
}

func TestRecommendationsCapped(t *testing.T) {
	g := NewGenerator("")
	trajectory := Trajectory{Trend: TrendDeclining}
	consistency := Consistency{Score: 3.0, Range: 2.0}
	risk := Risk{Score: 2.0}
	insights := []SectorInsight{{Sector: 3, Range: 0.8}}

	recs := g.Recommendations(trajectory, consistency, risk, insights)
	if len(recs) != 3 {
		t.Fatalf("got %d recommendations, want 3", len(recs))
	}
	if !strings.Contains(recs[0], "Sector 3") {
		t.Errorf("first recommendation = %q, want sector focus", recs[0])
	}
}

func TestGenerate(t *testing.T) {
	g := NewGenerator("Barber Motorsports Park")
	summary := sessionOf(102, 101.2, 101, 100.8, 100.7)

	report, err := g.Generate("GR86-004-023", summary, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if report.Title != "Race Story: Barber Motorsports Park - GR86-004-023" {
		t.Errorf("title = %q", report.Title)
	}
	if !strings.Contains(report.ExecutiveSummary, "5 laps") {
		t.Errorf("summary = %q", report.ExecutiveSummary)
	}
	if report.Trajectory.Trend != TrendImproving {
		t.Errorf("trend = %q", report.Trajectory.Trend)
	}
	if len(report.Recommendations) == 0 {
		t.Error("expected at least one recommendation")
	}
}

func TestGenerateEmptySession(t *testing.T) {
	g := NewGenerator("")
	if _, err := g.Generate("GR86-004-023", &telemetry.SessionSummary{}, nil); err == nil {
		t.Fatal("expected error for empty session")
	}
}
