package story

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/laplens-data/laplens/internal/telemetry"
)

// Sector range thresholds in seconds. Under SectorStrengthRange a
// sector is a strength; over SectorWeaknessRange it is a weakness.
const (
	SectorStrengthRange = 0.1
	SectorWeaknessRange = 0.3
)

// MeaningfulSectorGap is the smallest sector gap worth reporting in the
// optimal-lap breakdown.
const MeaningfulSectorGap = 0.05

// SectorInsights classifies every sector by its spread across the
// session's complete laps, weakest sector first.
func (g *Generator) SectorInsights(summary *telemetry.SessionSummary) []SectorInsight {
	bySector := make(map[int][]float64)
	for _, lap := range summary.Laps {
		for _, sec := range lap.Sectors {
			bySector[sec.Sector] = append(bySector[sec.Sector], sec.SectorTime)
		}
	}
	if len(bySector) == 0 {
		return nil
	}

	var insights []SectorInsight
	for sector, times := range bySector {
		sort.Float64s(times)
		best := times[0]
		worst := times[len(times)-1]
		spread := worst - best

		var performance, consistency, narrative string
		switch {
		case spread < SectorStrengthRange:
			performance, consistency = "strength", "excellent"
			narrative = fmt.Sprintf("Sector %d is a strength with excellent consistency (range: %.3fs).", sector, spread)
		case spread < SectorWeaknessRange:
			performance, consistency = "neutral", "good"
			narrative = fmt.Sprintf("Sector %d shows good performance with moderate consistency.", sector)
		default:
			performance, consistency = "weakness", "inconsistent"
			narrative = fmt.Sprintf("Sector %d shows inconsistency with a %.3fs range, suggesting improvement potential.", sector, spread)
		}

		insights = append(insights, SectorInsight{
			Sector:      sector,
			Performance: performance,
			Consistency: consistency,
			BestTime:    best,
			WorstTime:   worst,
			AvgTime:     stat.Mean(times, nil),
			Range:       spread,
			Narrative:   narrative,
		})
	}

	sort.Slice(insights, func(i, j int) bool {
		if insights[i].Range != insights[j].Range {
			return insights[i].Range > insights[j].Range
		}
		return insights[i].Sector < insights[j].Sector
	})
	return insights
}

// OptimalLap sums the best time seen in each sector and compares that
// theoretical lap to the actual best, attributing the gap to the
// sectors where the best lap gave time away.
func (g *Generator) OptimalLap(summary *telemetry.SessionSummary) OptimalLap {
	bestSectors := make(map[int]float64)
	for _, lap := range summary.Laps {
		for _, sec := range lap.Sectors {
			if t, ok := bestSectors[sec.Sector]; !ok || sec.SectorTime < t {
				bestSectors[sec.Sector] = sec.SectorTime
			}
		}
	}
	if len(bestSectors) == 0 {
		return OptimalLap{Narrative: "Insufficient data for optimal lap calculation."}
	}

	var optimal float64
	for _, t := range bestSectors {
		optimal += t
	}

	bestLap := summary.Laps[0]
	for _, lap := range summary.Laps[1:] {
		if lap.LapTime < bestLap.LapTime {
			bestLap = lap
		}
	}
	gain := bestLap.LapTime - optimal

	var breakdown []SectorGap
	for _, sec := range bestLap.Sectors {
		gap := sec.SectorTime - bestSectors[sec.Sector]
		if gap > MeaningfulSectorGap {
			breakdown = append(breakdown, SectorGap{Sector: sec.Sector, Gap: gap})
		}
	}
	sort.Slice(breakdown, func(i, j int) bool { return breakdown[i].Gap > breakdown[j].Gap })

	var narrative string
	if gain > 0.1 {
		narrative = fmt.Sprintf("Optimal lap: %.3fs vs. actual best %.3fs. Potential gain: %.3fs.",
			optimal, bestLap.LapTime, gain)
	} else {
		narrative = fmt.Sprintf("Excellent lap construction. Optimal lap (%.3fs) nearly achieved.", optimal)
	}

	return OptimalLap{
		OptimalTime:   math.Round(optimal*1000) / 1000,
		ActualBest:    math.Round(bestLap.LapTime*1000) / 1000,
		PotentialGain: math.Round(gain*1000) / 1000,
		GapBreakdown:  breakdown,
		Narrative:     narrative,
	}
}

// Recommendations distills the analysis into at most three actionable
// suggestions, weakest areas first.
func (g *Generator) Recommendations(trajectory Trajectory, consistency Consistency, risk Risk, insights []SectorInsight) []string {
	var recs []string

	if len(insights) > 0 && insights[0].Range > SectorWeaknessRange {
		weakest := insights[0]
		recs = append(recs, fmt.Sprintf(
			"Focus on Sector %d consistency - current range of %.3fs suggests improvement potential of ~%.3fs.",
			weakest.Sector, weakest.Range, weakest.Range*0.6))
	}

	if consistency.Score > 0 && consistency.Score < 7.0 {
		recs = append(recs, fmt.Sprintf(
			"Work on consistency - current score %.1f/10. Reducing lap time variation from %.3fs to < 0.3s would improve racecraft significantly.",
			consistency.Score, consistency.Range))
	}

	if risk.Score > 8.0 && consistency.Score < 6.0 {
		recs = append(recs, "Aggressive driving style detected with lower consistency. Consider slightly reducing risk for better overall pace.")
	} else if risk.Score > 0 && risk.Score < 4.0 {
		recs = append(recs, "Conservative approach noted. Exploring limits in practice could unlock additional pace.")
	}

	if trajectory.Trend == TrendDeclining {
		recs = append(recs, "Pace declining over session - review tire management or consider earlier sessions for peak performance data.")
	}

	if len(recs) == 0 {
		recs = append(recs, "Strong overall performance. Focus on maintaining consistency while pushing limits in key sectors.")
	}
	if len(recs) > 3 {
		recs = recs[:3]
	}
	return recs
}

// TechnicalInsights summarizes raw channel extremes for the report
// footer.
func (g *Generator) TechnicalInsights(samples []telemetry.Sample) []string {
	if len(samples) == 0 {
		return nil
	}
	n := float64(len(samples))

	var insights []string

	var speedSum, maxSpeed float64
	for _, s := range samples {
		speedSum += s.Speed
		if s.Speed > maxSpeed {
			maxSpeed = s.Speed
		}
	}
	insights = append(insights, fmt.Sprintf("Average speed: %.1f km/h (peak: %.1f km/h)", speedSum/n, maxSpeed))

	m := telemetry.ComputeLapMetrics(samples)

	var heavy, full int
	for _, s := range samples {
		if telemetry.ClassifyBraking(s.BrakeIntensity()) == telemetry.BrakingHeavy {
			heavy++
		}
		if telemetry.ClassifyThrottle(s.Throttle) == telemetry.ThrottleFull {
			full++
		}
	}
	insights = append(insights, fmt.Sprintf("Peak braking: %.0f bar (%.1f%% heavy braking zones)", m.MaxBrake, float64(heavy)/n*100))
	insights = append(insights, fmt.Sprintf("Full throttle %.1f%% of the session (avg %.0f%%)", float64(full)/n*100, m.AvgThrottle))

	var maxCombined float64
	for _, s := range samples {
		if cg := s.CombinedG(); cg > maxCombined {
			maxCombined = cg
		}
	}
	insights = append(insights, fmt.Sprintf("Max braking G-force: %.2fg, Max lateral G: %.2fg, peak combined %.2fg",
		math.Abs(m.MaxDecelG), m.MaxLateralG, maxCombined))

	if smooth := steeringConsistency(samples); !math.IsNaN(smooth) {
		insights = append(insights, fmt.Sprintf("Steering smoothness: %.1f deg rolling deviation", smooth))
	}

	return insights
}

// steeringConsistency averages the rolling steering deviation over the
// session, ignoring the unfilled window head.
func steeringConsistency(samples []telemetry.Sample) float64 {
	rolled := telemetry.SteeringSmoothness(samples, telemetry.SmoothingWindow)
	var sum float64
	var n int
	for _, v := range rolled {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
