package story

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/laplens-data/laplens/internal/telemetry"
)

// AnalyzeTrajectory fits a line through lap times and classifies the
// session trend. Fewer than three laps is not enough signal.
func (g *Generator) AnalyzeTrajectory(summary *telemetry.SessionSummary) Trajectory {
	if len(summary.Laps) < 3 {
		return Trajectory{
			Trend:     TrendInsufficient,
			Narrative: "Not enough laps for trend analysis.",
		}
	}

	laps := make([]float64, len(summary.Laps))
	times := make([]float64, len(summary.Laps))
	for i, lap := range summary.Laps {
		laps[i] = float64(lap.Lap)
		times[i] = lap.LapTime
	}
	_, slope := stat.LinearRegression(laps, times, nil, false)

	var trend, desc string
	switch {
	case slope < -TrendSlopeThreshold:
		trend, desc = TrendImproving, "consistent improvement"
	case slope > TrendSlopeThreshold:
		trend, desc = TrendDeclining, "gradual decline"
	default:
		trend, desc = TrendConsistent, "steady consistency"
	}

	rate := math.Abs(slope)
	stint := fastestStint(summary.Laps, StintLength)

	narrative := fmt.Sprintf("showed %s across %d laps", desc, len(summary.Laps))
	if rate > TrendSlopeThreshold {
		narrative += fmt.Sprintf(" at %.3fs per lap", rate)
	}
	if stint != nil {
		narrative += fmt.Sprintf(". Peak performance occurred during laps %d-%d", stint.StartLap, stint.EndLap)
	}
	narrative += "."

	return Trajectory{
		Trend:           trend,
		Slope:           slope,
		ImprovementRate: rate,
		FastestStint:    stint,
		Narrative:       narrative,
	}
}

func fastestStint(laps []telemetry.LapSummary, n int) *Stint {
	if len(laps) < n {
		return nil
	}
	bestAvg := math.Inf(1)
	bestStart := -1
	for i := 0; i+n <= len(laps); i++ {
		var sum float64
		for _, lap := range laps[i : i+n] {
			sum += lap.LapTime
		}
		avg := sum / float64(n)
		if avg < bestAvg {
			bestAvg = avg
			bestStart = i
		}
	}
	if bestStart < 0 {
		return nil
	}
	return &Stint{
		StartLap: laps[bestStart].Lap,
		EndLap:   laps[bestStart+n-1].Lap,
		AvgTime:  bestAvg,
		Laps:     n,
	}
}

// FindBreakthrough reports the first lap-to-lap gain over
// BreakthroughGain seconds, or the best lap when pace never jumped.
func (g *Generator) FindBreakthrough(summary *telemetry.SessionSummary, samples []telemetry.Sample) *Breakthrough {
	if len(summary.Laps) < 2 {
		return nil
	}

	for i := 1; i < len(summary.Laps); i++ {
		gain := summary.Laps[i-1].LapTime - summary.Laps[i].LapTime
		if gain <= BreakthroughGain {
			continue
		}
		lapNum := summary.Laps[i].Lap
		narrative := fmt.Sprintf("Breakthrough at Lap %d with %.3fs improvement", lapNum, gain)
		if peak := peakBrake(samples, lapNum); peak > 70 {
			narrative += fmt.Sprintf(". Aggressive braking (%.0f bar peak)", peak)
		}
		narrative += " unlocked new pace level."
		return &Breakthrough{
			Lap:         lapNum,
			Type:        "breakthrough",
			Improvement: gain,
			Narrative:   narrative,
			Impact:      fmt.Sprintf("Gained %.3fs in single lap.", gain),
		}
	}

	best := summary.Laps[0]
	for _, lap := range summary.Laps[1:] {
		if lap.LapTime < best.LapTime {
			best = lap
		}
	}
	return &Breakthrough{
		Lap:  best.Lap,
		Type: "best_lap",
		Narrative: fmt.Sprintf("Best lap achieved on Lap %d with a time of %.3fs.",
			best.Lap, best.LapTime),
		Impact: "Set session benchmark.",
	}
}

func peakBrake(samples []telemetry.Sample, lap int) float64 {
	peak := 0.0
	for _, s := range samples {
		if s.Lap == lap && s.BrakeIntensity() > peak {
			peak = s.BrakeIntensity()
		}
	}
	return peak
}

// ConsistencyScore maps the lap time coefficient of variation onto a
// 0-10 scale. Under 0.5% variation is a perfect 10; the score declines
// piecewise to 0 at 15%.
func (g *Generator) ConsistencyScore(summary *telemetry.SessionSummary) Consistency {
	if len(summary.Laps) < 3 {
		return Consistency{Rating: "N/A"}
	}

	times := make([]float64, len(summary.Laps))
	for i, lap := range summary.Laps {
		times[i] = lap.LapTime
	}
	mean := stat.Mean(times, nil)
	std := stat.PopStdDev(times, nil)
	sort.Float64s(times)
	spread := times[len(times)-1] - times[0]

	cv := std / mean * 100

	var score float64
	switch {
	case cv < 0.5:
		score = 10.0
	case cv < 2.0:
		score = 10.0 - (cv-0.5)*(2.5/1.5)
	case cv < 10.0:
		score = 7.5 - (cv-2.0)*(5.0/8.0)
	default:
		score = math.Max(0, 2.5-(cv-10.0)*(2.5/5.0))
	}

	var rating string
	switch {
	case score >= 8.5:
		rating = "Excellent"
	case score >= 7.0:
		rating = "Very Good"
	case score >= 5.5:
		rating = "Good"
	case score >= 4.0:
		rating = "Fair"
	default:
		rating = "Needs Improvement"
	}

	return Consistency{
		Score:  math.Round(score*10) / 10,
		Rating: rating,
		StdDev: math.Round(std*1000) / 1000,
		Range:  math.Round(spread*1000) / 1000,
		CV:     math.Round(cv*100) / 100,
	}
}

// RiskIndex scores aggression from heavy braking (40%), full throttle
// (30%) and speed variance (30%).
func (g *Generator) RiskIndex(samples []telemetry.Sample) Risk {
	if len(samples) == 0 {
		return Risk{Rating: "N/A", Components: map[string]float64{}}
	}

	n := float64(len(samples))
	components := make(map[string]float64)

	var heavyBrake, fullThrottle int
	speeds := make([]float64, len(samples))
	for i, s := range samples {
		if s.BrakeIntensity() > telemetry.BrakeHeavyThreshold {
			heavyBrake++
		}
		if s.Throttle > telemetry.ThrottleFullThreshold {
			fullThrottle++
		}
		speeds[i] = s.Speed
	}

	brakeScore := math.Min(10, float64(heavyBrake)/n*100*2)
	components["braking_aggression"] = brakeScore

	throttleScore := math.Min(10, float64(fullThrottle)/n*100/5)
	components["throttle_aggression"] = throttleScore

	cornerScore := 5.0
	if mean := stat.Mean(speeds, nil); mean != 0 {
		speedCV := stat.PopStdDev(speeds, nil) / mean * 100
		cornerScore = math.Min(10, speedCV/2)
	}
	components["corner_variance"] = cornerScore

	score := brakeScore*0.4 + throttleScore*0.3 + cornerScore*0.3

	var rating string
	switch {
	case score >= 8.0:
		rating = "Very Aggressive"
	case score >= 6.5:
		rating = "Aggressive"
	case score >= 5.0:
		rating = "Balanced"
	case score >= 3.5:
		rating = "Conservative"
	default:
		rating = "Very Conservative"
	}

	return Risk{
		Score:      math.Round(score*10) / 10,
		Rating:     rating,
		Components: components,
	}
}
