// Package story turns lap and sector summaries into a race narrative:
// trend analysis, consistency and risk scoring, sector insights, a
// theoretical optimal lap and a short list of recommendations.
package story

import (
	"fmt"
	"strings"

	"github.com/laplens-data/laplens/internal/telemetry"
)

// Trend labels for the session's performance trajectory.
const (
	TrendImproving    = "improving"
	TrendDeclining    = "declining"
	TrendConsistent   = "consistent"
	TrendInsufficient = "insufficient_data"
)

// TrendSlopeThreshold is the regression slope (seconds per lap) beyond
// which a session counts as improving or declining.
const TrendSlopeThreshold = 0.1

// BreakthroughGain is the lap-to-lap improvement that counts as a
// breakthrough moment.
const BreakthroughGain = 0.3

// StintLength is the number of consecutive laps in a stint.
const StintLength = 3

// Trajectory describes the session-wide pace trend.
type Trajectory struct {
	Trend           string  `json:"trend"`
	Slope           float64 `json:"slope"`
	ImprovementRate float64 `json:"improvement_rate"`
	FastestStint    *Stint  `json:"fastest_stint,omitempty"`
	Narrative       string  `json:"narrative"`
}

// Stint is a run of consecutive laps.
type Stint struct {
	StartLap int     `json:"start_lap"`
	EndLap   int     `json:"end_lap"`
	AvgTime  float64 `json:"avg_time"`
	Laps     int     `json:"laps"`
}

// Breakthrough marks the lap where pace jumped, or the best lap when no
// jump large enough occurred.
type Breakthrough struct {
	Lap         int     `json:"lap"`
	Type        string  `json:"type"` // "breakthrough" or "best_lap"
	Improvement float64 `json:"improvement"`
	Narrative   string  `json:"narrative"`
	Impact      string  `json:"impact"`
}

// Consistency scores lap time repeatability on a 0-10 scale.
type Consistency struct {
	Score  float64 `json:"score"`
	Rating string  `json:"rating"`
	StdDev float64 `json:"std_dev"`
	Range  float64 `json:"range"`
	CV     float64 `json:"coefficient_of_variation"`
}

// Risk scores driving aggression on a 0-10 scale from braking,
// throttle and speed-variance components.
type Risk struct {
	Score      float64            `json:"score"`
	Rating     string             `json:"rating"`
	Components map[string]float64 `json:"components"`
}

// SectorInsight describes one sector's spread across the session.
type SectorInsight struct {
	Sector      int     `json:"sector"`
	Performance string  `json:"performance"` // strength, neutral, weakness
	Consistency string  `json:"consistency"`
	BestTime    float64 `json:"best_time"`
	WorstTime   float64 `json:"worst_time"`
	AvgTime     float64 `json:"avg_time"`
	Range       float64 `json:"range"`
	Narrative   string  `json:"narrative"`
}

// SectorGap is one sector's contribution to the optimal-lap gap.
type SectorGap struct {
	Sector int     `json:"sector"`
	Gap    float64 `json:"gap"`
}

// OptimalLap is the theoretical lap built from best sector times.
type OptimalLap struct {
	OptimalTime   float64     `json:"optimal_time"`
	ActualBest    float64     `json:"actual_best"`
	PotentialGain float64     `json:"potential_gain"`
	GapBreakdown  []SectorGap `json:"gap_breakdown"`
	Narrative     string      `json:"narrative"`
}

// Report is the complete session narrative.
type Report struct {
	Title             string          `json:"title"`
	ExecutiveSummary  string          `json:"executive_summary"`
	DetailedNarrative string          `json:"detailed_narrative"`
	Trajectory        Trajectory      `json:"performance_trajectory"`
	Breakthrough      *Breakthrough   `json:"breakthrough_moment,omitempty"`
	Consistency       Consistency     `json:"consistency_score"`
	Risk              Risk            `json:"risk_index"`
	SectorInsights    []SectorInsight `json:"sector_insights"`
	OptimalLap        OptimalLap      `json:"optimal_lap"`
	Recommendations   []string        `json:"recommendations"`
	TechnicalInsights []string        `json:"technical_insights"`
}

// Generator builds narrative reports for a track.
type Generator struct {
	TrackName string
}

// NewGenerator returns a Generator for the named track.
func NewGenerator(trackName string) *Generator {
	if trackName == "" {
		trackName = "Unknown Track"
	}
	return &Generator{TrackName: trackName}
}

// Generate produces the full narrative for one vehicle's session.
// The summary supplies lap and sector times; samples supply the raw
// channels behind the risk index and technical insights.
func (g *Generator) Generate(vehicleID string, summary *telemetry.SessionSummary, samples []telemetry.Sample) (*Report, error) {
	if summary == nil || len(summary.Laps) == 0 {
		return nil, fmt.Errorf("no laps to narrate for %s", vehicleID)
	}

	trajectory := g.AnalyzeTrajectory(summary)
	breakthrough := g.FindBreakthrough(summary, samples)
	consistency := g.ConsistencyScore(summary)
	risk := g.RiskIndex(samples)
	insights := g.SectorInsights(summary)
	optimal := g.OptimalLap(summary)
	recommendations := g.Recommendations(trajectory, consistency, risk, insights)

	report := &Report{
		Title:             fmt.Sprintf("Race Story: %s - %s", g.TrackName, vehicleID),
		ExecutiveSummary:  g.executiveSummary(vehicleID, summary, breakthrough, consistency),
		DetailedNarrative: g.detailedNarrative(vehicleID, trajectory, breakthrough, consistency, risk),
		Trajectory:        trajectory,
		Breakthrough:      breakthrough,
		Consistency:       consistency,
		Risk:              risk,
		SectorInsights:    insights,
		OptimalLap:        optimal,
		Recommendations:   recommendations,
		TechnicalInsights: g.TechnicalInsights(samples),
	}
	return report, nil
}

func (g *Generator) executiveSummary(vehicleID string, summary *telemetry.SessionSummary, breakthrough *Breakthrough, consistency Consistency) string {
	best, avg := bestAndAvgLapTime(summary)
	var b strings.Builder
	fmt.Fprintf(&b, "%s completed %d laps at %s with a best time of %.3fs (average: %.3fs). ",
		vehicleID, len(summary.Laps), g.TrackName, best, avg)
	if breakthrough != nil && breakthrough.Type == "breakthrough" {
		fmt.Fprintf(&b, "A breakthrough at Lap %d unlocked %.3fs. ", breakthrough.Lap, breakthrough.Improvement)
	}
	fmt.Fprintf(&b, "Consistency rated %s (%.1f/10).", consistency.Rating, consistency.Score)
	return b.String()
}

func (g *Generator) detailedNarrative(vehicleID string, trajectory Trajectory, breakthrough *Breakthrough, consistency Consistency, risk Risk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "At %s, %s %s ", g.TrackName, vehicleID, trajectory.Narrative)
	if breakthrough != nil {
		b.WriteString(breakthrough.Narrative + " ")
	}
	fmt.Fprintf(&b, "\n\nConsistency was %s with a lap time range of %.3fs. ",
		strings.ToLower(consistency.Rating), consistency.Range)
	fmt.Fprintf(&b, "The driving style was %s (risk index: %.1f/10).",
		strings.ToLower(risk.Rating), risk.Score)
	return b.String()
}

func bestAndAvgLapTime(summary *telemetry.SessionSummary) (best, avg float64) {
	if len(summary.Laps) == 0 {
		return 0, 0
	}
	best = summary.Laps[0].LapTime
	var sum float64
	for _, lap := range summary.Laps {
		if lap.LapTime < best {
			best = lap.LapTime
		}
		sum += lap.LapTime
	}
	return best, sum / float64(len(summary.Laps))
}
