// Package telemetry turns raw per-vehicle telemetry samples into lap and
// sector summaries with delta-to-best comparisons. The summarizer is a pure
// function of its inputs: no shared state, safe to call concurrently on
// distinct sessions.
package telemetry

import "time"

// Sample is a single telemetry reading for one vehicle. Samples are
// immutable once ingested; the summarizer never modifies its input.
type Sample struct {
	Time          time.Time `json:"time"`
	Lap           int       `json:"lap"`
	Sector        int       `json:"sector"`
	Distance      float64   `json:"distance"`       // cumulative lap distance (m)
	Speed         float64   `json:"speed"`          // km/h
	Throttle      float64   `json:"throttle"`       // percent 0-100
	BrakeFront    float64   `json:"brake_front"`    // bar
	BrakeRear     float64   `json:"brake_rear"`     // bar
	SteeringAngle float64   `json:"steering_angle"` // degrees
	LongG         float64   `json:"long_g"`
	LatG          float64   `json:"lat_g"`
	Gear          int       `json:"gear"`
	RPM           float64   `json:"rpm"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
}

// Config controls lap/sector summarization.
type Config struct {
	// SectorCount is the number of sectors the track is divided into. A lap
	// whose samples do not show exactly this many sector runs gets no sector
	// breakdown.
	SectorCount int

	// ConsistencyPct marks a lap consistent when its time is within this
	// percentage of the session's best lap time.
	ConsistencyPct float64
}

// DefaultConsistencyPct is the lap-time tolerance used when
// Config.ConsistencyPct is zero.
const DefaultConsistencyPct = 2.0

// SectorSummary is the timing breakdown for one sector of one lap.
type SectorSummary struct {
	Sector      int     `json:"sector"`
	SectorTime  float64 `json:"sector_time"` // seconds
	AvgSpeed    float64 `json:"avg_speed"`
	DeltaToBest float64 `json:"delta_to_best"` // seconds, 0 for the session best
	Best        bool    `json:"best"`
}

// LapSummary is the per-lap output row. When SectorMismatch is set the lap
// time is still valid but Sectors is empty and the lap is not a best-lap
// candidate.
type LapSummary struct {
	Lap            int             `json:"lap"`
	LapTime        float64         `json:"lap_time"` // seconds
	Start          time.Time       `json:"start"`
	End            time.Time       `json:"end"`
	Samples        int             `json:"samples"`
	AvgSpeed       float64         `json:"avg_speed"`
	MaxSpeed       float64         `json:"max_speed"`
	MinSpeed       float64         `json:"min_speed"`
	DeltaToBest    float64         `json:"delta_to_best"` // seconds, 0 for the best lap
	Best           bool            `json:"best"`
	Consistent     bool            `json:"consistent"`
	SectorMismatch bool            `json:"sector_mismatch"`
	Sectors        []SectorSummary `json:"sectors,omitempty"`
}

// SessionSummary is the full summarizer output for one vehicle session.
type SessionSummary struct {
	Laps        []LapSummary          `json:"laps"`
	BestLap     int                   `json:"best_lap"`
	SectorCount int                   `json:"sector_count"`
	SectorBests []float64             `json:"sector_bests"` // best time per sector index
	Warnings    []SectorMismatchError `json:"warnings,omitempty"`
}

// Lap returns the summary for the given lap number, or nil.
func (s *SessionSummary) Lap(num int) *LapSummary {
	for i := range s.Laps {
		if s.Laps[i].Lap == num {
			return &s.Laps[i]
		}
	}
	return nil
}
