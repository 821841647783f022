package telemetry

import "math"

// Telemetry thresholds, shared with the chart and story layers.
const (
	BrakeLightThreshold = 20.0 // bar
	BrakeHeavyThreshold = 50.0 // bar

	ThrottlePartialThreshold = 50.0 // percent
	ThrottleFullThreshold    = 90.0 // percent

	// SmoothingWindow is the rolling window for steering smoothness.
	SmoothingWindow = 5
)

// BrakingZone classifies brake intensity.
type BrakingZone string

const (
	BrakingNone  BrakingZone = "none"
	BrakingLight BrakingZone = "light"
	BrakingHeavy BrakingZone = "heavy"
)

// ThrottleZone classifies throttle application.
type ThrottleZone string

const (
	ThrottleOff     ThrottleZone = "off"
	ThrottlePartial ThrottleZone = "partial"
	ThrottleFull    ThrottleZone = "full"
)

// PaceCategory classifies a lap time relative to the session best.
type PaceCategory string

const (
	PaceBest   PaceCategory = "best"
	PaceFast   PaceCategory = "fast"   // within 2% of best
	PaceMedium PaceCategory = "medium" // within 5% of best
	PaceSlow   PaceCategory = "slow"
)

// Pace categorizes lapTime against the session's best lap time.
func Pace(lapTime, bestTime float64) PaceCategory {
	switch {
	case lapTime == bestTime:
		return PaceBest
	case lapTime <= bestTime*1.02:
		return PaceFast
	case lapTime <= bestTime*1.05:
		return PaceMedium
	default:
		return PaceSlow
	}
}

// BrakeIntensity is the mean of front and rear brake pressure.
func (s Sample) BrakeIntensity() float64 {
	return (s.BrakeFront + s.BrakeRear) / 2
}

// CombinedG is the magnitude of longitudinal and lateral acceleration.
func (s Sample) CombinedG() float64 {
	return math.Sqrt(s.LongG*s.LongG + s.LatG*s.LatG)
}

// ClassifyBraking buckets a brake intensity into a braking zone.
func ClassifyBraking(intensity float64) BrakingZone {
	switch {
	case intensity > BrakeHeavyThreshold:
		return BrakingHeavy
	case intensity > BrakeLightThreshold:
		return BrakingLight
	default:
		return BrakingNone
	}
}

// ClassifyThrottle buckets a throttle percentage into a throttle zone.
func ClassifyThrottle(pct float64) ThrottleZone {
	switch {
	case pct > ThrottleFullThreshold:
		return ThrottleFull
	case pct > ThrottlePartialThreshold:
		return ThrottlePartial
	default:
		return ThrottleOff
	}
}

// SteeringSmoothness computes the rolling standard deviation of the steering
// angle. Entries before the window fills are NaN, matching the rolling-stat
// convention the display layer expects.
func SteeringSmoothness(samples []Sample, window int) []float64 {
	if window < 2 {
		window = SmoothingWindow
	}
	out := make([]float64, len(samples))
	for i := range out {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		var sum, sumSq float64
		for j := i - window + 1; j <= i; j++ {
			a := samples[j].SteeringAngle
			sum += a
			sumSq += a * a
		}
		n := float64(window)
		mean := sum / n
		// Sample variance over the window.
		variance := (sumSq - n*mean*mean) / (n - 1)
		if variance < 0 {
			variance = 0
		}
		out[i] = math.Sqrt(variance)
	}
	return out
}

// LapMetrics are driver-input extremes for one lap, used by the story
// generator and the lap detail view.
type LapMetrics struct {
	AvgThrottle     float64 `json:"avg_throttle"`
	FullThrottlePct float64 `json:"full_throttle_pct"`
	AvgBrake        float64 `json:"avg_brake"`
	MaxBrake        float64 `json:"max_brake"`
	MaxAccelG       float64 `json:"max_accel_g"`
	MaxDecelG       float64 `json:"max_decel_g"`
	MaxLateralG     float64 `json:"max_lateral_g"`
}

// ComputeLapMetrics aggregates driver-input metrics over one lap's samples.
func ComputeLapMetrics(samples []Sample) LapMetrics {
	var m LapMetrics
	if len(samples) == 0 {
		return m
	}
	var throttleSum, brakeSum float64
	fullThrottle := 0
	m.MaxAccelG = math.Inf(-1)
	m.MaxDecelG = math.Inf(1)
	for _, s := range samples {
		throttleSum += s.Throttle
		if s.Throttle > ThrottleFullThreshold {
			fullThrottle++
		}
		b := s.BrakeIntensity()
		brakeSum += b
		m.MaxBrake = math.Max(m.MaxBrake, b)
		m.MaxAccelG = math.Max(m.MaxAccelG, s.LongG)
		m.MaxDecelG = math.Min(m.MaxDecelG, s.LongG)
		m.MaxLateralG = math.Max(m.MaxLateralG, math.Abs(s.LatG))
	}
	n := float64(len(samples))
	m.AvgThrottle = throttleSum / n
	m.FullThrottlePct = float64(fullThrottle) / n * 100
	m.AvgBrake = brakeSum / n
	return m
}
