// Package gps derives track geometry from GPS channels and renders
// track-map images.
package gps

import (
	"math"

	"github.com/laplens-data/laplens/internal/telemetry"
)

// MetersPerDegreeLat approximates one degree of latitude in meters.
// Longitude is scaled by the cosine of the average latitude.
const MetersPerDegreeLat = 111000.0

// Bounds is the GPS bounding box of a session, with approximate track
// dimensions in meters.
type Bounds struct {
	LatMin  float64 `json:"lat_min"`
	LatMax  float64 `json:"lat_max"`
	LonMin  float64 `json:"lon_min"`
	LonMax  float64 `json:"lon_max"`
	WidthM  float64 `json:"track_width_m"`
	HeightM float64 `json:"track_height_m"`
}

// HasFix reports whether a sample carries real GPS coordinates. The
// logger writes zeros when the receiver has no fix.
func HasFix(s telemetry.Sample) bool {
	return s.Latitude != 0 || s.Longitude != 0
}

// TrackBounds computes the bounding box over samples with a GPS fix.
// Returns ok=false when no sample carries coordinates.
func TrackBounds(samples []telemetry.Sample) (Bounds, bool) {
	var b Bounds
	first := true
	for _, s := range samples {
		if !HasFix(s) {
			continue
		}
		if first {
			b.LatMin, b.LatMax = s.Latitude, s.Latitude
			b.LonMin, b.LonMax = s.Longitude, s.Longitude
			first = false
			continue
		}
		b.LatMin = math.Min(b.LatMin, s.Latitude)
		b.LatMax = math.Max(b.LatMax, s.Latitude)
		b.LonMin = math.Min(b.LonMin, s.Longitude)
		b.LonMax = math.Max(b.LonMax, s.Longitude)
	}
	if first {
		return Bounds{}, false
	}

	avgLat := (b.LatMin + b.LatMax) / 2
	b.WidthM = (b.LonMax - b.LonMin) * MetersPerDegreeLat * math.Cos(avgLat*math.Pi/180)
	b.HeightM = (b.LatMax - b.LatMin) * MetersPerDegreeLat
	return b, true
}
