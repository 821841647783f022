// Package track holds per-track sector layouts and the distance-based lap
// and sector assignment used when telemetry lacks reliable lap or sector
// channels.
package track

import (
	"fmt"
	"sort"
	"strings"

	"github.com/laplens-data/laplens/internal/telemetry"
)

// LapDistanceThreshold is how close to the start/finish line (meters) the
// cumulative lap distance must drop to count as a lap crossing.
const LapDistanceThreshold = 100.0

// Layout divides a track into sectors by cumulative distance. Boundaries
// are sector end distances in meters, ascending; the last entry is the
// nominal lap length.
type Layout struct {
	Name       string
	Boundaries []float64
}

// known layouts, distances in meters.
var layouts = map[string]Layout{
	"barber": {
		Name:       "Barber Motorsports Park",
		Boundaries: []float64{400, 800, 1200, 1600, 2000, 2400},
	},
	"cota": {
		Name:       "Circuit of the Americas",
		Boundaries: []float64{900, 1800, 2700, 3600, 4500, 5513},
	},
}

// displayNames maps dataset directory keys to human-readable track names.
var displayNames = map[string]string{
	"barber":       "Barber Motorsports Park",
	"cota":         "Circuit of the Americas",
	"indianapolis": "Indianapolis Motor Speedway",
	"road_america": "Road America",
	"sebring":      "Sebring International Raceway",
	"sonoma":       "Sonoma Raceway",
	"vir":          "Virginia International Raceway",
}

// DisplayName resolves a path fragment or dataset key to a track name.
// Unknown inputs come back as "Unknown Track".
func DisplayName(s string) string {
	lower := strings.ToLower(s)
	for key, name := range displayNames {
		if strings.Contains(lower, key) {
			return name
		}
	}
	return "Unknown Track"
}

// LayoutFor returns the sector layout for a track key. When the track has
// no configured boundaries the lap length is divided into sectors equal
// segments.
func LayoutFor(key string, lapLength float64, sectors int) Layout {
	lower := strings.ToLower(key)
	for k, l := range layouts {
		if strings.Contains(lower, k) {
			return l
		}
	}
	return EvenLayout(DisplayName(key), lapLength, sectors)
}

// EvenLayout builds a layout dividing lapLength into n equal sectors.
func EvenLayout(name string, lapLength float64, n int) Layout {
	if n < 1 {
		n = 1
	}
	b := make([]float64, n)
	for i := range b {
		b[i] = lapLength * float64(i+1) / float64(n)
	}
	return Layout{Name: name, Boundaries: b}
}

// SectorCount reports the number of sectors in the layout.
func (l Layout) SectorCount() int {
	return len(l.Boundaries)
}

// Length is the nominal lap length in meters.
func (l Layout) Length() float64 {
	if len(l.Boundaries) == 0 {
		return 0
	}
	return l.Boundaries[len(l.Boundaries)-1]
}

// SectorAt maps a cumulative lap distance to a 1-based sector number.
// Sector ranges are half-open [start, end); distances beyond the last
// boundary land in the final sector.
func (l Layout) SectorAt(distance float64) int {
	idx := sort.Search(len(l.Boundaries), func(i int) bool {
		return l.Boundaries[i] > distance
	})
	if idx >= len(l.Boundaries) {
		idx = len(l.Boundaries) - 1
	}
	return idx + 1
}

// AssignSectors returns a copy of samples with Sector set from each
// sample's cumulative lap distance.
func (l Layout) AssignSectors(samples []telemetry.Sample) []telemetry.Sample {
	out := make([]telemetry.Sample, len(samples))
	copy(out, samples)
	for i := range out {
		out[i].Sector = l.SectorAt(out[i].Distance)
	}
	return out
}

// Validate checks that boundaries are ascending and positive.
func (l Layout) Validate() error {
	if len(l.Boundaries) == 0 {
		return fmt.Errorf("layout %q has no sector boundaries", l.Name)
	}
	prev := 0.0
	for i, b := range l.Boundaries {
		if b <= prev {
			return fmt.Errorf("layout %q boundary %d (%v) not ascending", l.Name, i, b)
		}
		prev = b
	}
	return nil
}

// DetectLaps returns a copy of samples with Lap renumbered from cumulative
// distance resets: a crossing is a drop to near zero right after the car
// was near the end of the lap. Used when the telemetry lap channel is
// missing or unreliable.
func DetectLaps(samples []telemetry.Sample) []telemetry.Sample {
	out := make([]telemetry.Sample, len(samples))
	copy(out, samples)
	if len(out) == 0 {
		return out
	}

	maxDistance := 0.0
	for _, s := range out {
		if s.Distance > maxDistance {
			maxDistance = s.Distance
		}
	}

	lap := 1
	out[0].Lap = lap
	for i := 1; i < len(out); i++ {
		if out[i].Distance < LapDistanceThreshold &&
			out[i-1].Distance > maxDistance-LapDistanceThreshold {
			lap++
		}
		out[i].Lap = lap
	}
	return out
}
