package loader

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ErroneousLapNumber is a known bad value the logger emits when the lap
// counter glitches.
const ErroneousLapNumber = 32768

// OutlierStdThreshold is the z-score beyond which a channel value is
// treated as an outlier and dropped.
const OutlierStdThreshold = 3.0

// CleanLapNumbers replaces glitched lap numbers by re-deriving them from
// cumulative lap distance resets. Records without a distance channel keep
// their original lap numbers.
func CleanLapNumbers(records []Record) []Record {
	hasGlitch := false
	for _, r := range records {
		if r.Lap == ErroneousLapNumber {
			hasGlitch = true
			break
		}
	}
	if !hasGlitch {
		return records
	}

	out := make([]Record, len(records))
	copy(out, records)

	maxDistance := 0.0
	for _, r := range out {
		if d, ok := r.Field(ChanLapDistance); ok && d > maxDistance {
			maxDistance = d
		}
	}
	if maxDistance == 0 {
		return out
	}

	lap := 1
	prevDistance := math.NaN()
	for i := range out {
		d, ok := out[i].Field(ChanLapDistance)
		if ok {
			if !math.IsNaN(prevDistance) && d < 100 && prevDistance > maxDistance-100 {
				lap++
			}
			prevDistance = d
		}
		if out[i].Lap == ErroneousLapNumber {
			out[i].Lap = lap
		} else if out[i].Lap > 0 {
			lap = out[i].Lap
		}
	}
	return out
}

// NormalizeTimestamps sorts records by time, stably so equal timestamps
// keep their input order.
func NormalizeTimestamps(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// FilterOutliers drops channel values more than OutlierStdThreshold
// standard deviations from the channel mean. Used on GPS channels where a
// receiver glitch throws single samples across the map.
func FilterOutliers(records []Record, channels []string) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		fields := make(map[string]float64, len(r.Fields))
		for k, v := range r.Fields {
			fields[k] = v
		}
		out[i] = Record{Time: r.Time, Vehicle: r.Vehicle, Lap: r.Lap, Fields: fields}
	}

	for _, ch := range channels {
		var values []float64
		for _, r := range out {
			if v, ok := r.Field(ch); ok {
				values = append(values, v)
			}
		}
		if len(values) < 2 {
			continue
		}
		mean := stat.Mean(values, nil)
		std := stat.PopStdDev(values, nil)
		if std == 0 {
			continue
		}
		for i := range out {
			if v, ok := out[i].Field(ch); ok {
				if math.Abs((v-mean)/std) > OutlierStdThreshold {
					delete(out[i].Fields, ch)
				}
			}
		}
	}
	return out
}

// Preprocess applies the standard cleanup pipeline: lap repair, timestamp
// ordering, GPS outlier masking.
func Preprocess(records []Record) []Record {
	records = CleanLapNumbers(records)
	records = NormalizeTimestamps(records)
	records = FilterOutliers(records, []string{ChanLatitude, ChanLongitude})
	return records
}

// SessionInfo summarizes a set of records for display.
type SessionInfo struct {
	Records  int           `json:"records"`
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Duration time.Duration `json:"duration"`
	Laps     int           `json:"laps"`
	Vehicles []string      `json:"vehicles"`
}

// Summarize computes session-level metadata from records.
func Summarize(records []Record) SessionInfo {
	info := SessionInfo{Records: len(records), Vehicles: Vehicles(records)}
	if len(records) == 0 {
		return info
	}
	info.Start = records[0].Time
	info.End = records[0].Time
	laps := make(map[int]bool)
	for _, r := range records {
		if r.Time.Before(info.Start) {
			info.Start = r.Time
		}
		if r.Time.After(info.End) {
			info.End = r.Time
		}
		if r.Lap > 0 && r.Lap != ErroneousLapNumber {
			laps[r.Lap] = true
		}
	}
	info.Duration = info.End.Sub(info.Start)
	info.Laps = len(laps)
	return info
}
