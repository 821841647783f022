package telemetry

import (
	"fmt"
	"math"
)

// sampleRun is a contiguous half-open range samples[start:end] sharing one
// lap (or sector) value.
type sampleRun struct {
	value int
	start int
	end   int
}

// contiguousRuns splits samples into runs of equal key values. The input is
// assumed pre-sorted; any change in key starts a new run.
func contiguousRuns(samples []Sample, key func(Sample) int) []sampleRun {
	var runs []sampleRun
	for i := range samples {
		v := key(samples[i])
		if len(runs) == 0 || runs[len(runs)-1].value != v {
			runs = append(runs, sampleRun{value: v, start: i, end: i + 1})
			continue
		}
		runs[len(runs)-1].end = i + 1
	}
	return runs
}

// Summarize converts the ordered sample sequence for one vehicle session
// into per-lap and per-sector summaries with deltas to the session bests.
//
// It returns a *MalformedInputError when lap numbers or timestamps decrease,
// or when any lap run has fewer than two samples. Sector-count mismatches
// are non-fatal: the affected lap keeps its time, loses its sector
// breakdown, and shows up in SessionSummary.Warnings.
func Summarize(samples []Sample, cfg Config) (*SessionSummary, error) {
	if cfg.SectorCount < 1 {
		return nil, fmt.Errorf("invalid sector count %d", cfg.SectorCount)
	}
	if cfg.ConsistencyPct <= 0 {
		cfg.ConsistencyPct = DefaultConsistencyPct
	}
	if len(samples) == 0 {
		return nil, &MalformedInputError{Reason: "no samples"}
	}

	for i := 1; i < len(samples); i++ {
		if samples[i].Time.Before(samples[i-1].Time) {
			return nil, &MalformedInputError{
				Lap:    samples[i].Lap,
				Reason: fmt.Sprintf("timestamp decreased at sample %d", i),
			}
		}
		if samples[i].Lap < samples[i-1].Lap {
			return nil, &MalformedInputError{
				Lap:    samples[i].Lap,
				Reason: fmt.Sprintf("lap number decreased from %d to %d", samples[i-1].Lap, samples[i].Lap),
			}
		}
	}

	lapRuns := contiguousRuns(samples, func(s Sample) int { return s.Lap })

	summary := &SessionSummary{SectorCount: cfg.SectorCount}
	for _, lr := range lapRuns {
		if lr.end-lr.start < 2 {
			return nil, &MalformedInputError{
				Lap:    lr.value,
				Reason: fmt.Sprintf("lap has %d samples, need at least 2", lr.end-lr.start),
			}
		}
		lap, runs := summarizeLap(samples[lr.start:lr.end], lr.value, cfg.SectorCount)
		if lap.SectorMismatch {
			summary.Warnings = append(summary.Warnings, SectorMismatchError{
				Lap:  lap.Lap,
				Runs: runs,
				Want: cfg.SectorCount,
			})
		}
		summary.Laps = append(summary.Laps, lap)
	}

	applyDeltas(summary, cfg)
	return summary, nil
}

func summarizeLap(samples []Sample, lapNum, sectorCount int) (LapSummary, int) {
	first, last := samples[0], samples[len(samples)-1]
	lap := LapSummary{
		Lap:     lapNum,
		LapTime: last.Time.Sub(first.Time).Seconds(),
		Start:   first.Time,
		End:     last.Time,
		Samples: len(samples),
	}

	var speedSum float64
	lap.MaxSpeed = math.Inf(-1)
	lap.MinSpeed = math.Inf(1)
	for _, s := range samples {
		speedSum += s.Speed
		lap.MaxSpeed = math.Max(lap.MaxSpeed, s.Speed)
		lap.MinSpeed = math.Min(lap.MinSpeed, s.Speed)
	}
	lap.AvgSpeed = speedSum / float64(len(samples))

	sectorRuns := contiguousRuns(samples, func(s Sample) int { return s.Sector })
	if len(sectorRuns) != sectorCount {
		lap.SectorMismatch = true
		return lap, len(sectorRuns)
	}

	for i, sr := range sectorRuns {
		sub := samples[sr.start:sr.end]
		var sum float64
		for _, s := range sub {
			sum += s.Speed
		}
		lap.Sectors = append(lap.Sectors, SectorSummary{
			Sector:     i + 1,
			SectorTime: sub[len(sub)-1].Time.Sub(sub[0].Time).Seconds(),
			AvgSpeed:   sum / float64(len(sub)),
		})
	}
	return lap, len(sectorRuns)
}

// applyDeltas fills in best-lap and best-sector deltas plus the consistency
// flag. Laps without a full sector set are not best-lap candidates: a
// session ending mid-lap must not win "best lap" on a short partial time.
// If no lap is complete the best falls back to the fastest valid lap time.
// Ties go to the lowest lap number.
func applyDeltas(summary *SessionSummary, cfg Config) {
	bestIdx := -1
	for i, lap := range summary.Laps {
		if lap.SectorMismatch {
			continue
		}
		if bestIdx < 0 || lap.LapTime < summary.Laps[bestIdx].LapTime {
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		for i, lap := range summary.Laps {
			if bestIdx < 0 || lap.LapTime < summary.Laps[bestIdx].LapTime {
				bestIdx = i
			}
		}
	}
	if bestIdx < 0 {
		return
	}

	best := summary.Laps[bestIdx].LapTime
	summary.BestLap = summary.Laps[bestIdx].Lap
	summary.Laps[bestIdx].Best = true
	for i := range summary.Laps {
		lap := &summary.Laps[i]
		lap.DeltaToBest = lap.LapTime - best
		lap.Consistent = lap.LapTime <= best*(1+cfg.ConsistencyPct/100)
	}

	// Best sector at each index across all laps that have sectors.
	summary.SectorBests = make([]float64, summary.SectorCount)
	for si := 0; si < summary.SectorCount; si++ {
		bestTime := math.Inf(1)
		for _, lap := range summary.Laps {
			if lap.SectorMismatch {
				continue
			}
			if lap.Sectors[si].SectorTime < bestTime {
				bestTime = lap.Sectors[si].SectorTime
			}
		}
		summary.SectorBests[si] = bestTime
		marked := false
		for i := range summary.Laps {
			lap := &summary.Laps[i]
			if lap.SectorMismatch {
				continue
			}
			sec := &lap.Sectors[si]
			sec.DeltaToBest = sec.SectorTime - bestTime
			if !marked && sec.SectorTime == bestTime {
				sec.Best = true
				marked = true
			}
		}
	}
}
