package loader

import (
	"github.com/laplens-data/laplens/internal/telemetry"
	"github.com/laplens-data/laplens/internal/track"
)

// ToSamples converts cleaned records for a single vehicle into telemetry
// samples, assigning sector numbers from the track layout. Records with a
// glitched or missing lap number fall back to distance-based lap detection.
func ToSamples(records []Record, layout track.Layout) []telemetry.Sample {
	samples := make([]telemetry.Sample, 0, len(records))
	needDetect := false
	for _, r := range records {
		s := telemetry.Sample{
			Time:  r.Time,
			Lap:   r.Lap,
			Speed: r.Fields[ChanSpeed],
			Gear:  int(r.Fields[ChanGear]),
			RPM:   r.Fields[ChanRPM],
		}
		s.Distance = r.Fields[ChanLapDistance]
		s.Throttle = r.Fields[ChanThrottle]
		s.BrakeFront = r.Fields[ChanBrakeFront]
		s.BrakeRear = r.Fields[ChanBrakeRear]
		s.SteeringAngle = r.Fields[ChanSteering]
		s.LongG = r.Fields[ChanLongG]
		s.LatG = r.Fields[ChanLatG]
		s.Latitude = r.Fields[ChanLatitude]
		s.Longitude = r.Fields[ChanLongitude]
		if s.Lap <= 0 || s.Lap == ErroneousLapNumber {
			needDetect = true
		}
		samples = append(samples, s)
	}
	if needDetect {
		samples = track.DetectLaps(samples)
	}
	return layout.AssignSectors(samples)
}
