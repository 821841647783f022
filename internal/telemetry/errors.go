package telemetry

import "fmt"

// MalformedInputError indicates the sample sequence cannot be summarized at
// all: lap numbers went backwards, timestamps went backwards, or a lap has
// too few samples to compute a duration. Fatal for the whole session.
type MalformedInputError struct {
	Lap    int
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Lap > 0 {
		return fmt.Sprintf("malformed telemetry input at lap %d: %s", e.Lap, e.Reason)
	}
	return fmt.Sprintf("malformed telemetry input: %s", e.Reason)
}

// SectorMismatchError reports a lap whose sector runs disagree with the
// configured sector count. Non-fatal: the lap keeps its time but loses its
// sector breakdown.
type SectorMismatchError struct {
	Lap  int `json:"lap"`
	Runs int `json:"runs"`
	Want int `json:"want"`
}

func (e SectorMismatchError) Error() string {
	return fmt.Sprintf("lap %d: %d sector runs, expected %d", e.Lap, e.Runs, e.Want)
}
