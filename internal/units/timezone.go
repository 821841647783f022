package units

import (
	"fmt"
	"time"
)

// DefaultTimezone is used for timestamp display when a dataset carries no
// timezone of its own. GR Cup rounds run on US eastern time.
const DefaultTimezone = "America/New_York"

// IsTimezoneValid checks whether tz resolves in the system tz database.
func IsTimezoneValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// ConvertTime converts a UTC time into the target timezone. An invalid
// timezone is an error rather than a silent fallback.
func ConvertTime(utcTime time.Time, targetTimezone string) (time.Time, error) {
	loc, err := time.LoadLocation(targetTimezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", targetTimezone, err)
	}
	return utcTime.In(loc), nil
}
