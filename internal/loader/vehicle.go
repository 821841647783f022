package loader

import (
	"fmt"
	"regexp"
	"sort"
)

// Vehicle IDs come in the form GR86-{chassis}-{carNumber}; car number 000
// means no race number has been assigned to the chassis yet.
const UnassignedCarNumber = "000"

var vehicleIDPattern = regexp.MustCompile(`GR86-(\d+)-(\d+)`)

// ParseVehicleID splits a vehicle ID into chassis and car number. Unknown
// formats come back as ("Unknown", "000").
func ParseVehicleID(vehicleID string) (chassis, carNumber string) {
	m := vehicleIDPattern.FindStringSubmatch(vehicleID)
	if m == nil {
		return "Unknown", UnassignedCarNumber
	}
	return m[1], m[2]
}

// VehicleDisplayName formats a vehicle ID for humans.
func VehicleDisplayName(vehicleID string) string {
	chassis, carNumber := ParseVehicleID(vehicleID)
	if carNumber == UnassignedCarNumber {
		return fmt.Sprintf("Chassis %s (Unassigned)", chassis)
	}
	return fmt.Sprintf("Car #%s (Chassis %s)", carNumber, chassis)
}

// Vehicles returns the sorted distinct vehicle IDs present in records.
func Vehicles(records []Record) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		if r.Vehicle == "" || seen[r.Vehicle] {
			continue
		}
		seen[r.Vehicle] = true
		out = append(out, r.Vehicle)
	}
	sort.Strings(out)
	return out
}

// FilterVehicle keeps only records for the given vehicle ID.
func FilterVehicle(records []Record, vehicleID string) []Record {
	var out []Record
	for _, r := range records {
		if r.Vehicle == vehicleID {
			out = append(out, r)
		}
	}
	return out
}
