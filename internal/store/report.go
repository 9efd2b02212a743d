package store

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/saferoad/routesafety/internal/lib/geo"
)

var (
	// ErrNotFound is returned when a report does not exist
	ErrNotFound = errors.New("report not found")
	// ErrInvalidReport wraps every validation failure
	ErrInvalidReport = errors.New("invalid accident report")
)

// Accepted values for the enumerated report fields
var (
	Causes = []string{
		"Careless Driving", "Road Features", "Vehicle Crash",
		"Over Speeding", "Drunk Driving", "Poor Weather",
	}
	InjurySeverities = []string{"Minor", "Severe", "Grievous", "Fatal"}
	VehicleTypes     = []string{"Car", "Bike", "Bus", "Truck", "Auto Rickshaw", "Cycle", "Other"}
)

// Vehicle is one vehicle involved in an accident
type Vehicle struct {
	Number string `json:"number"`
	Type   string `json:"type"`
}

// AccidentReport is a reported accident with the road points either side of it
type AccidentReport struct {
	ID             string    `json:"id"`
	Region         string    `json:"region"`
	PoliceStation  string    `json:"police_station"`
	Before         geo.Point `json:"before"`
	After          geo.Point `json:"after"`
	Accident       geo.Point `json:"accident"`
	Cause          string    `json:"cause"`
	InjurySeverity string    `json:"injury_severity"`
	AccidentDate   time.Time `json:"accident_date"`
	Vehicles       []Vehicle `json:"vehicles"`
	ReportedBy     string    `json:"reported_by"`
	CreatedAt      time.Time `json:"created_at"`
}

// Validate checks that every field is present and enumerated fields hold known values
func (r *AccidentReport) Validate() error {
	var missing []string
	for name, value := range map[string]string{
		"region":          r.Region,
		"police_station":  r.PoliceStation,
		"cause":           r.Cause,
		"injury_severity": r.InjurySeverity,
		"reported_by":     r.ReportedBy,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if r.AccidentDate.IsZero() {
		missing = append(missing, "accident_date")
	}
	if len(r.Vehicles) == 0 {
		missing = append(missing, "vehicles")
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("%w: missing %s", ErrInvalidReport, strings.Join(missing, ", "))
	}

	for name, p := range map[string]geo.Point{"before": r.Before, "after": r.After, "accident": r.Accident} {
		if _, err := geo.NewPoint(p.Latitude, p.Longitude); err != nil || (p == geo.Point{}) {
			return fmt.Errorf("%w: %s location is not a valid coordinate", ErrInvalidReport, name)
		}
	}

	if !slices.Contains(Causes, r.Cause) {
		return fmt.Errorf("%w: unknown cause %q", ErrInvalidReport, r.Cause)
	}
	if !slices.Contains(InjurySeverities, r.InjurySeverity) {
		return fmt.Errorf("%w: unknown injury severity %q", ErrInvalidReport, r.InjurySeverity)
	}
	for i, v := range r.Vehicles {
		if strings.TrimSpace(v.Number) == "" || strings.TrimSpace(v.Type) == "" {
			return fmt.Errorf("%w: vehicle %d needs a number and a type", ErrInvalidReport, i+1)
		}
		if !slices.Contains(VehicleTypes, v.Type) {
			return fmt.Errorf("%w: unknown vehicle type %q", ErrInvalidReport, v.Type)
		}
	}
	return nil
}

// ListFilter narrows a report listing
type ListFilter struct {
	Region string
	Limit  int
}
