package store

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/saferoad/routesafety/internal/lib/geo"
)

// accidentDateLayouts are accepted for ReportInput.AccidentDate, most specific first
var accidentDateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// ReportInput is the submitted form of an accident report
type ReportInput struct {
	Region         string    `json:"region"`
	PoliceStation  string    `json:"police_station"`
	Before         geo.Point `json:"before"`
	After          geo.Point `json:"after"`
	Accident       geo.Point `json:"accident"`
	Cause          string    `json:"cause"`
	InjurySeverity string    `json:"injury_severity"`
	AccidentDate   string    `json:"accident_date"`
	Vehicles       []Vehicle `json:"vehicles"`
	ReportedBy     string    `json:"reported_by"`
}

// DecodeReportInput reads one JSON report input, rejecting unknown fields
func DecodeReportInput(r io.Reader) (*ReportInput, error) {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()

	var input ReportInput
	if err := decoder.Decode(&input); err != nil {
		return nil, fmt.Errorf("%w: malformed JSON: %v", ErrInvalidReport, err)
	}
	return &input, nil
}

// Report converts the input to an AccidentReport. Validation happens on create.
func (in *ReportInput) Report() (AccidentReport, error) {
	report := AccidentReport{
		Region:         strings.TrimSpace(in.Region),
		PoliceStation:  strings.TrimSpace(in.PoliceStation),
		Before:         in.Before,
		After:          in.After,
		Accident:       in.Accident,
		Cause:          strings.TrimSpace(in.Cause),
		InjurySeverity: strings.TrimSpace(in.InjurySeverity),
		Vehicles:       in.Vehicles,
		ReportedBy:     strings.TrimSpace(in.ReportedBy),
	}

	date := strings.TrimSpace(in.AccidentDate)
	if date == "" {
		return report, nil
	}
	for _, layout := range accidentDateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			report.AccidentDate = t
			return report, nil
		}
	}
	return report, fmt.Errorf("%w: accident_date %q is not a date", ErrInvalidReport, in.AccidentDate)
}
