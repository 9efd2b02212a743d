package route

import (
	"time"

	"github.com/saferoad/routesafety/internal/lib/geo"
)

// FeatureType classifies a geometric feature detected along a route
type FeatureType string

const (
	Junction FeatureType = "junction" // sharp single-point heading change
	Curve    FeatureType = "curve"    // sustained moderate heading change
)

// LandmarkType classifies a safety-relevant point of interest
type LandmarkType string

const (
	School   LandmarkType = "school"
	Hospital LandmarkType = "hospital"
)

// LandmarkTypes is the fixed query order used when sampling landmarks
var LandmarkTypes = []LandmarkType{School, Hospital}

// Step is one instruction-bearing segment of a route with its decoded path
type Step struct {
	Instructions  string      `json:"instructions"`
	Path          []geo.Point `json:"path"`
	StartLocation geo.Point   `json:"start_location"`
}

// Route is a decoded driving route. OverviewPath is the full-resolution path
// of the whole route; Steps carry step-local subsequences.
type Route struct {
	Steps        []Step      `json:"steps"`
	OverviewPath []geo.Point `json:"overview_path"`

	Summary         string `json:"summary,omitempty"`
	StartAddress    string `json:"start_address,omitempty"`
	EndAddress      string `json:"end_address,omitempty"`
	DistanceMeters  int32  `json:"distance_meters,omitempty"`
	DurationSeconds int32  `json:"duration_seconds,omitempty"`
}

// Empty reports whether the route has neither steps nor an overview path
func (r *Route) Empty() bool {
	return r == nil || (len(r.Steps) == 0 && len(r.OverviewPath) == 0)
}

// Center returns the map center for the route: the first step's start location
func (r *Route) Center() geo.Point {
	if r == nil || len(r.Steps) == 0 {
		return geo.Point{}
	}
	return r.Steps[0].StartLocation
}

// Feature is a junction or curve located on the route
type Feature struct {
	Latitude  float64     `json:"lat"`
	Longitude float64     `json:"lng"`
	Type      FeatureType `json:"type"`
}

// Point returns the feature location
func (f Feature) Point() geo.Point {
	return geo.Point{Latitude: f.Latitude, Longitude: f.Longitude}
}

// SafetyMarker is a school or hospital found near the route
type SafetyMarker struct {
	Latitude  float64      `json:"lat"`
	Longitude float64      `json:"lng"`
	Type      LandmarkType `json:"type"`
	Name      string       `json:"name"`
}

// Point returns the marker location
func (m SafetyMarker) Point() geo.Point {
	return geo.Point{Latitude: m.Latitude, Longitude: m.Longitude}
}

// Analysis is the combined result of analysing one route request
type Analysis struct {
	RequestID   string         `json:"request_id"`
	Origin      string         `json:"origin"`
	Destination string         `json:"destination"`
	Route       *Route         `json:"route"`
	Features    []Feature      `json:"features"`
	Markers     []SafetyMarker `json:"markers"`
	Center      geo.Point      `json:"center"`
	CompletedAt time.Time      `json:"completed_at"`
}

// CountFeatures returns the number of features of the given type
func (a *Analysis) CountFeatures(t FeatureType) int {
	count := 0
	for _, f := range a.Features {
		if f.Type == t {
			count++
		}
	}
	return count
}

// DirectionsStatusOK is the only directions status that carries a usable route
const DirectionsStatusOK = "OK"

// DirectionsResult is a directions provider response. Route is set only when
// Status is DirectionsStatusOK.
type DirectionsResult struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Route        *Route `json:"route,omitempty"`
}
