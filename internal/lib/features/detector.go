// Package features detects junctions and curves along a decoded driving route
// by analysing heading changes between consecutive path points.
package features

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/saferoad/routesafety/internal/lib/geo"
	"github.com/saferoad/routesafety/internal/lib/route"
	"github.com/saferoad/routesafety/internal/logging"
)

// junctionKeywords mark step instructions that may describe a junction
var junctionKeywords = []string{"turn", "roundabout", "fork", "merge", "exit", "onto"}

// Thresholds controls feature detection. All angles are in degrees.
type Thresholds struct {
	JunctionTurn float64 `koanf:"junction_turn" yaml:"junction_turn"`
	CurveAverage float64 `koanf:"curve_average" yaml:"curve_average"`
	// CurveWindow is the number of segments per curve window; a window spans CurveWindow+1 points.
	CurveWindow int `koanf:"curve_window" yaml:"curve_window"`

	FullPathJunctionTurn float64 `koanf:"full_path_junction_turn" yaml:"full_path_junction_turn"`
	FullPathCurveTurn    float64 `koanf:"full_path_curve_turn" yaml:"full_path_curve_turn"`
	// FullPathMinPoints is the overview path length the second pass requires to be exceeded.
	FullPathMinPoints int `koanf:"full_path_min_points" yaml:"full_path_min_points"`

	// DedupTolerance is the half-size in degrees of the lat/lng box used to
	// discard full-path candidates near an existing feature of the same type.
	DedupTolerance float64 `koanf:"dedup_tolerance" yaml:"dedup_tolerance"`
}

// DefaultThresholds returns the standard detection thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		JunctionTurn:         20,
		CurveAverage:         20,
		CurveWindow:          4,
		FullPathJunctionTurn: 45,
		FullPathCurveTurn:    25,
		FullPathMinPoints:    10,
		DedupTolerance:       0.001,
	}
}

// Detector finds junctions and curves on a route
type Detector struct {
	thresholds Thresholds
}

// NewDetector creates a Detector. Zero-valued thresholds fall back to defaults.
func NewDetector(thresholds Thresholds) *Detector {
	defaults := DefaultThresholds()
	if thresholds.JunctionTurn <= 0 {
		thresholds.JunctionTurn = defaults.JunctionTurn
	}
	if thresholds.CurveAverage <= 0 {
		thresholds.CurveAverage = defaults.CurveAverage
	}
	if thresholds.CurveWindow < 2 {
		thresholds.CurveWindow = defaults.CurveWindow
	}
	if thresholds.FullPathJunctionTurn <= 0 {
		thresholds.FullPathJunctionTurn = defaults.FullPathJunctionTurn
	}
	if thresholds.FullPathCurveTurn <= 0 {
		thresholds.FullPathCurveTurn = defaults.FullPathCurveTurn
	}
	if thresholds.FullPathMinPoints <= 0 {
		thresholds.FullPathMinPoints = defaults.FullPathMinPoints
	}
	if thresholds.DedupTolerance <= 0 {
		thresholds.DedupTolerance = defaults.DedupTolerance
	}
	return &Detector{thresholds: thresholds}
}

// Thresholds returns the thresholds in effect
func (d *Detector) Thresholds() Thresholds {
	return d.thresholds
}

// Detect runs the step pass, the full-path pass and the fallback check and
// returns the resulting feature set. It never fails; degenerate steps are skipped.
func (d *Detector) Detect(ctx context.Context, r *route.Route) []route.Feature {
	if r == nil {
		return []route.Feature{}
	}

	features := d.StepPass(ctx, r.Steps)
	features = d.FullPathPass(ctx, r.OverviewPath, features)
	features = d.Fallback(ctx, r.Steps, features)

	logging.FromContext(ctx).Debug("Route features detected",
		slog.Int("junctions", countType(features, route.Junction)),
		slog.Int("curves", countType(features, route.Curve)))

	return features
}

// StepPass detects junctions and curves within each step's local path
func (d *Detector) StepPass(ctx context.Context, steps []route.Step) []route.Feature {
	logger := logging.FromContext(ctx)
	features := []route.Feature{}

	for index, step := range steps {
		if isJunctionCandidate(step) {
			point, maxTurn, found := maxTurnPoint(step.Path)
			if found && maxTurn > d.thresholds.JunctionTurn {
				features = append(features, newFeature(point, route.Junction))
				logger.Debug("Junction detected",
					slog.Int("step", index),
					slog.Float64("max_angle", round1(maxTurn)))
			} else {
				logger.Debug("Potential junction missed",
					slog.Int("step", index),
					slog.Float64("max_angle", round1(maxTurn)))
			}
		} else if len(step.Path) <= 2 {
			logger.Debug("Step skipped for junction: insufficient path points",
				slog.Int("step", index), slog.Int("points", len(step.Path)))
		}

		if len(step.Path) > d.thresholds.CurveWindow {
			features = append(features, d.stepCurves(step.Path)...)
		} else {
			logger.Debug("Step has insufficient path points for curves",
				slog.Int("step", index), slog.Int("points", len(step.Path)))
		}
	}

	return features
}

// stepCurves slides a window of CurveWindow+1 points across path. When a
// window's average turn exceeds the threshold a curve is emitted at its middle
// point and scanning resumes after the window instead of at the next point.
func (d *Detector) stepCurves(path []geo.Point) []route.Feature {
	var curves []route.Feature
	window := d.thresholds.CurveWindow

	for i := 0; i < len(path)-window; i++ {
		points := path[i : i+window+1]

		total := 0.0
		for j := 1; j < len(points)-1; j++ {
			total += geo.TurnAngle(points[j-1], points[j], points[j+1])
		}

		average := total / float64(window-1)
		if average > d.thresholds.CurveAverage {
			curves = append(curves, newFeature(points[window/2], route.Curve))
			i += window - 1
		}
	}

	return curves
}

// FullPathPass scans every interior point of the overview path and adds the
// junctions and curves that step-local detection missed. Candidates inside
// the dedup box of an existing feature of the same type are discarded, so
// running the pass again over its own output adds nothing.
func (d *Detector) FullPathPass(ctx context.Context, path []geo.Point, features []route.Feature) []route.Feature {
	if features == nil {
		features = []route.Feature{}
	}
	if len(path) <= d.thresholds.FullPathMinPoints {
		return features
	}

	logger := logging.FromContext(ctx)
	for i := 1; i < len(path)-1; i++ {
		curr := path[i]
		turn := geo.TurnAngle(path[i-1], curr, path[i+1])

		if turn > d.thresholds.FullPathJunctionTurn && !d.hasNearby(features, curr, route.Junction) {
			features = append(features, newFeature(curr, route.Junction))
			logger.Debug("Extra junction from full path",
				slog.Int("point", i), slog.Float64("angle", round1(turn)))
		}

		if turn > d.thresholds.FullPathCurveTurn && !d.hasNearby(features, curr, route.Curve) {
			features = append(features, newFeature(curr, route.Curve))
			logger.Debug("Extra curve from full path",
				slog.Int("point", i), slog.Float64("angle", round1(turn)))
		}
	}

	return features
}

// Fallback guarantees a non-empty feature set for a route with steps by
// placing a single junction at the first step's start location.
func (d *Detector) Fallback(ctx context.Context, steps []route.Step, features []route.Feature) []route.Feature {
	if len(features) > 0 || len(steps) == 0 {
		if features == nil {
			features = []route.Feature{}
		}
		return features
	}

	logging.FromContext(ctx).Debug("Added fallback junction")
	return []route.Feature{newFeature(steps[0].StartLocation, route.Junction)}
}

// hasNearby reports whether a feature of type t lies inside the dedup box around p.
// The box is axis aligned in degrees, not a distance radius.
func (d *Detector) hasNearby(features []route.Feature, p geo.Point, t route.FeatureType) bool {
	tol := d.thresholds.DedupTolerance
	for _, f := range features {
		if f.Type == t &&
			math.Abs(f.Latitude-p.Latitude) < tol &&
			math.Abs(f.Longitude-p.Longitude) < tol {
			return true
		}
	}
	return false
}

// isJunctionCandidate applies the instruction keyword and path length filter
func isJunctionCandidate(step route.Step) bool {
	if len(step.Path) <= 2 {
		return false
	}

	instructions := strings.ToLower(step.Instructions)
	for _, keyword := range junctionKeywords {
		if strings.Contains(instructions, keyword) {
			return true
		}
	}
	return false
}

// maxTurnPoint returns the interior point with the largest heading change.
// Ties keep the earliest point; found is false when no turn exceeds zero.
func maxTurnPoint(path []geo.Point) (geo.Point, float64, bool) {
	var point geo.Point
	maxTurn := 0.0
	found := false

	for i := 1; i < len(path)-1; i++ {
		turn := geo.TurnAngle(path[i-1], path[i], path[i+1])
		if turn > maxTurn {
			maxTurn = turn
			point = path[i]
			found = true
		}
	}

	return point, maxTurn, found
}

func newFeature(p geo.Point, t route.FeatureType) route.Feature {
	return route.Feature{Latitude: p.Latitude, Longitude: p.Longitude, Type: t}
}

func countType(features []route.Feature, t route.FeatureType) int {
	count := 0
	for _, f := range features {
		if f.Type == t {
			count++
		}
	}
	return count
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
