// Package landmarks finds schools and hospitals along a route by sampling
// anchor points on the path and querying a places search provider.
package landmarks

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/saferoad/routesafety/internal/lib/geo"
	"github.com/saferoad/routesafety/internal/lib/route"
	"github.com/saferoad/routesafety/internal/logging"
)

// Places search statuses
const (
	StatusOK          = "OK"
	StatusZeroResults = "ZERO_RESULTS"
)

// FallbackName is the name given to the synthesized marker when no landmark is found
const FallbackName = "Test School"

// Place is a point of interest returned by a places search
type Place struct {
	Location geo.Point `json:"location"`
	Name     string    `json:"name"`
}

// SearchResult is the outcome of one nearby search
type SearchResult struct {
	Status string  `json:"status"`
	Places []Place `json:"places"`
}

// PlacesSearcher returns points of interest of one type near a location
type PlacesSearcher interface {
	NearbySearch(ctx context.Context, location geo.Point, radiusMeters float64, landmarkType route.LandmarkType) (*SearchResult, error)
}

// Config controls landmark sampling
type Config struct {
	SearchRadiusMeters float64 `koanf:"search_radius_meters" yaml:"search_radius_meters"`
	ProximityMeters    float64 `koanf:"proximity_meters" yaml:"proximity_meters"`
	// MaxAnchors bounds the sampling stride: stride = max(1, len(path)/MaxAnchors)
	MaxAnchors int `koanf:"max_anchors" yaml:"max_anchors"`
	// MaxConcurrentQueries > 1 gathers queries concurrently and merges them in
	// anchor-then-type order; 1 issues them strictly one at a time.
	MaxConcurrentQueries int `koanf:"max_concurrent_queries" yaml:"max_concurrent_queries"`
}

// DefaultConfig returns the standard sampling configuration
func DefaultConfig() Config {
	return Config{
		SearchRadiusMeters:   100,
		ProximityMeters:      100,
		MaxAnchors:           10,
		MaxConcurrentQueries: 1,
	}
}

// Sampler correlates a route path with nearby safety landmarks
type Sampler struct {
	places PlacesSearcher
	config Config
	types  []route.LandmarkType
}

// NewSampler creates a Sampler. Zero-valued config fields fall back to defaults.
func NewSampler(places PlacesSearcher, config Config) *Sampler {
	defaults := DefaultConfig()
	if config.SearchRadiusMeters <= 0 {
		config.SearchRadiusMeters = defaults.SearchRadiusMeters
	}
	if config.ProximityMeters <= 0 {
		config.ProximityMeters = defaults.ProximityMeters
	}
	if config.MaxAnchors <= 0 {
		config.MaxAnchors = defaults.MaxAnchors
	}
	if config.MaxConcurrentQueries <= 0 {
		config.MaxConcurrentQueries = defaults.MaxConcurrentQueries
	}
	return &Sampler{
		places: places,
		config: config,
		types:  route.LandmarkTypes,
	}
}

// query is one (anchor, type) nearby search
type query struct {
	anchorIndex  int
	location     geo.Point
	landmarkType route.LandmarkType
}

// accumulator collects markers and the exact location keys already recorded
type accumulator struct {
	seen    map[string]struct{}
	markers []route.SafetyMarker
}

func newAccumulator() *accumulator {
	return &accumulator{seen: make(map[string]struct{})}
}

// add records places from one query that are near the path and not yet seen
func (a *accumulator) add(places []Place, landmarkType route.LandmarkType, index *geo.PathIndex, proximity float64) int {
	added := 0
	for _, place := range places {
		key := locationKey(place.Location)
		if _, ok := a.seen[key]; ok {
			continue
		}
		if !index.Within(place.Location, proximity) {
			continue
		}

		a.seen[key] = struct{}{}
		a.markers = append(a.markers, route.SafetyMarker{
			Latitude:  place.Location.Latitude,
			Longitude: place.Location.Longitude,
			Type:      landmarkType,
			Name:      place.Name,
		})
		added++
	}
	return added
}

// Sample queries landmarks around anchor points of path and returns the
// deduplicated markers near the path. It never fails: a failed query
// contributes nothing. A non-empty path always yields at least one marker.
func (s *Sampler) Sample(ctx context.Context, path []geo.Point) []route.SafetyMarker {
	logger := logging.FromContext(ctx)
	if len(path) == 0 {
		return []route.SafetyMarker{}
	}

	queries := s.plan(path)
	index := geo.NewPathIndex(path)
	acc := newAccumulator()

	if s.config.MaxConcurrentQueries > 1 {
		results := s.gather(ctx, queries)
		for i, q := range queries {
			s.merge(ctx, acc, q, results[i], index)
		}
	} else {
		for _, q := range queries {
			if ctx.Err() != nil {
				logger.Warn("Landmark sampling interrupted", slog.String("error", ctx.Err().Error()))
				break
			}
			s.merge(ctx, acc, q, s.search(ctx, q), index)
		}
	}

	logger.Debug("Safety markers sampled",
		slog.Int("path_points", len(path)),
		slog.Int("queries", len(queries)),
		slog.Int("markers", len(acc.markers)))

	if len(acc.markers) == 0 {
		logger.Debug("Added fallback school marker")
		return []route.SafetyMarker{{
			Latitude:  path[0].Latitude,
			Longitude: path[0].Longitude,
			Type:      route.School,
			Name:      FallbackName,
		}}
	}

	return acc.markers
}

// plan lists the (anchor, type) queries in issue order: every type for the
// first anchor, then every type for the next, and so on.
func (s *Sampler) plan(path []geo.Point) []query {
	stride := Stride(len(path), s.config.MaxAnchors)

	var queries []query
	for i := 0; i < len(path); i += stride {
		for _, t := range s.types {
			queries = append(queries, query{anchorIndex: i, location: path[i], landmarkType: t})
		}
	}
	return queries
}

// gather runs every query with bounded concurrency; results[i] belongs to queries[i]
func (s *Sampler) gather(ctx context.Context, queries []query) []*SearchResult {
	results := make([]*SearchResult, len(queries))

	var g errgroup.Group
	g.SetLimit(s.config.MaxConcurrentQueries)
	for i, q := range queries {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = s.search(ctx, q)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// search issues one nearby search, converting failures into no result
func (s *Sampler) search(ctx context.Context, q query) *SearchResult {
	result, err := s.places.NearbySearch(ctx, q.location, s.config.SearchRadiusMeters, q.landmarkType)
	if err != nil {
		logging.LogError(logging.FromContext(ctx), "Nearby search failed", err,
			slog.String("type", string(q.landmarkType)),
			slog.Int("anchor", q.anchorIndex))
		return nil
	}
	return result
}

func (s *Sampler) merge(ctx context.Context, acc *accumulator, q query, result *SearchResult, index *geo.PathIndex) {
	logger := logging.FromContext(ctx)
	if result == nil || result.Status != StatusOK {
		status := "ERROR"
		if result != nil {
			status = result.Status
		}
		logger.Debug(fmt.Sprintf("No %ss found", q.landmarkType),
			slog.Float64("lat", q.location.Latitude),
			slog.Float64("lng", q.location.Longitude),
			slog.String("status", status))
		return
	}

	added := acc.add(result.Places, q.landmarkType, index, s.config.ProximityMeters)
	logger.Debug(fmt.Sprintf("Found %d %ss", added, q.landmarkType),
		slog.Float64("lat", q.location.Latitude),
		slog.Float64("lng", q.location.Longitude))
}

// Stride returns the anchor spacing for a path of n points sampled at most
// about maxAnchors times
func Stride(n, maxAnchors int) int {
	if maxAnchors <= 0 {
		return 1
	}
	return max(1, n/maxAnchors)
}

// locationKey is the exact-match dedup key for a place location
func locationKey(p geo.Point) string {
	return fmt.Sprintf("%v,%v", p.Latitude, p.Longitude)
}
