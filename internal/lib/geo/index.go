package geo

import (
	"math"

	"github.com/dhconnelly/rtreego"
)

const (
	indexDimensions  = 2
	indexMinChildren = 4
	indexMaxChildren = 16
	indexTolerance   = 1e-9

	// Meters per degree of latitude on the haversine sphere
	metersPerDegree = earthRadius * math.Pi / 180
)

// pathVertex wraps a path point for R-Tree indexing
type pathVertex struct {
	Point
	rect *rtreego.Rect
}

func (v *pathVertex) Bounds() *rtreego.Rect {
	return v.rect
}

// PathIndex answers "how close is this point to the path" queries without
// scanning every vertex. Distances are haversine meters to path vertices.
type PathIndex struct {
	tree   *rtreego.Rtree
	points []Point
}

// NewPathIndex builds an index over the vertices of path
func NewPathIndex(path []Point) *PathIndex {
	tree := rtreego.NewTree(indexDimensions, indexMinChildren, indexMaxChildren)
	for _, p := range path {
		rtPoint := rtreego.Point{p.Latitude, p.Longitude}
		tree.Insert(&pathVertex{Point: p, rect: rtPoint.ToRect(indexTolerance)})
	}
	return &PathIndex{
		tree:   tree,
		points: append([]Point(nil), path...),
	}
}

// Within reports whether point lies strictly closer than maxMeters to any vertex
func (idx *PathIndex) Within(point Point, maxMeters float64) bool {
	return idx.minDistanceWithin(point, maxMeters) < maxMeters
}

// minDistanceWithin scans vertices inside a bounding box that contains every
// point within radius meters of center and returns the minimum distance found.
func (idx *PathIndex) minDistanceWithin(center Point, radius float64) float64 {
	minDistance := math.Inf(1)
	if len(idx.points) == 0 {
		return minDistance
	}

	bounds, ok := searchBox(center, radius)
	if !ok {
		return MinDistanceToPath(center, idx.points)
	}

	for _, result := range idx.tree.SearchIntersect(bounds) {
		vertex, ok := result.(*pathVertex)
		if !ok {
			continue
		}
		if d := Distance(center, vertex.Point); d < minDistance {
			minDistance = d
		}
	}
	return minDistance
}

// searchBox returns a lat/lng box covering radius meters around center.
// It reports false near the poles or the antimeridian where a box is not safe.
func searchBox(center Point, radius float64) (*rtreego.Rect, bool) {
	dLat := radius / metersPerDegree
	cosLat := math.Cos(toRadians(center.Latitude))
	if cosLat < 0.01 {
		return nil, false
	}
	dLng := dLat / cosLat

	// 1% margin absorbs the difference between chord and arc at these scales
	dLat *= 1.01
	dLng *= 1.01

	if center.Longitude-dLng < -180 || center.Longitude+dLng > 180 {
		return nil, false
	}

	rect, err := rtreego.NewRect(
		rtreego.Point{center.Latitude - dLat, center.Longitude - dLng},
		[]float64{2 * dLat, 2 * dLng},
	)
	if err != nil {
		return nil, false
	}
	return rect, true
}
