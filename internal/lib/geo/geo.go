package geo

import (
	"errors"
	"math"

	"github.com/twpayne/go-polyline"
)

// Earth's radius in meters
const earthRadius = 6371000

// Distance calculates great-circle distance between two points in meters using the Haversine formula
func Distance(p1, p2 Point) float64 {
	if p1.Equal(p2) {
		return 0
	}

	lat1 := toRadians(p1.Latitude)
	lon1 := toRadians(p1.Longitude)
	lat2 := toRadians(p2.Latitude)
	lon2 := toRadians(p2.Longitude)

	dlat := lat2 - lat1
	dlon := lon2 - lon1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// Bearing returns the initial great-circle heading from a to b in degrees, in [0, 360).
// Identical points have no defined heading; 0 is returned for them.
func Bearing(a, b Point) float64 {
	if a.Equal(b) {
		return 0
	}

	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dlon := toRadians(b.Longitude - a.Longitude)

	y := math.Sin(dlon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dlon)

	heading := math.Mod(toDegrees(math.Atan2(y, x))+360, 360)
	if heading >= 360 {
		heading = 0
	}
	return heading
}

// AngularDelta returns the absolute difference between two headings.
// Wrap-around near 0/360 is not normalised: 350 and 10 are 340 degrees apart.
func AngularDelta(bearing1, bearing2 float64) float64 {
	return math.Abs(bearing2 - bearing1)
}

// TurnAngle is the heading change at curr when travelling prev -> curr -> next
func TurnAngle(prev, curr, next Point) float64 {
	return AngularDelta(Bearing(prev, curr), Bearing(curr, next))
}

// MinDistanceToPath returns the smallest distance in meters from point to any vertex of path.
// An empty path yields +Inf.
func MinDistanceToPath(point Point, path []Point) float64 {
	minDistance := math.Inf(1)
	for _, p := range path {
		if d := Distance(point, p); d < minDistance {
			minDistance = d
		}
	}
	return minDistance
}

// DecodePolyline decodes Google polyline string to point sequence
func DecodePolyline(encoded string) ([]Point, error) {
	if encoded == "" {
		return nil, errors.New("encoded polyline string is empty")
	}

	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, errors.New("failed to decode polyline: " + err.Error())
	}

	points := make([]Point, len(coords))
	for i, coord := range coords {
		p, err := NewPoint(coord[0], coord[1])
		if err != nil {
			return nil, errors.New("decoded polyline contains invalid coordinates")
		}
		points[i] = p
	}

	return points, nil
}

// EncodePolyline encodes a point sequence using Google's polyline algorithm
func EncodePolyline(points []Point) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Latitude, p.Longitude}
	}
	return string(polyline.EncodeCoords(coords))
}

// NewPoint creates a Point from latitude and longitude values with validation
func NewPoint(latitude, longitude float64) (Point, error) {
	point := Point{Latitude: latitude, Longitude: longitude}
	if !IsValidCoordinate(point) {
		return Point{}, errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")
	}
	return point, nil
}

// IsValidCoordinate validates latitude and longitude values
func IsValidCoordinate(point Point) bool {
	return point.Latitude >= -90 && point.Latitude <= 90 &&
		point.Longitude >= -180 && point.Longitude <= 180
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
