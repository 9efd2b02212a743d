// Package geotest provides geometry helpers for building test paths.
package geotest

import (
	"math"

	"github.com/saferoad/routesafety/internal/lib/geo"
)

const earthRadius = 6371000

// Destination returns the point reached by travelling meters from start along
// the great circle with the given initial bearing in degrees
func Destination(start geo.Point, bearing, meters float64) geo.Point {
	delta := meters / earthRadius
	theta := bearing * math.Pi / 180
	lat1 := start.Latitude * math.Pi / 180
	lon1 := start.Longitude * math.Pi / 180

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) + math.Cos(lat1)*math.Sin(delta)*math.Cos(theta))
	lon2 := lon1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2),
	)

	// Normalise longitude to [-180, 180)
	lng := math.Mod(lon2*180/math.Pi+540, 360) - 180
	return geo.Point{Latitude: lat2 * 180 / math.Pi, Longitude: lng}
}
