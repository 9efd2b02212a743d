// Package export renders route analyses for map tools.
package export

import (
	"fmt"
	"image/color"
	"io"

	"github.com/twpayne/go-kml"

	"github.com/saferoad/routesafety/internal/lib/geo"
	"github.com/saferoad/routesafety/internal/lib/route"
)

// ContentType is the media type of a KML document
const ContentType = "application/vnd.google-earth.kml+xml"

const (
	routeStyleID    = "route"
	junctionStyleID = "junction"
	curveStyleID    = "curve"
	schoolStyleID   = "school"
	hospitalStyleID = "hospital"
)

// featureNames are the placemark names for each feature type
var featureNames = map[route.FeatureType]string{
	route.Junction: "Junction",
	route.Curve:    "Curve",
}

// WriteKML writes the analysis as a KML document with Route, Features and Safety folders
func WriteKML(w io.Writer, analysis *route.Analysis) error {
	if analysis == nil {
		return fmt.Errorf("nil analysis")
	}

	doc := kml.KML(
		kml.Document(
			append(styles(),
				kml.Name(fmt.Sprintf("Route %s to %s", analysis.Origin, analysis.Destination)),
				routeFolder(analysis),
				featuresFolder(analysis.Features),
				safetyFolder(analysis.Markers),
			)...,
		),
	)

	if err := doc.WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("failed to write KML: %w", err)
	}
	return nil
}

func styles() []kml.Element {
	return []kml.Element{
		kml.SharedStyle(routeStyleID,
			kml.LineStyle(kml.Color(color.RGBA{R: 0x19, G: 0x76, B: 0xd2, A: 0xff}), kml.Width(4))),
		kml.SharedStyle(junctionStyleID,
			kml.IconStyle(kml.Color(color.RGBA{R: 0xff, G: 0x00, B: 0x00, A: 0xff}), kml.Scale(1.1))),
		kml.SharedStyle(curveStyleID,
			kml.IconStyle(kml.Color(color.RGBA{R: 0xff, G: 0xa5, B: 0x00, A: 0xff}), kml.Scale(1.0))),
		kml.SharedStyle(schoolStyleID,
			kml.IconStyle(kml.Color(color.RGBA{R: 0x00, G: 0x80, B: 0x00, A: 0xff}), kml.Scale(1.0))),
		kml.SharedStyle(hospitalStyleID,
			kml.IconStyle(kml.Color(color.RGBA{R: 0x00, G: 0x00, B: 0xff, A: 0xff}), kml.Scale(1.0))),
	}
}

func routeFolder(analysis *route.Analysis) kml.Element {
	children := []kml.Element{kml.Name("Route")}

	if analysis.Route != nil && len(analysis.Route.OverviewPath) > 0 {
		name := analysis.Route.Summary
		if name == "" {
			name = "Overview"
		}
		children = append(children, kml.Placemark(
			kml.Name(name),
			kml.Description(fmt.Sprintf("%d m, %d s", analysis.Route.DistanceMeters, analysis.Route.DurationSeconds)),
			kml.StyleURL("#"+routeStyleID),
			kml.LineString(
				kml.Tessellate(true),
				kml.Coordinates(coordinates(analysis.Route.OverviewPath)...),
			),
		))
	}
	return kml.Folder(children...)
}

func featuresFolder(features []route.Feature) kml.Element {
	children := []kml.Element{kml.Name("Features")}
	for _, f := range features {
		children = append(children, kml.Placemark(
			kml.Name(featureNames[f.Type]),
			kml.StyleURL("#"+string(f.Type)),
			kml.Point(kml.Coordinates(coordinate(f.Point()))),
		))
	}
	return kml.Folder(children...)
}

func safetyFolder(markers []route.SafetyMarker) kml.Element {
	children := []kml.Element{kml.Name("Safety")}
	for _, m := range markers {
		children = append(children, kml.Placemark(
			kml.Name(m.Name),
			kml.Description(string(m.Type)),
			kml.StyleURL("#"+string(m.Type)),
			kml.Point(kml.Coordinates(coordinate(m.Point()))),
		))
	}
	return kml.Folder(children...)
}

func coordinate(p geo.Point) kml.Coordinate {
	return kml.Coordinate{Lon: p.Longitude, Lat: p.Latitude}
}

func coordinates(path []geo.Point) []kml.Coordinate {
	coords := make([]kml.Coordinate, 0, len(path))
	for _, p := range path {
		coords = append(coords, coordinate(p))
	}
	return coords
}
