package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoad/routesafety/internal/lib/geo"
	"github.com/saferoad/routesafety/internal/lib/route"
)

func sampleAnalysis() *route.Analysis {
	return &route.Analysis{
		RequestID:   "req-1",
		Origin:      "Vyttila",
		Destination: "Kakkanad",
		Route: &route.Route{
			Summary:         "Seaport-Airport Rd",
			DistanceMeters:  9120,
			DurationSeconds: 1260,
			OverviewPath: []geo.Point{
				{Latitude: 9.9674, Longitude: 76.3182},
				{Latitude: 9.9816, Longitude: 76.2999},
				{Latitude: 10.0159, Longitude: 76.3419},
			},
		},
		Features: []route.Feature{
			{Latitude: 9.9816, Longitude: 76.2999, Type: route.Junction},
			{Latitude: 10.0011, Longitude: 76.3301, Type: route.Curve},
		},
		Markers: []route.SafetyMarker{
			{Latitude: 10.0101, Longitude: 76.3402, Type: route.Hospital, Name: "Sunrise Hospital"},
		},
		CompletedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestWriteKML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteKML(&buf, sampleAnalysis()))
	out := buf.String()

	assert.Contains(t, out, "<kml")
	assert.Contains(t, out, "<name>Route Vyttila to Kakkanad</name>")
	assert.Contains(t, out, "<name>Route</name>")
	assert.Contains(t, out, "<name>Features</name>")
	assert.Contains(t, out, "<name>Safety</name>")
	assert.Contains(t, out, "<name>Seaport-Airport Rd</name>")
	assert.Contains(t, out, "<LineString>")
	assert.Contains(t, out, "<name>Junction</name>")
	assert.Contains(t, out, "<name>Curve</name>")
	assert.Contains(t, out, "<name>Sunrise Hospital</name>")
	assert.Contains(t, out, "<description>hospital</description>")
	assert.Contains(t, out, "<styleUrl>#junction</styleUrl>")
	assert.Contains(t, out, "76.2999,9.9816")
	assert.Equal(t, 4, strings.Count(out, "<Placemark>"), "One line plus one placemark per feature and marker")
}

func TestWriteKML_EmptyAnalysis(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteKML(&buf, &route.Analysis{Origin: "A", Destination: "B"}))

	out := buf.String()
	assert.Contains(t, out, "<name>Route A to B</name>")
	assert.NotContains(t, out, "<Placemark>")
}

func TestWriteKML_NilAnalysis(t *testing.T) {
	assert.Error(t, WriteKML(&bytes.Buffer{}, nil))
}
