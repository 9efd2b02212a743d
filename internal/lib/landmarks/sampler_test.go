package landmarks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saferoad/routesafety/internal/lib/geo"
	"github.com/saferoad/routesafety/internal/lib/geo/geotest"
	"github.com/saferoad/routesafety/internal/lib/route"
)

// MockPlacesSearcher is a mock implementation of PlacesSearcher
type MockPlacesSearcher struct {
	mock.Mock
}

func (m *MockPlacesSearcher) NearbySearch(ctx context.Context, location geo.Point, radiusMeters float64, landmarkType route.LandmarkType) (*SearchResult, error) {
	args := m.Called(ctx, location, radiusMeters, landmarkType)
	result, _ := args.Get(0).(*SearchResult)
	return result, args.Error(1)
}

// straightPath heads east from Thrissur with 80m between points
func straightPath(n int) []geo.Point {
	start := geo.Point{Latitude: 10.5276, Longitude: 76.2144}
	path := []geo.Point{start}
	for len(path) < n {
		path = append(path, geotest.Destination(path[len(path)-1], 90, 80))
	}
	return path
}

func zeroResults() *SearchResult {
	return &SearchResult{Status: StatusZeroResults}
}

func okResult(places ...Place) *SearchResult {
	return &SearchResult{Status: StatusOK, Places: places}
}

func TestSample_QueryOrder(t *testing.T) {
	path := straightPath(25)
	places := &MockPlacesSearcher{}
	places.On("NearbySearch", mock.Anything, mock.Anything, 100.0, mock.Anything).Return(zeroResults(), nil)

	sampler := NewSampler(places, DefaultConfig())
	sampler.Sample(context.Background(), path)

	// stride = 25/10 = 2 -> anchors 0, 2, ..., 24
	require.Len(t, places.Calls, 26)
	for i, call := range places.Calls {
		anchor := (i / 2) * 2
		expectedType := route.School
		if i%2 == 1 {
			expectedType = route.Hospital
		}
		assert.Equal(t, path[anchor], call.Arguments.Get(1), "call %d location", i)
		assert.Equal(t, expectedType, call.Arguments.Get(3), "call %d type", i)
	}
}

func TestSample_StrideBoundsAnchors(t *testing.T) {
	tests := []struct {
		points        int
		expectedCalls int
	}{
		{points: 1, expectedCalls: 2},
		{points: 5, expectedCalls: 10},
		{points: 100, expectedCalls: 20},
		{points: 109, expectedCalls: 22},
	}

	for _, tt := range tests {
		places := &MockPlacesSearcher{}
		places.On("NearbySearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(zeroResults(), nil)

		NewSampler(places, DefaultConfig()).Sample(context.Background(), straightPath(tt.points))
		assert.Len(t, places.Calls, tt.expectedCalls, "path of %d points", tt.points)
	}
}

func TestSample_MarkerDedupAcrossAnchors(t *testing.T) {
	path := straightPath(12)
	school := Place{Location: geotest.Destination(path[1], 0, 30), Name: "Govt Model Boys HSS"}

	places := &MockPlacesSearcher{}
	places.On("NearbySearch", mock.Anything, path[0], 100.0, route.School).Return(okResult(school), nil)
	places.On("NearbySearch", mock.Anything, path[1], 100.0, route.School).Return(okResult(school), nil)
	places.On("NearbySearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(zeroResults(), nil)

	markers := NewSampler(places, DefaultConfig()).Sample(context.Background(), path)

	require.Len(t, markers, 1, "The same place from overlapping anchors is recorded once")
	assert.Equal(t, route.SafetyMarker{
		Latitude:  school.Location.Latitude,
		Longitude: school.Location.Longitude,
		Type:      route.School,
		Name:      "Govt Model Boys HSS",
	}, markers[0])
}

func TestSample_DedupWithinSingleResponse(t *testing.T) {
	path := straightPath(3)
	hospital := Place{Location: geotest.Destination(path[0], 180, 20), Name: "Jubilee Mission Hospital"}

	places := &MockPlacesSearcher{}
	places.On("NearbySearch", mock.Anything, path[0], 100.0, route.Hospital).Return(okResult(hospital, hospital), nil)
	places.On("NearbySearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(zeroResults(), nil)

	markers := NewSampler(places, DefaultConfig()).Sample(context.Background(), path)

	require.Len(t, markers, 1)
	assert.Equal(t, route.Hospital, markers[0].Type)
}

func TestSample_ProximityFilter(t *testing.T) {
	path := straightPath(10)
	near := Place{Location: geotest.Destination(path[4], 0, 60), Name: "St. Thomas College"}
	far := Place{Location: geotest.Destination(path[4], 0, 450), Name: "Distant School"}

	places := &MockPlacesSearcher{}
	places.On("NearbySearch", mock.Anything, path[4], 100.0, route.School).Return(okResult(near, far), nil)
	places.On("NearbySearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(zeroResults(), nil)

	markers := NewSampler(places, DefaultConfig()).Sample(context.Background(), path)

	require.Len(t, markers, 1)
	assert.Equal(t, "St. Thomas College", markers[0].Name)
}

func TestSample_FailedQueriesAreEmptyContributions(t *testing.T) {
	path := straightPath(4)
	hospital := Place{Location: geotest.Destination(path[3], 0, 10), Name: "District Hospital"}

	places := &MockPlacesSearcher{}
	places.On("NearbySearch", mock.Anything, path[0], 100.0, route.School).Return(nil, errors.New("API error 500"))
	places.On("NearbySearch", mock.Anything, path[1], 100.0, route.School).Return(&SearchResult{Status: "OVER_QUERY_LIMIT"}, nil)
	places.On("NearbySearch", mock.Anything, path[3], 100.0, route.Hospital).Return(okResult(hospital), nil)
	places.On("NearbySearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(zeroResults(), nil)

	markers := NewSampler(places, DefaultConfig()).Sample(context.Background(), path)

	require.Len(t, markers, 1)
	assert.Equal(t, "District Hospital", markers[0].Name)
	assert.Len(t, places.Calls, 8, "A failed query is not retried")
}

func TestSample_FallbackMarker(t *testing.T) {
	path := straightPath(6)
	places := &MockPlacesSearcher{}
	places.On("NearbySearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(zeroResults(), nil)

	markers := NewSampler(places, DefaultConfig()).Sample(context.Background(), path)

	require.Len(t, markers, 1)
	assert.Equal(t, route.SafetyMarker{
		Latitude:  path[0].Latitude,
		Longitude: path[0].Longitude,
		Type:      route.School,
		Name:      "Test School",
	}, markers[0])
}

func TestSample_EmptyPath(t *testing.T) {
	places := &MockPlacesSearcher{}

	markers := NewSampler(places, DefaultConfig()).Sample(context.Background(), nil)

	assert.NotNil(t, markers)
	assert.Empty(t, markers)
	places.AssertNotCalled(t, "NearbySearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSample_CancelledContext(t *testing.T) {
	path := straightPath(6)
	places := &MockPlacesSearcher{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	markers := NewSampler(places, DefaultConfig()).Sample(ctx, path)

	require.Len(t, markers, 1, "Fallback still applies")
	assert.Equal(t, FallbackName, markers[0].Name)
	assert.Empty(t, places.Calls)
}

func TestSample_ConcurrentMatchesSerial(t *testing.T) {
	path := straightPath(40)

	newPlaces := func() *MockPlacesSearcher {
		places := &MockPlacesSearcher{}
		for i := 0; i < len(path); i += 4 {
			school := Place{Location: geotest.Destination(path[i], 0, 25), Name: "School"}
			hospital := Place{Location: geotest.Destination(path[i], 180, 25), Name: "Hospital"}
			// Every anchor also sees the shared clinic near the path start
			shared := Place{Location: geotest.Destination(path[0], 0, 5), Name: "Shared"}
			places.On("NearbySearch", mock.Anything, path[i], 100.0, route.School).Return(okResult(school, shared), nil)
			places.On("NearbySearch", mock.Anything, path[i], 100.0, route.Hospital).Return(okResult(shared, hospital), nil)
		}
		return places
	}

	serial := NewSampler(newPlaces(), DefaultConfig()).Sample(context.Background(), path)

	config := DefaultConfig()
	config.MaxConcurrentQueries = 4
	concurrent := NewSampler(newPlaces(), config).Sample(context.Background(), path)

	require.Len(t, serial, 21)
	assert.Equal(t, serial, concurrent)
	assert.Equal(t, "Shared", serial[1].Name)
	assert.Equal(t, route.School, serial[1].Type, "Shared place keeps the type of its first sighting")
}

func TestStride(t *testing.T) {
	assert.Equal(t, 1, Stride(0, 10))
	assert.Equal(t, 1, Stride(9, 10))
	assert.Equal(t, 1, Stride(19, 10))
	assert.Equal(t, 2, Stride(20, 10))
	assert.Equal(t, 10, Stride(100, 10))
	assert.Equal(t, 1, Stride(100, 0))
}

func TestNewSampler_Defaults(t *testing.T) {
	sampler := NewSampler(&MockPlacesSearcher{}, Config{})
	assert.Equal(t, DefaultConfig(), sampler.config)
}
