package google

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saferoad/routesafety/internal/lib/geo"
	"github.com/saferoad/routesafety/internal/lib/landmarks"
	"github.com/saferoad/routesafety/internal/lib/route"
)

// MockHTTPDoer is a mock implementation of HTTPDoer
type MockHTTPDoer struct {
	mock.Mock
}

func (m *MockHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	resp, _ := args.Get(0).(*http.Response)
	return resp, args.Error(1)
}

// Helper function to load test fixture data
func loadTestFixture(t *testing.T, filename string) string {
	data, err := os.ReadFile("../../../tests/testdata/google/" + filename)
	require.NoError(t, err, "Failed to load test fixture %s", filename)
	return string(data)
}

// Helper function to create mock HTTP response
func createMockResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestRoute_Success(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(
		createMockResponse(200, loadTestFixture(t, "directions_kochi.json")), nil)

	client := NewClientWithHTTPDoer("test-api-key", "https://maps.example.test", mockHTTP)

	result, err := client.Route(context.Background(), "MG Road, Kochi", "Kaloor, Kochi")
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotNil(t, result.Route)

	assert.Equal(t, route.DirectionsStatusOK, result.Status)
	r := result.Route
	assert.Equal(t, "Banerji Rd", r.Summary)
	assert.Equal(t, "MG Road, Kochi, Kerala, India", r.StartAddress)
	assert.Equal(t, "Kaloor, Kochi, Kerala, India", r.EndAddress)
	assert.Equal(t, int32(4612), r.DistanceMeters)
	assert.Equal(t, int32(845), r.DurationSeconds)

	require.Len(t, r.OverviewPath, 9)
	assert.InDelta(t, 9.97, r.OverviewPath[0].Latitude, 1e-9)
	assert.InDelta(t, 76.28, r.OverviewPath[0].Longitude, 1e-9)
	assert.InDelta(t, 10.0, r.OverviewPath[8].Latitude, 1e-9)
	assert.InDelta(t, 76.3, r.OverviewPath[8].Longitude, 1e-9)

	require.Len(t, r.Steps, 3)
	assert.Equal(t, "Head north on MG Road", r.Steps[0].Instructions)
	assert.Equal(t, "Turn right onto Banerji Rd Pass by Federal Bank (on the left)", r.Steps[1].Instructions)
	assert.Equal(t, "Slight left to stay on Banerji Rd & continue", r.Steps[2].Instructions)
	assert.Len(t, r.Steps[0].Path, 3)
	assert.Len(t, r.Steps[2].Path, 5)
	assert.Equal(t, geo.Point{Latitude: 9.98, Longitude: 76.28}, r.Steps[1].StartLocation)

	req := mockHTTP.Calls[0].Arguments.Get(0).(*http.Request)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/maps/api/directions/json", req.URL.Path)
	query := req.URL.Query()
	assert.Equal(t, "MG Road, Kochi", query.Get("origin"))
	assert.Equal(t, "Kaloor, Kochi", query.Get("destination"))
	assert.Equal(t, "driving", query.Get("mode"))
	assert.Equal(t, "false", query.Get("alternatives"))
	assert.Equal(t, "test-api-key", query.Get("key"))

	mockHTTP.AssertExpectations(t)
}

func TestRoute_NonOKStatus(t *testing.T) {
	tests := []struct {
		fixture string
		status  string
		message string
	}{
		{fixture: "directions_not_found.json", status: "NOT_FOUND"},
		{fixture: "directions_denied.json", status: "REQUEST_DENIED", message: "The provided API key is invalid."},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			mockHTTP := &MockHTTPDoer{}
			mockHTTP.On("Do", mock.Anything).Return(createMockResponse(200, loadTestFixture(t, tt.fixture)), nil)

			client := NewClientWithHTTPDoer("test-api-key", "", mockHTTP)
			result, err := client.Route(context.Background(), "nowhere", "somewhere")

			require.NoError(t, err, "Directions status is not a transport error")
			require.NotNil(t, result)
			assert.Equal(t, tt.status, result.Status)
			assert.Equal(t, tt.message, result.ErrorMessage)
			assert.Nil(t, result.Route)
		})
	}
}

func TestRoute_OKWithoutRoutes(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.Anything).Return(createMockResponse(200, `{"status":"OK","routes":[]}`), nil)

	client := NewClientWithHTTPDoer("test-api-key", "", mockHTTP)
	result, err := client.Route(context.Background(), "a", "b")

	assert.Nil(t, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no routes found in response")
}

func TestRoute_InvalidStepPolylineKeepsEmptyPath(t *testing.T) {
	body := `{"status":"OK","routes":[{"summary":"x","overview_polyline":{"points":"_p~iF~ps|U_ulLnnqC"},
		"legs":[{"steps":[{"html_instructions":"Turn left","polyline":{"points":""},"start_location":{"lat":38.5,"lng":-120.2}}]}]}]}`
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.Anything).Return(createMockResponse(200, body), nil)

	result, err := NewClientWithHTTPDoer("k", "", mockHTTP).Route(context.Background(), "a", "b")
	require.NoError(t, err)
	require.Len(t, result.Route.Steps, 1)
	assert.Empty(t, result.Route.Steps[0].Path)
	assert.Len(t, result.Route.OverviewPath, 2)
}

func TestRoute_InvalidOverviewPolyline(t *testing.T) {
	body := `{"status":"OK","routes":[{"overview_polyline":{"points":""},"legs":[{"steps":[]}]}]}`
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.Anything).Return(createMockResponse(200, body), nil)

	_, err := NewClientWithHTTPDoer("k", "", mockHTTP).Route(context.Background(), "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overview polyline")
}

func TestRoute_HTTPErrors(t *testing.T) {
	t.Run("rate limit", func(t *testing.T) {
		mockHTTP := &MockHTTPDoer{}
		mockHTTP.On("Do", mock.Anything).Return(createMockResponse(429, ""), nil)

		_, err := NewClientWithHTTPDoer("k", "", mockHTTP).Route(context.Background(), "a", "b")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limit exceeded")
	})

	t.Run("server error", func(t *testing.T) {
		mockHTTP := &MockHTTPDoer{}
		mockHTTP.On("Do", mock.Anything).Return(createMockResponse(503, "backend unavailable"), nil)

		_, err := NewClientWithHTTPDoer("k", "", mockHTTP).Route(context.Background(), "a", "b")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "API error 503: backend unavailable")
	})

	t.Run("transport failure", func(t *testing.T) {
		mockHTTP := &MockHTTPDoer{}
		mockHTTP.On("Do", mock.Anything).Return(nil, errors.New("connection refused"))

		_, err := NewClientWithHTTPDoer("k", "", mockHTTP).Route(context.Background(), "a", "b")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("malformed body", func(t *testing.T) {
		mockHTTP := &MockHTTPDoer{}
		mockHTTP.On("Do", mock.Anything).Return(createMockResponse(200, "{not json"), nil)

		_, err := NewClientWithHTTPDoer("k", "", mockHTTP).Route(context.Background(), "a", "b")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode response")
	})
}

func TestNearbySearch_Success(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(
		createMockResponse(200, loadTestFixture(t, "places_schools.json")), nil)

	client := NewClientWithHTTPDoer("test-api-key", "https://maps.example.test", mockHTTP)
	location := geo.Point{Latitude: 9.9805, Longitude: 76.2855}

	result, err := client.NearbySearch(context.Background(), location, 100, route.School)
	require.NoError(t, err)

	assert.Equal(t, landmarks.StatusOK, result.Status)
	require.Len(t, result.Places, 2)
	assert.Equal(t, landmarks.Place{
		Location: geo.Point{Latitude: 9.9801, Longitude: 76.2852},
		Name:     "St. Teresa's College",
	}, result.Places[0])
	assert.Equal(t, "Govt. Girls HSS Ernakulam", result.Places[1].Name)

	req := mockHTTP.Calls[0].Arguments.Get(0).(*http.Request)
	assert.Equal(t, "/maps/api/place/nearbysearch/json", req.URL.Path)
	query := req.URL.Query()
	assert.Equal(t, "9.9805,76.2855", query.Get("location"))
	assert.Equal(t, "100", query.Get("radius"))
	assert.Equal(t, "school", query.Get("type"))
	assert.Equal(t, "test-api-key", query.Get("key"))
}

func TestNearbySearch_ZeroResults(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.Anything).Return(
		createMockResponse(200, loadTestFixture(t, "places_zero_results.json")), nil)

	result, err := NewClientWithHTTPDoer("k", "", mockHTTP).NearbySearch(
		context.Background(), geo.Point{Latitude: 10, Longitude: 76}, 100, route.Hospital)

	require.NoError(t, err)
	assert.Equal(t, landmarks.StatusZeroResults, result.Status)
	assert.Empty(t, result.Places)
}

func TestNearbySearch_ErrorStatus(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.Anything).Return(createMockResponse(500, "internal"), nil)

	result, err := NewClientWithHTTPDoer("k", "", mockHTTP).NearbySearch(
		context.Background(), geo.Point{Latitude: 10, Longitude: 76}, 100, route.Hospital)

	assert.Nil(t, result)
	require.Error(t, err)
}

func TestClientSatisfiesPlacesSearcher(t *testing.T) {
	var _ landmarks.PlacesSearcher = NewClient("k")
}

func TestStripHTML(t *testing.T) {
	tests := map[string]string{
		"Head <b>north</b> on <b>MG Road</b>":         "Head north on MG Road",
		"Keep <b>left</b><wbr/>at the fork":            "Keep left at the fork",
		"Turn <b>right</b><div>Destination ahead</div>": "Turn right Destination ahead",
		"Merge onto <b>NH 66</b> &amp; continue":       "Merge onto NH 66 & continue",
		"":                                             "",
	}
	for in, expected := range tests {
		assert.Equal(t, expected, StripHTML(in), in)
	}
}
