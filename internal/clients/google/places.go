package google

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/saferoad/routesafety/internal/lib/geo"
	"github.com/saferoad/routesafety/internal/lib/landmarks"
	"github.com/saferoad/routesafety/internal/lib/route"
)

const nearbySearchPath = "/maps/api/place/nearbysearch/json"

// NearbySearchResponse represents the Places Nearby Search response structure
type NearbySearchResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Results      []PlaceResult `json:"results"`
}

// PlaceResult is one place in a nearby search response
type PlaceResult struct {
	Name     string `json:"name"`
	PlaceID  string `json:"place_id"`
	Vicinity string `json:"vicinity"`
	Geometry struct {
		Location LatLng `json:"location"`
	} `json:"geometry"`
}

// NearbySearch finds places of landmarkType within radiusMeters of location.
// Non-OK statuses such as ZERO_RESULTS are reported in the result status.
func (c *Client) NearbySearch(ctx context.Context, location geo.Point, radiusMeters float64, landmarkType route.LandmarkType) (*landmarks.SearchResult, error) {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%s,%s",
		strconv.FormatFloat(location.Latitude, 'f', -1, 64),
		strconv.FormatFloat(location.Longitude, 'f', -1, 64)))
	params.Set("radius", strconv.FormatFloat(radiusMeters, 'f', -1, 64))
	params.Set("type", string(landmarkType))

	var response NearbySearchResponse
	if err := c.getJSON(ctx, nearbySearchPath, params, &response); err != nil {
		return nil, err
	}

	result := &landmarks.SearchResult{
		Status: response.Status,
		Places: make([]landmarks.Place, 0, len(response.Results)),
	}
	for _, r := range response.Results {
		result.Places = append(result.Places, landmarks.Place{
			Location: geo.Point{Latitude: r.Geometry.Location.Lat, Longitude: r.Geometry.Location.Lng},
			Name:     r.Name,
		})
	}
	return result, nil
}
