package google

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/saferoad/routesafety/internal/lib/geo"
	"github.com/saferoad/routesafety/internal/lib/route"
	"github.com/saferoad/routesafety/internal/logging"
)

const directionsPath = "/maps/api/directions/json"

// DirectionsResponse represents the Directions API response structure
type DirectionsResponse struct {
	Status       string            `json:"status"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Routes       []DirectionsRoute `json:"routes"`
}

// DirectionsRoute represents a single route in the response
type DirectionsRoute struct {
	Summary          string          `json:"summary"`
	OverviewPolyline EncodedPolyline `json:"overview_polyline"`
	Legs             []DirectionsLeg `json:"legs"`
}

// DirectionsLeg represents the journey between two waypoints
type DirectionsLeg struct {
	StartAddress  string           `json:"start_address"`
	EndAddress    string           `json:"end_address"`
	StartLocation LatLng           `json:"start_location"`
	EndLocation   LatLng           `json:"end_location"`
	Distance      TextValue        `json:"distance"`
	Duration      TextValue        `json:"duration"`
	Steps         []DirectionsStep `json:"steps"`
}

// DirectionsStep represents one instruction of a leg
type DirectionsStep struct {
	HTMLInstructions string          `json:"html_instructions"`
	Maneuver         string          `json:"maneuver,omitempty"`
	Polyline         EncodedPolyline `json:"polyline"`
	StartLocation    LatLng          `json:"start_location"`
	EndLocation      LatLng          `json:"end_location"`
}

// Route requests a driving route without alternatives between two free-form locations.
// A non-OK directions status is returned in the result, not as an error.
func (c *Client) Route(ctx context.Context, origin, destination string) (*route.DirectionsResult, error) {
	params := url.Values{}
	params.Set("origin", origin)
	params.Set("destination", destination)
	params.Set("mode", "driving")
	params.Set("alternatives", "false")

	var response DirectionsResponse
	if err := c.getJSON(ctx, directionsPath, params, &response); err != nil {
		return nil, err
	}

	if response.Status != route.DirectionsStatusOK {
		return &route.DirectionsResult{
			Status:       response.Status,
			ErrorMessage: response.ErrorMessage,
		}, nil
	}

	if len(response.Routes) == 0 || len(response.Routes[0].Legs) == 0 {
		return nil, errors.New("no routes found in response")
	}

	r, err := processDirectionsRoute(ctx, response.Routes[0])
	if err != nil {
		return nil, err
	}

	return &route.DirectionsResult{Status: response.Status, Route: r}, nil
}

// processDirectionsRoute converts the first leg of a Directions route into a decoded route
func processDirectionsRoute(ctx context.Context, dr DirectionsRoute) (*route.Route, error) {
	overview, err := geo.DecodePolyline(dr.OverviewPolyline.Points)
	if err != nil {
		return nil, fmt.Errorf("failed to decode overview polyline: %w", err)
	}

	leg := dr.Legs[0]
	steps := make([]route.Step, 0, len(leg.Steps))
	for i, s := range leg.Steps {
		path, err := geo.DecodePolyline(s.Polyline.Points)
		if err != nil {
			// Undecodable steps keep an empty path and are skipped by detection
			logging.FromContext(ctx).Debug("Step polyline not decoded", "step", i, "error", err)
			path = nil
		}

		steps = append(steps, route.Step{
			Instructions:  StripHTML(s.HTMLInstructions),
			Path:          path,
			StartLocation: geo.Point{Latitude: s.StartLocation.Lat, Longitude: s.StartLocation.Lng},
		})
	}

	return &route.Route{
		Steps:           steps,
		OverviewPath:    overview,
		Summary:         dr.Summary,
		StartAddress:    leg.StartAddress,
		EndAddress:      leg.EndAddress,
		DistanceMeters:  leg.Distance.Value,
		DurationSeconds: leg.Duration.Value,
	}, nil
}

// StripHTML reduces Google's HTML instructions to plain text. Block
// elements become word breaks so "Rd<div>Pass by" reads "Rd Pass by".
func StripHTML(s string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			// io.EOF or a malformed tail; either way keep what was read
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(tokenizer.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "div", "br", "p", "wbr":
				b.WriteByte(' ')
			}
		}
	}
}
