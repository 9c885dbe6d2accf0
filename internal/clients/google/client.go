// Package google wraps the two Google APIs the planner depends on: Routes
// API v2 for the driving route and Places searchNearby for rest-stop
// placement.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"driveweather.app/server/internal/lib/geo"
	"driveweather.app/server/internal/lib/routing"
)

// HTTPDoer abstracts http.Client for testing
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client provides access to Google Routes API v2 and Places API
type Client struct {
	apiKey        string
	routesBaseURL string
	placesBaseURL string
	httpClient    HTTPDoer
}

// Place is a nearby point of interest from Places searchNearby.
type Place struct {
	Name     string
	Location geo.Point
}

// NewClient creates a new Google API client
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:        apiKey,
		routesBaseURL: "https://routes.googleapis.com",
		placesBaseURL: "https://places.googleapis.com",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewClientWithHTTPDoer creates a client with a custom HTTP doer for testing
func NewClientWithHTTPDoer(apiKey, routesBaseURL, placesBaseURL string, doer HTTPDoer) *Client {
	return &Client{
		apiKey:        apiKey,
		routesBaseURL: routesBaseURL,
		placesBaseURL: placesBaseURL,
		httpClient:    doer,
	}
}

// ComputeRoute resolves a driving route between two addresses. Route
// failures are fatal for the request: no partial route is accepted.
func (c *Client) ComputeRoute(ctx context.Context, origin, destination string, departure time.Time) (*routing.Route, error) {
	requestBody := map[string]interface{}{
		"origin":            map[string]interface{}{"address": origin},
		"destination":       map[string]interface{}{"address": destination},
		"travelMode":        "DRIVE",
		"departureTime":     departure.Format(time.RFC3339),
		"routingPreference": "TRAFFIC_AWARE",
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.routesBaseURL+"/directions/v2:computeRoutes", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Field mask is REQUIRED or the API returns errors
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", strings.Join([]string{
		"routes.polyline.encodedPolyline",
		"routes.legs.steps.navigationInstruction",
		"routes.legs.steps.localizedValues",
		"routes.legs.steps.startLocation",
		"routes.legs.steps.endLocation",
		"routes.legs.duration",
		"routes.legs.distanceMeters",
		"routes.description",
	}, ","))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var response routesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if response.Error != nil {
		return nil, fmt.Errorf("routing API error: %s", response.Error.Message)
	}
	if len(response.Routes) == 0 {
		return nil, fmt.Errorf("no route found between %q and %q", origin, destination)
	}

	return response.Routes[0].toRoute(), nil
}

// FindNearbyRestStop looks up the closest rest stop or gas station within
// five miles of a coordinate. Returns nil when nothing is found.
func (c *Client) FindNearbyRestStop(ctx context.Context, location geo.Point) (*Place, error) {
	requestBody := map[string]interface{}{
		"includedTypes":  []string{"rest_stop", "gas_station"},
		"maxResultCount": 1,
		"locationRestriction": map[string]interface{}{
			"circle": map[string]interface{}{
				"center": map[string]interface{}{
					"latitude":  location.Latitude,
					"longitude": location.Longitude,
				},
				"radius": 8046.72,
			},
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.placesBaseURL+"/v1/places:searchNearby", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", "places.displayName,places.location")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Places []struct {
			DisplayName struct {
				Text string `json:"text"`
			} `json:"displayName"`
			Location struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"location"`
		} `json:"places"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(response.Places) == 0 {
		return nil, nil
	}

	place := response.Places[0]
	name := place.DisplayName.Text
	if name == "" {
		name = "Rest Stop"
	}
	return &Place{
		Name: name,
		Location: geo.Point{
			Latitude:  place.Location.Latitude,
			Longitude: place.Location.Longitude,
		},
	}, nil
}

type routesResponse struct {
	Routes []routePayload `json:"routes"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type routePayload struct {
	Polyline struct {
		EncodedPolyline string `json:"encodedPolyline"`
	} `json:"polyline"`
	Legs []struct {
		Duration       string        `json:"duration"`
		DistanceMeters float64       `json:"distanceMeters"`
		Steps          []stepPayload `json:"steps"`
	} `json:"legs"`
	Description string `json:"description"`
}

type stepPayload struct {
	NavigationInstruction struct {
		Instructions string `json:"instructions"`
		Maneuver     string `json:"maneuver"`
	} `json:"navigationInstruction"`
	StartLocation latLngPayload `json:"startLocation"`
	EndLocation   latLngPayload `json:"endLocation"`
}

type latLngPayload struct {
	LatLng struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"latLng"`
}

func (p latLngPayload) toPoint() geo.Point {
	return geo.Point{Latitude: p.LatLng.Latitude, Longitude: p.LatLng.Longitude}
}

func (r routePayload) toRoute() *routing.Route {
	route := &routing.Route{
		Polyline: r.Polyline.EncodedPolyline,
		Summary:  r.Description,
	}
	for _, leg := range r.Legs {
		route.DistanceMeters += leg.DistanceMeters
		// Durations arrive as "1234s" strings.
		if seconds, err := strconv.Atoi(strings.TrimSuffix(leg.Duration, "s")); err == nil {
			route.DurationSeconds += seconds
		}
		for _, step := range leg.Steps {
			route.Steps = append(route.Steps, routing.Step{
				Instruction:   step.NavigationInstruction.Instructions,
				Maneuver:      step.NavigationInstruction.Maneuver,
				StartLocation: step.StartLocation.toPoint(),
				EndLocation:   step.EndLocation.toPoint(),
			})
		}
	}
	return route
}
