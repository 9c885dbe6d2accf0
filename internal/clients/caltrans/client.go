// Package caltrans fetches road data from Caltrans: chain-control status and
// RWIS roadside sensor readings from the district CWWP2 JSON feeds, with an
// optional supplement from the statewide QuickMap KML feed.
package caltrans

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"driveweather.app/server/internal/cache"
	"driveweather.app/server/internal/lib/geo"
	"driveweather.app/server/internal/lib/roads"
)

// HTTPDoer abstracts http.Client for testing
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches Caltrans district feeds. URL templates take the district
// number in a {district} placeholder. A district feed that fails or returns
// malformed data is skipped; the other districts still contribute.
type Client struct {
	chainControlURL       string
	stationStatusURL      string
	quickMapKMLURL        string
	chainControlDistricts []int
	stationDistricts      []int
	httpClient            HTTPDoer
	cache                 *cache.Cache
	cacheTTL              time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPDoer sets a custom HTTP doer, used by tests.
func WithHTTPDoer(doer HTTPDoer) Option {
	return func(c *Client) { c.httpClient = doer }
}

// WithURLs overrides the feed URL templates.
func WithURLs(chainControl, stationStatus, quickMapKML string) Option {
	return func(c *Client) {
		c.chainControlURL = chainControl
		c.stationStatusURL = stationStatus
		c.quickMapKMLURL = quickMapKML
	}
}

// WithDistricts overrides the districts polled for each feed.
func WithDistricts(chainControl, stations []int) Option {
	return func(c *Client) {
		c.chainControlDistricts = chainControl
		c.stationDistricts = stations
	}
}

// NewClient creates a new Caltrans feed client
func NewClient(store *cache.Cache, ttl time.Duration, opts ...Option) *Client {
	c := &Client{
		chainControlURL:       "https://cwwp2.dot.ca.gov/data/d{district}/cc/ccStatusD{district}.json",
		stationStatusURL:      "https://cwwp2.dot.ca.gov/data/d{district}/rwis/rwisStatusD{district}.json",
		quickMapKMLURL:        "https://quickmap.dot.ca.gov/data/cc.kml",
		chainControlDistricts: []int{1, 2, 3, 6, 7, 8, 9, 10, 11},
		stationDistricts:      []int{2, 3, 6, 8, 9, 10},
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache:    store,
		cacheTTL: ttl,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// chainControlEntry is the CWWP2 chain-control JSON shape.
type chainControlEntry struct {
	Highway       string   `json:"highway"`
	Direction     string   `json:"direction"`
	ControlStatus string   `json:"controlStatus"`
	BeginPostmile *float64 `json:"beginPostmile"`
	EndPostmile   *float64 `json:"endPostmile"`
	Description   string   `json:"description"`
}

// stationEntry is the CWWP2 RWIS JSON shape. Sensor readings arrive as
// unit-tagged value objects.
type stationEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"location"`
	SurfaceStatus      string      `json:"surfaceStatus"`
	SurfaceTemperature sensorValue `json:"surfaceTemperature"`
	AirTemperature     sensorValue `json:"airTemperature"`
	Visibility         sensorValue `json:"visibility"`
	WindSpeed          sensorValue `json:"windSpeed"`
	PrecipitationType  string      `json:"precipitationType"`
}

type sensorValue struct {
	Value *float64 `json:"value"`
}

// GetChainControls fetches active chain controls across all configured
// districts. Entries without a control status are dropped.
func (c *Client) GetChainControls(ctx context.Context) ([]roads.ChainControl, error) {
	var cached []roads.ChainControl
	if found, err := c.cache.Get("caltrans_cc", &cached); err == nil && found {
		return cached, nil
	}

	var controls []roads.ChainControl
	for _, district := range c.chainControlDistricts {
		url := expandDistrict(c.chainControlURL, district)

		var entries []chainControlEntry
		if err := c.getFeed(ctx, url, &entries); err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.ControlStatus == "" {
				continue
			}
			controls = append(controls, roads.ChainControl{
				Highway:       entry.Highway,
				Direction:     entry.Direction,
				Level:         entry.ControlStatus,
				BeginPostmile: entry.BeginPostmile,
				EndPostmile:   entry.EndPostmile,
				Description:   entry.Description,
			})
		}
	}

	if err := c.cache.Set("caltrans_cc", controls, c.cacheTTL, "caltrans"); err != nil {
		return nil, err
	}
	return controls, nil
}

// GetStations fetches RWIS sensor stations across all configured districts.
func (c *Client) GetStations(ctx context.Context) ([]roads.Station, error) {
	var cached []roads.Station
	if found, err := c.cache.Get("caltrans_rwis", &cached); err == nil && found {
		return cached, nil
	}

	var stations []roads.Station
	for _, district := range c.stationDistricts {
		url := expandDistrict(c.stationStatusURL, district)

		var entries []stationEntry
		if err := c.getFeed(ctx, url, &entries); err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.Location.Latitude == nil || entry.Location.Longitude == nil {
				continue
			}
			stations = append(stations, roads.Station{
				ID:   entry.ID,
				Name: entry.Name,
				Location: geo.Point{
					Latitude:  *entry.Location.Latitude,
					Longitude: *entry.Location.Longitude,
				},
				PavementStatus:    entry.SurfaceStatus,
				PavementTempF:     entry.SurfaceTemperature.Value,
				AirTempF:          entry.AirTemperature.Value,
				VisibilityMiles:   entry.Visibility.Value,
				WindSpeedMph:      entry.WindSpeed.Value,
				PrecipitationType: entry.PrecipitationType,
			})
		}
	}

	if err := c.cache.Set("caltrans_rwis", stations, c.cacheTTL, "caltrans"); err != nil {
		return nil, err
	}
	return stations, nil
}

// getFeed fetches one district feed. The payload is either a bare array or
// wrapped in a {"data": [...]} envelope.
func (c *Client) getFeed(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(body, out); err == nil {
		return nil
	}

	var wrapped struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return fmt.Errorf("failed to decode feed: %w", err)
	}
	if err := json.Unmarshal(wrapped.Data, out); err != nil {
		return fmt.Errorf("failed to decode feed data: %w", err)
	}
	return nil
}

func expandDistrict(template string, district int) string {
	return strings.ReplaceAll(template, "{district}", fmt.Sprintf("%d", district))
}
