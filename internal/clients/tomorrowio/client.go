package tomorrowio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"driveweather.app/server/internal/cache"
	"driveweather.app/server/internal/lib/conditions"
	"driveweather.app/server/internal/lib/units"
)

// HTTPDoer abstracts http.Client for testing
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// precipTypes maps Tomorrow.io precipitation type codes.
var precipTypes = map[int]string{
	0: "none",
	1: "rain",
	2: "snow",
	3: "freezing_rain",
	4: "sleet",
}

// weatherCodes maps Tomorrow.io weather codes to display text.
var weatherCodes = map[int]string{
	1000: "Clear", 1100: "Mostly Clear", 1101: "Partly Cloudy",
	1102: "Mostly Cloudy", 1001: "Cloudy", 2000: "Fog", 2100: "Light Fog",
	4000: "Drizzle", 4001: "Rain", 4200: "Light Rain", 4201: "Heavy Rain",
	5000: "Snow", 5001: "Flurries", 5100: "Light Snow", 5101: "Heavy Snow",
	6000: "Freezing Drizzle", 6001: "Freezing Rain", 6200: "Light Freezing Rain",
	6201: "Heavy Freezing Rain", 7000: "Ice Pellets", 7101: "Heavy Ice Pellets",
	7102: "Light Ice Pellets", 8000: "Thunderstorm",
}

// Client provides access to the Tomorrow.io timelines API. The free tier is
// tightly rate limited, so callers sample a handful of route points and the
// limiter bounds concurrent calls.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	cache      *cache.Cache
	limiter    *cache.Limiter
	cacheTTL   time.Duration
}

// Interval is one hourly timeline interval.
type Interval struct {
	StartTime time.Time      `json:"startTime"`
	Values    IntervalValues `json:"values"`
}

// IntervalValues holds the requested fields for one interval.
type IntervalValues struct {
	Temperature              float64  `json:"temperature"`
	PrecipitationProbability float64  `json:"precipitationProbability"`
	PrecipitationType        int      `json:"precipitationType"`
	WindSpeed                float64  `json:"windSpeed"`
	WindGust                 float64  `json:"windGust"`
	Visibility               *float64 `json:"visibility"`
	WeatherCode              int      `json:"weatherCode"`
	RoadRisk                 *float64 `json:"roadRisk"`
	RoadRiskLabel            string   `json:"roadRiskLabel"`
}

// NewClient creates a new Tomorrow.io API client
func NewClient(apiKey string, store *cache.Cache, limiter *cache.Limiter, ttl time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: "https://api.tomorrow.io",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache:    store,
		limiter:  limiter,
		cacheTTL: ttl,
	}
}

// NewClientWithHTTPDoer creates a client with a custom HTTP doer for testing
func NewClientWithHTTPDoer(apiKey, baseURL string, doer HTTPDoer) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: doer,
		cache:      cache.New(),
		limiter:    cache.NewLimiter(3),
		cacheTTL:   time.Hour,
	}
}

// GetTimeline retrieves the hourly forecast intervals for a coordinate.
func (c *Client) GetTimeline(ctx context.Context, lat, lon float64) ([]Interval, error) {
	key := cache.CoordKey("tomorrow", lat, lon)
	var cached []Interval
	if found, err := c.cache.Get(key, &cached); err == nil && found {
		return cached, nil
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.limiter.Release()

	params := url.Values{}
	params.Set("location", fmt.Sprintf("%.4f,%.4f", lat, lon))
	params.Set("fields", "temperature,precipitationProbability,precipitationType,"+
		"windSpeed,windGust,visibility,weatherCode")
	params.Set("timesteps", "1h")
	params.Set("units", "metric")
	params.Set("apikey", c.apiKey)

	requestURL := fmt.Sprintf("%s/v4/timelines?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 429 {
		return nil, fmt.Errorf("rate limit exceeded")
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Data struct {
			Timelines []struct {
				Intervals []Interval `json:"intervals"`
			} `json:"timelines"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var intervals []Interval
	if len(response.Data.Timelines) > 0 {
		intervals = response.Data.Timelines[0].Intervals
	}

	if err := c.cache.Set(key, intervals, c.cacheTTL, "tomorrow"); err != nil {
		return nil, err
	}
	return intervals, nil
}

// FindSampleForTime picks the interval closest to the target time and
// normalizes it into a merge sample. Nil when there are no intervals.
func FindSampleForTime(intervals []Interval, target time.Time) *conditions.Sample {
	if len(intervals) == 0 {
		return nil
	}

	best := intervals[0]
	bestDiff := math.Abs(best.StartTime.Sub(target).Seconds())
	for _, interval := range intervals[1:] {
		if diff := math.Abs(interval.StartTime.Sub(target).Seconds()); diff < bestDiff {
			bestDiff = diff
			best = interval
		}
	}
	return parseInterval(best)
}

func parseInterval(interval Interval) *conditions.Sample {
	v := interval.Values

	precipType, ok := precipTypes[v.PrecipitationType]
	if !ok {
		precipType = "unknown"
	}
	conditionText, ok := weatherCodes[v.WeatherCode]
	if !ok {
		conditionText = "Unknown"
	}

	tempF := units.CToF(v.Temperature)
	visibilityKm := 16.0
	if v.Visibility != nil {
		visibilityKm = *v.Visibility
	}
	visibilityMiles := units.KmToMiles(visibilityKm)

	return &conditions.Sample{
		TemperatureF:      &tempF,
		PrecipProbability: v.PrecipitationProbability,
		PrecipType:        precipType,
		WindSpeedMph:      units.KmhToMph(v.WindSpeed),
		WindGustsMph:      units.KmhToMph(v.WindGust),
		VisibilityMiles:   &visibilityMiles,
		ConditionText:     conditionText,
		RoadRiskScore:     v.RoadRisk,
		RoadRiskLabel:     v.RoadRiskLabel,
	}
}
