package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"driveweather.app/server/internal/cache"
	"driveweather.app/server/internal/lib/conditions"
	"driveweather.app/server/internal/lib/units"
)

// HTTPDoer abstracts http.Client for testing
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

const hourlyVars = "temperature_2m,precipitation,snowfall,snow_depth," +
	"visibility,wind_speed_10m,wind_gusts_10m,wind_direction_10m," +
	"freezing_level_height,weather_code"

const dailyVars = "sunrise,sunset"

// Client provides access to the Open-Meteo forecast API. A single request
// batches every waypoint's coordinates, so one call covers a whole route.
type Client struct {
	baseURL    string
	timezone   string
	httpClient HTTPDoer
	cache      *cache.Cache
	cacheTTL   time.Duration
}

// Forecast is the raw per-coordinate Open-Meteo response.
type Forecast struct {
	Hourly HourlyData `json:"hourly"`
	Daily  DailyData  `json:"daily"`
}

// HourlyData holds the parallel hourly arrays. Times are local to the
// requested timezone, without an offset.
type HourlyData struct {
	Time                []string  `json:"time"`
	Temperature2m       []float64 `json:"temperature_2m"`
	Precipitation       []float64 `json:"precipitation"`
	Snowfall            []float64 `json:"snowfall"`
	SnowDepth           []float64 `json:"snow_depth"`
	Visibility          []float64 `json:"visibility"`
	WindSpeed10m        []float64 `json:"wind_speed_10m"`
	WindGusts10m        []float64 `json:"wind_gusts_10m"`
	WindDirection10m    []float64 `json:"wind_direction_10m"`
	FreezingLevelHeight []float64 `json:"freezing_level_height"`
	WeatherCode         []int     `json:"weather_code"`
}

// DailyData holds per-day sunrise/sunset times.
type DailyData struct {
	Time    []string `json:"time"`
	Sunrise []string `json:"sunrise"`
	Sunset  []string `json:"sunset"`
}

// SunTimes is a resolved sunrise/sunset pair.
type SunTimes struct {
	Sunrise time.Time
	Sunset  time.Time
}

// NewClient creates a new Open-Meteo client
func NewClient(timezone string, store *cache.Cache, ttl time.Duration) *Client {
	return &Client{
		baseURL:  "https://api.open-meteo.com",
		timezone: timezone,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache:    store,
		cacheTTL: ttl,
	}
}

// NewClientWithHTTPDoer creates a client with a custom HTTP doer for testing
func NewClientWithHTTPDoer(baseURL string, doer HTTPDoer) *Client {
	return &Client{
		baseURL:    baseURL,
		timezone:   "America/Los_Angeles",
		httpClient: doer,
		cache:      cache.New(),
		cacheTTL:   time.Hour,
	}
}

// GetForecasts fetches a batched forecast for multiple coordinates in one
// request. The result has one entry per input coordinate, in order.
func (c *Client) GetForecasts(ctx context.Context, lats, lons []float64) ([]*Forecast, error) {
	if len(lats) != len(lons) {
		return nil, fmt.Errorf("latitude/longitude count mismatch: %d vs %d", len(lats), len(lons))
	}
	if len(lats) == 0 {
		return nil, nil
	}

	latParts := make([]string, len(lats))
	lonParts := make([]string, len(lons))
	for i := range lats {
		latParts[i] = fmt.Sprintf("%.4f", lats[i])
		lonParts[i] = fmt.Sprintf("%.4f", lons[i])
	}
	latStr := strings.Join(latParts, ",")
	lonStr := strings.Join(lonParts, ",")

	key := "openmeteo:" + latStr + ";" + lonStr
	var cached []*Forecast
	if found, err := c.cache.Get(key, &cached); err == nil && found {
		return cached, nil
	}

	params := url.Values{}
	params.Set("latitude", latStr)
	params.Set("longitude", lonStr)
	params.Set("hourly", hourlyVars)
	params.Set("daily", dailyVars)
	params.Set("forecast_days", "7")
	params.Set("temperature_unit", "celsius")
	params.Set("wind_speed_unit", "kmh")
	params.Set("timezone", c.timezone)

	requestURL := fmt.Sprintf("%s/v1/forecast?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// Multi-coordinate requests return an array; single-coordinate requests
	// return a bare object.
	var forecasts []*Forecast
	if err := json.Unmarshal(body, &forecasts); err != nil {
		var single Forecast
		if err := json.Unmarshal(body, &single); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		forecasts = []*Forecast{&single}
	}

	if err := c.cache.Set(key, forecasts, c.cacheTTL, "openmeteo"); err != nil {
		return nil, err
	}
	return forecasts, nil
}

// FindSampleForTime picks the hourly slot closest to the target time and
// normalizes it into a merge sample. Nil when the forecast has no hours.
func (c *Client) FindSampleForTime(f *Forecast, target time.Time) *conditions.Sample {
	if f == nil || len(f.Hourly.Time) == 0 {
		return nil
	}

	bestIndex := 0
	bestDiff := math.Inf(1)
	for i, raw := range f.Hourly.Time {
		t, err := c.parseLocalTime(raw, target.Location())
		if err != nil {
			continue
		}
		if diff := math.Abs(t.Sub(target).Seconds()); diff < bestDiff {
			bestDiff = diff
			bestIndex = i
		}
	}

	return c.sampleAt(f, bestIndex)
}

func (c *Client) sampleAt(f *Forecast, i int) *conditions.Sample {
	h := f.Hourly
	if i >= len(h.Temperature2m) {
		return nil
	}

	tempF := units.CToF(h.Temperature2m[i])
	visibility := units.MToMiles(at(h.Visibility, i))
	windDir := at(h.WindDirection10m, i)
	freezing := units.MToFt(at(h.FreezingLevelHeight, i))

	return &conditions.Sample{
		TemperatureF:     &tempF,
		PrecipMmHr:       at(h.Precipitation, i),
		SnowDepthIn:      math.Round(at(h.SnowDepth, i)/2.54*10) / 10,
		VisibilityMiles:  &visibility,
		WindSpeedMph:     units.KmhToMph(at(h.WindSpeed10m, i)),
		WindGustsMph:     units.KmhToMph(at(h.WindGusts10m, i)),
		WindDirectionDeg: &windDir,
		FreezingLevelFt:  &freezing,
	}
}

// FindSunTimes extracts sunrise/sunset for the target time's date, falling
// back to the first day when the date is outside the forecast window.
func (c *Client) FindSunTimes(f *Forecast, target time.Time) *SunTimes {
	if f == nil {
		return nil
	}
	d := f.Daily
	if len(d.Time) == 0 || len(d.Sunrise) == 0 || len(d.Sunset) == 0 {
		return nil
	}

	index := 0
	targetDate := target.Format("2006-01-02")
	for i, date := range d.Time {
		if date == targetDate {
			index = i
			break
		}
	}
	if index >= len(d.Sunrise) || index >= len(d.Sunset) {
		return nil
	}

	sunrise, err := c.parseLocalTime(d.Sunrise[index], target.Location())
	if err != nil {
		return nil
	}
	sunset, err := c.parseLocalTime(d.Sunset[index], target.Location())
	if err != nil {
		return nil
	}
	return &SunTimes{Sunrise: sunrise, Sunset: sunset}
}

// parseLocalTime parses Open-Meteo's offset-less local timestamps in the
// given location.
func (c *Client) parseLocalTime(raw string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04", raw, loc)
}

func at(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}
