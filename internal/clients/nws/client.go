package nws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"driveweather.app/server/internal/cache"
	"driveweather.app/server/internal/lib/alerts"
	"driveweather.app/server/internal/lib/conditions"
)

// HTTPDoer abstracts http.Client for testing
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client provides access to the National Weather Service API. Forecasts are
// fetched in two steps: /points resolves the grid, then the hourly forecast
// URL it returns is fetched.
type Client struct {
	userAgent  string
	baseURL    string
	httpClient HTTPDoer
	cache      *cache.Cache
	limiter    *cache.Limiter
	cacheTTL   time.Duration
}

// ForecastPeriod is one hourly period from the NWS gridpoint forecast.
type ForecastPeriod struct {
	StartTime                  time.Time     `json:"startTime"`
	EndTime                    time.Time     `json:"endTime"`
	Temperature                *float64      `json:"temperature"`
	WindSpeed                  string        `json:"windSpeed"`
	WindDirection              string        `json:"windDirection"`
	ShortForecast              string        `json:"shortForecast"`
	ProbabilityOfPrecipitation PercentValues `json:"probabilityOfPrecipitation"`
}

// PercentValues wraps NWS's unit-tagged percentage values.
type PercentValues struct {
	Value *float64 `json:"value"`
}

// NewClient creates a new NWS API client
func NewClient(userAgent string, store *cache.Cache, limiter *cache.Limiter, ttl time.Duration) *Client {
	return &Client{
		userAgent: userAgent,
		baseURL:   "https://api.weather.gov",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache:    store,
		limiter:  limiter,
		cacheTTL: ttl,
	}
}

// NewClientWithHTTPDoer creates a client with a custom HTTP doer for testing
func NewClientWithHTTPDoer(userAgent, baseURL string, doer HTTPDoer) *Client {
	return &Client{
		userAgent:  userAgent,
		baseURL:    baseURL,
		httpClient: doer,
		cache:      cache.New(),
		limiter:    cache.NewLimiter(5),
		cacheTTL:   time.Hour,
	}
}

// GetHourlyForecast retrieves the hourly forecast periods for a coordinate.
func (c *Client) GetHourlyForecast(ctx context.Context, lat, lon float64) ([]ForecastPeriod, error) {
	key := cache.CoordKey("nws_forecast", lat, lon)
	var cached []ForecastPeriod
	if found, err := c.cache.Get(key, &cached); err == nil && found {
		return cached, nil
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.limiter.Release()

	pointsURL := fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, lat, lon)
	var points struct {
		Properties struct {
			ForecastHourly string `json:"forecastHourly"`
		} `json:"properties"`
	}
	if err := c.getJSON(ctx, pointsURL, &points); err != nil {
		return nil, fmt.Errorf("failed to resolve NWS gridpoint: %w", err)
	}
	if points.Properties.ForecastHourly == "" {
		return nil, fmt.Errorf("NWS points response missing hourly forecast URL")
	}

	var forecast struct {
		Properties struct {
			Periods []ForecastPeriod `json:"periods"`
		} `json:"properties"`
	}
	if err := c.getJSON(ctx, points.Properties.ForecastHourly, &forecast); err != nil {
		return nil, fmt.Errorf("failed to fetch NWS hourly forecast: %w", err)
	}

	periods := forecast.Properties.Periods
	if err := c.cache.Set(key, periods, c.cacheTTL, "nws"); err != nil {
		return nil, err
	}
	return periods, nil
}

// GetActiveAlerts retrieves active weather alerts near a coordinate.
func (c *Client) GetActiveAlerts(ctx context.Context, lat, lon float64) ([]alerts.Alert, error) {
	key := cache.CoordKey("nws_alerts", lat, lon)
	var cached []alerts.Alert
	if found, err := c.cache.Get(key, &cached); err == nil && found {
		return cached, nil
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.limiter.Release()

	alertsURL := fmt.Sprintf("%s/alerts/active?point=%.4f,%.4f", c.baseURL, lat, lon)
	var response struct {
		Features []struct {
			Properties struct {
				Event       string     `json:"event"`
				Headline    string     `json:"headline"`
				Severity    string     `json:"severity"`
				Description string     `json:"description"`
				Expires     *time.Time `json:"expires"`
				Onset       *time.Time `json:"onset"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := c.getJSON(ctx, alertsURL, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch NWS alerts: %w", err)
	}

	result := make([]alerts.Alert, 0, len(response.Features))
	for _, feature := range response.Features {
		props := feature.Properties
		result = append(result, alerts.Alert{
			Type:        props.Event,
			Headline:    props.Headline,
			Severity:    strings.ToLower(props.Severity),
			Description: props.Description,
			Expires:     props.Expires,
			Onset:       props.Onset,
		})
	}

	if err := c.cache.Set(key, result, c.cacheTTL, "nws"); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/geo+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

var windSpeedPattern = regexp.MustCompile(`(\d+)`)

// parsePeriod normalizes a forecast period into a merge sample.
func parsePeriod(period ForecastPeriod) *conditions.Sample {
	windSpeed := 0.0
	if m := windSpeedPattern.FindStringSubmatch(period.WindSpeed); m != nil {
		windSpeed, _ = strconv.ParseFloat(m[1], 64)
	}

	precipPct := 0.0
	if period.ProbabilityOfPrecipitation.Value != nil {
		precipPct = *period.ProbabilityOfPrecipitation.Value
	}

	return &conditions.Sample{
		TemperatureF:      period.Temperature,
		WindSpeedMph:      windSpeed,
		ConditionText:     period.ShortForecast,
		PrecipProbability: precipPct,
	}
}

// FindForecastForTime returns the period containing the target time, or
// failing containment, the period whose start is closest. Nil when there
// are no periods.
func FindForecastForTime(periods []ForecastPeriod, target time.Time) *conditions.Sample {
	for _, period := range periods {
		end := period.EndTime
		if end.IsZero() {
			end = period.StartTime.Add(time.Hour)
		}
		if !target.Before(period.StartTime) && target.Before(end) {
			return parsePeriod(period)
		}
	}

	if len(periods) == 0 {
		return nil
	}

	closest := periods[0]
	bestDiff := absDuration(closest.StartTime.Sub(target))
	for _, period := range periods[1:] {
		if diff := absDuration(period.StartTime.Sub(target)); diff < bestDiff {
			bestDiff = diff
			closest = period
		}
	}
	return parsePeriod(closest)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
