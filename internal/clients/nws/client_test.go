package nws

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockHTTPDoer is a mock implementation of HTTPDoer
type MockHTTPDoer struct {
	mock.Mock
}

func (m *MockHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	return args.Get(0).(*http.Response), args.Error(1)
}

func createMockResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

const pointsResponse = `{
	"properties": {
		"forecastHourly": "https://api.weather.gov/gridpoints/STO/50,90/forecast/hourly"
	}
}`

const forecastResponse = `{
	"properties": {
		"periods": [
			{
				"startTime": "2026-01-15T08:00:00-08:00",
				"endTime": "2026-01-15T09:00:00-08:00",
				"temperature": 34,
				"windSpeed": "10 mph",
				"windDirection": "SW",
				"shortForecast": "Light Snow",
				"probabilityOfPrecipitation": {"value": 80}
			},
			{
				"startTime": "2026-01-15T09:00:00-08:00",
				"endTime": "2026-01-15T10:00:00-08:00",
				"temperature": 36,
				"windSpeed": "5 to 15 mph",
				"windDirection": "W",
				"shortForecast": "Partly Cloudy",
				"probabilityOfPrecipitation": {"value": null}
			}
		]
	}
}`

func TestGetHourlyForecast(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(
		createMockResponse(200, pointsResponse), nil).Once()
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(
		createMockResponse(200, forecastResponse), nil).Once()

	client := NewClientWithHTTPDoer("test-agent/1.0", "https://api.weather.gov", mockHTTP)

	periods, err := client.GetHourlyForecast(context.Background(), 38.7489, -120.0717)

	require.NoError(t, err)
	require.Len(t, periods, 2)
	require.NotNil(t, periods[0].Temperature)
	assert.Equal(t, 34.0, *periods[0].Temperature)
	assert.Equal(t, "Light Snow", periods[0].ShortForecast)
	mockHTTP.AssertExpectations(t)
}

func TestGetHourlyForecast_CachesSecondCall(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(
		createMockResponse(200, pointsResponse), nil).Once()
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(
		createMockResponse(200, forecastResponse), nil).Once()

	client := NewClientWithHTTPDoer("test-agent/1.0", "https://api.weather.gov", mockHTTP)

	_, err := client.GetHourlyForecast(context.Background(), 38.7489, -120.0717)
	require.NoError(t, err)

	// Same rounded coordinates hit the cache, no further HTTP calls.
	periods, err := client.GetHourlyForecast(context.Background(), 38.7501, -120.0699)
	require.NoError(t, err)
	assert.Len(t, periods, 2)
	mockHTTP.AssertExpectations(t)
}

func TestGetHourlyForecast_UpstreamError(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(
		createMockResponse(503, `{"detail": "service unavailable"}`), nil).Once()

	client := NewClientWithHTTPDoer("test-agent/1.0", "https://api.weather.gov", mockHTTP)

	_, err := client.GetHourlyForecast(context.Background(), 38.7489, -120.0717)
	assert.Error(t, err)
}

func TestGetActiveAlerts(t *testing.T) {
	alertsResponse := `{
		"features": [
			{
				"properties": {
					"event": "Winter Storm Warning",
					"headline": "Winter Storm Warning until 4 AM PST Friday",
					"severity": "Severe",
					"description": "Heavy snow expected above 4000 feet.",
					"expires": "2026-01-16T04:00:00-08:00",
					"onset": "2026-01-15T10:00:00-08:00"
				}
			}
		]
	}`

	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(
		createMockResponse(200, alertsResponse), nil).Once()

	client := NewClientWithHTTPDoer("test-agent/1.0", "https://api.weather.gov", mockHTTP)

	result, err := client.GetActiveAlerts(context.Background(), 38.7489, -120.0717)

	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "Winter Storm Warning", result[0].Type)
	assert.Equal(t, "severe", result[0].Severity, "severity is lowercased")
	require.NotNil(t, result[0].Expires)
	mockHTTP.AssertExpectations(t)
}

func TestFindForecastForTime_ContainingPeriod(t *testing.T) {
	start := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	temp1, temp2 := 34.0, 36.0
	periods := []ForecastPeriod{
		{StartTime: start, EndTime: start.Add(time.Hour), Temperature: &temp1, WindSpeed: "10 mph", ShortForecast: "Snow"},
		{StartTime: start.Add(time.Hour), EndTime: start.Add(2 * time.Hour), Temperature: &temp2, WindSpeed: "5 mph", ShortForecast: "Cloudy"},
	}

	sample := FindForecastForTime(periods, start.Add(90*time.Minute))

	require.NotNil(t, sample)
	assert.Equal(t, 36.0, *sample.TemperatureF)
	assert.Equal(t, 5.0, sample.WindSpeedMph)
	assert.Equal(t, "Cloudy", sample.ConditionText)
}

func TestFindForecastForTime_FallsBackToClosest(t *testing.T) {
	start := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	temp := 34.0
	periods := []ForecastPeriod{
		{StartTime: start, EndTime: start.Add(time.Hour), Temperature: &temp, ShortForecast: "Snow"},
	}

	// Target far outside any period still returns the closest one.
	sample := FindForecastForTime(periods, start.Add(12*time.Hour))
	require.NotNil(t, sample)
	assert.Equal(t, "Snow", sample.ConditionText)
}

func TestFindForecastForTime_Empty(t *testing.T) {
	assert.Nil(t, FindForecastForTime(nil, time.Now()))
}
