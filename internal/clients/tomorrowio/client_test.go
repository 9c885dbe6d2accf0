package tomorrowio

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

const timelineResponse = `{
	"data": {
		"timelines": [
			{
				"timestep": "1h",
				"intervals": [
					{
						"startTime": "2026-01-15T08:00:00Z",
						"values": {
							"temperature": -2.0,
							"precipitationProbability": 80,
							"precipitationType": 2,
							"windSpeed": 30.0,
							"windGust": 55.0,
							"visibility": 2.0,
							"weatherCode": 5100,
							"roadRisk": 3,
							"roadRiskLabel": "Moderate"
						}
					},
					{
						"startTime": "2026-01-15T09:00:00Z",
						"values": {
							"temperature": 0.0,
							"precipitationProbability": 20,
							"precipitationType": 0,
							"windSpeed": 10.0,
							"windGust": 15.0,
							"visibility": 16.0,
							"weatherCode": 1000
						}
					}
				]
			}
		]
	}
}`

func TestGetTimeline(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(
		createMockResponse(200, timelineResponse), nil).Once()

	client := NewClientWithHTTPDoer("test-api-key", "https://api.tomorrow.io", mockHTTP)

	intervals, err := client.GetTimeline(context.Background(), 38.7489, -120.0717)

	require.NoError(t, err)
	require.Len(t, intervals, 2)
	assert.Equal(t, 2, intervals[0].Values.PrecipitationType)
	mockHTTP.AssertExpectations(t)
}

func TestGetTimeline_Caches(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(
		createMockResponse(200, timelineResponse), nil).Once()

	client := NewClientWithHTTPDoer("test-api-key", "https://api.tomorrow.io", mockHTTP)

	_, err := client.GetTimeline(context.Background(), 38.7489, -120.0717)
	require.NoError(t, err)

	intervals, err := client.GetTimeline(context.Background(), 38.7510, -120.0690)
	require.NoError(t, err)
	assert.Len(t, intervals, 2)
	mockHTTP.AssertExpectations(t)
}

func TestGetTimeline_RateLimited(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(
		createMockResponse(429, `{"code": 429001}`), nil).Once()

	client := NewClientWithHTTPDoer("test-api-key", "https://api.tomorrow.io", mockHTTP)

	_, err := client.GetTimeline(context.Background(), 38.7489, -120.0717)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestFindSampleForTime(t *testing.T) {
	start := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	risk := 3.0
	intervals := []Interval{
		{
			StartTime: start,
			Values: IntervalValues{
				Temperature:              -2.0,
				PrecipitationProbability: 80,
				PrecipitationType:        2,
				WindSpeed:                30,
				WindGust:                 55,
				WeatherCode:              5100,
				RoadRisk:                 &risk,
				RoadRiskLabel:            "Moderate",
			},
		},
		{
			StartTime: start.Add(time.Hour),
			Values:    IntervalValues{Temperature: 0, WeatherCode: 1000},
		},
	}

	sample := FindSampleForTime(intervals, start.Add(10*time.Minute))

	require.NotNil(t, sample)
	require.NotNil(t, sample.TemperatureF)
	assert.Equal(t, 28.4, *sample.TemperatureF, "-2C converts to 28.4F")
	assert.Equal(t, "snow", sample.PrecipType)
	assert.Equal(t, "Light Snow", sample.ConditionText)
	assert.Equal(t, 18.6, sample.WindSpeedMph)
	require.NotNil(t, sample.RoadRiskScore)
	assert.Equal(t, 3.0, *sample.RoadRiskScore)
	assert.Equal(t, "Moderate", sample.RoadRiskLabel)
}

func TestFindSampleForTime_MissingVisibilityDefaults(t *testing.T) {
	intervals := []Interval{{StartTime: time.Now(), Values: IntervalValues{WeatherCode: 1000}}}

	sample := FindSampleForTime(intervals, time.Now())

	require.NotNil(t, sample)
	require.NotNil(t, sample.VisibilityMiles)
	assert.Equal(t, 9.9, *sample.VisibilityMiles, "16 km default converts to 9.9 miles")
}

func TestFindSampleForTime_Empty(t *testing.T) {
	assert.Nil(t, FindSampleForTime(nil, time.Now()))
}
