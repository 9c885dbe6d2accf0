package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driveweather.app/server/internal/clients/google"
	"driveweather.app/server/internal/clients/nws"
	"driveweather.app/server/internal/clients/openmeteo"
	"driveweather.app/server/internal/clients/tomorrowio"
	"driveweather.app/server/internal/lib/alerts"
	"driveweather.app/server/internal/lib/conditions"
	"driveweather.app/server/internal/lib/geo"
	"driveweather.app/server/internal/lib/roads"
	"driveweather.app/server/internal/lib/routing"
)

// fakeWeather is a canned WeatherForecaster. The same periods are returned
// for every coordinate; alertsAt can vary alerts per point.
type fakeWeather struct {
	mu            sync.Mutex
	periods       []nws.ForecastPeriod
	alertsAt      func(lat, lon float64) []alerts.Alert
	forecastErr   error
	alertErr      error
	forecastCalls int
}

func (f *fakeWeather) GetHourlyForecast(ctx context.Context, lat, lon float64) ([]nws.ForecastPeriod, error) {
	f.mu.Lock()
	f.forecastCalls++
	f.mu.Unlock()
	if f.forecastErr != nil {
		return nil, f.forecastErr
	}
	return f.periods, nil
}

func (f *fakeWeather) GetActiveAlerts(ctx context.Context, lat, lon float64) ([]alerts.Alert, error) {
	if f.alertErr != nil {
		return nil, f.alertErr
	}
	if f.alertsAt == nil {
		return []alerts.Alert{}, nil
	}
	return f.alertsAt(lat, lon), nil
}

// fakeBatch is a canned BatchForecaster: one empty forecast per coordinate,
// with fixed sample and sun lookups.
type fakeBatch struct {
	err    error
	sample *conditions.Sample
	sun    *openmeteo.SunTimes
}

func (f *fakeBatch) GetForecasts(ctx context.Context, lats, lons []float64) ([]*openmeteo.Forecast, error) {
	if f.err != nil {
		return nil, f.err
	}
	forecasts := make([]*openmeteo.Forecast, len(lats))
	for i := range forecasts {
		forecasts[i] = &openmeteo.Forecast{}
	}
	return forecasts, nil
}

func (f *fakeBatch) FindSampleForTime(fc *openmeteo.Forecast, target time.Time) *conditions.Sample {
	return f.sample
}

func (f *fakeBatch) FindSunTimes(fc *openmeteo.Forecast, target time.Time) *openmeteo.SunTimes {
	return f.sun
}

// fakeTimeline records the latitude of every call and tags the returned
// interval with it, so broadcast behavior is observable.
type fakeTimeline struct {
	mu       sync.Mutex
	err      error
	callLats []float64
}

func (f *fakeTimeline) GetTimeline(ctx context.Context, lat, lon float64) ([]tomorrowio.Interval, error) {
	f.mu.Lock()
	f.callLats = append(f.callLats, lat)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	interval := tomorrowio.Interval{}
	interval.Values.Temperature = lat
	return []tomorrowio.Interval{interval}, nil
}

type fakeRoads struct {
	mu           sync.Mutex
	chains       []roads.ChainControl
	quickMap     []roads.ChainControl
	stations     []roads.Station
	chainErr     error
	quickErr     error
	stationErr   error
	stationCalls int
}

func (f *fakeRoads) GetChainControls(ctx context.Context) ([]roads.ChainControl, error) {
	if f.chainErr != nil {
		return nil, f.chainErr
	}
	return f.chains, nil
}

func (f *fakeRoads) GetStations(ctx context.Context) ([]roads.Station, error) {
	f.mu.Lock()
	f.stationCalls++
	f.mu.Unlock()
	if f.stationErr != nil {
		return nil, f.stationErr
	}
	return f.stations, nil
}

func (f *fakeRoads) GetQuickMapChainControls(ctx context.Context) ([]roads.ChainControl, error) {
	if f.quickErr != nil {
		return nil, f.quickErr
	}
	return f.quickMap, nil
}

type fakeRouter struct {
	route      *routing.Route
	routeErr   error
	place      *google.Place
	placeErr   error
	placeCalls int
}

func (f *fakeRouter) ComputeRoute(ctx context.Context, origin, destination string, departure time.Time) (*routing.Route, error) {
	if f.routeErr != nil {
		return nil, f.routeErr
	}
	return f.route, nil
}

func (f *fakeRouter) FindNearbyRestStop(ctx context.Context, location geo.Point) (*google.Place, error) {
	f.placeCalls++
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	return f.place, nil
}

func testWaypoints(n int) []routing.Waypoint {
	wps := make([]routing.Waypoint, n)
	for i := range wps {
		wps[i] = routing.Waypoint{
			Location: geo.Point{Latitude: float64(i), Longitude: -120.0},
			Kind:     routing.KindFill,
		}
	}
	return wps
}

func TestFetchRaw_AllSourcesHealthy(t *testing.T) {
	f := NewFetcher(
		&fakeWeather{periods: []nws.ForecastPeriod{{ShortForecast: "Sunny"}}},
		&fakeBatch{},
		&fakeTimeline{},
		&fakeRoads{
			chains:   []roads.ChainControl{{Highway: "I-80", Level: "R1"}},
			stations: []roads.Station{{ID: "s1"}},
		},
		5,
	)

	bundle := f.FetchRaw(context.Background(), testWaypoints(3), nil)

	require.Len(t, bundle.NWS, 3)
	for i := 0; i < 3; i++ {
		assert.NotNil(t, bundle.NWS[i], "waypoint %d", i)
		assert.NotEmpty(t, bundle.Tomorrow[i], "waypoint %d", i)
	}
	assert.Len(t, bundle.ChainControls, 1)
	assert.Len(t, bundle.Stations, 1)
	assert.Equal(t, []string{"Caltrans CWWP2", "NWS", "Open-Meteo", "Tomorrow.io"}, bundle.Sources)
}

func TestFetchRaw_PartialFailureDegrades(t *testing.T) {
	f := NewFetcher(
		&fakeWeather{periods: []nws.ForecastPeriod{{ShortForecast: "Sunny"}}},
		&fakeBatch{},
		&fakeTimeline{err: errors.New("rate limit exceeded")},
		&fakeRoads{
			chainErr:   errors.New("feed down"),
			quickErr:   errors.New("feed down"),
			stationErr: errors.New("feed down"),
		},
		5,
	)

	bundle := f.FetchRaw(context.Background(), testWaypoints(2), nil)

	assert.Equal(t, []string{"NWS", "Open-Meteo"}, bundle.Sources)
	assert.Empty(t, bundle.Tomorrow[0])
	assert.Empty(t, bundle.ChainControls)
	assert.NotNil(t, bundle.NWS[0])
}

func TestFetchRaw_PrefetchedStationsSkipRefetch(t *testing.T) {
	roadClient := &fakeRoads{stations: []roads.Station{{ID: "should-not-be-used"}}}
	f := NewFetcher(&fakeWeather{}, &fakeBatch{}, &fakeTimeline{}, roadClient, 5)

	prefetched := []roads.Station{{ID: "prefetched"}}
	bundle := f.FetchRaw(context.Background(), testWaypoints(2), prefetched)

	assert.Equal(t, 0, roadClient.stationCalls)
	require.Len(t, bundle.Stations, 1)
	assert.Equal(t, "prefetched", bundle.Stations[0].ID)
	assert.Contains(t, bundle.Sources, "Caltrans CWWP2")
}

func TestFetchRaw_TomorrowSamplingAndBroadcast(t *testing.T) {
	timeline := &fakeTimeline{}
	f := NewFetcher(&fakeWeather{}, &fakeBatch{}, timeline, &fakeRoads{}, 5)

	// 9 waypoints at latitudes 0..8; sampling picks indices 0,2,4,6,8.
	bundle := f.FetchRaw(context.Background(), testWaypoints(9), nil)

	assert.Len(t, timeline.callLats, 5)
	assert.ElementsMatch(t, []float64{0, 2, 4, 6, 8}, timeline.callLats)

	// Sampled waypoints keep their own timeline.
	assert.Equal(t, 4.0, bundle.Tomorrow[4][0].Values.Temperature)
	// Waypoint 1 ties between samples 0 and 2; the lower index wins.
	assert.Equal(t, 0.0, bundle.Tomorrow[1][0].Values.Temperature)
	// Waypoint 7 ties between 6 and 8; again the lower index.
	assert.Equal(t, 6.0, bundle.Tomorrow[7][0].Values.Temperature)
}

func TestFetchRaw_QuickMapSupplementsNewHighwaysOnly(t *testing.T) {
	f := NewFetcher(&fakeWeather{}, &fakeBatch{}, &fakeTimeline{}, &fakeRoads{
		chains: []roads.ChainControl{{Highway: "I-80", Level: "R1"}},
		quickMap: []roads.ChainControl{
			{Highway: "I-80", Level: "R2"},
			{Highway: "SR-88", Level: "R2"},
		},
	}, 5)

	bundle := f.FetchRaw(context.Background(), testWaypoints(1), nil)

	require.Len(t, bundle.ChainControls, 2)
	assert.Equal(t, "I-80", bundle.ChainControls[0].Highway)
	assert.Equal(t, "R1", bundle.ChainControls[0].Level)
	assert.Equal(t, "SR-88", bundle.ChainControls[1].Highway)
}

func TestSampleIndices(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, sampleIndices(3, 5))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, sampleIndices(5, 5))
	// Fractional positions round half-to-even: 1.5→2, 4.5→4.
	assert.Equal(t, []int{0, 2, 3, 4, 6}, sampleIndices(7, 5))
	assert.Equal(t, []int{0, 5, 10, 14, 19}, sampleIndices(20, 5))
	assert.Equal(t, []int{0, 5, 10, 15, 20}, sampleIndices(21, 5))
	assert.Equal(t, []int{0, 4, 8}, sampleIndices(9, 3))
}

func TestFetchRaw_TomorrowSampleBudgetFromConfig(t *testing.T) {
	timeline := &fakeTimeline{}
	f := NewFetcher(&fakeWeather{}, &fakeBatch{}, timeline, &fakeRoads{}, 3)

	bundle := f.FetchRaw(context.Background(), testWaypoints(9), nil)

	assert.Len(t, timeline.callLats, 3)
	assert.ElementsMatch(t, []float64{0, 4, 8}, timeline.callLats)
	// Unsampled waypoints still borrow the nearest sampled timeline.
	assert.Equal(t, 4.0, bundle.Tomorrow[5][0].Values.Temperature)
}
