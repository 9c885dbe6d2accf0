package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driveweather.app/server/internal/config"
	"driveweather.app/server/internal/lib/geo"
	"driveweather.app/server/internal/lib/segments"
	"driveweather.app/server/internal/services"
)

type fakePlanner struct {
	plan      *services.TripPlan
	err       error
	departure time.Time
}

func (f *fakePlanner) PlanTrip(ctx context.Context, origin, destination string, departure time.Time) (*services.TripPlan, error) {
	f.departure = departure
	if f.err != nil {
		return nil, f.err
	}
	return f.plan, nil
}

func testPlan() *services.TripPlan {
	return &services.TripPlan{
		Route: services.RouteSummary{
			Summary:            "I-80 E",
			TotalDistanceMiles: 100.0,
		},
		Segments: []segments.Segment{
			{Location: geo.Point{Latitude: 38.0, Longitude: -120.0}, SeverityLabel: "green"},
		},
		Sources: []string{"NWS", "Open-Meteo"},
		Slots:   map[string]services.SlotData{},
	}
}

func newTestHandler(planner TripPlanner) *Handler {
	h := New(planner, config.DefaultConfig())
	h.now = func() time.Time { return time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC) }
	return h
}

func get(h http.HandlerFunc, url string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func TestRouteWeather(t *testing.T) {
	planner := &fakePlanner{plan: testPlan()}
	h := newTestHandler(planner)

	rec := get(h.RouteWeather, "/api/route-weather?origin=Sacramento&destination=Truckee&departure=2026-01-10T14:00:00Z")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var body services.TripPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "I-80 E", body.Route.Summary)
	assert.Len(t, body.Segments, 1)
	assert.Equal(t, time.Date(2026, 1, 10, 14, 0, 0, 0, time.UTC), planner.departure)
}

func TestRouteWeather_MissingParams(t *testing.T) {
	h := newTestHandler(&fakePlanner{plan: testPlan()})

	for _, url := range []string{
		"/api/route-weather",
		"/api/route-weather?origin=A&destination=B",
		"/api/route-weather?origin=A&departure=2026-01-10T14:00:00Z",
	} {
		rec := get(h.RouteWeather, url)
		assert.Equal(t, http.StatusBadRequest, rec.Code, url)
		assert.Contains(t, rec.Body.String(), "Missing required params", url)
	}
}

func TestRouteWeather_InvalidDeparture(t *testing.T) {
	h := newTestHandler(&fakePlanner{plan: testPlan()})

	rec := get(h.RouteWeather, "/api/route-weather?origin=A&destination=B&departure=tomorrow")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ISO 8601")
}

func TestRouteWeather_ZonelessDepartureAssumesConfiguredZone(t *testing.T) {
	planner := &fakePlanner{plan: testPlan()}
	h := newTestHandler(planner)

	rec := get(h.RouteWeather, "/api/route-weather?origin=A&destination=B&departure=2026-01-10T14:00")
	require.Equal(t, http.StatusOK, rec.Code)

	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 10, 14, 0, 0, 0, loc), planner.departure)
}

func TestRouteWeather_DepartureTooFarPast(t *testing.T) {
	h := newTestHandler(&fakePlanner{plan: testPlan()})

	// now is fixed at 2026-01-10T12:00Z; 49 hours earlier is out of range.
	rec := get(h.RouteWeather, "/api/route-weather?origin=A&destination=B&departure=2026-01-08T11:00:00Z")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "past")

	// 47 hours earlier is still allowed.
	rec = get(h.RouteWeather, "/api/route-weather?origin=A&destination=B&departure=2026-01-08T13:00:00Z")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouteWeather_PlannerErrorIsBadGateway(t *testing.T) {
	h := newTestHandler(&fakePlanner{err: errors.New("no route found between \"A\" and \"B\"")})

	rec := get(h.RouteWeather, "/api/route-weather?origin=A&destination=B&departure=2026-01-10T14:00:00Z")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "no route found")
}

func TestRouteWeather_CORSHeaders(t *testing.T) {
	h := newTestHandler(&fakePlanner{plan: testPlan()})

	rec := get(h.RouteWeather, "/api/route-weather?origin=A&destination=B&departure=2026-01-10T14:00:00Z")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	h.RouteWeather(rec, httptest.NewRequest(http.MethodOptions, "/api/route-weather", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouteWeatherKML(t *testing.T) {
	h := newTestHandler(&fakePlanner{plan: testPlan()})

	rec := get(h.RouteWeatherKML, "/api/route-weather.kml?origin=A&destination=B&departure=2026-01-10T14:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.google-earth.kml+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<kml")
	assert.Contains(t, rec.Body.String(), "severity-green")
}

func TestRouteWeatherKML_ValidationStillApplies(t *testing.T) {
	h := newTestHandler(&fakePlanner{plan: testPlan()})

	rec := get(h.RouteWeatherKML, "/api/route-weather.kml?origin=A")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
