package services

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driveweather.app/server/internal/lib/conditions"
	"driveweather.app/server/internal/lib/geo"
	"driveweather.app/server/internal/lib/segments"
)

func TestWriteRouteOverlay(t *testing.T) {
	eta := time.Date(2026, 1, 10, 14, 0, 0, 0, time.UTC)
	temp := 28.4
	plan := &TripPlan{
		Route: RouteSummary{
			Summary:  "I-80 E",
			Polyline: encodedRoute(),
		},
		Segments: []segments.Segment{
			{
				Index:         0,
				Location:      geo.Point{Latitude: 38.0, Longitude: -120.0},
				MileMarker:    0,
				ETA:           &eta,
				SeverityLabel: "green",
				Weather:       &conditions.Observation{ConditionText: "Sunny", TemperatureF: &temp},
			},
			{
				Index:         1,
				Location:      geo.Point{Latitude: 38.2, Longitude: -120.0},
				MileMarker:    13.8,
				SeverityScore: 7,
				SeverityLabel: "red",
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRouteOverlay(&buf, plan))
	out := buf.String()

	assert.Contains(t, out, "<name>I-80 E</name>")
	for _, id := range []string{"severity-green", "severity-yellow", "severity-red"} {
		assert.Contains(t, out, id)
	}
	assert.Contains(t, out, "<styleUrl>#severity-red</styleUrl>")
	assert.Contains(t, out, "<name>Mile 13.8</name>")
	// KML coordinates are lon,lat.
	assert.Contains(t, out, "-120,38.2")
	assert.Contains(t, out, "<LineString>")
	assert.Contains(t, out, "Sunny")
}

func TestWriteRouteOverlay_UnknownSeverityFallsBackToGreen(t *testing.T) {
	plan := &TripPlan{
		Segments: []segments.Segment{
			{Location: geo.Point{Latitude: 38.0, Longitude: -120.0}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRouteOverlay(&buf, plan))
	assert.Contains(t, buf.String(), "<styleUrl>#severity-green</styleUrl>")
	assert.Contains(t, buf.String(), "<name>Route weather</name>")
}

func TestWriteRouteOverlay_RestStopUsesPlaceName(t *testing.T) {
	plan := &TripPlan{
		Segments: []segments.Segment{
			{
				Type:          "rest_stop",
				PlaceName:     "Gold Run Rest Area",
				Location:      geo.Point{Latitude: 39.17, Longitude: -120.85},
				SeverityLabel: "green",
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRouteOverlay(&buf, plan))
	assert.Contains(t, buf.String(), "<name>Gold Run Rest Area</name>")
}
