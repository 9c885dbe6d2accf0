package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMilesBetween(t *testing.T) {
	// Highway 4 test coordinates: Angels Camp to Murphys (real route)
	angelscamp := Point{Latitude: 38.0675, Longitude: -120.5436}
	murphys := Point{Latitude: 38.1391, Longitude: -120.4561}

	distance := MilesBetween(angelscamp, murphys)

	// Expected distance ~6.9 miles between Angels Camp and Murphys
	assert.InDelta(t, 6.86, distance, 0.1, "Distance should be approximately 6.9 miles")

	// Distance from a point to itself is exactly zero
	assert.Equal(t, 0.0, MilesBetween(angelscamp, angelscamp))

	// Symmetric
	assert.InDelta(t, distance, MilesBetween(murphys, angelscamp), 1e-9)
}

func TestDecodePolyline(t *testing.T) {
	// Google's reference example decodes to three points near (38.5, -120.2)
	points, err := DecodePolyline("_p~iF~ps|U_ulLnnqC_mqNvxq`@")
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.InDelta(t, 38.5, points[0].Latitude, 0.01)
	assert.InDelta(t, -120.2, points[0].Longitude, 0.01)

	for _, point := range points {
		assert.True(t, point.Valid())
	}

	_, err = DecodePolyline("")
	assert.Error(t, err, "Should return error for empty polyline")
}

func TestCumulativeMiles(t *testing.T) {
	points := []Point{
		{Latitude: 38.0675, Longitude: -120.5436},
		{Latitude: 38.1391, Longitude: -120.4561},
		{Latitude: 38.2458, Longitude: -120.3486},
	}

	cumulative := CumulativeMiles(points)
	require.Len(t, cumulative, 3)
	assert.Equal(t, 0.0, cumulative[0])
	assert.Greater(t, cumulative[1], 0.0)
	assert.Greater(t, cumulative[2], cumulative[1])

	total := MilesBetween(points[0], points[1]) + MilesBetween(points[1], points[2])
	assert.InDelta(t, total, cumulative[2], 1e-9)
}

func TestClosestOnRoute(t *testing.T) {
	points := []Point{
		{Latitude: 38.0675, Longitude: -120.5436},
		{Latitude: 38.1391, Longitude: -120.4561},
		{Latitude: 38.2458, Longitude: -120.3486},
	}
	cumulative := CumulativeMiles(points)

	// A point sitting almost on top of the middle route point
	target := Point{Latitude: 38.1392, Longitude: -120.4562}
	dist, along := ClosestOnRoute(points, cumulative, target)

	assert.Less(t, dist, 0.1, "target is essentially on the route")
	assert.InDelta(t, cumulative[1], along, 1e-9)
}

func TestPointAtMiles(t *testing.T) {
	points := []Point{
		{Latitude: 38.0675, Longitude: -120.5436},
		{Latitude: 38.1391, Longitude: -120.4561},
		{Latitude: 38.2458, Longitude: -120.3486},
	}
	cumulative := CumulativeMiles(points)

	// Before the first segment ends
	pt := PointAtMiles(points, cumulative, 0.5)
	assert.Equal(t, points[1], pt)

	// Past the end of the route
	pt = PointAtMiles(points, cumulative, cumulative[2]+100)
	assert.Equal(t, points[2], pt)
}
