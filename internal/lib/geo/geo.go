package geo

import (
	"errors"
	"math"

	"github.com/twpayne/go-polyline"
)

// earthRadiusMiles is the mean Earth radius used by the Haversine formula.
const earthRadiusMiles = 3958.8

// MilesBetween calculates the great-circle distance between two points in
// miles using the Haversine formula.
func MilesBetween(p1, p2 Point) float64 {
	if p1.Latitude == p2.Latitude && p1.Longitude == p2.Longitude {
		return 0
	}

	lat1 := p1.Latitude * math.Pi / 180
	lat2 := p2.Latitude * math.Pi / 180
	dlat := (p2.Latitude - p1.Latitude) * math.Pi / 180
	dlon := (p2.Longitude - p1.Longitude) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMiles * c
}

// DecodePolyline decodes a Google encoded polyline string to a point sequence.
func DecodePolyline(encoded string) ([]Point, error) {
	if encoded == "" {
		return nil, errors.New("encoded polyline string is empty")
	}

	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, errors.New("failed to decode polyline: " + err.Error())
	}

	points := make([]Point, len(coords))
	for i, coord := range coords {
		points[i] = Point{
			Latitude:  coord[0],
			Longitude: coord[1],
		}
		if !points[i].Valid() {
			return nil, errors.New("decoded polyline contains invalid coordinates")
		}
	}

	return points, nil
}

// CumulativeMiles returns, for each route point, the along-route distance in
// miles from the first point. The last element is the total route length.
func CumulativeMiles(points []Point) []float64 {
	cumulative := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		cumulative[i] = cumulative[i-1] + MilesBetween(points[i-1], points[i])
	}
	return cumulative
}

// ClosestOnRoute finds the route point nearest to target.
//
// Returns the straight-line distance from target to that point and the
// along-route distance to it, both in miles. cumulative must come from
// CumulativeMiles(points).
func ClosestOnRoute(points []Point, cumulative []float64, target Point) (distMiles, alongMiles float64) {
	distMiles = math.Inf(1)
	for i, pt := range points {
		d := MilesBetween(pt, target)
		if d < distMiles {
			distMiles = d
			alongMiles = cumulative[i]
		}
	}
	return distMiles, alongMiles
}

// PointAtMiles returns the first route point at or beyond the given
// along-route distance. Falls back to the final point when the target is past
// the end of the route.
func PointAtMiles(points []Point, cumulative []float64, targetMiles float64) Point {
	for i := 1; i < len(points); i++ {
		if cumulative[i] >= targetMiles {
			return points[i]
		}
	}
	return points[len(points)-1]
}
