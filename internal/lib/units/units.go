// Package units holds the small unit conversions shared by the weather and
// road clients. Every provider reports metric; the API surface is imperial.
package units

import "math"

// CToF converts Celsius to Fahrenheit, rounded to one decimal.
func CToF(c float64) float64 {
	return round1(c*9/5 + 32)
}

// KmhToMph converts kilometers per hour to miles per hour, rounded to one decimal.
func KmhToMph(kmh float64) float64 {
	return round1(kmh * 0.621371)
}

// KmToMiles converts kilometers to miles, rounded to one decimal.
func KmToMiles(km float64) float64 {
	return round1(km * 0.621371)
}

// MToMiles converts meters to miles, rounded to one decimal.
func MToMiles(m float64) float64 {
	return round1(m / 1609.344)
}

// MToFt converts meters to feet, rounded to the nearest foot.
func MToFt(m float64) float64 {
	return math.Round(m * 3.28084)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
