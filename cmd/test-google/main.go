// Manual test tool for the Google Routes and Places clients. Computes a
// route between two addresses and optionally looks up a rest stop near the
// route midpoint. Requires GOOGLE_API_KEY.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"driveweather.app/server/internal/clients/google"
	"driveweather.app/server/internal/lib/geo"
)

func main() {
	var (
		origin      = flag.String("origin", "Sacramento, CA", "Route origin")
		destination = flag.String("destination", "Truckee, CA", "Route destination")
		restStop    = flag.Bool("rest-stop", false, "Also look up a rest stop near the route midpoint")
		help        = flag.Bool("help", false, "Show usage")
	)
	flag.Parse()

	if *help {
		fmt.Println("Google Routing Test")
		fmt.Println("===================")
		fmt.Println()
		fmt.Println("Computes a route via the Routes API. Set GOOGLE_API_KEY.")
		fmt.Println()
		flag.PrintDefaults()
		os.Exit(0)
	}

	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		log.Fatal("GOOGLE_API_KEY is not set")
	}

	client := google.NewClient(apiKey)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	departure := time.Now().Add(time.Hour)
	route, err := client.ComputeRoute(ctx, *origin, *destination, departure)
	if err != nil {
		log.Fatalf("Computing route: %v", err)
	}

	fmt.Printf("Route: %s\n", route.Summary)
	fmt.Printf("Distance: %.1f miles\n", route.DistanceMeters/1609.344)
	fmt.Printf("Duration: %d minutes\n", route.DurationSeconds/60)
	fmt.Printf("Steps: %d\n", len(route.Steps))
	for i, step := range route.Steps {
		if i >= 10 {
			fmt.Printf("  ... %d more\n", len(route.Steps)-i)
			break
		}
		fmt.Printf("  %d. %s (%.4f, %.4f)\n", i+1, step.Instruction, step.StartLocation.Latitude, step.StartLocation.Longitude)
	}

	if *restStop {
		points, err := geo.DecodePolyline(route.Polyline)
		if err != nil || len(points) == 0 {
			log.Fatalf("Decoding polyline: %v", err)
		}
		mid := points[len(points)/2]
		fmt.Println()
		fmt.Printf("Rest stop near midpoint (%.4f, %.4f):\n", mid.Latitude, mid.Longitude)
		place, err := client.FindNearbyRestStop(ctx, mid)
		if err != nil {
			log.Fatalf("Finding rest stop: %v", err)
		}
		if place == nil {
			fmt.Println("  none found")
		} else {
			fmt.Printf("  %s (%.4f, %.4f)\n", place.Name, place.Location.Latitude, place.Location.Longitude)
		}
	}
}
