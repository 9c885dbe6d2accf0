// Manual test tool for the Caltrans CWWP2 and QuickMap feeds. Fetches live
// chain controls and RWIS station readings and prints them, optionally
// matching stations against a coordinate.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"driveweather.app/server/internal/cache"
	"driveweather.app/server/internal/clients/caltrans"
	"driveweather.app/server/internal/config"
	"driveweather.app/server/internal/lib/geo"
	"driveweather.app/server/internal/lib/roads"
)

func main() {
	var (
		feed   = flag.String("feed", "all", "Feed to fetch: chains, stations, quickmap, or all")
		lat    = flag.Float64("lat", 0, "Latitude to match stations against (requires -lon)")
		lon    = flag.Float64("lon", 0, "Longitude to match stations against")
		radius = flag.Float64("radius", 15, "Station match radius in miles")
		help   = flag.Bool("help", false, "Show usage")
	)
	flag.Parse()

	if *help {
		fmt.Println("Caltrans Feed Test")
		fmt.Println("==================")
		fmt.Println()
		fmt.Println("Fetches live Caltrans chain control and RWIS station feeds.")
		fmt.Println()
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg := config.DefaultConfig().Providers.Caltrans
	store := cache.New()
	client := caltrans.NewClient(store, cfg.CacheTTL,
		caltrans.WithURLs(cfg.ChainControlURL, cfg.StationStatusURL, cfg.QuickMapKMLURL),
		caltrans.WithDistricts(cfg.ChainControlDistricts, cfg.StationDistricts),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if *feed == "chains" || *feed == "all" {
		fmt.Println("Chain Controls (CWWP2)")
		fmt.Println("----------------------")
		controls, err := client.GetChainControls(ctx)
		if err != nil {
			log.Fatalf("Fetching chain controls: %v", err)
		}
		printChainControls(controls)
		fmt.Println()
	}

	if *feed == "quickmap" || *feed == "all" {
		fmt.Println("Chain Controls (QuickMap KML)")
		fmt.Println("-----------------------------")
		controls, err := client.GetQuickMapChainControls(ctx)
		if err != nil {
			log.Fatalf("Fetching QuickMap chain controls: %v", err)
		}
		printChainControls(controls)
		fmt.Println()
	}

	if *feed == "stations" || *feed == "all" {
		fmt.Println("RWIS Stations")
		fmt.Println("-------------")
		stations, err := client.GetStations(ctx)
		if err != nil {
			log.Fatalf("Fetching stations: %v", err)
		}
		fmt.Printf("%d stations reporting\n", len(stations))
		for _, s := range stations {
			fmt.Printf("  %-28s (%.4f, %.4f) pavement=%s", s.Name, s.Location.Latitude, s.Location.Longitude, orDash(s.PavementStatus))
			if s.AirTempF != nil {
				fmt.Printf(" air=%.0fF", *s.AirTempF)
			}
			if s.VisibilityMiles != nil {
				fmt.Printf(" vis=%.1fmi", *s.VisibilityMiles)
			}
			fmt.Println()
		}

		if *lat != 0 || *lon != 0 {
			fmt.Println()
			fmt.Printf("Nearest station to (%.4f, %.4f) within %.0f miles:\n", *lat, *lon, *radius)
			match := roads.MatchStation(stations, geo.Point{Latitude: *lat, Longitude: *lon}, *radius)
			if match == nil {
				fmt.Println("  no station in range")
			} else {
				fmt.Printf("  %.1f miles away: pavement=%s precip=%s\n",
					match.DistanceMiles, orDash(match.PavementStatus), orDash(match.PrecipitationType))
			}
		}
	}
}

func printChainControls(controls []roads.ChainControl) {
	if len(controls) == 0 {
		fmt.Println("No active chain controls")
		return
	}
	for _, cc := range controls {
		fmt.Printf("  %s %s %s", cc.Level, cc.Highway, cc.Direction)
		if cc.BeginPostmile != nil && cc.EndPostmile != nil {
			fmt.Printf(" (PM %.1f-%.1f)", *cc.BeginPostmile, *cc.EndPostmile)
		}
		if cc.Description != "" {
			fmt.Printf(" %s", cc.Description)
		}
		fmt.Println()
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
