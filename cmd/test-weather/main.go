// Manual test tool for the weather provider clients. Fetches NWS, Open-Meteo,
// and Tomorrow.io forecasts for a single coordinate and prints the merged
// observation a few hours out. Tomorrow.io is skipped without TOMORROW_API_KEY.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"driveweather.app/server/internal/cache"
	"driveweather.app/server/internal/clients/nws"
	"driveweather.app/server/internal/clients/openmeteo"
	"driveweather.app/server/internal/clients/tomorrowio"
	"driveweather.app/server/internal/config"
	"driveweather.app/server/internal/lib/conditions"
)

func main() {
	var (
		lat   = flag.Float64("lat", 39.3280, "Latitude")
		lon   = flag.Float64("lon", -120.1833, "Longitude")
		hours = flag.Int("hours", 3, "Hours from now to sample the forecast at")
		help  = flag.Bool("help", false, "Show usage")
	)
	flag.Parse()

	if *help {
		fmt.Println("Weather Provider Test")
		fmt.Println("=====================")
		fmt.Println()
		fmt.Println("Fetches all weather providers for one coordinate and merges them.")
		fmt.Println()
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg := config.DefaultConfig()
	store := cache.New()
	target := time.Now().Add(time.Duration(*hours) * time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	fmt.Printf("Forecast for (%.4f, %.4f) at %s\n\n", *lat, *lon, target.Format(time.RFC1123))

	var nwsSample *conditions.Sample
	nwsClient := nws.NewClient(cfg.Providers.NWS.UserAgent, store,
		cache.NewLimiter(cfg.Providers.NWS.MaxConcurrency), cfg.Providers.NWS.CacheTTL)
	periods, err := nwsClient.GetHourlyForecast(ctx, *lat, *lon)
	if err != nil {
		log.Printf("NWS forecast failed: %v", err)
	} else {
		fmt.Printf("NWS: %d hourly periods\n", len(periods))
		nwsSample = nws.FindForecastForTime(periods, target)
	}

	alerts, err := nwsClient.GetActiveAlerts(ctx, *lat, *lon)
	if err != nil {
		log.Printf("NWS alerts failed: %v", err)
	} else {
		fmt.Printf("NWS: %d active alerts\n", len(alerts))
		for _, a := range alerts {
			fmt.Printf("  [%s] %s\n", a.Severity, a.Headline)
		}
	}

	var omSample *conditions.Sample
	omClient := openmeteo.NewClient(cfg.Server.Timezone, store, cfg.Providers.OpenMeteo.CacheTTL)
	forecasts, err := omClient.GetForecasts(ctx, []float64{*lat}, []float64{*lon})
	if err != nil || len(forecasts) == 0 || forecasts[0] == nil {
		log.Printf("Open-Meteo failed: %v", err)
	} else {
		omSample = omClient.FindSampleForTime(forecasts[0], target)
		if sun := omClient.FindSunTimes(forecasts[0], target); sun != nil {
			fmt.Printf("Open-Meteo: sunrise %s, sunset %s\n",
				sun.Sunrise.Format("15:04"), sun.Sunset.Format("15:04"))
		}
	}

	var tmSample *conditions.Sample
	if apiKey := os.Getenv("TOMORROW_API_KEY"); apiKey == "" {
		fmt.Println("Tomorrow.io: skipped (TOMORROW_API_KEY not set)")
	} else {
		tmClient := tomorrowio.NewClient(apiKey, store,
			cache.NewLimiter(cfg.Providers.Tomorrow.MaxConcurrency), cfg.Providers.Tomorrow.CacheTTL)
		intervals, err := tmClient.GetTimeline(ctx, *lat, *lon)
		if err != nil {
			log.Printf("Tomorrow.io failed: %v", err)
		} else {
			fmt.Printf("Tomorrow.io: %d intervals\n", len(intervals))
			tmSample = tomorrowio.FindSampleForTime(intervals, target)
		}
	}

	obs := conditions.Merge(nwsSample, omSample, tmSample)
	fmt.Println()
	fmt.Println("Merged observation")
	fmt.Println("------------------")
	if obs.TemperatureF != nil {
		fmt.Printf("Temperature: %.1fF\n", *obs.TemperatureF)
	}
	fmt.Printf("Wind: %.0f mph (gusts %.0f)\n", obs.WindSpeedMph, obs.WindGustsMph)
	fmt.Printf("Precip: %s %.1f mm/hr (%.0f%% chance), intensity %s\n",
		obs.PrecipType, obs.PrecipMmHr, obs.PrecipProbability, obs.RainIntensity)
	if obs.VisibilityMiles != nil {
		fmt.Printf("Visibility: %.1f miles\n", *obs.VisibilityMiles)
	}
	fmt.Printf("Conditions: %s\n", obs.ConditionText)
	fmt.Printf("Slowdown factor (day): %.3f\n", conditions.SlowdownFactor(obs, conditions.Day))
}
