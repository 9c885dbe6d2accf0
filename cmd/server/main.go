package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/dpup/prefab"

	"driveweather.app/server/internal/cache"
	"driveweather.app/server/internal/clients/caltrans"
	"driveweather.app/server/internal/clients/google"
	"driveweather.app/server/internal/clients/nws"
	"driveweather.app/server/internal/clients/openmeteo"
	"driveweather.app/server/internal/clients/tomorrowio"
	"driveweather.app/server/internal/config"
	"driveweather.app/server/internal/lib/alerts"
	"driveweather.app/server/internal/server"
	"driveweather.app/server/internal/services"
)

func main() {
	cfg := loadConfig()

	store := cache.New()
	store.StartPeriodicCleanup(context.Background(), 10*time.Minute)

	nwsClient := nws.NewClient(
		cfg.Providers.NWS.UserAgent,
		store,
		cache.NewLimiter(cfg.Providers.NWS.MaxConcurrency),
		cfg.Providers.NWS.CacheTTL,
	)
	openMeteoClient := openmeteo.NewClient(cfg.Server.Timezone, store, cfg.Providers.OpenMeteo.CacheTTL)
	tomorrowClient := tomorrowio.NewClient(
		cfg.Providers.Tomorrow.APIKey,
		store,
		cache.NewLimiter(cfg.Providers.Tomorrow.MaxConcurrency),
		cfg.Providers.Tomorrow.CacheTTL,
	)
	caltransClient := caltrans.NewClient(store, cfg.Providers.Caltrans.CacheTTL,
		caltrans.WithURLs(
			cfg.Providers.Caltrans.ChainControlURL,
			cfg.Providers.Caltrans.StationStatusURL,
			cfg.Providers.Caltrans.QuickMapKMLURL,
		),
		caltrans.WithDistricts(
			cfg.Providers.Caltrans.ChainControlDistricts,
			cfg.Providers.Caltrans.StationDistricts,
		),
	)
	googleClient := google.NewClient(cfg.Providers.Google.APIKey)

	condenser := alerts.NewCondenser(cfg.Alerts.OpenAIAPIKey, cfg.Alerts.Model)
	if condenser.Enabled() {
		log.Printf("Alert condensing enabled (model: %s)", cfg.Alerts.Model)
	} else {
		log.Printf("Alert condensing disabled: no OpenAI API key configured")
	}

	refresher := services.NewRoadFeedRefresher(caltransClient, cfg.Providers.Caltrans.CacheTTL)
	refresher.Start(context.Background())

	fetcher := services.NewFetcher(nwsClient, openMeteoClient, tomorrowClient, caltransClient, cfg.Providers.Tomorrow.MaxSamples)
	planner := services.NewPlanner(openMeteoClient, cfg.Waypoints.StationMatchRadiusMiles)
	trips := services.NewTripService(googleClient, caltransClient, fetcher, planner, condenser, store, cfg)
	handler := server.New(trips, cfg)

	log.Printf("Drive weather server starting")

	// The listen port itself comes from prefab.yaml / env vars.
	srv := prefab.New(
		prefab.WithHTTPHandlerFunc("/", homepageHandler),
		prefab.WithHTTPHandlerFunc("/api/route-weather", handler.RouteWeather),
		prefab.WithHTTPHandlerFunc("/api/route-weather.kml", handler.RouteWeatherKML),
	)
	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// loadConfig overlays prefab.yaml / environment values onto the built-in
// defaults, section by section.
func loadConfig() *config.Config {
	cfg := config.DefaultConfig()

	sections := map[string]interface{}{
		"app.server":     &cfg.Server,
		"app.providers":  &cfg.Providers,
		"app.waypoints":  &cfg.Waypoints,
		"app.rest_stops": &cfg.RestStops,
		"app.alerts":     &cfg.Alerts,
	}
	for key, target := range sections {
		if err := prefab.Config.Unmarshal(key, target); err != nil {
			log.Fatalf("Failed to unmarshal config section %s: %v", key, err)
		}
	}
	return cfg
}

// homepageHandler serves a plain-text index at the server root.
func homepageHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	body := `driveweather.app

Route weather planner for Sierra Nevada driving.

Endpoints:
  GET /api/route-weather?origin=...&destination=...&departure=<ISO 8601>
  GET /api/route-weather.kml?origin=...&destination=...&departure=<ISO 8601>

Data sources:
  - Google Routes & Places
  - National Weather Service
  - Open-Meteo
  - Tomorrow.io
  - Caltrans CWWP2 / QuickMap
`
	if _, err := fmt.Fprint(w, body); err != nil {
		log.Printf("Failed to write homepage: %v", err)
	}
}
