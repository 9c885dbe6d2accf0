package config

import "time"

// Config represents the complete server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Waypoints WaypointsConfig `yaml:"waypoints"`
	RestStops RestStopsConfig `yaml:"rest_stops"`
	Alerts    AlertsConfig    `yaml:"alerts"`
}

// ServerConfig holds server-specific settings. The listen port itself is
// owned by the prefab server configuration.
type ServerConfig struct {
	CorsOrigins []string `yaml:"cors_origins"`
	Timezone    string   `yaml:"timezone"`
}

// ProvidersConfig groups the upstream data providers.
type ProvidersConfig struct {
	Google    GoogleConfig    `yaml:"google"`
	NWS       NWSConfig       `yaml:"nws"`
	OpenMeteo OpenMeteoConfig `yaml:"open_meteo"`
	Tomorrow  TomorrowConfig  `yaml:"tomorrow"`
	Caltrans  CaltransConfig  `yaml:"caltrans"`
}

// GoogleConfig holds Google Routes and Places API settings.
type GoogleConfig struct {
	APIKey string `yaml:"api_key"`
}

// NWSConfig holds National Weather Service API settings.
type NWSConfig struct {
	UserAgent      string        `yaml:"user_agent"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	MaxConcurrency int64         `yaml:"max_concurrency"`
}

// OpenMeteoConfig holds Open-Meteo API settings.
type OpenMeteoConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// TomorrowConfig holds Tomorrow.io API settings. MaxSamples bounds the route
// to a handful of spatially-spread calls per request.
type TomorrowConfig struct {
	APIKey         string        `yaml:"api_key"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	MaxConcurrency int64         `yaml:"max_concurrency"`
	MaxSamples     int           `yaml:"max_samples"`
}

// CaltransConfig holds Caltrans CWWP2 feed settings. URL templates take the
// district number in a {district} placeholder.
type CaltransConfig struct {
	ChainControlURL       string        `yaml:"chain_control_url"`
	StationStatusURL      string        `yaml:"station_status_url"`
	ChainControlDistricts []int         `yaml:"chain_control_districts"`
	StationDistricts      []int         `yaml:"station_districts"`
	QuickMapKMLURL        string        `yaml:"quickmap_kml_url"`
	CacheTTL              time.Duration `yaml:"cache_ttl"`
}

// WaypointsConfig holds the waypoint placement tunables, in miles.
type WaypointsConfig struct {
	FillIntervalMiles       float64 `yaml:"fill_interval_miles"`
	StationSnapRadiusMiles  float64 `yaml:"station_snap_radius_miles"`
	StationMatchRadiusMiles float64 `yaml:"station_match_radius_miles"`
	MinStationSpacingMiles  float64 `yaml:"min_station_spacing_miles"`
	GapFillThresholdMiles   float64 `yaml:"gap_fill_threshold_miles"`
}

// RestStopsConfig holds the rest-stop planner settings.
type RestStopsConfig struct {
	IntervalMinutes int `yaml:"interval_minutes"`
	DurationMinutes int `yaml:"duration_minutes"`
}

// AlertsConfig holds the optional alert condenser settings. With an empty
// API key the condenser is inert and alerts pass through unmodified.
type AlertsConfig struct {
	OpenAIAPIKey string        `yaml:"openai_api_key"`
	Model        string        `yaml:"model"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			CorsOrigins: []string{"*"},
			Timezone:    "America/Los_Angeles",
		},
		Providers: ProvidersConfig{
			NWS: NWSConfig{
				UserAgent:      "drive-weather/1.0 (contact@driveweather.app)",
				CacheTTL:       time.Hour,
				MaxConcurrency: 5,
			},
			OpenMeteo: OpenMeteoConfig{
				CacheTTL: time.Hour,
			},
			Tomorrow: TomorrowConfig{
				CacheTTL:       time.Hour,
				MaxConcurrency: 3,
				MaxSamples:     5,
			},
			Caltrans: CaltransConfig{
				ChainControlURL:       "https://cwwp2.dot.ca.gov/data/d{district}/cc/ccStatusD{district}.json",
				StationStatusURL:      "https://cwwp2.dot.ca.gov/data/d{district}/rwis/rwisStatusD{district}.json",
				ChainControlDistricts: []int{1, 2, 3, 6, 7, 8, 9, 10, 11},
				StationDistricts:      []int{2, 3, 6, 8, 9, 10},
				QuickMapKMLURL:        "https://quickmap.dot.ca.gov/data/cc.kml",
				CacheTTL:              time.Hour,
			},
		},
		Waypoints: WaypointsConfig{
			FillIntervalMiles:       15,
			StationSnapRadiusMiles:  15,
			StationMatchRadiusMiles: 15,
			MinStationSpacingMiles:  5,
			GapFillThresholdMiles:   30,
		},
		RestStops: RestStopsConfig{
			IntervalMinutes: 60,
			DurationMinutes: 20,
		},
		Alerts: AlertsConfig{
			Model:    "gpt-4o-mini",
			CacheTTL: 24 * time.Hour,
		},
	}
}
