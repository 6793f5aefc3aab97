package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Valkey      ValkeyConfig      `mapstructure:"valkey"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	RoadNetwork RoadNetworkConfig `mapstructure:"roadnetwork"`
	Places      ProviderConfig    `mapstructure:"places"`
	Directions  ProviderConfig    `mapstructure:"directions"`
	Synthesis   SynthesisConfig   `mapstructure:"synthesis"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// RoadNetworkConfig points at the road dataset loaded on startup.
type RoadNetworkConfig struct {
	DatasetPath string  `mapstructure:"dataset_path"`
	SnapRadiusM float64 `mapstructure:"snap_radius_m"`
}

// ProviderConfig configures one external HTTP provider.
type ProviderConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

// SynthesisConfig tunes the itinerary synthesis engine.
type SynthesisConfig struct {
	Lambda                  float64 `mapstructure:"lambda"`
	TopCourses              int     `mapstructure:"top_courses"`
	CandidatesPerStep       int     `mapstructure:"candidates_per_step"`
	SearchRadiusM           float64 `mapstructure:"search_radius_m"`
	MinCandidateSeparationM float64 `mapstructure:"min_candidate_separation_m"`
	WalkingSpeedKmh         float64 `mapstructure:"walking_speed_kmh"`
	RestaurantGapMin        int     `mapstructure:"restaurant_gap_min"`
	MinVenueRating          float64 `mapstructure:"min_venue_rating"`
	FullScanNodeLimit       int     `mapstructure:"full_scan_node_limit"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "topagune")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "topagune")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("roadnetwork.dataset_path", "data/roadnetwork.json")
	v.SetDefault("roadnetwork.snap_radius_m", 2000)
	v.SetDefault("places.base_url", "http://localhost:9151")
	v.SetDefault("places.timeout_sec", 5)
	v.SetDefault("directions.base_url", "http://localhost:9152")
	v.SetDefault("directions.timeout_sec", 5)
	v.SetDefault("synthesis.lambda", 0.0005)
	v.SetDefault("synthesis.top_courses", 5)
	v.SetDefault("synthesis.candidates_per_step", 5)
	v.SetDefault("synthesis.search_radius_m", 1200)
	v.SetDefault("synthesis.min_candidate_separation_m", 400)
	v.SetDefault("synthesis.walking_speed_kmh", 4.8)
	v.SetDefault("synthesis.restaurant_gap_min", 300)
	v.SetDefault("synthesis.min_venue_rating", 3.5)
	v.SetDefault("synthesis.full_scan_node_limit", 50000)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: TOPAGUNE_DATABASE_HOST → database.host
	v.SetEnvPrefix("TOPAGUNE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.RoadNetwork.DatasetPath == "" {
		errs = append(errs, "roadnetwork.dataset_path is required")
	}
	if c.RoadNetwork.SnapRadiusM <= 0 {
		errs = append(errs, "roadnetwork.snap_radius_m must be positive")
	}
	if c.Places.BaseURL == "" {
		errs = append(errs, "places.base_url is required")
	}
	if c.Directions.BaseURL == "" {
		errs = append(errs, "directions.base_url is required")
	}
	if c.Synthesis.Lambda <= 0 {
		errs = append(errs, "synthesis.lambda must be positive")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
