package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	Backend      BackendConfig      `mapstructure:"backend"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Routing      RoutingConfig      `mapstructure:"routing"`
	Map          MapConfig          `mapstructure:"map"`
	Availability AvailabilityConfig `mapstructure:"availability"`
	Database     DatabaseConfig     `mapstructure:"database"`
	NATS         NATSConfig         `mapstructure:"nats"`
	Valkey       ValkeyConfig       `mapstructure:"valkey"`
	Temporal     TemporalConfig     `mapstructure:"temporal"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BackendConfig points at the external Parkit backend.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AuthConfig holds the HS256 key the backend signs user tokens with.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type RoutingConfig struct {
	OSRMURL      string        `mapstructure:"osrm_url"`
	NominatimURL string        `mapstructure:"nominatim_url"`
	UserAgent    string        `mapstructure:"user_agent"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// MapConfig tunes the viewport query synchronizer.
type MapConfig struct {
	Debounce       time.Duration `mapstructure:"debounce"`
	NearbyLimit    int           `mapstructure:"nearby_limit"`
	MinRadiusKm    float64       `mapstructure:"min_radius_km"`
	MaxRadiusKm    float64       `mapstructure:"max_radius_km"`
	SearchRadiusKm float64       `mapstructure:"search_radius_km"`
	RouteBufferKm  float64       `mapstructure:"route_buffer_km"`
	RouteLimit     int           `mapstructure:"route_limit"`
	MarkerStagger  time.Duration `mapstructure:"marker_stagger"`
	NearbyCacheTTL time.Duration `mapstructure:"nearby_cache_ttl"`
}

type AvailabilityConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Timezone string        `mapstructure:"timezone"`
}

// Location resolves the configured timezone for slot dates.
func (a AvailabilityConfig) Location() (*time.Location, error) {
	return time.LoadLocation(a.Timezone)
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	// The ledger is written once per booking submission; a small pool is enough.
	MaxConns        int32         `mapstructure:"max_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
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

type TemporalConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("backend.base_url", "http://localhost:4000")
	v.SetDefault("backend.timeout", "10s")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("routing.osrm_url", "https://router.project-osrm.org")
	v.SetDefault("routing.nominatim_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("routing.user_agent", "parkit-gateway/1.0")
	v.SetDefault("routing.timeout", "10s")
	v.SetDefault("map.debounce", "500ms")
	v.SetDefault("map.nearby_limit", 100)
	v.SetDefault("map.min_radius_km", 0.5)
	v.SetDefault("map.max_radius_km", 50)
	v.SetDefault("map.search_radius_km", 5)
	v.SetDefault("map.route_buffer_km", 2)
	v.SetDefault("map.route_limit", 50)
	v.SetDefault("map.marker_stagger", "50ms")
	v.SetDefault("map.nearby_cache_ttl", "60s")
	v.SetDefault("availability.cache_ttl", "30s")
	v.SetDefault("availability.timezone", "Europe/Madrid")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "parkit")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "parkit")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("temporal.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "availability-refresh")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig()

	// Environment variables: PARKIT_BACKEND_BASE_URL → backend.base_url
	v.SetEnvPrefix("PARKIT")
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
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if u, err := url.Parse(c.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("backend.base_url must be an absolute URL, got %q", c.Backend.BaseURL))
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, "backend.timeout must be positive")
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, "auth.jwt_secret is required")
	}
	if c.Map.Debounce <= 0 {
		errs = append(errs, "map.debounce must be positive")
	}
	if c.Map.MinRadiusKm <= 0 || c.Map.MaxRadiusKm < c.Map.MinRadiusKm {
		errs = append(errs, "map radius bounds must satisfy 0 < min_radius_km <= max_radius_km")
	}
	if c.Map.NearbyLimit <= 0 {
		errs = append(errs, "map.nearby_limit must be positive")
	}
	if c.Map.RouteBufferKm <= 0 || c.Map.RouteLimit <= 0 {
		errs = append(errs, "map.route_buffer_km and map.route_limit must be positive")
	}
	if _, err := c.Availability.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("availability.timezone: %v", err))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be positive, got %d", c.Database.MaxConns))
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Temporal.Enabled && c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required when temporal is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
