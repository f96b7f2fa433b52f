package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Overpass  OverpassConfig  `mapstructure:"overpass"`
	Scan      ScanConfig      `mapstructure:"scan"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	AllowOrigins string `mapstructure:"allow_origins"`
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
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.DBName,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
	// GeometryTTL bounds how long shared geometry entries live. Zero keeps
	// them until evicted.
	GeometryTTL time.Duration `mapstructure:"geometry_ttl"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type OverpassConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ScanConfig struct {
	MaxDistanceMeters float64       `mapstructure:"max_distance_meters"`
	IterationDelay    time.Duration `mapstructure:"iteration_delay"`
	WarmConcurrency   int           `mapstructure:"warm_concurrency"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: PARA_DATABASE_HOST → database.host
	v.SetEnvPrefix("PARA")
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

// Every key needs a default for AutomaticEnv to pick it up on Unmarshal.
func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 120)
	v.SetDefault("server.allow_origins", "http://localhost:3000, http://localhost:5173, https://*.para.ph")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "para")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "para")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.geometry_ttl", "168h")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("overpass.url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.timeout", "30s")
	v.SetDefault("scan.max_distance_meters", 100)
	v.SetDefault("scan.iteration_delay", "100ms")
	v.SetDefault("scan.warm_concurrency", 4)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []string
	require := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Sprintf(format, args...))
		}
	}

	require(validPort(c.Server.Port), "server.port must be 1-65535, got %d", c.Server.Port)
	require(c.Server.ReadTimeout > 0, "server.read_timeout must be positive")
	require(c.Server.WriteTimeout > 0, "server.write_timeout must be positive")

	require(c.Database.Host != "", "database.host is required")
	require(validPort(c.Database.Port), "database.port must be 1-65535, got %d", c.Database.Port)
	require(c.Database.User != "", "database.user is required")
	require(c.Database.DBName != "", "database.dbname is required")

	require(c.NATS.URL != "", "nats.url is required")
	require(c.Valkey.Addr != "", "valkey.addr is required")
	require(c.Valkey.GeometryTTL >= 0, "valkey.geometry_ttl must not be negative")

	u, err := url.Parse(c.Overpass.URL)
	require(err == nil && u.Scheme != "" && u.Host != "", "overpass.url must be an absolute URL, got %q", c.Overpass.URL)
	require(c.Overpass.Timeout > 0, "overpass.timeout must be positive")

	require(c.Scan.MaxDistanceMeters > 0, "scan.max_distance_meters must be positive")
	require(c.Scan.IterationDelay >= 0, "scan.iteration_delay must not be negative")
	require(c.Scan.WarmConcurrency > 0, "scan.warm_concurrency must be positive")

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validPort(p int) bool { return p > 0 && p <= 65535 }
