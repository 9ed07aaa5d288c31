// Package config loads server configuration from TOML files, a .env file and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration for the server
type Config struct {
	Environment  string         `toml:"environment"`
	BaseCurrency string         `toml:"base_currency"` // currency of every summary/aggregate figure
	Server       ServerConfig   `toml:"server"`
	Auth         AuthConfig     `toml:"auth"`
	Database     DatabaseConfig `toml:"database"`
	Cache        CacheConfig    `toml:"cache"`
	Pricing      PricingConfig  `toml:"pricing"`
	Logging      LoggingConfig  `toml:"logging"`
}

// ServerConfig holds gRPC server configuration
type ServerConfig struct {
	Port int `toml:"port"`
}

// Address returns the listen address for the gRPC server
func (c ServerConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// AuthConfig holds the shared API token expected in request metadata
type AuthConfig struct {
	APIToken string `toml:"api_token"`
}

// DatabaseConfig holds storage configuration
type DatabaseConfig struct {
	Driver   string `toml:"driver"`
	ConnStr  string `toml:"conn_str"`
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
}

// ConnString returns ConnStr when set, otherwise builds it from the individual fields
func (c DatabaseConfig) ConnString() string {
	if c.ConnStr != "" {
		return c.ConnStr
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

// DatabaseConnString returns the postgres connection string for this configuration
func (c *Config) DatabaseConnString() string {
	return c.Database.ConnString()
}

// CacheConfig holds view expiry durations as Go duration strings
type CacheConfig struct {
	AnalyticsTTL string `toml:"analytics_ttl"`
	PriceTTL     string `toml:"price_ttl"`
	ReferenceTTL string `toml:"reference_ttl"`
}

// GetAnalyticsTTL returns the expiry of summary/history/allocation/movers/analytics views
func (c CacheConfig) GetAnalyticsTTL() time.Duration {
	return parseDuration(c.AnalyticsTTL, 5*time.Minute)
}

// GetPriceTTL returns the expiry of cached current prices
func (c CacheConfig) GetPriceTTL() time.Duration {
	return parseDuration(c.PriceTTL, 2*time.Minute)
}

// GetReferenceTTL returns the expiry of long-lived reference views such as asset details
func (c CacheConfig) GetReferenceTTL() time.Duration {
	return parseDuration(c.ReferenceTTL, time.Hour)
}

// PricingConfig holds price refresh configuration
type PricingConfig struct {
	RefreshSchedule   string `toml:"refresh_schedule"`
	RequestsPerSecond int    `toml:"requests_per_second"`
	DefaultPrice      string `toml:"default_price"`
}

// GetDefaultPrice returns the placeholder price stored for assets without any snapshot
func (c PricingConfig) GetDefaultPrice() decimal.Decimal {
	d, err := decimal.NewFromString(c.DefaultPrice)
	if err != nil || !d.IsPositive() {
		return decimal.NewFromInt(100)
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

// NewDefaultConfig returns a configuration with defaults suitable for local development
func NewDefaultConfig() *Config {
	return &Config{
		Environment:  "development",
		BaseCurrency: "TRY",
		Server:       ServerConfig{Port: 8080},
		Auth:         AuthConfig{APIToken: "dev-token"},
		Database: DatabaseConfig{
			Driver:   DriverPostgres,
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			Name:     "investtrack",
		},
		Cache: CacheConfig{
			AnalyticsTTL: "5m",
			PriceTTL:     "2m",
			ReferenceTTL: "1h",
		},
		Pricing: PricingConfig{
			RefreshSchedule:   "@every 5m",
			RequestsPerSecond: 10,
			DefaultPrice:      "100",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load builds the configuration: defaults, then each TOML file in order (missing files
// are skipped, later files override earlier ones), then a .env file if present, then
// environment variables.
func Load(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration for values the server cannot start with
func (c *Config) Validate() error {
	if len(c.BaseCurrency) != 3 {
		return fmt.Errorf("base currency must be a 3-letter code, got %q", c.BaseCurrency)
	}
	if c.Database.Driver != DriverPostgres && c.Database.Driver != DriverMemory {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server port must be positive, got %d", c.Server.Port)
	}
	if c.Pricing.RequestsPerSecond <= 0 {
		return fmt.Errorf("pricing requests_per_second must be positive, got %d", c.Pricing.RequestsPerSecond)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("INVESTTRACK_ENV"); env != "" {
		config.Environment = env
	}
	if cur := os.Getenv("BASE_CURRENCY"); cur != "" {
		config.BaseCurrency = strings.ToUpper(cur)
	}
	if port := os.Getenv("GRPC_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if token := os.Getenv("API_TOKEN"); token != "" {
		config.Auth.APIToken = token
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		config.Database.Driver = driver
	}
	if conn := os.Getenv("DB_CONN_STR"); conn != "" {
		config.Database.ConnStr = conn
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		config.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		config.Database.Port = port
	}
	if user := os.Getenv("DB_USER"); user != "" {
		config.Database.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		config.Database.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		config.Database.Name = name
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if schedule := os.Getenv("PRICE_REFRESH_SCHEDULE"); schedule != "" {
		config.Pricing.RefreshSchedule = schedule
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
