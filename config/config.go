package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongoDB  = "mongodb"
)

// ServerConfig holds all configuration for the server.
// Tags use mapstructure for Viper unmarshalling of config keys and environment variables.
type ServerConfig struct {
	HTTPPort string `mapstructure:"HTTP_PORT"`
	BaseURL  string `mapstructure:"BASE_URL"` // public origin, used as the OAuth issuer

	StoreDriver string `mapstructure:"STORE_DRIVER"`
	DatabaseURL string `mapstructure:"DATABASE_URL"` // sqlite file path or postgres URL
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	RedisURL    string `mapstructure:"REDIS_URL"` // enables the event bridge and shared login state

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`

	OtelExporterEndpoint string `mapstructure:"OTEL_EXPORTER_ENDPOINT"`
	OtelServiceName      string `mapstructure:"OTEL_SERVICE_NAME"`

	GitHubClientID     string `mapstructure:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `mapstructure:"GITHUB_CLIENT_SECRET"`

	SessionTTLHour    int  `mapstructure:"SESSION_TTL_HOUR"`
	AuthCodeTTLMin    int  `mapstructure:"AUTH_CODE_TTL_MIN"`
	AccessTokenTTLMin int  `mapstructure:"ACCESS_TOKEN_TTL_MIN"`
	SweepIntervalMin  int  `mapstructure:"SWEEP_INTERVAL_MIN"` // 0 disables the periodic sweep
	RateLimitPerMin   int  `mapstructure:"RATE_LIMIT_PER_MIN"` // 0 disables rate limiting
	CookieSecure      bool `mapstructure:"COOKIE_SECURE"`

	// Comma separated CIDRs or addresses of reverse proxies whose
	// X-Forwarded-For is believed. Empty means the peer address is the client.
	TrustedProxies string `mapstructure:"TRUSTED_PROXIES"`
}

var defaults = map[string]any{
	"HTTP_PORT":              "8080",
	"BASE_URL":               "http://localhost:8080",
	"STORE_DRIVER":           DriverSQLite,
	"DATABASE_URL":           "taskboard.db",
	"MONGO_URI":              "mongodb://localhost:27017",
	"MONGO_DB_NAME":          "taskboard",
	"REDIS_URL":              "",
	"LOG_LEVEL":              "info",
	"LOG_PRETTY":             false,
	"OTEL_EXPORTER_ENDPOINT": "",
	"OTEL_SERVICE_NAME":      "taskboard",
	"GITHUB_CLIENT_ID":       "",
	"GITHUB_CLIENT_SECRET":   "",
	"SESSION_TTL_HOUR":       24 * 7,
	"AUTH_CODE_TTL_MIN":      10,
	"ACCESS_TOKEN_TTL_MIN":   60,
	"SWEEP_INTERVAL_MIN":     15,
	"RATE_LIMIT_PER_MIN":     120,
	"COOKIE_SECURE":          false,
	"TRUSTED_PROXIES":        "",
}

// LoadConfig reads configuration from file, environment variables, and defaults.
// A missing config file is not an error.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/taskboard/")
	v.AddConfigPath("$HOME/.taskboard")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Every key needs a default so AutomaticEnv picks it up during Unmarshal.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *ServerConfig) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite, DriverPostgres, DriverMongoDB:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.BaseURL == "" {
		return errors.New("BASE_URL is required")
	}
	if c.AuthCodeTTLMin <= 0 || c.AccessTokenTTLMin <= 0 || c.SessionTTLHour <= 0 {
		return errors.New("token and session TTLs must be positive")
	}
	if _, err := c.TrustedProxyRanges(); err != nil {
		return err
	}
	return nil
}

// TrustedProxyRanges parses TrustedProxies. A bare address is a single-host range.
func (c *ServerConfig) TrustedProxyRanges() ([]*net.IPNet, error) {
	var ranges []*net.IPNet
	for _, item := range strings.Split(c.TrustedProxies, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if !strings.Contains(item, "/") {
			ip := net.ParseIP(item)
			if ip == nil {
				return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q", item)
			}
			bits := 8 * net.IPv6len
			if ip4 := ip.To4(); ip4 != nil {
				ip, bits = ip4, 8*net.IPv4len
			}
			ranges = append(ranges, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, ipNet, err := net.ParseCIDR(item)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", item, err)
		}
		ranges = append(ranges, ipNet)
	}
	return ranges, nil
}

func (c *ServerConfig) AuthCodeTTL() time.Duration {
	return time.Duration(c.AuthCodeTTLMin) * time.Minute
}

func (c *ServerConfig) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMin) * time.Minute
}

func (c *ServerConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHour) * time.Hour
}

func (c *ServerConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMin) * time.Minute
}
