package utils

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvTesting     = "testing"
	EnvProduction  = "production"
)

// DefaultRateLimits mirrors the limits the service has always shipped with.
const DefaultRateLimits = "200 per day; 50 per hour"

type Config struct {
	Env             string        `toml:"env"`
	Addr            string        `toml:"addr"`
	DatabaseURL     string        `toml:"database_url"`
	DBMaxConns      int32         `toml:"db_max_conns"`
	DBMinConns      int32         `toml:"db_min_conns"`
	RedisURL        string        `toml:"redis_url"`
	RateLimits      string        `toml:"rate_limits"`
	CORSOrigins     []string      `toml:"cors_origins"`
	TrustedProxies  []string      `toml:"trusted_proxies"`
	LogLevel        string        `toml:"log_level"`
	LogFormat       string        `toml:"log_format"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	RequestTimeout  time.Duration `toml:"request_timeout"`

	// Limits and Proxies are RateLimits and TrustedProxies parsed; filled in
	// by ReadConfig.
	Limits  []RateLimit    `toml:"-"`
	Proxies []netip.Prefix `toml:"-"`
}

// RateLimit allows Requests per Window for one client.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

func (l RateLimit) String() string {
	return fmt.Sprintf("%d per %s", l.Requests, windowName(l.Window))
}

func DefaultConfig() Config {
	return Config{
		Env:             EnvDevelopment,
		Addr:            ":8080",
		DBMaxConns:      20,
		DBMinConns:      2,
		RateLimits:      DefaultRateLimits,
		CORSOrigins:     []string{"*"},
		LogLevel:        "info",
		LogFormat:       "text",
		ShutdownTimeout: 10 * time.Second,
		RequestTimeout:  10 * time.Second,
	}
}

// LoadConfig loads .env outside production, then builds the config from the
// optional CONFIG_FILE and the process environment.
func LoadConfig() (Config, error) {
	if os.Getenv("APP_ENV") != EnvProduction {
		if err := godotenv.Load(); err != nil {
			log.Debug("no .env file found, continuing")
		}
	}
	return ReadConfig(os.Getenv)
}

// ReadConfig layers defaults, the TOML file named by CONFIG_FILE and the
// environment, in that order.
func ReadConfig(getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()

	if path := getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return cfg, err
	}

	limits, err := ParseRateLimits(cfg.RateLimits)
	if err != nil {
		return cfg, err
	}
	cfg.Limits = limits

	proxies, err := ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return cfg, err
	}
	cfg.Proxies = proxies

	if cfg.Env == EnvProduction && getenv("LOG_FORMAT") == "" && cfg.LogFormat == "text" {
		cfg.LogFormat = "json"
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setString("APP_ENV", &cfg.Env)
	setString("ADDR", &cfg.Addr)
	setString("DATABASE_URL", &cfg.DatabaseURL)
	setString("REDIS_URL", &cfg.RedisURL)
	setString("RATE_LIMITS", &cfg.RateLimits)
	setString("LOG_LEVEL", &cfg.LogLevel)
	setString("LOG_FORMAT", &cfg.LogFormat)

	if v := getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if v := getenv("TRUSTED_PROXIES"); v != "" {
		cfg.TrustedProxies = splitList(v)
	}

	for key, dst := range map[string]*int32{
		"DB_MAX_CONNS": &cfg.DBMaxConns,
		"DB_MIN_CONNS": &cfg.DBMinConns,
	} {
		v := getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid %s %q", key, v)
		}
		*dst = int32(n)
	}

	for key, dst := range map[string]*time.Duration{
		"SHUTDOWN_TIMEOUT": &cfg.ShutdownTimeout,
		"REQUEST_TIMEOUT":  &cfg.RequestTimeout,
	} {
		v := getenv(key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = d
	}
	return nil
}

// RequireDatabase reports a missing DATABASE_URL.
func (c Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	return nil
}

// ParseRateLimits parses limits such as "200 per day; 50 per hour". Entries
// are separated by ';' or ','. An empty string disables rate limiting.
func ParseRateLimits(s string) ([]RateLimit, error) {
	var limits []RateLimit
	for _, part := range splitList(strings.ReplaceAll(s, ";", ",")) {
		fields := strings.Fields(part)
		if len(fields) != 3 || fields[1] != "per" {
			return nil, fmt.Errorf("invalid rate limit %q: want \"N per unit\"", part)
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid rate limit %q: count must be a positive integer", part)
		}
		window, ok := windowUnits[strings.TrimSuffix(fields[2], "s")]
		if !ok {
			return nil, fmt.Errorf("invalid rate limit %q: unknown unit %q", part, fields[2])
		}
		limits = append(limits, RateLimit{Requests: n, Window: window})
	}
	return limits, nil
}

var windowUnits = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
}

func windowName(d time.Duration) string {
	for name, unit := range windowUnits {
		if unit == d {
			return name
		}
	}
	return d.String()
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
