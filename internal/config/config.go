package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Environment string `yaml:"app_env"`
	LogLevel    string `yaml:"log_level"`

	Store       string `yaml:"store"`
	DatabaseURL string `yaml:"database_url"`
	SQLitePath  string `yaml:"sqlite_path"`

	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`

	RedisAddr          string   `yaml:"redis_addr"`
	RateLimitCapacity  int      `yaml:"rate_limit_capacity"`
	RateLimitRefillSec float64  `yaml:"rate_limit_refill_per_sec"`
	MaxBodyBytes       int64    `yaml:"max_body_bytes"`
	IPAllowlist        []string `yaml:"ip_allowlist"`

	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`
	TLSCA   string `yaml:"tls_ca"`

	AuditLogPath string `yaml:"audit_log_path"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Environment:        "development",
		LogLevel:           "info",
		Store:              "sqlite",
		SQLitePath:         "data/ledger.db",
		HTTPAddr:           ":8080",
		GRPCAddr:           ":9090",
		RateLimitCapacity:  60,
		RateLimitRefillSec: 1,
		MaxBodyBytes:       1 << 20,
	}
}

// Load builds the configuration from, in increasing precedence: defaults, the
// YAML file named by LEDGER_CONFIG, and the environment. envFiles are loaded
// into the environment first; without arguments a .env in the working
// directory is used when present.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Defaults()
	if path := os.Getenv("LEDGER_CONFIG"); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Environment, "APP_ENV")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Store, "LEDGER_STORE")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.SQLitePath, "SQLITE_PATH")
	setString(&c.HTTPAddr, "HTTP_ADDR")
	setString(&c.GRPCAddr, "GRPC_ADDR")
	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.TLSCert, "API_TLS_CERT")
	setString(&c.TLSKey, "API_TLS_KEY")
	setString(&c.TLSCA, "API_TLS_CA")
	setString(&c.AuditLogPath, "AUDIT_LOG_PATH")

	if v := os.Getenv("API_IP_ALLOWLIST"); v != "" {
		c.IPAllowlist = nil
		for _, cidr := range strings.Split(v, ",") {
			if cidr = strings.TrimSpace(cidr); cidr != "" {
				c.IPAllowlist = append(c.IPAllowlist, cidr)
			}
		}
	}

	var errs []string
	if v := os.Getenv("API_RATE_LIMIT_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, "API_RATE_LIMIT_CAPACITY must be an integer")
		}
		c.RateLimitCapacity = n
	}
	if v := os.Getenv("API_RATE_LIMIT_REFILL_PER_SEC"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, "API_RATE_LIMIT_REFILL_PER_SEC must be a number")
		}
		c.RateLimitRefillSec = f
	}
	if v := os.Getenv("API_MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, "API_MAX_BODY_BYTES must be an integer")
		}
		c.MaxBodyBytes = n
	}
	if len(errs) > 0 {
		return errors.New("invalid environment variables: " + strings.Join(errs, "; "))
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

// Validate checks that the configuration is valid and reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	switch c.Store {
	case "postgres":
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required for the postgres store")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			problems = append(problems, "SQLITE_PATH is required for the sqlite store")
		}
	case "memory":
	default:
		problems = append(problems, fmt.Sprintf("LEDGER_STORE %q must be postgres, sqlite or memory", c.Store))
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}

	if c.Environment == "production" && c.AuditLogPath == "" {
		problems = append(problems, "AUDIT_LOG_PATH is required in production")
	}

	set := 0
	for _, f := range []string{c.TLSCert, c.TLSKey, c.TLSCA} {
		if f != "" {
			set++
		}
	}
	if set != 0 && set != 3 {
		problems = append(problems, "API_TLS_CERT, API_TLS_KEY and API_TLS_CA must be set together")
	}

	for _, cidr := range c.IPAllowlist {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			problems = append(problems, fmt.Sprintf("API_IP_ALLOWLIST entry %q is not a CIDR", cidr))
		}
	}

	if c.MaxBodyBytes <= 0 {
		problems = append(problems, "API_MAX_BODY_BYTES must be positive")
	}
	if c.RedisAddr != "" && (c.RateLimitCapacity <= 0 || c.RateLimitRefillSec <= 0) {
		problems = append(problems, "rate limit capacity and refill must be positive when REDIS_ADDR is set")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

// TLSEnabled reports whether certificate files are configured.
func (c *Config) TLSEnabled() bool {
	return c.TLSCert != "" && c.TLSKey != "" && c.TLSCA != ""
}

// DSN returns the connection string of the configured store.
func (c *Config) DSN() string {
	if c.Store == "postgres" {
		return c.DatabaseURL
	}
	return c.SQLitePath
}

// ParseLevel maps a LOG_LEVEL value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q must be debug, info, warn or error", s)
	}
	return l, nil
}

// NewLogger builds the JSON logger servers write to stdout.
func (c *Config) NewLogger() *slog.Logger {
	level, _ := ParseLevel(c.LogLevel)
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
