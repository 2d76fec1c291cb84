package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"APP_ENV", "LOG_LEVEL", "LEDGER_STORE", "DATABASE_URL", "SQLITE_PATH", "HTTP_ADDR", "GRPC_ADDR",
	"REDIS_ADDR", "API_RATE_LIMIT_CAPACITY", "API_RATE_LIMIT_REFILL_PER_SEC", "API_MAX_BODY_BYTES",
	"API_IP_ALLOWLIST", "API_TLS_CERT", "API_TLS_KEY", "API_TLS_CA", "AUDIT_LOG_PATH", "LEDGER_CONFIG",
}

// clearEnv unsets every configuration key for the duration of the test and
// moves into an empty directory so no stray .env is picked up.
func clearEnv(t *testing.T) string {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store)
	assert.Equal(t, "data/ledger.db", cfg.DSN())
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	assert.False(t, cfg.TLSEnabled())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := clearEnv(t)
	path := filepath.Join(dir, "ledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store: postgres
database_url: postgres://ledger@localhost/ledger
http_addr: ":9000"
ip_allowlist:
  - 10.0.0.0/8
rate_limit_capacity: 10
`), 0o600))

	t.Setenv("LEDGER_CONFIG", path)
	t.Setenv("HTTP_ADDR", ":9100")
	t.Setenv("API_IP_ALLOWLIST", "127.0.0.1/32, 192.168.0.0/16")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store)
	assert.Equal(t, "postgres://ledger@localhost/ledger", cfg.DSN())
	assert.Equal(t, ":9100", cfg.HTTPAddr)
	assert.Equal(t, []string{"127.0.0.1/32", "192.168.0.0/16"}, cfg.IPAllowlist)
	assert.Equal(t, 10, cfg.RateLimitCapacity)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := clearEnv(t)
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("LEDGER_STORE=memory\nLOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("LEDGER_STORE")
		os.Unsetenv("LOG_LEVEL")
	})

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store)

	level, err := ParseLevel(cfg.LogLevel)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	_, err = Load(filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}

func TestLoad_InvalidNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_MAX_BODY_BYTES", "lots")

	_, err := Load()
	assert.ErrorContains(t, err, "API_MAX_BODY_BYTES")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr []string
	}{
		{"defaults", func(c *Config) {}, nil},
		{"postgres without url", func(c *Config) { c.Store = "postgres" }, []string{"DATABASE_URL"}},
		{"sqlite without path", func(c *Config) { c.SQLitePath = "" }, []string{"SQLITE_PATH"}},
		{"unknown store", func(c *Config) { c.Store = "mongo" }, []string{"LEDGER_STORE"}},
		{"production without audit", func(c *Config) { c.Environment = "production" }, []string{"AUDIT_LOG_PATH"}},
		{"partial tls", func(c *Config) { c.TLSCert = "cert.pem" }, []string{"API_TLS_CERT"}},
		{"bad cidr", func(c *Config) { c.IPAllowlist = []string{"10.0.0.1"} }, []string{"API_IP_ALLOWLIST"}},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, []string{"LOG_LEVEL"}},
		{
			"reports everything",
			func(c *Config) {
				c.Store = "postgres"
				c.Environment = "production"
				c.MaxBodyBytes = 0
			},
			[]string{"DATABASE_URL", "AUDIT_LOG_PATH", "API_MAX_BODY_BYTES"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
