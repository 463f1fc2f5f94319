package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigFile_Defaults(t *testing.T) {
	cfg, err := LoadConfigFile(writeConfig(t, "env: development\n"))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 30*time.Second, cfg.Database.WatchInterval)
	assert.Equal(t, "icu-api", cfg.JWT.Issuer)
	assert.Equal(t, 24, cfg.JWT.ExpiryHours)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 10, cfg.Seed.Beds)
	assert.Equal(t, "icu_api", cfg.Metrics.Namespace)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigFile_Values(t *testing.T) {
	cfg, err := LoadConfigFile(writeConfig(t, `
server:
  port: 8081
  request_timeout: 5s
database:
  driver: memory
rate_limit:
  burst: 3
cors:
  allowed_origins:
    - https://icu.example.org
`))
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, 3, cfg.RateLimit.Burst)
	assert.Equal(t, []string{"https://icu.example.org"}, cfg.CORS.AllowedOrigins)
}

func TestLoadConfigFile_EnvOverrides(t *testing.T) {
	t.Setenv("ICU_SERVER_PORT", "6001")
	t.Setenv("ICU_DATABASE_DRIVER", "memory")

	cfg, err := LoadConfigFile(writeConfig(t, "server:\n  port: 8081\n"))
	require.NoError(t, err)
	assert.Equal(t, 6001, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
}

func TestLoadConfigFile_Missing(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Env:      EnvDevelopment,
			Server:   ServerConfig{Port: 5000},
			Database: DatabaseConfig{Driver: DriverMemory},
		}
	}

	t.Run("valid", func(t *testing.T) {
		cfg := valid()
		require.NoError(t, cfg.Validate())
		assert.Equal(t, 1, cfg.Database.ConnectAttempts)
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := valid()
		cfg.Database.Driver = "mysql"
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("production needs a strong secret", func(t *testing.T) {
		cfg := valid()
		cfg.Env = EnvProduction
		cfg.JWT.Secret = "short"
		assert.Error(t, cfg.Validate())

		cfg.JWT.Secret = "0123456789abcdef0123456789abcdef"
		assert.NoError(t, cfg.Validate())
	})
}

func TestDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5432, User: "icu", Password: "secret", Name: "icu", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=icu password=secret dbname=icu sslmode=disable", cfg.DSN())
}
