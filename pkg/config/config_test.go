package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(TokenEnv, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), quietLogger())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	t.Setenv(TokenEnv, "")
	path := writeConfig(t, `
addr: ":9000"
log_level: debug
workers: 2
check_interval: 10m
api:
  base_url: https://example.test/api
  token: from-file
  rate_per_second: 0.5
  date_from: "2015-01-01"
store:
  path: /tmp/canon.db
  cache_ttl: 30m
`)
	cfg, err := Load(path, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 10*time.Minute, cfg.CheckInterval)
	assert.Equal(t, "from-file", cfg.API.Token)
	assert.Equal(t, "2015-01-01", cfg.API.DateFrom)
	assert.Equal(t, "2030-12-31", cfg.API.DateTo)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 30*time.Minute, cfg.Store.CacheTTL)

	cc := cfg.ClientConfig(nil, quietLogger())
	assert.Equal(t, rate.Limit(0.5), cc.RateLimit)
	assert.Equal(t, "https://example.test/api", cc.BaseURL)
	assert.Equal(t, 30*time.Minute, cc.CacheTTL)
}

func TestLoad_TokenFromEnv(t *testing.T) {
	t.Setenv(TokenEnv, "from-env")
	path := writeConfig(t, "api:\n  token: from-file\n")
	cfg, err := Load(path, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.API.Token)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv(TokenEnv, "")
	cases := map[string]struct {
		body string
		want error
	}{
		"bad level":      {"log_level: loud\n", ErrInvalid},
		"zero workers":   {"workers: 0\n", ErrInvalid},
		"bad url":        {"api:\n  base_url: not a url\n", ErrInvalid},
		"bad date":       {"api:\n  date_from: 01/02/2015\n", ErrInvalid},
		"zero rate":      {"api:\n  rate_per_second: 0\n", ErrInvalid},
		"empty addr":     {"addr: \"\"\n", ErrInvalid},
		"reversed range": {"api:\n  date_from: \"2020-01-01\"\n  date_to: \"2019-01-01\"\n", ErrDateRange},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body), quietLogger())
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := Load(writeConfig(t, "addr: [unterminated\n"), quietLogger())
	assert.Error(t, err)
}

func TestLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		assert.Equal(t, want, Config{LogLevel: in}.Level(), in)
	}
}
