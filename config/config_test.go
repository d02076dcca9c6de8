package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/crew-ledger/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("DB_PATH", "")
	t.Setenv("DIGEST_SCHEDULE", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "crew.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "0 7 * * *", cfg.Digest.Schedule)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("DB_PATH", "env.db")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("DIGEST_SCHEDULE", "")

	cfg, err := config.Load([]string{"-port", "3000", "-db", ":memory:"})
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.App.Port)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("DIGEST_SCHEDULE", "")
	t.Setenv("APP_PORT", "eighty")
	_, err := config.Load(nil)
	assert.Error(t, err)

	t.Setenv("APP_PORT", "8080")
	t.Setenv("LOG_LEVEL", "chatty")
	_, err = config.Load(nil)
	assert.ErrorContains(t, err, "LOG_LEVEL")

	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DIGEST_SCHEDULE", "every day")
	_, err = config.Load(nil)
	assert.ErrorContains(t, err, "DIGEST_SCHEDULE")
}

func TestValidate(t *testing.T) {
	cfg := &config.Config{
		App:      config.AppConfig{Port: 8080},
		Database: config.DatabaseConfig{Path: ":memory:"},
		Log:      config.LogConfig{Level: "info", Format: "json"},
	}
	assert.NoError(t, cfg.Validate())

	cfg.Log.Format = "xml"
	assert.Error(t, cfg.Validate())

	cfg.Log.Format = "console"
	cfg.App.Port = 0
	assert.Error(t, cfg.Validate())
}
