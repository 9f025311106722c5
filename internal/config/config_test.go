package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{"PORT", "DB_PATH", "LOG_LEVEL", "LOG_FORMAT", "LOG_FILE", "CLEANUP_INTERVAL", "SESSION_MAX_AGE"}

// clearEnv unsets every key; t.Setenv restores the previous values.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), c)
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "games.db", c.DBPath)
	assert.Equal(t, logrus.InfoLevel, c.LogLevel)
	assert.Equal(t, time.Minute, c.CleanupInterval)
	assert.Equal(t, time.Hour, c.SessionMaxAge)
}

func TestFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("DB_PATH", "/tmp/x.db")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_FILE", "/tmp/arcade.log")
	t.Setenv("CLEANUP_INTERVAL", "30s")
	t.Setenv("SESSION_MAX_AGE", "2h")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, Config{
		Port:            "9000",
		DBPath:          "/tmp/x.db",
		LogLevel:        logrus.DebugLevel,
		LogFormat:       "json",
		LogFile:         "/tmp/arcade.log",
		CleanupInterval: 30 * time.Second,
		SessionMaxAge:   2 * time.Hour,
	}, c)
}

func TestFromEnvErrors(t *testing.T) {
	cases := map[string]string{
		"LOG_LEVEL":        "loud",
		"LOG_FORMAT":       "xml",
		"CLEANUP_INTERVAL": "soon",
		"SESSION_MAX_AGE":  "-1h",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := FromEnv()
			assert.ErrorContains(t, err, key)
		})
	}
}

func TestLoadDotenv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=7000\nDB_PATH=from-file.db\n"), 0o600))
	t.Setenv("DB_PATH", "from-env.db")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7000", c.Port)
	assert.Equal(t, "from-env.db", c.DBPath)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)

	c, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), c)
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	c := Defaults()
	c.LogFormat = "json"
	c.LogLevel = logrus.WarnLevel

	log := c.Logger(&buf)
	log.Info("hidden")
	log.WithField("session", "abc123").Warn("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "abc123", entry["session"])
}
