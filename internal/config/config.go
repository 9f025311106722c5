// Package config reads process settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the settings shared by the binaries.
type Config struct {
	Port            string
	DBPath          string
	LogLevel        logrus.Level
	LogFormat       string // "text" or "json"
	LogFile         string // empty: the binary's default sink
	CleanupInterval time.Duration
	SessionMaxAge   time.Duration
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:            "8080",
		DBPath:          "games.db",
		LogLevel:        logrus.InfoLevel,
		LogFormat:       "text",
		CleanupInterval: time.Minute,
		SessionMaxAge:   time.Hour,
	}
}

// Load reads the given dotenv files (".env" when none are named) into the
// environment, then parses it. Missing files are skipped; variables already
// set in the environment win over file values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv parses the environment over the defaults.
func FromEnv() (Config, error) {
	c := Defaults()
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		lvl, err := logrus.ParseLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		c.LogLevel = lvl
	}
	c.LogFile = os.Getenv("LOG_FILE")
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		if v != "text" && v != "json" {
			return Config{}, fmt.Errorf("LOG_FORMAT: want text or json, got %q", v)
		}
		c.LogFormat = v
	}
	var err error
	if c.CleanupInterval, err = duration("CLEANUP_INTERVAL", c.CleanupInterval); err != nil {
		return Config{}, err
	}
	if c.SessionMaxAge, err = duration("SESSION_MAX_AGE", c.SessionMaxAge); err != nil {
		return Config{}, err
	}
	return c, nil
}

func duration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", key, d)
	}
	return d, nil
}

// Logger builds a logger writing to out with the configured level and format.
func (c Config) Logger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(c.LogLevel)
	if c.LogFormat == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}
