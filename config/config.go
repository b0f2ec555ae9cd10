// Package config loads the settings of the flow command from a YAML file, with FLOW_* environment variables taking
// precedence over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ducka/go-flow/instrumentation"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	Log      LogSettings      `yaml:"log"`
	Metrics  MetricsSettings  `yaml:"metrics"`
	Redis    RedisSettings    `yaml:"redis"`
	Postgres PostgresSettings `yaml:"postgres"`
	Demo     DemoSettings     `yaml:"demo"`
}

type LogSettings struct {
	Level  string `yaml:"level" env:"FLOW_LOG_LEVEL"`
	Format string `yaml:"format" env:"FLOW_LOG_FORMAT"`
}

type MetricsSettings struct {
	Enabled bool   `yaml:"enabled" env:"FLOW_METRICS_ENABLED"`
	Address string `yaml:"address" env:"FLOW_METRICS_ADDR"`
}

type RedisSettings struct {
	Addrs  []string `yaml:"addrs" env:"FLOW_REDIS_ADDR" envSeparator:","`
	Prefix string   `yaml:"prefix" env:"FLOW_REDIS_PREFIX"`
}

type PostgresSettings struct {
	DSN   string `yaml:"dsn" env:"FLOW_POSTGRES_DSN"`
	Table string `yaml:"table" env:"FLOW_POSTGRES_TABLE"`
}

type DemoSettings struct {
	Count     int           `yaml:"count" env:"FLOW_DEMO_COUNT"`
	BatchSize int           `yaml:"batch_size" env:"FLOW_DEMO_BATCH_SIZE"`
	Window    time.Duration `yaml:"window" env:"FLOW_DEMO_WINDOW"`
	Seed      uint64        `yaml:"seed" env:"FLOW_DEMO_SEED"`
}

func Defaults() Settings {
	return Settings{
		Log: LogSettings{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsSettings{
			Address: ":9090",
		},
		Redis: RedisSettings{
			Prefix: "flow:",
		},
		Postgres: PostgresSettings{
			Table: "flow_state",
		},
		Demo: DemoSettings{
			Count:     200,
			BatchSize: 10,
			Window:    50 * time.Millisecond,
			Seed:      1,
		},
	}
}

// Load reads the settings at path over the defaults. A missing file leaves the defaults in place, and an empty path
// skips the file altogether.
func Load(path string) (Settings, error) {
	settings := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Settings{}, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &settings); err != nil {
				return Settings{}, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := env.Parse(&settings); err != nil {
		return Settings{}, fmt.Errorf("failed to read FLOW_* environment: %w", err)
	}
	return settings, settings.Validate()
}

func (s Settings) Validate() error {
	if _, err := logrus.ParseLevel(s.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if s.Log.Format != "text" && s.Log.Format != "json" {
		return fmt.Errorf("invalid log format %q: expected text or json", s.Log.Format)
	}
	if s.Demo.Count < 0 {
		return errors.New("demo count must not be negative")
	}
	if s.Demo.BatchSize < 1 {
		return errors.New("demo batch size must be at least 1")
	}
	return nil
}

// ConfigureLogging builds a logrus logger from the settings and installs it as the library's logger.
func ConfigureLogging(s LogSettings) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(s.Level)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetLevel(level)

	switch s.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FullTimestamp:   true,
		})
	}

	instrumentation.SetLogger(instrumentation.NewLogrusLogger(logger))
	return logger, nil
}
