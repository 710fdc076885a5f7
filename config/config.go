// Package config loads the settings of the jrest server from a YAML file,
// overlaid with JREST_* variables taken from a .env file and the process
// environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/shrek82/jrest/logger"
	"github.com/shrek82/jrest/pool"
)

type HTTPConfig struct {
	Addr      string `yaml:"addr" validate:"required"`
	BodyLimit string `yaml:"body-limit" validate:"required"`
	// RateLimit is the number of requests per second allowed to each client
	// address. Zero disables limiting.
	RateLimit float64 `yaml:"rate-limit" validate:"gte=0"`
	RateBurst int     `yaml:"rate-burst" validate:"gte=0"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver" validate:"required,oneof=sqlite3 sqlite mysql postgres"`
	DSN             string        `yaml:"dsn" validate:"required"`
	MaxOpenConns    int           `yaml:"max-open-conns" validate:"gte=0"`
	MaxIdleConns    int           `yaml:"max-idle-conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `yaml:"conn-max-lifetime" validate:"gte=0"`
	// SlowThreshold is the duration above which queries are logged as slow.
	SlowThreshold time.Duration `yaml:"slow-threshold" validate:"gte=0"`
	SlowLogPath   string        `yaml:"slow-log-path"`
	// BreakerThreshold is the number of consecutive failures that open the
	// circuit breaker. Zero disables it.
	BreakerThreshold int           `yaml:"breaker-threshold" validate:"gte=0"`
	BreakerReset     time.Duration `yaml:"breaker-reset" validate:"gte=0"`
}

// Options returns the pool settings of the database.
func (c *DatabaseConfig) Options() *pool.Options {
	return &pool.Options{
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

type RedisConfig struct {
	Addr     string `yaml:"addr" validate:"required_if=Enabled true"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Prefix   string `yaml:"prefix" validate:"required"`
	Enabled  bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=silent error warn info debug"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Logger builds a logger writing to w at the configured level and format.
func (c *LogConfig) Logger(w io.Writer) (logger.Logger, error) {
	level, err := logger.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	return logger.New(w, level, logger.LogFormat(c.Format)), nil
}

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
}

// Default returns the settings used for anything a file does not set.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{Addr: ":8080", BodyLimit: "1M"},
		Database: DatabaseConfig{
			Driver:           "sqlite3",
			DSN:              "jrest.db",
			MaxOpenConns:     1,
			SlowThreshold:    200 * time.Millisecond,
			BreakerThreshold: 5,
			BreakerReset:     30 * time.Second,
		},
		Redis: RedisConfig{Addr: "localhost:6379", Prefix: "jrest"},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

var validate = validator.New()

// Load reads the YAML file at path over the defaults, then applies the
// JREST_* variables of envFile and of the process environment, the latter
// taking precedence. Empty path or envFile skip that source; a missing
// envFile is not an error.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	env := map[string]string{}
	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: %w", err)
		}
		env = vars
	}
	for _, name := range envNames {
		if v, ok := os.LookupEnv(name); ok {
			if env == nil {
				env = map[string]string{}
			}
			env[name] = v
		}
	}
	if err := cfg.apply(env); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags of every section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

var envNames = []string{
	"JREST_HTTP_ADDR",
	"JREST_HTTP_RATE_LIMIT",
	"JREST_DB_DRIVER",
	"JREST_DB_DSN",
	"JREST_DB_SLOW_THRESHOLD",
	"JREST_REDIS_ENABLED",
	"JREST_REDIS_ADDR",
	"JREST_REDIS_PASSWORD",
	"JREST_REDIS_DB",
	"JREST_LOG_LEVEL",
	"JREST_LOG_FORMAT",
}

func (c *Config) apply(env map[string]string) error {
	for name, v := range env {
		var err error
		switch name {
		case "JREST_HTTP_ADDR":
			c.HTTP.Addr = v
		case "JREST_HTTP_RATE_LIMIT":
			c.HTTP.RateLimit, err = strconv.ParseFloat(v, 64)
		case "JREST_DB_DRIVER":
			c.Database.Driver = v
		case "JREST_DB_DSN":
			c.Database.DSN = v
		case "JREST_DB_SLOW_THRESHOLD":
			c.Database.SlowThreshold, err = time.ParseDuration(v)
		case "JREST_REDIS_ENABLED":
			c.Redis.Enabled, err = strconv.ParseBool(v)
		case "JREST_REDIS_ADDR":
			c.Redis.Addr = v
		case "JREST_REDIS_PASSWORD":
			c.Redis.Password = v
		case "JREST_REDIS_DB":
			c.Redis.DB, err = strconv.Atoi(v)
		case "JREST_LOG_LEVEL":
			c.Log.Level = v
		case "JREST_LOG_FORMAT":
			c.Log.Format = v
		}
		if err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	return nil
}
