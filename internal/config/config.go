// Package config loads server settings from .env, an optional YAML file and
// the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rudra1in/facultyapp-sub000/internal/database"
	"github.com/rudra1in/facultyapp-sub000/internal/logger"
	"github.com/rudra1in/facultyapp-sub000/internal/relay"
)

var log = logger.New("config")

const (
	DirectoryFromFile     = "file"
	DirectoryFromPostgres = "postgres"
)

type Config struct {
	Env              string `mapstructure:"env"`
	Port             string `mapstructure:"port"`
	LogLevel         string `mapstructure:"log_level"`
	JWTSecret        string `mapstructure:"jwt_secret"`
	AllowedOrigins   string `mapstructure:"allowed_origins"`
	DBType           string `mapstructure:"db_type"`
	DatabaseURL      string `mapstructure:"database_url"`
	DirectorySource  string `mapstructure:"directory_source"`
	DirectoryFile    string `mapstructure:"directory_file"`
	RelayDriver      string `mapstructure:"relay_driver"`
	RedisURL         string `mapstructure:"redis_url"`
	NATSURL          string `mapstructure:"nats_url"`
	RelaySubject     string `mapstructure:"relay_subject"`
	SubscriberBuffer int    `mapstructure:"subscriber_buffer"`
}

var defaults = map[string]any{
	"env":               "development",
	"port":              "8080",
	"log_level":         "",
	"jwt_secret":        "",
	"allowed_origins":   "http://localhost:5173",
	"db_type":           string(database.Memory),
	"database_url":      "",
	"directory_source":  DirectoryFromFile,
	"directory_file":    "configs/directory.yaml",
	"relay_driver":      relay.DriverNone,
	"redis_url":         "redis://localhost:6379/0",
	"nats_url":          "nats://localhost:4222",
	"relay_subject":     relay.DefaultSubject,
	"subscriber_buffer": 64,
}

// Load reads .env when present, then CONFIG_FILE when set, then the
// environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info(".env file not found, using environment variables")
	}
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that required settings are present and consistent.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	switch database.DatabaseType(c.DBType) {
	case database.Memory:
	case database.PostgreSQL:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when DB_TYPE is postgres")
		}
	default:
		return fmt.Errorf("unsupported DB_TYPE: %s", c.DBType)
	}

	switch c.DirectorySource {
	case DirectoryFromFile:
		if c.DirectoryFile == "" {
			return errors.New("DIRECTORY_FILE is required when DIRECTORY_SOURCE is file")
		}
	case DirectoryFromPostgres:
		if database.DatabaseType(c.DBType) != database.PostgreSQL {
			return errors.New("DIRECTORY_SOURCE postgres needs DB_TYPE postgres")
		}
	default:
		return fmt.Errorf("unsupported DIRECTORY_SOURCE: %s", c.DirectorySource)
	}

	switch c.RelayDriver {
	case relay.DriverNone, relay.DriverRedis, relay.DriverNATS:
	default:
		return fmt.Errorf("unsupported RELAY_DRIVER: %s", c.RelayDriver)
	}
	return nil
}

// IsProduction reports whether the server runs in release mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Origins splits ALLOWED_ORIGINS into its comma-separated entries.
func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Relay returns the relay options for the configured driver.
func (c *Config) Relay() relay.Options {
	return relay.Options{
		Driver:   c.RelayDriver,
		RedisURL: c.RedisURL,
		NATSURL:  c.NATSURL,
		Subject:  c.RelaySubject,
	}
}
