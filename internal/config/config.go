package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Files     FilesConfig     `mapstructure:"files"`
	Staff     StaffConfig     `mapstructure:"staff"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret" validate:"required"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
}

// StorageConfig selects the key-value substrate behind the collections.
type StorageConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=memory pebble redis postgres"`
	Path   string `mapstructure:"path"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
	Channel  string `mapstructure:"channel"`
}

type DatabaseConfig struct {
	DSN         string        `mapstructure:"dsn"`
	MaxOpen     int           `mapstructure:"max_open"`
	MaxIdle     int           `mapstructure:"max_idle"`
	MaxLifetime time.Duration `mapstructure:"max_lifetime"`
}

type ChatConfig struct {
	SimulateLatency bool `mapstructure:"simulate_latency"`
	Seed            bool `mapstructure:"seed"`
}

type FilesConfig struct {
	ExpirySchedule string `mapstructure:"expiry_schedule"`
}

type StaffConfig struct {
	// FixturesPath points to an optional YAML fixtures file; empty uses the built-in fixtures.
	FixturesPath string `mapstructure:"fixtures_path"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads .env files, an optional config file and SMARTSENDER_* env vars,
// in increasing priority.
func Load(path string) (*Config, error) {
	LoadDotEnv()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SMARTSENDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || os.IsNotExist(err) {
				return nil, fmt.Errorf("config file not found: %w", err)
			}
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags plus cross-field requirements of the chosen driver.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch cfg.Storage.Driver {
	case "pebble":
		if cfg.Storage.Path == "" {
			return errors.New("invalid config: storage.path is required for the pebble driver")
		}
	case "redis":
		if cfg.Redis.Addr == "" {
			return errors.New("invalid config: redis.addr is required for the redis driver")
		}
	case "postgres":
		if cfg.Database.DSN == "" {
			return errors.New("invalid config: database.dsn is required for the postgres driver")
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// jwt_secret has no default; registering the key lets AutomaticEnv resolve it on Unmarshal.
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("storage.driver", "pebble")
	v.SetDefault("storage.path", "./data/smartsender")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.channel", "smartsender:events")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open", 25)
	v.SetDefault("database.max_idle", 25)
	v.SetDefault("database.max_lifetime", 5*time.Minute)

	v.SetDefault("chat.simulate_latency", false)
	v.SetDefault("chat.seed", true)

	v.SetDefault("files.expiry_schedule", "@every 1h")
	v.SetDefault("staff.fixtures_path", "")

	v.SetDefault("rate_limit.rps", 5.0)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}
