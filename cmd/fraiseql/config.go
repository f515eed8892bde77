package main

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config is the engine's runtime configuration, loaded via viper the way
// the server CLI loads its own config: defaults first, then an optional
// file, then environment overrides.
type Config struct {
	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
		PoolMin  int32  `mapstructure:"pool_min"`
		PoolMax  int32  `mapstructure:"pool_max"`
	} `mapstructure:"database"`

	LogFormat string `mapstructure:"log_format"`

	Heartbeat struct {
		PingIntervalSeconds int `mapstructure:"ping_interval_seconds"`
		PongTimeoutSeconds  int `mapstructure:"pong_timeout_seconds"`
	} `mapstructure:"heartbeat"`

	ResourceLimits struct {
		MaxSubscriptionsPerUser       int `mapstructure:"max_subscriptions_per_user"`
		MaxSubscriptionsPerConnection int `mapstructure:"max_subscriptions_per_connection"`
	} `mapstructure:"resource_limits"`
}

// ConnString builds the pgx connection string from the database section.
func (c Config) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password,
		c.Database.Name, c.Database.SSLMode)
}

func newViperWithDefaults() *viper.Viper {
	vi := viper.New()

	vi.SetDefault("database.host", "localhost")
	vi.SetDefault("database.port", 5432)
	vi.SetDefault("database.user", "postgres")
	vi.SetDefault("database.password", "")
	vi.SetDefault("database.name", "fraiseql")
	vi.SetDefault("database.sslmode", "disable")
	vi.SetDefault("database.pool_min", 2)
	vi.SetDefault("database.pool_max", 10)

	vi.SetDefault("log_format", "console")

	vi.SetDefault("heartbeat.ping_interval_seconds", 30)
	vi.SetDefault("heartbeat.pong_timeout_seconds", 10)

	vi.SetDefault("resource_limits.max_subscriptions_per_user", 100)
	vi.SetDefault("resource_limits.max_subscriptions_per_connection", 20)

	vi.BindEnv("database.host", "FRAISEQL_DB_HOST")         //nolint:errcheck
	vi.BindEnv("database.port", "FRAISEQL_DB_PORT")         //nolint:errcheck
	vi.BindEnv("database.user", "FRAISEQL_DB_USER")         //nolint:errcheck
	vi.BindEnv("database.password", "FRAISEQL_DB_PASSWORD") //nolint:errcheck
	vi.BindEnv("database.name", "FRAISEQL_DB_NAME")         //nolint:errcheck

	return vi
}

// loadConfig reads configPath (if present) over the defaults above.
func loadConfig(configPath string) (Config, error) {
	vi := newViperWithDefaults()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			vi.SetConfigFile(configPath)
			if err := vi.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("reading config %q: %w", configPath, err)
			}
		}
	}

	var c Config
	if err := vi.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return c, nil
}
