package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the full server configuration tree, loaded from YAML with
// environment variable overrides.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Game     GameConfig     `mapstructure:"game"`
}

// ServerConfig holds process-level settings.
type ServerConfig struct {
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GameConfig holds the gameplay clock and structure settings.
type GameConfig struct {
	TurnTimeout      time.Duration `mapstructure:"turn_timeout"`
	SelectionTimeout time.Duration `mapstructure:"selection_timeout"`
	ReconnectGrace   time.Duration `mapstructure:"reconnect_grace"`
	RoundsPerGame    int           `mapstructure:"rounds_per_game"`
}

// Load reads the configuration file at path and applies defaults and
// MATCHDOWN_-prefixed environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("MATCHDOWN")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.url", "postgres://localhost:5432/matchdown?sslmode=disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.connect_timeout", 5*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("game.turn_timeout", 30*time.Second)
	v.SetDefault("game.selection_timeout", 10*time.Second)
	v.SetDefault("game.reconnect_grace", 60*time.Second)
	v.SetDefault("game.rounds_per_game", 3)
}

func (c *Config) validate() error {
	if c.Game.TurnTimeout <= 0 {
		return fmt.Errorf("game.turn_timeout must be positive, got %s", c.Game.TurnTimeout)
	}
	if c.Game.SelectionTimeout <= 0 {
		return fmt.Errorf("game.selection_timeout must be positive, got %s", c.Game.SelectionTimeout)
	}
	if c.Game.RoundsPerGame <= 0 {
		return fmt.Errorf("game.rounds_per_game must be positive, got %d", c.Game.RoundsPerGame)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url must be set")
	}
	return nil
}
