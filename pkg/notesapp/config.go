package notesapp

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendPostgres  = "postgres"
	BackendSurrealDB = "surrealdb"
)

// Config holds application configuration. It is loaded by [LoadConfig] from
// defaults, an optional notesd.{yaml,json,toml} file, NOTES_* environment
// variables and command line flags, in increasing order of precedence.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	SurrealDB SurrealDBConfig `mapstructure:"surrealdb"`
	ReadOnly  bool            `mapstructure:"readOnly"`
	Log       LogConfig       `mapstructure:"log"`
	Trace     TraceConfig     `mapstructure:"trace"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdownTimeout"`
	ReadHeaderTimeout time.Duration `mapstructure:"readHeaderTimeout"`

	// MaxBodyBytes caps request bodies. Zero disables the limit.
	MaxBodyBytes int64 `mapstructure:"maxBodyBytes"`
}

// DefaultMaxBodyBytes is the default request body limit.
const DefaultMaxBodyBytes = 32 << 20

type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
}

type SurrealDBConfig struct {
	URL       string `mapstructure:"url"`
	Namespace string `mapstructure:"namespace"`
	Database  string `mapstructure:"database"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	File   string `mapstructure:"file"`
}

type TraceConfig struct {
	Stdout bool `mapstructure:"stdout"`
}

// NewViper returns a viper instance with every key defaulted, so that
// environment variables are picked up even when no config file exists.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.readHeaderTimeout", 10*time.Second)
	v.SetDefault("server.maxBodyBytes", DefaultMaxBodyBytes)
	v.SetDefault("store.backend", BackendPostgres)
	v.SetDefault("postgres.dsn", "host=localhost user=postgres password=postgres dbname=notes port=5432 sslmode=disable")
	v.SetDefault("postgres.maxOpenConns", 25)
	v.SetDefault("postgres.maxIdleConns", 5)
	v.SetDefault("postgres.connMaxLifetime", 30*time.Minute)
	v.SetDefault("surrealdb.url", "ws://localhost:8000/rpc")
	v.SetDefault("surrealdb.namespace", "notesd")
	v.SetDefault("surrealdb.database", "notes")
	v.SetDefault("surrealdb.username", "root")
	v.SetDefault("surrealdb.password", "root")
	v.SetDefault("readOnly", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.file", "")
	v.SetDefault("trace.stdout", false)

	v.SetConfigName("notesd")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/notesd")

	v.SetEnvPrefix("notes")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// LoadConfig reads the optional config file and decodes v into a Config.
// A missing file is not an error; a malformed one is.
func LoadConfig(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendPostgres, BackendSurrealDB:
	default:
		return fmt.Errorf("unknown store backend %q (want %s or %s)", c.Store.Backend, BackendPostgres, BackendSurrealDB)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdownTimeout must be positive")
	}
	if c.Server.ReadHeaderTimeout < 0 {
		return fmt.Errorf("server.readHeaderTimeout must not be negative")
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.maxBodyBytes must not be negative")
	}
	return nil
}
