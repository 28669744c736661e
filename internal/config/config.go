package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables overriding file values.
// Nested keys use a double underscore: RUNDECK_BRIDGE_RUNDECK__TOKEN.
const EnvPrefix = "RUNDECK_BRIDGE_"

// basePathPattern accepts "/prefix" style mount points without a trailing slash
var basePathPattern = regexp.MustCompile(`^/.*[^/]$`)

// Log levels
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Config represents the application configuration
type Config struct {
	Rundeck RundeckConfig `koanf:"rundeck"`
	Server  ServerConfig  `koanf:"server"`
	Cache   CacheConfig   `koanf:"cache"`
	Service ServiceConfig `koanf:"service"`
	Watch   WatchConfig   `koanf:"watch"`
	Adapter AdapterConfig `koanf:"adapter"`
	Log     LogConfig     `koanf:"log"`
}

// RundeckConfig represents the Rundeck API connection
type RundeckConfig struct {
	URL            string        `koanf:"url"`
	Token          string        `koanf:"token"`
	Project        string        `koanf:"project"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	Timeout        time.Duration `koanf:"timeout"`
	UserAgent      string        `koanf:"user_agent"`
	TLS            *TLSConfig    `koanf:"tls"`
}

// ServerConfig represents HTTP gateway configuration
type ServerConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	BasePath     string        `koanf:"base_path"` // Optional base path for reverse proxy (e.g., "/rundeck-bridge")
}

// CacheConfig represents cache configuration; a zero TTL disables caching
type CacheConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// ServiceConfig represents job service tuning
type ServiceConfig struct {
	MaxConcurrent int `koanf:"max_concurrent"`
}

// WatchConfig represents execution watcher configuration
type WatchConfig struct {
	Interval        time.Duration `koanf:"interval"`
	FailedThreshold int           `koanf:"failed_threshold"`
}

// AdapterConfig represents how console commands are turned into jobs
type AdapterConfig struct {
	User                  string `koanf:"user"`
	AppPath               string `koanf:"app_path"`
	Console               string `koanf:"console"`
	Group                 string `koanf:"group"`
	IncludeDefaultOptions bool   `koanf:"include_default_options"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level string `koanf:"level"`
}

// TLSConfig represents TLS configuration for the Rundeck client
type TLSConfig struct {
	CA   string `koanf:"ca"`
	Cert string `koanf:"cert"`
	Key  string `koanf:"key"`
}

// Load loads configuration from an optional .env file, the YAML file and the environment.
// Either path may be empty.
func Load(configPath, envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// Environment overrides file values
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envKey maps RUNDECK_BRIDGE_RUNDECK__CONNECT_TIMEOUT to rundeck.connect_timeout
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func (c *Config) applyDefaults() {
	if c.Rundeck.ConnectTimeout <= 0 {
		c.Rundeck.ConnectTimeout = 5 * time.Second
	}
	if c.Rundeck.Timeout <= 0 {
		c.Rundeck.Timeout = 20 * time.Second
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Service.MaxConcurrent <= 0 {
		c.Service.MaxConcurrent = 4
	}
	if c.Watch.Interval <= 0 {
		c.Watch.Interval = 5 * time.Second
	}
	if c.Watch.FailedThreshold <= 0 {
		c.Watch.FailedThreshold = 3
	}
	if c.Adapter.Console == "" {
		c.Adapter.Console = "php console"
	}
	if c.Log.Level == "" {
		c.Log.Level = LogLevelInfo
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Rundeck),
		validation.Field(&c.Server),
		validation.Field(&c.Adapter),
		validation.Field(&c.Log),
		validation.Field(&c.Cache),
	)
}

// Validate validates cache settings
func (c CacheConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.TTL, validation.Min(time.Duration(0))),
	)
}

// Validate validates the Rundeck connection settings
func (c RundeckConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.URL, validation.Required, is.URL),
		validation.Field(&c.Token, validation.Required),
		validation.Field(&c.Project, validation.Required),
		validation.Field(&c.TLS),
	)
}

// Validate validates TLS file paths; all three are needed together
func (c *TLSConfig) Validate() error {
	if c == nil {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.CA, validation.Required),
		validation.Field(&c.Cert, validation.Required),
		validation.Field(&c.Key, validation.Required),
	)
}

// Validate validates HTTP gateway settings
func (c ServerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.BasePath, validation.When(c.BasePath != "", validation.Match(basePathPattern))),
	)
}

// Validate validates adapter settings
func (c AdapterConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Console, validation.Required),
	)
}

// Validate validates logging settings
func (c LogConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError)),
	)
}
