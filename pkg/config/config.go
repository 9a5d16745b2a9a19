// Package config provides YAML-based configuration loading for mavroute.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
	// AppName optional logical name of the router instance
	AppName string `mapstructure:"app_name"`

	// Dialect is the path to the root XML message-catalog document
	Dialect string `mapstructure:"dialect"`

	// Log holds logging configuration
	Log LogConfig `mapstructure:"log"`

	// Routing holds routing-table tunables
	Routing RoutingConfig `mapstructure:"routing"`

	// Stats optionally exposes a local counters listener
	Stats StatsConfig `mapstructure:"stats"`

	// Endpoints is the ordered list of transport endpoints to route between
	Endpoints []EndpointConfig `mapstructure:"endpoints"`

	// Net holds reconnect backoff options for stream endpoints
	Net NetConfig `mapstructure:"net"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: list of outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`

	// Rotation controls file rotation when writing to files
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// RoutingConfig tunes the routing table.
type RoutingConfig struct {
	// TTLSeconds expires identities unseen for this long
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

// StatsConfig enables the local CBOR counters listener when Listen is set.
type StatsConfig struct {
	Listen string `mapstructure:"listen"`
}

// EndpointConfig describes one transport endpoint.
type EndpointConfig struct {
	// Name must be unique; it identifies the endpoint in logs and the
	// routing table
	Name string `mapstructure:"name"`
	// Kind: udp, tcp or serial
	Kind string `mapstructure:"kind"`
	// Mode: client or server (udp/tcp only)
	Mode string `mapstructure:"mode"`
	// Address is host:port for udp/tcp endpoints
	Address string `mapstructure:"address"`
	// Device and Baud configure serial endpoints
	Device string `mapstructure:"device"`
	Baud   int    `mapstructure:"baud"`
	// Overflow: drop_oldest (default) or block
	Overflow string `mapstructure:"overflow"`
	// QueueDepth bounds the outbound queue (0 = default)
	QueueDepth int `mapstructure:"queue_depth"`
}

// NetConfig holds reconnect backoff options.
type NetConfig struct {
	DialBackoffInitialMS int `mapstructure:"dial_backoff_initial_ms"`
	DialBackoffMaxMS     int `mapstructure:"dial_backoff_max_ms"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		AppName: "mavroute",
		Dialect: "definitions/common.xml",
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stdout"},
			Rotation: RotationConfig{
				Enable:     false,
				Filename:   "logs/mavroute.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		Routing: RoutingConfig{TTLSeconds: 30},
		Endpoints: []EndpointConfig{
			{Name: "gcs", Kind: "udp", Mode: "server", Address: ":14550"},
		},
		Net: NetConfig{DialBackoffInitialMS: 500, DialBackoffMaxMS: 30000},
	}
}

// Load reads configuration from the provided path (if non-empty),
// otherwise it searches common locations and supports environment overrides.
// Environment variables use the prefix MAVROUTE and `.`/`-` are replaced
// with `_`. Example: MAVROUTE_LOG_LEVEL=debug
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("MAVROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults for viper so env-only configs work
	v.SetDefault("app_name", cfg.AppName)
	v.SetDefault("dialect", cfg.Dialect)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("routing.ttl_seconds", cfg.Routing.TTLSeconds)
	v.SetDefault("stats.listen", cfg.Stats.Listen)
	v.SetDefault("endpoints", cfg.Endpoints)
	v.SetDefault("net.dial_backoff_initial_ms", cfg.Net.DialBackoffInitialMS)
	v.SetDefault("net.dial_backoff_max_ms", cfg.Net.DialBackoffMaxMS)

	if path == "" {
		if envPath := os.Getenv("MAVROUTE_CONFIG"); envPath != "" {
			path = envPath
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		// Search common locations with base name `mavroute`
		v.SetConfigName("mavroute")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".mavroute"))
		}
	}

	// Read config file if present; if not found, continue with defaults/env
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch lvl {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stdout"}
	}
	if strings.TrimSpace(c.Dialect) == "" {
		return errors.New("dialect path must be set")
	}
	if c.Routing.TTLSeconds <= 0 {
		c.Routing.TTLSeconds = 30
	}
	if len(c.Endpoints) == 0 {
		return errors.New("at least one endpoint must be configured")
	}

	names := make(map[string]struct{}, len(c.Endpoints))
	for i := range c.Endpoints {
		ep := &c.Endpoints[i]
		ep.Kind = strings.ToLower(strings.TrimSpace(ep.Kind))
		ep.Mode = strings.ToLower(strings.TrimSpace(ep.Mode))
		ep.Overflow = strings.ToLower(strings.TrimSpace(ep.Overflow))
		if strings.TrimSpace(ep.Name) == "" {
			return fmt.Errorf("endpoints[%d]: name must be set", i)
		}
		if _, dup := names[ep.Name]; dup {
			return fmt.Errorf("endpoints[%d]: duplicate name %q", i, ep.Name)
		}
		names[ep.Name] = struct{}{}

		switch ep.Kind {
		case "udp", "tcp":
			if ep.Address == "" {
				return fmt.Errorf("endpoint %q: address must be set", ep.Name)
			}
			switch ep.Mode {
			case "":
				ep.Mode = "client"
			case "client", "server":
			default:
				return fmt.Errorf("endpoint %q: invalid mode %q", ep.Name, ep.Mode)
			}
		case "serial":
			if ep.Device == "" {
				return fmt.Errorf("endpoint %q: device must be set", ep.Name)
			}
		default:
			return fmt.Errorf("endpoint %q: invalid kind %q", ep.Name, ep.Kind)
		}

		switch ep.Overflow {
		case "", "drop_oldest", "block":
		default:
			return fmt.Errorf("endpoint %q: invalid overflow policy %q", ep.Name, ep.Overflow)
		}
	}
	return nil
}

// MustLoad is a convenience that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
