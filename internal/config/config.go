// Package config loads and validates the alert relay configuration.
//
// DESIGN: All configuration comes from YAML files with ${VAR:-default}
// environment expansion, so credentials never live in the file itself.
// Required fields have no defaults - missing configuration fails loudly at
// startup, not at the first send.
//
// FILES:
//   - config.go:     Root Config struct, Load(), Validate()
//   - providers.go:  Messaging provider credentials (Twilio, Telegram, Resend)
//   - monitoring.go: Logging and telemetry settings
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the alert relay.
type Config struct {
	Server      ServerConfig      `yaml:"server"`       // HTTP server settings
	Farm        FarmConfig        `yaml:"farm"`         // Farm identity
	Providers   ProvidersConfig   `yaml:"providers"`    // Messaging provider credentials
	DeliveryLog DeliveryLogConfig `yaml:"delivery_log"` // Audit trail storage
	Settings    SettingsConfig    `yaml:"settings"`     // Channel settings file
	Dispatch    DispatchConfig    `yaml:"dispatch"`     // Fan-out behavior
	Monitoring  MonitoringConfig  `yaml:"monitoring"`   // Logging and telemetry
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // Port to listen on
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // Max time to read request
	WriteTimeout time.Duration `yaml:"write_timeout"` // Max time to write response
	RateLimit    int           `yaml:"rate_limit"`    // Requests per second per IP (0 = default)
}

// FarmConfig identifies the farm this relay serves.
type FarmConfig struct {
	ID string `yaml:"id"`
}

// DeliveryLogConfig contains audit trail storage settings.
type DeliveryLogConfig struct {
	Type string `yaml:"type"` // "sqlite" or "memory"
	Path string `yaml:"path"` // Database file path (sqlite only)
}

// SettingsConfig locates the channel settings file.
type SettingsConfig struct {
	Path string `yaml:"path"`
}

// DispatchConfig tunes the fan-out.
type DispatchConfig struct {
	SendTimeout time.Duration `yaml:"send_timeout"` // Per-provider-call timeout
	Cooldown    time.Duration `yaml:"cooldown"`     // Duplicate suppression window (0 = off)
}

// expandEnvWithDefaults expands environment variables with support for
// default values. Supports both ${VAR} and ${VAR:-default} syntax.
func expandEnvWithDefaults(s string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration from raw YAML bytes, applying env
// expansion, env overrides, and validation.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvWithDefaults(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides, so deployment
// tooling can redirect paths without editing config files.
func (c *Config) applyEnvOverrides() {
	if envPath := os.Getenv("ALERT_TELEMETRY_LOG"); envPath != "" {
		c.Monitoring.TelemetryPath = envPath
		c.Monitoring.TelemetryEnabled = true
	}
	if envPath := os.Getenv("ALERT_DELIVERY_LOG_PATH"); envPath != "" {
		c.DeliveryLog.Path = envPath
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ReadTimeout == 0 {
		return fmt.Errorf("server.read_timeout is required")
	}
	if c.Server.WriteTimeout == 0 {
		return fmt.Errorf("server.write_timeout is required")
	}

	if c.Farm.ID == "" {
		return fmt.Errorf("farm.id is required")
	}

	switch c.DeliveryLog.Type {
	case "sqlite":
		if c.DeliveryLog.Path == "" {
			return fmt.Errorf("delivery_log.path is required for sqlite")
		}
	case "memory":
	case "":
		return fmt.Errorf("delivery_log.type is required")
	default:
		return fmt.Errorf("invalid delivery_log.type: %s (must be sqlite or memory)", c.DeliveryLog.Type)
	}

	if c.Settings.Path == "" {
		return fmt.Errorf("settings.path is required")
	}

	if err := c.Providers.Validate(); err != nil {
		return err
	}

	return nil
}
