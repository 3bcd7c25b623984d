// Monitoring configuration - logging and telemetry settings.
//
// DESIGN: Separates logging (zerolog) from telemetry (JSONL files).
// Logging is for operators, telemetry is for analytics/debugging.
package config

import "time"

// MonitoringConfig contains all monitoring settings.
type MonitoringConfig struct {
	// Logging settings
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // json, console
	LogOutput string `yaml:"log_output"` // stdout, stderr, or file path

	// Telemetry settings
	TelemetryEnabled bool   `yaml:"telemetry_enabled"` // Enable delivery telemetry
	TelemetryPath    string `yaml:"telemetry_path"`    // Path to telemetry JSONL file

	// Anomaly thresholds
	HighLatencyThreshold time.Duration `yaml:"high_latency_threshold"`
}
