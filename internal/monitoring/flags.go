// Package monitoring - flags.go flags anomalies and errors.
//
// DESIGN: Flagger logs notable events at appropriate levels:
//   - FlagHighLatency:    Warn when a request exceeds threshold
//   - FlagProviderError:  Warn on upstream provider 4xx/5xx responses
//   - FlagLoggingFailure: Error when a delivery log write fails
//   - FlagPanic:          Error on recovered panics
package monitoring

import "time"

// FlagConfig contains anomaly thresholds.
type FlagConfig struct {
	HighLatencyThreshold time.Duration `yaml:"high_latency_threshold"`
}

// Flagger flags anomalies and errors.
type Flagger struct {
	logger               *Logger
	highLatencyThreshold time.Duration
}

// NewFlagger creates a new anomaly flagger.
func NewFlagger(logger *Logger, cfg FlagConfig) *Flagger {
	threshold := cfg.HighLatencyThreshold
	if threshold == 0 {
		threshold = 5 * time.Second
	}
	return &Flagger{logger: logger, highLatencyThreshold: threshold}
}

// FlagHighLatency logs when request latency exceeds threshold.
func (f *Flagger) FlagHighLatency(requestID string, latency time.Duration, path string) {
	if latency < f.highLatencyThreshold {
		return
	}
	f.logger.Warn().
		Str("request_id", requestID).
		Dur("latency", latency).
		Str("path", path).
		Msg("high_latency")
}

// FlagProviderError logs an upstream messaging provider error.
func (f *Flagger) FlagProviderError(requestID, channel string, statusCode int, errorMsg string) {
	f.logger.Warn().
		Str("request_id", requestID).
		Str("channel", channel).
		Int("status", statusCode).
		Str("error", errorMsg).
		Msg("provider_error")
}

// FlagLoggingFailure logs a delivery log write failure.
func (f *Flagger) FlagLoggingFailure(requestID, channel string, err error) {
	f.logger.Error().
		Str("request_id", requestID).
		Str("channel", channel).
		Err(err).
		Msg("delivery_log_failed")
}

// FlagInvalidRequest logs a rejected request.
func (f *Flagger) FlagInvalidRequest(requestID, reason string) {
	f.logger.Debug().
		Str("request_id", requestID).
		Str("reason", reason).
		Msg("invalid_request")
}

// FlagPanic logs a recovered panic.
func (f *Flagger) FlagPanic(requestID string, panicValue interface{}, stack string) {
	f.logger.Error().
		Str("request_id", requestID).
		Interface("panic", panicValue).
		Msg("panic_recovered")
}
