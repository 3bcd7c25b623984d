// Package monitoring - telemetry.go records delivery events to JSONL files.
//
// DESIGN: Tracker writes one JSON object per line, appended immediately
// after each event, so an operator can tail the file in real time. This is
// separate from the delivery log: the log is the durable audit trail, the
// telemetry file is a disposable operational feed.
package monitoring

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// TelemetryConfig contains telemetry configuration.
type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled"`
	LogPath string `yaml:"log_path"`
}

// DeliveryEvent captures one send attempt through the relay.
type DeliveryEvent struct {
	Timestamp         time.Time `json:"timestamp"`
	RequestID         string    `json:"request_id,omitempty"`
	Channel           string    `json:"channel"`
	AlertType         string    `json:"alert_type"`
	Severity          string    `json:"severity"`
	FarmID            string    `json:"farm_id"`
	Status            string    `json:"status"`
	ProviderMessageID string    `json:"provider_message_id,omitempty"`
	Error             string    `json:"error,omitempty"`
	LatencyMs         int64     `json:"latency_ms"`
}

// Tracker appends telemetry events to a JSONL file.
type Tracker struct {
	path string
	mu   sync.Mutex
}

// NewTracker creates a telemetry tracker. A disabled config yields a no-op
// tracker.
func NewTracker(cfg TelemetryConfig) (*Tracker, error) {
	t := &Tracker{}
	if !cfg.Enabled || cfg.LogPath == "" {
		return t, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0750); err != nil {
		return nil, err
	}
	t.path = cfg.LogPath
	return t, nil
}

// RecordDelivery appends one delivery event.
func (t *Tracker) RecordDelivery(ev DeliveryEvent) {
	if t.path == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		log.Error().Err(err).Msg("telemetry_open_failed")
		return
	}
	defer f.Close()

	line, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("telemetry_marshal_failed")
		return
	}
	line = append(line, '\n')
	if _, err := f.Write(line); err != nil {
		log.Error().Err(err).Msg("telemetry_write_failed")
	}
}
