// Package dispatch fans one alert out to every enabled channel.
//
// DESIGN: The dispatcher walks a fixed channel order (email, sms, whatsapp,
// telegram) and invokes each enabled sender inside an isolated failure
// boundary: one channel failing - or panicking - never prevents the others
// from being attempted. Channels run concurrently; each sender owns only its
// own HTTP call and log append, so no cross-channel locks are needed.
//
// Every send is at-most-one-attempt. There is no retry or backoff anywhere
// in the pipeline; the delivery log is the record of what happened.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/alert"
	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/channel"
	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/deliverylog"
	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/monitoring"
)

// Order is the fixed fan-out order. Telegram is a first-class fourth
// channel here even though the dashboard only wired the first three.
var Order = []string{channel.Email, channel.SMS, channel.WhatsApp, channel.Telegram}

// Outcome is one channel's result from a single dispatch.
type Outcome struct {
	Record *deliverylog.Record `json:"record,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// Result maps channel name to its outcome. A nil entry means the channel was
// disabled or had no recipient and its sender was never invoked.
type Result map[string]*Outcome

// Succeeded counts channels that produced a non-failed delivery record.
func (r Result) Succeeded() int {
	n := 0
	for _, o := range r {
		if o != nil && o.Record != nil && o.Record.Status != deliverylog.StatusFailed {
			n++
		}
	}
	return n
}

// Failed counts channels that were attempted and failed.
func (r Result) Failed() int {
	n := 0
	for _, o := range r {
		if o != nil && o.Error != "" {
			n++
		}
	}
	return n
}

// ConfigSource supplies the per-channel settings at dispatch time.
type ConfigSource interface {
	ChannelConfig(name string) channel.Config
}

// Dispatcher fans alerts out across the registered channels.
type Dispatcher struct {
	registry    *channel.Registry
	configs     ConfigSource
	farmID      string
	sendTimeout time.Duration
	metrics     *monitoring.Metrics
	cooldown    *Cooldown
}

// New creates a dispatcher. metrics may be nil.
func New(registry *channel.Registry, configs ConfigSource, farmID string, sendTimeout time.Duration, metrics *monitoring.Metrics) *Dispatcher {
	if sendTimeout == 0 {
		sendTimeout = channel.DefaultSendTimeout
	}
	return &Dispatcher{
		registry:    registry,
		configs:     configs,
		farmID:      farmID,
		sendTimeout: sendTimeout,
		metrics:     metrics,
	}
}

// WithCooldown enables duplicate alert suppression. Returns d for chaining.
func (d *Dispatcher) WithCooldown(c *Cooldown) *Dispatcher {
	d.cooldown = c
	return d
}

// DispatchAll sends one alert to every enabled channel and collects the
// per-channel outcomes. Every enabled channel with a recipient is attempted
// exactly once; disabled or recipient-less channels yield a nil outcome
// without the sender ever being invoked.
func (d *Dispatcher) DispatchAll(ctx context.Context, a alert.Alert) Result {
	result := make(Result, len(Order))
	for _, name := range Order {
		result[name] = nil
	}

	if err := a.Validate(); err != nil {
		log.Warn().Err(err).Msg("dispatch_rejected")
		return result
	}

	if d.cooldown != nil && !d.cooldown.Allow(d.farmID+"/"+a.AlertType) {
		log.Info().
			Str("alert_type", a.AlertType).
			Str("farm_id", d.farmID).
			Msg("alert_suppressed")
		return result
	}

	log.Info().
		Str("alert_type", a.AlertType).
		Str("severity", string(a.Severity)).
		Msg("dispatching")

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, name := range Order {
		cfg := d.configs.ChannelConfig(name)
		sender := d.registry.Get(name)
		if sender == nil || !cfg.Enabled || cfg.Recipient == "" {
			continue
		}

		wg.Add(1)
		go func(name string, sender channel.Sender, cfg channel.Config) {
			defer wg.Done()
			outcome := d.sendOne(ctx, sender, a, cfg)
			mu.Lock()
			result[name] = outcome
			mu.Unlock()
		}(name, sender, cfg)
	}
	wg.Wait()

	return result
}

// sendOne runs a single sender inside its failure boundary.
func (d *Dispatcher) sendOne(ctx context.Context, sender channel.Sender, a alert.Alert, cfg channel.Config) (outcome *Outcome) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			outcome = &Outcome{Error: fmt.Sprintf("panic: %v", r)}
			log.Error().
				Str("channel", sender.Name()).
				Interface("panic", r).
				Msg("sender_panic")
		}
		if d.metrics != nil {
			status := "sent"
			if outcome.Error != "" {
				status = "failed"
			}
			d.metrics.RecordSend(sender.Name(), status, time.Since(start))
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	rec, err := sender.Send(sendCtx, a, cfg, d.farmID)
	if err != nil {
		log.Warn().
			Str("channel", sender.Name()).
			Err(err).
			Msg("channel_failed")
		if channel.IsValidation(err) {
			return &Outcome{Error: err.Error()}
		}
		return &Outcome{Record: &rec, Error: err.Error()}
	}

	log.Info().
		Str("channel", sender.Name()).
		Str("provider_message_id", rec.ProviderMessageID).
		Msg("channel_sent")
	return &Outcome{Record: &rec}
}

// DispatchCriticalTemperature fans out a critical temperature breach.
func (d *Dispatcher) DispatchCriticalTemperature(ctx context.Context, temperature, threshold float64) Result {
	return d.DispatchAll(ctx, alert.NewCriticalTemperature(temperature, threshold))
}

// DispatchLowBattery fans out a low battery warning for a sensor node.
func (d *Dispatcher) DispatchLowBattery(ctx context.Context, batteryLevel float64, nodeID string) Result {
	return d.DispatchAll(ctx, alert.NewLowBattery(batteryLevel, nodeID))
}

// DispatchDrySoil fans out a dry soil warning.
func (d *Dispatcher) DispatchDrySoil(ctx context.Context, soilMoisture, threshold float64) Result {
	return d.DispatchAll(ctx, alert.NewDrySoil(soilMoisture, threshold))
}

// DispatchEquipment fans out an equipment maintenance alert.
func (d *Dispatcher) DispatchEquipment(ctx context.Context, equipment, issue, priority string) Result {
	return d.DispatchAll(ctx, alert.NewEquipment(equipment, issue, priority))
}

// DispatchWeather fans out a weather condition alert.
func (d *Dispatcher) DispatchWeather(ctx context.Context, condition, details string) Result {
	return d.DispatchAll(ctx, alert.NewWeather(condition, details))
}
