// Package channel provides provider-specific alert delivery.
//
// DESIGN: The relay supports multiple messaging providers (Twilio SMS,
// Telegram, Resend email, Twilio WhatsApp). Each has a different wire format.
// Senders abstract the differences behind one contract:
//
//	Send(ctx, alert, config, farmID) -> (deliverylog.Record, error)
//
// FLOW:
//  1. Sender re-validates the recipient; malformed input fails fast with a
//     ValidationError - no network call, no log row.
//  2. Sender renders the alert into its provider body (deterministic for a
//     fixed SentAt) and makes exactly one HTTPS call. No retries.
//  3. Every call that reached the provider appends exactly one delivery
//     record, success or failure. A failed append is logged as a diagnostic
//     and never overrides the send outcome.
//
// To add a new provider: implement Sender and register it in Registry.
package channel

import (
	"context"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/alert"
	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/deliverylog"
)

// Channel names, also the delivery log keys.
const (
	Email    = "email"
	SMS      = "sms"
	WhatsApp = "whatsapp"
	Telegram = "telegram"
)

// DefaultSendTimeout bounds one provider call.
const DefaultSendTimeout = 10 * time.Second

// e164Pattern matches international phone numbers: +<countrycode><number>,
// max 15 digits total.
var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// ValidE164 reports whether phone is a well-formed E.164 number.
func ValidE164(phone string) bool {
	return e164Pattern.MatchString(phone)
}

// emailPattern is deliberately liberal: one @, no whitespace, a dot in the
// domain. Deliverability is the provider's problem.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether addr looks like an email address.
func ValidEmail(addr string) bool {
	return emailPattern.MatchString(addr)
}

// Config is the per-channel settings value passed into every Send call.
// There is no hidden module state: a disabled channel is simply never
// invoked by the dispatcher.
type Config struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Recipient string `json:"recipient" yaml:"recipient"`
}

// Sender delivers one alert to one provider.
// Implementations are stateless between calls and safe for concurrent use.
type Sender interface {
	// Name returns the channel identifier (e.g. "sms", "telegram").
	Name() string

	// Send renders the alert, performs one provider call, and appends one
	// delivery record. On failure the returned record has StatusFailed and
	// the error describes the cause; on validation failure the record is
	// zero and nothing was logged.
	Send(ctx context.Context, a alert.Alert, cfg Config, farmID string) (deliverylog.Record, error)
}

// logAttempt appends a delivery record, reporting append failure as a
// side diagnostic only.
func logAttempt(ctx context.Context, store deliverylog.Store, channel string, rec deliverylog.Record) {
	if store == nil {
		return
	}
	if err := store.Append(ctx, channel, rec); err != nil {
		log.Error().
			Err(&LoggingError{Channel: channel, Err: err}).
			Str("channel", channel).
			Str("status", string(rec.Status)).
			Msg("delivery_log_append_failed")
	}
}
