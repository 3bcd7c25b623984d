// SMS sender backed by Twilio.
package channel

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/alert"
	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/deliverylog"
)

// smsMaxRunes is the concatenated SMS limit. Longer bodies are cut to
// 1597 runes plus "...".
const smsMaxRunes = 1600

// SMSSender delivers alerts as SMS via the Twilio Messages API.
type SMSSender struct {
	twilio *TwilioClient
	from   string
	store  deliverylog.Store
}

// NewSMSSender creates the SMS channel. from is the Twilio-provisioned
// sending number.
func NewSMSSender(twilio *TwilioClient, from string, store deliverylog.Store) *SMSSender {
	return &SMSSender{twilio: twilio, from: from, store: store}
}

// Name returns the channel identifier.
func (s *SMSSender) Name() string { return SMS }

// FormatSMSBody renders the plain-text SMS body for an alert. Rendering is
// deterministic for a fixed sentAt; the truncation keeps the body within the
// 1600-char concatenated SMS limit.
func FormatSMSBody(a alert.Alert, farmID string, sentAt time.Time) string {
	body := fmt.Sprintf("%s AgriConnect Alert\n\n%s\n%s\n\nFarm: %s\n%s",
		a.Severity.Emoji(), a.AlertType, a.Message, farmID, sentAt.Format("2006-01-02 15:04:05"))
	return truncateRunes(body, smsMaxRunes)
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}

// Send delivers one alert. The recipient must already be E.164; malformed
// numbers are rejected locally without a provider call or a log row.
func (s *SMSSender) Send(ctx context.Context, a alert.Alert, cfg Config, farmID string) (deliverylog.Record, error) {
	if !ValidE164(cfg.Recipient) {
		return deliverylog.Record{}, &ValidationError{
			Reason: "Invalid phone number format. Use E.164 format (e.g., +1234567890)",
		}
	}

	sentAt := time.Now()
	body := FormatSMSBody(a, farmID, sentAt)

	rec := deliverylog.Record{
		AlertType: a.AlertType,
		Severity:  string(a.Severity),
		Message:   body,
		Recipient: cfg.Recipient,
		FarmID:    farmID,
		SentAt:    sentAt,
	}

	msg, err := s.twilio.CreateMessage(ctx, cfg.Recipient, s.from, body)
	if err != nil {
		rec.Status = deliverylog.StatusFailed
		rec.ErrorMessage = sendErrorText(err)
		logAttempt(ctx, s.store, SMS, rec)
		return rec, err
	}

	rec.Status = deliverylog.StatusPending
	if msg.Sent() {
		rec.Status = deliverylog.StatusSent
	}
	rec.ProviderMessageID = msg.SID
	logAttempt(ctx, s.store, SMS, rec)
	return rec, nil
}

// sendErrorText picks the text recorded in the delivery log: the provider's
// own message when it produced one, generic text for transport failures.
func sendErrorText(err error) string {
	switch e := err.(type) {
	case *ProviderError:
		return e.Message
	default:
		return "network error"
	}
}
