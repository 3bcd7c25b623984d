// WhatsApp sender backed by Twilio's WhatsApp messaging.
//
// WhatsApp rides the same Messages API as SMS with "whatsapp:"-prefixed
// addresses, so it shares the TwilioClient and the plain-text body format.
package channel

import (
	"context"
	"time"

	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/alert"
	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/deliverylog"
)

// WhatsAppSender delivers alerts as WhatsApp messages via Twilio.
type WhatsAppSender struct {
	twilio *TwilioClient
	from   string
	store  deliverylog.Store
}

// NewWhatsAppSender creates the WhatsApp channel. from is the Twilio
// WhatsApp-enabled number, without the "whatsapp:" prefix.
func NewWhatsAppSender(twilio *TwilioClient, from string, store deliverylog.Store) *WhatsAppSender {
	return &WhatsAppSender{twilio: twilio, from: from, store: store}
}

// Name returns the channel identifier.
func (s *WhatsAppSender) Name() string { return WhatsApp }

// Send delivers one alert. Recipients are E.164 phone numbers, same as SMS.
func (s *WhatsAppSender) Send(ctx context.Context, a alert.Alert, cfg Config, farmID string) (deliverylog.Record, error) {
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

	msg, err := s.twilio.CreateMessage(ctx, "whatsapp:"+cfg.Recipient, "whatsapp:"+s.from, body)
	if err != nil {
		rec.Status = deliverylog.StatusFailed
		rec.ErrorMessage = sendErrorText(err)
		logAttempt(ctx, s.store, WhatsApp, rec)
		return rec, err
	}

	rec.Status = deliverylog.StatusPending
	if msg.Sent() {
		rec.Status = deliverylog.StatusSent
	}
	rec.ProviderMessageID = msg.SID
	logAttempt(ctx, s.store, WhatsApp, rec)
	return rec, nil
}
