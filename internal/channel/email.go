// Email sender backed by the Resend API.
package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/alert"
	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/deliverylog"
)

const (
	resendDefaultBaseURL = "https://api.resend.com"
	emailFromAddress     = "AgriConnect Alerts <alerts@agriconnect.app>"
)

// EmailSender delivers alerts as HTML email via Resend.
type EmailSender struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	store      deliverylog.Store
}

// NewEmailSender creates the email channel. baseURL overrides the Resend
// endpoint for tests (pass "" for production).
func NewEmailSender(apiKey, baseURL string, timeout time.Duration, store deliverylog.Store) *EmailSender {
	if baseURL == "" {
		baseURL = resendDefaultBaseURL
	}
	if timeout == 0 {
		timeout = DefaultSendTimeout
	}
	return &EmailSender{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		store:      store,
	}
}

// Name returns the channel identifier.
func (s *EmailSender) Name() string { return Email }

// FormatEmailSubject renders the subject line.
func FormatEmailSubject(a alert.Alert, farmID string) string {
	return fmt.Sprintf("[%s] %s - %s", strings.ToUpper(string(a.Severity)), a.AlertType, farmID)
}

// Send delivers one alert. Malformed addresses are rejected locally without
// a provider call or a log row.
func (s *EmailSender) Send(ctx context.Context, a alert.Alert, cfg Config, farmID string) (deliverylog.Record, error) {
	if !ValidEmail(cfg.Recipient) {
		return deliverylog.Record{}, &ValidationError{Reason: "Invalid email address"}
	}

	sentAt := time.Now()
	html, err := RenderEmailHTML(a, farmID, sentAt)
	if err != nil {
		return deliverylog.Record{}, &ValidationError{Reason: fmt.Sprintf("failed to render email: %v", err)}
	}

	rec := deliverylog.Record{
		AlertType: a.AlertType,
		Severity:  string(a.Severity),
		Message:   a.Message,
		Recipient: cfg.Recipient,
		FarmID:    farmID,
		SentAt:    sentAt,
	}

	messageID, err := s.sendEmail(ctx, cfg.Recipient, FormatEmailSubject(a, farmID), html)
	if err != nil {
		rec.Status = deliverylog.StatusFailed
		rec.ErrorMessage = sendErrorText(err)
		logAttempt(ctx, s.store, Email, rec)
		return rec, err
	}

	rec.Status = deliverylog.StatusSent
	rec.ProviderMessageID = messageID
	logAttempt(ctx, s.store, Email, rec)
	return rec, nil
}

// sendEmail performs the Resend call and returns the message id.
func (s *EmailSender) sendEmail(ctx context.Context, to, subject, html string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"from":    emailFromAddress,
		"to":      to,
		"subject": subject,
		"html":    html,
	})
	if err != nil {
		return "", &TransportError{Provider: "Email", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return "", &TransportError{Provider: "Email", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Provider: "Email", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &TransportError{Provider: "Email", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(respBody, "message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(respBody))
		}
		if msg == "" {
			msg = "Unknown error"
		}
		return "", &ProviderError{Provider: "Email", StatusCode: resp.StatusCode, Message: msg}
	}

	return gjson.GetBytes(respBody, "id").String(), nil
}
