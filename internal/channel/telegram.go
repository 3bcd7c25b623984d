// Telegram sender backed by the Bot API.
//
// DESIGN: One JSON POST to https://api.telegram.org/bot{token}/sendMessage
// with parse_mode HTML. The bot token lives in the URL path, so it must never
// appear in logs. Error bodies carry the text in "description".
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

const telegramDefaultBaseURL = "https://api.telegram.org"

// TelegramSender delivers alerts to a Telegram chat.
type TelegramSender struct {
	botToken      string
	defaultChatID string
	baseURL       string
	httpClient    *http.Client
	store         deliverylog.Store
}

// NewTelegramSender creates the Telegram channel. defaultChatID is used when
// a call provides no recipient; baseURL overrides the Bot API endpoint for
// tests (pass "" for production).
func NewTelegramSender(botToken, defaultChatID, baseURL string, timeout time.Duration, store deliverylog.Store) *TelegramSender {
	if baseURL == "" {
		baseURL = telegramDefaultBaseURL
	}
	if timeout == 0 {
		timeout = DefaultSendTimeout
	}
	return &TelegramSender{
		botToken:      botToken,
		defaultChatID: defaultChatID,
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		httpClient:    &http.Client{Timeout: timeout},
		store:         store,
	}
}

// Name returns the channel identifier.
func (s *TelegramSender) Name() string { return Telegram }

// FormatTelegramBody renders the HTML message body. Sensor readings are
// rendered one per line with their dashboard emoji. Deterministic for a
// fixed sentAt.
func FormatTelegramBody(a alert.Alert, farmID string, sentAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>AgriConnect Alert</b>\n\n", a.Severity.Emoji())
	fmt.Fprintf(&b, "<b>%s</b>\n", a.AlertType)
	fmt.Fprintf(&b, "%s\n\n", a.Message)

	if readings := a.Readings(); len(readings) > 0 {
		b.WriteString("<b>Sensor Readings:</b>\n")
		for _, r := range readings {
			fmt.Fprintf(&b, "%s %s: %s\n", r.Emoji, r.Label, r.Value)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "<i>Farm: %s</i>\n", farmID)
	fmt.Fprintf(&b, "<i>%s</i>", sentAt.Format("2006-01-02 15:04:05"))
	return b.String()
}

// Send delivers one alert. The recipient is the chat id; when empty, the
// configured default chat id is used. Neither present is a validation
// rejection with no provider call and no log row.
func (s *TelegramSender) Send(ctx context.Context, a alert.Alert, cfg Config, farmID string) (deliverylog.Record, error) {
	chatID := cfg.Recipient
	if chatID == "" {
		chatID = s.defaultChatID
	}
	if chatID == "" {
		return deliverylog.Record{}, &ValidationError{Reason: "No chat ID provided"}
	}

	sentAt := time.Now()
	body := FormatTelegramBody(a, farmID, sentAt)

	rec := deliverylog.Record{
		AlertType: a.AlertType,
		Severity:  string(a.Severity),
		Message:   body,
		Recipient: chatID,
		FarmID:    farmID,
		SentAt:    sentAt,
	}

	messageID, err := s.sendMessage(ctx, chatID, body)
	if err != nil {
		rec.Status = deliverylog.StatusFailed
		rec.ErrorMessage = sendErrorText(err)
		logAttempt(ctx, s.store, Telegram, rec)
		return rec, err
	}

	rec.Status = deliverylog.StatusSent
	rec.ProviderMessageID = messageID
	logAttempt(ctx, s.store, Telegram, rec)
	return rec, nil
}

// sendMessage performs the Bot API call and returns the message id.
func (s *TelegramSender) sendMessage(ctx context.Context, chatID, text string) (string, error) {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)

	payload, err := json.Marshal(map[string]string{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		return "", &TransportError{Provider: "Telegram", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &TransportError{Provider: "Telegram", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Provider: "Telegram", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &TransportError{Provider: "Telegram", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(respBody, "description").String()
		if msg == "" {
			msg = "Unknown error"
		}
		return "", &ProviderError{Provider: "Telegram", StatusCode: resp.StatusCode, Message: msg}
	}

	return gjson.GetBytes(respBody, "result.message_id").String(), nil
}
