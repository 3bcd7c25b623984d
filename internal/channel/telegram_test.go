package channel

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/alert"
	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/deliverylog"
)

func TestFormatTelegramBody(t *testing.T) {
	sentAt := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	a := alert.Alert{
		AlertType: "Dry Soil Alert",
		Severity:  alert.SeverityWarning,
		Message:   "Soil moisture has dropped to 180, below the optimal threshold of 300. Irrigation recommended.",
		SensorData: map[string]any{
			"soil_moisture": float64(180),
		},
	}

	body := FormatTelegramBody(a, "greenhouse-1", sentAt)

	want := "⚠️ <b>AgriConnect Alert</b>\n\n" +
		"<b>Dry Soil Alert</b>\n" +
		"Soil moisture has dropped to 180, below the optimal threshold of 300. Irrigation recommended.\n\n" +
		"<b>Sensor Readings:</b>\n" +
		"🌱 Soil Moisture: 180\n\n" +
		"<i>Farm: greenhouse-1</i>\n" +
		"<i>2025-06-15 14:30:00</i>"
	assert.Equal(t, want, body)
}

func TestFormatTelegramBodyNoReadings(t *testing.T) {
	body := FormatTelegramBody(testAlert(), "farm", time.Now())
	assert.NotContains(t, body, "Sensor Readings")
}

func TestTelegramSendNoChatID(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	store := deliverylog.NewMemoryStore()
	sender := NewTelegramSender("bot-token", "", srv.URL, 0, store)

	rec, err := sender.Send(context.Background(), testAlert(), Config{Enabled: true}, "farm")

	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.EqualError(t, err, "No chat ID provided")
	assert.Zero(t, rec)
	assert.Equal(t, 0, calls)

	logged, lerr := store.ListRecent(context.Background(), Telegram, 10)
	require.NoError(t, lerr)
	assert.Empty(t, logged)
}

func TestTelegramSendDefaultChatFallback(t *testing.T) {
	var gotPayload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotPayload))
		w.Write([]byte(`{"ok":true,"result":{"message_id":42}}`))
	}))
	defer srv.Close()

	sender := NewTelegramSender("bot-token", "-100200300", srv.URL, 0, deliverylog.NewMemoryStore())

	rec, err := sender.Send(context.Background(), testAlert(), Config{Enabled: true}, "farm")
	require.NoError(t, err)

	assert.Equal(t, "-100200300", gotPayload["chat_id"])
	assert.Equal(t, "HTML", gotPayload["parse_mode"])
	assert.Equal(t, "42", rec.ProviderMessageID)
	assert.Equal(t, deliverylog.StatusSent, rec.Status)
	assert.Equal(t, "-100200300", rec.Recipient)
}

func TestTelegramSendExplicitChatWins(t *testing.T) {
	var gotPath string
	var gotPayload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotPayload))
		w.Write([]byte(`{"ok":true,"result":{"message_id":7}}`))
	}))
	defer srv.Close()

	sender := NewTelegramSender("bot-token", "-100200300", srv.URL, 0, deliverylog.NewMemoryStore())

	_, err := sender.Send(context.Background(), testAlert(), Config{Enabled: true, Recipient: "555"}, "farm")
	require.NoError(t, err)

	assert.Equal(t, "/botbot-token/sendMessage", gotPath)
	assert.Equal(t, "555", gotPayload["chat_id"])
}

func TestTelegramSendProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	store := deliverylog.NewMemoryStore()
	sender := NewTelegramSender("bot-token", "999", srv.URL, 0, store)

	rec, err := sender.Send(context.Background(), testAlert(), Config{Enabled: true}, "farm")

	require.Error(t, err)
	assert.EqualError(t, err, "Telegram API error: Bad Request: chat not found")
	assert.Equal(t, deliverylog.StatusFailed, rec.Status)
	assert.Equal(t, "Bad Request: chat not found", rec.ErrorMessage)

	logged, lerr := store.ListRecent(context.Background(), Telegram, 10)
	require.NoError(t, lerr)
	require.Len(t, logged, 1)
	assert.Equal(t, deliverylog.StatusFailed, logged[0].Status)
}

func TestTelegramBodyEscapesNothing(t *testing.T) {
	// The body is raw HTML for parse_mode HTML; the formatter emits its own
	// tags and passes alert text through untouched.
	a := testAlert()
	a.Message = "5 < 7"
	body := FormatTelegramBody(a, "farm", time.Now())
	assert.True(t, strings.Contains(body, "5 < 7"))
}
