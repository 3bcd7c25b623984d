package channel

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/alert"
	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/deliverylog"
)

func TestFormatEmailSubject(t *testing.T) {
	a := alert.Alert{AlertType: "Low Battery Alert", Severity: alert.SeverityWarning, Message: "x"}
	assert.Equal(t, "[WARNING] Low Battery Alert - greenhouse-1", FormatEmailSubject(a, "greenhouse-1"))

	a.Severity = alert.SeverityCritical
	assert.Equal(t, "[CRITICAL] Low Battery Alert - greenhouse-1", FormatEmailSubject(a, "greenhouse-1"))
}

func TestRenderEmailHTML(t *testing.T) {
	a := alert.Alert{
		AlertType:  "Critical Temperature Alert",
		Severity:   alert.SeverityCritical,
		Message:    "Temperature has reached 38.5°C.",
		SensorData: map[string]any{"air_temperature": 38.5},
	}
	sentAt := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

	html, err := RenderEmailHTML(a, "greenhouse-1", sentAt)
	require.NoError(t, err)

	assert.Contains(t, html, "#D32F2F")
	assert.Contains(t, html, "🚨")
	assert.Contains(t, html, "Critical Temperature Alert")
	assert.Contains(t, html, "Temperature has reached 38.5°C.")
	assert.Contains(t, html, "Current Sensor Readings")
	assert.Contains(t, html, "38.5°C")
	assert.Contains(t, html, "greenhouse-1")
	assert.Contains(t, html, "2025-06-15 14:30:00")
}

func TestRenderEmailHTMLNoReadings(t *testing.T) {
	a := alert.Alert{AlertType: "Weather Alert", Severity: alert.SeverityWarning, Message: "Frost expected"}

	html, err := RenderEmailHTML(a, "farm", time.Now())
	require.NoError(t, err)

	assert.Contains(t, html, "#F57C00")
	assert.NotContains(t, html, "Current Sensor Readings")
}

func TestEmailSendRejectsInvalidAddress(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	store := deliverylog.NewMemoryStore()
	sender := NewEmailSender("key", srv.URL, 0, store)

	for _, addr := range []string{"", "not-an-email", "a@b", "a b@example.com", "@example.com"} {
		rec, err := sender.Send(context.Background(), testAlert(), Config{Enabled: true, Recipient: addr}, "farm")

		require.Error(t, err, "address %q", addr)
		assert.True(t, IsValidation(err), "address %q", addr)
		assert.EqualError(t, err, "Invalid email address")
		assert.Zero(t, rec)
	}

	assert.Equal(t, 0, calls)
	logged, lerr := store.ListRecent(context.Background(), Email, 10)
	require.NoError(t, lerr)
	assert.Empty(t, logged)
}

func TestEmailSendSuccess(t *testing.T) {
	var gotPath, gotAuth string
	var gotPayload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotPayload))
		w.Write([]byte(`{"id":"re_abc123"}`))
	}))
	defer srv.Close()

	store := deliverylog.NewMemoryStore()
	sender := NewEmailSender("re-key", srv.URL, 0, store)

	rec, err := sender.Send(context.Background(), testAlert(), Config{Enabled: true, Recipient: "farmer@example.com"}, "greenhouse-1")
	require.NoError(t, err)

	assert.Equal(t, "/emails", gotPath)
	assert.Equal(t, "Bearer re-key", gotAuth)
	assert.Equal(t, "AgriConnect Alerts <alerts@agriconnect.app>", gotPayload["from"])
	assert.Equal(t, "farmer@example.com", gotPayload["to"])
	assert.Equal(t, "[CRITICAL] Critical Temperature Alert - greenhouse-1", gotPayload["subject"])
	assert.Contains(t, gotPayload["html"], "AgriConnect")

	assert.Equal(t, deliverylog.StatusSent, rec.Status)
	assert.Equal(t, "re_abc123", rec.ProviderMessageID)

	logged, lerr := store.ListRecent(context.Background(), Email, 10)
	require.NoError(t, lerr)
	require.Len(t, logged, 1)
}

func TestEmailSendProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"statusCode":401,"message":"API key is invalid"}`))
	}))
	defer srv.Close()

	store := deliverylog.NewMemoryStore()
	sender := NewEmailSender("bad-key", srv.URL, 0, store)

	rec, err := sender.Send(context.Background(), testAlert(), Config{Enabled: true, Recipient: "farmer@example.com"}, "farm")

	require.Error(t, err)
	assert.EqualError(t, err, "Email API error: API key is invalid")
	assert.Equal(t, deliverylog.StatusFailed, rec.Status)
	assert.Equal(t, "API key is invalid", rec.ErrorMessage)
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("farmer@example.com"))
	assert.True(t, ValidEmail("a.b+c@sub.example.org"))
	assert.False(t, ValidEmail("a@b"))
	assert.False(t, ValidEmail("a @example.com"))
	assert.False(t, ValidEmail(""))
}
