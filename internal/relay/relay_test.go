package relay

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/config"
)

// providerStub is a scripted stand-in for Twilio, Telegram, and Resend.
type providerStub struct {
	srv    *httptest.Server
	status int
	body   string
	calls  int
}

func newProviderStub(t *testing.T, status int, body string) *providerStub {
	t.Helper()
	s := &providerStub{status: status, body: body}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(s.status)
		w.Write([]byte(s.body))
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func testConfig(t *testing.T, twilioURL, telegramURL, resendURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{
			Port:         8787,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Farm: config.FarmConfig{ID: "greenhouse-1"},
		Providers: config.ProvidersConfig{
			Twilio: config.TwilioConfig{
				AccountSID:   "AC123",
				AuthToken:    "token",
				FromNumber:   "+15550100",
				WhatsAppFrom: "+15550100",
				BaseURL:      twilioURL,
			},
			Telegram: config.TelegramConfig{
				BotToken:      "bot-token",
				DefaultChatID: "-100200300",
				BaseURL:       telegramURL,
			},
			Resend: config.ResendConfig{
				APIKey:  "re-key",
				BaseURL: resendURL,
			},
		},
		DeliveryLog: config.DeliveryLogConfig{Type: "memory"},
		Settings:    config.SettingsConfig{Path: filepath.Join(dir, "settings.json")},
		Dispatch:    config.DispatchConfig{SendTimeout: 5 * time.Second},
	}
}

func newTestRelay(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	r, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { r.store.Close() })
	return r.Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.1:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func smsBody() map[string]any {
	return map[string]any{
		"alertType":      "Critical Temperature Alert",
		"severity":       "critical",
		"message":        "Temperature has reached 38.5°C.",
		"recipientPhone": "+237671234567",
		"farmId":         "greenhouse-1",
	}
}

func TestSendSMSSuccess(t *testing.T) {
	twilio := newProviderStub(t, http.StatusCreated, `{"sid":"SM123abc","status":"queued"}`)
	h := newTestRelay(t, testConfig(t, twilio.srv.URL, "", ""))

	w := doJSON(t, h, http.MethodPost, "/functions/v1/send-sms-alert", smsBody())

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	assert.True(t, gjson.Get(body, "success").Bool())
	assert.Equal(t, "SM123abc", gjson.Get(body, "messageSid").String())
	assert.Equal(t, "sent", gjson.Get(body, "status").String())
	assert.Equal(t, "SMS alert sent successfully", gjson.Get(body, "message").String())
	assert.Equal(t, 1, twilio.calls)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSendSMSInvalidPhone(t *testing.T) {
	twilio := newProviderStub(t, http.StatusCreated, `{"sid":"SM1","status":"queued"}`)
	h := newTestRelay(t, testConfig(t, twilio.srv.URL, "", ""))

	body := smsBody()
	body["recipientPhone"] = "0671234567"
	w := doJSON(t, h, http.MethodPost, "/functions/v1/send-sms-alert", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid phone number format. Use E.164 format (e.g., +1234567890)",
		gjson.Get(w.Body.String(), "error").String())
	assert.Equal(t, 0, twilio.calls, "rejected input must never reach the provider")
}

func TestSendSMSMissingFields(t *testing.T) {
	twilio := newProviderStub(t, http.StatusCreated, `{}`)
	h := newTestRelay(t, testConfig(t, twilio.srv.URL, "", ""))

	w := doJSON(t, h, http.MethodPost, "/functions/v1/send-sms-alert", map[string]any{
		"alertType": "Dry Soil Alert",
		"severity":  "warning",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required fields", gjson.Get(w.Body.String(), "error").String())
	assert.Equal(t, 0, twilio.calls)
}

func TestSendSMSInvalidSeverity(t *testing.T) {
	h := newTestRelay(t, testConfig(t, newProviderStub(t, 201, `{}`).srv.URL, "", ""))

	body := smsBody()
	body["severity"] = "urgent"
	w := doJSON(t, h, http.MethodPost, "/functions/v1/send-sms-alert", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid severity", gjson.Get(w.Body.String(), "error").String())
}

func TestSendSMSProviderError(t *testing.T) {
	twilio := newProviderStub(t, http.StatusBadRequest,
		`{"code":21211,"message":"The 'To' number is not a valid phone number."}`)
	h := newTestRelay(t, testConfig(t, twilio.srv.URL, "", ""))

	w := doJSON(t, h, http.MethodPost, "/functions/v1/send-sms-alert", smsBody())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Twilio API error: The 'To' number is not a valid phone number.",
		gjson.Get(w.Body.String(), "error").String())
}

func TestSendTelegramSuccess(t *testing.T) {
	tg := newProviderStub(t, http.StatusOK, `{"ok":true,"result":{"message_id":42}}`)
	h := newTestRelay(t, testConfig(t, "", tg.srv.URL, ""))

	w := doJSON(t, h, http.MethodPost, "/functions/v1/send-telegram-alert", map[string]any{
		"alertType": "Dry Soil Alert",
		"severity":  "warning",
		"message":   "Irrigation recommended.",
		"chatId":    "555",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	assert.True(t, gjson.Get(body, "success").Bool())
	assert.Equal(t, "42", gjson.Get(body, "messageId").String())
	assert.Equal(t, "Telegram alert sent successfully", gjson.Get(body, "message").String())
}

func TestSendTelegramFallsBackToDefaultChat(t *testing.T) {
	tg := newProviderStub(t, http.StatusOK, `{"ok":true,"result":{"message_id":7}}`)
	h := newTestRelay(t, testConfig(t, "", tg.srv.URL, ""))

	w := doJSON(t, h, http.MethodPost, "/functions/v1/send-telegram-alert", map[string]any{
		"alertType": "Dry Soil Alert",
		"severity":  "warning",
		"message":   "Irrigation recommended.",
	})

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, tg.calls)
}

func TestSendTelegramNoChatAnywhere(t *testing.T) {
	tg := newProviderStub(t, http.StatusOK, `{"ok":true}`)
	cfg := testConfig(t, "", tg.srv.URL, "")
	cfg.Providers.Telegram.DefaultChatID = ""
	h := newTestRelay(t, cfg)

	w := doJSON(t, h, http.MethodPost, "/functions/v1/send-telegram-alert", map[string]any{
		"alertType": "Dry Soil Alert",
		"severity":  "warning",
		"message":   "Irrigation recommended.",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No chat ID provided", gjson.Get(w.Body.String(), "error").String())
	assert.Equal(t, 0, tg.calls)
}

func TestSendEmailSuccess(t *testing.T) {
	resend := newProviderStub(t, http.StatusOK, `{"id":"re_abc123"}`)
	h := newTestRelay(t, testConfig(t, "", "", resend.srv.URL))

	w := doJSON(t, h, http.MethodPost, "/functions/v1/send-alert-email", map[string]any{
		"alertType":      "Low Battery Alert",
		"severity":       "warning",
		"message":        "Battery low.",
		"recipientEmail": "farmer@example.com",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	assert.Equal(t, "re_abc123", gjson.Get(body, "messageId").String())
	assert.Equal(t, "Email alert sent successfully", gjson.Get(body, "message").String())
}

func TestSendEmailInvalidAddress(t *testing.T) {
	resend := newProviderStub(t, http.StatusOK, `{"id":"x"}`)
	h := newTestRelay(t, testConfig(t, "", "", resend.srv.URL))

	w := doJSON(t, h, http.MethodPost, "/functions/v1/send-alert-email", map[string]any{
		"alertType":      "Low Battery Alert",
		"severity":       "warning",
		"message":        "Battery low.",
		"recipientEmail": "not-an-email",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid email address", gjson.Get(w.Body.String(), "error").String())
	assert.Equal(t, 0, resend.calls)
}

func TestUnconfiguredChannelIs503(t *testing.T) {
	cfg := testConfig(t, "", "", "")
	cfg.Providers.Twilio = config.TwilioConfig{}
	h := newTestRelay(t, cfg)

	w := doJSON(t, h, http.MethodPost, "/functions/v1/send-sms-alert", smsBody())
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDispatchFansOutPerSettings(t *testing.T) {
	twilio := newProviderStub(t, http.StatusCreated, `{"sid":"SM1","status":"queued"}`)
	tg := newProviderStub(t, http.StatusOK, `{"ok":true,"result":{"message_id":9}}`)
	resend := newProviderStub(t, http.StatusOK, `{"id":"re_1"}`)
	cfg := testConfig(t, twilio.srv.URL, tg.srv.URL, resend.srv.URL)

	r, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { r.store.Close() })
	h := r.Handler()

	// Enable email and telegram; leave sms disabled and whatsapp recipient-less.
	settingsBody := map[string]any{
		"email":    map[string]any{"enabled": true, "recipient": "farmer@example.com"},
		"sms":      map[string]any{"enabled": false, "recipient": "+237671234567"},
		"whatsapp": map[string]any{"enabled": true, "recipient": ""},
		"telegram": map[string]any{"enabled": true, "recipient": "-100200300"},
	}
	w := doJSON(t, h, http.MethodPut, "/v1/settings", settingsBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, h, http.MethodPost, "/v1/dispatch", map[string]any{
		"alertType": "Dry Soil Alert",
		"severity":  "warning",
		"message":   "Irrigation recommended.",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	assert.Equal(t, int64(2), gjson.Get(body, "sent").Int())
	assert.Equal(t, int64(0), gjson.Get(body, "failed").Int())
	assert.True(t, gjson.Get(body, "results.email.record").Exists())
	assert.True(t, gjson.Get(body, "results.telegram.record").Exists())
	assert.Equal(t, gjson.Null, gjson.Get(body, "results.sms").Type, "skipped channel reports null")

	assert.Equal(t, 0, twilio.calls, "disabled channel must never be attempted")
	assert.Equal(t, 1, tg.calls)
	assert.Equal(t, 1, resend.calls)
}

func TestDispatchIsolatesChannelFailure(t *testing.T) {
	tg := newProviderStub(t, http.StatusBadRequest, `{"ok":false,"description":"Bad Request: chat not found"}`)
	resend := newProviderStub(t, http.StatusOK, `{"id":"re_1"}`)
	cfg := testConfig(t, "", tg.srv.URL, resend.srv.URL)
	h := newTestRelay(t, cfg)

	w := doJSON(t, h, http.MethodPut, "/v1/settings", map[string]any{
		"email":    map[string]any{"enabled": true, "recipient": "farmer@example.com"},
		"sms":      map[string]any{"enabled": false, "recipient": ""},
		"whatsapp": map[string]any{"enabled": false, "recipient": ""},
		"telegram": map[string]any{"enabled": true, "recipient": "-100200300"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, h, http.MethodPost, "/v1/dispatch", map[string]any{
		"alertType": "Weather Alert",
		"severity":  "warning",
		"message":   "Frost expected.",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	assert.Equal(t, int64(1), gjson.Get(body, "sent").Int())
	assert.Equal(t, int64(1), gjson.Get(body, "failed").Int())
	assert.Equal(t, "Telegram API error: Bad Request: chat not found",
		gjson.Get(body, "results.telegram.error").String())
	assert.True(t, gjson.Get(body, "results.email.record").Exists())
}

func TestListLogs(t *testing.T) {
	twilio := newProviderStub(t, http.StatusCreated, `{"sid":"SM123","status":"queued"}`)
	h := newTestRelay(t, testConfig(t, twilio.srv.URL, "", ""))

	w := doJSON(t, h, http.MethodPost, "/functions/v1/send-sms-alert", smsBody())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, h, http.MethodGet, "/v1/logs/sms", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Equal(t, "sms", gjson.Get(body, "channel").String())
	require.Equal(t, int64(1), gjson.Get(body, "records.#").Int())
	assert.Equal(t, "SM123", gjson.Get(body, "records.0.provider_message_id").String())
	assert.Equal(t, "sent", gjson.Get(body, "records.0.delivery_status").String())

	// Unknown channel name.
	w = doJSON(t, h, http.MethodGet, "/v1/logs/pager", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSettingsRoundTripAndRejection(t *testing.T) {
	h := newTestRelay(t, testConfig(t, "", "", ""))

	good := map[string]any{
		"email":    map[string]any{"enabled": true, "recipient": "farmer@example.com"},
		"sms":      map[string]any{"enabled": true, "recipient": "+237671234567"},
		"whatsapp": map[string]any{"enabled": false, "recipient": ""},
		"telegram": map[string]any{"enabled": false, "recipient": ""},
	}
	w := doJSON(t, h, http.MethodPut, "/v1/settings", good)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, h, http.MethodGet, "/v1/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "+237671234567", gjson.Get(w.Body.String(), "sms.recipient").String())

	// A bad phone is rejected and the previous settings stay in effect.
	bad := map[string]any{
		"email":    map[string]any{"enabled": true, "recipient": "farmer@example.com"},
		"sms":      map[string]any{"enabled": true, "recipient": "0671234567"},
		"whatsapp": map[string]any{"enabled": false, "recipient": ""},
		"telegram": map[string]any{"enabled": false, "recipient": ""},
	}
	w = doJSON(t, h, http.MethodPut, "/v1/settings", bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid phone number format. Use E.164 format (e.g., +1234567890)",
		gjson.Get(w.Body.String(), "error").String())

	w = doJSON(t, h, http.MethodGet, "/v1/settings", nil)
	assert.Equal(t, "+237671234567", gjson.Get(w.Body.String(), "sms.recipient").String())
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRelay(t, testConfig(t, "", "", ""))

	req := httptest.NewRequest(http.MethodOptions, "/functions/v1/send-sms-alert", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "authorization, x-client-info, apikey, content-type", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestHealth(t *testing.T) {
	h := newTestRelay(t, testConfig(t, "", "", ""))

	w := doJSON(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", gjson.Get(w.Body.String(), "status").String())
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRelay(t, testConfig(t, "", "", ""))

	w := doJSON(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMalformedJSONBody(t *testing.T) {
	h := newTestRelay(t, testConfig(t, "", "", ""))

	req := httptest.NewRequest(http.MethodPost, "/v1/dispatch", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.1:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", gjson.Get(w.Body.String(), "error").String())
}
