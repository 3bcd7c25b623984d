// HTTP handlers for the alert endpoints.
//
// DESIGN: Request bodies are a strict contract: unknown fields are rejected
// and required fields are validated up front, instead of proceeding with
// whatever happened to be present. Error strings on the original edge
// endpoints are preserved byte for byte.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/alert"
	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/channel"
	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/deliverylog"
	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/monitoring"
	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/settings"
)

type smsAlertRequest struct {
	AlertType      string         `json:"alertType" validate:"required"`
	Severity       alert.Severity `json:"severity" validate:"required,oneof=critical warning info"`
	Message        string         `json:"message" validate:"required"`
	RecipientPhone string         `json:"recipientPhone" validate:"required"`
	FarmID         string         `json:"farmId"`
	SensorData     map[string]any `json:"sensorData"`
}

type telegramAlertRequest struct {
	AlertType  string         `json:"alertType" validate:"required"`
	Severity   alert.Severity `json:"severity" validate:"required,oneof=critical warning info"`
	Message    string         `json:"message" validate:"required"`
	ChatID     string         `json:"chatId"`
	FarmID     string         `json:"farmId"`
	SensorData map[string]any `json:"sensorData"`
}

type emailAlertRequest struct {
	AlertType      string         `json:"alertType" validate:"required"`
	Severity       alert.Severity `json:"severity" validate:"required,oneof=critical warning info"`
	Message        string         `json:"message" validate:"required"`
	RecipientEmail string         `json:"recipientEmail" validate:"required"`
	FarmID         string         `json:"farmId"`
	SensorData     map[string]any `json:"sensorData"`
}

type dispatchRequest struct {
	AlertType  string         `json:"alertType" validate:"required"`
	Severity   alert.Severity `json:"severity" validate:"required,oneof=critical warning info"`
	Message    string         `json:"message" validate:"required"`
	SensorData map[string]any `json:"sensorData"`
}

// decodeAndValidate parses a strict JSON body into dst. Writes the error
// response itself and reports whether the handler should proceed.
func (r *Relay) decodeAndValidate(w http.ResponseWriter, req *http.Request, dst any) bool {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodySize)
	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		r.flagger.FlagInvalidRequest(monitoring.RequestIDFromContext(req.Context()), "malformed body")
		r.writeError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}

	if err := r.validate.Struct(dst); err != nil {
		reason := "Missing required fields"
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Tag() == "oneof" {
					reason = "Invalid severity"
				}
			}
		}
		r.flagger.FlagInvalidRequest(monitoring.RequestIDFromContext(req.Context()), reason)
		r.writeError(w, reason, http.StatusBadRequest)
		return false
	}
	return true
}

// farmID falls back to the relay's own farm when the request carries none.
func (r *Relay) farmID(requested string) string {
	if requested != "" {
		return requested
	}
	return r.cfg.Farm.ID
}

// sendOne runs a single channel send on behalf of an edge endpoint and
// writes the response. successBody receives the finished record.
func (r *Relay) sendOne(w http.ResponseWriter, req *http.Request, name string, cfg channel.Config,
	a alert.Alert, farmID string, successBody func(rec deliverylog.Record) any) {

	sender := r.registry.Get(name)
	if sender == nil {
		r.writeError(w, name+" channel is not configured", http.StatusServiceUnavailable)
		return
	}

	requestID := monitoring.RequestIDFromContext(req.Context())
	start := time.Now()

	ctx, cancel := context.WithTimeout(req.Context(), r.requestTimeout())
	defer cancel()

	rec, err := sender.Send(ctx, a, cfg, farmID)
	r.trackDelivery(requestID, name, a, farmID, rec, err, start)

	if err != nil {
		if channel.IsValidation(err) {
			r.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		r.metrics.RecordSend(name, "failed", time.Since(start))
		var pe *channel.ProviderError
		if errors.As(err, &pe) {
			r.flagger.FlagProviderError(requestID, name, pe.StatusCode, pe.Message)
		}
		r.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	r.metrics.RecordSend(name, "sent", time.Since(start))
	r.writeJSON(w, http.StatusOK, successBody(rec))
}

// trackDelivery records one attempt into the telemetry feed. Validation
// rejections never reach the network and are not tracked, mirroring the
// delivery log.
func (r *Relay) trackDelivery(requestID, name string, a alert.Alert, farmID string,
	rec deliverylog.Record, err error, start time.Time) {

	if err != nil && channel.IsValidation(err) {
		return
	}
	ev := monitoring.DeliveryEvent{
		Timestamp:         time.Now().UTC(),
		RequestID:         requestID,
		Channel:           name,
		AlertType:         a.AlertType,
		Severity:          string(a.Severity),
		FarmID:            farmID,
		Status:            string(rec.Status),
		ProviderMessageID: rec.ProviderMessageID,
		LatencyMs:         time.Since(start).Milliseconds(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	r.tracker.RecordDelivery(ev)
}

// handleSendSMS relays one SMS alert through Twilio.
func (r *Relay) handleSendSMS(w http.ResponseWriter, req *http.Request) {
	var body smsAlertRequest
	if !r.decodeAndValidate(w, req, &body) {
		return
	}

	if !channel.ValidE164(body.RecipientPhone) {
		r.writeError(w, "Invalid phone number format. Use E.164 format (e.g., +1234567890)", http.StatusBadRequest)
		return
	}

	a := alert.Alert{AlertType: body.AlertType, Severity: body.Severity, Message: body.Message, SensorData: body.SensorData}
	cfg := channel.Config{Enabled: true, Recipient: body.RecipientPhone}

	r.sendOne(w, req, channel.SMS, cfg, a, r.farmID(body.FarmID), func(rec deliverylog.Record) any {
		return map[string]any{
			"success":    true,
			"messageSid": rec.ProviderMessageID,
			"status":     string(rec.Status),
			"message":    "SMS alert sent successfully",
		}
	})
}

// handleSendTelegram relays one Telegram alert through the Bot API.
// An empty chatId falls back to the configured default chat id; neither
// present is a 400.
func (r *Relay) handleSendTelegram(w http.ResponseWriter, req *http.Request) {
	var body telegramAlertRequest
	if !r.decodeAndValidate(w, req, &body) {
		return
	}

	a := alert.Alert{AlertType: body.AlertType, Severity: body.Severity, Message: body.Message, SensorData: body.SensorData}
	cfg := channel.Config{Enabled: true, Recipient: body.ChatID}

	r.sendOne(w, req, channel.Telegram, cfg, a, r.farmID(body.FarmID), func(rec deliverylog.Record) any {
		return map[string]any{
			"success":   true,
			"messageId": rec.ProviderMessageID,
			"message":   "Telegram alert sent successfully",
		}
	})
}

// handleSendEmail relays one email alert through Resend.
func (r *Relay) handleSendEmail(w http.ResponseWriter, req *http.Request) {
	var body emailAlertRequest
	if !r.decodeAndValidate(w, req, &body) {
		return
	}

	if !channel.ValidEmail(body.RecipientEmail) {
		r.writeError(w, "Invalid email address", http.StatusBadRequest)
		return
	}

	a := alert.Alert{AlertType: body.AlertType, Severity: body.Severity, Message: body.Message, SensorData: body.SensorData}
	cfg := channel.Config{Enabled: true, Recipient: body.RecipientEmail}

	r.sendOne(w, req, channel.Email, cfg, a, r.farmID(body.FarmID), func(rec deliverylog.Record) any {
		return map[string]any{
			"success":   true,
			"messageId": rec.ProviderMessageID,
			"message":   "Email alert sent successfully",
		}
	})
}

// handleDispatch fans one alert out to every enabled channel using the
// server-held settings.
func (r *Relay) handleDispatch(w http.ResponseWriter, req *http.Request) {
	var body dispatchRequest
	if !r.decodeAndValidate(w, req, &body) {
		return
	}

	a := alert.Alert{AlertType: body.AlertType, Severity: body.Severity, Message: body.Message, SensorData: body.SensorData}

	result := r.dispatcher.DispatchAll(req.Context(), a)

	r.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"farmId":  r.cfg.Farm.ID,
		"sent":    result.Succeeded(),
		"failed":  result.Failed(),
		"results": result,
	})
}

// handleListLogs returns recent delivery records for one channel.
func (r *Relay) handleListLogs(w http.ResponseWriter, req *http.Request) {
	name := req.PathValue("channel")
	switch name {
	case channel.Email, channel.SMS, channel.WhatsApp, channel.Telegram:
	default:
		r.writeError(w, "Unknown channel", http.StatusNotFound)
		return
	}

	limit := 50
	if q := req.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	records, err := r.store.ListRecent(req.Context(), name, limit)
	if err != nil {
		r.writeError(w, "Failed to read delivery log", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []deliverylog.Record{}
	}

	r.writeJSON(w, http.StatusOK, map[string]any{
		"channel": name,
		"records": records,
	})
}

// handleGetSettings returns the current channel settings.
func (r *Relay) handleGetSettings(w http.ResponseWriter, req *http.Request) {
	r.writeJSON(w, http.StatusOK, r.settings.Load())
}

// handleSaveSettings validates and persists new channel settings. A
// validation failure leaves the previous settings in effect.
func (r *Relay) handleSaveSettings(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodySize)
	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()

	var next settings.Settings
	if err := dec.Decode(&next); err != nil {
		r.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := r.settings.Save(next); err != nil {
		if channel.IsValidation(err) {
			r.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		r.writeError(w, "Failed to save settings", http.StatusInternalServerError)
		return
	}

	r.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleHealth reports liveness.
func (r *Relay) handleHealth(w http.ResponseWriter, req *http.Request) {
	r.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
