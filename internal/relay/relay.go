// Package relay is the HTTP surface of the alert pipeline.
//
// DESIGN: The relay replaces the pair of serverless edge functions with one
// service. Each endpoint keeps the original wire contract (JSON body, CORS
// headers, error strings) so existing dashboard clients keep working:
//
//	POST /functions/v1/send-sms-alert       one SMS via Twilio
//	POST /functions/v1/send-telegram-alert  one Telegram message
//	POST /functions/v1/send-alert-email     one email via Resend
//	POST /v1/dispatch                       fan-out to every enabled channel
//	GET  /v1/logs/{channel}                 recent delivery records
//	GET  /v1/settings, PUT /v1/settings     channel settings
//	GET  /health, GET /metrics
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/channel"
	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/config"
	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/deliverylog"
	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/dispatch"
	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/monitoring"
	"github.com/dze-shalom/AgriConnect-CMR-sub001/internal/settings"
)

// maxBodySize caps inbound request bodies.
const maxBodySize = 1 << 20

// Relay wires the HTTP endpoints to the dispatch pipeline.
type Relay struct {
	cfg        *config.Config
	registry   *channel.Registry
	store      deliverylog.Store
	settings   *settings.Store
	dispatcher *dispatch.Dispatcher
	cooldown   *dispatch.Cooldown

	logger        *monitoring.Logger
	requestLogger *monitoring.RequestLogger
	flagger       *monitoring.Flagger
	metrics       *monitoring.Metrics
	tracker       *monitoring.Tracker
	validate      *validator.Validate

	rateLimiter *rateLimiter
	server      *http.Server
}

// New assembles the relay from configuration. Channels are registered only
// for providers that are fully configured; absence is first-class, not a
// runtime probe.
func New(cfg *config.Config) (*Relay, error) {
	var store deliverylog.Store
	switch cfg.DeliveryLog.Type {
	case "sqlite":
		s, err := deliverylog.NewSQLiteStore(cfg.DeliveryLog.Path)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		store = deliverylog.NewMemoryStore()
	}

	settingsStore, err := settings.NewStore(cfg.Settings.Path)
	if err != nil {
		store.Close()
		return nil, err
	}

	logger := monitoring.New(monitoring.LoggerConfig{
		Level:  cfg.Monitoring.LogLevel,
		Format: cfg.Monitoring.LogFormat,
		Output: cfg.Monitoring.LogOutput,
	})

	tracker, err := monitoring.NewTracker(monitoring.TelemetryConfig{
		Enabled: cfg.Monitoring.TelemetryEnabled,
		LogPath: cfg.Monitoring.TelemetryPath,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	metrics := monitoring.NewMetrics()
	registry := buildRegistry(cfg, store)

	rateLimit := cfg.Server.RateLimit
	if rateLimit == 0 {
		rateLimit = 50
	}

	r := &Relay{
		cfg:           cfg,
		registry:      registry,
		store:         store,
		settings:      settingsStore,
		logger:        logger,
		requestLogger: monitoring.NewRequestLogger(logger),
		flagger: monitoring.NewFlagger(logger, monitoring.FlagConfig{
			HighLatencyThreshold: cfg.Monitoring.HighLatencyThreshold,
		}),
		metrics:     metrics,
		tracker:     tracker,
		validate:    validator.New(),
		rateLimiter: newRateLimiter(rateLimit),
	}
	r.dispatcher = dispatch.New(registry, settingsStore, cfg.Farm.ID, cfg.Dispatch.SendTimeout, metrics)
	if cfg.Dispatch.Cooldown > 0 {
		r.cooldown = dispatch.NewCooldown(cfg.Dispatch.Cooldown)
		r.dispatcher.WithCooldown(r.cooldown)
	}

	r.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return r, nil
}

// buildRegistry registers a sender for every fully configured provider.
func buildRegistry(cfg *config.Config, store deliverylog.Store) *channel.Registry {
	registry := channel.NewRegistry()
	timeout := cfg.Dispatch.SendTimeout

	if cfg.Providers.Twilio.Configured() {
		twilio := channel.NewTwilioClient(
			cfg.Providers.Twilio.AccountSID,
			cfg.Providers.Twilio.AuthToken,
			cfg.Providers.Twilio.BaseURL,
			timeout,
		)
		registry.Register(channel.NewSMSSender(twilio, cfg.Providers.Twilio.FromNumber, store))
		if cfg.Providers.Twilio.WhatsAppFrom != "" {
			registry.Register(channel.NewWhatsAppSender(twilio, cfg.Providers.Twilio.WhatsAppFrom, store))
		}
	}
	if cfg.Providers.Telegram.Configured() {
		registry.Register(channel.NewTelegramSender(
			cfg.Providers.Telegram.BotToken,
			cfg.Providers.Telegram.DefaultChatID,
			cfg.Providers.Telegram.BaseURL,
			timeout,
			store,
		))
	}
	if cfg.Providers.Resend.Configured() {
		registry.Register(channel.NewEmailSender(cfg.Providers.Resend.APIKey, cfg.Providers.Resend.BaseURL, timeout, store))
	}
	return registry
}

// routes builds the handler chain. Middleware order: panic recovery first,
// then rate limiting, request logging, and CORS.
func (r *Relay) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /functions/v1/send-sms-alert", r.handleSendSMS)
	mux.HandleFunc("POST /functions/v1/send-telegram-alert", r.handleSendTelegram)
	mux.HandleFunc("POST /functions/v1/send-alert-email", r.handleSendEmail)
	mux.HandleFunc("POST /v1/dispatch", r.handleDispatch)
	mux.HandleFunc("GET /v1/logs/{channel}", r.handleListLogs)
	mux.HandleFunc("GET /v1/settings", r.handleGetSettings)
	mux.HandleFunc("PUT /v1/settings", r.handleSaveSettings)
	mux.HandleFunc("GET /health", r.handleHealth)
	mux.Handle("GET /metrics", r.metrics.Handler())

	return r.panicRecovery(r.rateLimit(r.loggingMiddleware(r.cors(mux))))
}

// Handler exposes the full middleware chain for tests.
func (r *Relay) Handler() http.Handler {
	return r.routes()
}

// Start begins serving. Blocks until the server stops.
func (r *Relay) Start() error {
	log.Info().
		Int("port", r.cfg.Server.Port).
		Str("farm_id", r.cfg.Farm.ID).
		Msg("alert relay listening")
	return r.server.ListenAndServe()
}

// Shutdown drains in-flight requests and closes the delivery log.
func (r *Relay) Shutdown(ctx context.Context) error {
	err := r.server.Shutdown(ctx)
	if r.cooldown != nil {
		r.cooldown.Close()
	}
	if closeErr := r.store.Close(); err == nil {
		err = closeErr
	}
	return err
}

// writeJSON writes a JSON response with the permissive CORS header the
// dashboard expects.
func (r *Relay) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("response_encode_failed")
	}
}

// writeError writes the {"error": ...} body shared by every endpoint.
func (r *Relay) writeError(w http.ResponseWriter, message string, status int) {
	r.writeJSON(w, status, map[string]string{"error": message})
}

// requestTimeout bounds one relayed send, to keep a hung provider from
// holding the connection past the server write timeout.
func (r *Relay) requestTimeout() time.Duration {
	if r.cfg.Dispatch.SendTimeout != 0 {
		return r.cfg.Dispatch.SendTimeout
	}
	return channel.DefaultSendTimeout
}
