package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/receptionly/platform/internal/customers"
	httpmiddleware "github.com/receptionly/platform/internal/http/middleware"
	"github.com/receptionly/platform/internal/messages"
	"github.com/receptionly/platform/internal/onboarding"
	syncapi "github.com/receptionly/platform/internal/sync"
	"github.com/receptionly/platform/internal/webhook"
	"github.com/receptionly/platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	WebhookHandler     *webhook.Handler
	SyncHandler        *syncapi.Handler
	CustomersHandler   *customers.Handler
	MessagesHandler    *messages.Handler
	OnboardingHandler  *onboarding.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// WebhookRateLimit caps requests/sec per client on the webhook
	// endpoint. Zero disables limiting.
	WebhookRateLimit float64
	WebhookBurst     int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.WebhookHandler != nil {
		r.Route("/webhooks/voice", func(wh chi.Router) {
			if cfg.WebhookRateLimit > 0 {
				wh.Use(httpmiddleware.RateLimit(cfg.WebhookRateLimit, cfg.WebhookBurst))
			}
			wh.Get("/", cfg.WebhookHandler.Health)
			wh.Post("/", cfg.WebhookHandler.Receive)
		})
	}

	if cfg.SyncHandler != nil {
		r.Route("/sync", func(s chi.Router) {
			s.Post("/calls", cfg.SyncHandler.SyncCalls)
			s.Post("/organization", cfg.SyncHandler.SyncOrganization)
			s.Post("/transcripts/backfill", cfg.SyncHandler.BackfillTranscripts)
		})
	}

	if cfg.CustomersHandler != nil {
		r.Get("/customers", cfg.CustomersHandler.List)
	}

	if cfg.MessagesHandler != nil {
		r.Route("/messages", func(m chi.Router) {
			m.Get("/", cfg.MessagesHandler.History)
			m.Get("/stats", cfg.MessagesHandler.Stats)
		})
	}

	if cfg.OnboardingHandler != nil {
		r.Route("/onboarding/businesses", func(o chi.Router) {
			o.Post("/", cfg.OnboardingHandler.CreateBusiness)
			o.Get("/", cfg.OnboardingHandler.GetBusiness)
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
