package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpmiddleware "github.com/wolfman30/olx-poli-relay/internal/http/middleware"
	"github.com/wolfman30/olx-poli-relay/internal/leads"
	"github.com/wolfman30/olx-poli-relay/pkg/logging"
)

const defaultMaxBodyBytes int64 = 1 << 20

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	LeadsHandler   *leads.Handler
	MetricsHandler http.Handler
	// MaxBodyBytes caps inbound request bodies. Zero means 1 MiB.
	MaxBodyBytes int64
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(maxBody))

	// OLX posts leads to the root path.
	r.Get("/", cfg.LeadsHandler.Banner)
	r.Post("/", cfg.LeadsHandler.ReceiveLead)
	r.Post("/send", cfg.LeadsHandler.SendTest)
	r.Get("/health", cfg.LeadsHandler.Health)

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}
