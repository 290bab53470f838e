package bootstrap

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/olx-poli-relay/internal/api/router"
	appconfig "github.com/wolfman30/olx-poli-relay/internal/config"
	"github.com/wolfman30/olx-poli-relay/internal/leads"
	"github.com/wolfman30/olx-poli-relay/internal/observability/metrics"
	"github.com/wolfman30/olx-poli-relay/internal/poli"
	"github.com/wolfman30/olx-poli-relay/pkg/logging"
)

// Relay is the assembled HTTP surface plus what was selected while building it.
type Relay struct {
	Handler    http.Handler
	SenderMode string
	Metrics    *metrics.RelayMetrics
}

// BuildMetrics registers the relay metrics on a fresh registry (with the Go
// and process collectors) and returns the /metrics handler for it.
func BuildMetrics() (http.Handler, *metrics.RelayMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewRelayMetrics(reg)
}

// BuildRelay wires sender, service, handler and router from configuration.
// cache may be nil.
func BuildRelay(cfg *appconfig.Config, cache poli.ContactCache, logger *logging.Logger) *Relay {
	if logger == nil {
		logger = logging.Default()
	}
	metricsHandler, relayMetrics := BuildMetrics()

	sender, mode, reason := poli.BuildSender(poli.SenderConfig{
		Mode:           cfg.PoliMode,
		APIToken:       cfg.PoliAPIToken,
		BaseURL:        cfg.PoliBaseURL,
		UserID:         cfg.PoliUserID,
		TemplateID:     cfg.PoliTemplateID,
		RequestTimeout: cfg.PoliRequestTimeout,
		MaxRetries:     cfg.PoliMaxRetries,
		Backoff:        cfg.PoliRetryBackoff,
		RateLimit:      cfg.PoliRateLimit,
		Cache:          cache,
		Metrics:        relayMetrics,
	}, logger)
	if reason != "" {
		logger.Warn("poli live mode unavailable, falling back to simulator",
			"requested_mode", cfg.PoliMode,
			"reason", reason,
		)
	}
	logger.Info("poli sender selected", "mode", mode, "contact_cache", cache != nil)

	svc := leads.NewService(sender, leads.ServiceConfig{
		OperatorName: cfg.DefaultOperatorName,
		Timeout:      cfg.DownstreamTimeout,
		SenderName:   mode,
	}, logger, relayMetrics)

	handler := router.New(&router.Config{
		Logger:         logger,
		LeadsHandler:   leads.NewHandler(svc, mode, logger, relayMetrics),
		MetricsHandler: metricsHandler,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	})

	return &Relay{Handler: handler, SenderMode: mode, Metrics: relayMetrics}
}
