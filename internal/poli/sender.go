package poli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/olx-poli-relay/internal/observability/metrics"
	"github.com/wolfman30/olx-poli-relay/pkg/logging"
)

const (
	// ModeSimulate logs the send and reports success without calling Poli.
	ModeSimulate = "simulate"
	// ModeLive drives the four-step workflow against the Poli API.
	ModeLive = "live"
)

// TemplateSender delivers one template message for a lead.
type TemplateSender interface {
	SendTemplateMessage(ctx context.Context, msg TemplateMessage) error
}

// SenderConfig captures what is needed to build either sender.
type SenderConfig struct {
	Mode           string
	APIToken       string
	BaseURL        string
	UserID         string
	TemplateID     string
	RequestTimeout time.Duration
	MaxRetries     int
	Backoff        time.Duration
	RateLimit      float64
	Cache          ContactCache
	Metrics        *metrics.RelayMetrics
}

// BuildSender instantiates the sender for the configured mode. It returns the
// sender, the mode that was selected, and a reason when live mode was asked
// for but could not be initialized (the simulator is used instead).
func BuildSender(cfg SenderConfig, logger *logging.Logger) (TemplateSender, string, string) {
	if logger == nil {
		logger = logging.Default()
	}
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = ModeSimulate
	}

	switch mode {
	case ModeSimulate:
		return NewSimulator(logger), ModeSimulate, ""
	case ModeLive:
	default:
		return NewSimulator(logger), ModeSimulate, fmt.Sprintf("unknown POLI_MODE %q", cfg.Mode)
	}

	var missing []string
	if strings.TrimSpace(cfg.APIToken) == "" {
		missing = append(missing, "POLI_API_TOKEN missing")
	}
	if strings.TrimSpace(cfg.UserID) == "" {
		missing = append(missing, "USER_ID missing")
	}
	if len(missing) > 0 {
		return NewSimulator(logger), ModeSimulate, strings.Join(missing, ", ")
	}

	client, err := New(Config{
		BaseURL:    cfg.BaseURL,
		APIToken:   cfg.APIToken,
		Timeout:    cfg.RequestTimeout,
		MaxRetries: cfg.MaxRetries,
		Backoff:    cfg.Backoff,
		RateLimit:  cfg.RateLimit,
		Logger:     logger,
	})
	if err != nil {
		return NewSimulator(logger), ModeSimulate, err.Error()
	}
	pipeline, err := NewPipeline(client, PipelineConfig{
		UserID:     cfg.UserID,
		TemplateID: cfg.TemplateID,
		Cache:      cfg.Cache,
		Logger:     logger,
		Metrics:    cfg.Metrics,
	})
	if err != nil {
		return NewSimulator(logger), ModeSimulate, err.Error()
	}
	return pipeline, ModeLive, ""
}
