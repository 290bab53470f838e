package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/wolfman30/olx-poli-relay/internal/observability/metrics"
	"github.com/wolfman30/olx-poli-relay/internal/poli"
	"github.com/wolfman30/olx-poli-relay/pkg/logging"
)

// Texts returned to OLX and to the manual trigger. Callers match on them, so
// they stay fixed.
const (
	BannerText = "🚀 Webhook para OLX Gestão Pro -> Poli Digital está no ar!"

	MsgLeadProcessed = "Lead recebido e processado com sucesso."
	MsgLeadMissing   = "Dados 'name' ou 'phoneNumber' ausentes."
	MsgLeadFailed    = "Erro interno ao processar o lead."

	MsgTestSent    = "Mensagem de teste enviada (verifique logs)"
	MsgTestMissing = "Campos obrigatórios: phone, firstName, operatorName"
	MsgTestFailed  = "Falha ao enviar mensagem de teste (verifique logs)"
)

const (
	routeLead = "/"
	routeTest = "/send"
)

// Relayer is what the handler needs from the service.
type Relayer interface {
	RelayLead(ctx context.Context, lead LeadEvent) error
	SendTest(ctx context.Context, msg poli.TemplateMessage) error
}

// StatusResponse is the body of successful answers (and of the lead 500).
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of rejected requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports which sender is active.
type HealthResponse struct {
	Status string `json:"status"`
	Sender string `json:"sender"`
}

// Handler handles HTTP requests for leads
type Handler struct {
	relay      Relayer
	senderMode string
	logger     *logging.Logger
	metrics    *metrics.RelayMetrics
}

// NewHandler creates a new leads handler
func NewHandler(relay Relayer, senderMode string, logger *logging.Logger, m *metrics.RelayMetrics) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		relay:      relay,
		senderMode: senderMode,
		logger:     logger,
		metrics:    m,
	}
}

// Banner handles GET / liveness checks from a browser.
func (h *Handler) Banner(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, BannerText)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Sender: h.senderMode})
}

// ReceiveLead handles POST / webhooks from OLX.
func (h *Handler) ReceiveLead(w http.ResponseWriter, r *http.Request) {
	body := h.readBody(r)
	h.logger.Info("lead webhook received", "bytes", len(body))
	h.logger.Debug("lead webhook payload", "body", string(body))

	lead, err := ParseLeadEvent(body)
	if err != nil {
		h.logger.Error("lead webhook missing name or phoneNumber")
		h.metrics.ObserveLead(routeLead, "invalid")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: MsgLeadMissing})
		return
	}

	err = guard(func() error { return h.relay.RelayLead(r.Context(), lead) })
	if err == nil {
		h.logger.Info("lead processed and sent to poli")
		h.metrics.ObserveLead(routeLead, "success")
		writeJSON(w, http.StatusOK, StatusResponse{Status: MsgLeadProcessed})
		return
	}

	kind := KindOf(err)
	if kind == KindValidation {
		h.logger.Error("lead rejected", "error", err)
		h.metrics.ObserveLead(routeLead, "invalid")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: MsgLeadMissing})
		return
	}
	h.logFailure("lead relay failed", kind, err)
	h.metrics.ObserveLead(routeLead, outcomeFor(kind))
	writeJSON(w, http.StatusInternalServerError, StatusResponse{Status: MsgLeadFailed})
}

// SendTest handles POST /send manual triggers.
func (h *Handler) SendTest(w http.ResponseWriter, r *http.Request) {
	msg, err := ParseTestMessage(h.readBody(r))
	if err != nil {
		h.metrics.ObserveLead(routeTest, "invalid")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: MsgTestMissing})
		return
	}

	if err := guard(func() error { return h.relay.SendTest(r.Context(), msg) }); err != nil {
		kind := KindOf(err)
		if kind == KindValidation {
			h.metrics.ObserveLead(routeTest, "invalid")
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: MsgTestMissing})
			return
		}
		h.logFailure("test send failed", kind, err)
		h.metrics.ObserveLead(routeTest, outcomeFor(kind))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: MsgTestFailed})
		return
	}

	h.metrics.ObserveLead(routeTest, "success")
	writeJSON(w, http.StatusOK, StatusResponse{Status: MsgTestSent})
}

func (h *Handler) readBody(r *http.Request) []byte {
	if r.Body == nil {
		return nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Warn("failed to read request body", "error", err)
		return nil
	}
	return body
}

func (h *Handler) logFailure(msg string, kind ErrorKind, err error) {
	args := []any{"kind", kind.String(), "error", err}
	var perr *ProcessError
	if errors.As(err, &perr) && perr.Step != "" {
		args = append(args, "step", perr.Step)
	}
	if kind == KindAbandoned {
		h.logger.Warn(msg, args...)
		return
	}
	h.logger.Error(msg, args...)
}

// guard turns a panic in the relay into an unexpected error so the caller
// still gets the fixed 500 body.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ProcessError{Kind: KindUnexpected, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return fn()
}

func outcomeFor(kind ErrorKind) string {
	switch kind {
	case KindDownstream:
		return "downstream_error"
	case KindAbandoned:
		return "abandoned"
	default:
		return "unexpected_error"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
