package leads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/olx-poli-relay/internal/observability/metrics"
	"github.com/wolfman30/olx-poli-relay/internal/poli"
	"github.com/wolfman30/olx-poli-relay/pkg/logging"
)

const defaultDownstreamTimeout = 15 * time.Second

// ServiceConfig holds the fixed inputs of the relay.
type ServiceConfig struct {
	// OperatorName is the label sent with every lead relayed from OLX.
	OperatorName string
	// Timeout bounds one downstream send.
	Timeout time.Duration
	// SenderName labels downstream metrics (simulate or live).
	SenderName string
}

// Service turns validated leads into downstream template sends.
type Service struct {
	sender       poli.TemplateSender
	operatorName string
	timeout      time.Duration
	senderName   string
	logger       *logging.Logger
	metrics      *metrics.RelayMetrics
}

// NewService wires a sender into the relay.
func NewService(sender poli.TemplateSender, cfg ServiceConfig, logger *logging.Logger, m *metrics.RelayMetrics) *Service {
	if sender == nil {
		panic("leads: template sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultDownstreamTimeout
	}
	senderName := cfg.SenderName
	if senderName == "" {
		senderName = "unknown"
	}
	return &Service{
		sender:       sender,
		operatorName: cfg.OperatorName,
		timeout:      timeout,
		senderName:   senderName,
		logger:       logger,
		metrics:      m,
	}
}

// RelayLead normalizes the lead's phone and sends the template message.
func (s *Service) RelayLead(ctx context.Context, lead LeadEvent) error {
	if lead.Name == "" || lead.PhoneNumber == "" {
		return &ProcessError{Kind: KindValidation, Err: ErrMissingLeadFields}
	}
	phone := NormalizePhone(lead.PhoneNumber)
	if phone == "" {
		return &ProcessError{Kind: KindValidation, Err: ErrPhoneWithoutDigits}
	}
	return s.dispatch(ctx, poli.TemplateMessage{
		Phone:        phone,
		FirstName:    lead.Name,
		OperatorName: s.operatorName,
	})
}

// SendTest forwards a manual trigger exactly as received.
func (s *Service) SendTest(ctx context.Context, msg poli.TemplateMessage) error {
	if msg.Phone == "" || msg.FirstName == "" || msg.OperatorName == "" {
		return &ProcessError{Kind: KindValidation, Err: ErrMissingTestFields}
	}
	return s.dispatch(ctx, msg)
}

// dispatch only checks for cancellation before the send starts. Once started
// the send is detached from the caller and bounded by the timeout, so a
// disconnect never leaves the Poli workflow half done.
func (s *Service) dispatch(ctx context.Context, msg poli.TemplateMessage) (err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &ProcessError{Kind: KindAbandoned, Err: fmt.Errorf("%w: %w", ErrAbandoned, ctxErr)}
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("template send panicked", "panic", r)
			err = &ProcessError{Kind: KindUnexpected, Err: fmt.Errorf("panic: %v", r)}
		}
		s.metrics.ObserveDownstream(s.senderName, err == nil, time.Since(start).Seconds())
	}()

	if sendErr := s.sender.SendTemplateMessage(sendCtx, msg); sendErr != nil {
		perr := &ProcessError{Kind: KindDownstream, Err: sendErr}
		var stepErr *poli.StepError
		if errors.As(sendErr, &stepErr) {
			perr.Step = string(stepErr.Step)
		}
		return perr
	}
	return nil
}
