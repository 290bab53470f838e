package poli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/olx-poli-relay/internal/observability/metrics"
	"github.com/wolfman30/olx-poli-relay/pkg/logging"
)

// StepName identifies one call of the lead workflow.
type StepName string

const (
	StepCreateContact  StepName = "create-contact"
	StepAssignOperator StepName = "assign-operator"
	StepOpenChat       StepName = "open-chat"
	StepSendTemplate   StepName = "send-template"
)

// StepError reports which workflow step failed.
type StepError struct {
	Step StepName
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("poli: step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Workflow is the downstream contract the pipeline drives. The Poli endpoint
// shapes are not documented, so anything honoring these four calls can be
// plugged in.
type Workflow interface {
	CreateContact(ctx context.Context, req ContactRequest) (*Contact, error)
	AssignOperator(ctx context.Context, contactID, userID string) error
	OpenChat(ctx context.Context, contactID string) (*Chat, error)
	SendTemplate(ctx context.Context, chatID string, req TemplateRequest) error
}

// PipelineConfig carries the fixed inputs of every run.
type PipelineConfig struct {
	UserID     string
	TemplateID string
	Cache      ContactCache
	Logger     *logging.Logger
	Metrics    *metrics.RelayMetrics
}

// Pipeline runs create-contact, assign-operator, open-chat and send-template
// in order and stops at the first failure.
type Pipeline struct {
	workflow   Workflow
	userID     string
	templateID string
	cache      ContactCache
	logger     *logging.Logger
	metrics    *metrics.RelayMetrics
	tracer     trace.Tracer
}

var _ TemplateSender = (*Pipeline)(nil)

func NewPipeline(workflow Workflow, cfg PipelineConfig) (*Pipeline, error) {
	if workflow == nil {
		return nil, errors.New("poli: workflow required")
	}
	if strings.TrimSpace(cfg.UserID) == "" {
		return nil, errors.New("poli: operator user id required")
	}
	if strings.TrimSpace(cfg.TemplateID) == "" {
		return nil, errors.New("poli: template id required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Pipeline{
		workflow:   workflow,
		userID:     cfg.UserID,
		templateID: cfg.TemplateID,
		cache:      cfg.Cache,
		logger:     logger,
		metrics:    cfg.Metrics,
		tracer:     otel.Tracer("olxrelay.internal.poli.pipeline"),
	}, nil
}

// SendTemplateMessage drives the four steps for one lead.
func (p *Pipeline) SendTemplateMessage(ctx context.Context, msg TemplateMessage) error {
	if err := msg.validate(); err != nil {
		return err
	}

	ctx, span := p.tracer.Start(ctx, "poli.pipeline.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("poli.phone", msg.Phone),
		attribute.String("poli.template", p.templateID),
	)

	p.logger.Info("starting template send", "first_name", msg.FirstName, "phone", msg.Phone)

	contactID, err := p.resolveContact(ctx, msg)
	if err != nil {
		return p.fail(span, err)
	}

	err = p.runStep(ctx, StepAssignOperator, func(ctx context.Context) error {
		return p.workflow.AssignOperator(ctx, contactID, p.userID)
	})
	if err != nil {
		return p.fail(span, err)
	}

	var chatID string
	err = p.runStep(ctx, StepOpenChat, func(ctx context.Context) error {
		chat, err := p.workflow.OpenChat(ctx, contactID)
		if err != nil {
			return err
		}
		chatID = chat.ID
		return nil
	})
	if err != nil {
		return p.fail(span, err)
	}

	err = p.runStep(ctx, StepSendTemplate, func(ctx context.Context) error {
		return p.workflow.SendTemplate(ctx, chatID, TemplateRequest{
			TemplateID: p.templateID,
			Params:     []string{msg.FirstName, msg.OperatorName},
		})
	})
	if err != nil {
		return p.fail(span, err)
	}

	p.logger.Info("template message sent", "contact_id", contactID, "chat_id", chatID)
	return nil
}

func (p *Pipeline) resolveContact(ctx context.Context, msg TemplateMessage) (string, error) {
	if p.cache != nil {
		id, ok, err := p.cache.Lookup(ctx, msg.Phone)
		if err != nil {
			p.logger.Warn("contact cache lookup failed", "phone", msg.Phone, "error", err)
		} else if ok {
			p.metrics.ObserveStep(string(StepCreateContact), "cached")
			p.logger.Debug("contact cache hit", "phone", msg.Phone, "contact_id", id)
			return id, nil
		}
	}

	var contactID string
	err := p.runStep(ctx, StepCreateContact, func(ctx context.Context) error {
		contact, err := p.workflow.CreateContact(ctx, ContactRequest{Name: msg.FirstName, Phone: msg.Phone})
		if err != nil {
			return err
		}
		contactID = contact.ID
		return nil
	})
	if err != nil {
		return "", err
	}

	if p.cache != nil {
		if err := p.cache.Remember(ctx, msg.Phone, contactID); err != nil {
			p.logger.Warn("contact cache store failed", "phone", msg.Phone, "error", err)
		}
	}
	return contactID, nil
}

func (p *Pipeline) runStep(ctx context.Context, step StepName, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "poli.step."+string(step))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(step)+" failed")
		p.metrics.ObserveStep(string(step), "error")
		p.logger.Error("poli step failed",
			"step", step,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return &StepError{Step: step, Err: err}
	}
	p.metrics.ObserveStep(string(step), "ok")
	p.logger.Debug("poli step completed", "step", step, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (p *Pipeline) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "pipeline failed")
	return err
}
