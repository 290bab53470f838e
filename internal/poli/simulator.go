package poli

import (
	"context"

	"github.com/wolfman30/olx-poli-relay/pkg/logging"
)

// Simulator stands in for the Poli workflow: it only logs what would be sent.
type Simulator struct {
	logger *logging.Logger
}

var _ TemplateSender = (*Simulator)(nil)

func NewSimulator(logger *logging.Logger) *Simulator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Simulator{logger: logger}
}

func (s *Simulator) SendTemplateMessage(ctx context.Context, msg TemplateMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info("starting template send",
		"first_name", msg.FirstName,
		"phone", msg.Phone,
		"operator", msg.OperatorName,
	)
	s.logger.Info("template message sent (simulated)", "phone", msg.Phone)
	return nil
}
