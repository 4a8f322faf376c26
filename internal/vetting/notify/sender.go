package notify

import (
	"context"
	"log/slog"

	"gatherhall/internal/vetting/models"
	id "gatherhall/pkg/domain"
)

// Message is one rendered notification ready for delivery.
type Message struct {
	ApplicationID id.ApplicationID
	Recipient     string
	RecipientName string
	NewStatus     models.Status
	Subject       string
	Body          string
}

// Sender is the external email collaborator. Implementations must not
// panic; errors are handled by the dispatcher's retry loop.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SlogSender logs messages instead of delivering them. Dev wiring.
type SlogSender struct {
	logger *slog.Logger
}

func NewSlogSender(logger *slog.Logger) *SlogSender {
	return &SlogSender{logger: logger}
}

func (s *SlogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "notification (dev sender)",
		"application_id", msg.ApplicationID.String(),
		"recipient", msg.Recipient,
		"new_status", string(msg.NewStatus),
		"subject", msg.Subject,
	)
	return nil
}
