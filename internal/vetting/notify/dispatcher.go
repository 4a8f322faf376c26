package notify

import (
	"context"
	"log/slog"
	"time"

	"gatherhall/internal/platform/config"
	"gatherhall/internal/vetting/metrics"
	"gatherhall/internal/vetting/models"
)

// Dispatcher queues rendered notifications and delivers them on a
// worker goroutine with capped retries. Enqueue never blocks: a full
// queue drops the message (logged and counted), keeping the workflow
// path free of notification latency.
type Dispatcher struct {
	inbox      chan Message
	sender     Sender
	logger     *slog.Logger
	metrics    *metrics.Metrics
	maxRetries int
	retryDelay time.Duration
}

func NewDispatcher(sender Sender, logger *slog.Logger, m *metrics.Metrics, cfg config.NotifyConfig) *Dispatcher {
	size := cfg.QueueSize
	if size <= 0 {
		size = 256
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &Dispatcher{
		inbox:      make(chan Message, size),
		sender:     sender,
		logger:     logger,
		metrics:    m,
		maxRetries: retries,
		retryDelay: cfg.RetryDelay,
	}
}

// Dispatch renders and enqueues a notification for the application's
// new status. Statuses outside the dispatch subset are a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, app *models.Application, newStatus models.Status) {
	tmpl, ok := TemplateFor(newStatus)
	if !ok {
		return
	}

	name := DisplayName(app)
	subject, body := tmpl.Render(name)
	msg := Message{
		ApplicationID: app.ID,
		Recipient:     app.Email,
		RecipientName: name,
		NewStatus:     newStatus,
		Subject:       subject,
		Body:          body,
	}

	select {
	case d.inbox <- msg:
	default:
		d.metrics.IncNotificationFailure()
		d.logger.ErrorContext(ctx, "notification queue full, dropping message",
			"application_id", app.ID.String(),
			"new_status", string(newStatus),
		)
	}
}

// Run consumes the queue until ctx is cancelled. Intended to be started
// once from main.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-d.inbox:
			d.deliver(ctx, msg)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) {
	var err error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			d.metrics.IncNotificationRetry()
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.retryDelay):
			}
		}

		if err = d.sender.Send(ctx, msg); err == nil {
			d.metrics.IncNotificationSent()
			return
		}

		d.logger.WarnContext(ctx, "notification send failed",
			"error", err,
			"application_id", msg.ApplicationID.String(),
			"new_status", string(msg.NewStatus),
			"attempt", attempt+1,
		)
	}

	d.metrics.IncNotificationFailure()
	d.logger.ErrorContext(ctx, "notification dropped after retries",
		"error", err,
		"application_id", msg.ApplicationID.String(),
		"new_status", string(msg.NewStatus),
		"retries", d.maxRetries,
	)
}
