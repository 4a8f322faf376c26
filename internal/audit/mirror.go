// Package audit mirrors committed audit entries to Kafka for downstream
// consumers (compliance exports, analytics). The transactional postgres
// log remains the source of truth; mirroring is best-effort and its
// failure never affects the workflow.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"gatherhall/internal/vetting/metrics"
	"gatherhall/internal/vetting/models"
)

// Producer is the Kafka client slice the mirror needs.
type Producer interface {
	Produce(ctx context.Context, key, value []byte) error
}

// Mirror accepts entries on a channel and publishes them from a worker
// goroutine. Publish never blocks the caller: a full channel drops the
// entry with a log line and a metric.
type Mirror struct {
	producer Producer
	inbox    chan models.AuditEntry
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewMirror(producer Producer, logger *slog.Logger, m *metrics.Metrics) *Mirror {
	return &Mirror{
		producer: producer,
		inbox:    make(chan models.AuditEntry, 512),
		logger:   logger,
		metrics:  m,
	}
}

// Publish hands an entry to the mirror worker. Safe to call after the
// owning transaction committed; never before.
func (m *Mirror) Publish(entry models.AuditEntry) {
	select {
	case m.inbox <- entry:
	default:
		m.metrics.IncAuditMirrorFailure()
		m.logger.Error("audit mirror inbox full, dropping entry",
			"entry_id", entry.ID.String(),
			"application_id", entry.ApplicationID.String(),
		)
	}
}

// Run consumes the inbox until ctx is cancelled.
func (m *Mirror) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-m.inbox:
			m.publish(ctx, entry)
		}
	}
}

func (m *Mirror) publish(ctx context.Context, entry models.AuditEntry) {
	payload, err := json.Marshal(entry)
	if err != nil {
		m.metrics.IncAuditMirrorFailure()
		m.logger.ErrorContext(ctx, "failed to encode audit entry for mirror",
			"error", err,
			"entry_id", entry.ID.String(),
		)
		return
	}

	if err := m.producer.Produce(ctx, []byte(entry.ApplicationID.String()), payload); err != nil {
		m.metrics.IncAuditMirrorFailure()
		m.logger.ErrorContext(ctx, "failed to mirror audit entry",
			"error", err,
			"entry_id", entry.ID.String(),
			"application_id", entry.ApplicationID.String(),
		)
	}
}
