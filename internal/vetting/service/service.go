// Package service hosts the vetting workflow engine: the one authority
// for status changes, note additions, and the read paths serving the
// admin UI and the public status page.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gatherhall/internal/identity"
	"gatherhall/internal/vetting/metrics"
	"gatherhall/internal/vetting/models"
	"gatherhall/pkg/attrs"
	id "gatherhall/pkg/domain"
	dErrors "gatherhall/pkg/domain-errors"
	"gatherhall/pkg/platform/sentinel"
	"gatherhall/pkg/requestcontext"
)

// ApplicationStore persists vetting applications.
type ApplicationStore interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	GetByToken(ctx context.Context, token string) (*models.Application, error)
	GetByUserID(ctx context.Context, userID id.UserID) (*models.Application, error)
	Update(ctx context.Context, app *models.Application) error
	List(ctx context.Context, filter models.ListFilter) ([]*models.Application, int, error)
}

// AuditLogStore persists the append-only audit trail.
type AuditLogStore interface {
	Append(ctx context.Context, entry models.AuditEntry) error
	ListByApplication(ctx context.Context, appID id.ApplicationID) ([]models.AuditEntry, error)
}

// IdentityStore is the linked-account collaborator (authorization
// lookups and permission sync).
type IdentityStore interface {
	GetByID(ctx context.Context, userID id.UserID) (*identity.User, error)
	GetByEmail(ctx context.Context, email string) (*identity.User, error)
	SetVettingOutcome(ctx context.Context, userID id.UserID, status string, elevate bool, now time.Time) error
}

// Notifier receives committed status changes for best-effort delivery.
type Notifier interface {
	Dispatch(ctx context.Context, app *models.Application, newStatus models.Status)
}

// AuditMirror receives committed audit entries for the Kafka mirror.
type AuditMirror interface {
	Publish(entry models.AuditEntry)
}

// Service is the vetting workflow engine.
type Service struct {
	apps     ApplicationStore
	auditLog AuditLogStore
	users    IdentityStore
	notifier Notifier
	mirror   AuditMirror
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tx       StoreTx
	tracer   trace.Tracer
}

type serviceConfig struct {
	notifier Notifier
	mirror   AuditMirror
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tx       StoreTx
}

type Option func(cfg *serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *serviceConfig) { cfg.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cfg *serviceConfig) { cfg.metrics = m }
}

func WithNotifier(n Notifier) Option {
	return func(cfg *serviceConfig) { cfg.notifier = n }
}

func WithAuditMirror(m AuditMirror) Option {
	return func(cfg *serviceConfig) { cfg.mirror = m }
}

func WithStoreTx(tx StoreTx) Option {
	return func(cfg *serviceConfig) { cfg.tx = tx }
}

// New constructs the workflow engine. Without WithStoreTx it uses the
// sharded in-memory transaction boundary.
func New(apps ApplicationStore, auditLog AuditLogStore, users IdentityStore, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	tx := cfg.tx
	if tx == nil {
		tx = newInMemoryStoreTx()
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		apps:     apps,
		auditLog: auditLog,
		users:    users,
		notifier: cfg.notifier,
		mirror:   cfg.mirror,
		logger:   logger,
		metrics:  cfg.metrics,
		tx:       tx,
		tracer:   otel.Tracer("gatherhall/vetting"),
	}
}

// requireAdmin resolves the acting user and checks the administrator
// capability. The engine performs this check itself even when the HTTP
// edge already gated the route.
func (s *Service) requireAdmin(ctx context.Context, actorID id.UserID) (*identity.User, error) {
	if actorID.IsZero() {
		return nil, dErrors.New(dErrors.CodeForbidden, "Access denied")
	}
	user, err := s.users.GetByID(ctx, actorID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeForbidden, "Access denied")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve acting user")
	}
	if !user.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "Only administrators can manage vetting applications")
	}
	return user, nil
}

// asDomainOrPersistence passes domain errors through and folds anything
// else (driver errors, sentinel leaks) into a generic persistence
// failure so storage internals never cross the API boundary.
func asDomainOrPersistence(err error) error {
	if err == nil {
		return nil
	}
	var de *dErrors.DomainError
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist vetting changes")
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)

	// Tag the active span so traces correlate with the audit stream.
	if appID := attrs.ExtractString(attributes, "application_id"); appID != "" {
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("application_id", appID))
	}
}
