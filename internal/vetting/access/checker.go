package access

import (
	"context"
	"errors"
	"log/slog"

	"gatherhall/internal/vetting/metrics"
	"gatherhall/internal/vetting/models"
	id "gatherhall/pkg/domain"
	"gatherhall/pkg/platform/sentinel"
	"gatherhall/pkg/requestcontext"
)

// ApplicationReader is the slice of the application store the checker needs.
type ApplicationReader interface {
	GetByUserID(ctx context.Context, userID id.UserID) (*models.Application, error)
}

// AuditAppender records denial entries. Failures are swallowed here:
// audit logging must never block an access decision.
type AuditAppender interface {
	Append(ctx context.Context, entry models.AuditEntry) error
}

// Checker answers RSVP and ticket-purchase eligibility. Status reads go
// through the snapshot cache; the policy itself re-evaluates on every
// check so cached statuses never pin stale decisions.
type Checker struct {
	apps     ApplicationReader
	auditLog AuditAppender
	cache    StatusCache
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewChecker(apps ApplicationReader, auditLog AuditAppender, cache StatusCache, logger *slog.Logger, m *metrics.Metrics) *Checker {
	return &Checker{
		apps:     apps,
		auditLog: auditLog,
		cache:    cache,
		logger:   logger,
		metrics:  m,
	}
}

// CanRSVP checks RSVP eligibility for the user.
func (c *Checker) CanRSVP(ctx context.Context, userID id.UserID, eventID id.EventID) (Result, error) {
	return c.check(ctx, TypeRSVP, userID, eventID)
}

// CanPurchaseTicket checks ticket-purchase eligibility for the user.
func (c *Checker) CanPurchaseTicket(ctx context.Context, userID id.UserID, eventID id.EventID) (Result, error) {
	return c.check(ctx, TypeTicketPurchase, userID, eventID)
}

func (c *Checker) check(ctx context.Context, accessType Type, userID id.UserID, eventID id.EventID) (Result, error) {
	snap, err := c.lookup(ctx, accessType, userID)
	if err != nil {
		return Result{}, err
	}

	result := Evaluate(accessType, snap.HasApplication, snap.Status)

	outcome := "allowed"
	if !result.Allowed {
		outcome = "denied"
		c.auditDenial(ctx, accessType, userID, eventID, snap, result)
	}
	c.metrics.IncAccessCheck(string(accessType), outcome)

	return result, nil
}

// lookup resolves the user's vetting snapshot through the cache.
// Cache failures degrade to a storage read; they never fail the check.
func (c *Checker) lookup(ctx context.Context, accessType Type, userID id.UserID) (Snapshot, error) {
	if c.cache != nil {
		snap, err := c.cache.Get(ctx, accessType, userID)
		if err != nil {
			c.logger.WarnContext(ctx, "status cache read failed",
				"error", err,
				"user_id", userID.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
		} else if snap != nil {
			c.metrics.IncCacheHit()
			return *snap, nil
		}
		c.metrics.IncCacheMiss()
	}

	app, err := c.apps.GetByUserID(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		snap := Snapshot{HasApplication: false}
		c.store(ctx, accessType, userID, snap)
		return snap, nil
	}
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{HasApplication: true, ApplicationID: app.ID, Status: app.Status}
	c.store(ctx, accessType, userID, snap)
	return snap, nil
}

func (c *Checker) store(ctx context.Context, accessType Type, userID id.UserID, snap Snapshot) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, accessType, userID, snap); err != nil {
		c.logger.WarnContext(ctx, "status cache write failed",
			"error", err,
			"user_id", userID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

// auditDenial writes a denial entry tagged with the access type, only
// for users with an application on file.
func (c *Checker) auditDenial(ctx context.Context, accessType Type, userID id.UserID, eventID id.EventID, snap Snapshot, result Result) {
	if !snap.HasApplication {
		return
	}

	entry := models.AuditEntry{
		ID:            id.NewEntryID(),
		ApplicationID: snap.ApplicationID,
		Action:        string(accessType),
		ActorID:       userID,
		Timestamp:     requestcontext.Now(ctx),
		OldValue:      string(snap.Status),
		NewValue:      "denied",
		Note:          result.Message,
		NoteKind:      models.NoteKindAuto,
	}
	if err := c.auditLog.Append(ctx, entry); err != nil {
		c.logger.ErrorContext(ctx, "failed to audit access denial",
			"error", err,
			"user_id", userID.String(),
			"event_id", eventID.String(),
			"access_type", string(accessType),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}
