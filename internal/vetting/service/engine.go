package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gatherhall/internal/vetting/models"
	id "gatherhall/pkg/domain"
	dErrors "gatherhall/pkg/domain-errors"
	"gatherhall/pkg/platform/sentinel"
	"gatherhall/pkg/requestcontext"
)

// ChangeStatus moves an application to a new workflow status.
//
// Order of checks: authorization, load, terminal-state, same-state,
// transition table, required notes. All domain-rule violations are
// detected before any mutation. The application update, the audit
// entry, and the linked-user permission sync commit in one transaction;
// notification dispatch happens strictly after commit and never affects
// the result.
func (s *Service) ChangeStatus(ctx context.Context, actorID id.UserID, appID id.ApplicationID, newStatus models.Status, notes string) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "vetting.ChangeStatus")
	defer span.End()

	if _, err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	var (
		updated *models.Application
		entry   models.AuditEntry
	)
	err := s.tx.RunInTx(withTxKey(ctx, appID.String()), func(txCtx context.Context) error {
		app, err := s.apps.GetByID(txCtx, appID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "Application not found")
		}
		if err != nil {
			return err
		}

		if err := app.CanChangeStatusWithNotes(newStatus, notes); err != nil {
			s.recordRejection(txCtx, app, newStatus, err)
			return err
		}

		now := requestcontext.Now(txCtx)
		oldStatus := app.Status
		app.ApplyStatusChange(newStatus, now)

		noteText := strings.TrimSpace(notes)
		noteKind := models.NoteKindAuto
		if noteText != "" {
			noteKind = models.NoteKindManual
			app.AppendNote(now, actorID, models.NoteKindManual, noteText)
		}

		if err := s.apps.Update(txCtx, app); err != nil {
			return err
		}

		entry = models.AuditEntry{
			ID:            id.NewEntryID(),
			ApplicationID: app.ID,
			Action:        models.ActionStatusChanged,
			ActorID:       actorID,
			Timestamp:     now,
			OldValue:      string(oldStatus),
			NewValue:      string(newStatus),
			Note:          noteText,
			NoteKind:      noteKind,
		}
		if err := s.auditLog.Append(txCtx, entry); err != nil {
			return err
		}

		if (newStatus == models.StatusApproved || newStatus == models.StatusDenied) && app.IsLinked() {
			elevate := newStatus == models.StatusApproved
			if err := s.users.SetVettingOutcome(txCtx, *app.UserID, string(newStatus), elevate, now); err != nil {
				return fmt.Errorf("sync linked account: %w", err)
			}
		}

		updated = app
		return nil
	})
	if err != nil {
		return nil, asDomainOrPersistence(err)
	}

	s.metrics.IncStatusChange(string(newStatus))
	s.logAudit(ctx, "vetting.status_changed",
		"application_id", updated.ID.String(),
		"actor_id", actorID.String(),
		"old_status", entry.OldValue,
		"new_status", entry.NewValue,
	)
	if s.mirror != nil {
		s.mirror.Publish(entry)
	}
	if s.notifier != nil {
		s.notifier.Dispatch(ctx, updated, newStatus)
	}

	return updated, nil
}

// Approve moves the application to Approved. Pure note-composition
// sugar over ChangeStatus: the transition table is the only guard, so
// approving from any status other than FinalReview fails with the
// invalid-transition error carrying the allowed set.
func (s *Service) Approve(ctx context.Context, actorID id.UserID, appID id.ApplicationID, notes string) (*models.Application, error) {
	return s.ChangeStatus(ctx, actorID, appID, models.StatusApproved, notes)
}

// Deny moves the application to Denied. The denial reason is required
// and becomes the status-change note.
func (s *Service) Deny(ctx context.Context, actorID id.UserID, appID id.ApplicationID, reason string) (*models.Application, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Denial reason required")
	}
	return s.ChangeStatus(ctx, actorID, appID, models.StatusDenied, "Denied: "+strings.TrimSpace(reason))
}

// PutOnHold moves the application to OnHold. Both the hold reason and
// the required follow-up actions are mandatory; they compose into the
// status-change note.
func (s *Service) PutOnHold(ctx context.Context, actorID id.UserID, appID id.ApplicationID, reason, requiredActions string) (*models.Application, error) {
	reason = strings.TrimSpace(reason)
	requiredActions = strings.TrimSpace(requiredActions)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Hold reason required")
	}
	if requiredActions == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Required actions must be provided when placing an application on hold")
	}
	notes := fmt.Sprintf("On hold: %s\nRequired actions: %s", reason, requiredActions)
	return s.ChangeStatus(ctx, actorID, appID, models.StatusOnHold, notes)
}

// ScheduleInterview stamps the interview time and location on an
// application in the interview stage. The date must be in the future
// and the location is required. Status does not change; the schedule
// is recorded as an auto note and audited.
func (s *Service) ScheduleInterview(ctx context.Context, actorID id.UserID, appID id.ApplicationID, at time.Time, location string) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "vetting.ScheduleInterview")
	defer span.End()

	if _, err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Interview location required")
	}

	var (
		updated *models.Application
		entry   models.AuditEntry
	)
	err := s.tx.RunInTx(withTxKey(ctx, appID.String()), func(txCtx context.Context) error {
		app, err := s.apps.GetByID(txCtx, appID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "Application not found")
		}
		if err != nil {
			return err
		}

		now := requestcontext.Now(txCtx)
		if err := app.CanScheduleInterview(at, now); err != nil {
			return err
		}

		app.ApplyInterviewSchedule(at, now)
		noteText := fmt.Sprintf("Interview scheduled for %s at %s", at.UTC().Format(time.RFC3339), location)
		app.AppendNote(now, actorID, models.NoteKindAuto, noteText)

		if err := s.apps.Update(txCtx, app); err != nil {
			return err
		}

		entry = models.AuditEntry{
			ID:            id.NewEntryID(),
			ApplicationID: app.ID,
			Action:        models.ActionInterviewScheduled,
			ActorID:       actorID,
			Timestamp:     now,
			Note:          noteText,
			NoteKind:      models.NoteKindAuto,
		}
		if err := s.auditLog.Append(txCtx, entry); err != nil {
			return err
		}

		updated = app
		return nil
	})
	if err != nil {
		return nil, asDomainOrPersistence(err)
	}

	s.logAudit(ctx, "vetting.interview_scheduled",
		"application_id", updated.ID.String(),
		"actor_id", actorID.String(),
		"interview_at", at.UTC().Format(time.RFC3339),
	)
	if s.mirror != nil {
		s.mirror.Publish(entry)
	}

	return updated, nil
}

// AddNote appends an admin note without touching status. Works on
// terminal applications too; audited as a note addition.
func (s *Service) AddNote(ctx context.Context, actorID id.UserID, appID id.ApplicationID, note string) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "vetting.AddNote")
	defer span.End()

	if _, err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "note text is required")
	}

	var (
		updated *models.Application
		entry   models.AuditEntry
	)
	err := s.tx.RunInTx(withTxKey(ctx, appID.String()), func(txCtx context.Context) error {
		app, err := s.apps.GetByID(txCtx, appID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "Application not found")
		}
		if err != nil {
			return err
		}

		now := requestcontext.Now(txCtx)
		app.AppendNote(now, actorID, models.NoteKindManual, note)
		if err := s.apps.Update(txCtx, app); err != nil {
			return err
		}

		entry = models.AuditEntry{
			ID:            id.NewEntryID(),
			ApplicationID: app.ID,
			Action:        models.ActionNoteAdded,
			ActorID:       actorID,
			Timestamp:     now,
			Note:          note,
			NoteKind:      models.NoteKindManual,
		}
		if err := s.auditLog.Append(txCtx, entry); err != nil {
			return err
		}

		updated = app
		return nil
	})
	if err != nil {
		return nil, asDomainOrPersistence(err)
	}

	s.logAudit(ctx, "vetting.note_added",
		"application_id", updated.ID.String(),
		"actor_id", actorID.String(),
	)
	if s.mirror != nil {
		s.mirror.Publish(entry)
	}

	return updated, nil
}

// recordRejection logs and counts a guard failure. Same-state requests
// get a warning: status changes and note-only updates are separate
// operations, so a same-state request usually means API misuse.
func (s *Service) recordRejection(ctx context.Context, app *models.Application, requested models.Status, err error) {
	code := string(dErrors.GetCode(err))
	s.metrics.IncTransitionRejection(code)

	if dErrors.HasCode(err, dErrors.CodeInvalidUpdate) {
		s.logger.WarnContext(ctx, "same-state status change requested",
			"application_id", app.ID.String(),
			"status", string(app.Status),
			"request_id", requestcontext.RequestID(ctx),
		)
		return
	}
	s.logger.InfoContext(ctx, "status change rejected",
		"application_id", app.ID.String(),
		"current_status", string(app.Status),
		"requested_status", string(requested),
		"rejection", code,
		"request_id", requestcontext.RequestID(ctx),
	)
}
