package service

import (
	"context"
	"errors"
	"strings"

	"gatherhall/internal/vetting/history"
	"gatherhall/internal/vetting/models"
	id "gatherhall/pkg/domain"
	dErrors "gatherhall/pkg/domain-errors"
	"gatherhall/pkg/email"
	"gatherhall/pkg/platform/sentinel"
	"gatherhall/pkg/requestcontext"
	"gatherhall/pkg/secrets"
)

// SubmitInput carries the applicant-supplied fields for a new application.
type SubmitInput struct {
	SceneName      string
	LegalName      string
	Email          string
	Pronouns       string
	ExperienceText string
	SafetyText     string
	CommunityText  string
	References     []models.Reference
}

// SubmitResult is returned to the applicant: the id plus the opaque
// status token used for public status lookups.
type SubmitResult struct {
	ApplicationID id.ApplicationID `json:"application_id"`
	StatusToken   string           `json:"status_token"`
	Status        models.Status    `json:"status"`
}

// Submit creates a new application in UnderReview. One non-deleted
// application per email; the application links to an existing platform
// account with the same email when one exists.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	ctx, span := s.tracer.Start(ctx, "vetting.Submit")
	defer span.End()

	token, err := secrets.Generate()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate status token")
	}

	now := requestcontext.Now(ctx)
	app, err := models.NewApplication(
		id.NewApplicationID(),
		input.SceneName, input.LegalName, input.Email, input.Pronouns,
		input.ExperienceText, input.SafetyText, input.CommunityText,
		input.References, token, now,
	)
	if err != nil {
		return nil, err
	}

	if user, err := s.users.GetByEmail(ctx, app.Email); err == nil {
		uid := user.ID
		app.UserID = &uid
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up applicant account")
	}

	var entry models.AuditEntry
	err = s.tx.RunInTx(withTxKey(ctx, app.ID.String()), func(txCtx context.Context) error {
		if err := s.apps.Create(txCtx, app); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "An application with this email already exists")
			}
			return err
		}

		entry = models.AuditEntry{
			ID:            id.NewEntryID(),
			ApplicationID: app.ID,
			Action:        models.ActionStatusChanged,
			ActorID:       actorOrZero(app),
			Timestamp:     now,
			NewValue:      string(models.StatusUnderReview),
			NoteKind:      models.NoteKindAuto,
		}
		return s.auditLog.Append(txCtx, entry)
	})
	if err != nil {
		return nil, asDomainOrPersistence(err)
	}

	s.metrics.IncApplicationsSubmitted()
	s.logAudit(ctx, "vetting.application_submitted",
		"application_id", app.ID.String(),
	)
	if s.mirror != nil {
		s.mirror.Publish(entry)
	}

	return &SubmitResult{
		ApplicationID: app.ID,
		StatusToken:   app.StatusToken,
		Status:        app.Status,
	}, nil
}

func actorOrZero(app *models.Application) id.UserID {
	if app.UserID != nil {
		return *app.UserID
	}
	return id.UserID{}
}

// statusProgress maps a status to the coarse progress percentage shown
// on the public status page.
var statusProgress = map[models.Status]int{
	models.StatusUnderReview:       25,
	models.StatusInterviewApproved: 50,
	models.StatusFinalReview:       75,
	models.StatusApproved:          100,
	models.StatusDenied:            100,
	models.StatusOnHold:            40,
	models.StatusWithdrawn:         0,
}

// PublicStatusView is the privacy-limited lookup result for applicants.
// No PII beyond the masked email.
type PublicStatusView struct {
	ApplicationNumber string             `json:"application_number"`
	MaskedEmail       string             `json:"masked_email"`
	Status            models.Status      `json:"status"`
	Description       string             `json:"description"`
	Progress          int                `json:"progress_percent"`
	RecentUpdates     []history.NoteView `json:"recent_updates,omitempty"`
}

// StatusByToken resolves the public status view for a status token.
func (s *Service) StatusByToken(ctx context.Context, token string) (*PublicStatusView, error) {
	if strings.TrimSpace(token) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "status token is required")
	}

	app, err := s.apps.GetByToken(ctx, token)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "Application not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}

	entries, err := s.auditLog.ListByApplication(ctx, app.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application history")
	}

	updates := history.Notes(entries)
	const maxPublicUpdates = 3
	var public []history.NoteView
	for _, u := range updates {
		if !u.AutoGenerated {
			continue
		}
		u.AuthorID = id.UserID{} // no reviewer identities on the public page
		public = append(public, u)
		if len(public) == maxPublicUpdates {
			break
		}
	}

	return &PublicStatusView{
		ApplicationNumber: strings.ToUpper(app.ID.String()[:8]),
		MaskedEmail:       email.Mask(app.Email),
		Status:            app.Status,
		Description:       statusDescription(app.Status),
		Progress:          statusProgress[app.Status],
		RecentUpdates:     public,
	}, nil
}

func statusDescription(status models.Status) string {
	switch status {
	case models.StatusUnderReview:
		return "Your application is being reviewed."
	case models.StatusInterviewApproved:
		return "You have been approved for an interview."
	case models.StatusFinalReview:
		return "Your interview is complete and your application is in final review."
	case models.StatusApproved:
		return "Your application has been approved."
	case models.StatusDenied:
		return "Your application was not approved."
	case models.StatusOnHold:
		return "Your application is on hold pending follow-up."
	case models.StatusWithdrawn:
		return "Your application has been withdrawn."
	default:
		return "Status unavailable."
	}
}

// DetailView is the full application detail with derived history views.
// Admin callers get everything; applicants viewing their own
// application get the redacted form (no admin notes, no audit views).
type DetailView struct {
	Application *models.Application    `json:"application"`
	History     []models.AuditEntry    `json:"history,omitempty"`
	Notes       []history.NoteView     `json:"notes,omitempty"`
	Decisions   []history.DecisionView `json:"decisions,omitempty"`
}

// Detail returns an application for an admin or for its own applicant.
func (s *Service) Detail(ctx context.Context, requesterID id.UserID, appID id.ApplicationID) (*DetailView, error) {
	ctx, span := s.tracer.Start(ctx, "vetting.Detail")
	defer span.End()

	app, err := s.apps.GetByID(ctx, appID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "Application not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}

	_, adminErr := s.requireAdmin(ctx, requesterID)
	if adminErr == nil {
		entries, err := s.auditLog.ListByApplication(ctx, app.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application history")
		}
		return &DetailView{
			Application: app,
			History:     history.Workflow(entries),
			Notes:       history.Notes(entries),
			Decisions:   history.Decisions(entries),
		}, nil
	}
	if !dErrors.HasCode(adminErr, dErrors.CodeForbidden) {
		return nil, adminErr
	}

	if app.UserID != nil && *app.UserID == requesterID {
		redacted := *app
		redacted.Notes = nil
		return &DetailView{Application: &redacted}, nil
	}

	return nil, dErrors.New(dErrors.CodeForbidden, "Access denied")
}

// ListResult is one page of applications for review.
type ListResult struct {
	Applications []*models.Application `json:"applications"`
	Total        int                   `json:"total"`
}

// List returns applications matching the filter. Admin only.
func (s *Service) List(ctx context.Context, actorID id.UserID, filter models.ListFilter) (*ListResult, error) {
	if _, err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	apps, total, err := s.apps.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}
	return &ListResult{Applications: apps, Total: total}, nil
}
