package models

import (
	"strings"
	"time"

	id "gatherhall/pkg/domain"
	dErrors "gatherhall/pkg/domain-errors"
)

// NoteKind records at write time whether a note was typed by an
// administrator or synthesized by the workflow engine.
type NoteKind string

const (
	NoteKindManual NoteKind = "manual"
	NoteKindAuto   NoteKind = "auto"
)

// Reference is a community reference supplied on submission.
type Reference struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Relationship string `json:"relationship"`
}

// Note is one entry in the application's ordered note list.
type Note struct {
	Timestamp time.Time `json:"timestamp"`
	AuthorID  id.UserID `json:"author_id"`
	Kind      NoteKind  `json:"kind"`
	Text      string    `json:"text"`
}

// Application is the aggregate root for a vetting application.
//
// Invariants:
//   - Exactly one non-deleted application per applicant email
//   - StatusToken is unique, opaque, and never reused
//   - Status changes only through the workflow engine, never directly
//   - Terminal statuses (Approved, Denied, Withdrawn) freeze status;
//     notes may still be appended through the note-only path
//   - Notes are append-only and ordered; entries are never rewritten
type Application struct {
	ID        id.ApplicationID `json:"id"`
	SceneName string           `json:"scene_name"`
	LegalName string           `json:"legal_name"`
	Email     string           `json:"email"`
	Pronouns  string           `json:"pronouns"`

	ExperienceText string      `json:"experience_text"`
	SafetyText     string      `json:"safety_text"`
	CommunityText  string      `json:"community_text"`
	References     []Reference `json:"references"`

	Status      Status `json:"status"`
	StatusToken string `json:"-"`

	SubmittedAt          time.Time  `json:"submitted_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	ReviewStartedAt      *time.Time `json:"review_started_at,omitempty"`
	InterviewScheduledAt *time.Time `json:"interview_scheduled_at,omitempty"`
	InterviewCompletedAt *time.Time `json:"interview_completed_at,omitempty"`
	DecisionMadeAt       *time.Time `json:"decision_made_at,omitempty"`
	LastReviewedAt       *time.Time `json:"last_reviewed_at,omitempty"`

	Notes []Note `json:"notes"`

	// UserID links the application to a platform account when the
	// applicant already has one. Permission sync on approval/denial
	// applies only when set.
	UserID *id.UserID `json:"user_id,omitempty"`
}

// NewApplication constructs a submitted application in UnderReview.
func NewApplication(appID id.ApplicationID, sceneName, legalName, email, pronouns, experience, safety, community string, refs []Reference, statusToken string, now time.Time) (*Application, error) {
	if strings.TrimSpace(sceneName) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "scene name is required")
	}
	if strings.TrimSpace(email) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeValidation, "email is not valid")
	}
	if statusToken == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "status token cannot be empty")
	}

	reviewStarted := now
	return &Application{
		ID:              appID,
		SceneName:       strings.TrimSpace(sceneName),
		LegalName:       strings.TrimSpace(legalName),
		Email:           strings.ToLower(strings.TrimSpace(email)),
		Pronouns:        strings.TrimSpace(pronouns),
		ExperienceText:  experience,
		SafetyText:      safety,
		CommunityText:   community,
		References:      refs,
		Status:          StatusUnderReview,
		StatusToken:     statusToken,
		SubmittedAt:     now,
		UpdatedAt:       now,
		ReviewStartedAt: &reviewStarted,
	}, nil
}

// CanChangeStatus validates a requested transition against the guards
// in order: terminal state, same-state, transition table. It does not
// check the required-notes rule; that needs the notes text and lives in
// CanChangeStatusWithNotes.
func (a *Application) CanChangeStatus(requested Status) error {
	if !requested.Valid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown status %q", requested)
	}
	if a.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeTerminalState, "Cannot modify terminal state")
	}
	if requested == a.Status {
		return dErrors.Newf(dErrors.CodeInvalidUpdate, "application is already %s; use the note-only path for updates without a status change", a.Status)
	}
	if !CanTransition(a.Status, requested) {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "Invalid transition from %s to %s", a.Status, requested).
			WithMeta("allowed_transitions", joinStatuses(AllowedTransitions(a.Status)))
	}
	return nil
}

// CanChangeStatusWithNotes runs CanChangeStatus plus the required-notes
// guard for OnHold and Denied targets.
func (a *Application) CanChangeStatusWithNotes(requested Status, notes string) error {
	if err := a.CanChangeStatus(requested); err != nil {
		return err
	}
	if requested.RequiresNotes() && strings.TrimSpace(notes) == "" {
		return dErrors.Newf(dErrors.CodeNotesRequired, "Admin notes required when moving to %s", requested)
	}
	return nil
}

// ApplyStatusChange mutates status and the status-specific timestamps.
// Call CanChangeStatusWithNotes first.
func (a *Application) ApplyStatusChange(requested Status, now time.Time) {
	a.Status = requested
	a.UpdatedAt = now
	a.LastReviewedAt = &now

	switch requested {
	case StatusUnderReview:
		if a.ReviewStartedAt == nil {
			a.ReviewStartedAt = &now
		}
	case StatusFinalReview:
		if a.InterviewCompletedAt == nil {
			a.InterviewCompletedAt = &now
		}
	case StatusApproved, StatusDenied:
		a.DecisionMadeAt = &now
	}
}

// CanScheduleInterview guards interview scheduling: the application
// must be in the interview stage and the date must be in the future.
// Rescheduling an already-scheduled interview is allowed.
func (a *Application) CanScheduleInterview(at, now time.Time) error {
	if a.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeTerminalState, "Cannot modify terminal state")
	}
	if a.Status != StatusInterviewApproved {
		return dErrors.Newf(dErrors.CodeInvalidUpdate, "interview can only be scheduled while the application is %s, not %s", StatusInterviewApproved, a.Status)
	}
	if !at.After(now) {
		return dErrors.New(dErrors.CodeValidation, "Interview date must be in the future")
	}
	return nil
}

// ApplyInterviewSchedule stamps the scheduled interview time. Call
// CanScheduleInterview first. Status is untouched: scheduling is an
// in-stage update, not a transition.
func (a *Application) ApplyInterviewSchedule(at, now time.Time) {
	a.InterviewScheduledAt = &at
	a.UpdatedAt = now
	a.LastReviewedAt = &now
}

// AppendNote adds a note record. Notes are append-only.
func (a *Application) AppendNote(now time.Time, author id.UserID, kind NoteKind, text string) {
	a.Notes = append(a.Notes, Note{
		Timestamp: now,
		AuthorID:  author,
		Kind:      kind,
		Text:      text,
	})
	a.UpdatedAt = now
}

// IsLinked reports whether the application is tied to a platform account.
func (a *Application) IsLinked() bool {
	return a.UserID != nil && !a.UserID.IsZero()
}

func joinStatuses(statuses []Status) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
