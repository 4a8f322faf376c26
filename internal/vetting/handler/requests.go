package handler

import (
	"strings"
	"time"

	"gatherhall/internal/vetting/models"
	dErrors "gatherhall/pkg/domain-errors"
)

// SubmitRequest is the public application submission payload.
type SubmitRequest struct {
	SceneName      string             `json:"scene_name"`
	LegalName      string             `json:"legal_name"`
	Email          string             `json:"email"`
	Pronouns       string             `json:"pronouns"`
	ExperienceText string             `json:"experience_text"`
	SafetyText     string             `json:"safety_text"`
	CommunityText  string             `json:"community_text"`
	References     []ReferenceRequest `json:"references"`
}

type ReferenceRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Relationship string `json:"relationship"`
}

// Validate normalizes and checks required fields.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.SceneName = strings.TrimSpace(r.SceneName)
	r.Email = strings.TrimSpace(r.Email)
	if r.SceneName == "" {
		return dErrors.New(dErrors.CodeValidation, "scene_name is required")
	}
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if len(r.References) > 10 {
		return dErrors.New(dErrors.CodeValidation, "at most 10 references may be provided")
	}
	return nil
}

func (r *SubmitRequest) DomainReferences() []models.Reference {
	refs := make([]models.Reference, 0, len(r.References))
	for _, ref := range r.References {
		refs = append(refs, models.Reference{
			Name:         strings.TrimSpace(ref.Name),
			Email:        strings.TrimSpace(ref.Email),
			Relationship: strings.TrimSpace(ref.Relationship),
		})
	}
	return refs
}

// ChangeStatusRequest is the admin status-change payload.
type ChangeStatusRequest struct {
	NewStatus string `json:"new_status"`
	Notes     string `json:"notes"`
}

func (r *ChangeStatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.NewStatus = strings.TrimSpace(r.NewStatus)
	if r.NewStatus == "" {
		return dErrors.New(dErrors.CodeValidation, "new_status is required")
	}
	if !models.Status(r.NewStatus).Valid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown status %q", r.NewStatus)
	}
	return nil
}

// ApproveRequest carries optional approval notes.
type ApproveRequest struct {
	Notes string `json:"notes"`
}

func (r *ApproveRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}

// DenyRequest carries the mandatory denial reason.
type DenyRequest struct {
	Reason string `json:"reason"`
}

func (r *DenyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.Reason) == "" {
		return dErrors.New(dErrors.CodeValidation, "Denial reason required")
	}
	return nil
}

// HoldRequest carries the mandatory hold reason and follow-up actions.
type HoldRequest struct {
	Reason          string `json:"reason"`
	RequiredActions string `json:"required_actions"`
}

func (r *HoldRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.Reason) == "" {
		return dErrors.New(dErrors.CodeValidation, "Hold reason required")
	}
	if strings.TrimSpace(r.RequiredActions) == "" {
		return dErrors.New(dErrors.CodeValidation, "required_actions is required")
	}
	return nil
}

// ScheduleInterviewRequest carries the interview time and location.
type ScheduleInterviewRequest struct {
	InterviewAt time.Time `json:"interview_at"`
	Location    string    `json:"location"`
}

func (r *ScheduleInterviewRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.InterviewAt.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "interview_at is required")
	}
	if strings.TrimSpace(r.Location) == "" {
		return dErrors.New(dErrors.CodeValidation, "Interview location required")
	}
	return nil
}

// NoteRequest carries a note-only update.
type NoteRequest struct {
	Note string `json:"note"`
}

func (r *NoteRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.Note) == "" {
		return dErrors.New(dErrors.CodeValidation, "note text is required")
	}
	return nil
}
