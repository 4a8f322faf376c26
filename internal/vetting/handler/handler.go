// Package handler mounts the vetting HTTP surface: public submission
// and status lookup, authenticated access checks and self-view, and the
// admin review routes.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"gatherhall/internal/vetting/access"
	"gatherhall/internal/vetting/models"
	"gatherhall/internal/vetting/service"
	id "gatherhall/pkg/domain"
	dErrors "gatherhall/pkg/domain-errors"
	"gatherhall/pkg/platform/httputil"
	"gatherhall/pkg/requestcontext"
)

// Service defines the workflow operations the handler depends on.
type Service interface {
	Submit(ctx context.Context, input service.SubmitInput) (*service.SubmitResult, error)
	StatusByToken(ctx context.Context, token string) (*service.PublicStatusView, error)
	Detail(ctx context.Context, requesterID id.UserID, appID id.ApplicationID) (*service.DetailView, error)
	List(ctx context.Context, actorID id.UserID, filter models.ListFilter) (*service.ListResult, error)
	ChangeStatus(ctx context.Context, actorID id.UserID, appID id.ApplicationID, newStatus models.Status, notes string) (*models.Application, error)
	ScheduleInterview(ctx context.Context, actorID id.UserID, appID id.ApplicationID, at time.Time, location string) (*models.Application, error)
	Approve(ctx context.Context, actorID id.UserID, appID id.ApplicationID, notes string) (*models.Application, error)
	Deny(ctx context.Context, actorID id.UserID, appID id.ApplicationID, reason string) (*models.Application, error)
	PutOnHold(ctx context.Context, actorID id.UserID, appID id.ApplicationID, reason, requiredActions string) (*models.Application, error)
	AddNote(ctx context.Context, actorID id.UserID, appID id.ApplicationID, note string) (*models.Application, error)
}

// AccessChecker answers eligibility questions on the read path.
type AccessChecker interface {
	CanRSVP(ctx context.Context, userID id.UserID, eventID id.EventID) (access.Result, error)
	CanPurchaseTicket(ctx context.Context, userID id.UserID, eventID id.EventID) (access.Result, error)
}

// Handler wires vetting endpoints to the workflow engine.
type Handler struct {
	service Service
	checker AccessChecker
	logger  *slog.Logger
}

func New(service Service, checker AccessChecker, logger *slog.Logger) *Handler {
	return &Handler{service: service, checker: checker, logger: logger}
}

// RegisterPublic mounts the unauthenticated routes.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/vetting/applications", h.HandleSubmit)
	r.Get("/vetting/status/{token}", h.HandleStatusByToken)
}

// RegisterAuthenticated mounts routes that need a signed-in user.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Get("/access/rsvp/{eventID}", h.HandleCanRSVP)
	r.Get("/access/tickets/{eventID}", h.HandleCanPurchaseTicket)
	r.Get("/vetting/applications/{id}", h.HandleDetail)
}

// RegisterAdmin mounts the review routes. Callers must wrap these in
// the auth and admin middleware; the service re-checks authorization
// regardless.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/vetting/applications", h.HandleList)
	r.Get("/admin/vetting/applications/{id}", h.HandleDetail)
	r.Put("/admin/vetting/applications/{id}/status", h.HandleChangeStatus)
	r.Post("/admin/vetting/applications/{id}/schedule-interview", h.HandleScheduleInterview)
	r.Post("/admin/vetting/applications/{id}/approve", h.HandleApprove)
	r.Post("/admin/vetting/applications/{id}/deny", h.HandleDeny)
	r.Post("/admin/vetting/applications/{id}/hold", h.HandleHold)
	r.Post("/admin/vetting/applications/{id}/notes", h.HandleAddNote)
}

// HandleSubmit handles POST /vetting/applications.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[*SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Submit(ctx, service.SubmitInput{
		SceneName:      req.SceneName,
		LegalName:      req.LegalName,
		Email:          req.Email,
		Pronouns:       req.Pronouns,
		ExperienceText: req.ExperienceText,
		SafetyText:     req.SafetyText,
		CommunityText:  req.CommunityText,
		References:     req.DomainReferences(),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "application submission failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "application submitted",
		"request_id", requestID,
		"application_id", result.ApplicationID.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, result)
}

// HandleStatusByToken handles GET /vetting/status/{token}.
func (h *Handler) HandleStatusByToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	view, err := h.service.StatusByToken(ctx, chi.URLParam(r, "token"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleCanRSVP handles GET /access/rsvp/{eventID}.
func (h *Handler) HandleCanRSVP(w http.ResponseWriter, r *http.Request) {
	h.handleAccessCheck(w, r, h.checker.CanRSVP)
}

// HandleCanPurchaseTicket handles GET /access/tickets/{eventID}.
func (h *Handler) HandleCanPurchaseTicket(w http.ResponseWriter, r *http.Request) {
	h.handleAccessCheck(w, r, h.checker.CanPurchaseTicket)
}

func (h *Handler) handleAccessCheck(w http.ResponseWriter, r *http.Request, check func(ctx context.Context, userID id.UserID, eventID id.EventID) (access.Result, error)) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID := requestcontext.UserID(ctx)
	if userID.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid event id"))
		return
	}

	result, err := check(ctx, userID, eventID)
	if err != nil {
		h.logger.ErrorContext(ctx, "access check failed",
			"request_id", requestID,
			"user_id", userID.String(),
			"event_id", eventID.String(),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "access check failed"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleDetail handles GET /vetting/applications/{id} and the admin
// detail route. The service decides how much the requester may see.
func (h *Handler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := requestcontext.UserID(ctx)
	if userID.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid application id"))
		return
	}

	view, err := h.service.Detail(ctx, userID, appID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleList handles GET /admin/vetting/applications.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := requestcontext.UserID(ctx)
	filter := models.ListFilter{
		Query: r.URL.Query().Get("q"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.Status(raw)
		if !status.Valid() {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "unknown status %q", raw))
			return
		}
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.Limit = n
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.Offset = n
		}
	}

	result, err := h.service.List(ctx, userID, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleChangeStatus handles PUT /admin/vetting/applications/{id}/status.
func (h *Handler) HandleChangeStatus(w http.ResponseWriter, r *http.Request) {
	h.handleMutation(w, r, func(ctx context.Context, actorID id.UserID, appID id.ApplicationID, requestID string) (*models.Application, error) {
		req, ok := httputil.DecodeAndPrepare[*ChangeStatusRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return nil, errHandled
		}
		return h.service.ChangeStatus(ctx, actorID, appID, models.Status(req.NewStatus), req.Notes)
	})
}

// HandleScheduleInterview handles POST /admin/vetting/applications/{id}/schedule-interview.
func (h *Handler) HandleScheduleInterview(w http.ResponseWriter, r *http.Request) {
	h.handleMutation(w, r, func(ctx context.Context, actorID id.UserID, appID id.ApplicationID, requestID string) (*models.Application, error) {
		req, ok := httputil.DecodeAndPrepare[*ScheduleInterviewRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return nil, errHandled
		}
		return h.service.ScheduleInterview(ctx, actorID, appID, req.InterviewAt, req.Location)
	})
}

// HandleApprove handles POST /admin/vetting/applications/{id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleMutation(w, r, func(ctx context.Context, actorID id.UserID, appID id.ApplicationID, requestID string) (*models.Application, error) {
		req, ok := httputil.DecodeAndPrepare[*ApproveRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return nil, errHandled
		}
		return h.service.Approve(ctx, actorID, appID, req.Notes)
	})
}

// HandleDeny handles POST /admin/vetting/applications/{id}/deny.
func (h *Handler) HandleDeny(w http.ResponseWriter, r *http.Request) {
	h.handleMutation(w, r, func(ctx context.Context, actorID id.UserID, appID id.ApplicationID, requestID string) (*models.Application, error) {
		req, ok := httputil.DecodeAndPrepare[*DenyRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return nil, errHandled
		}
		return h.service.Deny(ctx, actorID, appID, req.Reason)
	})
}

// HandleHold handles POST /admin/vetting/applications/{id}/hold.
func (h *Handler) HandleHold(w http.ResponseWriter, r *http.Request) {
	h.handleMutation(w, r, func(ctx context.Context, actorID id.UserID, appID id.ApplicationID, requestID string) (*models.Application, error) {
		req, ok := httputil.DecodeAndPrepare[*HoldRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return nil, errHandled
		}
		return h.service.PutOnHold(ctx, actorID, appID, req.Reason, req.RequiredActions)
	})
}

// HandleAddNote handles POST /admin/vetting/applications/{id}/notes.
func (h *Handler) HandleAddNote(w http.ResponseWriter, r *http.Request) {
	h.handleMutation(w, r, func(ctx context.Context, actorID id.UserID, appID id.ApplicationID, requestID string) (*models.Application, error) {
		req, ok := httputil.DecodeAndPrepare[*NoteRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return nil, errHandled
		}
		return h.service.AddNote(ctx, actorID, appID, req.Note)
	})
}

// errHandled signals that the callback already wrote the response.
var errHandled = errors.New("response already written")

func (h *Handler) handleMutation(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actorID id.UserID, appID id.ApplicationID, requestID string) (*models.Application, error)) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	actorID := requestcontext.UserID(ctx)
	if actorID.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid application id"))
		return
	}

	app, err := fn(ctx, actorID, appID, requestID)
	if err != nil {
		if errors.Is(err, errHandled) {
			return
		}
		h.logger.WarnContext(ctx, "vetting mutation rejected",
			"request_id", requestID,
			"application_id", appID.String(),
			"actor_id", actorID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "vetting mutation applied",
		"request_id", requestID,
		"application_id", appID.String(),
		"actor_id", actorID.String(),
		"status", string(app.Status),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, app)
}
