package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatherhall/internal/identity"
	"gatherhall/internal/vetting/access"
	"gatherhall/internal/vetting/models"
	"gatherhall/internal/vetting/service"
	appstore "gatherhall/internal/vetting/store/application"
	auditlogstore "gatherhall/internal/vetting/store/auditlog"
	id "gatherhall/pkg/domain"
	"gatherhall/pkg/testutil"
)

type harness struct {
	router  chi.Router
	service *service.Service
	apps    *appstore.InMemoryStore
	users   *identity.InMemoryStore
	admin   id.UserID
	member  id.UserID
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	apps := appstore.NewInMemoryStore()
	auditLog := auditlogstore.NewInMemoryStore()
	users := identity.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	admin := id.NewUserID()
	users.Put(&identity.User{ID: admin, Email: "admin@example.org", Role: identity.RoleAdministrator})
	member := id.NewUserID()
	users.Put(&identity.User{ID: member, Email: "member@example.org", Role: identity.RoleMember})

	svc := service.New(apps, auditLog, users, service.WithLogger(logger))
	checker := access.NewChecker(apps, auditLog, access.NewMemoryCache(time.Minute), logger, nil)
	h := New(svc, checker, logger)

	router := chi.NewRouter()
	h.RegisterPublic(router)
	h.RegisterAuthenticated(router)
	h.RegisterAdmin(router)

	return &harness{
		router:  router,
		service: svc,
		apps:    apps,
		users:   users,
		admin:   admin,
		member:  member,
	}
}

func (h *harness) submit(t *testing.T, email string) *service.SubmitResult {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/vetting/applications", map[string]any{
		"scene_name": "RavenWing",
		"email":      email,
	})
	rr := testutil.DoRequest(h.router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	return testutil.UnmarshalResponse[service.SubmitResult](t, rr)
}

func TestSubmitApplication(t *testing.T) {
	h := newHarness(t)

	t.Run("valid submission returns 201 with token", func(t *testing.T) {
		result := h.submit(t, "jane@example.org")
		assert.False(t, result.ApplicationID.IsZero())
		assert.NotEmpty(t, result.StatusToken)
		assert.Equal(t, models.StatusUnderReview, result.Status)
	})

	t.Run("missing scene name is a 422", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/vetting/applications", map[string]any{
			"email": "x@example.org",
		})
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnprocessableEntity, "validation_error")
	})

	t.Run("duplicate email is a 409 conflict", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/vetting/applications", map[string]any{
			"scene_name": "Other",
			"email":      "jane@example.org",
		})
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
	})

	t.Run("malformed body is a 400", func(t *testing.T) {
		req := testutil.NewRequestWithBody(t, http.MethodPost, "/vetting/applications", "{not json")
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestStatusByToken(t *testing.T) {
	h := newHarness(t)
	result := h.submit(t, "jane@example.org")

	t.Run("valid token returns the public view", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/vetting/status/"+result.StatusToken)
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusOK(t, rr)

		view := testutil.UnmarshalResponse[service.PublicStatusView](t, rr)
		assert.Equal(t, models.StatusUnderReview, view.Status)
		assert.Contains(t, view.MaskedEmail, "***")
		assert.NotContains(t, view.MaskedEmail, "jane@", "full address never leaves the service")
	})

	t.Run("unknown token is a 404", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/vetting/status/bogus-token")
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})

	t.Run("response never includes the status token", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/vetting/status/"+result.StatusToken)
		rr := testutil.DoRequest(h.router, req)
		assert.NotContains(t, rr.Body.String(), result.StatusToken)
	})
}

func TestChangeStatusEndpoint(t *testing.T) {
	h := newHarness(t)
	result := h.submit(t, "jane@example.org")
	path := "/admin/vetting/applications/" + result.ApplicationID.String() + "/status"

	t.Run("unauthenticated request is a 401", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPut, path, map[string]string{"new_status": "InterviewApproved"})
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("non-admin actor is a 403", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPut, path, map[string]string{"new_status": "InterviewApproved"})
		req = testutil.WithUserID(req, h.member.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})

	t.Run("invalid transition is a 422 with the allowed set", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPut, path, map[string]string{"new_status": "Approved"})
		req = testutil.WithUserID(req, h.admin.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnprocessableEntity, "invalid_transition")

		var body struct {
			Description        string `json:"error_description"`
			AllowedTransitions string `json:"allowed_transitions"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Contains(t, body.Description, "Invalid transition from UnderReview to Approved")
		assert.Contains(t, body.AllowedTransitions, "InterviewApproved")
	})

	t.Run("unknown status is a 422", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPut, path, map[string]string{"new_status": "Sideways"})
		req = testutil.WithUserID(req, h.admin.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
	})

	t.Run("valid transition returns the updated application", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPut, path, map[string]string{"new_status": "InterviewApproved"})
		req = testutil.WithUserID(req, h.admin.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "status", "InterviewApproved")
	})

	t.Run("same-state repeat is a 409", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPut, path, map[string]string{"new_status": "InterviewApproved"})
		req = testutil.WithUserID(req, h.admin.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "invalid_update")
	})

	t.Run("malformed application id is a 400", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPut, "/admin/vetting/applications/nope/status", map[string]string{"new_status": "InterviewApproved"})
		req = testutil.WithUserID(req, h.admin.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})
}

func TestDecisionEndpoints(t *testing.T) {
	h := newHarness(t)
	result := h.submit(t, "jane@example.org")
	base := "/admin/vetting/applications/" + result.ApplicationID.String()

	advance := func(t *testing.T, status string) {
		req := testutil.NewJSONRequest(t, http.MethodPut, base+"/status", map[string]string{"new_status": status})
		req = testutil.WithUserID(req, h.admin.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusOK(t, rr)
	}

	t.Run("deny without a reason is a 422", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, base+"/deny", map[string]string{})
		req = testutil.WithUserID(req, h.admin.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
	})

	t.Run("hold without a reason is a 422", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, base+"/hold", map[string]string{"required_actions": "call us"})
		req = testutil.WithUserID(req, h.admin.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
	})

	t.Run("approve from final review succeeds", func(t *testing.T) {
		advance(t, "InterviewApproved")
		advance(t, "FinalReview")

		req := testutil.NewJSONRequest(t, http.MethodPost, base+"/approve", map[string]string{"notes": "unanimous"})
		req = testutil.WithUserID(req, h.admin.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "status", "Approved")
	})

	t.Run("terminal application rejects further changes with 409", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, base+"/hold", map[string]string{
			"reason":           "second thoughts",
			"required_actions": "none",
		})
		req = testutil.WithUserID(req, h.admin.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "terminal_state")
	})

	t.Run("notes still work after the decision", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, base+"/notes", map[string]string{"note": "welcome email sent"})
		req = testutil.WithUserID(req, h.admin.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusOK(t, rr)
	})
}

func TestScheduleInterviewEndpoint(t *testing.T) {
	h := newHarness(t)
	result := h.submit(t, "jane@example.org")
	base := "/admin/vetting/applications/" + result.ApplicationID.String()

	advance := func(t *testing.T, status string) {
		req := testutil.NewJSONRequest(t, http.MethodPut, base+"/status", map[string]string{"new_status": status})
		req = testutil.WithUserID(req, h.admin.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusOK(t, rr)
	}

	future := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)

	t.Run("scheduling before interview approval is a 409", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, base+"/schedule-interview", map[string]string{
			"interview_at": future,
			"location":     "Community Center, Room 101",
		})
		req = testutil.WithUserID(req, h.admin.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "invalid_update")
	})

	t.Run("valid schedule returns the stamped application", func(t *testing.T) {
		advance(t, "InterviewApproved")

		req := testutil.NewJSONRequest(t, http.MethodPost, base+"/schedule-interview", map[string]string{
			"interview_at": future,
			"location":     "Community Center, Room 101",
		})
		req = testutil.WithUserID(req, h.admin.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "status", "InterviewApproved")
		testutil.AssertJSONHasKey(t, rr, "interview_scheduled_at")
	})

	t.Run("past date is a 422", func(t *testing.T) {
		past := time.Now().Add(-24 * time.Hour).UTC().Format(time.RFC3339)
		req := testutil.NewJSONRequest(t, http.MethodPost, base+"/schedule-interview", map[string]string{
			"interview_at": past,
			"location":     "Somewhere",
		})
		req = testutil.WithUserID(req, h.admin.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnprocessableEntity, "validation_error")
	})

	t.Run("missing location is a 422", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, base+"/schedule-interview", map[string]string{
			"interview_at": future,
		})
		req = testutil.WithUserID(req, h.admin.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnprocessableEntity, "validation_error")
	})

	t.Run("non-admin is a 403", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, base+"/schedule-interview", map[string]string{
			"interview_at": future,
			"location":     "Somewhere",
		})
		req = testutil.WithUserID(req, h.member.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})
}

func TestListEndpoint(t *testing.T) {
	h := newHarness(t)
	h.submit(t, "a@example.org")
	h.submit(t, "b@example.org")

	t.Run("admin lists applications", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/admin/vetting/applications")
		req = testutil.WithUserID(req, h.admin.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusOK(t, rr)

		result := testutil.UnmarshalResponse[service.ListResult](t, rr)
		assert.Equal(t, 2, result.Total)
	})

	t.Run("negative offset falls back to the first page", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/admin/vetting/applications?offset=-1")
		req = testutil.WithUserID(req, h.admin.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusOK(t, rr)

		result := testutil.UnmarshalResponse[service.ListResult](t, rr)
		assert.Equal(t, 2, result.Total)
		assert.Len(t, result.Applications, 2)
	})

	t.Run("status filter rejects unknown values", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/admin/vetting/applications?status=Nope")
		req = testutil.WithUserID(req, h.admin.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
	})

	t.Run("member is denied", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/admin/vetting/applications")
		req = testutil.WithUserID(req, h.member.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})
}

func TestAccessCheckEndpoints(t *testing.T) {
	h := newHarness(t)
	eventID := id.NewEventID()

	t.Run("unauthenticated check is a 401", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/access/rsvp/"+eventID.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("member with no application is allowed", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/access/rsvp/"+eventID.String())
		req = testutil.WithUserID(req, h.member.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "allowed", true)
	})

	t.Run("on-hold applicant is denied with a message", func(t *testing.T) {
		result := h.submit(t, "member@example.org")
		req := testutil.NewJSONRequest(t, http.MethodPost,
			"/admin/vetting/applications/"+result.ApplicationID.String()+"/hold",
			map[string]string{"reason": "missing reference", "required_actions": "send a second reference"})
		req = testutil.WithUserID(req, h.admin.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusOK(t, rr)

		checkReq := testutil.NewRequest(t, http.MethodGet, "/access/tickets/"+eventID.String())
		checkReq = testutil.WithUserID(checkReq, h.member.String())
		checkRR := testutil.DoRequest(h.router, checkReq)
		testutil.AssertStatusOK(t, checkRR)
		testutil.AssertJSONContains(t, checkRR, "allowed", false)
		testutil.AssertJSONHasKey(t, checkRR, "message")
	})

	t.Run("malformed event id is a 400", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/access/rsvp/not-a-uuid")
		req = testutil.WithUserID(req, h.member.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestDetailEndpoint(t *testing.T) {
	h := newHarness(t)
	result := h.submit(t, "member@example.org")

	t.Run("applicant sees their own application without admin notes", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/vetting/applications/"+result.ApplicationID.String())
		req = testutil.WithUserID(req, h.member.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusOK(t, rr)

		view := testutil.UnmarshalResponse[service.DetailView](t, rr)
		require.NotNil(t, view.Application)
		assert.Empty(t, view.Application.Notes)
		assert.Empty(t, view.History)
	})

	t.Run("admin sees the full detail", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/admin/vetting/applications/"+result.ApplicationID.String())
		req = testutil.WithUserID(req, h.admin.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusOK(t, rr)

		view := testutil.UnmarshalResponse[service.DetailView](t, rr)
		assert.NotEmpty(t, view.History, "admin view includes the audit trail")
	})

	t.Run("stranger is denied", func(t *testing.T) {
		stranger := id.NewUserID()
		h.users.Put(&identity.User{ID: stranger, Email: "s@example.org", Role: identity.RoleMember})

		req := testutil.NewRequest(t, http.MethodGet, "/vetting/applications/"+result.ApplicationID.String())
		req = testutil.WithUserID(req, stranger.String())
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})
}
