package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatherhall/internal/identity"
	"gatherhall/internal/vetting/models"
	appstore "gatherhall/internal/vetting/store/application"
	auditlogstore "gatherhall/internal/vetting/store/auditlog"
	id "gatherhall/pkg/domain"
	dErrors "gatherhall/pkg/domain-errors"
	"gatherhall/pkg/requestcontext"
)

type QueriesSuite struct {
	suite.Suite
	apps     *appstore.InMemoryStore
	auditLog *auditlogstore.InMemoryStore
	users    *identity.InMemoryStore
	svc      *Service

	admin id.UserID
	now   time.Time
}

func TestQueriesSuite(t *testing.T) {
	suite.Run(t, new(QueriesSuite))
}

func (s *QueriesSuite) SetupTest() {
	s.apps = appstore.NewInMemoryStore()
	s.auditLog = auditlogstore.NewInMemoryStore()
	s.users = identity.NewInMemoryStore()
	s.now = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	s.admin = id.NewUserID()
	s.users.Put(&identity.User{ID: s.admin, Email: "admin@example.org", Role: identity.RoleAdministrator})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.svc = New(s.apps, s.auditLog, s.users, WithLogger(logger))
}

func (s *QueriesSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *QueriesSuite) submit(email string) *SubmitResult {
	result, err := s.svc.Submit(s.ctx(), SubmitInput{
		SceneName: "RavenWing",
		Email:     email,
	})
	s.Require().NoError(err)
	return result
}

func (s *QueriesSuite) TestSubmit() {
	s.Run("creates an UnderReview application with a status token", func() {
		result := s.submit("jane@example.org")
		s.Equal(models.StatusUnderReview, result.Status)
		s.NotEmpty(result.StatusToken)

		app, err := s.apps.GetByID(context.Background(), result.ApplicationID)
		s.Require().NoError(err)
		s.Equal("jane@example.org", app.Email)
		s.Require().NotNil(app.ReviewStartedAt)
		s.Nil(app.UserID, "no account with that email")
	})

	s.Run("records a submission audit entry", func() {
		s.SetupTest()
		result := s.submit("jane@example.org")

		entries, err := s.auditLog.ListByApplication(context.Background(), result.ApplicationID)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(models.ActionStatusChanged, entries[0].Action)
		s.Equal("UnderReview", entries[0].NewValue)
		s.Equal(models.NoteKindAuto, entries[0].NoteKind)
	})

	s.Run("links an existing account by email", func() {
		s.SetupTest()
		member := id.NewUserID()
		s.users.Put(&identity.User{ID: member, Email: "Linked@Example.org", Role: identity.RoleMember})

		result := s.submit("linked@example.org")
		app, err := s.apps.GetByID(context.Background(), result.ApplicationID)
		s.Require().NoError(err)
		s.Require().NotNil(app.UserID)
		s.Equal(member, *app.UserID)
	})

	s.Run("duplicate email conflicts", func() {
		s.SetupTest()
		s.submit("jane@example.org")

		_, err := s.svc.Submit(s.ctx(), SubmitInput{SceneName: "Other", Email: "JANE@example.org"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Contains(err.Error(), "An application with this email already exists")
	})

	s.Run("validation errors pass through", func() {
		_, err := s.svc.Submit(s.ctx(), SubmitInput{SceneName: "", Email: "x@example.org"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *QueriesSuite) TestStatusByToken() {
	result := s.submit("jane@example.org")

	s.Run("returns the privacy-limited view", func() {
		view, err := s.svc.StatusByToken(s.ctx(), result.StatusToken)
		s.Require().NoError(err)
		s.Equal(models.StatusUnderReview, view.Status)
		s.Equal(25, view.Progress)
		s.NotEmpty(view.Description)

		s.Run("application number is the uppercased id prefix", func() {
			s.Equal(strings.ToUpper(result.ApplicationID.String()[:8]), view.ApplicationNumber)
		})

		s.Run("email is masked", func() {
			s.NotEqual("jane@example.org", view.MaskedEmail)
			s.Contains(view.MaskedEmail, "@example.org")
			s.Contains(view.MaskedEmail, "*")
		})
	})

	s.Run("recent updates carry no reviewer identities", func() {
		view, err := s.svc.StatusByToken(s.ctx(), result.StatusToken)
		s.Require().NoError(err)
		for _, update := range view.RecentUpdates {
			s.True(update.AuthorID.IsZero())
			s.True(update.AutoGenerated)
		}
	})

	s.Run("empty token is a bad request", func() {
		_, err := s.svc.StatusByToken(s.ctx(), "  ")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("unknown token is not found", func() {
		_, err := s.svc.StatusByToken(s.ctx(), "no-such-token")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Contains(err.Error(), "Application not found")
	})
}

func (s *QueriesSuite) TestStatusProgressByStage() {
	result := s.submit("jane@example.org")

	stages := []struct {
		status   models.Status
		progress int
	}{
		{models.StatusInterviewApproved, 50},
		{models.StatusFinalReview, 75},
		{models.StatusApproved, 100},
	}
	for _, stage := range stages {
		_, err := s.svc.ChangeStatus(s.ctx(), s.admin, result.ApplicationID, stage.status, "")
		s.Require().NoError(err)

		view, err := s.svc.StatusByToken(s.ctx(), result.StatusToken)
		s.Require().NoError(err)
		s.Equal(stage.progress, view.Progress, "progress at %s", stage.status)
	}
}

func (s *QueriesSuite) TestDetail() {
	member := id.NewUserID()
	s.users.Put(&identity.User{ID: member, Email: "jane@example.org", Role: identity.RoleMember})
	result := s.submit("jane@example.org")

	_, err := s.svc.AddNote(s.ctx(), s.admin, result.ApplicationID, "internal note")
	s.Require().NoError(err)

	s.Run("admin sees everything", func() {
		view, err := s.svc.Detail(s.ctx(), s.admin, result.ApplicationID)
		s.Require().NoError(err)
		s.Require().NotNil(view.Application)
		s.Len(view.Application.Notes, 1)
		s.NotEmpty(view.History)
		s.NotEmpty(view.Notes)
	})

	s.Run("applicant sees a redacted view of their own application", func() {
		view, err := s.svc.Detail(s.ctx(), member, result.ApplicationID)
		s.Require().NoError(err)
		s.Nil(view.Application.Notes, "admin notes are hidden")
		s.Empty(view.History)
		s.Empty(view.Decisions)
	})

	s.Run("strangers are denied", func() {
		stranger := id.NewUserID()
		s.users.Put(&identity.User{ID: stranger, Email: "s@example.org", Role: identity.RoleMember})

		_, err := s.svc.Detail(s.ctx(), stranger, result.ApplicationID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Contains(err.Error(), "Access denied")
	})

	s.Run("unknown application is not found", func() {
		_, err := s.svc.Detail(s.ctx(), s.admin, id.NewApplicationID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *QueriesSuite) TestList() {
	s.submit("a@example.org")
	second := s.submit("b@example.org")
	_, err := s.svc.ChangeStatus(s.ctx(), s.admin, second.ApplicationID, models.StatusInterviewApproved, "")
	s.Require().NoError(err)

	s.Run("admin lists all applications", func() {
		result, err := s.svc.List(s.ctx(), s.admin, models.ListFilter{})
		s.Require().NoError(err)
		s.Equal(2, result.Total)
		s.Len(result.Applications, 2)
	})

	s.Run("status filter applies", func() {
		status := models.StatusInterviewApproved
		result, err := s.svc.List(s.ctx(), s.admin, models.ListFilter{Status: &status})
		s.Require().NoError(err)
		s.Equal(1, result.Total)
	})

	s.Run("non-admin is denied", func() {
		member := id.NewUserID()
		s.users.Put(&identity.User{ID: member, Email: "m@example.org", Role: identity.RoleMember})

		_, err := s.svc.List(s.ctx(), member, models.ListFilter{})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}
