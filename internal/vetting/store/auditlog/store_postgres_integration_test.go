//go:build integration

package auditlog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	pgschema "gatherhall/internal/platform/postgres"
	"gatherhall/internal/vetting/models"
	id "gatherhall/pkg/domain"
	"gatherhall/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresStore
	ctx   context.Context
	now   time.Time
	appID id.ApplicationID
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.pg.ApplySchema(s.T(), pgschema.Schema)
	s.store = NewPostgresStore(s.pg.DB)
	s.ctx = context.Background()
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	_ = s.pg.DB.Close()
	_ = s.pg.Container.Terminate(context.Background())
}

func (s *PostgresStoreSuite) SetupTest() {
	s.pg.TruncateAll(s.T(), "vetting_audit_log", "vetting_applications")
	s.appID = s.seedApplication("jane@example.org")
}

// seedApplication inserts the minimal parent row the audit FK needs.
func (s *PostgresStoreSuite) seedApplication(email string) id.ApplicationID {
	appID := id.NewApplicationID()
	_, err := s.pg.DB.Exec(`
		INSERT INTO vetting_applications (id, scene_name, email, status, status_token, submitted_at, updated_at)
		VALUES ($1, 'Raven', $2, 'UnderReview', $3, $4, $4)
	`, appID.String(), email, "token-"+appID.String(), s.now)
	s.Require().NoError(err)
	return appID
}

func (s *PostgresStoreSuite) entry(ts time.Time, action string) models.AuditEntry {
	return models.AuditEntry{
		ID:            id.NewEntryID(),
		ApplicationID: s.appID,
		Action:        action,
		ActorID:       id.NewUserID(),
		Timestamp:     ts,
		OldValue:      "UnderReview",
		NewValue:      "InterviewApproved",
		Note:          "Approved for interview",
		NoteKind:      models.NoteKindAuto,
	}
}

func (s *PostgresStoreSuite) TestAppendAndList() {
	first := s.entry(s.now, models.ActionStatusChanged)
	second := s.entry(s.now.Add(time.Minute), models.ActionNoteAdded)
	s.Require().NoError(s.store.Append(s.ctx, first))
	s.Require().NoError(s.store.Append(s.ctx, second))

	entries, err := s.store.ListByApplication(s.ctx, s.appID)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)

	s.Equal(second.ID, entries[0].ID, "newest first")
	s.Equal(first.ID, entries[1].ID)
	s.Equal("UnderReview", entries[1].OldValue)
	s.Equal("InterviewApproved", entries[1].NewValue)
	s.Equal(models.NoteKindAuto, entries[1].NoteKind)
}

func (s *PostgresStoreSuite) TestListScopedToApplication() {
	s.Require().NoError(s.store.Append(s.ctx, s.entry(s.now, models.ActionStatusChanged)))

	otherID := s.seedApplication("other@example.org")
	other := s.entry(s.now, models.ActionStatusChanged)
	other.ID = id.NewEntryID()
	other.ApplicationID = otherID
	s.Require().NoError(s.store.Append(s.ctx, other))

	entries, err := s.store.ListByApplication(s.ctx, s.appID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(s.appID, entries[0].ApplicationID)
}

func (s *PostgresStoreSuite) TestEmptyLog() {
	entries, err := s.store.ListByApplication(s.ctx, id.NewApplicationID())
	s.Require().NoError(err)
	s.Empty(entries)
}
