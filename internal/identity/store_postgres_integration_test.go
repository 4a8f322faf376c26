//go:build integration

package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	pgschema "gatherhall/internal/platform/postgres"
	id "gatherhall/pkg/domain"
	"gatherhall/pkg/platform/sentinel"
	"gatherhall/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresStore
	ctx   context.Context
	now   time.Time
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
	s.pg.TruncateAll(s.T(), "vetting_applications", "users")
}

func (s *PostgresStoreSuite) seedUser(email string, role Role) id.UserID {
	userID := id.NewUserID()
	_, err := s.pg.DB.Exec(
		`INSERT INTO users (id, email, display_name, role, updated_at) VALUES ($1, $2, 'Jane', $3, $4)`,
		userID.String(), email, string(role), s.now,
	)
	s.Require().NoError(err)
	return userID
}

func (s *PostgresStoreSuite) TestGetByID() {
	userID := s.seedUser("jane@example.org", RoleMember)

	user, err := s.store.GetByID(s.ctx, userID)
	s.Require().NoError(err)
	s.Equal(userID, user.ID)
	s.Equal("jane@example.org", user.Email)
	s.Equal(RoleMember, user.Role)
	s.Empty(user.VettingStatus, "null vetting_status scans to empty string")

	_, err = s.store.GetByID(s.ctx, id.NewUserID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestGetByEmailCaseInsensitive() {
	userID := s.seedUser("jane@example.org", RoleMember)

	user, err := s.store.GetByEmail(s.ctx, "JANE@Example.ORG")
	s.Require().NoError(err)
	s.Equal(userID, user.ID)

	_, err = s.store.GetByEmail(s.ctx, "nobody@example.org")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestSetVettingOutcome() {
	s.Run("approval elevates a member", func() {
		userID := s.seedUser("member@example.org", RoleMember)

		err := s.store.SetVettingOutcome(s.ctx, userID, "Approved", true, s.now)
		s.Require().NoError(err)

		user, err := s.store.GetByID(s.ctx, userID)
		s.Require().NoError(err)
		s.Equal(RoleVettedMember, user.Role)
		s.Equal("Approved", user.VettingStatus)
	})

	s.Run("administrators are never downgraded", func() {
		userID := s.seedUser("admin@example.org", RoleAdministrator)

		s.Require().NoError(s.store.SetVettingOutcome(s.ctx, userID, "Approved", true, s.now))

		user, err := s.store.GetByID(s.ctx, userID)
		s.Require().NoError(err)
		s.Equal(RoleAdministrator, user.Role)
		s.Equal("Approved", user.VettingStatus)
	})

	s.Run("denial records the status without elevation", func() {
		userID := s.seedUser("denied@example.org", RoleMember)

		s.Require().NoError(s.store.SetVettingOutcome(s.ctx, userID, "Denied", false, s.now))

		user, err := s.store.GetByID(s.ctx, userID)
		s.Require().NoError(err)
		s.Equal(RoleMember, user.Role)
		s.Equal("Denied", user.VettingStatus)
	})

	s.Run("unknown user is not found", func() {
		err := s.store.SetVettingOutcome(s.ctx, id.NewUserID(), "Approved", true, s.now)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}
