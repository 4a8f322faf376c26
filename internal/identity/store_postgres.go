package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	id "gatherhall/pkg/domain"
	"gatherhall/pkg/platform/sentinel"
	txcontext "gatherhall/pkg/platform/tx"

	"github.com/google/uuid"
)

// PostgresStore persists users. Writes honor a transaction carried in
// context so the workflow engine's permission sync commits atomically
// with the status change.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const userColumns = `id, email, display_name, role, vetting_status, updated_at`

func (s *PostgresStore) GetByID(ctx context.Context, userID id.UserID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.scanUser(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(userID)))
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return s.scanUser(s.execer(ctx).QueryRowContext(ctx, query, email))
}

func (s *PostgresStore) SetVettingOutcome(ctx context.Context, userID id.UserID, status string, elevate bool, now time.Time) error {
	query := `
		UPDATE users
		SET vetting_status = $2,
		    role = CASE WHEN $3 AND role <> 'Administrator' THEN 'VettedMember' ELSE role END,
		    updated_at = $4
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(userID), status, elevate, now)
	if err != nil {
		return fmt.Errorf("update user vetting outcome: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user vetting outcome: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) scanUser(row *sql.Row) (*User, error) {
	var (
		u             User
		uid           uuid.UUID
		vettingStatus sql.NullString
	)
	err := row.Scan(&uid, &u.Email, &u.DisplayName, &u.Role, &vettingStatus, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.ID = id.UserID(uid)
	u.VettingStatus = vettingStatus.String
	return &u, nil
}
