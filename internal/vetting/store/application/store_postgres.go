package application

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gatherhall/internal/vetting/models"
	id "gatherhall/pkg/domain"
	"gatherhall/pkg/platform/sentinel"
	txcontext "gatherhall/pkg/platform/tx"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresStore persists applications in the vetting_applications table.
// References and the ordered note list are stored as JSONB so the
// aggregate writes atomically in one row.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const appColumns = `
	id, scene_name, legal_name, email, pronouns,
	experience_text, safety_text, community_text, references_json,
	status, status_token,
	submitted_at, updated_at, review_started_at, interview_scheduled_at,
	interview_completed_at, decision_made_at, last_reviewed_at,
	notes_json, user_id
`

func (s *PostgresStore) Create(ctx context.Context, app *models.Application) error {
	refs, notes, err := marshalJSONFields(app)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO vetting_applications (` + appColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(app.ID), app.SceneName, app.LegalName, app.Email, app.Pronouns,
		app.ExperienceText, app.SafetyText, app.CommunityText, refs,
		string(app.Status), app.StatusToken,
		app.SubmittedAt, app.UpdatedAt, app.ReviewStartedAt, app.InterviewScheduledAt,
		app.InterviewCompletedAt, app.DecisionMadeAt, app.LastReviewedAt,
		notes, userIDArg(app),
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, app *models.Application) error {
	refs, notes, err := marshalJSONFields(app)
	if err != nil {
		return err
	}

	query := `
		UPDATE vetting_applications
		SET scene_name = $2, legal_name = $3, email = $4, pronouns = $5,
		    experience_text = $6, safety_text = $7, community_text = $8, references_json = $9,
		    status = $10, updated_at = $11, review_started_at = $12, interview_scheduled_at = $13,
		    interview_completed_at = $14, decision_made_at = $15, last_reviewed_at = $16,
		    notes_json = $17, user_id = $18
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(app.ID), app.SceneName, app.LegalName, app.Email, app.Pronouns,
		app.ExperienceText, app.SafetyText, app.CommunityText, refs,
		string(app.Status), app.UpdatedAt, app.ReviewStartedAt, app.InterviewScheduledAt,
		app.InterviewCompletedAt, app.DecisionMadeAt, app.LastReviewedAt,
		notes, userIDArg(app),
	)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	query := `SELECT ` + appColumns + ` FROM vetting_applications WHERE id = $1`
	return s.scanApplication(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(appID)))
}

func (s *PostgresStore) GetByToken(ctx context.Context, token string) (*models.Application, error) {
	query := `SELECT ` + appColumns + ` FROM vetting_applications WHERE status_token = $1`
	return s.scanApplication(s.execer(ctx).QueryRowContext(ctx, query, token))
}

func (s *PostgresStore) GetByUserID(ctx context.Context, userID id.UserID) (*models.Application, error) {
	query := `SELECT ` + appColumns + ` FROM vetting_applications WHERE user_id = $1`
	return s.scanApplication(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(userID)))
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) ([]*models.Application, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		conds = append(conds, fmt.Sprintf("scene_name ILIKE $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	countQuery := `SELECT count(*) FROM vetting_applications` + where
	if err := s.execer(ctx).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}

	args = append(args, filter.EffectiveLimit(), filter.EffectiveOffset())
	query := `SELECT ` + appColumns + ` FROM vetting_applications` + where +
		fmt.Sprintf(" ORDER BY submitted_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		app, err := s.scanApplicationRow(rows)
		if err != nil {
			return nil, 0, err
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate applications: %w", err)
	}
	return apps, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanApplication(row *sql.Row) (*models.Application, error) {
	app, err := scanInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return app, err
}

func (s *PostgresStore) scanApplicationRow(rows *sql.Rows) (*models.Application, error) {
	return scanInto(rows)
}

func scanInto(scanner rowScanner) (*models.Application, error) {
	var (
		app   models.Application
		appID uuid.UUID
		refs  []byte
		notes []byte
		uid   *uuid.UUID
	)
	err := scanner.Scan(
		&appID, &app.SceneName, &app.LegalName, &app.Email, &app.Pronouns,
		&app.ExperienceText, &app.SafetyText, &app.CommunityText, &refs,
		&app.Status, &app.StatusToken,
		&app.SubmittedAt, &app.UpdatedAt, &app.ReviewStartedAt, &app.InterviewScheduledAt,
		&app.InterviewCompletedAt, &app.DecisionMadeAt, &app.LastReviewedAt,
		&notes, &uid,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan application: %w", err)
	}
	app.ID = id.ApplicationID(appID)
	if len(refs) > 0 {
		if err := json.Unmarshal(refs, &app.References); err != nil {
			return nil, fmt.Errorf("decode references: %w", err)
		}
	}
	if len(notes) > 0 {
		if err := json.Unmarshal(notes, &app.Notes); err != nil {
			return nil, fmt.Errorf("decode notes: %w", err)
		}
	}
	if uid != nil {
		userID := id.UserID(*uid)
		app.UserID = &userID
	}
	return &app, nil
}

func marshalJSONFields(app *models.Application) (refs, notes []byte, err error) {
	refs, err = json.Marshal(app.References)
	if err != nil {
		return nil, nil, fmt.Errorf("encode references: %w", err)
	}
	notes, err = json.Marshal(app.Notes)
	if err != nil {
		return nil, nil, fmt.Errorf("encode notes: %w", err)
	}
	return refs, notes, nil
}

func userIDArg(app *models.Application) any {
	if app.UserID == nil {
		return nil
	}
	return uuid.UUID(*app.UserID)
}
