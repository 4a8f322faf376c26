package auditlog

import (
	"context"
	"database/sql"
	"fmt"

	"gatherhall/internal/vetting/models"
	id "gatherhall/pkg/domain"
	txcontext "gatherhall/pkg/platform/tx"

	"github.com/google/uuid"
)

// PostgresStore writes audit entries to vetting_audit_log. Appends honor
// a transaction carried in context so entries commit atomically with the
// status change they describe.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry models.AuditEntry) error {
	query := `
		INSERT INTO vetting_audit_log (
			id, application_id, action, actor_id, timestamp,
			old_value, new_value, note, note_kind
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		uuid.UUID(entry.ApplicationID),
		entry.Action,
		uuid.UUID(entry.ActorID),
		entry.Timestamp,
		entry.OldValue,
		entry.NewValue,
		entry.Note,
		string(entry.NoteKind),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListByApplication returns entries newest first.
func (s *PostgresStore) ListByApplication(ctx context.Context, appID id.ApplicationID) ([]models.AuditEntry, error) {
	query := `
		SELECT id, application_id, action, actor_id, timestamp,
		       old_value, new_value, note, note_kind
		FROM vetting_audit_log
		WHERE application_id = $1
		ORDER BY timestamp DESC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(appID))
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var (
			entry            models.AuditEntry
			entryID, appUUID uuid.UUID
			actorID          uuid.UUID
			noteKind         string
		)
		if err := rows.Scan(&entryID, &appUUID, &entry.Action, &actorID, &entry.Timestamp,
			&entry.OldValue, &entry.NewValue, &entry.Note, &noteKind); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.ID = id.EntryID(entryID)
		entry.ApplicationID = id.ApplicationID(appUUID)
		entry.ActorID = id.UserID(actorID)
		entry.NoteKind = models.NoteKind(noteKind)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
