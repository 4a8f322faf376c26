package identity

import (
	"context"
	"time"

	id "gatherhall/pkg/domain"
)

// Store is the linked-account collaborator consumed by the workflow
// engine. SetVettingOutcome participates in the engine's transaction:
// postgres implementations read the *sql.Tx from context.
type Store interface {
	GetByID(ctx context.Context, userID id.UserID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)

	// SetVettingOutcome records the vetting outcome on the account and,
	// when elevate is true, grants the VettedMember role.
	SetVettingOutcome(ctx context.Context, userID id.UserID, status string, elevate bool, now time.Time) error
}
