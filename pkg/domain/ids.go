// Package domain defines strongly typed identifiers shared across features.
//
// Each ID is a distinct type over uuid.UUID so that an application ID can
// never be passed where a user ID is expected. Parse functions validate at
// the boundary; everything past the boundary works with typed values.
package domain

import (
	"github.com/google/uuid"

	dErrors "gatherhall/pkg/domain-errors"
)

type (
	// UserID identifies a member account.
	UserID uuid.UUID

	// ApplicationID identifies a vetting application.
	ApplicationID uuid.UUID

	// EventID identifies a community event.
	EventID uuid.UUID

	// EntryID identifies a single audit log entry.
	EntryID uuid.UUID
)

// NewUserID generates a new random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewApplicationID generates a new random ApplicationID.
func NewApplicationID() ApplicationID { return ApplicationID(uuid.New()) }

// NewEventID generates a new random EventID.
func NewEventID() EventID { return EventID(uuid.New()) }

// NewEntryID generates a new random EntryID.
func NewEntryID() EntryID { return EntryID(uuid.New()) }

// ParseUserID parses and validates a user ID string.
// Rejects empty strings, malformed UUIDs, and the nil UUID.
func ParseUserID(s string) (UserID, error) {
	u, err := parse(s, "user id")
	return UserID(u), err
}

// ParseApplicationID parses and validates an application ID string.
// Rejects empty strings, malformed UUIDs, and the nil UUID.
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parse(s, "application id")
	return ApplicationID(u), err
}

// ParseEventID parses and validates an event ID string.
// Rejects empty strings, malformed UUIDs, and the nil UUID.
func ParseEventID(s string) (EventID, error) {
	u, err := parse(s, "event id")
	return EventID(u), err
}

func parse(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is empty", what)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is the nil uuid", what)
	}
	return u, nil
}

func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id ApplicationID) String() string { return uuid.UUID(id).String() }
func (id EventID) String() string       { return uuid.UUID(id).String() }
func (id EntryID) String() string       { return uuid.UUID(id).String() }

// IsZero reports whether the ID is the nil UUID.
func (id UserID) IsZero() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ApplicationID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsZero() bool       { return uuid.UUID(id) == uuid.Nil }
func (id EntryID) IsZero() bool       { return uuid.UUID(id) == uuid.Nil }

// Text marshaling keeps the canonical UUID string on the wire and in
// JSON. Unmarshaling accepts the nil UUID; the Parse functions stay the
// strict entry point for external input.
func (id UserID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id ApplicationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id EventID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id EntryID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid user id")
	}
	*id = UserID(u)
	return nil
}

func (id *ApplicationID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid application id")
	}
	*id = ApplicationID(u)
	return nil
}

func (id *EventID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid event id")
	}
	*id = EventID(u)
	return nil
}

func (id *EntryID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid entry id")
	}
	*id = EntryID(u)
	return nil
}
