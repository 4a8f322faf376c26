package models

import (
	"time"

	id "gatherhall/pkg/domain"
)

// Audit action labels. Free text in storage, but writers draw from this
// controlled set; history reconstruction classifies entries by label.
const (
	ActionStatusChanged      = "Status Changed"
	ActionNoteAdded          = "Note Added"
	ActionApproval           = "Approval"
	ActionInterviewScheduled = "Interview Scheduled"

	// Access-denial entries are tagged with the gated action instead.
	ActionRSVP           = "RSVP"
	ActionTicketPurchase = "TicketPurchase"
)

// AuditEntry is an immutable record of one workflow event.
// Created, never mutated or deleted.
type AuditEntry struct {
	ID            id.EntryID       `json:"id"`
	ApplicationID id.ApplicationID `json:"application_id"`
	Action        string           `json:"action"`
	ActorID       id.UserID        `json:"actor_id"`
	Timestamp     time.Time        `json:"timestamp"`
	OldValue      string           `json:"old_value,omitempty"`
	NewValue      string           `json:"new_value,omitempty"`
	Note          string           `json:"note,omitempty"`
	NoteKind      NoteKind         `json:"note_kind,omitempty"`
}
