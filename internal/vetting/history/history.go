// Package history reconstructs display views from an application's
// audit trail: the raw workflow history, the notes feed, and the
// decision summary.
package history

import (
	"sort"
	"strings"
	"time"

	"gatherhall/internal/vetting/models"
	id "gatherhall/pkg/domain"
)

// legacyAutoPrefix marks auto-generated notes written before note
// origin was stored explicitly. Only read-side recognition remains;
// nothing writes this shape anymore.
const legacyAutoPrefix = "Status change to "

// simplifiedPhrasings replace auto-generated note text per target status.
var simplifiedPhrasings = map[models.Status]string{
	models.StatusUnderReview:       "Application under review",
	models.StatusInterviewApproved: "Approved for interview",
	models.StatusFinalReview:       "Interview completed, in final review",
	models.StatusApproved:          "Application approved",
	models.StatusDenied:            "Application denied",
	models.StatusOnHold:            "Placed on hold",
	models.StatusWithdrawn:         "Application withdrawn",
}

// NoteView is one rendered entry in the notes feed.
type NoteView struct {
	Timestamp     time.Time `json:"timestamp"`
	AuthorID      id.UserID `json:"author_id"`
	Text          string    `json:"text"`
	AutoGenerated bool      `json:"auto_generated"`
}

// DecisionView is one rendered entry in the decision summary.
type DecisionView struct {
	Timestamp       time.Time `json:"timestamp"`
	ActorID         id.UserID `json:"actor_id"`
	OldStatus       string    `json:"old_status,omitempty"`
	NewStatus       string    `json:"new_status,omitempty"`
	Text            string    `json:"text"`
	IsFinalDecision bool      `json:"is_final_decision"`
}

// Workflow returns every entry, newest first, unmodified.
func Workflow(entries []models.AuditEntry) []models.AuditEntry {
	out := append([]models.AuditEntry{}, entries...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Notes returns the notes feed: note-only, interview-scheduling, and
// status-change entries, with auto-generated text replaced by the
// simplified phrasing.
func Notes(entries []models.AuditEntry) []NoteView {
	var out []NoteView
	for _, e := range Workflow(entries) {
		if e.Action != models.ActionNoteAdded &&
			e.Action != models.ActionInterviewScheduled &&
			!strings.Contains(e.Action, models.ActionStatusChanged) {
			continue
		}
		text, auto := renderNote(e)
		out = append(out, NoteView{
			Timestamp:     e.Timestamp,
			AuthorID:      e.ActorID,
			Text:          text,
			AutoGenerated: auto,
		})
	}
	return out
}

// Decisions returns status-change and approval/denial entries, with the
// final-decision flag set when the entry concerns a terminal outcome.
func Decisions(entries []models.AuditEntry) []DecisionView {
	var out []DecisionView
	for _, e := range Workflow(entries) {
		if !isDecisionEntry(e.Action) {
			continue
		}
		text, _ := renderNote(e)
		out = append(out, DecisionView{
			Timestamp:       e.Timestamp,
			ActorID:         e.ActorID,
			OldStatus:       e.OldValue,
			NewStatus:       e.NewValue,
			Text:            text,
			IsFinalDecision: mentionsFinalOutcome(e),
		})
	}
	return out
}

func isDecisionEntry(action string) bool {
	return strings.Contains(action, models.ActionStatusChanged) ||
		strings.Contains(action, "Decision") ||
		strings.Contains(action, models.ActionApproval) ||
		strings.Contains(action, "Denied")
}

func mentionsFinalOutcome(e models.AuditEntry) bool {
	for _, v := range []string{e.Action, e.NewValue} {
		if strings.Contains(v, string(models.StatusApproved)) || strings.Contains(v, string(models.StatusDenied)) {
			return true
		}
	}
	return false
}

// renderNote picks the display text for an entry. Auto-generated notes
// (explicitly tagged, or matching the legacy shape) render as the fixed
// per-status phrasing; manual text is preserved verbatim.
func renderNote(e models.AuditEntry) (string, bool) {
	auto := e.NoteKind == models.NoteKindAuto || isLegacyAuto(e.Note)
	if !auto {
		return e.Note, false
	}
	if phrase, ok := simplifiedPhrasings[models.Status(e.NewValue)]; ok {
		return phrase, true
	}
	if e.Note != "" {
		return e.Note, true
	}
	return "Status updated", true
}

func isLegacyAuto(note string) bool {
	return note == "" || strings.HasPrefix(note, legacyAutoPrefix)
}
