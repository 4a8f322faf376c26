// Package access gates RSVP and ticket-purchase actions on vetting
// status. The policy is a pure function of status; the Checker wires it
// to storage, the status cache, and denial auditing.
package access

import (
	"gatherhall/internal/vetting/models"
)

// Type is which gated action a check concerns. It selects user-facing
// denial wording and the audit tag.
type Type string

const (
	TypeRSVP           Type = "RSVP"
	TypeTicketPurchase Type = "TicketPurchase"
)

// Result is a transient access decision. Never persisted.
type Result struct {
	Allowed bool          `json:"allowed"`
	Reason  string        `json:"reason"`
	Message string        `json:"message,omitempty"`
	Status  models.Status `json:"status,omitempty"`
}

// deniedMessages is keyed by status, then access type.
var deniedMessages = map[models.Status]map[Type]string{
	models.StatusOnHold: {
		TypeRSVP:           "Your vetting application is on hold. Please resolve the outstanding items before RSVPing to events.",
		TypeTicketPurchase: "Your vetting application is on hold. Please resolve the outstanding items before purchasing tickets.",
	},
	models.StatusDenied: {
		TypeRSVP:           "Your vetting application was not approved. You are not able to RSVP to events.",
		TypeTicketPurchase: "Your vetting application was not approved. You are not able to purchase tickets.",
	},
	models.StatusWithdrawn: {
		TypeRSVP:           "Your vetting application was withdrawn. Submit a new application to RSVP to events.",
		TypeTicketPurchase: "Your vetting application was withdrawn. Submit a new application to purchase tickets.",
	},
}

// Evaluate decides whether the action is allowed for a user with the
// given vetting state. Users with no application on file get default
// open access; only OnHold, Denied, and Withdrawn applicants are gated.
func Evaluate(accessType Type, hasApplication bool, status models.Status) Result {
	if !hasApplication {
		return Result{Allowed: true, Reason: "no_application"}
	}

	if msgs, denied := deniedMessages[status]; denied {
		return Result{
			Allowed: false,
			Reason:  "vetting_" + string(status),
			Message: msgs[accessType],
			Status:  status,
		}
	}

	return Result{Allowed: true, Reason: "status_allows", Status: status}
}
