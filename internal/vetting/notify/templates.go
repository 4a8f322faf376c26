// Package notify delivers status-change emails through a bounded queue
// with capped retries. Delivery is best-effort: failures are logged and
// counted, never surfaced to the workflow caller.
package notify

import (
	"strings"

	"gatherhall/internal/vetting/models"
	"gatherhall/pkg/email"
)

// Template is a per-status subject/body pair. Bodies may reference
// {{applicant_name}}.
type Template struct {
	Subject string
	Body    string
}

// templates maps the dispatch subset of statuses to their email content.
// UnderReview and Withdrawn intentionally have no template: submission
// gets its own confirmation path and withdrawals are applicant-initiated.
var templates = map[models.Status]Template{
	models.StatusInterviewApproved: {
		Subject: "Your vetting interview is approved",
		Body:    "Hi {{applicant_name}},\n\nYour application has been approved for an interview. We will reach out shortly to schedule it.",
	},
	models.StatusFinalReview: {
		Subject: "Your application is in final review",
		Body:    "Hi {{applicant_name}},\n\nThank you for completing your interview. Your application is now in final review.",
	},
	models.StatusApproved: {
		Subject: "Welcome! Your application is approved",
		Body:    "Hi {{applicant_name}},\n\nCongratulations, your vetting application has been approved. You now have full member access.",
	},
	models.StatusOnHold: {
		Subject: "Your application is on hold",
		Body:    "Hi {{applicant_name}},\n\nYour vetting application has been placed on hold. Please check your application status page for the outstanding items.",
	},
	models.StatusDenied: {
		Subject: "Update on your application",
		Body:    "Hi {{applicant_name}},\n\nAfter careful review we are unable to approve your vetting application at this time.",
	},
}

// TemplateFor returns the template for a status, if the status is in
// the dispatch subset.
func TemplateFor(status models.Status) (Template, bool) {
	t, ok := templates[status]
	return t, ok
}

// Render substitutes template variables for the applicant.
func (t Template) Render(applicantName string) (subject, body string) {
	body = strings.ReplaceAll(t.Body, "{{applicant_name}}", applicantName)
	subject = strings.ReplaceAll(t.Subject, "{{applicant_name}}", applicantName)
	return subject, body
}

// DisplayName picks the applicant-facing name: scene name when present,
// otherwise a name derived from the email local part.
func DisplayName(app *models.Application) string {
	if app.SceneName != "" {
		return app.SceneName
	}
	first, _ := email.DeriveNameFromEmail(app.Email)
	return first
}
