// Package httputil centralizes JSON response writing and request decoding
// for HTTP handlers. Error responses use the envelope
// {"error": code, "error_description": message}; internal errors omit the
// description so infrastructure details never leak to clients.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "gatherhall/pkg/domain-errors"
)

// Validatable is implemented by request DTOs that validate and normalize
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope.
// Non-domain errors and CodeInternal render as a bare internal_error
// with no description.
func WriteError(w http.ResponseWriter, err error) {
	status := dErrors.ToHTTPStatus(err)
	code := dErrors.GetCode(err)

	body := map[string]any{"error": string(code)}

	var de *dErrors.DomainError
	if errors.As(err, &de) && de.Code != dErrors.CodeInternal {
		body["error_description"] = de.Message
		if allowed, ok := de.Meta("allowed_transitions"); ok {
			body["allowed_transitions"] = allowed
		}
	}

	WriteJSON(w, status, body)
}

// DecodeAndPrepare decodes the request body into T, then runs its Validate.
// On failure it writes the error response and returns ok=false; handlers
// just return. The logger records decode failures with the request id.
func DecodeAndPrepare[T Validatable](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return req, false
	}

	if err := req.Validate(); err != nil {
		WriteError(w, err)
		return req, false
	}

	return req, true
}
