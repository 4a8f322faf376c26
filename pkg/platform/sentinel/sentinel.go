// Package sentinel defines the errors stores report as plain facts.
// Services translate them into coded domain errors at the boundary;
// nothing below the service layer knows about error codes or HTTP.
package sentinel

import "errors"

var (
	// ErrNotFound: the entity does not exist in the store.
	ErrNotFound = errors.New("not found")

	// ErrConflict: a uniqueness rule was violated, e.g. a second
	// application for an email that already has one.
	ErrConflict = errors.New("conflict")
)
