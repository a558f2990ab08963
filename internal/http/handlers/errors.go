// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses (via the `fail()` helper in this package), and failFor, which
// translates service, gate and backend errors into a status and code. Codes
// give clients a stable, machine-readable error taxonomy that supplements
// human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case, and domain-agnostic unless explicitly noted.
//   - Generic codes (e.g., bad_request, unauthorized, conflict) mirror common HTTP
//     status semantics to aid interoperability.
//   - Domain-specific codes (e.g., no_pending_action, session_expired) are reserved
//     for outcomes that cannot be conveyed by status alone.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "precondition_failed",
//	  "message": "confirmation precondition not met: reason must be at least 10 characters"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-backoffice/internal/backend"
	"github.com/tbourn/go-backoffice/internal/domain"
	"github.com/tbourn/go-backoffice/internal/fetch"
	"github.com/tbourn/go-backoffice/internal/gate"
	"github.com/tbourn/go-backoffice/internal/listview"
	"github.com/tbourn/go-backoffice/internal/qualify"
	"github.com/tbourn/go-backoffice/internal/resources"
	"github.com/tbourn/go-backoffice/internal/services"
)

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeMethodNotAllowed   = "method_not_allowed"
	ErrCodeValidation         = "validation_failed"
	ErrCodeUnknownAction      = "unknown_action"
	ErrCodeNoPendingAction    = "no_pending_action"
	ErrCodeStaleAction        = "stale_action"
	ErrCodePrecondition       = "precondition_failed"
	ErrCodeSuperseded         = "superseded"
	ErrCodeSessionExpired     = "session_expired"
	ErrCodeBackend            = "backend_error"
	ErrCodeNothingPending     = "nothing_pending"
	ErrCodeExportFailed       = "export_failed"
	ErrCodeArchiveUnavailable = "archive_unavailable"
)

// failFor writes the error envelope matching err.
func failFor(c *gin.Context, err error) {
	var fe domain.FieldErrors
	if errors.As(err, &fe) {
		failFields(c, fe)
		return
	}
	switch {
	case errors.Is(err, services.ErrUnknownResource), errors.Is(err, services.ErrProductNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, resources.ErrUnknownVerb):
		fail(c, http.StatusBadRequest, ErrCodeUnknownAction, err.Error())
	case errors.Is(err, resources.ErrTargets),
		errors.Is(err, listview.ErrUnknownEvent),
		errors.Is(err, listview.ErrUnknownSortField),
		errors.Is(err, listview.ErrInvalidDate),
		errors.Is(err, listview.ErrInvalidRange),
		errors.Is(err, listview.ErrInvalidPageSize),
		errors.Is(err, listview.ErrMissingKey),
		errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrIncompleteAnswers),
		errors.Is(err, services.ErrUnknownOption):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, gate.ErrNoPending):
		fail(c, http.StatusNotFound, ErrCodeNoPendingAction, err.Error())
	case errors.Is(err, gate.ErrStaleDescriptor):
		fail(c, http.StatusConflict, ErrCodeStaleAction, err.Error())
	case errors.Is(err, gate.ErrPreconditionFailed):
		fail(c, http.StatusUnprocessableEntity, ErrCodePrecondition, err.Error())
	case errors.Is(err, fetch.ErrStale):
		fail(c, http.StatusConflict, ErrCodeSuperseded, "superseded by a newer request")
	case errors.Is(err, qualify.ErrNothingPending):
		fail(c, http.StatusConflict, ErrCodeNothingPending, err.Error())
	case backend.IsUnauthorized(err):
		fail(c, http.StatusUnauthorized, ErrCodeSessionExpired, backend.SessionExpiredMessage)
	default:
		var ae *backend.APIError
		if errors.As(err, &ae) {
			fail(c, http.StatusBadGateway, ErrCodeBackend, backend.MessageOf(err, "storefront request failed"))
			return
		}
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
