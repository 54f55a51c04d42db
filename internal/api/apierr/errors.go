package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/eventpulse/internal/model"
	"github.com/mcoot/eventpulse/internal/services/code"
	"github.com/mcoot/eventpulse/internal/services/telegramauth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeMalformedCode       = "MALFORMED_CODE"
	CodeExpiredCode         = "EXPIRED_CODE"
	CodeInvalidSignature    = "INVALID_CODE_SIGNATURE"
	CodeUnsignedNotAllowed  = "UNSIGNED_CODE_NOT_ALLOWED"
	CodeSigningUnavailable  = "SIGNING_UNAVAILABLE"
	CodeSelfScan            = "SELF_SCAN"
	CodeParticipantNotFound = "PARTICIPANT_NOT_FOUND"
	CodeEventNotFound       = "EVENT_NOT_FOUND"
	CodeEncounterNotFound   = "ENCOUNTER_NOT_FOUND"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Auth failures are deliberately indistinguishable
	case errors.Is(err, telegramauth.ErrUnauthorized):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}

	// Code failures stay distinct so scanners can show a useful message
	case errors.Is(err, code.ErrMalformed):
		return &httpError{http.StatusBadRequest, APIError{CodeMalformedCode, "Code is malformed"}}
	case errors.Is(err, code.ErrExpired):
		return &httpError{http.StatusBadRequest, APIError{CodeExpiredCode, "Code has expired"}}
	case errors.Is(err, code.ErrBadSignature):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidSignature, "Code signature is invalid"}}
	case errors.Is(err, code.ErrUnsignedNotAllowed):
		return &httpError{http.StatusBadRequest, APIError{CodeUnsignedNotAllowed, "Unsigned codes are not accepted"}}
	case errors.Is(err, code.ErrNoSecret):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeSigningUnavailable, "Code signing is not configured"}}

	case errors.Is(err, model.ErrSelfScan):
		return &httpError{http.StatusBadRequest, APIError{CodeSelfScan, "You cannot scan your own code"}}
	case errors.Is(err, model.ErrParticipantNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeParticipantNotFound, "Participant not found"}}
	case errors.Is(err, model.ErrEventNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeEventNotFound, "Event not found"}}
	case errors.Is(err, model.ErrEncounterNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeEncounterNotFound, "Encounter not found"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
