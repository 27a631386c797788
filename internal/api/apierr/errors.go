package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mythichub/nexus/internal/model"
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
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeDuplicateSession  = "DUPLICATE_SESSION"
	CodeUnknownSession    = "UNKNOWN_SESSION"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodePartyNotFound     = "PARTY_NOT_FOUND"
	CodeNotLeader         = "NOT_LEADER"
	CodeAlreadyInParty    = "ALREADY_IN_PARTY"
	CodeNotInParty        = "NOT_IN_PARTY"
	CodeNoInvite          = "NO_INVITE"
	CodeInviteExpired     = "INVITE_EXPIRED"
	CodeMergeNotSupported = "MERGE_NOT_SUPPORTED"
	CodeNoAvailableServer = "NO_AVAILABLE_SERVER"
	CodeUnknownPolicy     = "UNKNOWN_POLICY"
	CodeProfileNotFound   = "PROFILE_NOT_FOUND"
	CodeStaleWrite        = "STALE_WRITE"
	CodeConflict          = "CONFLICT"
	CodeBusUnavailable    = "BUS_UNAVAILABLE"
	CodeInternalError     = "INTERNAL_ERROR"
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
	case errors.Is(err, model.ErrDuplicateSession):
		return &httpError{http.StatusConflict, APIError{CodeDuplicateSession, "Player already has an active session elsewhere"}}
	case errors.Is(err, model.ErrUnknownSession):
		return &httpError{http.StatusNotFound, APIError{CodeUnknownSession, "No session exists for player"}}
	case errors.Is(err, model.ErrInvalidTransition):
		return &httpError{http.StatusConflict, APIError{CodeInvalidTransition, "Session cannot make that transition"}}
	case errors.Is(err, model.ErrPartyNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePartyNotFound, "Party not found"}}
	case errors.Is(err, model.ErrNotLeader):
		return &httpError{http.StatusForbidden, APIError{CodeNotLeader, "Only the party leader can perform this action"}}
	case errors.Is(err, model.ErrAlreadyInParty):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyInParty, "Player is already in a party"}}
	case errors.Is(err, model.ErrNotInParty):
		return &httpError{http.StatusNotFound, APIError{CodeNotInParty, "Player is not in a party"}}
	case errors.Is(err, model.ErrNoInvite):
		return &httpError{http.StatusForbidden, APIError{CodeNoInvite, "No invite to this party"}}
	case errors.Is(err, model.ErrInviteExpired):
		return &httpError{http.StatusGone, APIError{CodeInviteExpired, "Invite has expired"}}
	case errors.Is(err, model.ErrMergeNotSupported):
		return &httpError{http.StatusConflict, APIError{CodeMergeNotSupported, "Cannot merge two multi-member parties"}}
	case errors.Is(err, model.ErrNoAvailableServer):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeNoAvailableServer, "No server available"}}
	case errors.Is(err, model.ErrUnknownPolicy):
		return &httpError{http.StatusBadRequest, APIError{CodeUnknownPolicy, "Unknown routing policy"}}
	case errors.Is(err, model.ErrProfileNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeProfileNotFound, "Profile not found"}}
	case errors.Is(err, model.ErrStaleWrite):
		return &httpError{http.StatusConflict, APIError{CodeStaleWrite, "Profile version is stale, reload and retry"}}
	case errors.Is(err, model.ErrVersionConflict):
		return &httpError{http.StatusConflict, APIError{CodeConflict, "Record was modified concurrently"}}
	case errors.Is(err, model.ErrPublishUnavailable):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeBusUnavailable, "Event transport unavailable"}}
	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
