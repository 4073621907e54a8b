package apierr

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/model"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/services/auth"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/services/markers"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}

// Error codes
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeRateLimited       = "RATE_LIMITED"
	CodeUsernameExists    = "USERNAME_EXISTS"
	CodeInvalidCredential = "INVALID_CREDENTIALS"
	CodeUserNotFound      = "USER_NOT_FOUND"
	CodeTOTPNotEnabled    = "TOTP_NOT_ENABLED"
	CodeRecoveryQuestions = "INVALID_RECOVERY_QUESTIONS"
	CodeInvalidMarker     = "INVALID_MARKER"
	CodeMarkerExists      = "MARKER_EXISTS"
	CodePersistenceError  = "PERSISTENCE_ERROR"
	CodeInternalError     = "INTERNAL_ERROR"
)

type httpError struct {
	status   int
	apiError APIError
}

func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Success: false, Error: he.apiError})
}

// Status reports the HTTP status WriteError would use for err
func Status(err error) int {
	return toHTTPError(err).status
}

func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Credential and session errors. Unknown user and wrong password share
	// one response.
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredential, "Invalid username or password"}}
	case errors.Is(err, auth.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}
	case errors.Is(err, auth.ErrDuplicateUsername):
		return &httpError{http.StatusConflict, APIError{CodeUsernameExists, "Username already exists"}}
	case errors.Is(err, auth.ErrUserNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeUserNotFound, "User not found"}}
	case errors.Is(err, auth.ErrTOTPNotEnabled):
		return &httpError{http.StatusConflict, APIError{CodeTOTPNotEnabled, "Two-factor authentication is not enabled"}}
	case errors.Is(err, auth.ErrInvalidRecoveryQuestions):
		return &httpError{http.StatusBadRequest, APIError{CodeRecoveryQuestions, "Exactly two recovery questions with distinct questions and answers are required"}}
	case errors.Is(err, auth.ErrCredentialTooLong):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, "Password and recovery answers must be at most 72 bytes"}}

	// Marker errors
	case errors.Is(err, markers.ErrInvalidMarker):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidMarker, err.Error()}}
	case errors.Is(err, model.ErrMarkerExists):
		return &httpError{http.StatusConflict, APIError{CodeMarkerExists, "Marker id already exists"}}
	case errors.Is(err, markers.ErrPersistence):
		return &httpError{http.StatusInternalServerError, APIError{CodePersistenceError, "Marker could not be persisted"}}

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

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) error {
	return &httpError{http.StatusForbidden, APIError{CodeForbidden, message}}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) error {
	return &httpError{http.StatusNotFound, APIError{CodeNotFound, message}}
}

// NewRateLimitedError creates a too-many-requests error
func NewRateLimitedError() error {
	return &httpError{http.StatusTooManyRequests, APIError{CodeRateLimited, "Too many requests"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
