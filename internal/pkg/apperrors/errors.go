package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound = errors.New("resource not found")
	ErrConflict         = errors.New("conflict")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenRevoked       = errors.New("token revoked")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrInvalidArgument = errors.New("invalid argument")

	// State machine errors
	ErrInvalidState = errors.New("invalid state transition")

	// Store errors
	ErrUnavailable = errors.New("store unavailable")

	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
)

// Mentorship errors
var (
	ErrRequestNotFound      = errors.New("mentorship request not found")
	ErrRequestExists        = errors.New("a request to this mentor already exists")
	ErrRequestAlreadyClosed = errors.New("mentorship request has already been answered")
	ErrNotAMentor           = errors.New("target user is not a mentor")
	ErrAlreadyAssigned      = errors.New("student already has an assigned mentor")
)

// Roadmap errors
var (
	ErrRoadmapNotFound  = errors.New("roadmap item not found")
	ErrUnitNotFound     = errors.New("roadmap unit not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrStaleUnit        = errors.New("unit was modified concurrently")
)

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewInvalidArgumentError creates a new custom error for malformed input with a message
func NewInvalidArgumentError(message string) error {
	return &CustomError{
		Err:     ErrInvalidArgument,
		Message: message,
	}
}

// NewInvalidStateError creates a new custom error for disallowed transitions
func NewInvalidStateError(message string) error {
	return &CustomError{
		Err:     ErrInvalidState,
		Message: message,
	}
}

// NewUnavailableError wraps a store failure so callers can tell it apart from domain errors
func NewUnavailableError(cause error) error {
	return &CustomError{
		Err:     ErrUnavailable,
		Message: ErrUnavailable.Error() + ": " + cause.Error(),
		Cause:   cause,
	}
}

// Is returns whether target matches any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// Kind returns the taxonomy sentinel err belongs to, or nil when it is not a
// domain error.
func Kind(err error) error {
	switch {
	case err == nil:
		return nil
	case Is(err, ErrPermissionDenied):
		return ErrPermissionDenied
	case Is(err, ErrResourceNotFound, ErrUserNotFound, ErrRequestNotFound, ErrRoadmapNotFound, ErrUnitNotFound, ErrQuestionNotFound):
		return ErrResourceNotFound
	case Is(err, ErrConflict, ErrRequestExists, ErrRequestAlreadyClosed, ErrNotAMentor, ErrAlreadyAssigned, ErrStaleUnit, ErrEmailAlreadyExists):
		return ErrConflict
	case Is(err, ErrInvalidArgument):
		return ErrInvalidArgument
	case Is(err, ErrInvalidState):
		return ErrInvalidState
	case Is(err, ErrUnavailable):
		return ErrUnavailable
	}
	return nil
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Cause   error
	Message string
	// Details is reported to the client next to the message
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap exposes both the taxonomy sentinel and the underlying cause
func (e *CustomError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// WithDetails attaches client-facing context to err. A CustomError is
// updated in place; any other error is wrapped.
func WithDetails(err error, details map[string]interface{}) error {
	var ce *CustomError
	if errors.As(err, &ce) {
		ce.Details = details
		return err
	}
	return &CustomError{Err: err, Details: details}
}

// DetailsOf returns the details attached with WithDetails, if any
func DetailsOf(err error) map[string]interface{} {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Details
	}
	return nil
}
