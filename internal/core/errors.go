package core

import "errors"

// Kind classifies domain errors so the transport layer can map them to
// status codes without knowing every individual failure.
type Kind int

const (
	KindServer Kind = iota
	KindValidation
	KindAuth
	KindConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindAuth:
		return "auth_error"
	case KindConflict:
		return "conflict_error"
	case KindNotFound:
		return "not_found_error"
	default:
		return "internal_error"
	}
}

// Error is the error type returned by services. Message is safe to show to
// the caller; Err carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation returns a KindValidation error.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Unauthorized returns a KindAuth error.
func Unauthorized(msg string) *Error {
	return &Error{Kind: KindAuth, Message: msg}
}

// Conflict returns a KindConflict error.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// NotFound returns a KindNotFound error.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Internal wraps an unexpected failure. The message never includes the cause.
func Internal(err error) *Error {
	return &Error{Kind: KindServer, Message: "Server error", Err: err}
}

// KindOf reports the kind of err; untyped errors are server errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServer
}

// MessageOf returns the caller-facing message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindServer {
		return e.Message
	}
	return "Server error"
}

var (
	ErrInvalidCategory    = Validation("Invalid category")
	ErrInvalidAmount      = Validation("Amount must be a positive number")
	ErrInvalidMonth       = Validation(`Month must be in format "Month YYYY" (e.g., January 2025)`)
	ErrInvalidOrder       = Validation(`Report order must be "chronological" or "lexical"`)
	ErrMissingCredentials = Validation("Username and password are required")
	ErrPasswordTooShort   = Validation("Password must be at least 6 characters")
	ErrFederatedPassword  = Validation("Password cannot be changed for Google accounts")
	ErrUserExists         = Conflict("Username or email already exists")
	ErrInvalidCredentials = Unauthorized("Invalid credentials")
	ErrInvalidToken       = Unauthorized("Token is not valid")
	ErrMissingToken       = Unauthorized("No token, authorization denied")
	ErrUnusableProfile    = Unauthorized("No email provided by Google profile")
	ErrBudgetNotFound     = NotFound("Budget not found")
	ErrUserNotFound       = NotFound("User not found")
)
