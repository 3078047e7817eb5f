// Package apperr defines the client-facing error taxonomy shared by the
// identity and tenant services. Handlers translate an *Error into an HTTP
// status and a structured body; anything else is reported as an internal
// failure with a generic message.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindInvalidRole
	KindDuplicateEmail
	KindDuplicateUsername
	KindSlugConflict
	KindTenantCreation
	KindInvalidCredentials
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindRateLimited
)

var kindNames = map[Kind]string{
	KindInternal:           "InternalServerError",
	KindValidation:         "ValidationError",
	KindInvalidRole:        "InvalidRoleError",
	KindDuplicateEmail:     "DuplicateEmailError",
	KindDuplicateUsername:  "DuplicateUsernameError",
	KindSlugConflict:       "SlugConflictError",
	KindTenantCreation:     "TenantCreationError",
	KindInvalidCredentials: "InvalidCredentialsError",
	KindUnauthorized:       "UnauthorizedError",
	KindForbidden:          "ForbiddenError",
	KindNotFound:           "NotFoundError",
	KindRateLimited:        "RateLimitError",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Status is the HTTP status code a kind is reported with.
func (k Kind) Status() int {
	switch k {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

type Error struct {
	Kind    Kind
	Message string
	// Details carries per-field validation messages.
	Details map[string]string
	// Err is the underlying cause. It is logged, never sent to clients.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the package-level sentinels can
// be used with errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrValidation         = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrInvalidRole        = &Error{Kind: KindInvalidRole, Message: "invalid role"}
	ErrDuplicateEmail     = &Error{Kind: KindDuplicateEmail, Message: "Email already taken"}
	ErrDuplicateUsername  = &Error{Kind: KindDuplicateUsername, Message: "Username already taken"}
	ErrSlugConflict       = &Error{Kind: KindSlugConflict, Message: "Organization slug already taken"}
	ErrTenantCreation     = &Error{Kind: KindTenantCreation, Message: "Failed to create tenant organization"}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "Invalid credentials"}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized, Message: "Missing or invalid credentials"}
	ErrForbidden          = &Error{Kind: KindForbidden, Message: "Forbidden"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "Not found"}
)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches cause to a new error of the given kind.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func Validation(message string, details map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

func Forbidden(message string) *Error { return New(KindForbidden, message) }

func NotFound(message string) *Error { return New(KindNotFound, message) }

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}
