package apperr

import (
	"errors"
	"net/http"
)

// Error kinds. Every domain error unwraps to exactly one of these.
var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
)

var statusMap = map[error]int{
	ErrNotFound:           http.StatusNotFound,
	ErrValidation:         http.StatusBadRequest,
	ErrStorageUnavailable: http.StatusServiceUnavailable,
	ErrUnauthorized:       http.StatusUnauthorized,
	ErrForbidden:          http.StatusForbidden,
}

// Error is a user-visible message tagged with its kind.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func New(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func NotFound(msg string) error     { return New(ErrNotFound, msg) }
func Validation(msg string) error   { return New(ErrValidation, msg) }
func Unauthorized(msg string) error { return New(ErrUnauthorized, msg) }
func Forbidden(msg string) error    { return New(ErrForbidden, msg) }

// Status maps err to an HTTP status code, 500 when the kind is unknown.
func Status(err error) int {
	for kind, code := range statusMap {
		if errors.Is(err, kind) {
			return code
		}
	}
	return http.StatusInternalServerError
}

// Known reports whether err belongs to one of the domain kinds.
func Known(err error) bool {
	return Status(err) != http.StatusInternalServerError
}
