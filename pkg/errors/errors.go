package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Status  int         `json:"status"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code so cloned errors still compare equal to their template.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// Retryable reports whether the caller may safely re-invoke the operation.
func (e *Error) Retryable() bool {
	return e != nil && e.Code == ErrStorage.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	ErrStorage                 = New("STORAGE_ERROR", http.StatusServiceUnavailable, "storage temporarily unavailable, please retry")
	ErrAlreadyReversed         = New("ALREADY_REVERSED", http.StatusConflict, "ledger entry already reversed")
	ErrItemUnavailable         = New("ITEM_UNAVAILABLE", http.StatusConflict, "item unavailable")
	ErrUnlockRequirementNotMet = New("UNLOCK_REQUIREMENT_NOT_MET", http.StatusForbidden, "team XP below the item unlock requirement")
	ErrInsufficientCrystals    = New("INSUFFICIENT_CRYSTALS", http.StatusConflict, "insufficient crystals")
	ErrPowerLocked             = New("POWER_LOCKED", http.StatusForbidden, "power not unlocked at the current team level")
	ErrTransferLimit           = New("TRANSFER_LIMIT_REACHED", http.StatusConflict, "team already used its transfers for this phase")
	ErrPartialGrant            = New("PARTIAL_GRANT", http.StatusInternalServerError, "grant partially applied")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Storage wraps an infrastructure failure as a retryable storage error.
func Storage(err error, message string) *Error {
	if message == "" {
		message = ErrStorage.Message
	}
	return Wrap(err, ErrStorage.Code, ErrStorage.Status, message)
}

// WithDetails returns a copy of err carrying structured details for the client.
func WithDetails(err *Error, details interface{}) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Details = details
	return &clone
}
