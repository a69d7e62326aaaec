// Package apperror defines the typed failures returned by the reservation
// and ledger engine. Every failure carries a stable Kind for programmatic
// handling plus a human-readable message.
package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	InvalidTimeRange        Kind = "INVALID_TIME_RANGE"
	DurationOutOfRange      Kind = "DURATION_OUT_OF_RANGE"
	ResourceNotFound        Kind = "COURT_NOT_FOUND"
	ResourceInactive        Kind = "COURT_INACTIVE"
	AccountNotFound         Kind = "ACCOUNT_NOT_FOUND"
	ReservationNotFound     Kind = "RESERVATION_NOT_FOUND"
	EntryNotFound           Kind = "ENTRY_NOT_FOUND"
	InsufficientBalance     Kind = "INSUFFICIENT_BALANCE"
	SlotConflict            Kind = "TIME_SLOT_CONFLICT"
	HoldExpired             Kind = "HOLD_EXPIRED"
	AlreadyCancelled        Kind = "ALREADY_CANCELLED"
	AlreadyCompleted        Kind = "ALREADY_COMPLETED"
	CancelTooLate           Kind = "CANCEL_TOO_LATE"
	EditWindowExpired       Kind = "EDIT_WINDOW_EXPIRED"
	RescheduleTooSoon       Kind = "RESCHEDULE_TOO_SOON"
	NoSlotsGenerated        Kind = "NO_SLOTS_GENERATED"
	TierRequired            Kind = "TIER_REQUIRED"
	NotPending              Kind = "NOT_PENDING"
	Forbidden               Kind = "FORBIDDEN"
	InvalidState            Kind = "INVALID_STATE"
	InvalidInput            Kind = "INVALID_INPUT"
	TransientStorageFailure Kind = "TRANSIENT_STORAGE_FAILURE"
	Internal                Kind = "INTERNAL"
)

// Error is a classified failure. Err, when set, is the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a classified error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies cause under kind, keeping it reachable through errors.Unwrap.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or Internal
// when err is not classified. A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether the caller may retry the same request unchanged.
func Retryable(err error) bool {
	return Is(err, TransientStorageFailure)
}
