// Package apperr defines the error taxonomy shared by the stores, the
// reservation services and the HTTP layer.  Every caller-visible
// outcome is a sentinel matched with errors.Is; SeatUnavailableError
// additionally carries the conflicting seats.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed or missing input.  It is returned
	// before any state is touched.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks an absent theatre, movie, show, hold or booking.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks an operation the caller or the theatre is not
	// allowed to perform, e.g. scheduling against an unapproved theatre.
	ErrForbidden = errors.New("forbidden")
	// ErrScheduleConflict marks an occupied (theatre, screen, date, time) slot.
	ErrScheduleConflict = errors.New("schedule conflict")
	// ErrSeatUnavailable marks a hold request touching seats that are
	// not available.
	ErrSeatUnavailable = errors.New("seat unavailable")
	// ErrHoldExpired marks a commit after the TTL lapsed or after the
	// hold was already committed or released.
	ErrHoldExpired = errors.New("hold expired")
	// ErrPaymentFailed marks a payment declined by the gateway.
	ErrPaymentFailed = errors.New("payment failed")
	// ErrPaymentTimeout marks a payment that did not complete in time.
	ErrPaymentTimeout = errors.New("payment timeout")
	// ErrInvalidRequest marks a hold of zero seats, too many seats or
	// seats that do not exist.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrShowUnavailable marks a show that no longer accepts holds.
	ErrShowUnavailable = errors.New("show unavailable")
	// ErrInvalidTransition marks a lifecycle change not allowed from the
	// current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStaleWrite marks an optimistic update that lost a race.
	ErrStaleWrite = errors.New("stale write")
)

// Validation wraps ErrValidation with a message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// InvalidRequest wraps ErrInvalidRequest with a message.
func InvalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound naming the missing entity.
func NotFound(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}

// SeatUnavailableError names the seats that blocked a hold.
type SeatUnavailableError struct {
	Seats []string
}

func (e *SeatUnavailableError) Error() string {
	return "seats unavailable: " + strings.Join(e.Seats, ",")
}

// Is makes errors.Is(err, ErrSeatUnavailable) hold.
func (e *SeatUnavailableError) Is(target error) bool {
	return target == ErrSeatUnavailable
}

// UnavailableSeats returns the seats named by err, if it is (or wraps)
// a SeatUnavailableError.
func UnavailableSeats(err error) []string {
	var sue *SeatUnavailableError
	if errors.As(err, &sue) {
		return sue.Seats
	}
	return nil
}

// Expected reports whether err is a normal, user recoverable outcome
// rather than an infrastructure failure.
func Expected(err error) bool {
	for _, target := range []error{
		ErrValidation, ErrNotFound, ErrForbidden, ErrScheduleConflict,
		ErrSeatUnavailable, ErrHoldExpired, ErrPaymentFailed, ErrPaymentTimeout,
		ErrInvalidRequest, ErrShowUnavailable, ErrInvalidTransition, ErrStaleWrite,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
