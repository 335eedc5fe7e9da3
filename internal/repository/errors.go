// Package repository defines the data access layer together with the
// error values shared by handlers and the background reconciler.  The
// sentinels let higher layers map storage-level failures onto the HTTP
// taxonomy with errors.Is instead of string matching.
package repository

import (
	"errors"
	"fmt"
)

// ErrOrderNotFound is returned when an order lookup yields no rows.
// Handlers translate it into a 404 response.
var ErrOrderNotFound = errors.New("order not found")

// ErrShowtimeNotFound is returned when a showtime lookup yields no rows.
var ErrShowtimeNotFound = errors.New("showtime not found")

// ErrSeatReserved signals that a requested seat already has a live
// ticket for the showtime.  It is raised both by the fast-path existence
// check and by the unique-key violation on insert, so concurrent
// bookings of the same seat surface the same 409 either way.
var ErrSeatReserved = errors.New("seat already reserved")

// ErrDuplicateSeat signals the same (showtime, seat) pair appearing
// twice within a single order request.  Handlers translate it to 400.
var ErrDuplicateSeat = errors.New("duplicate seat in request")

// ErrReservationExpired is returned when payment is attempted on an
// order whose hold deadline has passed.  The order has already been
// force-cancelled by the time callers see this error.
var ErrReservationExpired = errors.New("order reservation has expired")

// ErrAlreadyCancelled is returned when cancelling an order that is
// already in the cancelled state.
var ErrAlreadyCancelled = errors.New("order has already been cancelled")

// ErrCancelFailedOrder is returned when cancelling an order whose
// payment failed; failed orders release their seats immediately and
// there is nothing left to cancel.
var ErrCancelFailedOrder = errors.New("cannot cancel a failed order")

// ErrTooLateToCancel is returned when the showtime has started or is
// about to start and the cancellation window has closed.
var ErrTooLateToCancel = errors.New("showtime has started or is about to start")

// ErrForbidden is returned when the caller attempts an operation on an
// order they do not own.  Handlers translate it into a 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrEmailExists is returned when registering a user with an email that
// is already taken.
var ErrEmailExists = errors.New("email already exists")

// NotPendingError reports a payment attempt against an order that is no
// longer pending.  It carries the current status so the response can
// tell the caller which terminal state won.
type NotPendingError struct {
	Status string
}

func (e *NotPendingError) Error() string {
	return fmt.Sprintf("order is not pending (current status: %s)", e.Status)
}
