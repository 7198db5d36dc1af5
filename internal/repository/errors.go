// Package repository implements persistence for events, reservations,
// payments and users on top of database/sql.  This file defines the
// sentinel errors shared across repositories.  Higher layers compare with
// errors.Is and translate into HTTP responses; nothing here carries
// user-facing text.
package repository

import (
	"context"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrEventNotFound is returned when an event row does not exist.
var ErrEventNotFound = errors.New("event not found")

// ErrReservationNotFound is returned when a reservation row does not exist.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrPaymentNotFound is returned when a payment row does not exist.
var ErrPaymentNotFound = errors.New("payment not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrInsufficientSeats is returned by a seat debit when the event's
// available counter is smaller than the requested amount at commit time.
var ErrInsufficientSeats = errors.New("insufficient seats available")

// ErrInvariantViolation signals that a seat credit would push the available
// counter above total_seats.  A user request can never legitimately cause
// this; observing it means a bug in the lifecycle code, so handlers map it
// to HTTP 500, not 4xx.
var ErrInvariantViolation = errors.New("seat credit exceeds total capacity")

// ErrCapacityBelowReserved is returned by an event resize when the new
// total would be smaller than the seats already reserved.
var ErrCapacityBelowReserved = errors.New("total seats below reserved count")

// ErrAlreadyPaid is returned when a payment already exists for the
// reservation.  The payments table carries a unique key on reservation_id,
// so concurrent pay calls race safely: exactly one insert wins.
var ErrAlreadyPaid = errors.New("reservation already paid")

// ErrConflict is returned when a state transition cannot be performed
// because of conflicting state, such as refunding a payment that never
// completed.  Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrBusy is returned when a row lock could not be acquired within the
// bound set by the session or the request context.  Callers may retry.
var ErrBusy = errors.New("inventory busy, retry")

// MySQL server error numbers this package reacts to.
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry
}

// translateLockErr converts lock-contention failures into ErrBusy so that
// a reserve or cancel blocked on the event row fails with a retryable
// error instead of surfacing driver internals.  Other errors pass through.
func translateLockErr(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && (me.Number == mysqlErrLockWaitTimeout || me.Number == mysqlErrDeadlock) {
		return ErrBusy
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrBusy
	}
	return err
}
