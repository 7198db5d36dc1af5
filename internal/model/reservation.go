package model

import "time"

// Reservation records a user's claim on a number of seats for an event.
// There is no multi-step pending state: a reservation is confirmed in the
// same transaction that debits the event's seat counter, and Seats is
// immutable afterwards; cancelling must credit back exactly this amount,
// exactly once.
type Reservation struct {
	ID          uint64    `json:"id"`
	UserID      uint64    `json:"user_id"`
	EventID     uint64    `json:"event_id"`
	Seats       uint32    `json:"seats"`
	IsConfirmed bool      `json:"is_confirmed"`
	CreatedAt   time.Time `json:"created_at"`
}
