package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event is a published happening with a finite seat pool.  TotalSeats is
// fixed by the organizer (and may be resized later), AvailableSeats is the
// live counter that reservation debits and cancellation credits mutate.
//
// Invariant: 0 <= AvailableSeats <= TotalSeats, and AvailableSeats equals
// TotalSeats minus the sum of seats across all existing reservations for
// this event.  The repository enforces this with guarded single-statement
// updates; nothing else may write the counter.
type Event struct {
	ID             uint64          `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Date           time.Time       `json:"date"`
	Location       string          `json:"location"`
	TotalSeats     uint32          `json:"total_seats"`
	AvailableSeats uint32          `json:"available_seats"`
	Price          decimal.Decimal `json:"price"`
	OrganizerID    uint64          `json:"organizer_id"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
