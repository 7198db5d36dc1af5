// Package queue defines message payloads exchanged over the message broker
// and the background consumer that turns them into user notifications.
package queue

// ReservationConfirmedEvent is published after a reservation commits.  It
// carries enough for downstream consumers to notify the user without
// querying the primary database.  Publication is best-effort: a broker
// outage never fails the reservation itself.
type ReservationConfirmedEvent struct {
	ReservationID uint64 `json:"reservation_id"`
	UserID        uint64 `json:"user_id"`
	EventID       uint64 `json:"event_id"`
	EventTitle    string `json:"event_title"`
	EventDate     string `json:"event_date"`
	Location      string `json:"location"`
	Seats         uint32 `json:"seats"`
	ConfirmedAt   string `json:"confirmed_at"`
}
