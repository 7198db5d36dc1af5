package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// ReservationRepo provides access to the reservations table.  Creation and
// deletion are transaction-scoped because they always travel together with
// a seat debit or credit on the events table; the caller owns the
// transaction and must commit or roll back.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// CreateTx inserts a confirmed reservation within the transaction and
// populates the generated ID and creation timestamp on the model.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations (user_id, event_id, seats, is_confirmed) VALUES (?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q, res.UserID, res.EventID, res.Seats, res.IsConfirmed)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return tx.QueryRowContext(ctx, `SELECT created_at FROM reservations WHERE id = ?`, res.ID).Scan(&res.CreatedAt)
}

// GetTx loads a reservation inside the transaction, locking the row so a
// concurrent cancel of the same reservation blocks instead of crediting
// twice.  Returns ErrReservationNotFound when no row exists.
func (r *ReservationRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
	const q = `SELECT id, user_id, event_id, seats, is_confirmed, created_at FROM reservations WHERE id = ? FOR UPDATE`
	var res model.Reservation
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&res.ID, &res.UserID, &res.EventID, &res.Seats, &res.IsConfirmed, &res.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, translateLockErr(err)
	}
	return &res, nil
}

// Get loads a reservation outside any transaction.
func (r *ReservationRepo) Get(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT id, user_id, event_id, seats, is_confirmed, created_at FROM reservations WHERE id = ?`
	var res model.Reservation
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&res.ID, &res.UserID, &res.EventID, &res.Seats, &res.IsConfirmed, &res.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// DeleteTx removes a reservation within the transaction.  The one-to-one
// payment row, if any, is removed by ON DELETE CASCADE.
func (r *ReservationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrReservationNotFound
	}
	return nil
}

// ReservationDetail is a reservation joined with the event fields a
// customer needs to recognise it in a listing.
type ReservationDetail struct {
	ID          uint64    `json:"id"`
	EventID     uint64    `json:"event_id"`
	EventTitle  string    `json:"event_title"`
	EventDate   time.Time `json:"event_date"`
	Location    string    `json:"location"`
	Seats       uint32    `json:"seats"`
	IsConfirmed bool      `json:"is_confirmed"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListUpcomingByUser returns the user's reservations for events that have
// not started yet, newest first.  A plain read; no locking.
func (r *ReservationRepo) ListUpcomingByUser(ctx context.Context, userID uint64) ([]ReservationDetail, error) {
	const q = `SELECT r.id, r.event_id, e.title, e.date, e.location, r.seats, r.is_confirmed, r.created_at
	           FROM reservations r
	           JOIN events e ON e.id = r.event_id
	           WHERE r.user_id = ? AND e.date > UTC_TIMESTAMP()
	           ORDER BY r.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ReservationDetail, 0)
	for rows.Next() {
		var d ReservationDetail
		if err := rows.Scan(&d.ID, &d.EventID, &d.EventTitle, &d.EventDate, &d.Location, &d.Seats, &d.IsConfirmed, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SumSeatsByEvent returns the total seats across all reservations for an
// event.  Used by tests and admin tooling to audit the counter invariant;
// request paths never recompute availability this way.
func (r *ReservationRepo) SumSeatsByEvent(ctx context.Context, eventID uint64) (uint64, error) {
	var sum uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(seats), 0) FROM reservations WHERE event_id = ?`, eventID).Scan(&sum)
	return sum, err
}
