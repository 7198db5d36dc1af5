package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// EventRepo provides CRUD access to the events table and owns the seat
// counter.  The counter is only ever mutated through DebitSeatsTx,
// CreditSeatsTx and ResizeTx, all of which are single guarded UPDATE
// statements: the availability check and the arithmetic happen in one
// atomic operation under the row lock, never as a separate read followed
// by a write.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns an EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions that
// span this repository and others.
func (r *EventRepo) DB() *sql.DB { return r.db }

const eventColumns = `id, title, description, date, location, total_seats, available_seats, price, organizer_id, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
	var ev model.Event
	var price string
	err := row.Scan(
		&ev.ID, &ev.Title, &ev.Description, &ev.Date, &ev.Location,
		&ev.TotalSeats, &ev.AvailableSeats, &price, &ev.OrganizerID,
		&ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ev.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// Create inserts a new event.  The caller sets AvailableSeats; for a fresh
// event that is always TotalSeats.  The generated ID and timestamps are
// populated on the passed model.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) error {
	const q = `INSERT INTO events (title, description, date, location, total_seats, available_seats, price, organizer_id)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		ev.Title, ev.Description, ev.Date.UTC(), ev.Location,
		ev.TotalSeats, ev.AvailableSeats, ev.Price.StringFixed(2), ev.OrganizerID,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM events WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, ev.ID).Scan(&ev.CreatedAt, &ev.UpdatedAt)
}

// GetByID returns a single event or ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	ev, err := scanEvent(r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	return ev, err
}

// GetForUpdateTx loads an event inside the given transaction with a
// SELECT ... FOR UPDATE.  Acquiring the row lock here serializes all
// reserve and resize work on the same event in arrival order while leaving
// other events fully independent.  A lock wait beyond the session bound
// surfaces as ErrBusy.
func (r *EventRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Event, error) {
	ev, err := scanEvent(tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	return ev, translateLockErr(err)
}

// DebitSeatsTx decrements available_seats by n only if n seats are still
// available.  The condition lives in the WHERE clause, so the check and
// the decrement are one atomic operation; zero affected rows means the
// remaining inventory was insufficient at commit time.
func (r *EventRepo) DebitSeatsTx(ctx context.Context, tx *sql.Tx, id uint64, n uint32) error {
	const q = `UPDATE events SET available_seats = available_seats - ? WHERE id = ? AND available_seats >= ?`
	res, err := tx.ExecContext(ctx, q, n, id, n)
	if err != nil {
		return translateLockErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInsufficientSeats
	}
	return nil
}

// CreditSeatsTx increments available_seats by n, guarded so the counter
// can never exceed total_seats.  Zero affected rows on an existing event
// means a double credit or a credit that was never debited, a programming
// error reported as ErrInvariantViolation.
func (r *EventRepo) CreditSeatsTx(ctx context.Context, tx *sql.Tx, id uint64, n uint32) error {
	const q = `UPDATE events SET available_seats = available_seats + ? WHERE id = ? AND available_seats + ? <= total_seats`
	res, err := tx.ExecContext(ctx, q, n, id, n)
	if err != nil {
		return translateLockErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists uint64
		if scanErr := tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = ?`, id).Scan(&exists); scanErr != nil {
			if errors.Is(scanErr, sql.ErrNoRows) {
				return ErrEventNotFound
			}
			return scanErr
		}
		return ErrInvariantViolation
	}
	return nil
}

// UpdateTx rewrites the mutable event fields and, when the total changes,
// recomputes available_seats in the same statement:
//
//	new_available = available + (new_total - old_total)
//
// The WHERE guard rejects totals below the reserved count
// (total - available), preserving the counter invariant across the resize.
// Callers are expected to hold the row via GetForUpdateTx, and the
// connection runs with clientFoundRows so RowsAffected counts matched
// rows: zero can only mean the guard fired, never that the update was a
// no-op rewriting identical values.
func (r *EventRepo) UpdateTx(ctx context.Context, tx *sql.Tx, ev *model.Event, newTotal uint32) error {
	const q = `UPDATE events
	           SET title = ?, description = ?, date = ?, location = ?, price = ?,
	               available_seats = available_seats + (? - total_seats), total_seats = ?
	           WHERE id = ? AND total_seats - available_seats <= ?`
	res, err := tx.ExecContext(ctx, q,
		ev.Title, ev.Description, ev.Date.UTC(), ev.Location, ev.Price.StringFixed(2),
		newTotal, newTotal, ev.ID, newTotal,
	)
	if err != nil {
		return translateLockErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCapacityBelowReserved
	}
	return nil
}

// Delete removes an event.  Reservations and payments referencing it are
// removed by ON DELETE CASCADE.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrEventNotFound
	}
	return nil
}

// List returns all events ordered by date ascending.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, rows.Err()
}
