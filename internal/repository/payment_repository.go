package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// PaymentRepo provides access to the payments table.  The table carries a
// UNIQUE KEY on reservation_id, which is what actually enforces the
// one-to-one relationship: Create maps the duplicate-key error to
// ErrAlreadyPaid, so two racing pay calls cannot both insert.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

func scanPayment(row interface{ Scan(...any) error }) (*model.Payment, error) {
	var p model.Payment
	var amount string
	var txnID sql.NullString
	err := row.Scan(&p.ID, &p.ReservationID, &amount, &p.PaymentDate, &p.Status, &p.Method, &txnID)
	if err != nil {
		return nil, err
	}
	p.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	if txnID.Valid {
		v := txnID.String
		p.TransactionID = &v
	}
	return &p, nil
}

// Create inserts a pending payment.  Returns ErrAlreadyPaid when the
// reservation already has one.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	const q = `INSERT INTO payments (reservation_id, amount, status, payment_method) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.ReservationID, p.Amount.StringFixed(2), p.Status, p.Method)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrAlreadyPaid
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return r.db.QueryRowContext(ctx, `SELECT payment_date FROM payments WHERE id = ?`, p.ID).Scan(&p.PaymentDate)
}

// GetByID returns a payment or ErrPaymentNotFound.
func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (*model.Payment, error) {
	const q = `SELECT id, reservation_id, amount, payment_date, status, payment_method, transaction_id FROM payments WHERE id = ?`
	p, err := scanPayment(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	return p, err
}

// GetByReservation returns the payment attached to a reservation, or
// ErrPaymentNotFound when none exists.
func (r *PaymentRepo) GetByReservation(ctx context.Context, reservationID uint64) (*model.Payment, error) {
	const q = `SELECT id, reservation_id, amount, payment_date, status, payment_method, transaction_id FROM payments WHERE reservation_id = ?`
	p, err := scanPayment(r.db.QueryRowContext(ctx, q, reservationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	return p, err
}

// MarkCompleted transitions a pending payment to completed and records the
// processor's transaction id.  Guarded on the current status so a late
// processor answer cannot overwrite failed or refunded.
func (r *PaymentRepo) MarkCompleted(ctx context.Context, id uint64, transactionID string) error {
	return r.transition(ctx, id, model.PaymentPending, model.PaymentCompleted, &transactionID)
}

// MarkFailed transitions a pending payment to failed.
func (r *PaymentRepo) MarkFailed(ctx context.Context, id uint64) error {
	return r.transition(ctx, id, model.PaymentPending, model.PaymentFailed, nil)
}

// Refund transitions a completed payment to refunded.  Returns ErrConflict
// when the payment is in any other state.
func (r *PaymentRepo) Refund(ctx context.Context, id uint64) error {
	return r.transition(ctx, id, model.PaymentCompleted, model.PaymentRefunded, nil)
}

func (r *PaymentRepo) transition(ctx context.Context, id uint64, from, to model.PaymentStatus, transactionID *string) error {
	var (
		res sql.Result
		err error
	)
	if transactionID != nil {
		res, err = r.db.ExecContext(ctx,
			`UPDATE payments SET status = ?, transaction_id = ? WHERE id = ? AND status = ?`,
			to, *transactionID, id, from)
	} else {
		res, err = r.db.ExecContext(ctx,
			`UPDATE payments SET status = ? WHERE id = ? AND status = ?`,
			to, id, from)
	}
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists uint64
		if scanErr := r.db.QueryRowContext(ctx, `SELECT id FROM payments WHERE id = ?`, id).Scan(&exists); scanErr != nil {
			if errors.Is(scanErr, sql.ErrNoRows) {
				return ErrPaymentNotFound
			}
			return scanErr
		}
		return ErrConflict
	}
	return nil
}
