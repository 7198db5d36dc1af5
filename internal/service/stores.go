package service

import (
	"context"
	"database/sql"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/queue"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
)

// The interfaces below are what the services actually consume.  The
// concrete repositories satisfy them; tests substitute in-memory fakes
// that honor the same contracts (most importantly: DebitSeatsTx is an
// atomic conditional decrement, never a read then a write).

// TxRunner runs a function inside one all-or-nothing transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// EventStore is the event inventory plus event CRUD.
type EventStore interface {
	Create(ctx context.Context, ev *model.Event) error
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Event, error)
	DebitSeatsTx(ctx context.Context, tx *sql.Tx, id uint64, n uint32) error
	CreditSeatsTx(ctx context.Context, tx *sql.Tx, id uint64, n uint32) error
	UpdateTx(ctx context.Context, tx *sql.Tx, ev *model.Event, newTotal uint32) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context) ([]model.Event, error)
	Search(ctx context.Context, q repository.EventSearchQuery) ([]model.Event, int64, error)
}

// ReservationStore persists reservations.
type ReservationStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error
	GetTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error)
	Get(ctx context.Context, id uint64) (*model.Reservation, error)
	DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error
	ListUpcomingByUser(ctx context.Context, userID uint64) ([]repository.ReservationDetail, error)
}

// PaymentStore persists payments and their status transitions.
type PaymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByID(ctx context.Context, id uint64) (*model.Payment, error)
	MarkCompleted(ctx context.Context, id uint64, transactionID string) error
	MarkFailed(ctx context.Context, id uint64) error
	Refund(ctx context.Context, id uint64) error
}

// ConfirmationPublisher is the best-effort notification capability.
type ConfirmationPublisher interface {
	PublishReservationConfirmed(ctx context.Context, event queue.ReservationConfirmedEvent) error
}

// Principal is the authenticated caller as the services see it: an
// identity plus the staff capability.  Authorization rules are pure
// predicates over (principal, resource).
type Principal struct {
	UserID uint64
	Admin  bool
}

func canManageEvent(p Principal, ev *model.Event) bool {
	return p.Admin || ev.OrganizerID == p.UserID
}

func canCancelReservation(p Principal, res *model.Reservation) bool {
	return p.Admin || res.UserID == p.UserID
}
