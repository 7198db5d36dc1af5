package service

import (
	"context"
	"database/sql"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/payment"
	"github.com/iliyamo/event-ticket-reservation/internal/queue"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
)

// The fakes below satisfy the store interfaces without a database.  The
// tx pointer is unused; fakeTxRunner simply invokes the function with nil.
// What matters is that fakeEventStore keeps the repository's contract:
// debit and credit are conditional mutations under one lock, never a read
// followed by a separate write, so concurrent reserve tests exercise the
// same races the real schema would.

type fakeTxRunner struct{}

func (fakeTxRunner) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

type fakeEventStore struct {
	mu     sync.Mutex
	nextID uint64
	events map[uint64]*model.Event
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{events: map[uint64]*model.Event{}}
}

func (s *fakeEventStore) Create(ctx context.Context, ev *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	ev.ID = s.nextID
	cp := *ev
	s.events[ev.ID] = &cp
	return nil
}

func (s *fakeEventStore) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	cp := *ev
	return &cp, nil
}

func (s *fakeEventStore) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Event, error) {
	return s.GetByID(ctx, id)
}

func (s *fakeEventStore) DebitSeatsTx(ctx context.Context, tx *sql.Tx, id uint64, n uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return repository.ErrEventNotFound
	}
	if ev.AvailableSeats < n {
		return repository.ErrInsufficientSeats
	}
	ev.AvailableSeats -= n
	return nil
}

func (s *fakeEventStore) CreditSeatsTx(ctx context.Context, tx *sql.Tx, id uint64, n uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return repository.ErrEventNotFound
	}
	if ev.AvailableSeats+n > ev.TotalSeats {
		return repository.ErrInvariantViolation
	}
	ev.AvailableSeats += n
	return nil
}

func (s *fakeEventStore) UpdateTx(ctx context.Context, tx *sql.Tx, ev *model.Event, newTotal uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.events[ev.ID]
	if !ok {
		return repository.ErrEventNotFound
	}
	reserved := cur.TotalSeats - cur.AvailableSeats
	if newTotal < reserved {
		return repository.ErrCapacityBelowReserved
	}
	cur.Title = ev.Title
	cur.Description = ev.Description
	cur.Date = ev.Date
	cur.Location = ev.Location
	cur.Price = ev.Price
	cur.TotalSeats = newTotal
	cur.AvailableSeats = newTotal - reserved
	return nil
}

func (s *fakeEventStore) Delete(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return repository.ErrEventNotFound
	}
	delete(s.events, id)
	return nil
}

func (s *fakeEventStore) List(ctx context.Context) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Event, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, *ev)
	}
	return out, nil
}

func (s *fakeEventStore) Search(ctx context.Context, q repository.EventSearchQuery) ([]model.Event, int64, error) {
	evs, err := s.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	return evs, int64(len(evs)), nil
}

// available reads the live counter for assertions.
func (s *fakeEventStore) available(id uint64) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[id].AvailableSeats
}

type fakeReservationStore struct {
	mu           sync.Mutex
	nextID       uint64
	reservations map[uint64]*model.Reservation
}

func newFakeReservationStore() *fakeReservationStore {
	return &fakeReservationStore{reservations: map[uint64]*model.Reservation{}}
}

func (s *fakeReservationStore) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	res.ID = s.nextID
	cp := *res
	s.reservations[res.ID] = &cp
	return nil
}

func (s *fakeReservationStore) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
	return s.Get(ctx, id)
}

func (s *fakeReservationStore) Get(ctx context.Context, id uint64) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	cp := *res
	return &cp, nil
}

func (s *fakeReservationStore) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[id]; !ok {
		return repository.ErrReservationNotFound
	}
	delete(s.reservations, id)
	return nil
}

func (s *fakeReservationStore) ListUpcomingByUser(ctx context.Context, userID uint64) ([]repository.ReservationDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.ReservationDetail
	for _, r := range s.reservations {
		if r.UserID == userID {
			out = append(out, repository.ReservationDetail{
				ID:          r.ID,
				EventID:     r.EventID,
				Seats:       r.Seats,
				IsConfirmed: r.IsConfirmed,
				CreatedAt:   r.CreatedAt,
			})
		}
	}
	return out, nil
}

func (s *fakeReservationStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reservations)
}

type fakePaymentStore struct {
	mu            sync.Mutex
	nextID        uint64
	payments      map[uint64]*model.Payment
	byReservation map[uint64]uint64
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{
		payments:      map[uint64]*model.Payment{},
		byReservation: map[uint64]uint64{},
	}
}

func (s *fakePaymentStore) Create(ctx context.Context, p *model.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byReservation[p.ReservationID]; ok {
		return repository.ErrAlreadyPaid
	}
	s.nextID++
	p.ID = s.nextID
	cp := *p
	s.payments[p.ID] = &cp
	s.byReservation[p.ReservationID] = p.ID
	return nil
}

func (s *fakePaymentStore) GetByID(ctx context.Context, id uint64) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakePaymentStore) transition(id uint64, from, to model.PaymentStatus, txnID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return repository.ErrPaymentNotFound
	}
	if p.Status != from {
		return repository.ErrConflict
	}
	p.Status = to
	if txnID != nil {
		p.TransactionID = txnID
	}
	return nil
}

func (s *fakePaymentStore) MarkCompleted(ctx context.Context, id uint64, transactionID string) error {
	return s.transition(id, model.PaymentPending, model.PaymentCompleted, &transactionID)
}

func (s *fakePaymentStore) MarkFailed(ctx context.Context, id uint64) error {
	return s.transition(id, model.PaymentPending, model.PaymentFailed, nil)
}

func (s *fakePaymentStore) Refund(ctx context.Context, id uint64) error {
	return s.transition(id, model.PaymentCompleted, model.PaymentRefunded, nil)
}

// fakeProcessor is scripted per test.
type fakeProcessor struct {
	outcome func(ctx context.Context, amount decimal.Decimal) (bool, string, error)
	mu      sync.Mutex
	calls   int
}

func (p *fakeProcessor) Process(ctx context.Context, amount decimal.Decimal, method, idempotencyKey string) (payment.Outcome, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	accepted, txnID, err := p.outcome(ctx, amount)
	return payment.Outcome{Accepted: accepted, TransactionID: txnID}, err
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.ReservationConfirmedEvent
}

func (p *fakePublisher) PublishReservationConfirmed(ctx context.Context, event queue.ReservationConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}
