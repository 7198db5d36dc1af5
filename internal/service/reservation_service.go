package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/monitoring"
	"github.com/iliyamo/event-ticket-reservation/internal/queue"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
)

// ReservationService drives the reservation lifecycle.  Reserve and Cancel
// each run as one transaction pairing the seat-counter mutation with the
// reservation row change, so a failure anywhere leaves both untouched:
// no debited-but-unreserved seats, no credited-but-undeleted reservations.
type ReservationService struct {
	logger       *logrus.Logger
	runner       TxRunner
	events       EventStore
	reservations ReservationStore
	publisher    ConfirmationPublisher // optional
}

// NewReservationService constructs the service.  publisher may be nil when
// no broker is configured.
func NewReservationService(logger *logrus.Logger, runner TxRunner, events EventStore, reservations ReservationStore, publisher ConfirmationPublisher) *ReservationService {
	if logger == nil || runner == nil || events == nil || reservations == nil {
		panic("nil dependency passed to NewReservationService")
	}
	return &ReservationService{
		logger:       logger,
		runner:       runner,
		events:       events,
		reservations: reservations,
		publisher:    publisher,
	}
}

// Reserve atomically debits the event's seat counter and persists a
// confirmed reservation.  The event row is locked first, so concurrent
// reserves on the same event are accepted in arrival order, each checked
// against the post-prior-debit balance; events are otherwise independent.
// Fails with ErrInsufficientSeats when the remaining inventory cannot
// cover the request, with nothing persisted.
func (s *ReservationService) Reserve(ctx context.Context, p Principal, eventID uint64, seats uint32) (*model.Reservation, error) {
	if seats == 0 {
		return nil, invalid("seats", "must be a positive integer")
	}
	var (
		res *model.Reservation
		ev  *model.Event
	)
	err := s.runner.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		ev, err = s.events.GetForUpdateTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if !ev.Date.After(time.Now().UTC()) {
			return invalid("event_id", "event has already taken place")
		}
		if err := s.events.DebitSeatsTx(ctx, tx, eventID, seats); err != nil {
			return err
		}
		res = &model.Reservation{
			UserID:      p.UserID,
			EventID:     eventID,
			Seats:       seats,
			IsConfirmed: true,
		}
		return s.reservations.CreateTx(ctx, tx, res)
	})
	if err != nil {
		monitoring.ObserveReservation("reserve", outcomeLabel(err))
		return nil, err
	}
	monitoring.ObserveReservation("reserve", "ok")
	monitoring.AddSeatsReserved(seats)
	s.logger.WithFields(logrus.Fields{
		"reservation_id": res.ID,
		"event_id":       eventID,
		"user_id":        p.UserID,
		"seats":          seats,
	}).Info("reservation confirmed")
	s.publishConfirmed(res, ev)
	return res, nil
}

// publishConfirmed hands the confirmation to the broker in the background.
// The reservation is already committed; a publish failure is logged and
// dropped.
func (s *ReservationService) publishConfirmed(res *model.Reservation, ev *model.Event) {
	if s.publisher == nil {
		return
	}
	event := queue.ReservationConfirmedEvent{
		ReservationID: res.ID,
		UserID:        res.UserID,
		EventID:       ev.ID,
		EventTitle:    ev.Title,
		EventDate:     ev.Date.UTC().Format(time.RFC3339),
		Location:      ev.Location,
		Seats:         res.Seats,
		ConfirmedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.publisher.PublishReservationConfirmed(ctx, event)
	}()
}

// Cancel credits the reservation's seats back to the event and deletes the
// reservation, in one transaction.  Only the owner or an admin may cancel,
// and only while the event is still in the future.
func (s *ReservationService) Cancel(ctx context.Context, p Principal, reservationID uint64) error {
	err := s.runner.WithinTx(ctx, func(tx *sql.Tx) error {
		res, err := s.reservations.GetTx(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		if !canCancelReservation(p, res) {
			return repository.ErrForbidden
		}
		ev, err := s.events.GetForUpdateTx(ctx, tx, res.EventID)
		if err != nil {
			return err
		}
		if !ev.Date.After(time.Now().UTC()) {
			return ErrPastEvent
		}
		if err := s.events.CreditSeatsTx(ctx, tx, res.EventID, res.Seats); err != nil {
			return err
		}
		return s.reservations.DeleteTx(ctx, tx, res.ID)
	})
	monitoring.ObserveReservation("cancel", outcomeLabel(err))
	if err == nil {
		s.logger.WithFields(logrus.Fields{
			"reservation_id": reservationID,
			"user_id":        p.UserID,
		}).Info("reservation cancelled")
	}
	return err
}

// ListUpcoming returns the caller's reservations for future events.
func (s *ReservationService) ListUpcoming(ctx context.Context, p Principal) ([]repository.ReservationDetail, error) {
	return s.reservations.ListUpcomingByUser(ctx, p.UserID)
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isExpectedReject(err):
		return "rejected"
	default:
		return "error"
	}
}

func isExpectedReject(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	for _, sentinel := range []error{
		repository.ErrInsufficientSeats,
		repository.ErrForbidden,
		repository.ErrEventNotFound,
		repository.ErrReservationNotFound,
		repository.ErrBusy,
		ErrPastEvent,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
