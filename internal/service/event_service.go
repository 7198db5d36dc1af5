package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
)

// EventService validates and applies structural changes to events.  A
// capacity change must never strand outstanding reservations, so the
// resize commits through the repository's guarded update while the event
// row is locked.
type EventService struct {
	logger *logrus.Logger
	runner TxRunner
	events EventStore
}

// NewEventService constructs the service.
func NewEventService(logger *logrus.Logger, runner TxRunner, events EventStore) *EventService {
	if logger == nil || runner == nil || events == nil {
		panic("nil dependency passed to NewEventService")
	}
	return &EventService{logger: logger, runner: runner, events: events}
}

// CreateEventParams carries the organizer's input for a new event.
type CreateEventParams struct {
	Title       string
	Description string
	Date        time.Time
	Location    string
	TotalSeats  uint32
	Price       decimal.Decimal
}

// Create publishes a new event with available_seats = total_seats.
func (s *EventService) Create(ctx context.Context, p Principal, params CreateEventParams) (*model.Event, error) {
	if strings.TrimSpace(params.Title) == "" {
		return nil, invalid("title", "must not be empty")
	}
	if params.TotalSeats == 0 {
		return nil, invalid("total_seats", "must be a positive integer")
	}
	if !params.Date.After(time.Now().UTC()) {
		return nil, invalid("date", "must be in the future")
	}
	if params.Price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	ev := &model.Event{
		Title:          strings.TrimSpace(params.Title),
		Description:    params.Description,
		Date:           params.Date.UTC(),
		Location:       params.Location,
		TotalSeats:     params.TotalSeats,
		AvailableSeats: params.TotalSeats,
		Price:          params.Price,
		OrganizerID:    p.UserID,
	}
	if err := s.events.Create(ctx, ev); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"event_id":     ev.ID,
		"organizer_id": p.UserID,
		"total_seats":  ev.TotalSeats,
	}).Info("event created")
	return ev, nil
}

// UpdateEventParams lists the fields an update may change; nil means
// "leave as is".
type UpdateEventParams struct {
	Title       *string
	Description *string
	Date        *time.Time
	Location    *string
	TotalSeats  *uint32
	Price       *decimal.Decimal
}

// Update applies the changes if the caller is the organizer or an admin.
// When total_seats shrinks below the already-reserved count the whole
// update is rejected with ErrCapacityBelowReserved; otherwise the
// available counter moves by the same delta as the total, keeping the
// inventory invariant intact across the resize.  All changes commit
// atomically.
func (s *EventService) Update(ctx context.Context, p Principal, eventID uint64, params UpdateEventParams) (*model.Event, error) {
	var updated *model.Event
	err := s.runner.WithinTx(ctx, func(tx *sql.Tx) error {
		ev, err := s.events.GetForUpdateTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if !canManageEvent(p, ev) {
			return repository.ErrForbidden
		}
		if params.Title != nil {
			if strings.TrimSpace(*params.Title) == "" {
				return invalid("title", "must not be empty")
			}
			ev.Title = strings.TrimSpace(*params.Title)
		}
		if params.Description != nil {
			ev.Description = *params.Description
		}
		if params.Date != nil {
			ev.Date = params.Date.UTC()
		}
		if params.Location != nil {
			ev.Location = *params.Location
		}
		if params.Price != nil {
			if params.Price.IsNegative() {
				return ErrInvalidPrice
			}
			ev.Price = *params.Price
		}
		newTotal := ev.TotalSeats
		if params.TotalSeats != nil {
			if *params.TotalSeats == 0 {
				return invalid("total_seats", "must be a positive integer")
			}
			newTotal = *params.TotalSeats
		}
		if err := s.events.UpdateTx(ctx, tx, ev, newTotal); err != nil {
			return err
		}
		reserved := ev.TotalSeats - ev.AvailableSeats
		ev.TotalSeats = newTotal
		ev.AvailableSeats = newTotal - reserved
		updated = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes an event if the caller is the organizer or an admin.
// Reservations and payments cascade.
func (s *EventService) Delete(ctx context.Context, p Principal, eventID uint64) error {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if !canManageEvent(p, ev) {
		return repository.ErrForbidden
	}
	return s.events.Delete(ctx, eventID)
}

// Get returns a single event.
func (s *EventService) Get(ctx context.Context, eventID uint64) (*model.Event, error) {
	return s.events.GetByID(ctx, eventID)
}

// List returns all events.
func (s *EventService) List(ctx context.Context) ([]model.Event, error) {
	return s.events.List(ctx)
}

// Search returns events matching the filters plus a total count.
func (s *EventService) Search(ctx context.Context, q repository.EventSearchQuery) ([]model.Event, int64, error) {
	return s.events.Search(ctx, q)
}
