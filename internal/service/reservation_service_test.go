package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func seedEvent(t *testing.T, events *fakeEventStore, total uint32) *model.Event {
	t.Helper()
	ev := &model.Event{
		Title:          "Concert",
		Date:           time.Now().UTC().Add(48 * time.Hour),
		Location:       "Main Hall",
		TotalSeats:     total,
		AvailableSeats: total,
		Price:          decimal.NewFromInt(25),
		OrganizerID:    1,
	}
	require.NoError(t, events.Create(context.Background(), ev))
	return ev
}

func newReservationFixture(t *testing.T) (*ReservationService, *fakeEventStore, *fakeReservationStore) {
	t.Helper()
	events := newFakeEventStore()
	reservations := newFakeReservationStore()
	svc := NewReservationService(testLogger(), fakeTxRunner{}, events, reservations, nil)
	return svc, events, reservations
}

func TestReserveDebitsSeats(t *testing.T) {
	svc, events, _ := newReservationFixture(t)
	ev := seedEvent(t, events, 10)

	res, err := svc.Reserve(context.Background(), Principal{UserID: 7}, ev.ID, 4)
	require.NoError(t, err)
	assert.True(t, res.IsConfirmed)
	assert.Equal(t, uint32(4), res.Seats)
	assert.Equal(t, uint32(6), events.available(ev.ID))
}

func TestReserveRejectsWhenNotEnoughSeats(t *testing.T) {
	svc, events, reservations := newReservationFixture(t)
	ev := seedEvent(t, events, 10)

	_, err := svc.Reserve(context.Background(), Principal{UserID: 7}, ev.ID, 6)
	require.NoError(t, err)

	// Only 4 seats left; a request for 5 must change nothing.
	_, err = svc.Reserve(context.Background(), Principal{UserID: 8}, ev.ID, 5)
	require.ErrorIs(t, err, repository.ErrInsufficientSeats)
	assert.Equal(t, uint32(4), events.available(ev.ID))
	assert.Equal(t, 1, reservations.count())
}

func TestReserveZeroSeats(t *testing.T) {
	svc, events, reservations := newReservationFixture(t)
	ev := seedEvent(t, events, 10)

	_, err := svc.Reserve(context.Background(), Principal{UserID: 7}, ev.ID, 0)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "seats", ve.Field)
	assert.Equal(t, uint32(10), events.available(ev.ID))
	assert.Equal(t, 0, reservations.count())
}

func TestReservePastEvent(t *testing.T) {
	svc, events, _ := newReservationFixture(t)
	ev := seedEvent(t, events, 10)
	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, events.UpdateTx(context.Background(), nil, &model.Event{
		ID: ev.ID, Title: ev.Title, Date: past, Location: ev.Location, Price: ev.Price,
	}, ev.TotalSeats))

	_, rerr := svc.Reserve(context.Background(), Principal{UserID: 7}, ev.ID, 1)
	var ve *ValidationError
	require.ErrorAs(t, rerr, &ve)
	assert.Equal(t, uint32(10), events.available(ev.ID))
}

func TestReserveUnknownEvent(t *testing.T) {
	svc, _, _ := newReservationFixture(t)
	_, err := svc.Reserve(context.Background(), Principal{UserID: 7}, 999, 2)
	require.ErrorIs(t, err, repository.ErrEventNotFound)
}

func TestCancelCreditsSeatsBack(t *testing.T) {
	svc, events, reservations := newReservationFixture(t)
	ev := seedEvent(t, events, 10)

	res, err := svc.Reserve(context.Background(), Principal{UserID: 7}, ev.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), events.available(ev.ID))

	require.NoError(t, svc.Cancel(context.Background(), Principal{UserID: 7}, res.ID))
	assert.Equal(t, uint32(10), events.available(ev.ID))
	assert.Equal(t, 0, reservations.count())
}

func TestCancelForbiddenForStranger(t *testing.T) {
	svc, events, reservations := newReservationFixture(t)
	ev := seedEvent(t, events, 10)

	res, err := svc.Reserve(context.Background(), Principal{UserID: 7}, ev.ID, 3)
	require.NoError(t, err)

	err = svc.Cancel(context.Background(), Principal{UserID: 8}, res.ID)
	require.ErrorIs(t, err, repository.ErrForbidden)
	assert.Equal(t, uint32(7), events.available(ev.ID))
	assert.Equal(t, 1, reservations.count())
}

func TestCancelAllowedForAdmin(t *testing.T) {
	svc, events, _ := newReservationFixture(t)
	ev := seedEvent(t, events, 10)

	res, err := svc.Reserve(context.Background(), Principal{UserID: 7}, ev.ID, 3)
	require.NoError(t, err)

	err = svc.Cancel(context.Background(), Principal{UserID: 99, Admin: true}, res.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), events.available(ev.ID))
}

func TestCancelAfterEventStarted(t *testing.T) {
	svc, events, reservations := newReservationFixture(t)
	ev := seedEvent(t, events, 10)

	res, err := svc.Reserve(context.Background(), Principal{UserID: 7}, ev.ID, 3)
	require.NoError(t, err)

	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, events.UpdateTx(context.Background(), nil, &model.Event{
		ID: ev.ID, Title: ev.Title, Date: past, Location: ev.Location, Price: ev.Price,
	}, ev.TotalSeats))

	err = svc.Cancel(context.Background(), Principal{UserID: 7}, res.ID)
	require.ErrorIs(t, err, ErrPastEvent)
	assert.Equal(t, uint32(7), events.available(ev.ID))
	assert.Equal(t, 1, reservations.count())
}

func TestCancelUnknownReservation(t *testing.T) {
	svc, _, _ := newReservationFixture(t)
	err := svc.Cancel(context.Background(), Principal{UserID: 7}, 12345)
	require.ErrorIs(t, err, repository.ErrReservationNotFound)
}

// Cancel-then-reserve releases seats for other customers: 10 total,
// 6 reserved, a 5-seat request fails, the 6 are cancelled, and the same
// 5-seat request then succeeds.
func TestCancelMakesRoom(t *testing.T) {
	svc, events, _ := newReservationFixture(t)
	ev := seedEvent(t, events, 10)

	first, err := svc.Reserve(context.Background(), Principal{UserID: 1}, ev.ID, 6)
	require.NoError(t, err)

	_, err = svc.Reserve(context.Background(), Principal{UserID: 2}, ev.ID, 5)
	require.ErrorIs(t, err, repository.ErrInsufficientSeats)

	require.NoError(t, svc.Cancel(context.Background(), Principal{UserID: 1}, first.ID))

	_, err = svc.Reserve(context.Background(), Principal{UserID: 2}, ev.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), events.available(ev.ID))
}

// Concurrent reserves must never oversell.  Whatever subset of the 2-seat
// requests wins, the counter equals total minus the sum of persisted
// reservations and never goes negative.
func TestConcurrentReservesNeverOversell(t *testing.T) {
	svc, events, reservations := newReservationFixture(t)
	ev := seedEvent(t, events, 10)

	const workers = 20
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Reserve(context.Background(), Principal{UserID: uint64(i + 1)}, ev.ID, 2)
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			require.ErrorIs(t, err, repository.ErrInsufficientSeats)
		}
	}
	assert.Equal(t, 5, ok)
	assert.Equal(t, uint32(0), events.available(ev.ID))
	assert.Equal(t, 5, reservations.count())
}

func TestReservePublishesConfirmation(t *testing.T) {
	events := newFakeEventStore()
	reservations := newFakeReservationStore()
	pub := &fakePublisher{}
	svc := NewReservationService(testLogger(), fakeTxRunner{}, events, reservations, pub)
	ev := seedEvent(t, events, 10)

	res, err := svc.Reserve(context.Background(), Principal{UserID: 7}, ev.ID, 2)
	require.NoError(t, err)

	// The publish happens on a goroutine after commit.
	require.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.events) == 1
	}, time.Second, 10*time.Millisecond)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, res.ID, pub.events[0].ReservationID)
	assert.Equal(t, ev.ID, pub.events[0].EventID)
	assert.Equal(t, uint32(2), pub.events[0].Seats)
}

func TestListUpcoming(t *testing.T) {
	svc, events, _ := newReservationFixture(t)
	ev := seedEvent(t, events, 10)

	_, err := svc.Reserve(context.Background(), Principal{UserID: 7}, ev.ID, 2)
	require.NoError(t, err)
	_, err = svc.Reserve(context.Background(), Principal{UserID: 8}, ev.ID, 3)
	require.NoError(t, err)

	mine, err := svc.ListUpcoming(context.Background(), Principal{UserID: 7})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, uint32(2), mine[0].Seats)
}
