package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
)

type paymentFixture struct {
	svc          *PaymentService
	events       *fakeEventStore
	reservations *fakeReservationStore
	payments     *fakePaymentStore
	processor    *fakeProcessor
}

func newPaymentFixture(t *testing.T, proc *fakeProcessor) *paymentFixture {
	t.Helper()
	if proc == nil {
		proc = &fakeProcessor{outcome: func(ctx context.Context, amount decimal.Decimal) (bool, string, error) {
			return true, "txn-1", nil
		}}
	}
	f := &paymentFixture{
		events:       newFakeEventStore(),
		reservations: newFakeReservationStore(),
		payments:     newFakePaymentStore(),
		processor:    proc,
	}
	f.svc = NewPaymentService(testLogger(), f.reservations, f.events, f.payments, proc, 100*time.Millisecond)
	return f
}

// reserve seeds an event priced 25.00 and a 4-seat reservation for user 7.
func (f *paymentFixture) reserve(t *testing.T) *model.Reservation {
	t.Helper()
	ev := seedEvent(t, f.events, 10)
	res := &model.Reservation{UserID: 7, EventID: ev.ID, Seats: 4, IsConfirmed: true}
	require.NoError(t, f.reservations.CreateTx(context.Background(), nil, res))
	return res
}

func TestPayComputesAmountAndCompletes(t *testing.T) {
	f := newPaymentFixture(t, nil)
	res := f.reserve(t)

	pay, err := f.svc.Pay(context.Background(), Principal{UserID: 7}, res.ID, "card")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, pay.Status)
	// 4 seats at 25.00 each.
	assert.True(t, pay.Amount.Equal(decimal.NewFromInt(100)), "amount = %s", pay.Amount)
	require.NotNil(t, pay.TransactionID)
	assert.Equal(t, "txn-1", *pay.TransactionID)
}

func TestPaySecondAttemptRejected(t *testing.T) {
	f := newPaymentFixture(t, nil)
	res := f.reserve(t)

	_, err := f.svc.Pay(context.Background(), Principal{UserID: 7}, res.ID, "card")
	require.NoError(t, err)

	_, err = f.svc.Pay(context.Background(), Principal{UserID: 7}, res.ID, "card")
	require.ErrorIs(t, err, repository.ErrAlreadyPaid)
	assert.Equal(t, 1, f.processor.calls)
}

func TestPayUnknownReservation(t *testing.T) {
	f := newPaymentFixture(t, nil)
	_, err := f.svc.Pay(context.Background(), Principal{UserID: 7}, 999, "card")
	require.ErrorIs(t, err, repository.ErrReservationNotFound)
	assert.Equal(t, 0, f.processor.calls)
}

func TestPaySomeoneElsesReservation(t *testing.T) {
	f := newPaymentFixture(t, nil)
	res := f.reserve(t)

	_, err := f.svc.Pay(context.Background(), Principal{UserID: 8}, res.ID, "card")
	require.ErrorIs(t, err, repository.ErrForbidden)
	assert.Equal(t, 0, f.processor.calls)
}

func TestPayEmptyMethod(t *testing.T) {
	f := newPaymentFixture(t, nil)
	res := f.reserve(t)

	_, err := f.svc.Pay(context.Background(), Principal{UserID: 7}, res.ID, "")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "payment_method", ve.Field)
}

func TestPayDeclinedMarksFailed(t *testing.T) {
	proc := &fakeProcessor{outcome: func(ctx context.Context, amount decimal.Decimal) (bool, string, error) {
		return false, "", nil
	}}
	f := newPaymentFixture(t, proc)
	res := f.reserve(t)

	pay, err := f.svc.Pay(context.Background(), Principal{UserID: 7}, res.ID, "card")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentFailed, pay.Status)
	assert.Nil(t, pay.TransactionID)
}

func TestPayProcessorErrorMarksFailed(t *testing.T) {
	proc := &fakeProcessor{outcome: func(ctx context.Context, amount decimal.Decimal) (bool, string, error) {
		return false, "", errors.New("connection reset")
	}}
	f := newPaymentFixture(t, proc)
	res := f.reserve(t)

	pay, err := f.svc.Pay(context.Background(), Principal{UserID: 7}, res.ID, "card")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentFailed, pay.Status)
}

// A processor that never answers leaves the payment pending; it must not
// be reported completed or failed.
func TestPayTimeoutLeavesPending(t *testing.T) {
	proc := &fakeProcessor{outcome: func(ctx context.Context, amount decimal.Decimal) (bool, string, error) {
		<-ctx.Done()
		return false, "", ctx.Err()
	}}
	f := newPaymentFixture(t, proc)
	res := f.reserve(t)

	pay, err := f.svc.Pay(context.Background(), Principal{UserID: 7}, res.ID, "card")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, pay.Status)

	stored, err := f.payments.GetByID(context.Background(), pay.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, stored.Status)
}

// A client disconnect cancels the request context mid-call.  The charge
// may still have landed remotely, so the payment must stay pending, not
// be marked failed.
func TestPayCancellationLeavesPending(t *testing.T) {
	proc := &fakeProcessor{outcome: func(ctx context.Context, amount decimal.Decimal) (bool, string, error) {
		return false, "", context.Canceled
	}}
	f := newPaymentFixture(t, proc)
	res := f.reserve(t)

	pay, err := f.svc.Pay(context.Background(), Principal{UserID: 7}, res.ID, "card")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, pay.Status)

	stored, err := f.payments.GetByID(context.Background(), pay.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, stored.Status)
}

func TestGetPaymentVisibility(t *testing.T) {
	f := newPaymentFixture(t, nil)
	res := f.reserve(t)

	pay, err := f.svc.Pay(context.Background(), Principal{UserID: 7}, res.ID, "card")
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), Principal{UserID: 7}, pay.ID)
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), Principal{UserID: 8}, pay.ID)
	require.ErrorIs(t, err, repository.ErrForbidden)

	_, err = f.svc.Get(context.Background(), Principal{UserID: 99, Admin: true}, pay.ID)
	require.NoError(t, err)
}

func TestRefund(t *testing.T) {
	f := newPaymentFixture(t, nil)
	res := f.reserve(t)

	pay, err := f.svc.Pay(context.Background(), Principal{UserID: 7}, res.ID, "card")
	require.NoError(t, err)

	// Owners cannot refund themselves.
	_, err = f.svc.Refund(context.Background(), Principal{UserID: 7}, pay.ID)
	require.ErrorIs(t, err, repository.ErrForbidden)

	refunded, err := f.svc.Refund(context.Background(), Principal{UserID: 99, Admin: true}, pay.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRefunded, refunded.Status)

	// Refunded is terminal.
	_, err = f.svc.Refund(context.Background(), Principal{UserID: 99, Admin: true}, pay.ID)
	require.ErrorIs(t, err, repository.ErrConflict)
}

func TestRefundFailedPayment(t *testing.T) {
	proc := &fakeProcessor{outcome: func(ctx context.Context, amount decimal.Decimal) (bool, string, error) {
		return false, "", nil
	}}
	f := newPaymentFixture(t, proc)
	res := f.reserve(t)

	pay, err := f.svc.Pay(context.Background(), Principal{UserID: 7}, res.ID, "card")
	require.NoError(t, err)
	require.Equal(t, model.PaymentFailed, pay.Status)

	_, err = f.svc.Refund(context.Background(), Principal{UserID: 99, Admin: true}, pay.ID)
	require.ErrorIs(t, err, repository.ErrConflict)
}
