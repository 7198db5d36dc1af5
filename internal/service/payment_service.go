package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/monitoring"
	"github.com/iliyamo/event-ticket-reservation/internal/payment"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
	"github.com/iliyamo/event-ticket-reservation/internal/utils"
)

// PaymentService finalizes payments for confirmed reservations.  It never
// touches seat inventory: the reservation already holds its seats whatever
// the payment does.  The external processor call happens after the pending
// record is committed and outside any database transaction, bounded by a
// timeout and carrying an idempotency key.
type PaymentService struct {
	logger           *logrus.Logger
	reservations     ReservationStore
	events           EventStore
	payments         PaymentStore
	processor        payment.Processor
	processorTimeout time.Duration
}

// NewPaymentService constructs the service.  processorTimeout bounds the
// boundary call; <= 0 falls back to 10 seconds.
func NewPaymentService(logger *logrus.Logger, reservations ReservationStore, events EventStore, payments PaymentStore, processor payment.Processor, processorTimeout time.Duration) *PaymentService {
	if logger == nil || reservations == nil || events == nil || payments == nil || processor == nil {
		panic("nil dependency passed to NewPaymentService")
	}
	if processorTimeout <= 0 {
		processorTimeout = 10 * time.Second
	}
	return &PaymentService{
		logger:           logger,
		reservations:     reservations,
		events:           events,
		payments:         payments,
		processor:        processor,
		processorTimeout: processorTimeout,
	}
}

// Pay creates the one-to-one payment for a reservation owned by the caller
// and drives it through the processor.  The returned payment's status
// tells the outcome: completed, failed, or still pending when the
// processor did not answer in time.  A pending payment is reconciled
// asynchronously and is never silently completed.  Fails with
// ErrAlreadyPaid when a payment already exists.
func (s *PaymentService) Pay(ctx context.Context, p Principal, reservationID uint64, method string) (*model.Payment, error) {
	if method == "" {
		return nil, invalid("payment_method", "must not be empty")
	}
	res, err := s.reservations.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.UserID != p.UserID {
		return nil, repository.ErrForbidden
	}
	ev, err := s.events.GetByID(ctx, res.EventID)
	if err != nil {
		return nil, err
	}

	pay := &model.Payment{
		ReservationID: res.ID,
		Amount:        ev.Price.Mul(decimal.NewFromInt(int64(res.Seats))),
		Status:        model.PaymentPending,
		Method:        method,
	}
	if err := s.payments.Create(ctx, pay); err != nil {
		return nil, err
	}

	// The processor is not idempotent on its own; the key makes a retry of
	// this exact charge safe on the remote side.
	key, err := utils.RandomHex(16)
	if err != nil {
		return nil, err
	}
	procCtx, cancel := context.WithTimeout(ctx, s.processorTimeout)
	defer cancel()
	outcome, procErr := s.processor.Process(procCtx, pay.Amount, method, key)

	switch {
	case procErr != nil && (errors.Is(procErr, context.DeadlineExceeded) || errors.Is(procErr, context.Canceled)):
		// Timed out or the caller went away mid-call: the processor may
		// have accepted the charge, so leave the payment pending for
		// reconciliation rather than guessing a terminal status.
		s.logger.WithFields(logrus.Fields{
			"payment_id":      pay.ID,
			"idempotency_key": key,
		}).Warn("payment processor outcome unknown, payment left pending")
		monitoring.ObservePayment(string(model.PaymentPending))
		return pay, nil
	case procErr != nil:
		if err := s.payments.MarkFailed(ctx, pay.ID); err != nil {
			return nil, err
		}
		pay.Status = model.PaymentFailed
		s.logger.WithError(procErr).WithField("payment_id", pay.ID).Warn("payment processor call failed")
	case outcome.Accepted:
		if err := s.payments.MarkCompleted(ctx, pay.ID, outcome.TransactionID); err != nil {
			return nil, err
		}
		pay.Status = model.PaymentCompleted
		pay.TransactionID = &outcome.TransactionID
	default:
		if err := s.payments.MarkFailed(ctx, pay.ID); err != nil {
			return nil, err
		}
		pay.Status = model.PaymentFailed
	}
	monitoring.ObservePayment(string(pay.Status))
	return pay, nil
}

// Get returns a payment visible to its reservation's owner or an admin.
func (s *PaymentService) Get(ctx context.Context, p Principal, paymentID uint64) (*model.Payment, error) {
	pay, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	res, err := s.reservations.Get(ctx, pay.ReservationID)
	if err != nil {
		return nil, err
	}
	if !p.Admin && res.UserID != p.UserID {
		return nil, repository.ErrForbidden
	}
	return pay, nil
}

// Refund moves a completed payment to refunded.  Admin only.
func (s *PaymentService) Refund(ctx context.Context, p Principal, paymentID uint64) (*model.Payment, error) {
	if !p.Admin {
		return nil, repository.ErrForbidden
	}
	if err := s.payments.Refund(ctx, paymentID); err != nil {
		return nil, err
	}
	monitoring.ObservePayment(string(model.PaymentRefunded))
	return s.payments.GetByID(ctx, paymentID)
}
