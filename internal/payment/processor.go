// Package payment defines the external payment-processor boundary.  The
// processor is a slow, failable collaborator: calls are bounded by the
// caller's context and carry an idempotency key because the remote side
// gives no idempotency guarantee on its own; a blind retry without the
// key could double-charge.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticket-reservation/internal/utils"
)

// Outcome is the processor's answer to a charge attempt.  Accepted=false
// with a nil error is a clean refusal (card declined and the like);
// transport errors and timeouts come back as the error instead.
type Outcome struct {
	Accepted      bool
	TransactionID string
}

// Processor is the capability the payment finalizer consumes.  Process
// must be called without holding any database locks.
type Processor interface {
	Process(ctx context.Context, amount decimal.Decimal, method, idempotencyKey string) (Outcome, error)
}

// SimulatedProcessor accepts every charge and mints a transaction id.  It
// stands in for a real gateway in development and tests; the interface is
// where a Stripe/midtrans-style adapter would plug in.
type SimulatedProcessor struct {
	logger *logrus.Logger
}

// NewSimulatedProcessor returns a processor that always accepts.
func NewSimulatedProcessor(logger *logrus.Logger) *SimulatedProcessor {
	return &SimulatedProcessor{logger: logger}
}

// Process implements Processor.  It respects context cancellation so
// timeout handling upstream can be exercised.
func (p *SimulatedProcessor) Process(ctx context.Context, amount decimal.Decimal, method, idempotencyKey string) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	txnID, err := utils.RandomHex(16)
	if err != nil {
		return Outcome{}, err
	}
	p.logger.WithFields(logrus.Fields{
		"amount":          amount.StringFixed(2),
		"method":          method,
		"idempotency_key": idempotencyKey,
		"transaction_id":  txnID,
	}).Info("simulated processor accepted charge")
	return Outcome{Accepted: true, TransactionID: txnID}, nil
}
