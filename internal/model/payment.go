package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus enumerates the payment state machine.  A payment starts
// pending, moves to completed or failed after the processor answers, and a
// completed payment may later be refunded.  Completed-without-refund,
// failed and refunded are terminal.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Payment is the one-to-one payment record for a reservation.  Amount is
// event price times reserved seats, fixed at creation.  TransactionID is
// set only when the external processor accepted the charge.
type Payment struct {
	ID            uint64          `json:"id"`
	ReservationID uint64          `json:"reservation_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   time.Time       `json:"payment_date"`
	Status        PaymentStatus   `json:"status"`
	Method        string          `json:"payment_method"`
	TransactionID *string         `json:"transaction_id,omitempty"`
}
