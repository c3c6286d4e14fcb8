package domain

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// IsTerminal reports whether no further verification may change the status.
func (s PaymentStatus) IsTerminal() bool {
	return s != PaymentStatusPending
}

// Payment records one attempt to pay a job's posting fee.
// Amount is in minor currency units (paise for INR).
type Payment struct {
	ID uuid.UUID

	JobID      uuid.UUID
	EmployerID string

	GatewayOrderID   string
	GatewayPaymentID string

	Amount   int64
	Currency string
	Status   PaymentStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaymentOrder is returned to the client so it can open the gateway checkout.
type PaymentOrder struct {
	OrderID   string
	Amount    int64
	Currency  string
	KeyID     string
	PaymentID uuid.UUID
}

// PaymentConfirmation is what the gateway checkout hands back to the client
// after a payment attempt.
type PaymentConfirmation struct {
	PaymentID        uuid.UUID
	GatewayPaymentID string
	GatewayOrderID   string
	Signature        string
}
