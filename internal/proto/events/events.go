// Package events holds the Kafka topic names, CloudEvent types and payloads
// exchanged with other services.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	TopicBookingEvents = "booking.events"
	TopicPaymentEvents = "payment.events"
)

// Event types.
const (
	BookingStatusChanged = "booking.status_changed"
	PaymentCaptured      = "payment.captured"
)

// BookingStatusChangedEvent is published after every successful booking transition.
type BookingStatusChangedEvent struct {
	BookingID    uuid.UUID  `json:"booking_id"`
	CustomerID   string     `json:"customer_id"`
	TechnicianID *string    `json:"technician_id,omitempty"`
	JobID        *uuid.UUID `json:"job_id,omitempty"`
	FromStatus   string     `json:"from_status"`
	ToStatus     string     `json:"to_status"`
	ChangedBy    string     `json:"changed_by"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

// PaymentCapturedEvent is consumed from the payment service once a booking's charge settles.
type PaymentCapturedEvent struct {
	PaymentID   string    `json:"payment_id"`
	BookingID   uuid.UUID `json:"booking_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	CapturedAt  time.Time `json:"captured_at"`
}
