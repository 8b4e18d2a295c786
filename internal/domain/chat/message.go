package chat

import (
	"context"
	"strings"
	"time"

	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
)

// MaxBodyLength bounds a single chat message.
const MaxBodyLength = 2000

// Message is one entry in a booking's chat thread.
type Message struct {
	id        uuid.UUID
	bookingID uuid.UUID
	senderID  string
	body      string
	createdAt time.Time
}

// NewMessage creates a chat message.
func NewMessage(bookingID uuid.UUID, senderID, body string) (*Message, error) {
	body = strings.TrimSpace(body)
	if bookingID == uuid.Nil {
		return nil, domain.NewValidationError("booking ID is required")
	}
	if senderID == "" {
		return nil, domain.NewValidationError("sender ID is required")
	}
	if body == "" {
		return nil, domain.NewValidationError("message body is required")
	}
	if len(body) > MaxBodyLength {
		return nil, domain.NewValidationError("message body is too long")
	}
	return &Message{
		id:        uuid.New(),
		bookingID: bookingID,
		senderID:  senderID,
		body:      body,
		createdAt: time.Now().UTC(),
	}, nil
}

// Reconstruct rebuilds a Message from persistence.
func Reconstruct(id, bookingID uuid.UUID, senderID, body string, createdAt time.Time) *Message {
	return &Message{id: id, bookingID: bookingID, senderID: senderID, body: body, createdAt: createdAt}
}

func (m *Message) ID() uuid.UUID { return m.id }
func (m *Message) BookingID() uuid.UUID { return m.bookingID }
func (m *Message) SenderID() string { return m.senderID }
func (m *Message) Body() string { return m.body }
func (m *Message) CreatedAt() time.Time { return m.createdAt }

// Repository defines persistence operations for chat messages.
type Repository interface {
	Save(ctx context.Context, m *Message) error
	// FindByBookingID returns a thread oldest first.
	FindByBookingID(ctx context.Context, bookingID uuid.UUID, page, limit int) ([]*Message, int64, error)
}
