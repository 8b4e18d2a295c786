package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
)

// Kind categorizes an in-app notification.
type Kind string

const (
	KindBookingStatus       Kind = "booking_status"
	KindMaintenanceReminder Kind = "maintenance_reminder"
	KindRecall              Kind = "recall"
	KindChatMessage         Kind = "chat_message"
)

// IsValid returns true if k is a known kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindBookingStatus, KindMaintenanceReminder, KindRecall, KindChatMessage:
		return true
	}
	return false
}

// Notification is a persisted in-app message addressed to one user.
type Notification struct {
	id        uuid.UUID
	userID    string
	kind      Kind
	title     string
	body      string
	data      map[string]string
	readAt    *time.Time
	createdAt time.Time
}

// New creates an unread notification.
func New(userID string, kind Kind, title, body string, data map[string]string) (*Notification, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user ID is required")
	}
	if !kind.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid notification kind: %s", kind))
	}
	if title == "" {
		return nil, domain.NewValidationError("title is required")
	}
	if data == nil {
		data = map[string]string{}
	}
	return &Notification{
		id:        uuid.New(),
		userID:    userID,
		kind:      kind,
		title:     title,
		body:      body,
		data:      data,
		createdAt: time.Now().UTC(),
	}, nil
}

// Reconstruct rebuilds a Notification from persistence.
func Reconstruct(id uuid.UUID, userID string, kind Kind, title, body string, data map[string]string, readAt *time.Time, createdAt time.Time) *Notification {
	return &Notification{
		id:        id,
		userID:    userID,
		kind:      kind,
		title:     title,
		body:      body,
		data:      data,
		readAt:    readAt,
		createdAt: createdAt,
	}
}

func (n *Notification) ID() uuid.UUID { return n.id }
func (n *Notification) UserID() string { return n.userID }
func (n *Notification) Kind() Kind { return n.kind }
func (n *Notification) Title() string { return n.title }
func (n *Notification) Body() string { return n.body }
func (n *Notification) Data() map[string]string { return n.data }
func (n *Notification) ReadAt() *time.Time { return n.readAt }
func (n *Notification) CreatedAt() time.Time { return n.createdAt }
func (n *Notification) IsRead() bool { return n.readAt != nil }

// MarkRead stamps the read time once.
func (n *Notification) MarkRead(at time.Time) {
	if n.readAt != nil {
		return
	}
	at = at.UTC()
	n.readAt = &at
}

// Repository defines persistence operations for notifications.
type Repository interface {
	Save(ctx context.Context, n *Notification) error
	FindByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	FindByUserID(ctx context.Context, userID string, unreadOnly bool, page, limit int) ([]*Notification, int64, error)
	MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error
	// ExistsWithData reports whether the user has a notification of kind whose
	// data maps key to value.
	ExistsWithData(ctx context.Context, userID string, kind Kind, key, value string) (bool, error)
}

// Contact is how a user can be reached outside the app.
type Contact struct {
	UserID    string    `json:"user_id"`
	Phone     string    `json:"phone"`
	SMSOptIn  bool      `json:"sms_opt_in"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewContact validates an E.164 phone number and builds a Contact.
func NewContact(userID, phone string, smsOptIn bool) (*Contact, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user ID is required")
	}
	if !isE164(phone) {
		return nil, domain.NewValidationError("phone must be in E.164 format")
	}
	return &Contact{UserID: userID, Phone: phone, SMSOptIn: smsOptIn, UpdatedAt: time.Now().UTC()}, nil
}

func isE164(phone string) bool {
	if len(phone) < 8 || len(phone) > 16 || phone[0] != '+' || phone[1] == '0' {
		return false
	}
	for _, r := range phone[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ContactRepository stores user contact details.
type ContactRepository interface {
	UpsertContact(ctx context.Context, c *Contact) error
	FindContact(ctx context.Context, userID string) (*Contact, error)
}
