package memory

import (
	"context"
	"time"

	"github.com/fixmate/service-marketplace/internal/domain/chat"
	"github.com/fixmate/service-marketplace/internal/domain/notification"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
)

// NotificationRepository is the in-memory notification.Repository and
// notification.ContactRepository.
type NotificationRepository struct {
	s *Store
}

// NewNotificationRepository creates a NotificationRepository over s.
func NewNotificationRepository(s *Store) *NotificationRepository {
	return &NotificationRepository{s: s}
}

func (r *NotificationRepository) Save(_ context.Context, n *notification.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.notifications[n.ID()] = cloneNotification(n)
	return nil
}

func (r *NotificationRepository) FindByID(_ context.Context, id uuid.UUID) (*notification.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n, ok := r.s.notifications[id]
	if !ok {
		return nil, domain.NewNotFoundError("Notification", id.String())
	}
	return cloneNotification(n), nil
}

func (r *NotificationRepository) FindByUserID(_ context.Context, userID string, unreadOnly bool, page, limit int) ([]*notification.Notification, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*notification.Notification{}
	for _, n := range r.s.notifications {
		if n.UserID() == userID && (!unreadOnly || !n.IsRead()) {
			out = append(out, cloneNotification(n))
		}
	}
	newestFirst(out,
		func(n *notification.Notification) time.Time { return n.CreatedAt() },
		func(n *notification.Notification) uuid.UUID { return n.ID() },
	)
	return paginate(out, page, limit), int64(len(out)), nil
}

func (r *NotificationRepository) MarkRead(_ context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok {
		return domain.NewNotFoundError("Notification", id.String())
	}
	n.MarkRead(at)
	return nil
}

func (r *NotificationRepository) ExistsWithData(_ context.Context, userID string, kind notification.Kind, key, value string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, n := range r.s.notifications {
		if n.UserID() != userID || n.Kind() != kind {
			continue
		}
		if v, ok := n.Data()[key]; ok && v == value {
			return true, nil
		}
	}
	return false, nil
}

func (r *NotificationRepository) UpsertContact(_ context.Context, c *notification.Contact) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.contacts[c.UserID] = *c
	return nil
}

func (r *NotificationRepository) FindContact(_ context.Context, userID string) (*notification.Contact, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.contacts[userID]
	if !ok {
		return nil, domain.NewNotFoundError("Contact", userID)
	}
	return &c, nil
}

// MessageRepository is the in-memory chat.Repository.
type MessageRepository struct {
	s *Store
}

// NewMessageRepository creates a MessageRepository over s.
func NewMessageRepository(s *Store) *MessageRepository {
	return &MessageRepository{s: s}
}

func (r *MessageRepository) Save(_ context.Context, m *chat.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.messages = append(r.s.messages, m)
	return nil
}

// FindByBookingID returns the thread in insertion order.
func (r *MessageRepository) FindByBookingID(_ context.Context, bookingID uuid.UUID, page, limit int) ([]*chat.Message, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*chat.Message{}
	for _, m := range r.s.messages {
		if m.BookingID() == bookingID {
			out = append(out, m)
		}
	}
	return paginate(out, page, limit), int64(len(out)), nil
}
