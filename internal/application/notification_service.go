package application

import (
	"context"
	"fmt"
	"time"

	"github.com/fixmate/service-marketplace/internal/domain/notification"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationDTO is the API representation of a notification.
type NotificationDTO struct {
	ID        uuid.UUID         `json:"id"`
	Kind      string            `json:"kind"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data"`
	ReadAt    *time.Time        `json:"read_at,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// DedupeDataKey is the data entry NotifyOnce matches on.
const DedupeDataKey = "dedupe_key"

// UpdateContactRequest sets how a user is reached by SMS.
type UpdateContactRequest struct {
	Phone    string `json:"phone" binding:"required"`
	SMSOptIn bool   `json:"sms_opt_in"`
}

// NotificationService stores in-app notifications and relays reminders by SMS.
type NotificationService struct {
	repo     notification.Repository
	contacts notification.ContactRepository
	sms      SMSSender
	clock    Clock
	logger   *zap.Logger
}

// NewNotificationService creates a NotificationService. sms may be nil.
func NewNotificationService(
	repo notification.Repository,
	contacts notification.ContactRepository,
	sms SMSSender,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{repo: repo, contacts: contacts, sms: sms, clock: systemClock, logger: logger}
}

// Notify persists an in-app notification. Reminder and recall notifications are
// also sent by SMS to users who opted in; an SMS failure is logged only.
func (s *NotificationService) Notify(ctx context.Context, userID string, kind notification.Kind, title, body string, data map[string]string) error {
	n, err := notification.New(userID, kind, title, body, data)
	if err != nil {
		return err
	}
	if err := s.repo.Save(ctx, n); err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}

	if s.sms == nil || (kind != notification.KindMaintenanceReminder && kind != notification.KindRecall) {
		return nil
	}
	contact, err := s.contacts.FindContact(ctx, userID)
	if err != nil {
		if !domain.IsNotFound(err) {
			s.logger.Warn("failed to load contact", zap.String("user_id", userID), zap.Error(err))
		}
		return nil
	}
	if !contact.SMSOptIn {
		return nil
	}
	if err := s.sms.SendSMS(ctx, contact.Phone, title+": "+body); err != nil {
		s.logger.Warn("sms delivery failed",
			zap.String("user_id", userID),
			zap.String("notification_id", n.ID().String()),
			zap.Error(err),
		)
	}
	return nil
}

// NotifyOnce sends a notification unless the user already has one of the same
// kind carrying dedupeKey. It reports whether a notification was sent.
func (s *NotificationService) NotifyOnce(ctx context.Context, userID string, kind notification.Kind, title, body string, data map[string]string, dedupeKey string) (bool, error) {
	exists, err := s.repo.ExistsWithData(ctx, userID, kind, DedupeDataKey, dedupeKey)
	if err != nil {
		return false, fmt.Errorf("failed to check for duplicate notification: %w", err)
	}
	if exists {
		return false, nil
	}

	merged := make(map[string]string, len(data)+1)
	for k, v := range data {
		merged[k] = v
	}
	merged[DedupeDataKey] = dedupeKey
	if err := s.Notify(ctx, userID, kind, title, body, merged); err != nil {
		return false, err
	}
	return true, nil
}

// List returns the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, page, limit int) (*domain.PaginatedResult[NotificationDTO], error) {
	items, total, err := s.repo.FindByUserID(ctx, userID, unreadOnly, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	dtos := make([]NotificationDTO, len(items))
	for i, n := range items {
		dtos[i] = toNotificationDTO(n)
	}
	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// MarkRead marks one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID string, id uuid.UUID) error {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID() != userID {
		return domain.NewForbiddenError("notification belongs to another user")
	}
	if n.IsRead() {
		return nil
	}
	return s.repo.MarkRead(ctx, id, s.clock())
}

// UpdateContact stores the caller's phone number and SMS preference.
func (s *NotificationService) UpdateContact(ctx context.Context, userID string, req UpdateContactRequest) (*notification.Contact, error) {
	c, err := notification.NewContact(userID, req.Phone, req.SMSOptIn)
	if err != nil {
		return nil, err
	}
	if err := s.contacts.UpsertContact(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save contact: %w", err)
	}
	return c, nil
}

func toNotificationDTO(n *notification.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID(),
		Kind:      string(n.Kind()),
		Title:     n.Title(),
		Body:      n.Body(),
		Data:      n.Data(),
		ReadAt:    n.ReadAt(),
		CreatedAt: n.CreatedAt(),
	}
}
