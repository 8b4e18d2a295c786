package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fixmate/service-marketplace/internal/domain/notification"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationModel is the GORM model for the notifications table.
type NotificationModel struct {
	ID        uuid.UUID                             `gorm:"type:uuid;primaryKey"`
	UserID    string                                `gorm:"type:varchar(128);not null;index"`
	Kind      string                                `gorm:"type:varchar(30);not null"`
	Title     string                                `gorm:"type:varchar(200);not null"`
	Body      string                                `gorm:"type:text"`
	Data      datatypes.JSONType[map[string]string] `gorm:"type:jsonb;not null"`
	ReadAt    *time.Time                            `gorm:"type:timestamptz"`
	CreatedAt time.Time                             `gorm:"type:timestamptz;not null"`
}

func (NotificationModel) TableName() string { return "notifications" }

// ContactModel is the GORM model for the user_contacts table.
type ContactModel struct {
	UserID    string    `gorm:"type:varchar(128);primaryKey"`
	Phone     string    `gorm:"type:varchar(20);not null"`
	SMSOptIn  bool      `gorm:"column:sms_opt_in;not null;default:false"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null"`
}

func (ContactModel) TableName() string { return "user_contacts" }

// GormNotificationRepository implements both notification.Repository and
// notification.ContactRepository.
type GormNotificationRepository struct {
	db *gorm.DB
}

func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

func (r *GormNotificationRepository) Save(ctx context.Context, n *notification.Notification) error {
	data := n.Data()
	if data == nil {
		data = map[string]string{}
	}
	model := &NotificationModel{
		ID:        n.ID(),
		UserID:    n.UserID(),
		Kind:      string(n.Kind()),
		Title:     n.Title(),
		Body:      n.Body(),
		Data:      datatypes.NewJSONType(data),
		ReadAt:    n.ReadAt(),
		CreatedAt: n.CreatedAt(),
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}
	return nil
}

func (r *GormNotificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*notification.Notification, error) {
	var model NotificationModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Notification", id.String())
		}
		return nil, fmt.Errorf("failed to find notification: %w", err)
	}
	return toNotificationDomain(&model), nil
}

// FindByUserID lists a user's inbox, newest first.
func (r *GormNotificationRepository) FindByUserID(ctx context.Context, userID string, unreadOnly bool, page, limit int) ([]*notification.Notification, int64, error) {
	scope := r.db.WithContext(ctx).Model(&NotificationModel{}).Where("user_id = ?", userID)
	if unreadOnly {
		scope = scope.Where("read_at IS NULL")
	}

	var total int64
	if err := scope.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	var models []NotificationModel
	if err := scope.Session(&gorm.Session{}).
		Order("created_at DESC, id").
		Offset(domain.Offset(page, limit)).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}

	out := make([]*notification.Notification, len(models))
	for i := range models {
		out[i] = toNotificationDomain(&models[i])
	}
	return out, total, nil
}

// MarkRead sets read_at once. Marking an already read notification is a no-op.
func (r *GormNotificationRepository) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", at.UTC())
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&NotificationModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check notification: %w", err)
		}
		if count == 0 {
			return domain.NewNotFoundError("Notification", id.String())
		}
	}
	return nil
}

func (r *GormNotificationRepository) ExistsWithData(ctx context.Context, userID string, kind notification.Kind, key, value string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("user_id = ? AND kind = ? AND data ->> ? = ?", userID, string(kind), key, value).
		Limit(1).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to look up notification: %w", err)
	}
	return count > 0, nil
}

func (r *GormNotificationRepository) UpsertContact(ctx context.Context, c *notification.Contact) error {
	model := &ContactModel{UserID: c.UserID, Phone: c.Phone, SMSOptIn: c.SMSOptIn, UpdatedAt: c.UpdatedAt}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"phone", "sms_opt_in", "updated_at"}),
	}).Create(model).Error; err != nil {
		return fmt.Errorf("failed to upsert contact: %w", err)
	}
	return nil
}

func (r *GormNotificationRepository) FindContact(ctx context.Context, userID string) (*notification.Contact, error) {
	var model ContactModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Contact", userID)
		}
		return nil, fmt.Errorf("failed to find contact: %w", err)
	}
	return &notification.Contact{
		UserID:    model.UserID,
		Phone:     model.Phone,
		SMSOptIn:  model.SMSOptIn,
		UpdatedAt: model.UpdatedAt,
	}, nil
}

func toNotificationDomain(m *NotificationModel) *notification.Notification {
	data := m.Data.Data()
	if data == nil {
		data = map[string]string{}
	}
	return notification.Reconstruct(
		m.ID, m.UserID,
		notification.Kind(m.Kind),
		m.Title, m.Body,
		data,
		m.ReadAt,
		m.CreatedAt,
	)
}
