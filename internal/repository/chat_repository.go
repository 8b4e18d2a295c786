package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fixmate/service-marketplace/internal/domain/chat"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageModel is the GORM model for the booking_messages table.
type MessageModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	BookingID uuid.UUID `gorm:"type:uuid;not null;index"`
	SenderID  string    `gorm:"type:varchar(128);not null"`
	Body      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null"`
}

func (MessageModel) TableName() string { return "booking_messages" }

// GormMessageRepository implements chat.Repository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Save(ctx context.Context, m *chat.Message) error {
	model := &MessageModel{
		ID:        m.ID(),
		BookingID: m.BookingID(),
		SenderID:  m.SenderID(),
		Body:      m.Body(),
		CreatedAt: m.CreatedAt(),
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// FindByBookingID returns a thread oldest first.
func (r *GormMessageRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID, page, limit int) ([]*chat.Message, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&MessageModel{}).Where("booking_id = ?", bookingID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	var models []MessageModel
	if err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC, id").
		Offset(domain.Offset(page, limit)).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}

	out := make([]*chat.Message, len(models))
	for i := range models {
		m := &models[i]
		out[i] = chat.Reconstruct(m.ID, m.BookingID, m.SenderID, m.Body, m.CreatedAt)
	}
	return out, total, nil
}
