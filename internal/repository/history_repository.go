package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fixmate/service-marketplace/internal/domain/history"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// HistoryModel is the GORM model for the service_history table.
type HistoryModel struct {
	ID               uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	VehicleID        uuid.UUID                   `gorm:"type:uuid;not null;index"`
	BookingID        uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex"`
	CustomerID       string                      `gorm:"type:varchar(128);not null"`
	TechnicianID     string                      `gorm:"type:varchar(128);not null"`
	ServiceType      string                      `gorm:"type:varchar(50);not null"`
	ServiceTitle     string                      `gorm:"type:varchar(200);not null"`
	Date             time.Time                   `gorm:"type:timestamptz;not null"`
	CompletedAt      time.Time                   `gorm:"type:timestamptz;not null"`
	MileageAtService int                         `gorm:"type:int;not null"`
	CostCents        int64                       `gorm:"not null"`
	TechNotes        string                      `gorm:"type:varchar(1000)"`
	PartsUsed        datatypes.JSONSlice[string] `gorm:"type:jsonb;not null"`
	PhotoURLs        datatypes.JSONSlice[string] `gorm:"column:photo_urls;type:jsonb;not null"`
	WarrantyInfo     string                      `gorm:"type:text"`
	CreatedAt        time.Time                   `gorm:"type:timestamptz;not null"`
}

// TableName sets the table name.
func (HistoryModel) TableName() string { return "service_history" }

// GormHistoryRepository implements RecordRepository using GORM.
type GormHistoryRepository struct {
	db *gorm.DB
}

// NewGormHistoryRepository creates a new GormHistoryRepository.
func NewGormHistoryRepository(db *gorm.DB) *GormHistoryRepository {
	return &GormHistoryRepository{db: db}
}

// Create inserts a record. The unique booking_id index rejects a second one.
func (r *GormHistoryRepository) Create(ctx context.Context, rec *history.Record) error {
	if err := r.db.WithContext(ctx).Create(toHistoryModel(rec)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("service history already recorded for booking")
		}
		return fmt.Errorf("failed to create service history: %w", err)
	}
	return nil
}

// FindByBookingID returns the record written when a booking completed.
func (r *GormHistoryRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*history.Record, error) {
	var model HistoryModel
	if err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("ServiceHistoryRecord", "for booking "+bookingID.String())
		}
		return nil, fmt.Errorf("failed to find service history: %w", err)
	}
	return toHistoryDomain(&model), nil
}

// FindByVehicleID returns a vehicle's history, most recent service first.
func (r *GormHistoryRepository) FindByVehicleID(ctx context.Context, vehicleID uuid.UUID, page, limit int) ([]*history.Record, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&HistoryModel{}).Where("vehicle_id = ?", vehicleID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count service history: %w", err)
	}

	var models []HistoryModel
	if err := r.db.WithContext(ctx).
		Where("vehicle_id = ?", vehicleID).
		Order("date DESC, id").
		Offset(domain.Offset(page, limit)).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list service history: %w", err)
	}

	records := make([]*history.Record, len(models))
	for i := range models {
		records[i] = toHistoryDomain(&models[i])
	}
	return records, total, nil
}

func toHistoryModel(rec *history.Record) *HistoryModel {
	p := rec.Params()
	if p.PartsUsed == nil {
		p.PartsUsed = []string{}
	}
	if p.PhotoURLs == nil {
		p.PhotoURLs = []string{}
	}
	return &HistoryModel{
		ID:               rec.ID(),
		VehicleID:        p.VehicleID,
		BookingID:        p.BookingID,
		CustomerID:       p.CustomerID,
		TechnicianID:     p.TechnicianID,
		ServiceType:      p.ServiceType,
		ServiceTitle:     p.ServiceTitle,
		Date:             p.Date,
		CompletedAt:      p.CompletedAt,
		MileageAtService: p.MileageAtService,
		CostCents:        p.CostCents,
		TechNotes:        p.TechNotes,
		PartsUsed:        datatypes.NewJSONSlice(p.PartsUsed),
		PhotoURLs:        datatypes.NewJSONSlice(p.PhotoURLs),
		WarrantyInfo:     p.WarrantyInfo,
		CreatedAt:        rec.CreatedAt(),
	}
}

func toHistoryDomain(m *HistoryModel) *history.Record {
	return history.Reconstruct(m.ID, history.RecordParams{
		VehicleID:        m.VehicleID,
		BookingID:        m.BookingID,
		CustomerID:       m.CustomerID,
		TechnicianID:     m.TechnicianID,
		ServiceType:      m.ServiceType,
		ServiceTitle:     m.ServiceTitle,
		Date:             m.Date,
		CompletedAt:      m.CompletedAt,
		MileageAtService: m.MileageAtService,
		CostCents:        m.CostCents,
		TechNotes:        m.TechNotes,
		PartsUsed:        []string(m.PartsUsed),
		PhotoURLs:        []string(m.PhotoURLs),
		WarrantyInfo:     m.WarrantyInfo,
	}, m.CreatedAt)
}
