package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingDomain "github.com/fixmate/service-marketplace/internal/domain/booking"
	jobDomain "github.com/fixmate/service-marketplace/internal/domain/job"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID              uuid.UUID                                         `gorm:"type:uuid;primaryKey"`
	CustomerID      string                                            `gorm:"size:128;index;not null"`
	TechnicianID    *string                                           `gorm:"size:128;index"`
	VehicleID       uuid.UUID                                         `gorm:"type:uuid;index;not null"`
	ServiceID       string                                            `gorm:"size:128;not null"`
	ServiceSnapshot datatypes.JSONType[bookingDomain.ServiceSnapshot] `gorm:"type:jsonb;not null"`
	VehicleSnapshot datatypes.JSONType[bookingDomain.VehicleSnapshot] `gorm:"type:jsonb;not null"`
	ScheduledAt     time.Time                                         `gorm:"not null"`
	Status          string                                            `gorm:"size:30;index;not null"`
	Address         datatypes.JSONType[bookingDomain.Address]         `gorm:"type:jsonb;not null"`
	TotalPriceCents int64                                             `gorm:"not null"`
	JobID           *uuid.UUID                                        `gorm:"type:uuid;uniqueIndex"`
	Notes           string                                            `gorm:"size:1000"`
	CompletedAt     *time.Time
	CancelledAt     *time.Time
	Version         int64     `gorm:"not null;default:1"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByCustomerID retrieves bookings for a customer with pagination.
func (r *GormBookingRepository) FindByCustomerID(ctx context.Context, customerID string, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.findPage(ctx, r.db.Where("customer_id = ?", customerID), "created_at DESC, id", page, limit)
}

// FindByTechnicianID retrieves bookings assigned to a technician with pagination.
func (r *GormBookingRepository) FindByTechnicianID(ctx context.Context, technicianID string, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.findPage(ctx, r.db.Where("technician_id = ?", technicianID), "created_at DESC, id", page, limit)
}

// FindOpen retrieves pending bookings, soonest appointment first.
func (r *GormBookingRepository) FindOpen(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.findPage(ctx, r.db.Where("status = ?", string(bookingDomain.StatusPending)), "scheduled_at ASC, id", page, limit)
}

// ListAll retrieves all bookings with pagination (admin).
func (r *GormBookingRepository) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.findPage(ctx, r.db, "created_at DESC, id", page, limit)
}

func (r *GormBookingRepository) findPage(ctx context.Context, scope *gorm.DB, order string, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := scope.WithContext(ctx).Model(&BookingModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	if err := scope.WithContext(ctx).
		Order(order).
		Offset(domain.Offset(page, limit)).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find bookings: %w", err)
	}

	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bk, err := toDomainBooking(&models[i])
		if err != nil {
			return nil, 0, err
		}
		bookings[i] = bk
	}
	return bookings, total, nil
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	if err := r.db.WithContext(ctx).Create(toBookingModel(bk)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("booking already exists")
		}
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update persists changes to an existing booking with optimistic locking.
// The address is left alone; it only changes through UpdateAddress.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model := toBookingModel(bk)

	// IncrementVersion has already run, so the stored row must be one version behind.
	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"technician_id": model.TechnicianID,
			"status":        model.Status,
			"job_id":        model.JobID,
			"notes":         model.Notes,
			"completed_at":  model.CompletedAt,
			"cancelled_at":  model.CancelledAt,
			"version":       model.Version,
			"updated_at":    model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}
	return nil
}

// SaveAcceptance stamps the booking and inserts its job in one transaction.
// The booking row only changes while it is unassigned and at the expected version.
func (r *GormBookingRepository) SaveAcceptance(ctx context.Context, bk *bookingDomain.Booking, j *jobDomain.Job) error {
	model := toBookingModel(bk)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&BookingModel{}).
			Where("id = ? AND version = ? AND technician_id IS NULL AND job_id IS NULL", model.ID, bk.Version()-1).
			Updates(map[string]interface{}{
				"technician_id": model.TechnicianID,
				"job_id":        model.JobID,
				"status":        model.Status,
				"version":       model.Version,
				"updated_at":    model.UpdatedAt,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to stamp booking acceptance: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.NewConflictError("booking already accepted")
		}

		if err := tx.Create(toJobModel(j)).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.NewConflictError("job already exists for booking")
			}
			return fmt.Errorf("failed to create job: %w", err)
		}
		return nil
	})
}

// UpdateAddress overwrites only the address column.
func (r *GormBookingRepository) UpdateAddress(ctx context.Context, id uuid.UUID, address bookingDomain.Address) error {
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ?", id).
		Update("address", datatypes.NewJSONType(address))
	if result.Error != nil {
		return fmt.Errorf("failed to update booking address: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Booking", id.String())
	}
	return nil
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) *BookingModel {
	return &BookingModel{
		ID:              bk.ID(),
		CustomerID:      bk.CustomerID(),
		TechnicianID:    bk.TechnicianID(),
		VehicleID:       bk.VehicleID(),
		ServiceID:       bk.ServiceID(),
		ServiceSnapshot: datatypes.NewJSONType(bk.ServiceSnapshot()),
		VehicleSnapshot: datatypes.NewJSONType(bk.VehicleSnapshot()),
		ScheduledAt:     bk.ScheduledAt(),
		Status:          string(bk.Status()),
		Address:         datatypes.NewJSONType(bk.Address()),
		TotalPriceCents: bk.TotalPriceCents(),
		JobID:           bk.JobID(),
		Notes:           bk.Notes(),
		CompletedAt:     bk.CompletedAt(),
		CancelledAt:     bk.CancelledAt(),
		Version:         bk.Version(),
		CreatedAt:       bk.CreatedAt(),
		UpdatedAt:       bk.UpdatedAt(),
	}
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return bookingDomain.ReconstructBooking(
		m.ID,
		m.CustomerID,
		m.TechnicianID,
		m.VehicleID,
		m.ServiceID,
		m.ServiceSnapshot.Data(),
		m.VehicleSnapshot.Data(),
		m.ScheduledAt,
		status,
		m.Address.Data(),
		m.TotalPriceCents,
		m.JobID,
		m.Notes,
		m.CompletedAt,
		m.CancelledAt,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}
