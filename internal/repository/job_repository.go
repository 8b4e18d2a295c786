package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	jobDomain "github.com/fixmate/service-marketplace/internal/domain/job"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JobModel is the GORM model for the jobs table.
type JobModel struct {
	ID             uuid.UUID                                 `gorm:"type:uuid;primaryKey"`
	BookingID      uuid.UUID                                 `gorm:"type:uuid;uniqueIndex;not null"`
	TechnicianID   string                                    `gorm:"size:128;index;not null"`
	CustomerID     string                                    `gorm:"size:128;not null"`
	CurrentStage   string                                    `gorm:"size:30;not null"`
	Stages         datatypes.JSONSlice[jobDomain.StageEntry] `gorm:"type:jsonb;not null"`
	TechLat        *float64
	TechLng        *float64
	TechRecordedAt *time.Time
	Route          datatypes.JSONType[*jobDomain.Route] `gorm:"type:jsonb"`
	StartedAt      *time.Time
	CompletedAt    *time.Time
	Version        int64     `gorm:"not null;default:1"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (JobModel) TableName() string {
	return "jobs"
}

// GormJobRepository is the GORM-based implementation of JobRepository.
type GormJobRepository struct {
	db *gorm.DB
}

// NewGormJobRepository creates a new GormJobRepository.
func NewGormJobRepository(db *gorm.DB) *GormJobRepository {
	return &GormJobRepository{db: db}
}

// FindByID retrieves a job by its unique identifier.
func (r *GormJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*jobDomain.Job, error) {
	var model JobModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Job", id.String())
		}
		return nil, fmt.Errorf("failed to find job by ID: %w", err)
	}
	return toDomainJob(&model)
}

// FindByBookingID retrieves the job created for a booking.
func (r *GormJobRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*jobDomain.Job, error) {
	var model JobModel
	if err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Job", "for booking "+bookingID.String())
		}
		return nil, fmt.Errorf("failed to find job by booking ID: %w", err)
	}
	return toDomainJob(&model)
}

// CountByBookingID counts jobs for a booking. The unique index keeps it at most one.
func (r *GormJobRepository) CountByBookingID(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&JobModel{}).Where("booking_id = ?", bookingID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return count, nil
}

// Update persists stage progress and the technician location with optimistic locking.
func (r *GormJobRepository) Update(ctx context.Context, j *jobDomain.Job) error {
	model := toJobModel(j)
	result := r.db.WithContext(ctx).
		Model(&JobModel{}).
		Where("id = ? AND version = ?", model.ID, j.Version()-1).
		Updates(map[string]interface{}{
			"current_stage":    model.CurrentStage,
			"stages":           model.Stages,
			"tech_lat":         model.TechLat,
			"tech_lng":         model.TechLng,
			"tech_recorded_at": model.TechRecordedAt,
			"route":            model.Route,
			"started_at":       model.StartedAt,
			"completed_at":     model.CompletedAt,
			"version":          model.Version,
			"updated_at":       model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("job was modified by another transaction")
	}
	return nil
}

func toJobModel(j *jobDomain.Job) *JobModel {
	m := &JobModel{
		ID:           j.ID(),
		BookingID:    j.BookingID(),
		TechnicianID: j.TechnicianID(),
		CustomerID:   j.CustomerID(),
		CurrentStage: string(j.CurrentStage()),
		Stages:       datatypes.NewJSONSlice(j.Stages()),
		Route:        datatypes.NewJSONType(j.Route()),
		StartedAt:    j.StartedAt(),
		CompletedAt:  j.CompletedAt(),
		Version:      j.Version(),
		CreatedAt:    j.CreatedAt(),
		UpdatedAt:    j.UpdatedAt(),
	}
	if loc := j.TechLocation(); loc != nil {
		lat, lng, at := loc.Lat, loc.Lng, loc.RecordedAt
		m.TechLat, m.TechLng, m.TechRecordedAt = &lat, &lng, &at
	}
	return m
}

func toDomainJob(m *JobModel) (*jobDomain.Job, error) {
	stage, err := jobDomain.ParseStage(m.CurrentStage)
	if err != nil {
		return nil, err
	}

	var loc *jobDomain.Location
	if m.TechLat != nil && m.TechLng != nil && m.TechRecordedAt != nil {
		loc = &jobDomain.Location{Lat: *m.TechLat, Lng: *m.TechLng, RecordedAt: *m.TechRecordedAt}
	}

	return jobDomain.Reconstruct(
		m.ID,
		m.BookingID,
		m.TechnicianID,
		m.CustomerID,
		stage,
		[]jobDomain.StageEntry(m.Stages),
		loc,
		m.Route.Data(),
		m.StartedAt,
		m.CompletedAt,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}
