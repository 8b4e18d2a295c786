package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fixmate/service-marketplace/internal/domain/maintenance"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScheduleModel is the GORM model for the maintenance_schedules table.
type ScheduleModel struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey"`
	VehicleID          uuid.UUID  `gorm:"type:uuid;not null;index"`
	OwnerID            string     `gorm:"type:varchar(128);not null"`
	ServiceType        string     `gorm:"type:varchar(50);not null"`
	CustomLabel        *string    `gorm:"type:varchar(100)"`
	IntervalMiles      *int       `gorm:"type:int"`
	IntervalDays       *int       `gorm:"type:int"`
	LastServiceMileage *int       `gorm:"type:int"`
	LastServiceDate    *time.Time `gorm:"type:timestamptz"`
	ReminderLeadDays   *int       `gorm:"type:int"`
	ReminderLeadMiles  *int       `gorm:"type:int"`
	IsActive           bool       `gorm:"not null;default:true"`
	NextDueMileage     *int       `gorm:"type:int"`
	NextDueDate        *time.Time `gorm:"type:timestamptz"`
	CreatedAt          time.Time  `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt          time.Time  `gorm:"type:timestamptz;not null;default:now()"`
}

// TableName returns the table name for the GORM model.
func (ScheduleModel) TableName() string { return "maintenance_schedules" }

// HealthSnapshotModel is the GORM model for the vehicle_health_snapshots table.
type HealthSnapshotModel struct {
	VehicleID        uuid.UUID                                        `gorm:"type:uuid;primaryKey"`
	OwnerID          string                                           `gorm:"type:varchar(128);not null"`
	AlertLevel       string                                           `gorm:"type:varchar(20);not null"`
	UpcomingServices datatypes.JSONSlice[maintenance.UpcomingService] `gorm:"type:jsonb;not null"`
	UpdatedAt        time.Time                                        `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for the GORM model.
func (HealthSnapshotModel) TableName() string { return "vehicle_health_snapshots" }

// GormScheduleRepository implements ScheduleRepository using GORM.
type GormScheduleRepository struct {
	db *gorm.DB
}

// NewGormScheduleRepository creates a new GormScheduleRepository.
func NewGormScheduleRepository(db *gorm.DB) *GormScheduleRepository {
	return &GormScheduleRepository{db: db}
}

// FindByID retrieves a schedule by its unique identifier.
func (r *GormScheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*maintenance.Schedule, error) {
	var model ScheduleModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Schedule", id.String())
		}
		return nil, fmt.Errorf("failed to find schedule: %w", err)
	}
	return toScheduleDomain(&model), nil
}

// FindActiveByVehicleID lists a vehicle's active schedules, oldest first.
func (r *GormScheduleRepository) FindActiveByVehicleID(ctx context.Context, vehicleID uuid.UUID) ([]*maintenance.Schedule, error) {
	var models []ScheduleModel
	if err := r.db.WithContext(ctx).
		Where("vehicle_id = ? AND is_active = ?", vehicleID, true).
		Order("created_at ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	schedules := make([]*maintenance.Schedule, len(models))
	for i := range models {
		schedules[i] = toScheduleDomain(&models[i])
	}
	return schedules, nil
}

// ListVehiclesWithActiveSchedules returns every vehicle with at least one active schedule.
func (r *GormScheduleRepository) ListVehiclesWithActiveSchedules(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&ScheduleModel{}).
		Where("is_active = ?", true).
		Distinct("vehicle_id").
		Order("vehicle_id").
		Pluck("vehicle_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list vehicles with schedules: %w", err)
	}
	return ids, nil
}

// Save persists a new schedule.
func (r *GormScheduleRepository) Save(ctx context.Context, s *maintenance.Schedule) error {
	if err := r.db.WithContext(ctx).Create(toScheduleModel(s)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("schedule already exists")
		}
		return fmt.Errorf("failed to save schedule: %w", err)
	}
	return nil
}

// Update writes the client-writable columns and the active flag. The next-due
// columns belong to CommitHealth.
func (r *GormScheduleRepository) Update(ctx context.Context, s *maintenance.Schedule) error {
	model := toScheduleModel(s)
	result := r.db.WithContext(ctx).
		Model(&ScheduleModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"custom_label":         model.CustomLabel,
			"interval_miles":       model.IntervalMiles,
			"interval_days":        model.IntervalDays,
			"last_service_mileage": model.LastServiceMileage,
			"last_service_date":    model.LastServiceDate,
			"reminder_lead_days":   model.ReminderLeadDays,
			"reminder_lead_miles":  model.ReminderLeadMiles,
			"is_active":            model.IsActive,
			"updated_at":           model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update schedule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Schedule", model.ID.String())
	}
	return nil
}

// CommitHealth writes every next-due point and upserts the snapshot in one transaction.
func (r *GormScheduleRepository) CommitHealth(ctx context.Context, updates []maintenance.ScheduleDue, snapshot maintenance.HealthSnapshot) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			result := tx.Model(&ScheduleModel{}).
				Where("id = ?", u.ScheduleID).
				Updates(map[string]interface{}{
					"next_due_mileage": u.NextDueMileage.Ptr(),
					"next_due_date":    u.NextDueDate.Ptr(),
				})
			if result.Error != nil {
				return fmt.Errorf("failed to write next due for schedule %s: %w", u.ScheduleID, result.Error)
			}
			if result.RowsAffected == 0 {
				return domain.NewNotFoundError("Schedule", u.ScheduleID.String())
			}
		}

		model := toSnapshotModel(snapshot)
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "vehicle_id"}},
			UpdateAll: true,
		}).Create(model).Error; err != nil {
			return fmt.Errorf("failed to upsert health snapshot: %w", err)
		}
		return nil
	})
}

// FindSnapshot returns the stored health snapshot for a vehicle.
func (r *GormScheduleRepository) FindSnapshot(ctx context.Context, vehicleID uuid.UUID) (*maintenance.HealthSnapshot, error) {
	var model HealthSnapshotModel
	if err := r.db.WithContext(ctx).Where("vehicle_id = ?", vehicleID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("VehicleHealthSnapshot", vehicleID.String())
		}
		return nil, fmt.Errorf("failed to find health snapshot: %w", err)
	}
	snap := maintenance.HealthSnapshot{
		VehicleID:        model.VehicleID,
		OwnerID:          model.OwnerID,
		AlertLevel:       maintenance.AlertLevel(model.AlertLevel),
		UpcomingServices: []maintenance.UpcomingService(model.UpcomingServices),
		UpdatedAt:        model.UpdatedAt,
	}
	if snap.UpcomingServices == nil {
		snap.UpcomingServices = []maintenance.UpcomingService{}
	}
	return &snap, nil
}

// --- Conversions ---

func toScheduleModel(s *maintenance.Schedule) *ScheduleModel {
	return &ScheduleModel{
		ID:                 s.ID(),
		VehicleID:          s.VehicleID(),
		OwnerID:            s.OwnerID(),
		ServiceType:        s.ServiceType(),
		CustomLabel:        s.CustomLabel().Ptr(),
		IntervalMiles:      s.IntervalMiles().Ptr(),
		IntervalDays:       s.IntervalDays().Ptr(),
		LastServiceMileage: s.LastServiceMileage().Ptr(),
		LastServiceDate:    s.LastServiceDate().Ptr(),
		ReminderLeadDays:   s.ReminderLeadDays().Ptr(),
		ReminderLeadMiles:  s.ReminderLeadMiles().Ptr(),
		IsActive:           s.IsActive(),
		NextDueMileage:     s.NextDueMileage().Ptr(),
		NextDueDate:        s.NextDueDate().Ptr(),
		CreatedAt:          s.CreatedAt(),
		UpdatedAt:          s.UpdatedAt(),
	}
}

func toScheduleDomain(m *ScheduleModel) *maintenance.Schedule {
	return maintenance.ReconstructSchedule(
		m.ID,
		maintenance.ScheduleParams{
			VehicleID:          m.VehicleID,
			OwnerID:            m.OwnerID,
			ServiceType:        m.ServiceType,
			CustomLabel:        domain.FromPtr(m.CustomLabel),
			IntervalMiles:      domain.FromPtr(m.IntervalMiles),
			IntervalDays:       domain.FromPtr(m.IntervalDays),
			LastServiceMileage: domain.FromPtr(m.LastServiceMileage),
			LastServiceDate:    domain.FromPtr(m.LastServiceDate),
			ReminderLeadDays:   domain.FromPtr(m.ReminderLeadDays),
			ReminderLeadMiles:  domain.FromPtr(m.ReminderLeadMiles),
		},
		m.IsActive,
		domain.FromPtr(m.NextDueMileage),
		domain.FromPtr(m.NextDueDate),
		m.CreatedAt, m.UpdatedAt,
	)
}

func toSnapshotModel(s maintenance.HealthSnapshot) *HealthSnapshotModel {
	upcoming := s.UpcomingServices
	if upcoming == nil {
		upcoming = []maintenance.UpcomingService{}
	}
	return &HealthSnapshotModel{
		VehicleID:        s.VehicleID,
		OwnerID:          s.OwnerID,
		AlertLevel:       string(s.AlertLevel),
		UpcomingServices: datatypes.NewJSONSlice(upcoming),
		UpdatedAt:        s.UpdatedAt,
	}
}
