package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	vehicleDomain "github.com/fixmate/service-marketplace/internal/domain/vehicle"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// VehicleModel is the GORM model for the vehicles table.
type VehicleModel struct {
	ID                  uuid.UUID                                      `gorm:"type:uuid;primaryKey"`
	OwnerID             string                                         `gorm:"type:varchar(128);not null;index"`
	Year                int                                            `gorm:"type:int;not null"`
	Make                string                                         `gorm:"type:varchar(100);not null"`
	Model               string                                         `gorm:"type:varchar(100);not null"`
	Trim                string                                         `gorm:"type:varchar(100)"`
	VIN                 string                                         `gorm:"column:vin;type:varchar(17)"`
	CurrentMileage      *int                                           `gorm:"type:int"`
	LastServiceDate     *time.Time                                     `gorm:"type:timestamptz"`
	LastServiceSnapshot datatypes.JSONType[*vehicleDomain.LastService] `gorm:"type:jsonb"`
	Version             int64                                          `gorm:"not null;default:1"`
	CreatedAt           time.Time                                      `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt           time.Time                                      `gorm:"type:timestamptz;not null;default:now()"`
}

func (VehicleModel) TableName() string { return "vehicles" }

// GormVehicleRepository implements VehicleRepository using GORM.
type GormVehicleRepository struct {
	db *gorm.DB
}

func NewGormVehicleRepository(db *gorm.DB) *GormVehicleRepository {
	return &GormVehicleRepository{db: db}
}

func (r *GormVehicleRepository) FindByID(ctx context.Context, id uuid.UUID) (*vehicleDomain.Vehicle, error) {
	var model VehicleModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Vehicle", id.String())
		}
		return nil, fmt.Errorf("failed to find vehicle: %w", err)
	}
	return toVehicleDomain(&model), nil
}

func (r *GormVehicleRepository) FindByOwnerID(ctx context.Context, ownerID string) ([]*vehicleDomain.Vehicle, error) {
	var models []VehicleModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	vehicles := make([]*vehicleDomain.Vehicle, len(models))
	for i := range models {
		vehicles[i] = toVehicleDomain(&models[i])
	}
	return vehicles, nil
}

func (r *GormVehicleRepository) Save(ctx context.Context, v *vehicleDomain.Vehicle) error {
	if err := r.db.WithContext(ctx).Create(toVehicleModel(v)).Error; err != nil {
		return fmt.Errorf("failed to save vehicle: %w", err)
	}
	return nil
}

// Update writes the mutable columns when the stored version is one behind v.
func (r *GormVehicleRepository) Update(ctx context.Context, v *vehicleDomain.Vehicle) error {
	model := toVehicleModel(v)
	previousVersion := v.Version() - 1

	result := r.db.WithContext(ctx).
		Model(&VehicleModel{}).
		Where("id = ? AND version = ?", model.ID, previousVersion).
		Updates(map[string]interface{}{
			"current_mileage":       model.CurrentMileage,
			"last_service_date":     model.LastServiceDate,
			"last_service_snapshot": model.LastServiceSnapshot,
			"version":               model.Version,
			"updated_at":            model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update vehicle: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("vehicle was modified by another transaction")
	}
	return nil
}

// --- Conversions ---

func toVehicleModel(v *vehicleDomain.Vehicle) *VehicleModel {
	return &VehicleModel{
		ID:                  v.ID(),
		OwnerID:             v.OwnerID(),
		Year:                v.Year(),
		Make:                v.Make(),
		Model:               v.Model(),
		Trim:                v.Trim(),
		VIN:                 v.VIN(),
		CurrentMileage:      v.CurrentMileage().Ptr(),
		LastServiceDate:     v.LastServiceDate(),
		LastServiceSnapshot: datatypes.NewJSONType(v.LastServiceSnapshot()),
		Version:             v.Version(),
		CreatedAt:           v.CreatedAt(),
		UpdatedAt:           v.UpdatedAt(),
	}
}

func toVehicleDomain(m *VehicleModel) *vehicleDomain.Vehicle {
	return vehicleDomain.Reconstruct(
		m.ID, m.OwnerID,
		m.Year,
		m.Make, m.Model, m.Trim, m.VIN,
		domain.FromPtr(m.CurrentMileage),
		m.LastServiceDate,
		m.LastServiceSnapshot.Data(),
		m.Version,
		m.CreatedAt, m.UpdatedAt,
	)
}
