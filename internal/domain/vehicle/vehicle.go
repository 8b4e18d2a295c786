package vehicle

import (
	"strings"
	"time"

	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
)

// LastService summarizes the most recent completed booking on a vehicle.
type LastService struct {
	BookingID   uuid.UUID `json:"booking_id"`
	ServiceType string    `json:"service_type"`
	Title       string    `json:"title"`
	Mileage     int       `json:"mileage"`
	Date        time.Time `json:"date"`
}

// Vehicle is the aggregate root for a customer's vehicle.
type Vehicle struct {
	id                  uuid.UUID
	ownerID             string
	year                int
	make                string
	model               string
	trim                string
	vin                 string
	currentMileage      domain.Optional[int]
	lastServiceDate     *time.Time
	lastServiceSnapshot *LastService
	version             int64
	createdAt           time.Time
	updatedAt           time.Time
}

// NewVehicle creates a vehicle profile with validated fields.
func NewVehicle(ownerID string, year int, make, model, trim, vin string, currentMileage domain.Optional[int]) (*Vehicle, error) {
	if ownerID == "" {
		return nil, domain.NewValidationError("owner ID is required")
	}
	if year < 1900 || year > time.Now().Year()+2 {
		return nil, domain.NewValidationError("vehicle year is out of range")
	}
	if strings.TrimSpace(make) == "" || strings.TrimSpace(model) == "" {
		return nil, domain.NewValidationError("vehicle make and model are required")
	}
	vin = strings.ToUpper(strings.TrimSpace(vin))
	if vin != "" && len(vin) != 17 {
		return nil, domain.NewValidationError("VIN must be 17 characters")
	}
	if m, ok := currentMileage.Get(); ok && m < 0 {
		return nil, domain.NewValidationError("mileage must not be negative")
	}

	now := time.Now().UTC()
	return &Vehicle{
		id:             uuid.New(),
		ownerID:        ownerID,
		year:           year,
		make:           strings.TrimSpace(make),
		model:          strings.TrimSpace(model),
		trim:           strings.TrimSpace(trim),
		vin:            vin,
		currentMileage: currentMileage,
		version:        1,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// Reconstruct rebuilds a Vehicle from persistence data (no validation).
func Reconstruct(
	id uuid.UUID,
	ownerID string,
	year int,
	make, model, trim, vin string,
	currentMileage domain.Optional[int],
	lastServiceDate *time.Time,
	lastServiceSnapshot *LastService,
	version int64,
	createdAt, updatedAt time.Time,
) *Vehicle {
	return &Vehicle{
		id:                  id,
		ownerID:             ownerID,
		year:                year,
		make:                make,
		model:               model,
		trim:                trim,
		vin:                 vin,
		currentMileage:      currentMileage,
		lastServiceDate:     lastServiceDate,
		lastServiceSnapshot: lastServiceSnapshot,
		version:             version,
		createdAt:           createdAt,
		updatedAt:           updatedAt,
	}
}

// --- Getters ---

func (v *Vehicle) ID() uuid.UUID { return v.id }
func (v *Vehicle) OwnerID() string { return v.ownerID }
func (v *Vehicle) Year() int { return v.year }
func (v *Vehicle) Make() string { return v.make }
func (v *Vehicle) Model() string { return v.model }
func (v *Vehicle) Trim() string { return v.trim }
func (v *Vehicle) VIN() string { return v.vin }
func (v *Vehicle) CurrentMileage() domain.Optional[int] { return v.currentMileage }
func (v *Vehicle) LastServiceDate() *time.Time { return v.lastServiceDate }
func (v *Vehicle) LastServiceSnapshot() *LastService { return v.lastServiceSnapshot }
func (v *Vehicle) Version() int64 { return v.version }
func (v *Vehicle) CreatedAt() time.Time { return v.createdAt }
func (v *Vehicle) UpdatedAt() time.Time { return v.updatedAt }

// --- Behavior ---

// IsOwnedBy checks if the vehicle belongs to the given user.
func (v *Vehicle) IsOwnedBy(userID string) bool {
	return userID != "" && v.ownerID == userID
}

// UpdateMileage records a new odometer reading. Readings never go backwards.
func (v *Vehicle) UpdateMileage(mileage int) error {
	if mileage < 0 {
		return domain.NewValidationError("mileage must not be negative")
	}
	if cur, ok := v.currentMileage.Get(); ok && mileage < cur {
		return domain.NewConflictError("mileage cannot decrease")
	}
	v.currentMileage = domain.Some(mileage)
	v.updatedAt = time.Now().UTC()
	return nil
}

// RecordService stamps the vehicle with a completed service. An older service
// never replaces a newer one, and a higher odometer reading is carried over.
func (v *Vehicle) RecordService(s LastService) {
	s.Date = s.Date.UTC()
	if v.lastServiceDate != nil && s.Date.Before(*v.lastServiceDate) {
		return
	}
	date := s.Date
	v.lastServiceDate = &date
	v.lastServiceSnapshot = &s
	if cur, ok := v.currentMileage.Get(); !ok || s.Mileage > cur {
		v.currentMileage = domain.Some(s.Mileage)
	}
	v.updatedAt = time.Now().UTC()
}

// IncrementVersion bumps the version for optimistic locking.
func (v *Vehicle) IncrementVersion() {
	v.version++
	v.updatedAt = time.Now().UTC()
}
