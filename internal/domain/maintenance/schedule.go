package maintenance

import (
	"strings"
	"time"

	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
)

// Default reminder lead thresholds used when a schedule does not set its own.
const (
	DefaultReminderLeadDays  = 7
	DefaultReminderLeadMiles = 500
)

// ScheduleParams holds the client-writable fields of a schedule.
// The next-due fields are written only by the health engine.
type ScheduleParams struct {
	VehicleID          uuid.UUID
	OwnerID            string
	ServiceType        string
	CustomLabel        domain.Optional[string]
	IntervalMiles      domain.Optional[int]
	IntervalDays       domain.Optional[int]
	LastServiceMileage domain.Optional[int]
	LastServiceDate    domain.Optional[time.Time]
	ReminderLeadDays   domain.Optional[int]
	ReminderLeadMiles  domain.Optional[int]
}

// Schedule is a recurring maintenance item for one vehicle.
type Schedule struct {
	id                 uuid.UUID
	vehicleID          uuid.UUID
	ownerID            string
	serviceType        string
	customLabel        domain.Optional[string]
	intervalMiles      domain.Optional[int]
	intervalDays       domain.Optional[int]
	lastServiceMileage domain.Optional[int]
	lastServiceDate    domain.Optional[time.Time]
	reminderLeadDays   domain.Optional[int]
	reminderLeadMiles  domain.Optional[int]
	isActive           bool
	nextDueMileage     domain.Optional[int]
	nextDueDate        domain.Optional[time.Time]
	createdAt          time.Time
	updatedAt          time.Time
}

// NewSchedule creates an active schedule. At least one interval must be given.
func NewSchedule(p ScheduleParams) (*Schedule, error) {
	if p.VehicleID == uuid.Nil {
		return nil, domain.NewValidationError("vehicle ID is required")
	}
	if p.OwnerID == "" {
		return nil, domain.NewValidationError("owner ID is required")
	}
	if strings.TrimSpace(p.ServiceType) == "" {
		return nil, domain.NewValidationError("service type is required")
	}
	if !p.IntervalMiles.IsPresent() && !p.IntervalDays.IsPresent() {
		return nil, domain.NewValidationError("an interval in miles or days is required")
	}
	for _, f := range []struct {
		name string
		val  domain.Optional[int]
	}{
		{"interval miles", p.IntervalMiles},
		{"interval days", p.IntervalDays},
		{"last service mileage", p.LastServiceMileage},
		{"reminder lead days", p.ReminderLeadDays},
		{"reminder lead miles", p.ReminderLeadMiles},
	} {
		if v, ok := f.val.Get(); ok && v < 0 {
			return nil, domain.NewValidationError(f.name + " must not be negative")
		}
	}
	if v, ok := p.IntervalMiles.Get(); ok && v == 0 {
		return nil, domain.NewValidationError("interval miles must be positive")
	}
	if v, ok := p.IntervalDays.Get(); ok && v == 0 {
		return nil, domain.NewValidationError("interval days must be positive")
	}

	now := time.Now().UTC()
	return &Schedule{
		id:                 uuid.New(),
		vehicleID:          p.VehicleID,
		ownerID:            p.OwnerID,
		serviceType:        strings.TrimSpace(p.ServiceType),
		customLabel:        p.CustomLabel,
		intervalMiles:      p.IntervalMiles,
		intervalDays:       p.IntervalDays,
		lastServiceMileage: p.LastServiceMileage,
		lastServiceDate:    domain.MapOptional(p.LastServiceDate, func(t time.Time) time.Time { return t.UTC() }),
		reminderLeadDays:   p.ReminderLeadDays,
		reminderLeadMiles:  p.ReminderLeadMiles,
		isActive:           true,
		createdAt:          now,
		updatedAt:          now,
	}, nil
}

// ReconstructSchedule rebuilds a Schedule from persistence data (no validation).
func ReconstructSchedule(
	id uuid.UUID,
	p ScheduleParams,
	isActive bool,
	nextDueMileage domain.Optional[int],
	nextDueDate domain.Optional[time.Time],
	createdAt, updatedAt time.Time,
) *Schedule {
	return &Schedule{
		id:                 id,
		vehicleID:          p.VehicleID,
		ownerID:            p.OwnerID,
		serviceType:        p.ServiceType,
		customLabel:        p.CustomLabel,
		intervalMiles:      p.IntervalMiles,
		intervalDays:       p.IntervalDays,
		lastServiceMileage: p.LastServiceMileage,
		lastServiceDate:    p.LastServiceDate,
		reminderLeadDays:   p.ReminderLeadDays,
		reminderLeadMiles:  p.ReminderLeadMiles,
		isActive:           isActive,
		nextDueMileage:     nextDueMileage,
		nextDueDate:        nextDueDate,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}
}

// ID returns the schedule identifier.
func (s *Schedule) ID() uuid.UUID { return s.id }

// VehicleID returns the vehicle the schedule belongs to.
func (s *Schedule) VehicleID() uuid.UUID { return s.vehicleID }

// OwnerID returns the vehicle owner's user ID.
func (s *Schedule) OwnerID() string { return s.ownerID }

// ServiceType returns the service category, e.g. oil_change.
func (s *Schedule) ServiceType() string { return s.serviceType }

// CustomLabel returns the owner-supplied label, if any.
func (s *Schedule) CustomLabel() domain.Optional[string] { return s.customLabel }

// IntervalMiles returns the mileage interval, if set.
func (s *Schedule) IntervalMiles() domain.Optional[int] { return s.intervalMiles }

// IntervalDays returns the time interval in days, if set.
func (s *Schedule) IntervalDays() domain.Optional[int] { return s.intervalDays }

// LastServiceMileage returns the odometer reading at the last service.
func (s *Schedule) LastServiceMileage() domain.Optional[int] { return s.lastServiceMileage }

// LastServiceDate returns the date of the last service.
func (s *Schedule) LastServiceDate() domain.Optional[time.Time] { return s.lastServiceDate }

// ReminderLeadDays returns the days-before-due reminder threshold, if set.
func (s *Schedule) ReminderLeadDays() domain.Optional[int] { return s.reminderLeadDays }

// ReminderLeadMiles returns the miles-before-due reminder threshold, if set.
func (s *Schedule) ReminderLeadMiles() domain.Optional[int] { return s.reminderLeadMiles }

// IsActive reports whether the schedule has not been soft-deleted.
func (s *Schedule) IsActive() bool { return s.isActive }

// NextDueMileage returns the mileage computed by the last health recompute.
func (s *Schedule) NextDueMileage() domain.Optional[int] { return s.nextDueMileage }

// NextDueDate returns the date computed by the last health recompute.
func (s *Schedule) NextDueDate() domain.Optional[time.Time] { return s.nextDueDate }

// CreatedAt returns the creation timestamp.
func (s *Schedule) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns the last-modified timestamp.
func (s *Schedule) UpdatedAt() time.Time { return s.updatedAt }

// Label is the custom label when set, otherwise the service type.
func (s *Schedule) Label() string {
	return s.customLabel.OrElse(s.serviceType)
}

// Params returns the client-writable fields.
func (s *Schedule) Params() ScheduleParams {
	return ScheduleParams{
		VehicleID:          s.vehicleID,
		OwnerID:            s.ownerID,
		ServiceType:        s.serviceType,
		CustomLabel:        s.customLabel,
		IntervalMiles:      s.intervalMiles,
		IntervalDays:       s.intervalDays,
		LastServiceMileage: s.lastServiceMileage,
		LastServiceDate:    s.lastServiceDate,
		ReminderLeadDays:   s.reminderLeadDays,
		ReminderLeadMiles:  s.reminderLeadMiles,
	}
}

// Deactivate soft-deletes the schedule.
func (s *Schedule) Deactivate() {
	s.isActive = false
	s.updatedAt = time.Now().UTC()
}

// ApplyDue writes the computed next-due point onto the schedule.
func (s *Schedule) ApplyDue(due ScheduleDue) {
	s.nextDueMileage = due.NextDueMileage
	s.nextDueDate = due.NextDueDate
}
