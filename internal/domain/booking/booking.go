package booking

import (
	"strings"
	"time"

	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
)

// Address is the service location. Coordinates are nil until resolved.
type Address struct {
	Street string   `json:"street"`
	City   string   `json:"city"`
	State  string   `json:"state"`
	Zip    string   `json:"zip"`
	Lat    *float64 `json:"lat,omitempty"`
	Lng    *float64 `json:"lng,omitempty"`
}

// HasCoordinates reports whether both lat and lng are resolved.
func (a Address) HasCoordinates() bool {
	return a.Lat != nil && a.Lng != nil
}

// Line renders the address as a single geocodable line.
func (a Address) Line() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, a.City, a.State, a.Zip} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// ServiceSnapshot freezes the catalog service as it was when booked.
type ServiceSnapshot struct {
	ServiceID       string `json:"service_id"`
	Category        string `json:"category"`
	Title           string `json:"title"`
	PriceCents      int64  `json:"price_cents"`
	DurationMinutes int    `json:"duration_minutes"`
}

// VehicleSnapshot freezes the vehicle as it was when booked.
type VehicleSnapshot struct {
	Year    int    `json:"year"`
	Make    string `json:"make"`
	Model   string `json:"model"`
	VIN     string `json:"vin,omitempty"`
	Mileage int    `json:"mileage"`
}

// Booking is the aggregate root for one requested service instance.
type Booking struct {
	id              uuid.UUID
	customerID      string
	technicianID    *string
	vehicleID       uuid.UUID
	serviceID       string
	serviceSnapshot ServiceSnapshot
	vehicleSnapshot VehicleSnapshot
	scheduledAt     time.Time
	status          BookingStatus
	address         Address
	totalPriceCents int64
	jobID           *uuid.UUID
	notes           string

	completedAt *time.Time
	cancelledAt *time.Time

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewBooking creates a new Booking aggregate with status=pending.
func NewBooking(
	customerID string,
	vehicleID uuid.UUID,
	service ServiceSnapshot,
	vehicle VehicleSnapshot,
	scheduledAt time.Time,
	address Address,
	notes string,
) (*Booking, error) {
	if customerID == "" {
		return nil, domain.NewValidationError("customer ID is required")
	}
	if vehicleID == uuid.Nil {
		return nil, domain.NewValidationError("vehicle ID is required")
	}
	if service.ServiceID == "" || service.Title == "" {
		return nil, domain.NewValidationError("service is required")
	}
	if service.PriceCents < 0 {
		return nil, domain.NewValidationError("service price must not be negative")
	}
	if scheduledAt.IsZero() {
		return nil, domain.NewValidationError("scheduled time is required")
	}
	if strings.TrimSpace(address.Street) == "" {
		return nil, domain.NewValidationError("service address is required")
	}

	now := time.Now().UTC()
	return &Booking{
		id:              uuid.New(),
		customerID:      customerID,
		vehicleID:       vehicleID,
		serviceID:       service.ServiceID,
		serviceSnapshot: service,
		vehicleSnapshot: vehicle,
		scheduledAt:     scheduledAt.UTC(),
		status:          StatusPending,
		address:         address,
		totalPriceCents: service.PriceCents,
		notes:           notes,
		version:         1,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id uuid.UUID,
	customerID string,
	technicianID *string,
	vehicleID uuid.UUID,
	serviceID string,
	serviceSnapshot ServiceSnapshot,
	vehicleSnapshot VehicleSnapshot,
	scheduledAt time.Time,
	status BookingStatus,
	address Address,
	totalPriceCents int64,
	jobID *uuid.UUID,
	notes string,
	completedAt *time.Time,
	cancelledAt *time.Time,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Booking {
	return &Booking{
		id:              id,
		customerID:      customerID,
		technicianID:    technicianID,
		vehicleID:       vehicleID,
		serviceID:       serviceID,
		serviceSnapshot: serviceSnapshot,
		vehicleSnapshot: vehicleSnapshot,
		scheduledAt:     scheduledAt,
		status:          status,
		address:         address,
		totalPriceCents: totalPriceCents,
		jobID:           jobID,
		notes:           notes,
		completedAt:     completedAt,
		cancelledAt:     cancelledAt,
		version:         version,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// CustomerID returns the booking customer's identity.
func (b *Booking) CustomerID() string { return b.customerID }

// TechnicianID returns the assigned technician, or nil while pending.
func (b *Booking) TechnicianID() *string { return b.technicianID }

// VehicleID returns the serviced vehicle.
func (b *Booking) VehicleID() uuid.UUID { return b.vehicleID }

// ServiceID returns the catalog service id.
func (b *Booking) ServiceID() string { return b.serviceID }

// ServiceSnapshot returns the service as booked.
func (b *Booking) ServiceSnapshot() ServiceSnapshot { return b.serviceSnapshot }

// VehicleSnapshot returns the vehicle as booked.
func (b *Booking) VehicleSnapshot() VehicleSnapshot { return b.vehicleSnapshot }

// ScheduledAt returns the appointment time.
func (b *Booking) ScheduledAt() time.Time { return b.scheduledAt }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// Address returns the service location.
func (b *Booking) Address() Address { return b.address }

// TotalPriceCents returns the price in minor currency units.
func (b *Booking) TotalPriceCents() int64 { return b.totalPriceCents }

// JobID returns the job created at acceptance, or nil.
func (b *Booking) JobID() *uuid.UUID { return b.jobID }

// Notes returns the customer's notes.
func (b *Booking) Notes() string { return b.notes }

// CompletedAt returns when the booking reached complete.
func (b *Booking) CompletedAt() *time.Time { return b.completedAt }

// CancelledAt returns when the booking was cancelled.
func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// --- Behavior ---

// IsCustomer reports whether userID is the booking's customer.
func (b *Booking) IsCustomer(userID string) bool {
	return userID != "" && b.customerID == userID
}

// IsTechnician reports whether userID is the assigned technician.
func (b *Booking) IsTechnician(userID string) bool {
	return userID != "" && b.technicianID != nil && *b.technicianID == userID
}

// IsParty reports whether userID is the customer or the assigned technician.
func (b *Booking) IsParty(userID string) bool {
	return b.IsCustomer(userID) || b.IsTechnician(userID)
}

// Accept moves a pending booking to accepted, stamping the technician and the new job.
// The job id is set exactly once.
func (b *Booking) Accept(technicianID string, jobID uuid.UUID) error {
	if b.status != StatusPending {
		return domain.NewInvalidStateError(string(b.status), string(StatusAccepted))
	}
	if b.jobID != nil || b.technicianID != nil {
		return domain.NewConflictError("booking already accepted")
	}
	if technicianID == "" {
		return domain.NewValidationError("technician ID is required")
	}
	if jobID == uuid.Nil {
		return domain.NewValidationError("job ID is required")
	}
	tech := technicianID
	b.technicianID = &tech
	b.jobID = &jobID
	b.status = StatusAccepted
	b.updatedAt = time.Now().UTC()
	return nil
}

// Advance moves the booking forward to target. Acceptance goes through Accept.
func (b *Booking) Advance(target BookingStatus) error {
	if target == StatusAccepted || !b.status.CanAdvanceTo(target) {
		return domain.NewInvalidStateError(string(b.status), string(target))
	}
	now := time.Now().UTC()
	b.status = target
	if target == StatusComplete {
		b.completedAt = &now
	}
	b.updatedAt = now
	return nil
}

// Cancel transitions a pending booking to cancelled.
func (b *Booking) Cancel() error {
	if !b.status.CanBeCancelled() {
		return domain.NewInvalidStateError(string(b.status), string(StatusCancelled))
	}
	now := time.Now().UTC()
	b.status = StatusCancelled
	b.cancelledAt = &now
	b.updatedAt = now
	return nil
}

// SetCoordinates records resolved coordinates on the address.
func (b *Booking) SetCoordinates(lat, lng float64) {
	b.address.Lat = &lat
	b.address.Lng = &lng
	b.updatedAt = time.Now().UTC()
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
	b.updatedAt = time.Now().UTC()
}
