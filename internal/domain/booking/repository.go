package booking

import (
	"context"

	"github.com/fixmate/service-marketplace/internal/domain/job"
	"github.com/google/uuid"
)

// BookingRepository defines the persistence contract for booking aggregates.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByCustomerID retrieves bookings belonging to a customer with pagination.
	FindByCustomerID(ctx context.Context, customerID string, page, limit int) ([]*Booking, int64, error)

	// FindByTechnicianID retrieves bookings assigned to a technician with pagination.
	FindByTechnicianID(ctx context.Context, technicianID string, page, limit int) ([]*Booking, int64, error)

	// FindOpen retrieves pending bookings awaiting a technician, soonest first.
	FindOpen(ctx context.Context, page, limit int) ([]*Booking, int64, error)

	// ListAll retrieves all bookings with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Booking, int64, error)

	// CountByStatus returns booking counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Save persists a new booking.
	Save(ctx context.Context, booking *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	// A version mismatch is reported as a Conflict.
	Update(ctx context.Context, booking *Booking) error

	// SaveAcceptance atomically creates j and persists the accepted booking.
	// The write only lands if the stored booking is still unassigned at the expected
	// version; otherwise nothing is written and a Conflict is returned.
	SaveAcceptance(ctx context.Context, booking *Booking, j *job.Job) error

	// UpdateAddress overwrites only the address, leaving status and version untouched.
	UpdateAddress(ctx context.Context, id uuid.UUID, address Address) error
}
