package memory

import (
	"context"
	"sort"
	"time"

	"github.com/fixmate/service-marketplace/internal/domain/booking"
	"github.com/fixmate/service-marketplace/internal/domain/job"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
)

// BookingRepository is the in-memory booking.BookingRepository.
type BookingRepository struct {
	s *Store
}

// NewBookingRepository creates a BookingRepository over s.
func NewBookingRepository(s *Store) *BookingRepository {
	return &BookingRepository{s: s}
}

// FindByID retrieves a booking by its unique identifier.
func (r *BookingRepository) FindByID(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	return cloneBooking(b), nil
}

// FindByCustomerID retrieves a customer's bookings, newest first.
func (r *BookingRepository) FindByCustomerID(_ context.Context, customerID string, page, limit int) ([]*booking.Booking, int64, error) {
	return r.list(func(b *booking.Booking) bool { return b.CustomerID() == customerID }, page, limit, false)
}

// FindByTechnicianID retrieves a technician's bookings, newest first.
func (r *BookingRepository) FindByTechnicianID(_ context.Context, technicianID string, page, limit int) ([]*booking.Booking, int64, error) {
	return r.list(func(b *booking.Booking) bool { return b.IsTechnician(technicianID) }, page, limit, false)
}

// FindOpen retrieves pending bookings, soonest appointment first.
func (r *BookingRepository) FindOpen(_ context.Context, page, limit int) ([]*booking.Booking, int64, error) {
	return r.list(func(b *booking.Booking) bool { return b.Status() == booking.StatusPending }, page, limit, true)
}

// ListAll retrieves every booking, newest first.
func (r *BookingRepository) ListAll(_ context.Context, page, limit int) ([]*booking.Booking, int64, error) {
	return r.list(func(*booking.Booking) bool { return true }, page, limit, false)
}

// CountByStatus returns booking counts grouped by status.
func (r *BookingRepository) CountByStatus(_ context.Context) (map[string]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := make(map[string]int64)
	for _, b := range r.s.bookings {
		counts[string(b.Status())]++
	}
	return counts, nil
}

// Save persists a new booking.
func (r *BookingRepository) Save(_ context.Context, b *booking.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.bookings[b.ID()]; exists {
		return domain.NewConflictError("booking already exists")
	}
	r.s.bookings[b.ID()] = cloneBooking(b)
	return nil
}

// Update persists b if the stored version is the one b was loaded at. Stored
// coordinates survive, since only UpdateAddress writes them.
func (r *BookingRepository) Update(_ context.Context, b *booking.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.bookings[b.ID()]
	if !ok {
		return domain.NewNotFoundError("Booking", b.ID().String())
	}
	if stored.Version() != b.Version()-1 {
		return domain.NewConflictError("booking was modified by another request")
	}
	next := cloneBooking(b)
	if addr := stored.Address(); addr.Lat != nil && addr.Lng != nil {
		next.SetCoordinates(*addr.Lat, *addr.Lng)
	}
	r.s.bookings[b.ID()] = next
	return nil
}

// SaveAcceptance stores the job and the accepted booking together, or neither.
func (r *BookingRepository) SaveAcceptance(_ context.Context, b *booking.Booking, j *job.Job) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.bookings[b.ID()]
	if !ok {
		return domain.NewNotFoundError("Booking", b.ID().String())
	}
	if stored.Version() != b.Version()-1 || stored.TechnicianID() != nil {
		return domain.NewConflictError("booking already accepted")
	}
	if _, exists := r.s.jobs[j.ID()]; exists {
		return domain.NewConflictError("job already exists")
	}
	r.s.jobs[j.ID()] = cloneJob(j)
	r.s.bookings[b.ID()] = cloneBooking(b)
	return nil
}

// UpdateAddress overwrites only the address.
func (r *BookingRepository) UpdateAddress(_ context.Context, id uuid.UUID, address booking.Address) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.bookings[id]
	if !ok {
		return domain.NewNotFoundError("Booking", id.String())
	}
	next := cloneBooking(stored)
	if address.Lat != nil && address.Lng != nil {
		next.SetCoordinates(*address.Lat, *address.Lng)
	}
	r.s.bookings[id] = next
	return nil
}

func (r *BookingRepository) list(match func(*booking.Booking) bool, page, limit int, bySchedule bool) ([]*booking.Booking, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*booking.Booking
	for _, b := range r.s.bookings {
		if match(b) {
			out = append(out, cloneBooking(b))
		}
	}
	if bySchedule {
		sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledAt().Before(out[j].ScheduledAt()) })
	} else {
		newestFirst(out,
			func(b *booking.Booking) time.Time { return b.CreatedAt() },
			func(b *booking.Booking) uuid.UUID { return b.ID() },
		)
	}
	return paginate(out, page, limit), int64(len(out)), nil
}
