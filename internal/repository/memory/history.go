package memory

import (
	"context"
	"sort"

	"github.com/fixmate/service-marketplace/internal/domain/history"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
)

// RecordRepository is the in-memory history.RecordRepository.
type RecordRepository struct {
	s *Store
}

// NewRecordRepository creates a RecordRepository over s.
func NewRecordRepository(s *Store) *RecordRepository {
	return &RecordRepository{s: s}
}

// Create inserts rec unless its booking already has a record.
func (r *RecordRepository) Create(_ context.Context, rec *history.Record) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.history {
		if existing.BookingID() == rec.BookingID() {
			return domain.NewConflictError("service history already recorded for booking")
		}
	}
	r.s.history[rec.ID()] = history.Reconstruct(rec.ID(), rec.Params(), rec.CreatedAt())
	return nil
}

func (r *RecordRepository) FindByBookingID(_ context.Context, bookingID uuid.UUID) (*history.Record, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, rec := range r.s.history {
		if rec.BookingID() == bookingID {
			return rec, nil
		}
	}
	return nil, domain.NewNotFoundError("ServiceHistoryRecord", "for booking "+bookingID.String())
}

// FindByVehicleID returns the vehicle's records, most recent service first.
func (r *RecordRepository) FindByVehicleID(_ context.Context, vehicleID uuid.UUID, page, limit int) ([]*history.Record, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*history.Record{}
	for _, rec := range r.s.history {
		if rec.VehicleID() == vehicleID {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Date(), out[j].Date()
		if !a.Equal(b) {
			return a.After(b)
		}
		return out[i].ID().String() < out[j].ID().String()
	})
	return paginate(out, page, limit), int64(len(out)), nil
}
