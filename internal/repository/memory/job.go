package memory

import (
	"context"

	"github.com/fixmate/service-marketplace/internal/domain/job"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
)

// JobRepository is the in-memory job.JobRepository. Jobs are created by
// BookingRepository.SaveAcceptance.
type JobRepository struct {
	s *Store
}

// NewJobRepository creates a JobRepository over s.
func NewJobRepository(s *Store) *JobRepository {
	return &JobRepository{s: s}
}

// FindByID retrieves a job by its unique identifier.
func (r *JobRepository) FindByID(_ context.Context, id uuid.UUID) (*job.Job, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	j, ok := r.s.jobs[id]
	if !ok {
		return nil, domain.NewNotFoundError("Job", id.String())
	}
	return cloneJob(j), nil
}

// FindByBookingID retrieves the job created for a booking.
func (r *JobRepository) FindByBookingID(_ context.Context, bookingID uuid.UUID) (*job.Job, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, j := range r.s.jobs {
		if j.BookingID() == bookingID {
			return cloneJob(j), nil
		}
	}
	return nil, domain.NewNotFoundError("Job", "for booking "+bookingID.String())
}

// CountByBookingID counts jobs for a booking.
func (r *JobRepository) CountByBookingID(_ context.Context, bookingID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, j := range r.s.jobs {
		if j.BookingID() == bookingID {
			n++
		}
	}
	return n, nil
}

// Update persists j if the stored version is the one j was loaded at.
func (r *JobRepository) Update(_ context.Context, j *job.Job) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.jobs[j.ID()]
	if !ok {
		return domain.NewNotFoundError("Job", j.ID().String())
	}
	if stored.Version() != j.Version()-1 {
		return domain.NewConflictError("job was modified by another request")
	}
	r.s.jobs[j.ID()] = cloneJob(j)
	return nil
}
