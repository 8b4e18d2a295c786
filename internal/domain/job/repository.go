package job

import (
	"context"

	"github.com/google/uuid"
)

// JobRepository defines persistence operations for jobs.
// Jobs are created together with booking acceptance (see booking.BookingRepository.SaveAcceptance).
type JobRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Job, error)
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*Job, error)
	CountByBookingID(ctx context.Context, bookingID uuid.UUID) (int64, error)
	Update(ctx context.Context, j *Job) error
}
