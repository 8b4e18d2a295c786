package history

import (
	"context"

	"github.com/google/uuid"
)

// RecordRepository defines persistence operations for service history.
type RecordRepository interface {
	// Create inserts r. A second record for the same booking is rejected with a Conflict.
	Create(ctx context.Context, r *Record) error
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*Record, error)
	FindByVehicleID(ctx context.Context, vehicleID uuid.UUID, page, limit int) ([]*Record, int64, error)
}
