package maintenance

import (
	"context"

	"github.com/google/uuid"
)

// ScheduleRepository defines persistence operations for maintenance schedules
// and the per-vehicle health snapshot.
type ScheduleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Schedule, error)
	// FindActiveByVehicleID returns active schedules ordered by creation time, then id.
	FindActiveByVehicleID(ctx context.Context, vehicleID uuid.UUID) ([]*Schedule, error)
	// ListVehiclesWithActiveSchedules returns the distinct vehicle ids the reminder sweep visits.
	ListVehiclesWithActiveSchedules(ctx context.Context) ([]uuid.UUID, error)
	Save(ctx context.Context, s *Schedule) error
	Update(ctx context.Context, s *Schedule) error

	// CommitHealth applies every due update and replaces the vehicle's snapshot
	// in one atomic unit.
	CommitHealth(ctx context.Context, updates []ScheduleDue, snapshot HealthSnapshot) error
	FindSnapshot(ctx context.Context, vehicleID uuid.UUID) (*HealthSnapshot, error)
}
