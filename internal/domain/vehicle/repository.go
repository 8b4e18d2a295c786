package vehicle

import (
	"context"

	"github.com/google/uuid"
)

// VehicleRepository defines persistence operations for vehicles.
type VehicleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Vehicle, error)
	FindByOwnerID(ctx context.Context, ownerID string) ([]*Vehicle, error)
	Save(ctx context.Context, v *Vehicle) error
	// Update persists changes with optimistic locking on version.
	Update(ctx context.Context, v *Vehicle) error
}
