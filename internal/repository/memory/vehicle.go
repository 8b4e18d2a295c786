package memory

import (
	"context"
	"time"

	"github.com/fixmate/service-marketplace/internal/domain/vehicle"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
)

// VehicleRepository is the in-memory vehicle.VehicleRepository.
type VehicleRepository struct {
	s *Store
}

// NewVehicleRepository creates a VehicleRepository over s.
func NewVehicleRepository(s *Store) *VehicleRepository {
	return &VehicleRepository{s: s}
}

func (r *VehicleRepository) FindByID(_ context.Context, id uuid.UUID) (*vehicle.Vehicle, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.vehicles[id]
	if !ok {
		return nil, domain.NewNotFoundError("Vehicle", id.String())
	}
	return cloneVehicle(v), nil
}

// FindByOwnerID returns the owner's vehicles, newest first.
func (r *VehicleRepository) FindByOwnerID(_ context.Context, ownerID string) ([]*vehicle.Vehicle, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*vehicle.Vehicle{}
	for _, v := range r.s.vehicles {
		if v.OwnerID() == ownerID {
			out = append(out, cloneVehicle(v))
		}
	}
	newestFirst(out,
		func(v *vehicle.Vehicle) time.Time { return v.CreatedAt() },
		func(v *vehicle.Vehicle) uuid.UUID { return v.ID() },
	)
	return out, nil
}

func (r *VehicleRepository) Save(_ context.Context, v *vehicle.Vehicle) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.vehicles[v.ID()]; exists {
		return domain.NewConflictError("vehicle already exists")
	}
	r.s.vehicles[v.ID()] = cloneVehicle(v)
	return nil
}

func (r *VehicleRepository) Update(_ context.Context, v *vehicle.Vehicle) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.vehicles[v.ID()]
	if !ok {
		return domain.NewNotFoundError("Vehicle", v.ID().String())
	}
	if stored.Version() != v.Version()-1 {
		return domain.NewConflictError("vehicle was modified by another request")
	}
	r.s.vehicles[v.ID()] = cloneVehicle(v)
	return nil
}
