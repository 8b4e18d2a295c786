package memory

import (
	"context"
	"sort"

	"github.com/fixmate/service-marketplace/internal/domain/maintenance"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
)

// ScheduleRepository is the in-memory maintenance.ScheduleRepository.
type ScheduleRepository struct {
	s *Store
}

// NewScheduleRepository creates a ScheduleRepository over s.
func NewScheduleRepository(s *Store) *ScheduleRepository {
	return &ScheduleRepository{s: s}
}

// FindByID retrieves a schedule by its unique identifier.
func (r *ScheduleRepository) FindByID(_ context.Context, id uuid.UUID) (*maintenance.Schedule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sc, ok := r.s.schedules[id]
	if !ok {
		return nil, domain.NewNotFoundError("Schedule", id.String())
	}
	return cloneSchedule(sc), nil
}

// FindActiveByVehicleID lists a vehicle's active schedules, oldest first.
func (r *ScheduleRepository) FindActiveByVehicleID(_ context.Context, vehicleID uuid.UUID) ([]*maintenance.Schedule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*maintenance.Schedule{}
	for _, sc := range r.s.schedules {
		if sc.VehicleID() == vehicleID && sc.IsActive() {
			out = append(out, cloneSchedule(sc))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].CreatedAt(), out[j].CreatedAt()
		if !a.Equal(b) {
			return a.Before(b)
		}
		return out[i].ID().String() < out[j].ID().String()
	})
	return out, nil
}

// ListVehiclesWithActiveSchedules returns every vehicle with at least one active schedule.
func (r *ScheduleRepository) ListVehiclesWithActiveSchedules(_ context.Context) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	seen := make(map[uuid.UUID]bool)
	out := []uuid.UUID{}
	for _, sc := range r.s.schedules {
		if sc.IsActive() && !seen[sc.VehicleID()] {
			seen[sc.VehicleID()] = true
			out = append(out, sc.VehicleID())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// Save persists a new schedule.
func (r *ScheduleRepository) Save(_ context.Context, sc *maintenance.Schedule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.schedules[sc.ID()]; exists {
		return domain.NewConflictError("schedule already exists")
	}
	r.s.schedules[sc.ID()] = cloneSchedule(sc)
	return nil
}

// Update overwrites the client-writable fields and the active flag.
func (r *ScheduleRepository) Update(_ context.Context, sc *maintenance.Schedule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.schedules[sc.ID()]; !ok {
		return domain.NewNotFoundError("Schedule", sc.ID().String())
	}
	r.s.schedules[sc.ID()] = cloneSchedule(sc)
	return nil
}

// CommitHealth applies every update and replaces the snapshot, or changes nothing.
func (r *ScheduleRepository) CommitHealth(_ context.Context, updates []maintenance.ScheduleDue, snapshot maintenance.HealthSnapshot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	next := make(map[uuid.UUID]*maintenance.Schedule, len(updates))
	for _, u := range updates {
		sc, ok := r.s.schedules[u.ScheduleID]
		if !ok {
			return domain.NewNotFoundError("Schedule", u.ScheduleID.String())
		}
		c := cloneSchedule(sc)
		c.ApplyDue(u)
		next[u.ScheduleID] = c
	}
	for id, sc := range next {
		r.s.schedules[id] = sc
	}
	r.s.snapshots[snapshot.VehicleID] = cloneSnapshot(snapshot)
	return nil
}

// FindSnapshot returns the stored health snapshot for a vehicle.
func (r *ScheduleRepository) FindSnapshot(_ context.Context, vehicleID uuid.UUID) (*maintenance.HealthSnapshot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	snap, ok := r.s.snapshots[vehicleID]
	if !ok {
		return nil, domain.NewNotFoundError("VehicleHealthSnapshot", vehicleID.String())
	}
	out := cloneSnapshot(snap)
	return &out, nil
}
