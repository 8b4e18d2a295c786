package application

import (
	"context"
	"fmt"

	bookingDomain "github.com/fixmate/service-marketplace/internal/domain/booking"
	"github.com/fixmate/service-marketplace/internal/domain/maintenance"
	vehicleDomain "github.com/fixmate/service-marketplace/internal/domain/vehicle"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecomputeResult summarizes one health recompute.
type RecomputeResult struct {
	VehicleID        uuid.UUID              `json:"vehicle_id"`
	SchedulesUpdated int                    `json:"schedules_updated"`
	AlertLevel       maintenance.AlertLevel `json:"alert_level"`
}

// HealthService recomputes and serves vehicle maintenance health.
type HealthService struct {
	bookings  bookingDomain.BookingRepository
	vehicles  vehicleDomain.VehicleRepository
	schedules maintenance.ScheduleRepository
	clock     Clock
	logger    *zap.Logger
}

// NewHealthService creates a HealthService. A nil clock uses the system time.
func NewHealthService(
	bookings bookingDomain.BookingRepository,
	vehicles vehicleDomain.VehicleRepository,
	schedules maintenance.ScheduleRepository,
	clock Clock,
	logger *zap.Logger,
) *HealthService {
	if clock == nil {
		clock = systemClock
	}
	return &HealthService{bookings: bookings, vehicles: vehicles, schedules: schedules, clock: clock, logger: logger}
}

// RecomputeVehicleHealth recomputes every active schedule's next-due point and
// replaces the vehicle's health snapshot, all in one atomic commit.
func (s *HealthService) RecomputeVehicleHealth(ctx context.Context, vehicleID uuid.UUID) (*RecomputeResult, error) {
	v, err := s.vehicles.FindByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	schedules, err := s.schedules.FindActiveByVehicleID(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedules: %w", err)
	}

	assessment := maintenance.ComputeHealth(
		v.ID(),
		v.OwnerID(),
		v.CurrentMileage().OrElse(0),
		schedules,
		s.clock(),
	)

	if err := s.schedules.CommitHealth(ctx, assessment.Updates, assessment.Snapshot); err != nil {
		s.logger.Error("failed to commit vehicle health",
			zap.String("vehicle_id", vehicleID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to commit vehicle health: %w", err)
	}

	s.logger.Info("vehicle health recomputed",
		zap.String("vehicle_id", vehicleID.String()),
		zap.Int("schedules_updated", len(assessment.Updates)),
		zap.String("alert_level", string(assessment.Snapshot.AlertLevel)),
	)
	return &RecomputeResult{
		VehicleID:        vehicleID,
		SchedulesUpdated: len(assessment.Updates),
		AlertLevel:       assessment.Snapshot.AlertLevel,
	}, nil
}

// RecomputeForBooking recomputes the health of the vehicle a booking was for.
// Payment capture triggers it.
func (s *HealthService) RecomputeForBooking(ctx context.Context, bookingID uuid.UUID) (*RecomputeResult, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return s.RecomputeVehicleHealth(ctx, bk.VehicleID())
}

// GetHealth returns the latest snapshot. Only the owner may read it.
func (s *HealthService) GetHealth(ctx context.Context, ownerID string, vehicleID uuid.UUID) (*maintenance.HealthSnapshot, error) {
	if _, err := loadOwnedVehicle(ctx, s.vehicles, ownerID, vehicleID); err != nil {
		return nil, err
	}
	return s.schedules.FindSnapshot(ctx, vehicleID)
}

// RecomputeOwned runs RecomputeVehicleHealth after checking that ownerID owns the vehicle.
func (s *HealthService) RecomputeOwned(ctx context.Context, ownerID string, vehicleID uuid.UUID) (*RecomputeResult, error) {
	if _, err := loadOwnedVehicle(ctx, s.vehicles, ownerID, vehicleID); err != nil {
		return nil, err
	}
	return s.RecomputeVehicleHealth(ctx, vehicleID)
}
