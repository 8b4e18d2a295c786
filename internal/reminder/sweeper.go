// Package reminder runs the periodic maintenance sweep that recomputes vehicle
// health and notifies owners whose vehicles have services coming due.
package reminder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fixmate/service-marketplace/internal/application"
	"github.com/fixmate/service-marketplace/internal/domain/maintenance"
	"github.com/fixmate/service-marketplace/internal/domain/notification"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSpec runs the sweep every day at 9 AM.
const DefaultSpec = "0 9 * * *"

// ScheduleSource lists the vehicles to sweep and reads their fresh snapshots.
type ScheduleSource interface {
	ListVehiclesWithActiveSchedules(ctx context.Context) ([]uuid.UUID, error)
	FindSnapshot(ctx context.Context, vehicleID uuid.UUID) (*maintenance.HealthSnapshot, error)
}

// HealthRecomputer recomputes one vehicle's health.
type HealthRecomputer interface {
	RecomputeVehicleHealth(ctx context.Context, vehicleID uuid.UUID) (*application.RecomputeResult, error)
}

// RecallSource looks up open recall campaigns for a vehicle.
type RecallSource interface {
	RecallsForVehicle(ctx context.Context, vehicleID uuid.UUID) (*application.VehicleRecalls, error)
}

// Notifier delivers reminders. NotifyOnce skips users already holding a
// notification with the same dedupe key.
type Notifier interface {
	Notify(ctx context.Context, userID string, kind notification.Kind, title, body string, data map[string]string) error
	NotifyOnce(ctx context.Context, userID string, kind notification.Kind, title, body string, data map[string]string, dedupeKey string) (bool, error)
}

// Summary reports the outcome of one sweep.
type Summary struct {
	Vehicles     int
	Notified     int
	Failed       int
	RecallAlerts int
}

// Sweeper recomputes the health of every vehicle with active schedules and
// sends a reminder when anything is due soon or overdue.
type Sweeper struct {
	schedules ScheduleSource
	health    HealthRecomputer
	notifier  Notifier
	recalls   RecallSource
	timeout   time.Duration
	logger    *zap.Logger
	cron      *cron.Cron
}

// NewSweeper creates a Sweeper. timeout bounds a single sweep run by the scheduler.
func NewSweeper(schedules ScheduleSource, health HealthRecomputer, notifier Notifier, timeout time.Duration, logger *zap.Logger) *Sweeper {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Sweeper{
		schedules: schedules,
		health:    health,
		notifier:  notifier,
		timeout:   timeout,
		logger:    logger,
	}
}

// WithRecalls makes every sweep also alert owners to recall campaigns they
// have not been told about yet.
func (s *Sweeper) WithRecalls(recalls RecallSource) *Sweeper {
	s.recalls = recalls
	return s
}

// Start schedules the sweep on the given cron spec. An empty spec uses DefaultSpec.
func (s *Sweeper) Start(spec string) error {
	if spec == "" {
		spec = DefaultSpec
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, s.runScheduled); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("reminder scheduler started", zap.String("spec", spec))
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("reminder scheduler stopped")
}

func (s *Sweeper) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("reminder sweep failed", zap.Error(err))
	}
}

// RunOnce sweeps every vehicle once. A failure on one vehicle is logged and
// counted; only failing to list vehicles aborts the sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (Summary, error) {
	var summary Summary

	ids, err := s.schedules.ListVehiclesWithActiveSchedules(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list vehicles: %w", err)
	}
	summary.Vehicles = len(ids)

	for _, id := range ids {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		notified, err := s.sweepVehicle(ctx, id)
		if err != nil {
			summary.Failed++
			s.logger.Warn("reminder sweep skipped vehicle",
				zap.String("vehicle_id", id.String()),
				zap.Error(err),
			)
			continue
		}
		if notified {
			summary.Notified++
		}
		summary.RecallAlerts += s.alertRecalls(ctx, id)
	}

	s.logger.Info("reminder sweep finished",
		zap.Int("vehicles", summary.Vehicles),
		zap.Int("notified", summary.Notified),
		zap.Int("failed", summary.Failed),
		zap.Int("recall_alerts", summary.RecallAlerts),
	)
	return summary, nil
}

func (s *Sweeper) sweepVehicle(ctx context.Context, vehicleID uuid.UUID) (bool, error) {
	result, err := s.health.RecomputeVehicleHealth(ctx, vehicleID)
	if err != nil {
		return false, err
	}
	if result.AlertLevel == maintenance.AlertNone {
		return false, nil
	}

	snap, err := s.schedules.FindSnapshot(ctx, vehicleID)
	if err != nil {
		return false, err
	}

	title, body := reminderText(snap)
	err = s.notifier.Notify(ctx, snap.OwnerID, notification.KindMaintenanceReminder, title, body, map[string]string{
		"vehicle_id":  vehicleID.String(),
		"alert_level": string(snap.AlertLevel),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// alertRecalls notifies the owner of each recall campaign once per vehicle.
// Lookup failures are logged; they never fail the sweep.
func (s *Sweeper) alertRecalls(ctx context.Context, vehicleID uuid.UUID) int {
	if s.recalls == nil {
		return 0
	}
	vr, err := s.recalls.RecallsForVehicle(ctx, vehicleID)
	if err != nil {
		s.logger.Warn("recall lookup failed", zap.String("vehicle_id", vehicleID.String()), zap.Error(err))
		return 0
	}

	sent := 0
	for _, rc := range vr.Recalls {
		if rc.Campaign == "" {
			continue
		}
		title := fmt.Sprintf("Safety recall for your %s", vr.Name)
		body := rc.Component
		if rc.Summary != "" {
			body = rc.Component + ": " + rc.Summary
		}
		ok, err := s.notifier.NotifyOnce(ctx, vr.OwnerID, notification.KindRecall, title, body, map[string]string{
			"vehicle_id": vehicleID.String(),
			"campaign":   rc.Campaign,
		}, vehicleID.String()+"/"+rc.Campaign)
		if err != nil {
			s.logger.Warn("recall notification failed",
				zap.String("vehicle_id", vehicleID.String()),
				zap.String("campaign", rc.Campaign),
				zap.Error(err),
			)
			continue
		}
		if ok {
			sent++
		}
	}
	return sent
}

func reminderText(snap *maintenance.HealthSnapshot) (string, string) {
	var overdue, soon []string
	for _, u := range snap.UpcomingServices {
		switch u.Urgency {
		case maintenance.UrgencyOverdue:
			overdue = append(overdue, u.Label)
		case maintenance.UrgencySoon:
			soon = append(soon, u.Label)
		}
	}

	title := "Maintenance due soon"
	if snap.AlertLevel == maintenance.AlertOverdue {
		title = "Maintenance overdue"
	}

	var parts []string
	if len(overdue) > 0 {
		parts = append(parts, "Overdue: "+strings.Join(overdue, ", "))
	}
	if len(soon) > 0 {
		parts = append(parts, "Due soon: "+strings.Join(soon, ", "))
	}
	return title, strings.Join(parts, ". ")
}
