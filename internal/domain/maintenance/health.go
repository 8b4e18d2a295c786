package maintenance

import (
	"math"
	"time"

	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
)

// Urgency classifies how close one schedule is to its due point.
type Urgency string

const (
	UrgencyRoutine Urgency = "routine"
	UrgencySoon    Urgency = "soon"
	UrgencyOverdue Urgency = "overdue"
)

func (u Urgency) severity() int {
	switch u {
	case UrgencyOverdue:
		return 2
	case UrgencySoon:
		return 1
	default:
		return 0
	}
}

// AlertLevel is the most severe urgency across a vehicle's schedules.
type AlertLevel string

const (
	AlertNone    AlertLevel = "none"
	AlertSoon    AlertLevel = "soon"
	AlertOverdue AlertLevel = "overdue"
)

// IsValid returns true if a is a known alert level.
func (a AlertLevel) IsValid() bool {
	switch a {
	case AlertNone, AlertSoon, AlertOverdue:
		return true
	}
	return false
}

func alertFor(u Urgency) AlertLevel {
	switch u {
	case UrgencyOverdue:
		return AlertOverdue
	case UrgencySoon:
		return AlertSoon
	default:
		return AlertNone
	}
}

// ScheduleDue is the computed next-due point written back to one schedule.
type ScheduleDue struct {
	ScheduleID     uuid.UUID
	NextDueMileage domain.Optional[int]
	NextDueDate    domain.Optional[time.Time]
}

// UpcomingService is one schedule's entry in the health snapshot.
type UpcomingService struct {
	ScheduleID     uuid.UUID                  `json:"schedule_id"`
	ServiceType    string                     `json:"service_type"`
	Label          string                     `json:"label"`
	NextDueMileage domain.Optional[int]       `json:"next_due_mileage"`
	NextDueDate    domain.Optional[time.Time] `json:"next_due_date"`
	DaysUntilDue   domain.Optional[int]       `json:"days_until_due"`
	MilesUntilDue  domain.Optional[int]       `json:"miles_until_due"`
	Urgency        Urgency                    `json:"urgency"`
}

// HealthSnapshot is the per-vehicle summary. It is replaced wholesale on every recompute.
type HealthSnapshot struct {
	VehicleID        uuid.UUID         `json:"vehicle_id"`
	OwnerID          string            `json:"owner_id"`
	AlertLevel       AlertLevel        `json:"alert_level"`
	UpcomingServices []UpcomingService `json:"upcoming_services"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Assessment is the full output of one health computation.
type Assessment struct {
	Updates  []ScheduleDue
	Snapshot HealthSnapshot
}

// ComputeHealth derives next-due points, urgencies and the aggregate alert level
// for a vehicle. It is pure: the same inputs and clock give the same output.
func ComputeHealth(vehicleID uuid.UUID, ownerID string, currentMileage int, schedules []*Schedule, now time.Time) Assessment {
	now = now.UTC()
	out := Assessment{
		Updates: make([]ScheduleDue, 0, len(schedules)),
		Snapshot: HealthSnapshot{
			VehicleID:        vehicleID,
			OwnerID:          ownerID,
			AlertLevel:       AlertNone,
			UpcomingServices: make([]UpcomingService, 0, len(schedules)),
			UpdatedAt:        now,
		},
	}

	worst := UrgencyRoutine
	for _, s := range schedules {
		entry := evaluate(s, currentMileage, now)
		out.Updates = append(out.Updates, ScheduleDue{
			ScheduleID:     s.ID(),
			NextDueMileage: entry.NextDueMileage,
			NextDueDate:    entry.NextDueDate,
		})
		out.Snapshot.UpcomingServices = append(out.Snapshot.UpcomingServices, entry)
		if entry.Urgency.severity() > worst.severity() {
			worst = entry.Urgency
		}
	}
	out.Snapshot.AlertLevel = alertFor(worst)
	return out
}

func evaluate(s *Schedule, currentMileage int, now time.Time) UpcomingService {
	entry := UpcomingService{
		ScheduleID:  s.ID(),
		ServiceType: s.ServiceType(),
		Label:       s.Label(),
		Urgency:     UrgencyRoutine,
	}

	interval, hasInterval := s.IntervalMiles().Get()
	last, hasLast := s.LastServiceMileage().Get()
	if hasInterval && hasLast {
		due := last + interval
		entry.NextDueMileage = domain.Some(due)
		entry.MilesUntilDue = domain.Some(due - currentMileage)
	}

	days, hasDays := s.IntervalDays().Get()
	lastDate, hasLastDate := s.LastServiceDate().Get()
	if hasDays && hasLastDate {
		due := lastDate.UTC().AddDate(0, 0, days)
		entry.NextDueDate = domain.Some(due)
		entry.DaysUntilDue = domain.Some(int(math.Floor(due.Sub(now).Hours() / 24)))
	}

	leadDays := s.ReminderLeadDays().OrElse(DefaultReminderLeadDays)
	leadMiles := s.ReminderLeadMiles().OrElse(DefaultReminderLeadMiles)
	milesLeft, hasMiles := entry.MilesUntilDue.Get()
	daysLeft, hasDaysLeft := entry.DaysUntilDue.Get()

	switch {
	case (hasMiles && milesLeft < 0) || (hasDaysLeft && daysLeft < 0):
		entry.Urgency = UrgencyOverdue
	case (hasMiles && milesLeft < leadMiles) || (hasDaysLeft && daysLeft < leadDays):
		entry.Urgency = UrgencySoon
	}
	return entry
}
