// Package memory holds in-process repositories used by the memory store driver
// and by unit tests. Aggregates are copied on the way in and out, so a caller
// mutating a loaded aggregate never changes stored state until it writes back.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/fixmate/service-marketplace/internal/domain/booking"
	"github.com/fixmate/service-marketplace/internal/domain/chat"
	"github.com/fixmate/service-marketplace/internal/domain/history"
	"github.com/fixmate/service-marketplace/internal/domain/job"
	"github.com/fixmate/service-marketplace/internal/domain/maintenance"
	"github.com/fixmate/service-marketplace/internal/domain/notification"
	"github.com/fixmate/service-marketplace/internal/domain/vehicle"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
)

// Store is the shared state behind every memory repository. One mutex guards it
// all, which makes multi-aggregate writes atomic.
type Store struct {
	mu            sync.RWMutex
	bookings      map[uuid.UUID]*booking.Booking
	jobs          map[uuid.UUID]*job.Job
	vehicles      map[uuid.UUID]*vehicle.Vehicle
	schedules     map[uuid.UUID]*maintenance.Schedule
	snapshots     map[uuid.UUID]maintenance.HealthSnapshot
	history       map[uuid.UUID]*history.Record
	notifications map[uuid.UUID]*notification.Notification
	contacts      map[string]notification.Contact
	messages      []*chat.Message
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		bookings:      make(map[uuid.UUID]*booking.Booking),
		jobs:          make(map[uuid.UUID]*job.Job),
		vehicles:      make(map[uuid.UUID]*vehicle.Vehicle),
		schedules:     make(map[uuid.UUID]*maintenance.Schedule),
		snapshots:     make(map[uuid.UUID]maintenance.HealthSnapshot),
		history:       make(map[uuid.UUID]*history.Record),
		notifications: make(map[uuid.UUID]*notification.Notification),
		contacts:      make(map[string]notification.Contact),
	}
}

// paginate returns the 1-based page of items.
func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	start := domain.Offset(page, limit)
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// newestFirst sorts by creation time descending, breaking ties on id.
func newestFirst[T any](items []T, createdAt func(T) time.Time, id func(T) uuid.UUID) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := createdAt(items[i]), createdAt(items[j])
		if !a.Equal(b) {
			return a.After(b)
		}
		return id(items[i]).String() < id(items[j]).String()
	})
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneBooking(b *booking.Booking) *booking.Booking {
	addr := b.Address()
	addr.Lat, addr.Lng = copyPtr(addr.Lat), copyPtr(addr.Lng)
	return booking.ReconstructBooking(
		b.ID(),
		b.CustomerID(),
		copyPtr(b.TechnicianID()),
		b.VehicleID(),
		b.ServiceID(),
		b.ServiceSnapshot(),
		b.VehicleSnapshot(),
		b.ScheduledAt(),
		b.Status(),
		addr,
		b.TotalPriceCents(),
		copyPtr(b.JobID()),
		b.Notes(),
		copyPtr(b.CompletedAt()),
		copyPtr(b.CancelledAt()),
		b.Version(),
		b.CreatedAt(),
		b.UpdatedAt(),
	)
}

func cloneJob(j *job.Job) *job.Job {
	return job.Reconstruct(
		j.ID(), j.BookingID(),
		j.TechnicianID(), j.CustomerID(),
		j.CurrentStage(),
		j.Stages(),
		copyPtr(j.TechLocation()),
		copyPtr(j.Route()),
		copyPtr(j.StartedAt()), copyPtr(j.CompletedAt()),
		j.Version(),
		j.CreatedAt(), j.UpdatedAt(),
	)
}

func cloneVehicle(v *vehicle.Vehicle) *vehicle.Vehicle {
	return vehicle.Reconstruct(
		v.ID(), v.OwnerID(), v.Year(),
		v.Make(), v.Model(), v.Trim(), v.VIN(),
		v.CurrentMileage(),
		copyPtr(v.LastServiceDate()),
		copyPtr(v.LastServiceSnapshot()),
		v.Version(),
		v.CreatedAt(), v.UpdatedAt(),
	)
}

func cloneSchedule(s *maintenance.Schedule) *maintenance.Schedule {
	return maintenance.ReconstructSchedule(
		s.ID(), s.Params(), s.IsActive(),
		s.NextDueMileage(), s.NextDueDate(),
		s.CreatedAt(), s.UpdatedAt(),
	)
}

func cloneSnapshot(s maintenance.HealthSnapshot) maintenance.HealthSnapshot {
	s.UpcomingServices = append([]maintenance.UpcomingService(nil), s.UpcomingServices...)
	if s.UpcomingServices == nil {
		s.UpcomingServices = []maintenance.UpcomingService{}
	}
	return s
}

func cloneNotification(n *notification.Notification) *notification.Notification {
	data := make(map[string]string, len(n.Data()))
	for k, v := range n.Data() {
		data[k] = v
	}
	return notification.Reconstruct(n.ID(), n.UserID(), n.Kind(), n.Title(), n.Body(), data, copyPtr(n.ReadAt()), n.CreatedAt())
}
