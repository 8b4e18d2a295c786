package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	bookingDomain "github.com/fixmate/service-marketplace/internal/domain/booking"
	historyDomain "github.com/fixmate/service-marketplace/internal/domain/history"
	"github.com/fixmate/service-marketplace/internal/domain/notification"
	vehicleDomain "github.com/fixmate/service-marketplace/internal/domain/vehicle"
	"github.com/fixmate/service-marketplace/internal/platform/async"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/fixmate/service-marketplace/internal/platform/kafka"
	"github.com/fixmate/service-marketplace/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	customerID = "cust-1"
	techID     = "tech-1"
	otherTech  = "tech-2"
	strangerID = "user-9"
)

type harness struct {
	store     *memory.Store
	bookings  *memory.BookingRepository
	jobs      *memory.JobRepository
	vehicles  *memory.VehicleRepository
	schedules *memory.ScheduleRepository
	history   *memory.RecordRepository
	notes     *memory.NotificationRepository
	messages  *memory.MessageRepository
	runner    *async.Runner
	publisher *recordingPublisher
	notifier  *recordingNotifier
	logger    *zap.Logger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.NewStore()
	h := &harness{
		store:     store,
		bookings:  memory.NewBookingRepository(store),
		jobs:      memory.NewJobRepository(store),
		vehicles:  memory.NewVehicleRepository(store),
		schedules: memory.NewScheduleRepository(store),
		history:   memory.NewRecordRepository(store),
		notes:     memory.NewNotificationRepository(store),
		messages:  memory.NewMessageRepository(store),
		runner:    async.NewRunner(zap.NewNop(), 5*time.Second),
		publisher: &recordingPublisher{},
		notifier:  &recordingNotifier{},
		logger:    zap.NewNop(),
	}
	t.Cleanup(h.runner.Wait)
	return h
}

// statusService builds a StatusService; nil history/vehicles use the harness repos.
func (h *harness) statusService(history historyDomain.RecordRepository, vehicles vehicleDomain.VehicleRepository, geocoder Geocoder) *StatusService {
	if history == nil {
		history = h.history
	}
	if vehicles == nil {
		vehicles = h.vehicles
	}
	return NewStatusService(h.bookings, vehicles, history, nil, geocoder, h.publisher, h.notifier, h.runner, h.logger)
}

func (h *harness) seedVehicle(t *testing.T, ownerID string, mileage int) *vehicleDomain.Vehicle {
	t.Helper()
	v, err := vehicleDomain.NewVehicle(ownerID, 2019, "Honda", "Civic", "EX", "1HGCM82633A004352", domain.Some(mileage))
	require.NoError(t, err)
	require.NoError(t, h.vehicles.Save(context.Background(), v))
	return v
}

// seedBooking stores a pending booking for a fresh vehicle of the customer.
func (h *harness) seedBooking(t *testing.T, addr bookingDomain.Address) *bookingDomain.Booking {
	t.Helper()
	v := h.seedVehicle(t, customerID, 42000)
	b, err := bookingDomain.NewBooking(
		customerID,
		v.ID(),
		bookingDomain.ServiceSnapshot{ServiceID: "svc-brakes", Category: "mechanic", Title: "Brake pads", PriceCents: 24900, DurationMinutes: 90},
		bookingDomain.VehicleSnapshot{Year: 2019, Make: "Honda", Model: "Civic", Mileage: 42000},
		time.Now().Add(48*time.Hour),
		addr,
		"",
	)
	require.NoError(t, err)
	require.NoError(t, h.bookings.Save(context.Background(), b))
	return b
}

func resolvedAddress() bookingDomain.Address {
	lat, lng := 30.2672, -97.7431
	return bookingDomain.Address{Street: "1 Main St", City: "Austin", State: "TX", Zip: "78701", Lat: &lat, Lng: &lng}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.CloudEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, _ string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type sentNotification struct {
	userID string
	kind   notification.Kind
	title  string
	data   map[string]string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(_ context.Context, userID string, kind notification.Kind, title, _ string, data map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{userID: userID, kind: kind, title: title, data: data})
	return nil
}

func (n *recordingNotifier) all() []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentNotification(nil), n.sent...)
}

type failingHistory struct {
	historyDomain.RecordRepository
}

func (failingHistory) Create(context.Context, *historyDomain.Record) error {
	return errors.New("history store unavailable")
}

type failingVehicleWrites struct {
	vehicleDomain.VehicleRepository
}

func (failingVehicleWrites) Update(context.Context, *vehicleDomain.Vehicle) error {
	return errors.New("vehicle store unavailable")
}

type stubGeocoder struct {
	lat, lng float64
	ok       bool
	calls    int
	mu       sync.Mutex
}

func (g *stubGeocoder) Geocode(context.Context, string) (float64, float64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.lat, g.lng, g.ok
}

func mustUUID(t *testing.T, id *uuid.UUID) uuid.UUID {
	t.Helper()
	require.NotNil(t, id)
	return *id
}
