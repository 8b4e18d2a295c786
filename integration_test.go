//go:build integration

package main_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fixmate/service-marketplace/internal/application"
	bookingDomain "github.com/fixmate/service-marketplace/internal/domain/booking"
	"github.com/fixmate/service-marketplace/internal/domain/maintenance"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/fixmate/service-marketplace/internal/proto/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAcceptanceRace_SingleWinner fires concurrent accepts from different
// technicians at one pending booking. Exactly one wins, every other caller gets
// a conflict, and exactly one job exists.
func TestAcceptanceRace_SingleWinner(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()

	stack := setupStack(t, db, nil)
	defer stack.Runner.Wait()

	v := seedVehicleWithSchedule(t, stack, "cust-1", 42000)
	bk := seedPendingBooking(t, stack, v)

	const contenders = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []*application.TransitionResult
		errs    []error
	)
	start := make(chan struct{})
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(tech string) {
			defer wg.Done()
			<-start
			res, err := stack.Status.Transition(context.Background(), bk.ID(), tech, bookingDomain.StatusAccepted, application.TransitionOptions{})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			winners = append(winners, res)
		}("tech-" + uuid.NewString()[:8])
	}
	close(start)
	wg.Wait()

	require.Len(t, winners, 1)
	require.Len(t, errs, contenders-1)
	for _, err := range errs {
		assert.True(t, domain.IsConflict(err), "loser should see a conflict, got %v", err)
	}

	stored, err := stack.Bookings.FindByID(context.Background(), bk.ID())
	require.NoError(t, err)
	assert.Equal(t, bookingDomain.StatusAccepted, stored.Status())
	require.NotNil(t, stored.JobID())
	assert.Equal(t, *winners[0].JobID, *stored.JobID())

	n, err := stack.Jobs.CountByBookingID(context.Background(), bk.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// TestComplete_WritesHistoryOnce drives a booking to complete and checks the
// service history and vehicle mileage written as side effects.
func TestComplete_WritesHistoryOnce(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()

	stack := setupStack(t, db, nil)
	v := seedVehicleWithSchedule(t, stack, "cust-1", 42000)
	bk := seedPendingBooking(t, stack, v)
	ctx := context.Background()

	_, err := stack.Status.Transition(ctx, bk.ID(), "tech-1", bookingDomain.StatusAccepted, application.TransitionOptions{})
	require.NoError(t, err)
	_, err = stack.Status.Transition(ctx, bk.ID(), "tech-1", bookingDomain.StatusComplete, application.TransitionOptions{
		TechNotes:        "Replaced filter",
		MileageAtService: domain.Some(42150),
	})
	require.NoError(t, err)
	stack.Runner.Wait()

	var count int64
	require.NoError(t, db.Table("service_history").Where("booking_id = ?", bk.ID()).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	stored, err := stack.Vehicles.FindByID(ctx, v.ID())
	require.NoError(t, err)
	assert.Equal(t, 42150, stored.CurrentMileage().OrElse(0))
	require.NotNil(t, stored.LastServiceDate())
}

// TestStatusTransition_PublishesEvent verifies that an accepted booking is
// announced on booking.events.
func TestStatusTransition_PublishesEvent(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()

	v := seedVehicleWithSchedule(t, stack, "cust-1", 42000)
	bk := seedPendingBooking(t, stack, v)

	res, err := stack.Status.Transition(context.Background(), bk.ID(), "tech-1", bookingDomain.StatusAccepted, application.TransitionOptions{})
	require.NoError(t, err)
	stack.Runner.Wait()

	ce := consumeOneEvent(t, infra.KafkaBrokers, events.TopicBookingEvents,
		events.BookingStatusChanged, 15*time.Second)

	var changed events.BookingStatusChangedEvent
	require.NoError(t, ce.ParseData(&changed))
	assert.Equal(t, bk.ID(), changed.BookingID)
	assert.Equal(t, "pending", changed.FromStatus)
	assert.Equal(t, "accepted", changed.ToStatus)
	require.NotNil(t, changed.TechnicianID)
	assert.Equal(t, "tech-1", *changed.TechnicianID)
	assert.Equal(t, res.JobID, changed.JobID)
}

// TestPaymentCaptured_RecomputesVehicleHealth verifies that a payment.captured
// event on payment.events recomputes the serviced vehicle's health.
func TestPaymentCaptured_RecomputesVehicleHealth(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	v := seedVehicleWithSchedule(t, stack, "cust-1", 44800)
	bk := seedPendingBooking(t, stack, v)

	// Start the consumer.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	evt := events.PaymentCapturedEvent{
		PaymentID:   "pay_" + uuid.NewString()[:8],
		BookingID:   bk.ID(),
		AmountCents: 7900,
		Currency:    "USD",
		CapturedAt:  time.Now().UTC(),
	}
	publishTestEvent(t, infra.KafkaBrokers, events.TopicPaymentEvents,
		"service-payment", events.PaymentCaptured, evt)

	snap := waitForSnapshot(t, stack.Schedules, v.ID(), 15*time.Second)
	assert.Equal(t, maintenance.AlertSoon, snap.AlertLevel)
	require.Len(t, snap.UpcomingServices, 1)
	assert.Equal(t, 45000, snap.UpcomingServices[0].NextDueMileage.OrElse(0))
	assert.Equal(t, 200, snap.UpcomingServices[0].MilesUntilDue.OrElse(0))

	schedules, err := stack.Schedules.FindActiveByVehicleID(context.Background(), v.ID())
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, 45000, schedules[0].NextDueMileage().OrElse(0))
}
