package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fixmate/service-marketplace/internal/application"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/fixmate/service-marketplace/internal/platform/kafka"
	"github.com/fixmate/service-marketplace/internal/proto/events"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRecomputer struct {
	calls []uuid.UUID
	err   error
}

func (s *stubRecomputer) RecomputeForBooking(_ context.Context, bookingID uuid.UUID) (*application.RecomputeResult, error) {
	s.calls = append(s.calls, bookingID)
	if s.err != nil {
		return nil, s.err
	}
	return &application.RecomputeResult{VehicleID: uuid.New()}, nil
}

func paymentMessage(t *testing.T, eventType string, data interface{}) kafkago.Message {
	t.Helper()
	ce, err := kafka.NewCloudEvent("payment-service", eventType, data)
	require.NoError(t, err)
	raw, err := json.Marshal(ce)
	require.NoError(t, err)
	return kafkago.Message{Topic: events.TopicPaymentEvents, Value: raw}
}

func TestPaymentEventConsumer_HandleMessage(t *testing.T) {
	bookingID := uuid.New()
	captured := events.PaymentCapturedEvent{PaymentID: "pay-1", BookingID: bookingID, AmountCents: 7900, Currency: "USD", CapturedAt: time.Now()}

	cases := []struct {
		name      string
		msg       func(t *testing.T) kafkago.Message
		recompute error
		wantErr   bool
		wantCalls int
	}{
		{"captured triggers recompute", func(t *testing.T) kafkago.Message { return paymentMessage(t, events.PaymentCaptured, captured) }, nil, false, 1},
		{"other types ignored", func(t *testing.T) kafkago.Message { return paymentMessage(t, "payment.refunded", captured) }, nil, false, 0},
		{"malformed envelope dropped", func(*testing.T) kafkago.Message { return kafkago.Message{Value: []byte("{not json")} }, nil, false, 0},
		{"unknown booking committed", func(t *testing.T) kafkago.Message { return paymentMessage(t, events.PaymentCaptured, captured) }, domain.NewNotFoundError("Booking", bookingID.String()), false, 1},
		{"store failure retried", func(t *testing.T) kafkago.Message { return paymentMessage(t, events.PaymentCaptured, captured) }, errors.New("db down"), true, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubRecomputer{err: tc.recompute}
			c := &PaymentEventConsumer{health: stub, logger: zap.NewNop()}

			err := c.handleMessage(context.Background(), tc.msg(t))
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.Len(t, stub.calls, tc.wantCalls)
			if tc.wantCalls > 0 {
				assert.Equal(t, bookingID, stub.calls[0])
			}
		})
	}
}

type stubLocationUpdater struct {
	mu    sync.Mutex
	calls []application.UpdateLocationRequest
	techs []string
	jobs  []uuid.UUID
}

func (s *stubLocationUpdater) UpdateLocation(_ context.Context, technicianID string, jobID uuid.UUID, req application.UpdateLocationRequest) (*application.JobDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	s.techs = append(s.techs, technicianID)
	s.jobs = append(s.jobs, jobID)
	return &application.JobDTO{ID: jobID}, nil
}

func TestLocationSubscriber_Handle(t *testing.T) {
	updater := &stubLocationUpdater{}
	s := &LocationSubscriber{updater: updater, timeout: time.Second, logger: zap.NewNop()}
	jobID := uuid.New()
	topic := "fixmate/jobs/" + jobID.String() + "/technicians/tech-1/location"

	s.handle(topic, []byte(`{"lat":30.27,"lng":-97.74,"recorded_at":"2026-03-10T14:00:00Z"}`))
	s.handle(topic, []byte(`{"lat":30.27}`))
	s.handle("fixmate/jobs/not-a-uuid/technicians/tech-1/location", []byte(`{"lat":1,"lng":1}`))
	s.handle("fixmate/telemetry", []byte(`{"lat":1,"lng":1}`))

	require.Len(t, updater.calls, 1)
	assert.Equal(t, "tech-1", updater.techs[0])
	assert.Equal(t, jobID, updater.jobs[0])
	assert.InDelta(t, -97.74, *updater.calls[0].Lng, 1e-9)
	require.NotNil(t, updater.calls[0].RecordedAt)
	assert.Equal(t, time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC), updater.calls[0].RecordedAt.UTC())
}

func TestParseLocationTopic(t *testing.T) {
	jobID := uuid.New()

	gotJob, gotTech, err := parseLocationTopic("jobs/" + jobID.String() + "/technicians/t-9/location")
	require.NoError(t, err)
	assert.Equal(t, jobID, gotJob)
	assert.Equal(t, "t-9", gotTech)

	for _, bad := range []string{
		"",
		"jobs/" + jobID.String() + "/technicians//location",
		"jobs/" + jobID.String() + "/customers/t-9/location",
		"jobs/" + jobID.String() + "/technicians/t-9/route",
	} {
		_, _, err := parseLocationTopic(bad)
		assert.Error(t, err, bad)
	}
}
