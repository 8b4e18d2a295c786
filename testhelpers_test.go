//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/fixmate/service-marketplace/internal/application"
	bookingDomain "github.com/fixmate/service-marketplace/internal/domain/booking"
	"github.com/fixmate/service-marketplace/internal/domain/maintenance"
	vehicleDomain "github.com/fixmate/service-marketplace/internal/domain/vehicle"
	"github.com/fixmate/service-marketplace/internal/events"
	"github.com/fixmate/service-marketplace/internal/platform/async"
	"github.com/fixmate/service-marketplace/internal/platform/database"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/fixmate/service-marketplace/internal/platform/kafka"
	"github.com/fixmate/service-marketplace/internal/repository"
	"github.com/fixmate/service-marketplace/migrations"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// marketplaceStack holds wired-up service components over the GORM repositories.
type marketplaceStack struct {
	Bookings        *repository.GormBookingRepository
	Jobs            *repository.GormJobRepository
	Vehicles        *repository.GormVehicleRepository
	Schedules       *repository.GormScheduleRepository
	Status          *application.StatusService
	Health          *application.HealthService
	Consumer        *events.PaymentEventConsumer
	Runner          *async.Runner
	CleanupProducer func()
}

// setupPostgres starts a PostgreSQL testcontainer and applies the embedded migrations.
func setupPostgres(t *testing.T) (*gorm.DB, func()) {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_marketplace",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := database.PostgresConfig{
		Host:     pgHost,
		Port:     pgPort.Port(),
		User:     "test",
		Password: "test",
		DBName:   "test_marketplace",
		SSLMode:  "disable",
	}

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = database.Connect(cfg, logger)
		return err == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, database.RunMigrations(cfg.DatabaseURL(), migrations.FS, logger))

	return db, func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}
}

// setupContainers starts PostgreSQL and Kafka testcontainers.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	db, cleanupPostgres := setupPostgres(t)

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	// Pre-create required topics.
	createTopics(t, kafkaBrokers, "booking.events", "payment.events")

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		cleanupPostgres()
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupStack wires the status and health services. With no brokers nothing is
// published and no consumer is created.
func setupStack(t *testing.T, db *gorm.DB, brokers []string) *marketplaceStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	s := &marketplaceStack{
		Bookings:        repository.NewGormBookingRepository(db),
		Jobs:            repository.NewGormJobRepository(db),
		Vehicles:        repository.NewGormVehicleRepository(db),
		Schedules:       repository.NewGormScheduleRepository(db),
		Runner:          async.NewRunner(logger, 10*time.Second),
		CleanupProducer: func() {},
	}
	history := repository.NewGormHistoryRepository(db)

	var publisher application.EventPublisher
	if len(brokers) > 0 {
		producer := kafka.NewProducer(brokers, logger)
		publisher = producer
		s.CleanupProducer = func() { _ = producer.Close() }
	}

	s.Status = application.NewStatusService(s.Bookings, s.Vehicles, history, nil, nil, publisher, nil, s.Runner, logger)
	s.Health = application.NewHealthService(s.Bookings, s.Vehicles, s.Schedules, nil, logger)

	if len(brokers) > 0 {
		groupID := fmt.Sprintf("test-health-%s", uuid.New().String()[:8])
		s.Consumer = events.NewPaymentEventConsumer(brokers, groupID, s.Health, logger)
	}
	return s
}

// seedVehicleWithSchedule stores a vehicle and one mileage-based oil change schedule.
func seedVehicleWithSchedule(t *testing.T, s *marketplaceStack, ownerID string, mileage int) *vehicleDomain.Vehicle {
	t.Helper()
	ctx := context.Background()

	v, err := vehicleDomain.NewVehicle(ownerID, 2019, "Honda", "Civic", "EX", "", domain.Some(mileage))
	require.NoError(t, err)
	require.NoError(t, s.Vehicles.Save(ctx, v))

	sc, err := maintenance.NewSchedule(maintenance.ScheduleParams{
		VehicleID:          v.ID(),
		OwnerID:            ownerID,
		ServiceType:        "oil_change",
		IntervalMiles:      domain.Some(5000),
		LastServiceMileage: domain.Some(40000),
	})
	require.NoError(t, err)
	require.NoError(t, s.Schedules.Save(ctx, sc))
	return v
}

// seedPendingBooking stores a pending booking for the vehicle.
func seedPendingBooking(t *testing.T, s *marketplaceStack, v *vehicleDomain.Vehicle) *bookingDomain.Booking {
	t.Helper()
	lat, lng := 30.2672, -97.7431
	bk, err := bookingDomain.NewBooking(
		v.OwnerID(),
		v.ID(),
		bookingDomain.ServiceSnapshot{ServiceID: "svc-oil", Category: "oil_change", Title: "Oil change", PriceCents: 7900},
		bookingDomain.VehicleSnapshot{Year: v.Year(), Make: v.Make(), Model: v.Model(), Mileage: v.CurrentMileage().OrElse(0)},
		time.Now().Add(24*time.Hour),
		bookingDomain.Address{Street: "1 Main St", City: "Austin", State: "TX", Zip: "78701", Lat: &lat, Lng: &lng},
		"integration test",
	)
	require.NoError(t, err)
	require.NoError(t, s.Bookings.Save(context.Background(), bk))
	return bk
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// waitForSnapshot polls until the vehicle has a health snapshot.
func waitForSnapshot(t *testing.T, repo *repository.GormScheduleRepository, vehicleID uuid.UUID, timeout time.Duration) *maintenance.HealthSnapshot {
	t.Helper()
	var result *maintenance.HealthSnapshot
	require.Eventually(t, func() bool {
		snap, err := repo.FindSnapshot(context.Background(), vehicleID)
		if err != nil {
			return false
		}
		result = snap
		return true
	}, timeout, 200*time.Millisecond, "no health snapshot for vehicle %s", vehicleID)
	return result
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
