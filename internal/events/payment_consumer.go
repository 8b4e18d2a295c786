package events

import (
	"context"

	"github.com/fixmate/service-marketplace/internal/application"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/fixmate/service-marketplace/internal/platform/kafka"
	"github.com/fixmate/service-marketplace/internal/proto/events"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// HealthRecomputer recomputes the health of the vehicle behind a booking.
type HealthRecomputer interface {
	RecomputeForBooking(ctx context.Context, bookingID uuid.UUID) (*application.RecomputeResult, error)
}

// PaymentEventConsumer listens to payment events and refreshes vehicle health
// once a booking's payment is captured.
type PaymentEventConsumer struct {
	consumer *kafka.Consumer
	health   HealthRecomputer
	logger   *zap.Logger
}

// NewPaymentEventConsumer creates a new PaymentEventConsumer.
func NewPaymentEventConsumer(
	brokers []string,
	groupID string,
	health HealthRecomputer,
	logger *zap.Logger,
) *PaymentEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, events.TopicPaymentEvents, logger)
	return &PaymentEventConsumer{
		consumer: consumer,
		health:   health,
		logger:   logger,
	}
}

// Start begins consuming payment events. This blocks until the context is cancelled.
func (c *PaymentEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *PaymentEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *PaymentEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from payment topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case events.PaymentCaptured:
		return c.handlePaymentCaptured(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled payment event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *PaymentEventConsumer) handlePaymentCaptured(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt events.PaymentCapturedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse PaymentCapturedEvent data",
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	c.logger.Info("processing payment captured event",
		zap.String("booking_id", evt.BookingID.String()),
		zap.String("payment_id", evt.PaymentID),
	)

	result, err := c.health.RecomputeForBooking(ctx, evt.BookingID)
	if err != nil {
		if domain.IsNotFound(err) {
			c.logger.Warn("payment captured for unknown booking or vehicle",
				zap.String("booking_id", evt.BookingID.String()),
				zap.Error(err),
			)
			return nil
		}
		c.logger.Error("failed to recompute vehicle health after payment",
			zap.String("booking_id", evt.BookingID.String()),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("vehicle health recomputed after payment",
		zap.String("booking_id", evt.BookingID.String()),
		zap.String("vehicle_id", result.VehicleID.String()),
		zap.String("alert_level", string(result.AlertLevel)),
	)
	return nil
}
