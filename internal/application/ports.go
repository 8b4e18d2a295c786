package application

import (
	"context"
	"time"

	"github.com/fixmate/service-marketplace/internal/domain/notification"
	"github.com/fixmate/service-marketplace/internal/platform/kafka"
)

// EventPublisher publishes CloudEvents. *kafka.Producer satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// Geocoder resolves a free-form address. It never fails; ok is false when
// nothing could be resolved.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (lat, lng float64, ok bool)
}

// Notifier delivers a message to a user.
type Notifier interface {
	Notify(ctx context.Context, userID string, kind notification.Kind, title, body string, data map[string]string) error
}

// SMSSender delivers a text message to a phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Clock returns the current time.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }
