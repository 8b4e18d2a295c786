package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/fixmate/service-marketplace/internal/application"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LocationTopicFilter matches the GPS fixes technicians' devices publish, e.g.
// fixmate/jobs/<job id>/technicians/<technician id>/location.
const LocationTopicFilter = "fixmate/jobs/+/technicians/+/location"

// LocationUpdater records a technician's position on a job.
type LocationUpdater interface {
	UpdateLocation(ctx context.Context, technicianID string, jobID uuid.UUID, req application.UpdateLocationRequest) (*application.JobDTO, error)
}

// locationPayload is the body of a location message.
type locationPayload struct {
	Lat        *float64   `json:"lat"`
	Lng        *float64   `json:"lng"`
	RecordedAt *time.Time `json:"recorded_at"`
}

// LocationSubscriber ingests technician GPS fixes from an MQTT broker.
type LocationSubscriber struct {
	client  mqtt.Client
	topic   string
	updater LocationUpdater
	timeout time.Duration
	logger  *zap.Logger
}

// NewLocationSubscriber creates a subscriber. It does not connect until Start.
func NewLocationSubscriber(brokerURL, clientID, topic string, updater LocationUpdater, logger *zap.Logger) *LocationSubscriber {
	if topic == "" {
		topic = LocationTopicFilter
	}
	s := &LocationSubscriber{
		topic:   topic,
		updater: updater,
		timeout: 5 * time.Second,
		logger:  logger,
	}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetOnConnectHandler(s.subscribe).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", zap.Error(err))
		})
	s.client = mqtt.NewClient(opts)
	return s
}

// Start connects to the broker. Subscriptions are (re)established on every connect.
func (s *LocationSubscriber) Start() error {
	token := s.client.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		return fmt.Errorf("timed out connecting to mqtt broker")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to mqtt broker: %w", err)
	}
	return nil
}

// Close unsubscribes and disconnects.
func (s *LocationSubscriber) Close() {
	if !s.client.IsConnected() {
		return
	}
	s.client.Unsubscribe(s.topic).WaitTimeout(2 * time.Second)
	s.client.Disconnect(250)
}

func (s *LocationSubscriber) subscribe(c mqtt.Client) {
	token := c.Subscribe(s.topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		s.handle(msg.Topic(), msg.Payload())
	})
	if token.WaitTimeout(10*time.Second) && token.Error() != nil {
		s.logger.Error("failed to subscribe to location topic", zap.String("topic", s.topic), zap.Error(token.Error()))
		return
	}
	s.logger.Info("subscribed to technician locations", zap.String("topic", s.topic))
}

// handle applies one fix. Bad messages are logged and dropped; there is no redelivery at QoS 0.
func (s *LocationSubscriber) handle(topic string, payload []byte) {
	jobID, technicianID, err := parseLocationTopic(topic)
	if err != nil {
		s.logger.Warn("ignoring location on unexpected topic", zap.String("topic", topic), zap.Error(err))
		return
	}

	var p locationPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.Lat == nil || p.Lng == nil {
		s.logger.Warn("ignoring malformed location payload",
			zap.String("job_id", jobID.String()),
			zap.String("raw", string(payload)),
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, err = s.updater.UpdateLocation(ctx, technicianID, jobID, application.UpdateLocationRequest{
		Lat:        p.Lat,
		Lng:        p.Lng,
		RecordedAt: p.RecordedAt,
	})
	if err != nil {
		s.logger.Warn("failed to apply technician location",
			zap.String("job_id", jobID.String()),
			zap.String("technician_id", technicianID),
			zap.Error(err),
		)
	}
}

// parseLocationTopic extracts the job and technician ids from the last five topic levels.
func parseLocationTopic(topic string) (uuid.UUID, string, error) {
	levels := strings.Split(topic, "/")
	n := len(levels)
	if n < 5 || levels[n-5] != "jobs" || levels[n-3] != "technicians" || levels[n-1] != "location" {
		return uuid.Nil, "", fmt.Errorf("topic %q does not match jobs/<id>/technicians/<id>/location", topic)
	}
	jobID, err := uuid.Parse(levels[n-4])
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid job id in topic: %w", err)
	}
	technicianID := levels[n-2]
	if technicianID == "" {
		return uuid.Nil, "", fmt.Errorf("empty technician id in topic")
	}
	return jobID, technicianID, nil
}
