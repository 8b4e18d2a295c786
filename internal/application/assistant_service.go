package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fixmate/service-marketplace/internal/domain/maintenance"
	vehicleDomain "github.com/fixmate/service-marketplace/internal/domain/vehicle"
	"github.com/fixmate/service-marketplace/internal/integration/assistant"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxAssistantTurns = 20

// ChatCompleter produces the next assistant turn of a conversation.
type ChatCompleter interface {
	Complete(ctx context.Context, turns []assistant.Turn) (string, error)
}

// AssistantChatRequest is a conversation sent to the assistant.
type AssistantChatRequest struct {
	VehicleID *uuid.UUID       `json:"vehicle_id"`
	Messages  []assistant.Turn `json:"messages" binding:"required,min=1"`
}

// AssistantChatResponse carries the assistant's reply.
type AssistantChatResponse struct {
	Reply string `json:"reply"`
}

// AssistantService answers vehicle owners' questions with an LLM.
type AssistantService struct {
	completer ChatCompleter
	vehicles  vehicleDomain.VehicleRepository
	schedules maintenance.ScheduleRepository
	logger    *zap.Logger
}

// NewAssistantService creates an AssistantService. completer may be nil, which
// disables the assistant.
func NewAssistantService(
	completer ChatCompleter,
	vehicles vehicleDomain.VehicleRepository,
	schedules maintenance.ScheduleRepository,
	logger *zap.Logger,
) *AssistantService {
	return &AssistantService{completer: completer, vehicles: vehicles, schedules: schedules, logger: logger}
}

// Chat completes the caller's conversation. When a vehicle is named, its
// profile and latest health snapshot are given to the model as context.
func (s *AssistantService) Chat(ctx context.Context, userID string, req AssistantChatRequest) (*AssistantChatResponse, error) {
	if s.completer == nil {
		return nil, domain.NewUpstreamError("assistant is disabled", nil)
	}
	if len(req.Messages) == 0 {
		return nil, domain.NewValidationError("at least one message is required")
	}
	if len(req.Messages) > maxAssistantTurns {
		return nil, domain.NewValidationError(fmt.Sprintf("at most %d messages are allowed", maxAssistantTurns))
	}
	for _, t := range req.Messages {
		if t.Role != assistant.RoleUser && t.Role != assistant.RoleAssistant {
			return nil, domain.NewValidationError(fmt.Sprintf("invalid message role: %s", t.Role))
		}
		if strings.TrimSpace(t.Content) == "" {
			return nil, domain.NewValidationError("message content is required")
		}
	}

	system := "You are a vehicle maintenance assistant for a mobile mechanic marketplace."
	if req.VehicleID != nil {
		vehicleContext, err := s.vehicleContext(ctx, userID, *req.VehicleID)
		if err != nil {
			return nil, err
		}
		system += "\n" + vehicleContext
	}

	turns := make([]assistant.Turn, 0, len(req.Messages)+1)
	turns = append(turns, assistant.Turn{Role: assistant.RoleSystem, Content: system})
	turns = append(turns, req.Messages...)

	reply, err := s.completer.Complete(ctx, turns)
	if err != nil {
		s.logger.Warn("assistant completion failed", zap.String("user_id", userID), zap.Error(err))
		if errors.Is(err, assistant.ErrEmptyReply) {
			return nil, domain.NewUpstreamError("assistant returned no answer", err)
		}
		return nil, domain.NewUpstreamError("assistant unavailable", err)
	}
	return &AssistantChatResponse{Reply: reply}, nil
}

func (s *AssistantService) vehicleContext(ctx context.Context, ownerID string, vehicleID uuid.UUID) (string, error) {
	v, err := loadOwnedVehicle(ctx, s.vehicles, ownerID, vehicleID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Vehicle: %d %s %s", v.Year(), v.Make(), v.Model())
	if m, ok := v.CurrentMileage().Get(); ok {
		fmt.Fprintf(&b, ", %d miles", m)
	}
	b.WriteString(".")

	snap, err := s.schedules.FindSnapshot(ctx, vehicleID)
	switch {
	case err == nil:
		for _, u := range snap.UpcomingServices {
			fmt.Fprintf(&b, "\n- %s: %s", u.Label, u.Urgency)
		}
	case !domain.IsNotFound(err):
		s.logger.Warn("failed to load health snapshot for assistant", zap.String("vehicle_id", vehicleID.String()), zap.Error(err))
	}
	return b.String(), nil
}
