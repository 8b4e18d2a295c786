package application

import (
	"context"
	"fmt"
	"time"

	bookingDomain "github.com/fixmate/service-marketplace/internal/domain/booking"
	"github.com/fixmate/service-marketplace/internal/domain/chat"
	"github.com/fixmate/service-marketplace/internal/domain/notification"
	"github.com/fixmate/service-marketplace/internal/platform/async"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PostMessageRequest is the request DTO for a chat message.
type PostMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

// MessageDTO is the response representation of a chat message.
type MessageDTO struct {
	ID        uuid.UUID `json:"id"`
	BookingID uuid.UUID `json:"booking_id"`
	SenderID  string    `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatService runs the customer/technician thread attached to each booking.
type ChatService struct {
	bookings bookingDomain.BookingRepository
	messages chat.Repository
	notifier Notifier
	runner   *async.Runner
	logger   *zap.Logger
}

// NewChatService creates a ChatService. notifier may be nil.
func NewChatService(
	bookings bookingDomain.BookingRepository,
	messages chat.Repository,
	notifier Notifier,
	runner *async.Runner,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{bookings: bookings, messages: messages, notifier: notifier, runner: runner, logger: logger}
}

// PostMessage appends a message to the booking thread and notifies the other party.
func (s *ChatService) PostMessage(ctx context.Context, senderID string, bookingID uuid.UUID, req PostMessageRequest) (*MessageDTO, error) {
	bk, err := s.loadThread(ctx, senderID, bookingID)
	if err != nil {
		return nil, err
	}
	if bk.Status() == bookingDomain.StatusCancelled {
		return nil, domain.NewConflictError("booking is cancelled")
	}

	m, err := chat.NewMessage(bookingID, senderID, req.Body)
	if err != nil {
		return nil, err
	}
	if err := s.messages.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	if recipient, ok := counterparty(bk, senderID); ok && s.notifier != nil {
		data := map[string]string{"booking_id": bookingID.String(), "message_id": m.ID().String()}
		s.runner.Go(ctx, "notify_chat_message", func(ctx context.Context) error {
			return s.notifier.Notify(ctx, recipient, notification.KindChatMessage, "New message", m.Body(), data)
		}, zap.String("booking_id", bookingID.String()), zap.String("user_id", recipient))
	}

	result := toMessageDTO(m)
	return &result, nil
}

// ListMessages returns the booking thread, oldest first.
func (s *ChatService) ListMessages(ctx context.Context, callerID string, bookingID uuid.UUID, page, limit int) (*domain.PaginatedResult[MessageDTO], error) {
	if _, err := s.loadThread(ctx, callerID, bookingID); err != nil {
		return nil, err
	}
	msgs, total, err := s.messages.FindByBookingID(ctx, bookingID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	dtos := make([]MessageDTO, len(msgs))
	for i, m := range msgs {
		dtos[i] = toMessageDTO(m)
	}
	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

func (s *ChatService) loadThread(ctx context.Context, callerID string, bookingID uuid.UUID) (*bookingDomain.Booking, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !bk.IsParty(callerID) {
		return nil, domain.NewForbiddenError("caller is not a party to this booking")
	}
	return bk, nil
}

// counterparty returns the other side of the booking, if there is one yet.
func counterparty(bk *bookingDomain.Booking, userID string) (string, bool) {
	if bk.IsCustomer(userID) {
		if bk.TechnicianID() == nil {
			return "", false
		}
		return *bk.TechnicianID(), true
	}
	return bk.CustomerID(), true
}

func toMessageDTO(m *chat.Message) MessageDTO {
	return MessageDTO{
		ID:        m.ID(),
		BookingID: m.BookingID(),
		SenderID:  m.SenderID(),
		Body:      m.Body(),
		CreatedAt: m.CreatedAt(),
	}
}
