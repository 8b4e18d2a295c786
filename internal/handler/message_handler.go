package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fixmate/service-marketplace/internal/application"
	"github.com/fixmate/service-marketplace/internal/platform/middleware"
	"github.com/fixmate/service-marketplace/internal/platform/response"
)

// MessageHandler handles the chat thread attached to a booking.
type MessageHandler struct {
	service *application.ChatService
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(service *application.ChatService) *MessageHandler {
	return &MessageHandler{service: service}
}

// RegisterRoutes registers the booking message routes.
func (h *MessageHandler) RegisterRoutes(r *gin.RouterGroup, verifier middleware.TokenVerifier) {
	messages := r.Group("/api/v1/bookings")
	messages.Use(middleware.AuthMiddleware(verifier))
	{
		messages.POST("/:id/messages", h.PostMessage)
		messages.GET("/:id/messages", h.ListMessages)
	}
}

// PostMessage handles POST /api/v1/bookings/:id/messages.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}
	senderID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	var req application.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.PostMessage(c.Request.Context(), senderID, bookingID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListMessages handles GET /api/v1/bookings/:id/messages.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}
	page, limit := parsePagination(c)

	result, err := h.service.ListMessages(c.Request.Context(), callerID, bookingID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}
