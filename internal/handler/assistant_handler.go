package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/fixmate/service-marketplace/internal/application"
	"github.com/fixmate/service-marketplace/internal/platform/middleware"
	"github.com/fixmate/service-marketplace/internal/platform/response"
)

// AssistantHandler exposes the maintenance assistant.
type AssistantHandler struct {
	service *application.AssistantService
}

// NewAssistantHandler creates a new AssistantHandler.
func NewAssistantHandler(service *application.AssistantService) *AssistantHandler {
	return &AssistantHandler{service: service}
}

// RegisterRoutes registers the assistant route.
func (h *AssistantHandler) RegisterRoutes(r *gin.RouterGroup, verifier middleware.TokenVerifier) {
	r.POST("/api/v1/assistant/chat", middleware.AuthMiddleware(verifier), h.Chat)
}

// Chat handles POST /api/v1/assistant/chat.
func (h *AssistantHandler) Chat(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	var req application.AssistantChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Chat(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
