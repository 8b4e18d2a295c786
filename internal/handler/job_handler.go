package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fixmate/service-marketplace/internal/application"
	"github.com/fixmate/service-marketplace/internal/platform/auth"
	"github.com/fixmate/service-marketplace/internal/platform/middleware"
	"github.com/fixmate/service-marketplace/internal/platform/response"
)

// JobHandler handles live job tracking.
type JobHandler struct {
	service *application.JobService
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(service *application.JobService) *JobHandler {
	return &JobHandler{service: service}
}

// RegisterRoutes registers the job routes.
func (h *JobHandler) RegisterRoutes(r *gin.RouterGroup, verifier middleware.TokenVerifier) {
	techRole := middleware.RequireRole(auth.RoleTechnician)

	jobs := r.Group("/api/v1/jobs")
	jobs.Use(middleware.AuthMiddleware(verifier))
	{
		jobs.GET("/:id", h.GetJob)
		jobs.POST("/:id/stages", techRole, h.EnterStage)
		jobs.PUT("/:id/location", techRole, h.UpdateLocation)
	}
}

// GetJob handles GET /api/v1/jobs/:id.
func (h *JobHandler) GetJob(c *gin.Context) {
	callerID, jobID, ok := callerAndJob(c)
	if !ok {
		return
	}

	result, err := h.service.GetJob(c.Request.Context(), callerID, jobID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// EnterStage handles POST /api/v1/jobs/:id/stages.
func (h *JobHandler) EnterStage(c *gin.Context) {
	techID, jobID, ok := callerAndJob(c)
	if !ok {
		return
	}

	var req application.EnterStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.EnterStage(c.Request.Context(), techID, jobID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateLocation handles PUT /api/v1/jobs/:id/location.
func (h *JobHandler) UpdateLocation(c *gin.Context) {
	techID, jobID, ok := callerAndJob(c)
	if !ok {
		return
	}

	var req application.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateLocation(c.Request.Context(), techID, jobID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

func callerAndJob(c *gin.Context) (string, uuid.UUID, bool) {
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return "", uuid.Nil, false
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid job ID")
		return "", uuid.Nil, false
	}
	return callerID, jobID, true
}
