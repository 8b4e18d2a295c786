package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fixmate/service-marketplace/internal/application"
	"github.com/fixmate/service-marketplace/internal/platform/auth"
	"github.com/fixmate/service-marketplace/internal/platform/middleware"
	"github.com/fixmate/service-marketplace/internal/platform/response"
)

// VehicleHandler handles HTTP requests for vehicles, their maintenance
// schedules, health and service history.
type VehicleHandler struct {
	service *application.VehicleService
	health  *application.HealthService
}

// NewVehicleHandler creates a new VehicleHandler.
func NewVehicleHandler(service *application.VehicleService, health *application.HealthService) *VehicleHandler {
	return &VehicleHandler{service: service, health: health}
}

// RegisterRoutes registers all vehicle routes.
func (h *VehicleHandler) RegisterRoutes(r *gin.RouterGroup, verifier middleware.TokenVerifier) {
	authMW := middleware.AuthMiddleware(verifier)
	customerRole := middleware.RequireRole(auth.RoleCustomer)

	vehicles := r.Group("/api/v1/vehicles")
	vehicles.Use(authMW)
	{
		vehicles.GET("/decode/:vin", h.DecodeVIN)

		owned := vehicles.Group("", customerRole)
		owned.POST("", h.CreateVehicle)
		owned.GET("", h.GetMyVehicles)
		owned.GET("/:id", h.GetVehicle)
		owned.PATCH("/:id/mileage", h.UpdateMileage)
		owned.POST("/:id/schedules", h.CreateSchedule)
		owned.GET("/:id/schedules", h.ListSchedules)
		owned.DELETE("/:id/schedules/:scheduleId", h.DeleteSchedule)
		owned.POST("/:id/health/recompute", h.RecomputeHealth)
		owned.GET("/:id/health", h.GetHealth)
		owned.GET("/:id/history", h.ListHistory)
		owned.GET("/:id/recalls", h.Recalls)
	}
}

// ownerAndVehicle reads the caller and the :id path param, writing the error response itself.
func ownerAndVehicle(c *gin.Context) (string, uuid.UUID, bool) {
	ownerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return "", uuid.Nil, false
	}
	vehicleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid vehicle ID")
		return "", uuid.Nil, false
	}
	return ownerID, vehicleID, true
}

// CreateVehicle creates a new vehicle profile.
func (h *VehicleHandler) CreateVehicle(c *gin.Context) {
	ownerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	var req application.CreateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateVehicle(c.Request.Context(), ownerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// GetMyVehicles lists the caller's vehicles.
func (h *VehicleHandler) GetMyVehicles(c *gin.Context) {
	ownerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	result, err := h.service.GetMyVehicles(c.Request.Context(), ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetVehicle returns one owned vehicle.
func (h *VehicleHandler) GetVehicle(c *gin.Context) {
	ownerID, vehicleID, ok := ownerAndVehicle(c)
	if !ok {
		return
	}

	result, err := h.service.GetVehicle(c.Request.Context(), ownerID, vehicleID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateMileage records a new odometer reading.
func (h *VehicleHandler) UpdateMileage(c *gin.Context) {
	ownerID, vehicleID, ok := ownerAndVehicle(c)
	if !ok {
		return
	}

	var req application.UpdateMileageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateMileage(c.Request.Context(), ownerID, vehicleID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CreateSchedule adds a maintenance schedule to a vehicle.
func (h *VehicleHandler) CreateSchedule(c *gin.Context) {
	ownerID, vehicleID, ok := ownerAndVehicle(c)
	if !ok {
		return
	}

	var req application.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateSchedule(c.Request.Context(), ownerID, vehicleID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListSchedules lists a vehicle's active schedules.
func (h *VehicleHandler) ListSchedules(c *gin.Context) {
	ownerID, vehicleID, ok := ownerAndVehicle(c)
	if !ok {
		return
	}

	result, err := h.service.ListSchedules(c.Request.Context(), ownerID, vehicleID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DeleteSchedule deactivates a schedule.
func (h *VehicleHandler) DeleteSchedule(c *gin.Context) {
	ownerID, vehicleID, ok := ownerAndVehicle(c)
	if !ok {
		return
	}
	scheduleID, err := uuid.Parse(c.Param("scheduleId"))
	if err != nil {
		response.BadRequest(c, "invalid schedule ID")
		return
	}

	if err := h.service.DeleteSchedule(c.Request.Context(), ownerID, vehicleID, scheduleID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// RecomputeHealth recomputes and stores the vehicle's health snapshot.
func (h *VehicleHandler) RecomputeHealth(c *gin.Context) {
	ownerID, vehicleID, ok := ownerAndVehicle(c)
	if !ok {
		return
	}

	result, err := h.health.RecomputeOwned(c.Request.Context(), ownerID, vehicleID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetHealth returns the latest stored health snapshot.
func (h *VehicleHandler) GetHealth(c *gin.Context) {
	ownerID, vehicleID, ok := ownerAndVehicle(c)
	if !ok {
		return
	}

	result, err := h.health.GetHealth(c.Request.Context(), ownerID, vehicleID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ListHistory returns the vehicle's service history, most recent first.
func (h *VehicleHandler) ListHistory(c *gin.Context) {
	ownerID, vehicleID, ok := ownerAndVehicle(c)
	if !ok {
		return
	}
	page, limit := parsePagination(c)

	result, err := h.service.ListHistory(c.Request.Context(), ownerID, vehicleID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// Recalls returns open NHTSA recalls for the vehicle's make, model and year.
func (h *VehicleHandler) Recalls(c *gin.Context) {
	ownerID, vehicleID, ok := ownerAndVehicle(c)
	if !ok {
		return
	}

	result, err := h.service.Recalls(c.Request.Context(), ownerID, vehicleID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DecodeVIN looks up a VIN without storing anything.
func (h *VehicleHandler) DecodeVIN(c *gin.Context) {
	result, err := h.service.DecodeVIN(c.Request.Context(), c.Param("vin"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
