package handler

import (
	"context"

	"github.com/fixmate/service-marketplace/internal/application"
	"github.com/fixmate/service-marketplace/internal/platform/auth"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/fixmate/service-marketplace/internal/platform/middleware"
	"github.com/fixmate/service-marketplace/internal/platform/response"
	"github.com/fixmate/service-marketplace/internal/reminder"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReminderRunner runs one maintenance reminder sweep on demand.
type ReminderRunner interface {
	RunOnce(ctx context.Context) (reminder.Summary, error)
}

// AdminHandler serves the operator endpoints.
type AdminHandler struct {
	bookings  *application.BookingService
	health    *application.HealthService
	reminders ReminderRunner
}

// NewAdminHandler creates an AdminHandler. reminders may be nil.
func NewAdminHandler(bookings *application.BookingService, health *application.HealthService, reminders ReminderRunner) *AdminHandler {
	return &AdminHandler{bookings: bookings, health: health, reminders: reminders}
}

// RegisterRoutes registers the admin routes.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, verifier middleware.TokenVerifier) {
	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.AuthMiddleware(verifier), middleware.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/bookings", h.ListBookings)
		admin.GET("/stats/bookings", h.BookingStats)
		admin.POST("/vehicles/:id/health/recompute", h.RecomputeHealth)
		admin.POST("/reminders/run", h.RunReminders)
	}
}

// ListBookings handles GET /api/v1/admin/bookings.
func (h *AdminHandler) ListBookings(c *gin.Context) {
	page, limit := parsePagination(c)

	result, err := h.bookings.ListAllBookings(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// BookingStats handles GET /api/v1/admin/stats/bookings.
func (h *AdminHandler) BookingStats(c *gin.Context) {
	stats, err := h.bookings.GetBookingStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// RecomputeHealth handles POST /api/v1/admin/vehicles/:id/health/recompute
// for any vehicle, regardless of owner.
func (h *AdminHandler) RecomputeHealth(c *gin.Context) {
	vehicleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid vehicle ID")
		return
	}

	result, err := h.health.RecomputeVehicleHealth(c.Request.Context(), vehicleID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RunReminders handles POST /api/v1/admin/reminders/run.
func (h *AdminHandler) RunReminders(c *gin.Context) {
	if h.reminders == nil {
		response.Error(c, domain.NewUpstreamError("reminder sweep is not configured", nil))
		return
	}

	summary, err := h.reminders.RunOnce(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"vehicles":      summary.Vehicles,
		"notified":      summary.Notified,
		"failed":        summary.Failed,
		"recall_alerts": summary.RecallAlerts,
	})
}
