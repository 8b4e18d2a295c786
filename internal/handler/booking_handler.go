package handler

import (
	"strconv"

	"github.com/fixmate/service-marketplace/internal/application"
	bookingDomain "github.com/fixmate/service-marketplace/internal/domain/booking"
	"github.com/fixmate/service-marketplace/internal/platform/auth"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/fixmate/service-marketplace/internal/platform/middleware"
	"github.com/fixmate/service-marketplace/internal/platform/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StatusTransitionRequest is the body of a status change. BookingID is only
// read on the legacy route, where it is not part of the path.
type StatusTransitionRequest struct {
	BookingID        string `json:"bookingId"`
	UserID           string `json:"userId" binding:"required"`
	Status           string `json:"status" binding:"required"`
	TechNotes        string `json:"techNotes" binding:"max=1000"`
	MileageAtService *int   `json:"mileageAtService" binding:"omitempty,min=0"`
}

// BookingHandler handles HTTP requests for booking operations.
type BookingHandler struct {
	service *application.BookingService
	status  *application.StatusService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService, status *application.StatusService) *BookingHandler {
	return &BookingHandler{service: service, status: status}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, verifier middleware.TokenVerifier) {
	authMW := middleware.AuthMiddleware(verifier)

	bookings := r.Group("/api/v1/bookings")
	bookings.Use(authMW)
	{
		bookings.POST("", middleware.RequireRole(auth.RoleCustomer), h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/open", middleware.RequireRole(auth.RoleTechnician), h.ListOpenBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.PATCH("/:id/status", h.TransitionStatus)
	}

	legacy := r.Group("/api/bookings")
	legacy.Use(authMW)
	legacy.PATCH("/status", h.TransitionStatus)
}

// CreateBooking handles POST /api/v1/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateBooking(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListBookings handles GET /api/v1/bookings. Customers see their own bookings,
// technicians see the ones assigned to them.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}
	role, _ := middleware.GetUserRole(c)
	page, limit := parsePagination(c)

	var (
		result *domain.PaginatedResult[application.BookingDTO]
		err    error
	)
	if role == auth.RoleTechnician {
		result, err = h.service.GetTechnicianBookings(c.Request.Context(), userID, page, limit)
	} else {
		result, err = h.service.GetCustomerBookings(c.Request.Context(), userID, page, limit)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// ListOpenBookings handles GET /api/v1/bookings/open.
func (h *BookingHandler) ListOpenBookings(c *gin.Context) {
	page, limit := parsePagination(c)
	result, err := h.service.GetOpenBookings(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetBooking handles GET /api/v1/bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	result, err := h.service.GetBooking(c.Request.Context(), userID, bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// TransitionStatus handles PATCH /api/v1/bookings/:id/status and the legacy
// PATCH /api/bookings/status, where the booking id travels in the body.
func (h *BookingHandler) TransitionStatus(c *gin.Context) {
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	var req StatusTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	rawID := c.Param("id")
	if rawID == "" {
		rawID = req.BookingID
	}
	if rawID == "" {
		response.BadRequest(c, "bookingId is required")
		return
	}
	bookingID, err := uuid.Parse(rawID)
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}
	if req.UserID != callerID {
		response.Error(c, domain.NewForbiddenError("userId does not match the authenticated user"))
		return
	}

	result, err := h.status.Transition(
		c.Request.Context(),
		bookingID,
		callerID,
		bookingDomain.BookingStatus(req.Status),
		application.TransitionOptions{
			TechNotes:        req.TechNotes,
			MileageAtService: domain.FromPtr(req.MileageAtService),
		},
	)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
