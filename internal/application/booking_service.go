package application

import (
	"context"
	"fmt"
	"time"

	bookingDomain "github.com/fixmate/service-marketplace/internal/domain/booking"
	vehicleDomain "github.com/fixmate/service-marketplace/internal/domain/vehicle"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ServiceRequest identifies the catalog service being booked.
type ServiceRequest struct {
	ServiceID       string `json:"service_id" binding:"required"`
	Category        string `json:"category" binding:"required"`
	Title           string `json:"title" binding:"required"`
	PriceCents      int64  `json:"price_cents" binding:"min=0"`
	DurationMinutes int    `json:"duration_minutes" binding:"min=0"`
}

// CreateBookingRequest holds the data needed to create a new booking.
type CreateBookingRequest struct {
	VehicleID   uuid.UUID             `json:"vehicle_id" binding:"required"`
	Service     ServiceRequest        `json:"service" binding:"required"`
	ScheduledAt time.Time             `json:"scheduled_at" binding:"required"`
	Address     bookingDomain.Address `json:"address" binding:"required"`
	Notes       string                `json:"notes"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID              uuid.UUID                     `json:"id"`
	CustomerID      string                        `json:"customer_id"`
	TechnicianID    *string                       `json:"technician_id,omitempty"`
	VehicleID       uuid.UUID                     `json:"vehicle_id"`
	ServiceID       string                        `json:"service_id"`
	ServiceSnapshot bookingDomain.ServiceSnapshot `json:"service_snapshot"`
	VehicleSnapshot bookingDomain.VehicleSnapshot `json:"vehicle_snapshot"`
	ScheduledAt     time.Time                     `json:"scheduled_at"`
	Status          string                        `json:"status"`
	Address         bookingDomain.Address         `json:"address"`
	TotalPriceCents int64                         `json:"total_price_cents"`
	JobID           *uuid.UUID                    `json:"job_id,omitempty"`
	Notes           string                        `json:"notes,omitempty"`
	CompletedAt     *time.Time                    `json:"completed_at,omitempty"`
	CancelledAt     *time.Time                    `json:"cancelled_at,omitempty"`
	Version         int64                         `json:"version"`
	CreatedAt       time.Time                     `json:"created_at"`
	UpdatedAt       time.Time                     `json:"updated_at"`
}

// BookingService is the application service for booking creation and reads.
// Status changes go through StatusService.
type BookingService struct {
	repo     bookingDomain.BookingRepository
	vehicles vehicleDomain.VehicleRepository
	logger   *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	repo bookingDomain.BookingRepository,
	vehicles vehicleDomain.VehicleRepository,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		repo:     repo,
		vehicles: vehicles,
		logger:   logger,
	}
}

// CreateBooking creates a pending booking for one of the customer's vehicles.
func (s *BookingService) CreateBooking(ctx context.Context, customerID string, req CreateBookingRequest) (*BookingDTO, error) {
	v, err := loadOwnedVehicle(ctx, s.vehicles, customerID, req.VehicleID)
	if err != nil {
		return nil, err
	}

	// Coordinates are resolved on acceptance, never taken from the client.
	addr := req.Address
	addr.Lat, addr.Lng = nil, nil

	bk, err := bookingDomain.NewBooking(
		customerID,
		v.ID(),
		bookingDomain.ServiceSnapshot{
			ServiceID:       req.Service.ServiceID,
			Category:        req.Service.Category,
			Title:           req.Service.Title,
			PriceCents:      req.Service.PriceCents,
			DurationMinutes: req.Service.DurationMinutes,
		},
		bookingDomain.VehicleSnapshot{
			Year:    v.Year(),
			Make:    v.Make(),
			Model:   v.Model(),
			VIN:     v.VIN(),
			Mileage: v.CurrentMileage().OrElse(0),
		},
		req.ScheduledAt,
		addr,
		req.Notes,
	)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, bk); err != nil {
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	s.logger.Info("booking created",
		zap.String("booking_id", bk.ID().String()),
		zap.String("customer_id", customerID),
		zap.String("vehicle_id", v.ID().String()),
	)

	result := toBookingDTO(bk)
	return &result, nil
}

// GetBooking retrieves a single booking visible to the caller.
func (s *BookingService) GetBooking(ctx context.Context, callerID string, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.loadForParty(ctx, callerID, bookingID)
	if err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// GetCustomerBookings retrieves paginated bookings for a customer.
func (s *BookingService) GetCustomerBookings(ctx context.Context, customerID string, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.FindByCustomerID(ctx, customerID, page, limit)
	if err != nil {
		return nil, err
	}
	return toBookingPage(bookings, total, page, limit), nil
}

// GetTechnicianBookings retrieves paginated bookings assigned to a technician.
func (s *BookingService) GetTechnicianBookings(ctx context.Context, technicianID string, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.FindByTechnicianID(ctx, technicianID, page, limit)
	if err != nil {
		return nil, err
	}
	return toBookingPage(bookings, total, page, limit), nil
}

// GetOpenBookings lists pending bookings a technician can accept.
func (s *BookingService) GetOpenBookings(ctx context.Context, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.FindOpen(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	return toBookingPage(bookings, total, page, limit), nil
}

// loadForParty finds a booking and checks that callerID is its customer or technician.
func (s *BookingService) loadForParty(ctx context.Context, callerID string, bookingID uuid.UUID) (*bookingDomain.Booking, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !bk.IsParty(callerID) {
		return nil, domain.NewForbiddenError("caller is not a party to this booking")
	}
	return bk, nil
}

// --- Admin methods ---

// BookingStatsDTO holds booking statistics for the admin dashboard.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// ListAllBookings returns a paginated list of all bookings (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return toBookingPage(bookings, total, page, limit), nil
}

// GetBookingStats returns aggregate booking statistics (admin).
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &BookingStatsDTO{
		TotalBookings: total,
		ByStatus:      counts,
	}, nil
}

// --- Helpers ---

func toBookingPage(bookings []*bookingDomain.Booking, total int64, page, limit int) *domain.PaginatedResult[BookingDTO] {
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result
}

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	return BookingDTO{
		ID:              bk.ID(),
		CustomerID:      bk.CustomerID(),
		TechnicianID:    bk.TechnicianID(),
		VehicleID:       bk.VehicleID(),
		ServiceID:       bk.ServiceID(),
		ServiceSnapshot: bk.ServiceSnapshot(),
		VehicleSnapshot: bk.VehicleSnapshot(),
		ScheduledAt:     bk.ScheduledAt(),
		Status:          string(bk.Status()),
		Address:         bk.Address(),
		TotalPriceCents: bk.TotalPriceCents(),
		JobID:           bk.JobID(),
		Notes:           bk.Notes(),
		CompletedAt:     bk.CompletedAt(),
		CancelledAt:     bk.CancelledAt(),
		Version:         bk.Version(),
		CreatedAt:       bk.CreatedAt(),
		UpdatedAt:       bk.UpdatedAt(),
	}
}
