package application

import (
	"context"
	"fmt"
	"time"

	historyDomain "github.com/fixmate/service-marketplace/internal/domain/history"
	"github.com/fixmate/service-marketplace/internal/domain/maintenance"
	vehicleDomain "github.com/fixmate/service-marketplace/internal/domain/vehicle"
	"github.com/fixmate/service-marketplace/internal/integration/nhtsa"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VehicleDataProvider looks up public vehicle data.
type VehicleDataProvider interface {
	DecodeVIN(ctx context.Context, vin string) (*nhtsa.DecodedVehicle, error)
	Recalls(ctx context.Context, make, model string, year int) ([]nhtsa.Recall, error)
}

// CreateVehicleRequest is the request DTO for registering a vehicle.
type CreateVehicleRequest struct {
	Year           int    `json:"year" binding:"required"`
	Make           string `json:"make" binding:"required"`
	Model          string `json:"model" binding:"required"`
	Trim           string `json:"trim"`
	VIN            string `json:"vin"`
	CurrentMileage *int   `json:"current_mileage" binding:"omitempty,min=0"`
}

// UpdateMileageRequest is the request DTO for an odometer reading.
type UpdateMileageRequest struct {
	Mileage *int `json:"mileage" binding:"required,min=0"`
}

// CreateScheduleRequest is the request DTO for a maintenance schedule.
// Next-due fields are computed and cannot be supplied.
type CreateScheduleRequest struct {
	ServiceType        string     `json:"service_type" binding:"required"`
	CustomLabel        *string    `json:"custom_label"`
	IntervalMiles      *int       `json:"interval_miles" binding:"omitempty,min=1"`
	IntervalDays       *int       `json:"interval_days" binding:"omitempty,min=1"`
	LastServiceMileage *int       `json:"last_service_mileage" binding:"omitempty,min=0"`
	LastServiceDate    *time.Time `json:"last_service_date"`
	ReminderLeadDays   *int       `json:"reminder_lead_days" binding:"omitempty,min=0"`
	ReminderLeadMiles  *int       `json:"reminder_lead_miles" binding:"omitempty,min=0"`
}

// VehicleDTO is the API response representation of a vehicle.
type VehicleDTO struct {
	ID                  uuid.UUID                  `json:"id"`
	OwnerID             string                     `json:"owner_id"`
	Year                int                        `json:"year"`
	Make                string                     `json:"make"`
	Model               string                     `json:"model"`
	Trim                string                     `json:"trim,omitempty"`
	VIN                 string                     `json:"vin,omitempty"`
	CurrentMileage      *int                       `json:"current_mileage"`
	LastServiceDate     *time.Time                 `json:"last_service_date,omitempty"`
	LastServiceSnapshot *vehicleDomain.LastService `json:"last_service_snapshot,omitempty"`
	CreatedAt           time.Time                  `json:"created_at"`
	UpdatedAt           time.Time                  `json:"updated_at"`
}

// ScheduleDTO is the API response representation of a maintenance schedule.
type ScheduleDTO struct {
	ID                 uuid.UUID  `json:"id"`
	VehicleID          uuid.UUID  `json:"vehicle_id"`
	ServiceType        string     `json:"service_type"`
	Label              string     `json:"label"`
	IntervalMiles      *int       `json:"interval_miles"`
	IntervalDays       *int       `json:"interval_days"`
	LastServiceMileage *int       `json:"last_service_mileage"`
	LastServiceDate    *time.Time `json:"last_service_date"`
	ReminderLeadDays   *int       `json:"reminder_lead_days"`
	ReminderLeadMiles  *int       `json:"reminder_lead_miles"`
	NextDueMileage     *int       `json:"next_due_mileage"`
	NextDueDate        *time.Time `json:"next_due_date"`
	IsActive           bool       `json:"is_active"`
	CreatedAt          time.Time  `json:"created_at"`
}

// HistoryDTO is the API response representation of a service history record.
type HistoryDTO struct {
	ID               uuid.UUID `json:"id"`
	VehicleID        uuid.UUID `json:"vehicle_id"`
	BookingID        uuid.UUID `json:"booking_id"`
	ServiceType      string    `json:"service_type"`
	ServiceTitle     string    `json:"service_title"`
	Date             time.Time `json:"date"`
	CompletedAt      time.Time `json:"completed_at"`
	MileageAtService int       `json:"mileage_at_service"`
	CostCents        int64     `json:"cost_cents"`
	TechNotes        string    `json:"tech_notes,omitempty"`
	PartsUsed        []string  `json:"parts_used"`
	PhotoURLs        []string  `json:"photo_urls"`
	WarrantyInfo     string    `json:"warranty_info,omitempty"`
}

// VehicleService implements use cases for vehicles, their schedules and history.
type VehicleService struct {
	vehicles  vehicleDomain.VehicleRepository
	schedules maintenance.ScheduleRepository
	history   historyDomain.RecordRepository
	data      VehicleDataProvider
	logger    *zap.Logger
}

// NewVehicleService creates a new VehicleService. data may be nil.
func NewVehicleService(
	vehicles vehicleDomain.VehicleRepository,
	schedules maintenance.ScheduleRepository,
	history historyDomain.RecordRepository,
	data VehicleDataProvider,
	logger *zap.Logger,
) *VehicleService {
	return &VehicleService{vehicles: vehicles, schedules: schedules, history: history, data: data, logger: logger}
}

// CreateVehicle registers a vehicle for the given owner.
func (s *VehicleService) CreateVehicle(ctx context.Context, ownerID string, req CreateVehicleRequest) (*VehicleDTO, error) {
	v, err := vehicleDomain.NewVehicle(ownerID, req.Year, req.Make, req.Model, req.Trim, req.VIN, domain.FromPtr(req.CurrentMileage))
	if err != nil {
		return nil, err
	}
	if err := s.vehicles.Save(ctx, v); err != nil {
		s.logger.Error("failed to create vehicle", zap.Error(err))
		return nil, fmt.Errorf("failed to create vehicle: %w", err)
	}

	s.logger.Info("vehicle registered",
		zap.String("vehicle_id", v.ID().String()),
		zap.String("owner_id", ownerID),
	)
	result := toVehicleDTO(v)
	return &result, nil
}

// GetMyVehicles returns every vehicle of the owner.
func (s *VehicleService) GetMyVehicles(ctx context.Context, ownerID string) ([]VehicleDTO, error) {
	vehicles, err := s.vehicles.FindByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicles: %w", err)
	}
	dtos := make([]VehicleDTO, len(vehicles))
	for i, v := range vehicles {
		dtos[i] = toVehicleDTO(v)
	}
	return dtos, nil
}

// GetVehicle returns one vehicle, verifying ownership.
func (s *VehicleService) GetVehicle(ctx context.Context, ownerID string, vehicleID uuid.UUID) (*VehicleDTO, error) {
	v, err := loadOwnedVehicle(ctx, s.vehicles, ownerID, vehicleID)
	if err != nil {
		return nil, err
	}
	result := toVehicleDTO(v)
	return &result, nil
}

// UpdateMileage records a new odometer reading.
func (s *VehicleService) UpdateMileage(ctx context.Context, ownerID string, vehicleID uuid.UUID, req UpdateMileageRequest) (*VehicleDTO, error) {
	v, err := loadOwnedVehicle(ctx, s.vehicles, ownerID, vehicleID)
	if err != nil {
		return nil, err
	}
	if req.Mileage == nil {
		return nil, domain.NewValidationError("mileage is required")
	}
	if err := v.UpdateMileage(*req.Mileage); err != nil {
		return nil, err
	}
	v.IncrementVersion()
	if err := s.vehicles.Update(ctx, v); err != nil {
		return nil, err
	}

	s.logger.Info("vehicle mileage updated",
		zap.String("vehicle_id", vehicleID.String()),
		zap.Int("mileage", *req.Mileage),
	)
	result := toVehicleDTO(v)
	return &result, nil
}

// CreateSchedule adds a maintenance schedule to an owned vehicle.
func (s *VehicleService) CreateSchedule(ctx context.Context, ownerID string, vehicleID uuid.UUID, req CreateScheduleRequest) (*ScheduleDTO, error) {
	if _, err := loadOwnedVehicle(ctx, s.vehicles, ownerID, vehicleID); err != nil {
		return nil, err
	}
	sched, err := maintenance.NewSchedule(maintenance.ScheduleParams{
		VehicleID:          vehicleID,
		OwnerID:            ownerID,
		ServiceType:        req.ServiceType,
		CustomLabel:        domain.FromPtr(req.CustomLabel),
		IntervalMiles:      domain.FromPtr(req.IntervalMiles),
		IntervalDays:       domain.FromPtr(req.IntervalDays),
		LastServiceMileage: domain.FromPtr(req.LastServiceMileage),
		LastServiceDate:    domain.FromPtr(req.LastServiceDate),
		ReminderLeadDays:   domain.FromPtr(req.ReminderLeadDays),
		ReminderLeadMiles:  domain.FromPtr(req.ReminderLeadMiles),
	})
	if err != nil {
		return nil, err
	}
	if err := s.schedules.Save(ctx, sched); err != nil {
		return nil, fmt.Errorf("failed to save schedule: %w", err)
	}

	s.logger.Info("maintenance schedule created",
		zap.String("schedule_id", sched.ID().String()),
		zap.String("vehicle_id", vehicleID.String()),
	)
	result := toScheduleDTO(sched)
	return &result, nil
}

// ListSchedules returns the active schedules of an owned vehicle.
func (s *VehicleService) ListSchedules(ctx context.Context, ownerID string, vehicleID uuid.UUID) ([]ScheduleDTO, error) {
	if _, err := loadOwnedVehicle(ctx, s.vehicles, ownerID, vehicleID); err != nil {
		return nil, err
	}
	schedules, err := s.schedules.FindActiveByVehicleID(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	dtos := make([]ScheduleDTO, len(schedules))
	for i, sc := range schedules {
		dtos[i] = toScheduleDTO(sc)
	}
	return dtos, nil
}

// DeleteSchedule soft-deletes a schedule of an owned vehicle.
func (s *VehicleService) DeleteSchedule(ctx context.Context, ownerID string, vehicleID, scheduleID uuid.UUID) error {
	if _, err := loadOwnedVehicle(ctx, s.vehicles, ownerID, vehicleID); err != nil {
		return err
	}
	sched, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		return err
	}
	if sched.VehicleID() != vehicleID {
		return domain.NewNotFoundError("Schedule", scheduleID.String())
	}
	if !sched.IsActive() {
		return nil
	}
	sched.Deactivate()
	if err := s.schedules.Update(ctx, sched); err != nil {
		return fmt.Errorf("failed to deactivate schedule: %w", err)
	}
	s.logger.Info("maintenance schedule deactivated", zap.String("schedule_id", scheduleID.String()))
	return nil
}

// ListHistory returns the service history of an owned vehicle, newest first.
func (s *VehicleService) ListHistory(ctx context.Context, ownerID string, vehicleID uuid.UUID, page, limit int) (*domain.PaginatedResult[HistoryDTO], error) {
	if _, err := loadOwnedVehicle(ctx, s.vehicles, ownerID, vehicleID); err != nil {
		return nil, err
	}
	records, total, err := s.history.FindByVehicleID(ctx, vehicleID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list service history: %w", err)
	}
	dtos := make([]HistoryDTO, len(records))
	for i, r := range records {
		dtos[i] = toHistoryDTO(r)
	}
	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// Recalls lists recall campaigns for an owned vehicle.
func (s *VehicleService) Recalls(ctx context.Context, ownerID string, vehicleID uuid.UUID) ([]nhtsa.Recall, error) {
	v, err := loadOwnedVehicle(ctx, s.vehicles, ownerID, vehicleID)
	if err != nil {
		return nil, err
	}
	if s.data == nil {
		return nil, domain.NewUpstreamError("vehicle data lookups are disabled", nil)
	}
	recalls, err := s.data.Recalls(ctx, v.Make(), v.Model(), v.Year())
	if err != nil {
		s.logger.Warn("recall lookup failed", zap.String("vehicle_id", vehicleID.String()), zap.Error(err))
		return nil, domain.NewUpstreamError("recall lookup failed", err)
	}
	return recalls, nil
}

// VehicleRecalls pairs a vehicle with its open recall campaigns.
type VehicleRecalls struct {
	VehicleID uuid.UUID
	OwnerID   string
	Name      string
	Recalls   []nhtsa.Recall
}

// RecallsForVehicle looks up recalls for any vehicle. It is used by the
// reminder sweep and performs no ownership check.
func (s *VehicleService) RecallsForVehicle(ctx context.Context, vehicleID uuid.UUID) (*VehicleRecalls, error) {
	if s.data == nil {
		return nil, domain.NewUpstreamError("vehicle data lookups are disabled", nil)
	}
	v, err := s.vehicles.FindByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	recalls, err := s.data.Recalls(ctx, v.Make(), v.Model(), v.Year())
	if err != nil {
		return nil, domain.NewUpstreamError("recall lookup failed", err)
	}
	return &VehicleRecalls{
		VehicleID: v.ID(),
		OwnerID:   v.OwnerID(),
		Name:      fmt.Sprintf("%d %s %s", v.Year(), v.Make(), v.Model()),
		Recalls:   recalls,
	}, nil
}

// DecodeVIN decodes a VIN through the public vehicle database.
func (s *VehicleService) DecodeVIN(ctx context.Context, vin string) (*nhtsa.DecodedVehicle, error) {
	if len(vin) != 17 {
		return nil, domain.NewValidationError("VIN must be 17 characters")
	}
	if s.data == nil {
		return nil, domain.NewUpstreamError("vehicle data lookups are disabled", nil)
	}
	decoded, err := s.data.DecodeVIN(ctx, vin)
	if err != nil {
		s.logger.Warn("vin decode failed", zap.String("vin", vin), zap.Error(err))
		return nil, domain.NewUpstreamError("vin decode failed", err)
	}
	return decoded, nil
}

// loadOwnedVehicle finds a vehicle and checks that ownerID owns it.
func loadOwnedVehicle(ctx context.Context, repo vehicleDomain.VehicleRepository, ownerID string, vehicleID uuid.UUID) (*vehicleDomain.Vehicle, error) {
	v, err := repo.FindByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if !v.IsOwnedBy(ownerID) {
		return nil, domain.NewForbiddenError("you do not own this vehicle")
	}
	return v, nil
}

func toVehicleDTO(v *vehicleDomain.Vehicle) VehicleDTO {
	return VehicleDTO{
		ID:                  v.ID(),
		OwnerID:             v.OwnerID(),
		Year:                v.Year(),
		Make:                v.Make(),
		Model:               v.Model(),
		Trim:                v.Trim(),
		VIN:                 v.VIN(),
		CurrentMileage:      v.CurrentMileage().Ptr(),
		LastServiceDate:     v.LastServiceDate(),
		LastServiceSnapshot: v.LastServiceSnapshot(),
		CreatedAt:           v.CreatedAt(),
		UpdatedAt:           v.UpdatedAt(),
	}
}

func toScheduleDTO(s *maintenance.Schedule) ScheduleDTO {
	return ScheduleDTO{
		ID:                 s.ID(),
		VehicleID:          s.VehicleID(),
		ServiceType:        s.ServiceType(),
		Label:              s.Label(),
		IntervalMiles:      s.IntervalMiles().Ptr(),
		IntervalDays:       s.IntervalDays().Ptr(),
		LastServiceMileage: s.LastServiceMileage().Ptr(),
		LastServiceDate:    s.LastServiceDate().Ptr(),
		ReminderLeadDays:   s.ReminderLeadDays().Ptr(),
		ReminderLeadMiles:  s.ReminderLeadMiles().Ptr(),
		NextDueMileage:     s.NextDueMileage().Ptr(),
		NextDueDate:        s.NextDueDate().Ptr(),
		IsActive:           s.IsActive(),
		CreatedAt:          s.CreatedAt(),
	}
}

func toHistoryDTO(r *historyDomain.Record) HistoryDTO {
	return HistoryDTO{
		ID:               r.ID(),
		VehicleID:        r.VehicleID(),
		BookingID:        r.BookingID(),
		ServiceType:      r.ServiceType(),
		ServiceTitle:     r.ServiceTitle(),
		Date:             r.Date(),
		CompletedAt:      r.CompletedAt(),
		MileageAtService: r.MileageAtService(),
		CostCents:        r.CostCents(),
		TechNotes:        r.TechNotes(),
		PartsUsed:        r.PartsUsed(),
		PhotoURLs:        r.PhotoURLs(),
		WarrantyInfo:     r.WarrantyInfo(),
	}
}
