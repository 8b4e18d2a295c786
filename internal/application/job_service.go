package application

import (
	"context"
	"fmt"
	"time"

	jobDomain "github.com/fixmate/service-marketplace/internal/domain/job"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EnterStageRequest is the request DTO for appending a job stage.
type EnterStageRequest struct {
	Stage string `json:"stage" binding:"required"`
	Note  string `json:"note" binding:"max=500"`
}

// UpdateLocationRequest is a technician GPS fix.
type UpdateLocationRequest struct {
	Lat        *float64   `json:"lat" binding:"required"`
	Lng        *float64   `json:"lng" binding:"required"`
	RecordedAt *time.Time `json:"recorded_at"`
}

// JobDTO is the response representation of a job.
type JobDTO struct {
	ID           uuid.UUID              `json:"id"`
	BookingID    uuid.UUID              `json:"booking_id"`
	TechnicianID string                 `json:"technician_id"`
	CustomerID   string                 `json:"customer_id"`
	CurrentStage string                 `json:"current_stage"`
	Stages       []jobDomain.StageEntry `json:"stages"`
	TechLocation *jobDomain.Location    `json:"tech_location"`
	Route        *jobDomain.Route       `json:"route"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// JobService serves live job tracking.
type JobService struct {
	repo   jobDomain.JobRepository
	clock  Clock
	logger *zap.Logger
}

// NewJobService creates a new JobService.
func NewJobService(repo jobDomain.JobRepository, logger *zap.Logger) *JobService {
	return &JobService{repo: repo, clock: systemClock, logger: logger}
}

// GetJob returns a job to its technician or customer.
func (s *JobService) GetJob(ctx context.Context, callerID string, jobID uuid.UUID) (*JobDTO, error) {
	j, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !j.IsParty(callerID) {
		return nil, domain.NewForbiddenError("caller is not a party to this job")
	}
	result := toJobDTO(j)
	return &result, nil
}

// EnterStage appends the next stage on behalf of the job's technician.
func (s *JobService) EnterStage(ctx context.Context, technicianID string, jobID uuid.UUID, req EnterStageRequest) (*JobDTO, error) {
	stage, err := jobDomain.ParseStage(req.Stage)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	j, err := s.loadForTechnician(ctx, technicianID, jobID)
	if err != nil {
		return nil, err
	}
	if err := j.EnterStage(stage, req.Note, s.clock()); err != nil {
		return nil, err
	}
	j.IncrementVersion()
	if err := s.repo.Update(ctx, j); err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}

	s.logger.Info("job stage entered",
		zap.String("job_id", jobID.String()),
		zap.String("stage", string(stage)),
	)
	result := toJobDTO(j)
	return &result, nil
}

// locationAttempts bounds reloads when a fix races a stage write.
const locationAttempts = 3

// UpdateLocation records a technician GPS fix. A missing timestamp means now.
// A fix that loses a version race is reapplied to the reloaded job.
func (s *JobService) UpdateLocation(ctx context.Context, technicianID string, jobID uuid.UUID, req UpdateLocationRequest) (*JobDTO, error) {
	if req.Lat == nil || req.Lng == nil {
		return nil, domain.NewValidationError("lat and lng are required")
	}
	at := s.clock()
	if req.RecordedAt != nil {
		at = *req.RecordedAt
	}

	var err error
	for attempt := 0; attempt < locationAttempts; attempt++ {
		var j *jobDomain.Job
		j, err = s.loadForTechnician(ctx, technicianID, jobID)
		if err != nil {
			return nil, err
		}
		if err := j.UpdateLocation(*req.Lat, *req.Lng, at); err != nil {
			return nil, err
		}
		j.IncrementVersion()
		err = s.repo.Update(ctx, j)
		if err == nil {
			s.logger.Debug("technician location updated", zap.String("job_id", jobID.String()))
			result := toJobDTO(j)
			return &result, nil
		}
		if !domain.IsConflict(err) {
			break
		}
	}
	return nil, fmt.Errorf("failed to update job location: %w", err)
}

func (s *JobService) loadForTechnician(ctx context.Context, technicianID string, jobID uuid.UUID) (*jobDomain.Job, error) {
	j, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if technicianID == "" || j.TechnicianID() != technicianID {
		return nil, domain.NewForbiddenError("only the assigned technician can update this job")
	}
	return j, nil
}

func toJobDTO(j *jobDomain.Job) JobDTO {
	return JobDTO{
		ID:           j.ID(),
		BookingID:    j.BookingID(),
		TechnicianID: j.TechnicianID(),
		CustomerID:   j.CustomerID(),
		CurrentStage: string(j.CurrentStage()),
		Stages:       j.Stages(),
		TechLocation: j.TechLocation(),
		Route:        j.Route(),
		StartedAt:    j.StartedAt(),
		CompletedAt:  j.CompletedAt(),
		UpdatedAt:    j.UpdatedAt(),
	}
}
