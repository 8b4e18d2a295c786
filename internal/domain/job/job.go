package job

import (
	"fmt"
	"time"

	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
)

// Stage is an operational stage of a job. It is finer grained than the booking status.
type Stage string

const (
	StageDispatched   Stage = "dispatched"
	StageEnRoute      Stage = "en_route"
	StageArrived      Stage = "arrived"
	StageInProgress   Stage = "in_progress"
	StageQualityCheck Stage = "quality_check"
	StageComplete     Stage = "complete"
)

var stageOrder = []Stage{
	StageDispatched,
	StageEnRoute,
	StageArrived,
	StageInProgress,
	StageQualityCheck,
	StageComplete,
}

// Position returns the index of s in the stage order, or -1 if unknown.
func (s Stage) Position() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// IsValid returns true if s is a known stage.
func (s Stage) IsValid() bool { return s.Position() >= 0 }

// ParseStage converts a string to a Stage.
func ParseStage(s string) (Stage, error) {
	st := Stage(s)
	if !st.IsValid() {
		return "", fmt.Errorf("invalid job stage: %s", s)
	}
	return st, nil
}

// StageEntry is one element of the append-only stage log.
type StageEntry struct {
	Stage     Stage     `json:"stage"`
	EnteredAt time.Time `json:"entered_at"`
	Note      string    `json:"note,omitempty"`
}

// Location is a technician GPS fix.
type Location struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Route is the planned drive to the customer.
type Route struct {
	Polyline        string `json:"polyline"`
	DistanceMeters  int    `json:"distance_meters"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Job tracks the technician-side execution of an accepted booking.
type Job struct {
	id           uuid.UUID
	bookingID    uuid.UUID
	technicianID string
	customerID   string
	currentStage Stage
	stages       []StageEntry
	techLocation *Location
	route        *Route
	startedAt    *time.Time
	completedAt  *time.Time
	version      int64
	createdAt    time.Time
	updatedAt    time.Time
}

// NewJob creates a dispatched job with an empty stage log and no location or route.
func NewJob(bookingID uuid.UUID, technicianID, customerID string) (*Job, error) {
	if bookingID == uuid.Nil {
		return nil, domain.NewValidationError("booking ID is required")
	}
	if technicianID == "" {
		return nil, domain.NewValidationError("technician ID is required")
	}
	now := time.Now().UTC()
	return &Job{
		id:           uuid.New(),
		bookingID:    bookingID,
		technicianID: technicianID,
		customerID:   customerID,
		currentStage: StageDispatched,
		stages:       []StageEntry{},
		version:      1,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// Reconstruct rebuilds a Job from persistence data (no validation).
func Reconstruct(
	id, bookingID uuid.UUID,
	technicianID, customerID string,
	currentStage Stage,
	stages []StageEntry,
	techLocation *Location,
	route *Route,
	startedAt, completedAt *time.Time,
	version int64,
	createdAt, updatedAt time.Time,
) *Job {
	if stages == nil {
		stages = []StageEntry{}
	}
	return &Job{
		id:           id,
		bookingID:    bookingID,
		technicianID: technicianID,
		customerID:   customerID,
		currentStage: currentStage,
		stages:       stages,
		techLocation: techLocation,
		route:        route,
		startedAt:    startedAt,
		completedAt:  completedAt,
		version:      version,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

func (j *Job) ID() uuid.UUID { return j.id }
func (j *Job) BookingID() uuid.UUID { return j.bookingID }
func (j *Job) TechnicianID() string { return j.technicianID }
func (j *Job) CustomerID() string { return j.customerID }
func (j *Job) CurrentStage() Stage { return j.currentStage }
func (j *Job) TechLocation() *Location { return j.techLocation }
func (j *Job) Route() *Route { return j.route }
func (j *Job) StartedAt() *time.Time { return j.startedAt }
func (j *Job) CompletedAt() *time.Time { return j.completedAt }
func (j *Job) Version() int64 { return j.version }
func (j *Job) CreatedAt() time.Time { return j.createdAt }
func (j *Job) UpdatedAt() time.Time { return j.updatedAt }

// Stages returns a copy of the stage log.
func (j *Job) Stages() []StageEntry {
	out := make([]StageEntry, len(j.stages))
	copy(out, j.stages)
	return out
}

// IsParty reports whether userID is the job's technician or customer.
func (j *Job) IsParty(userID string) bool {
	return userID != "" && (userID == j.technicianID || userID == j.customerID)
}

// EnterStage appends a stage entry. Stages only move forward; the opening
// dispatched entry may be logged once on a job whose log is still empty.
func (j *Job) EnterStage(stage Stage, note string, at time.Time) error {
	if !stage.IsValid() {
		return domain.NewValidationError(fmt.Sprintf("invalid job stage: %s", stage))
	}
	firstEntry := len(j.stages) == 0 && stage == j.currentStage
	if !firstEntry && stage.Position() <= j.currentStage.Position() {
		return domain.NewInvalidStateError(string(j.currentStage), string(stage))
	}

	at = at.UTC()
	j.stages = append(j.stages, StageEntry{Stage: stage, EnteredAt: at, Note: note})
	j.currentStage = stage
	if j.startedAt == nil && stage.Position() >= StageInProgress.Position() {
		j.startedAt = &at
	}
	if stage == StageComplete {
		j.completedAt = &at
	}
	j.updatedAt = time.Now().UTC()
	return nil
}

// UpdateLocation records the technician's latest GPS fix.
func (j *Job) UpdateLocation(lat, lng float64, at time.Time) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return domain.NewValidationError("coordinates out of range")
	}
	if j.currentStage == StageComplete {
		return domain.NewConflictError("job is complete")
	}
	if j.techLocation != nil && at.Before(j.techLocation.RecordedAt) {
		return nil
	}
	j.techLocation = &Location{Lat: lat, Lng: lng, RecordedAt: at.UTC()}
	j.updatedAt = time.Now().UTC()
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (j *Job) IncrementVersion() {
	j.version++
	j.updatedAt = time.Now().UTC()
}
