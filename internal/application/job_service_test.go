package application

import (
	"context"
	"testing"
	"time"

	bookingDomain "github.com/fixmate/service-marketplace/internal/domain/booking"
	jobDomain "github.com/fixmate/service-marketplace/internal/domain/job"
	"github.com/fixmate/service-marketplace/internal/repository/memory"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// acceptedJob returns the job created by accepting a fresh booking.
func acceptedJob(t *testing.T, h *harness) uuid.UUID {
	t.Helper()
	bk := h.seedBooking(t, resolvedAddress())
	res, err := h.statusService(nil, nil, nil).Transition(context.Background(), bk.ID(), techID, bookingDomain.StatusAccepted, TransitionOptions{})
	require.NoError(t, err)
	return mustUUID(t, res.JobID)
}

func floatPtr(v float64) *float64 { return &v }

func TestJobService_EnterStage(t *testing.T) {
	h := newHarness(t)
	svc := NewJobService(h.jobs, h.logger)
	ctx := context.Background()
	jobID := acceptedJob(t, h)

	out, err := svc.EnterStage(ctx, techID, jobID, EnterStageRequest{Stage: "en_route"})
	require.NoError(t, err)
	assert.Equal(t, "en_route", out.CurrentStage)
	require.Len(t, out.Stages, 1)
	assert.Nil(t, out.StartedAt)

	out, err = svc.EnterStage(ctx, techID, jobID, EnterStageRequest{Stage: "in_progress", Note: "Lifting the car"})
	require.NoError(t, err)
	assert.NotNil(t, out.StartedAt)

	_, err = svc.EnterStage(ctx, techID, jobID, EnterStageRequest{Stage: "arrived"})
	assert.True(t, domain.IsConflict(err), "stages only move forward")

	_, err = svc.EnterStage(ctx, customerID, jobID, EnterStageRequest{Stage: "complete"})
	assert.True(t, domain.IsForbidden(err))

	_, err = svc.EnterStage(ctx, techID, jobID, EnterStageRequest{Stage: "teleported"})
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))

	stored, err := h.jobs.FindByID(ctx, jobID)
	require.NoError(t, err)
	assert.Len(t, stored.Stages(), 2)
}

func TestJobService_UpdateLocation(t *testing.T) {
	h := newHarness(t)
	svc := NewJobService(h.jobs, h.logger)
	ctx := context.Background()
	jobID := acceptedJob(t, h)

	at := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	out, err := svc.UpdateLocation(ctx, techID, jobID, UpdateLocationRequest{Lat: floatPtr(30.27), Lng: floatPtr(-97.74), RecordedAt: &at})
	require.NoError(t, err)
	require.NotNil(t, out.TechLocation)
	assert.InDelta(t, 30.27, out.TechLocation.Lat, 1e-9)

	stale := at.Add(-time.Minute)
	out, err = svc.UpdateLocation(ctx, techID, jobID, UpdateLocationRequest{Lat: floatPtr(1), Lng: floatPtr(1), RecordedAt: &stale})
	require.NoError(t, err)
	assert.InDelta(t, 30.27, out.TechLocation.Lat, 1e-9, "an older fix is ignored")

	_, err = svc.UpdateLocation(ctx, techID, jobID, UpdateLocationRequest{Lat: floatPtr(91), Lng: floatPtr(0)})
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))

	_, err = svc.UpdateLocation(ctx, otherTech, jobID, UpdateLocationRequest{Lat: floatPtr(1), Lng: floatPtr(1)})
	assert.True(t, domain.IsForbidden(err))
}

// interleavedJobs appends a stage behind the caller's back before the first write.
type interleavedJobs struct {
	*memory.JobRepository
	t     *testing.T
	fired bool
}

func (r *interleavedJobs) Update(ctx context.Context, j *jobDomain.Job) error {
	if !r.fired {
		r.fired = true
		other, err := r.JobRepository.FindByID(ctx, j.ID())
		require.NoError(r.t, err)
		require.NoError(r.t, other.EnterStage(jobDomain.StageEnRoute, "", time.Now()))
		other.IncrementVersion()
		require.NoError(r.t, r.JobRepository.Update(ctx, other))
	}
	return r.JobRepository.Update(ctx, j)
}

func TestJobService_UpdateLocationKeepsConcurrentStage(t *testing.T) {
	h := newHarness(t)
	jobs := &interleavedJobs{JobRepository: h.jobs, t: t}
	svc := NewJobService(jobs, h.logger)
	ctx := context.Background()
	jobID := acceptedJob(t, h)

	at := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	out, err := svc.UpdateLocation(ctx, techID, jobID, UpdateLocationRequest{Lat: floatPtr(30.27), Lng: floatPtr(-97.74), RecordedAt: &at})
	require.NoError(t, err)
	assert.Equal(t, "en_route", out.CurrentStage)

	stored, err := h.jobs.FindByID(ctx, jobID)
	require.NoError(t, err)
	require.Len(t, stored.Stages(), 1)
	assert.Equal(t, jobDomain.StageEnRoute, stored.CurrentStage())
	require.NotNil(t, stored.TechLocation())
	assert.InDelta(t, 30.27, stored.TechLocation().Lat, 1e-9)
}

func TestJobService_GetJob(t *testing.T) {
	h := newHarness(t)
	svc := NewJobService(h.jobs, h.logger)
	ctx := context.Background()
	jobID := acceptedJob(t, h)

	for _, caller := range []string{customerID, techID} {
		out, err := svc.GetJob(ctx, caller, jobID)
		require.NoError(t, err)
		assert.Equal(t, jobID, out.ID)
	}

	_, err := svc.GetJob(ctx, strangerID, jobID)
	assert.True(t, domain.IsForbidden(err))
	_, err = svc.GetJob(ctx, techID, uuid.New())
	assert.True(t, domain.IsNotFound(err))
}
