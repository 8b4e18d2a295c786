package job

import (
	"testing"
	"time"

	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	j, err := NewJob(uuid.New(), "tech-1", "cust-1")
	require.NoError(t, err)

	assert.Equal(t, StageDispatched, j.CurrentStage())
	assert.Empty(t, j.Stages())
	assert.Nil(t, j.TechLocation())
	assert.Nil(t, j.Route())
	assert.Nil(t, j.StartedAt())
	assert.Nil(t, j.CompletedAt())

	_, err = NewJob(uuid.Nil, "tech-1", "cust-1")
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
	_, err = NewJob(uuid.New(), "", "cust-1")
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
}

func TestJob_EnterStage(t *testing.T) {
	j, err := NewJob(uuid.New(), "tech-1", "cust-1")
	require.NoError(t, err)
	t0 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, j.EnterStage(StageDispatched, "", t0))
	assert.Error(t, j.EnterStage(StageDispatched, "", t0), "dispatched may only be logged once")

	require.NoError(t, j.EnterStage(StageEnRoute, "leaving shop", t0.Add(time.Minute)))
	require.NoError(t, j.EnterStage(StageInProgress, "", t0.Add(30*time.Minute)))
	require.NotNil(t, j.StartedAt())
	assert.Equal(t, t0.Add(30*time.Minute), *j.StartedAt())

	err = j.EnterStage(StageArrived, "", t0.Add(31*time.Minute))
	assert.True(t, domain.IsConflict(err))

	require.NoError(t, j.EnterStage(StageComplete, "", t0.Add(time.Hour)))
	require.NotNil(t, j.CompletedAt())

	stages := j.Stages()
	require.Len(t, stages, 4)
	assert.Equal(t, j.CurrentStage(), stages[len(stages)-1].Stage)
	assert.Equal(t, "leaving shop", stages[1].Note)
}

func TestJob_EnterStageInvalid(t *testing.T) {
	j, err := NewJob(uuid.New(), "tech-1", "cust-1")
	require.NoError(t, err)
	err = j.EnterStage(Stage("teleported"), "", time.Now())
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
}

func TestJob_UpdateLocation(t *testing.T) {
	j, err := NewJob(uuid.New(), "tech-1", "cust-1")
	require.NoError(t, err)
	now := time.Now().UTC()

	require.NoError(t, j.UpdateLocation(30.1, -97.7, now))
	require.NotNil(t, j.TechLocation())
	assert.InDelta(t, 30.1, j.TechLocation().Lat, 1e-9)

	// stale fixes are ignored
	require.NoError(t, j.UpdateLocation(31.0, -98.0, now.Add(-time.Minute)))
	assert.InDelta(t, 30.1, j.TechLocation().Lat, 1e-9)

	assert.Equal(t, domain.CodeValidation, domain.CodeOf(j.UpdateLocation(91, 0, now)))

	require.NoError(t, j.EnterStage(StageComplete, "", now))
	assert.True(t, domain.IsConflict(j.UpdateLocation(30, -97, now.Add(time.Minute))))
}

func TestJob_IsParty(t *testing.T) {
	j, err := NewJob(uuid.New(), "tech-1", "cust-1")
	require.NoError(t, err)
	assert.True(t, j.IsParty("tech-1"))
	assert.True(t, j.IsParty("cust-1"))
	assert.False(t, j.IsParty("someone"))
	assert.False(t, j.IsParty(""))
}
