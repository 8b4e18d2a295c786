package booking

import (
	"testing"

	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanTransition(t *testing.T) {
	tests := []struct {
		name     string
		from     BookingStatus
		caller   string
		target   BookingStatus
		wantKind TransitionKind
		wantCode domain.ErrorCode
	}{
		{"unknown target", StatusPending, techID, BookingStatus("delivered"), 0, domain.CodeValidation},
		{"anonymous caller", StatusPending, "", StatusAccepted, 0, domain.CodeUnauthorized},

		{"technician accepts pending", StatusPending, techID, StatusAccepted, TransitionAccept, ""},
		{"customer accepts own booking", StatusPending, customerID, StatusAccepted, 0, domain.CodeForbidden},
		{"assigned technician retries accept", StatusScheduled, techID, StatusAccepted, TransitionAcceptRepeat, ""},
		{"other technician after accept", StatusAccepted, otherTech, StatusAccepted, 0, domain.CodeConflict},
		{"customer after accept", StatusAccepted, customerID, StatusAccepted, 0, domain.CodeConflict},

		{"customer cancels pending", StatusPending, customerID, StatusCancelled, TransitionCancel, ""},
		{"third party cancels pending", StatusPending, otherTech, StatusCancelled, 0, domain.CodeForbidden},
		{"customer cancels accepted", StatusAccepted, customerID, StatusCancelled, 0, domain.CodeConflict},
		{"customer cancels complete", StatusComplete, customerID, StatusCancelled, 0, domain.CodeConflict},
		{"technician cancels", StatusAccepted, techID, StatusCancelled, 0, domain.CodeForbidden},
		{"cancel cancelled", StatusCancelled, customerID, StatusCancelled, 0, domain.CodeConflict},

		{"technician schedules", StatusAccepted, techID, StatusScheduled, TransitionAdvance, ""},
		{"technician skips ahead", StatusAccepted, techID, StatusInProgress, TransitionAdvance, ""},
		{"technician completes", StatusInProgress, techID, StatusComplete, TransitionComplete, ""},
		{"technician completes from accepted", StatusAccepted, techID, StatusComplete, TransitionComplete, ""},
		{"customer advances", StatusAccepted, customerID, StatusScheduled, 0, domain.CodeForbidden},
		{"stranger advances", StatusAccepted, otherTech, StatusScheduled, 0, domain.CodeForbidden},
		{"backwards", StatusScheduled, techID, StatusPending, 0, domain.CodeConflict},
		{"same status", StatusEnRoute, techID, StatusEnRoute, 0, domain.CodeConflict},
		{"from complete", StatusComplete, techID, StatusComplete, 0, domain.CodeConflict},
		{"stranger on pending non-accept", StatusPending, otherTech, StatusScheduled, 0, domain.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := withStatus(t, tt.from)
			before := b.Status()

			kind, err := b.PlanTransition(tt.caller, tt.target)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, domain.CodeOf(err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantKind, kind)
			}
			assert.Equal(t, before, b.Status(), "planning must not mutate the booking")
		})
	}
}

func TestPlanTransition_CancelledPendingKeepsNoTechnician(t *testing.T) {
	b := newPending(t)
	kind, err := b.PlanTransition(customerID, StatusCancelled)
	require.NoError(t, err)
	require.Equal(t, TransitionCancel, kind)
	require.NoError(t, b.Cancel())

	_, err = b.PlanTransition(techID, StatusAccepted)
	assert.Equal(t, domain.CodeForbidden, domain.CodeOf(err))
	assert.Nil(t, b.TechnicianID())
}

func TestInvalidStateMessage(t *testing.T) {
	b := withStatus(t, StatusScheduled)
	_, err := b.PlanTransition(techID, StatusPending)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot transition from scheduled to pending")
}
