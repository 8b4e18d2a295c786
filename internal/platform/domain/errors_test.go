package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf_UnwrapsChain(t *testing.T) {
	err := fmt.Errorf("failed to load booking: %w", NewNotFoundError("Booking", "b-1"))
	assert.Equal(t, CodeNotFound, CodeOf(err))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsConflict(err))
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("boom")))
}

func TestNewInvalidStateError(t *testing.T) {
	err := NewInvalidStateError("scheduled", "pending")
	assert.Equal(t, CodeConflict, err.Code)
	assert.Equal(t, "cannot transition from scheduled to pending", err.Message)
}

func TestNewPaginatedResult_TotalPages(t *testing.T) {
	r := NewPaginatedResult([]int{1, 2}, 41, 1, 20)
	assert.Equal(t, 3, r.TotalPages)

	empty := NewPaginatedResult[int](nil, 0, 1, 20)
	assert.NotNil(t, empty.Items)
	assert.Equal(t, 0, empty.TotalPages)
}
