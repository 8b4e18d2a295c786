package notification

import (
	"testing"
	"time"

	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	n, err := New("user-1", KindBookingStatus, "Booking accepted", "", nil)
	require.NoError(t, err)
	assert.False(t, n.IsRead())
	assert.NotNil(t, n.Data())

	_, err = New("", KindBookingStatus, "t", "", nil)
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
	_, err = New("user-1", Kind("fax"), "t", "", nil)
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
}

func TestMarkReadOnce(t *testing.T) {
	n, err := New("user-1", KindRecall, "Recall", "", nil)
	require.NoError(t, err)
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	n.MarkRead(first)
	n.MarkRead(first.Add(time.Hour))
	require.NotNil(t, n.ReadAt())
	assert.Equal(t, first, *n.ReadAt())
}

func TestNewContact(t *testing.T) {
	c, err := NewContact("user-1", "+15125550100", true)
	require.NoError(t, err)
	assert.True(t, c.SMSOptIn)

	for _, bad := range []string{"", "5125550100", "+0123456789", "+1512-555-0100"} {
		_, err := NewContact("user-1", bad, true)
		assert.Error(t, err, bad)
	}
}
