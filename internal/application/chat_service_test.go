package application

import (
	"context"
	"testing"

	bookingDomain "github.com/fixmate/service-marketplace/internal/domain/booking"
	"github.com/fixmate/service-marketplace/internal/domain/notification"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatService_Thread(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	bk := h.seedBooking(t, resolvedAddress())
	chatNotifier := &recordingNotifier{}
	svc := NewChatService(h.bookings, h.messages, chatNotifier, h.runner, h.logger)

	_, err := svc.PostMessage(ctx, customerID, bk.ID(), PostMessageRequest{Body: "Is 9am ok?"})
	require.NoError(t, err)
	h.runner.Wait()
	assert.Empty(t, chatNotifier.all(), "nobody to notify before a technician accepts")

	_, err = h.statusService(nil, nil, nil).Transition(ctx, bk.ID(), techID, bookingDomain.StatusAccepted, TransitionOptions{})
	require.NoError(t, err)

	_, err = svc.PostMessage(ctx, techID, bk.ID(), PostMessageRequest{Body: "  9am works  "})
	require.NoError(t, err)
	_, err = svc.PostMessage(ctx, customerID, bk.ID(), PostMessageRequest{Body: "Great"})
	require.NoError(t, err)
	h.runner.Wait()

	sent := chatNotifier.all()
	require.Len(t, sent, 2)
	recipients := []string{sent[0].userID, sent[1].userID}
	assert.ElementsMatch(t, []string{customerID, techID}, recipients)
	assert.Equal(t, notification.KindChatMessage, sent[0].kind)

	page, err := svc.ListMessages(ctx, techID, bk.ID(), 1, 50)
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "Is 9am ok?", page.Items[0].Body)
	assert.Equal(t, "9am works", page.Items[1].Body)

	_, err = svc.ListMessages(ctx, strangerID, bk.ID(), 1, 50)
	assert.True(t, domain.IsForbidden(err))
	_, err = svc.PostMessage(ctx, strangerID, bk.ID(), PostMessageRequest{Body: "hi"})
	assert.True(t, domain.IsForbidden(err))
}

func TestChatService_CancelledBookingIsClosed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	bk := h.seedBooking(t, resolvedAddress())
	_, err := h.statusService(nil, nil, nil).Transition(ctx, bk.ID(), customerID, bookingDomain.StatusCancelled, TransitionOptions{})
	require.NoError(t, err)

	svc := NewChatService(h.bookings, h.messages, nil, h.runner, h.logger)
	_, err = svc.PostMessage(ctx, customerID, bk.ID(), PostMessageRequest{Body: "never mind"})
	assert.True(t, domain.IsConflict(err))
}
