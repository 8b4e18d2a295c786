package sms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestTwilioSender_CancelledContextSkipsCall(t *testing.T) {
	s := NewTwilioSender("AC00000000000000000000000000000000", "token", "+15125550000", zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.SendSMS(ctx, "+15125550100", "Oil change due")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := LogSender{Logger: zap.New(core)}

	assert.NoError(t, s.SendSMS(context.Background(), "+15125550100", "hello"))
	entries := logs.FilterMessage("sms delivery disabled").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "+15125550100", entries[0].ContextMap()["to"])
		assert.Equal(t, int64(5), entries[0].ContextMap()["length"])
	}
}
