// Package sms delivers text messages through Twilio.
package sms

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// TwilioSender sends SMS through the Twilio messages API.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
	logger *zap.Logger
}

// NewTwilioSender creates a TwilioSender for the given account.
func NewTwilioSender(accountSID, authToken, from string, logger *zap.Logger) *TwilioSender {
	return &TwilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		from:   from,
		logger: logger,
	}
}

// SendSMS sends body to the E.164 number to. The Twilio client has no context
// support, so ctx is only checked before the call.
func (s *TwilioSender) SendSMS(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	s.logger.Info("sms sent", zap.String("message_sid", sid))
	return nil
}

// LogSender only logs messages. It stands in when Twilio is not configured.
type LogSender struct {
	Logger *zap.Logger
}

// SendSMS logs the message at debug level.
func (s LogSender) SendSMS(_ context.Context, to, body string) error {
	s.Logger.Debug("sms delivery disabled", zap.String("to", to), zap.Int("length", len(body)))
	return nil
}
