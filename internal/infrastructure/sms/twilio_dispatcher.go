package sms

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/avatarctic/phone-confirmation/internal/core/ports"
)

// messageCreator is the subset of the Twilio REST API used to send messages.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioDispatcher implements ports.NotificationDispatcher with Twilio Programmable Messaging
type TwilioDispatcher struct {
	api                 messageCreator
	from                string
	messagingServiceSID string
	logger              *logrus.Logger
}

// NewTwilioDispatcher creates a dispatcher backed by the Twilio REST client
func NewTwilioDispatcher(config *SMSConfig, logger *logrus.Logger) (*TwilioDispatcher, error) {
	if config.TwilioAccountSID == "" || config.TwilioAuthToken == "" {
		return nil, fmt.Errorf("twilio credentials are not configured")
	}
	if config.FromNumber == "" && config.MessagingServiceSID == "" {
		return nil, fmt.Errorf("twilio sender is not configured")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: config.TwilioAccountSID,
		Password: config.TwilioAuthToken,
	})

	return newTwilioDispatcher(client.Api, config, logger), nil
}

func newTwilioDispatcher(api messageCreator, config *SMSConfig, logger *logrus.Logger) *TwilioDispatcher {
	return &TwilioDispatcher{
		api:                 api,
		from:                config.FromNumber,
		messagingServiceSID: config.MessagingServiceSID,
		logger:              logger,
	}
}

var _ ports.NotificationDispatcher = (*TwilioDispatcher)(nil)

// Send delivers message to phoneNumber. Failures are returned as-is, without retries.
func (d *TwilioDispatcher) Send(ctx context.Context, phoneNumber, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(phoneNumber)
	params.SetBody(message)
	if d.messagingServiceSID != "" {
		params.SetMessagingServiceSid(d.messagingServiceSID)
	} else {
		params.SetFrom(d.from)
	}

	resp, err := d.api.CreateMessage(params)
	if err != nil {
		if d.logger != nil {
			d.logger.WithFields(logrus.Fields{"to": maskPhone(phoneNumber)}).WithError(err).Error("Failed to send SMS via Twilio")
		}
		return fmt.Errorf("failed to send sms via twilio: %w", err)
	}

	if d.logger != nil {
		fields := logrus.Fields{"to": maskPhone(phoneNumber)}
		if resp != nil && resp.Sid != nil {
			fields["sid"] = *resp.Sid
		}
		d.logger.WithFields(fields).Info("SMS sent successfully")
	}
	return nil
}

// maskPhone keeps the last four digits of a number for logs.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}
