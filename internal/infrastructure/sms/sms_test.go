package sms

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/avatarctic/phone-confirmation/internal/core/domain/identity"
)

func TestTemplateRenderer_Default(t *testing.T) {
	r, err := NewTemplateRenderer(&SMSConfig{CompanyName: "Acme"})
	require.NoError(t, err)

	msg, err := r.RenderConfirmation(&identity.Identity{Phone: "+15550000001"}, "AB12C")

	require.NoError(t, err)
	assert.Equal(t, "Acme: your confirmation code is AB12C", msg)
}

func TestTemplateRenderer_CustomTemplate(t *testing.T) {
	r, err := NewTemplateRenderer(&SMSConfig{
		MessageTemplate: `{{if .Reconfirmation}}Confirm your new number {{.Phone}}{{else}}Welcome{{end}}: {{.Token}}`,
	})
	require.NoError(t, err)
	pending := "+15550000002"

	msg, err := r.RenderConfirmation(&identity.Identity{Phone: "+15550000001", UnconfirmedPhone: &pending}, "XYZ99")

	require.NoError(t, err)
	assert.Equal(t, "Confirm your new number +15550000002: XYZ99", msg)
}

func TestTemplateRenderer_InvalidTemplate(t *testing.T) {
	_, err := NewTemplateRenderer(&SMSConfig{MessageTemplate: "{{.Token"})
	assert.Error(t, err)

	r, err := NewTemplateRenderer(&SMSConfig{MessageTemplate: "{{.Missing}}"})
	require.NoError(t, err)
	_, err = r.RenderConfirmation(&identity.Identity{}, "AB12C")
	assert.Error(t, err)
}

type fakeMessageCreator struct {
	params *twilioApi.CreateMessageParams
	err    error
}

func (f *fakeMessageCreator) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestTwilioDispatcher_Send(t *testing.T) {
	api := &fakeMessageCreator{}
	d := newTwilioDispatcher(api, &SMSConfig{FromNumber: "+15551112222"}, logrus.New())

	require.NoError(t, d.Send(context.Background(), "+15550000001", "code AB12C"))

	require.NotNil(t, api.params)
	assert.Equal(t, "+15550000001", *api.params.To)
	assert.Equal(t, "+15551112222", *api.params.From)
	assert.Equal(t, "code AB12C", *api.params.Body)
	assert.Nil(t, api.params.MessagingServiceSid)
}

func TestTwilioDispatcher_MessagingService(t *testing.T) {
	api := &fakeMessageCreator{}
	d := newTwilioDispatcher(api, &SMSConfig{MessagingServiceSID: "MG1"}, nil)

	require.NoError(t, d.Send(context.Background(), "+15550000001", "hi"))

	assert.Equal(t, "MG1", *api.params.MessagingServiceSid)
	assert.Nil(t, api.params.From)
}

func TestTwilioDispatcher_ErrorIsReturned(t *testing.T) {
	errAPI := errors.New("status 400: invalid 'To' number")
	d := newTwilioDispatcher(&fakeMessageCreator{err: errAPI}, &SMSConfig{FromNumber: "+15551112222"}, logrus.New())

	err := d.Send(context.Background(), "+15550000001", "hi")

	assert.ErrorIs(t, err, errAPI)
}

func TestTwilioDispatcher_CancelledContext(t *testing.T) {
	api := &fakeMessageCreator{}
	d := newTwilioDispatcher(api, &SMSConfig{FromNumber: "+15551112222"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, d.Send(ctx, "+15550000001", "hi"), context.Canceled)
	assert.Nil(t, api.params)
}

func TestNewTwilioDispatcher_RequiresCredentials(t *testing.T) {
	_, err := NewTwilioDispatcher(&SMSConfig{FromNumber: "+15551112222"}, nil)
	assert.Error(t, err)

	_, err = NewTwilioDispatcher(&SMSConfig{TwilioAccountSID: "AC1", TwilioAuthToken: "t"}, nil)
	assert.Error(t, err)

	d, err := NewTwilioDispatcher(&SMSConfig{TwilioAccountSID: "AC1", TwilioAuthToken: "t", FromNumber: "+15551112222"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, d)
}

func TestLogDispatcher(t *testing.T) {
	logger, hook := test.NewNullLogger()
	d := NewLogDispatcher(logger)

	require.NoError(t, d.Send(context.Background(), "+15550000001", "code AB12C"))

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "+15550000001", hook.LastEntry().Data["to"])
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "****0001", maskPhone("+15550000001"))
	assert.Equal(t, "****", maskPhone("123"))
}
