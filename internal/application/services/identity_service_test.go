package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	impl "github.com/avatarctic/phone-confirmation/internal/application/services"
	"github.com/avatarctic/phone-confirmation/internal/core/domain/identity"
	"github.com/avatarctic/phone-confirmation/internal/core/ports"
	"github.com/avatarctic/phone-confirmation/internal/mocks"
)

func newIdentityService(t *testing.T, cfg impl.ConfirmationConfig) (ports.IdentityService, *confirmationFixture) {
	t.Helper()
	f := newConfirmationFixture(t, cfg)
	return impl.NewIdentityService(f.store, f.svc, logrus.New()), f
}

func TestRegister_IssuesTokenAndSendsMessage(t *testing.T) {
	svc, f := newIdentityService(t, impl.ConfirmationConfig{})

	created, err := svc.Register(context.Background(), &identity.RegisterRequest{Phone: "+15550000001"}, nil)

	require.NoError(t, err)
	require.True(t, created.Errors.Empty())
	row := f.store.Row(created.ID)
	require.NotNil(t, row)
	require.NotNil(t, row.ConfirmationToken)
	assert.Regexp(t, tokenPattern, *row.ConfirmationToken)
	assert.Nil(t, row.ConfirmedAt)
	require.Len(t, f.dispatcher.Sent, 1)
	assert.Equal(t, "code:"+*row.ConfirmationToken, f.dispatcher.Sent[0].Body)
	assert.Equal(t, 1, f.store.CreateCalls)
	assert.Zero(t, f.store.SaveCalls, "the token issued before create is reused for the message")
}

func TestRegister_SkipNotification(t *testing.T) {
	svc, f := newIdentityService(t, impl.ConfirmationConfig{})

	created, err := svc.Register(context.Background(), &identity.RegisterRequest{Phone: "+15550000001", SkipNotification: true}, nil)

	require.NoError(t, err)
	assert.NotNil(t, f.store.Row(created.ID).ConfirmationToken)
	assert.Empty(t, f.dispatcher.Sent)
}

func TestRegister_SkipConfirmation(t *testing.T) {
	svc, f := newIdentityService(t, impl.ConfirmationConfig{})

	created, err := svc.Register(context.Background(), &identity.RegisterRequest{Phone: "+15550000001", SkipConfirmation: true}, nil)

	require.NoError(t, err)
	row := f.store.Row(created.ID)
	assert.NotNil(t, row.ConfirmedAt)
	assert.Nil(t, row.ConfirmationToken)
	assert.Empty(t, f.dispatcher.Sent)
}

func TestRegister_OptionalConfirmationIssuesNothing(t *testing.T) {
	svc, f := newIdentityService(t, impl.ConfirmationConfig{Optional: true})

	created, err := svc.Register(context.Background(), &identity.RegisterRequest{Phone: "+15550000001"}, nil)

	require.NoError(t, err)
	assert.Nil(t, f.store.Row(created.ID).ConfirmationToken)
	assert.Empty(t, f.dispatcher.Sent)
}

func TestRegister_DuplicatePhoneIsFieldError(t *testing.T) {
	svc, f := newIdentityService(t, impl.ConfirmationConfig{})
	f.seed("+15550000001", nil)

	created, err := svc.Register(context.Background(), &identity.RegisterRequest{Phone: "+15550000001"}, nil)

	require.NoError(t, err)
	assert.False(t, created.IsPersisted())
	assert.Equal(t, identity.ErrKindValidationFailed, created.Errors.On(identity.FieldPhone)[0].Kind)
	assert.Empty(t, f.dispatcher.Sent)
}

func TestRegister_RetriesOnTokenCollision(t *testing.T) {
	svc, f := newIdentityService(t, impl.ConfirmationConfig{})
	rejected := false
	f.store.BeforeWrite = func(i *identity.Identity) error {
		if !rejected {
			rejected = true
			return identity.NewFieldError(identity.FieldConfirmationToken, identity.ErrKindValidationFailed)
		}
		return nil
	}

	created, err := svc.Register(context.Background(), &identity.RegisterRequest{Phone: "+15550000001"}, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, f.store.CreateCalls)
	row := f.store.Row(created.ID)
	assert.Equal(t, "code:"+*row.ConfirmationToken, f.dispatcher.Sent[0].Body)
}

func TestRegister_DeliveryFailureDoesNotFailCreation(t *testing.T) {
	svc, f := newIdentityService(t, impl.ConfirmationConfig{})
	f.dispatcher.SendFn = func(ctx context.Context, phoneNumber, message string) error { return errors.New("twilio down") }

	created, err := svc.Register(context.Background(), &identity.RegisterRequest{Phone: "+15550000001"}, nil)

	require.NoError(t, err)
	assert.NotNil(t, f.store.Row(created.ID).ConfirmationToken)
}

func TestChangePhone_PostponedUntilConfirmed(t *testing.T) {
	svc, f := newIdentityService(t, impl.ConfirmationConfig{})
	existing := f.seed("+15550000001", func(i *identity.Identity) { i.ConfirmedAt = timePtr(f.now.Add(-day)) })

	updated, err := svc.ChangePhone(context.Background(), existing.ID, "+15550000002", nil)

	require.NoError(t, err)
	require.True(t, updated.Errors.Empty())
	row := f.store.Row(existing.ID)
	assert.Equal(t, "+15550000001", row.Phone)
	require.NotNil(t, row.UnconfirmedPhone)
	assert.Equal(t, "+15550000002", *row.UnconfirmedPhone)
	assert.NotNil(t, row.ConfirmedAt, "identity stays confirmed for its current number")
	require.Len(t, f.dispatcher.Sent, 1)
	assert.Equal(t, "+15550000002", f.dispatcher.Sent[0].To)

	confirmed, err := f.svc.ConfirmByToken(context.Background(), *row.ConfirmationToken, nil)
	require.NoError(t, err)
	require.True(t, confirmed.Errors.Empty())
	row = f.store.Row(existing.ID)
	assert.Equal(t, "+15550000002", row.Phone)
	assert.Nil(t, row.UnconfirmedPhone)
}

func TestChangePhone_BypassAppliesImmediately(t *testing.T) {
	svc, f := newIdentityService(t, impl.ConfirmationConfig{})
	existing := f.seed("+15550000001", func(i *identity.Identity) { i.ConfirmedAt = timePtr(f.now) })
	st := identity.NewRequestState()
	st.SkipReconfirmationPostponeOnce()

	_, err := svc.ChangePhone(context.Background(), existing.ID, "+15550000002", st)

	require.NoError(t, err)
	row := f.store.Row(existing.ID)
	assert.Equal(t, "+15550000002", row.Phone)
	assert.Nil(t, row.UnconfirmedPhone)
	assert.Nil(t, row.ConfirmationToken)
	assert.True(t, f.store.PhoneValidated)
	assert.Empty(t, f.dispatcher.Sent)
	assert.False(t, st.BypassPostpone())
}

func TestChangePhone_SkipNotification(t *testing.T) {
	svc, f := newIdentityService(t, impl.ConfirmationConfig{})
	existing := f.seed("+15550000001", func(i *identity.Identity) { i.ConfirmedAt = timePtr(f.now) })
	st := identity.NewRequestState()
	st.SkipConfirmationNotification()

	_, err := svc.ChangePhone(context.Background(), existing.ID, "+15550000002", st)

	require.NoError(t, err)
	assert.NotNil(t, f.store.Row(existing.ID).UnconfirmedPhone)
	assert.Empty(t, f.dispatcher.Sent)
	assert.False(t, st.IsReconfirmationPending())
}

func TestChangePhone_NotFound(t *testing.T) {
	svc, _ := newIdentityService(t, impl.ConfirmationConfig{})

	_, err := svc.ChangePhone(context.Background(), uuid.New(), "+15550000002", nil)

	assert.ErrorIs(t, err, ports.ErrIdentityNotFound)
}

func TestChangePhone_StaleWrite(t *testing.T) {
	f := newConfirmationFixture(t, impl.ConfirmationConfig{})
	existing := f.seed("+15550000001", nil)
	store := &mocks.IdentityStoreMock{
		GetByIDFn: func(ctx context.Context, id uuid.UUID) (*identity.Identity, error) { return existing, nil },
		SaveFn: func(ctx context.Context, ident *identity.Identity, validatePhoneUniqueness bool) error {
			return ports.ErrStaleIdentity
		},
	}
	svc := impl.NewIdentityService(store, f.svc, logrus.New())

	_, err := svc.ChangePhone(context.Background(), existing.ID, "+15550000002", nil)

	assert.ErrorIs(t, err, ports.ErrStaleIdentity)
}

func TestSkipConfirmation_PersistsConfirmedAt(t *testing.T) {
	svc, f := newIdentityService(t, impl.ConfirmationConfig{})
	existing := f.seed("+15550000001", nil)

	updated, err := svc.SkipConfirmation(context.Background(), existing.ID)

	require.NoError(t, err)
	assert.True(t, updated.IsConfirmed())
	assert.True(t, f.store.Row(existing.ID).IsConfirmed())
}

func TestStatus(t *testing.T) {
	svc, f := newIdentityService(t, impl.ConfirmationConfig{Window: 3 * day})
	pending := f.seed("+15550000001", func(i *identity.Identity) {
		i.ConfirmationToken = strPtr("ABCDE")
		i.ConfirmationSentAt = timePtr(f.now.Add(-4 * day))
	})

	status, err := svc.Status(context.Background(), pending.ID)

	require.NoError(t, err)
	assert.Equal(t, identity.StateTokenExpired, status.State)
	assert.False(t, status.Active)
	assert.False(t, status.Confirmed)
	assert.Equal(t, impl.MessageUnconfirmed, status.InactiveMessage)

	f.now = f.now.Add(-2 * day)
	status, err = svc.Status(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.True(t, status.Active)
	assert.Empty(t, status.InactiveMessage)
}
