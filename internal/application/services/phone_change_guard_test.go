package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	impl "github.com/avatarctic/phone-confirmation/internal/application/services"
	"github.com/avatarctic/phone-confirmation/internal/core/domain/identity"
)

func TestPhoneChangeGuard_PostponesChange(t *testing.T) {
	reissued := 0
	guard := impl.NewPhoneChangeGuard(func(ctx context.Context, ident *identity.Identity, st *identity.RequestState) error {
		reissued++
		return nil
	})
	ident := &identity.Identity{Phone: "+15550000002"}
	st := identity.NewRequestState()

	postponed, err := guard.Apply(context.Background(), ident, "+15550000001", st)

	require.NoError(t, err)
	assert.True(t, postponed)
	assert.Equal(t, "+15550000001", ident.Phone)
	require.NotNil(t, ident.UnconfirmedPhone)
	assert.Equal(t, "+15550000002", *ident.UnconfirmedPhone)
	assert.True(t, st.IsReconfirmationPending())
	assert.Equal(t, 1, reissued)
}

func TestPhoneChangeGuard_BypassAppliesOnce(t *testing.T) {
	guard := impl.NewPhoneChangeGuard(func(ctx context.Context, ident *identity.Identity, st *identity.RequestState) error { return nil })
	st := identity.NewRequestState()
	st.SkipReconfirmationPostponeOnce()

	first := &identity.Identity{Phone: "+15550000002"}
	postponed, err := guard.Apply(context.Background(), first, "+15550000001", st)
	require.NoError(t, err)
	assert.False(t, postponed)
	assert.Equal(t, "+15550000002", first.Phone)
	assert.Nil(t, first.UnconfirmedPhone)
	assert.False(t, st.BypassPostpone(), "bypass is reset after one use")

	second := &identity.Identity{Phone: "+15550000003"}
	postponed, err = guard.Apply(context.Background(), second, "+15550000002", st)
	require.NoError(t, err)
	assert.True(t, postponed)
}

func TestPhoneChangeGuard_IgnoresUnchangedAndBlankPhone(t *testing.T) {
	guard := impl.NewPhoneChangeGuard(func(ctx context.Context, ident *identity.Identity, st *identity.RequestState) error {
		t.Fatal("reissue must not be called")
		return nil
	})

	assert.False(t, guard.ShouldPostpone(&identity.Identity{Phone: "+15550000001"}, "+15550000001", nil))
	assert.False(t, guard.ShouldPostpone(&identity.Identity{Phone: ""}, "+15550000001", nil))

	postponed, err := guard.Apply(context.Background(), &identity.Identity{Phone: "+15550000001"}, "+15550000001", nil)
	require.NoError(t, err)
	assert.False(t, postponed)
}

func TestPhoneChangeGuard_ReissueErrorPropagates(t *testing.T) {
	errIssue := errors.New("token space exhausted")
	guard := impl.NewPhoneChangeGuard(func(ctx context.Context, ident *identity.Identity, st *identity.RequestState) error { return errIssue })

	postponed, err := guard.Apply(context.Background(), &identity.Identity{Phone: "+15550000002"}, "+15550000001", identity.NewRequestState())

	assert.True(t, postponed)
	assert.ErrorIs(t, err, errIssue)
}
