package services_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	impl "github.com/avatarctic/phone-confirmation/internal/application/services"
	"github.com/avatarctic/phone-confirmation/internal/core/domain/identity"
	"github.com/avatarctic/phone-confirmation/internal/mocks"
)

func TestTokenIssuer_MapsEntropyOntoAlphabet(t *testing.T) {
	entropy := bytes.NewReader([]byte{0, 1, 2, 3, 26})
	issuer := impl.NewTokenIssuer(&mocks.IdentityStoreMock{}, entropy, 0, nil)

	token, err := issuer.Issue(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "ABCD0", token)
	assert.Equal(t, 10, issuer.MaxAttempts())
}

func TestTokenIssuer_RejectsBiasedBytes(t *testing.T) {
	// 252..255 fall outside the largest multiple of 36 and are skipped.
	entropy := bytes.NewReader([]byte{252, 0, 255, 1, 2, 3, 4, 253, 254, 36})
	issuer := impl.NewTokenIssuer(&mocks.IdentityStoreMock{}, entropy, 0, nil)

	token, err := issuer.Issue(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "ABCDE", token)
}

func TestTokenIssuer_SkipsCollisions(t *testing.T) {
	entropy := bytes.NewReader([]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	var probed []string
	probe := &mocks.IdentityStoreMock{ExistsWithValueFn: func(ctx context.Context, field, value string) (bool, error) {
		assert.Equal(t, identity.FieldConfirmationToken, field)
		probed = append(probed, value)
		return value == "ABCDE", nil
	}}
	issuer := impl.NewTokenIssuer(probe, entropy, 0, nil)

	token, err := issuer.Issue(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "FGHIJ", token)
	assert.Equal(t, []string{"ABCDE", "FGHIJ"}, probed)
}

func TestTokenIssuer_ExhaustsAttemptBudget(t *testing.T) {
	probe := &mocks.IdentityStoreMock{ExistsWithValueFn: func(ctx context.Context, field, value string) (bool, error) {
		return true, nil
	}}
	issuer := impl.NewTokenIssuer(probe, nil, 3, nil)

	_, err := issuer.Issue(context.Background())

	assert.ErrorIs(t, err, impl.ErrTokenSpaceExhausted)
}

func TestTokenIssuer_ProbeErrorPropagates(t *testing.T) {
	errDB := errors.New("db down")
	probe := &mocks.IdentityStoreMock{ExistsWithValueFn: func(ctx context.Context, field, value string) (bool, error) {
		return false, errDB
	}}
	issuer := impl.NewTokenIssuer(probe, nil, 0, nil)

	_, err := issuer.Issue(context.Background())

	assert.ErrorIs(t, err, errDB)
}

func TestTokenIssuer_EntropyFailure(t *testing.T) {
	issuer := impl.NewTokenIssuer(&mocks.IdentityStoreMock{}, bytes.NewReader([]byte{1, 2}), 0, nil)

	_, err := issuer.Issue(context.Background())

	assert.Error(t, err)
}

func TestTokenIssuer_DefaultEntropyProducesValidTokens(t *testing.T) {
	issuer := impl.NewTokenIssuer(&mocks.IdentityStoreMock{}, nil, 0, nil)
	for i := 0; i < 50; i++ {
		token, err := issuer.Issue(context.Background())
		require.NoError(t, err)
		assert.Regexp(t, tokenPattern, token)
	}
}
