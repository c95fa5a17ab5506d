package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/phone-confirmation/internal/core/domain/identity"
	"github.com/avatarctic/phone-confirmation/internal/core/ports"
)

const (
	// TokenLength is the number of characters in a confirmation token.
	TokenLength = 5
	// TokenAlphabet is the set of characters tokens are drawn from.
	TokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	defaultMaxTokenAttempts = 10
	// largest multiple of len(TokenAlphabet) that fits in a byte; bytes above it are rejected
	unbiasedByteLimit = 256 - 256%len(TokenAlphabet)
)

// ErrTokenSpaceExhausted is returned when every candidate within the attempt budget collided.
var ErrTokenSpaceExhausted = errors.New("confirmation token space exhausted")

// TokenIssuer mints short confirmation tokens that do not collide with outstanding ones.
// Persisting the token is the caller's job; the store's unique constraint remains the
// authority since the probe is check-then-act.
type TokenIssuer struct {
	probe       ports.TokenProbe
	entropy     io.Reader
	maxAttempts int
	logger      *logrus.Logger
}

// NewTokenIssuer creates a token issuer. A nil entropy source falls back to crypto/rand and a
// non-positive maxAttempts to the default budget.
func NewTokenIssuer(probe ports.TokenProbe, entropy io.Reader, maxAttempts int, logger *logrus.Logger) *TokenIssuer {
	if entropy == nil {
		entropy = rand.Reader
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxTokenAttempts
	}
	return &TokenIssuer{probe: probe, entropy: entropy, maxAttempts: maxAttempts, logger: logger}
}

// MaxAttempts is the number of candidates tried before giving up.
func (t *TokenIssuer) MaxAttempts() int {
	return t.maxAttempts
}

// Issue returns a token not reported as existing by the uniqueness probe.
func (t *TokenIssuer) Issue(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		candidate, err := t.candidate()
		if err != nil {
			return "", fmt.Errorf("failed to generate confirmation token: %w", err)
		}

		exists, err := t.probe.ExistsWithValue(ctx, identity.FieldConfirmationToken, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to probe confirmation token: %w", err)
		}
		if !exists {
			return candidate, nil
		}

		if t.logger != nil {
			t.logger.WithFields(logrus.Fields{"attempt": attempt}).Debug("confirmation token collided, retrying")
		}
	}

	if t.logger != nil {
		t.logger.WithFields(logrus.Fields{"attempts": t.maxAttempts}).Error("confirmation token attempts exhausted")
	}
	return "", ErrTokenSpaceExhausted
}

func (t *TokenIssuer) candidate() (string, error) {
	out := make([]byte, 0, TokenLength)
	buf := make([]byte, TokenLength)
	for len(out) < TokenLength {
		if _, err := io.ReadFull(t.entropy, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= unbiasedByteLimit {
				continue
			}
			out = append(out, TokenAlphabet[int(b)%len(TokenAlphabet)])
			if len(out) == TokenLength {
				break
			}
		}
	}
	return string(out), nil
}
