package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/phone-confirmation/internal/core/domain/identity"
	"github.com/avatarctic/phone-confirmation/internal/core/ports"
)

// RequestConfirmation finds an identity by the configured lookup keys and resends its
// confirmation message. When nothing matches, a placeholder carrying not_found (or blank)
// errors is returned instead.
func (s *ConfirmationService) RequestConfirmation(ctx context.Context, lookup map[string]string, st *identity.RequestState) (*identity.Identity, error) {
	attrs := make(map[string]string, len(s.lookupKeys))
	blank := false
	for _, key := range s.lookupKeys {
		attrs[key] = strings.TrimSpace(lookup[key])
		if attrs[key] == "" {
			blank = true
		}
	}
	if blank {
		return s.placeholder(attrs, identity.ErrKindNotFound), nil
	}

	first := s.lookupKeys[0]
	ident, err := s.store.FindByUniqueField(ctx, first, attrs[first])
	if errors.Is(err, ports.ErrIdentityNotFound) && first == identity.FieldPhone {
		// Pending phone changes are confirmed from the new number.
		ident, err = s.store.FindByUniqueField(ctx, identity.FieldUnconfirmedPhone, attrs[first])
	}
	if errors.Is(err, ports.ErrIdentityNotFound) {
		return s.placeholder(attrs, identity.ErrKindNotFound), nil
	}
	if err != nil {
		return nil, err
	}

	for _, key := range s.lookupKeys[1:] {
		if !lookupMatches(ident, key, attrs[key]) {
			return s.placeholder(attrs, identity.ErrKindNotFound), nil
		}
	}

	if ident.IsPersisted() {
		if _, err := s.Resend(ctx, ident, st); err != nil {
			return ident, err
		}
	}
	return ident, nil
}

// ConfirmByToken finds the identity owning token and confirms it.
func (s *ConfirmationService) ConfirmByToken(ctx context.Context, token string, st *identity.RequestState) (*identity.Identity, error) {
	token = strings.ToUpper(strings.TrimSpace(token))
	if token == "" {
		ph := &identity.Identity{}
		ph.Errors.Add(identity.FieldConfirmationToken, identity.ErrKindBlank)
		return ph, nil
	}

	ident, err := s.store.FindByUniqueField(ctx, identity.FieldConfirmationToken, token)
	if errors.Is(err, ports.ErrIdentityNotFound) {
		if s.logger != nil {
			s.logger.Debug("confirmation token not found")
		}
		ph := &identity.Identity{}
		ph.Errors.Add(identity.FieldConfirmationToken, identity.ErrKindNotFound)
		confirmAttemptsTotal.WithLabelValues("not_found").Inc()
		return ph, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.Confirm(ctx, ident, token, st); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"identity_id": ident.ID}).WithError(err).Error("failed to confirm identity")
		}
		return ident, err
	}
	return ident, nil
}

// placeholder builds an unsaved identity echoing the lookup attributes, with kind recorded
// on every non-blank key and blank on the others.
func (s *ConfirmationService) placeholder(attrs map[string]string, kind identity.ErrorKind) *identity.Identity {
	ph := &identity.Identity{Phone: attrs[identity.FieldPhone]}
	for _, key := range s.lookupKeys {
		if attrs[key] == "" {
			ph.Errors.Add(key, identity.ErrKindBlank)
			continue
		}
		ph.Errors.Add(key, kind)
	}
	return ph
}

// lookupMatches compares one lookup attribute. A phone matches either the current number or
// the one pending reconfirmation.
func lookupMatches(ident *identity.Identity, key, value string) bool {
	if v, ok := ident.Attribute(key); ok && v == value {
		return true
	}
	if key == identity.FieldPhone {
		v, ok := ident.Attribute(identity.FieldUnconfirmedPhone)
		return ok && v == value
	}
	return false
}
