package services

import (
	"context"

	"github.com/avatarctic/phone-confirmation/internal/core/domain/identity"
)

// The host persistence layer calls these around its own writes; nothing is registered
// implicitly.

// BeforeCreate issues a token for a new identity that has to confirm its phone.
func (s *ConfirmationService) BeforeCreate(ctx context.Context, ident *identity.Identity, st *identity.RequestState) error {
	if !s.confirmationRequired(ident) || ident.IsConfirmed() || ident.HasOutstandingToken() {
		return nil
	}
	return s.IssueToken(ctx, ident, st)
}

// AfterCreate sends the initial confirmation message unless suppressed.
func (s *ConfirmationService) AfterCreate(ctx context.Context, ident *identity.Identity, st *identity.RequestState) error {
	if !s.confirmationRequired(ident) || ident.IsConfirmed() {
		return nil
	}
	_, err := s.DispatchNotification(ctx, ident, st)
	return err
}

// BeforeUpdate runs the phone change guard against the persisted phone value.
func (s *ConfirmationService) BeforeUpdate(ctx context.Context, ident *identity.Identity, persistedPhone string, st *identity.RequestState) error {
	_, err := s.guard.Apply(ctx, ident, persistedPhone, st)
	return err
}

// AfterUpdate sends the reconfirmation message for a change deferred in BeforeUpdate.
func (s *ConfirmationService) AfterUpdate(ctx context.Context, ident *identity.Identity, st *identity.RequestState) error {
	if !st.IsReconfirmationPending() {
		return nil
	}
	st.ClearReconfirmationPending()
	_, err := s.DispatchNotification(ctx, ident, st)
	return err
}
