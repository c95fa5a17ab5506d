package services

import (
	"context"

	"github.com/avatarctic/phone-confirmation/internal/core/domain/identity"
)

type reissueFunc func(ctx context.Context, ident *identity.Identity, st *identity.RequestState) error

// PhoneChangeGuard defers phone changes until the new number is confirmed.
type PhoneChangeGuard struct {
	reissue reissueFunc
}

// NewPhoneChangeGuard creates a guard that calls reissue after moving a change aside.
func NewPhoneChangeGuard(reissue reissueFunc) *PhoneChangeGuard {
	return &PhoneChangeGuard{reissue: reissue}
}

// ShouldPostpone reports whether the pending write of ident.Phone must be deferred.
func (g *PhoneChangeGuard) ShouldPostpone(ident *identity.Identity, persistedPhone string, st *identity.RequestState) bool {
	return ident.Phone != persistedPhone && !st.BypassPostpone() && ident.Phone != ""
}

// Apply evaluates the policy and, when it holds, moves the new number into
// UnconfirmedPhone, restores the persisted one and reissues a token. The bypass flag is
// reset whatever the outcome.
func (g *PhoneChangeGuard) Apply(ctx context.Context, ident *identity.Identity, persistedPhone string, st *identity.RequestState) (bool, error) {
	if st == nil {
		st = identity.NewRequestState()
	}
	postpone := g.ShouldPostpone(ident, persistedPhone, st)
	st.ConsumeBypass()
	if !postpone {
		return false, nil
	}

	newPhone := ident.Phone
	ident.UnconfirmedPhone = &newPhone
	ident.Phone = persistedPhone
	st.MarkReconfirmationPending()

	return true, g.reissue(ctx, ident, st)
}
