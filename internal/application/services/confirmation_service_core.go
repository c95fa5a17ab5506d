package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/phone-confirmation/internal/core/domain/identity"
	"github.com/avatarctic/phone-confirmation/internal/core/ports"
)

// MessageUnconfirmed is the inactive-message key returned for identities that still have to
// confirm their phone number.
const MessageUnconfirmed = "unconfirmed"

// ConfirmationConfig is the per-entity-type configuration of the confirmation flow.
type ConfirmationConfig struct {
	// Window is both the token validity period and the grace period during which an
	// unconfirmed identity may still authenticate. Zero means no grace period.
	Window time.Duration
	// LookupKeys are the attributes used to find an identity for a resend request.
	LookupKeys []string
	// Optional disables the confirmation requirement for the access gate.
	Optional bool
	// MaxTokenAttempts bounds token generation and collision retries.
	MaxTokenAttempts int

	// Now and Entropy default to time.Now and crypto/rand.
	Now     func() time.Time
	Entropy io.Reader
}

// ConfirmationService is the phone confirmation state machine.
type ConfirmationService struct {
	store      ports.IdentityStore
	dispatcher ports.NotificationDispatcher
	renderer   ports.MessageRenderer
	issuer     *TokenIssuer
	guard      *PhoneChangeGuard
	window     time.Duration
	lookupKeys []string
	optional   bool
	now        func() time.Time
	logger     *logrus.Logger
}

func NewConfirmationService(store ports.IdentityStore, dispatcher ports.NotificationDispatcher, renderer ports.MessageRenderer, cfg *ConfirmationConfig, logger *logrus.Logger) *ConfirmationService {
	// Apply defaults
	var window time.Duration
	lookupKeys := []string{identity.FieldPhone}
	optional := false
	now := time.Now
	var entropy io.Reader
	maxAttempts := 0
	if cfg != nil {
		if cfg.Window > 0 {
			window = cfg.Window
		}
		if keys := supportedLookupKeys(cfg.LookupKeys, logger); len(keys) > 0 {
			lookupKeys = keys
		}
		if cfg.Now != nil {
			now = cfg.Now
		}
		optional = cfg.Optional
		entropy = cfg.Entropy
		maxAttempts = cfg.MaxTokenAttempts
	}

	s := &ConfirmationService{
		store:      store,
		dispatcher: dispatcher,
		renderer:   renderer,
		issuer:     NewTokenIssuer(store, entropy, maxAttempts, logger),
		window:     window,
		lookupKeys: lookupKeys,
		optional:   optional,
		now:        now,
		logger:     logger,
	}
	s.guard = NewPhoneChangeGuard(s.IssueToken)
	return s
}

// Ensure ConfirmationService implements ports.ConfirmationService
var _ ports.ConfirmationService = (*ConfirmationService)(nil)

// IssueToken mints a token, stamps the send time and caches the raw value in st. The
// identity is not persisted. confirmedAt is cleared unless a phone change is pending, in
// which case the identity stays confirmed for its current number.
func (s *ConfirmationService) IssueToken(ctx context.Context, ident *identity.Identity, st *identity.RequestState) error {
	token, err := s.issuer.Issue(ctx)
	if err != nil {
		return err
	}

	sentAt := s.now()
	ident.ConfirmationToken = &token
	ident.ConfirmationSentAt = &sentAt
	if !ident.HasPendingPhoneChange() {
		ident.ConfirmedAt = nil
	}
	if st != nil {
		st.CacheRawToken(token)
	}
	tokensIssuedTotal.Inc()
	return nil
}

// DispatchNotification sends the confirmation message to the pending phone, or the current
// one when no change is outstanding. The token cached in st is reused; without one a new
// token is issued and persisted first, which invalidates any previously delivered token.
func (s *ConfirmationService) DispatchNotification(ctx context.Context, ident *identity.Identity, st *identity.RequestState) (bool, error) {
	if st == nil {
		st = identity.NewRequestState()
	}
	if st.NotificationSuppressed() {
		notificationsTotal.WithLabelValues("suppressed").Inc()
		return true, nil
	}

	target := ident.NotificationTarget()
	if target == "" {
		ident.Errors.Add(identity.FieldPhone, identity.ErrKindNoPhoneAssociated)
		return false, nil
	}

	if st.RawToken() == "" {
		if err := s.IssueToken(ctx, ident, st); err != nil {
			return false, err
		}
		err := s.retryOnTokenCollision(ctx, ident, st, func(ctx context.Context) error {
			return s.store.Save(ctx, ident, false)
		})
		if err != nil {
			return s.attachFieldError(ident, err)
		}
	}

	message, err := s.renderer.RenderConfirmation(ident, st.RawToken())
	if err != nil {
		return false, fmt.Errorf("failed to render confirmation message: %w", err)
	}

	if err := s.dispatcher.Send(ctx, target, message); err != nil {
		notificationsTotal.WithLabelValues("failed").Inc()
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"identity_id": ident.ID}).WithError(err).Warn("failed to dispatch confirmation message")
		}
		return false, err
	}

	notificationsTotal.WithLabelValues("sent").Inc()
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"identity_id":    ident.ID,
			"reconfirmation": ident.HasPendingPhoneChange(),
		}).Info("confirmation message dispatched")
	}
	return true, nil
}

// Confirm consumes the outstanding token. On failure the identity carries a field error and
// false is returned; the error return is reserved for store failures.
func (s *ConfirmationService) Confirm(ctx context.Context, ident *identity.Identity, token string, st *identity.RequestState) (bool, error) {
	pending := ident.HasPendingPhoneChange()
	if ident.IsConfirmed() && !pending {
		ident.Errors.Add(identity.FieldPhone, identity.ErrKindAlreadyConfirmed)
		confirmAttemptsTotal.WithLabelValues("already_confirmed").Inc()
		return false, nil
	}

	if !tokensEqual(ident.ConfirmationToken, token) {
		ident.Errors.Add(identity.FieldConfirmationToken, identity.ErrKindNotFound)
		confirmAttemptsTotal.WithLabelValues("invalid").Inc()
		return false, nil
	}

	if s.tokenExpired(ident) {
		ident.Errors.Add(identity.FieldPhone, identity.ErrKindPeriodExpired)
		confirmAttemptsTotal.WithLabelValues("expired").Inc()
		return false, nil
	}

	snapshot := *ident
	confirmedAt := s.now()
	ident.ConfirmationToken = nil
	ident.ConfirmedAt = &confirmedAt
	if pending {
		ident.Phone = *ident.UnconfirmedPhone
		ident.UnconfirmedPhone = nil
	}

	if err := s.store.Save(ctx, ident, pending); err != nil {
		restore(ident, &snapshot)
		confirmAttemptsTotal.WithLabelValues("rejected").Inc()
		return s.attachFieldError(ident, err)
	}

	confirmAttemptsTotal.WithLabelValues("confirmed").Inc()
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"identity_id": ident.ID, "phone_promoted": pending}).Info("phone confirmed")
	}
	return true, nil
}

// Resend dispatches the confirmation message again, reusing the token cached in st.
func (s *ConfirmationService) Resend(ctx context.Context, ident *identity.Identity, st *identity.RequestState) (bool, error) {
	if st == nil {
		st = identity.NewRequestState()
	}
	st.ClearReconfirmationPending()

	if ident.IsConfirmed() && !ident.HasPendingPhoneChange() {
		ident.Errors.Add(identity.FieldPhone, identity.ErrKindAlreadyConfirmed)
		return false, nil
	}
	return s.DispatchNotification(ctx, ident, st)
}

// SkipConfirmation marks the identity confirmed without touching its token.
func (s *ConfirmationService) SkipConfirmation(ident *identity.Identity) {
	confirmedAt := s.now()
	ident.ConfirmedAt = &confirmedAt
}

func (s *ConfirmationService) IsConfirmed(ident *identity.Identity) bool {
	return ident.IsConfirmed()
}

// IsActive is the access gate: an identity may authenticate when confirmation is optional,
// when it is confirmed, or while it is still inside the confirmation window.
func (s *ConfirmationService) IsActive(ident *identity.Identity) bool {
	return !s.confirmationRequired(ident) ||
		ident.IsConfirmed() ||
		identity.WithinWindow(ident.ConfirmationSentAt, s.window, s.now())
}

// InactiveMessage returns MessageUnconfirmed for unconfirmed identities and hostDefault otherwise.
func (s *ConfirmationService) InactiveMessage(ident *identity.Identity, hostDefault string) string {
	if !ident.IsConfirmed() {
		return MessageUnconfirmed
	}
	return hostDefault
}

// State derives the confirmation state from the persisted fields.
func (s *ConfirmationService) State(ident *identity.Identity) identity.State {
	switch {
	case ident.HasPendingPhoneChange():
		return identity.StateReconfirmationPending
	case ident.IsConfirmed():
		return identity.StateConfirmed
	case ident.HasOutstandingToken() && s.tokenExpired(ident):
		return identity.StateTokenExpired
	case ident.HasOutstandingToken():
		return identity.StateTokenPending
	default:
		return identity.StateUnconfirmed
	}
}

func (s *ConfirmationService) confirmationRequired(_ *identity.Identity) bool {
	return !s.optional
}

// tokenExpired applies the window to token validity. Without a configured window tokens do
// not expire; the zero window only removes the authentication grace period.
func (s *ConfirmationService) tokenExpired(ident *identity.Identity) bool {
	if s.window <= 0 {
		return false
	}
	return !identity.WithinWindow(ident.ConfirmationSentAt, s.window, s.now())
}

// retryOnTokenCollision runs write and, when the store rejects the confirmation token as a
// duplicate, reissues a token and tries again within the issuer's attempt budget.
func (s *ConfirmationService) retryOnTokenCollision(ctx context.Context, ident *identity.Identity, st *identity.RequestState, write func(ctx context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := write(ctx)
		if err == nil {
			return nil
		}
		var fe *identity.FieldError
		if !errors.As(err, &fe) || fe.Field != identity.FieldConfirmationToken || attempt >= s.issuer.MaxAttempts() {
			return err
		}
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"identity_id": ident.ID, "attempt": attempt}).Warn("confirmation token rejected by store, reissuing")
		}
		if err := s.IssueToken(ctx, ident, st); err != nil {
			return err
		}
	}
}

// attachFieldError records store validation failures on the entity and passes every other
// error through unchanged.
func (s *ConfirmationService) attachFieldError(ident *identity.Identity, err error) (bool, error) {
	var fe *identity.FieldError
	if errors.As(err, &fe) {
		ident.Errors.Append(fe)
		return false, nil
	}
	return false, err
}

// supportedLookupKeys drops keys a resend request cannot carry.
func supportedLookupKeys(keys []string, logger *logrus.Logger) []string {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if !identity.IsLookupField(key) {
			if logger != nil {
				logger.WithField("key", key).Warn("ignoring unsupported confirmation lookup key")
			}
			continue
		}
		out = append(out, key)
	}
	return out
}

func tokensEqual(stored *string, provided string) bool {
	if stored == nil || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*stored), []byte(provided)) == 1
}

func restore(ident, snapshot *identity.Identity) {
	errs := ident.Errors
	*ident = *snapshot
	ident.Errors = errs
}
