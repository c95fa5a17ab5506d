package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/phone-confirmation/internal/core/domain/identity"
	"github.com/avatarctic/phone-confirmation/internal/core/ports"
)

// hostInactiveMessage is the generic message reported for confirmed identities the gate rejects.
const hostInactiveMessage = "inactive"

// IdentityService is the host persistence glue: it writes identities and calls the
// confirmation lifecycle hooks around each write.
type IdentityService struct {
	repo         ports.IdentityStore
	confirmation *ConfirmationService
	logger       *logrus.Logger
}

func NewIdentityService(repo ports.IdentityStore, confirmation *ConfirmationService, logger *logrus.Logger) ports.IdentityService {
	return &IdentityService{
		repo:         repo,
		confirmation: confirmation,
		logger:       logger,
	}
}

// Register creates an identity and starts its confirmation flow. Store validation failures
// are returned on the identity's Errors.
func (s *IdentityService) Register(ctx context.Context, req *identity.RegisterRequest, st *identity.RequestState) (*identity.Identity, error) {
	if st == nil {
		st = identity.NewRequestState()
	}
	if req.SkipNotification {
		st.SkipConfirmationNotification()
	}

	now := time.Now()
	newIdentity := &identity.Identity{
		ID:        uuid.New(),
		Phone:     req.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.SkipConfirmation {
		s.confirmation.SkipConfirmation(newIdentity)
	}

	if err := s.confirmation.BeforeCreate(ctx, newIdentity, st); err != nil {
		return nil, fmt.Errorf("failed to prepare confirmation: %w", err)
	}

	err := s.confirmation.retryOnTokenCollision(ctx, newIdentity, st, func(ctx context.Context) error {
		return s.repo.Create(ctx, newIdentity)
	})
	if err != nil {
		if _, ferr := s.confirmation.attachFieldError(newIdentity, err); ferr == nil {
			newIdentity.ID = uuid.Nil
			return newIdentity, nil
		}
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	if err := s.confirmation.AfterCreate(ctx, newIdentity, st); err != nil {
		// Log error but don't fail creation; the token is persisted and can be resent
		s.logger.WithFields(logrus.Fields{
			"identity_id": newIdentity.ID,
		}).WithError(err).Warn("failed to send confirmation message")
	}

	return newIdentity, nil
}

func (s *IdentityService) Get(ctx context.Context, id uuid.UUID) (*identity.Identity, error) {
	return s.repo.GetByID(ctx, id)
}

// ChangePhone applies a phone change through the phone change guard. Unless st bypasses
// reconfirmation the change is deferred until the new number is confirmed.
func (s *IdentityService) ChangePhone(ctx context.Context, id uuid.UUID, newPhone string, st *identity.RequestState) (*identity.Identity, error) {
	if st == nil {
		st = identity.NewRequestState()
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	persistedPhone := existing.Phone
	existing.Phone = newPhone
	if err := s.confirmation.BeforeUpdate(ctx, existing, persistedPhone, st); err != nil {
		return nil, fmt.Errorf("failed to postpone phone change: %w", err)
	}

	phoneChanged := existing.Phone != persistedPhone
	err = s.confirmation.retryOnTokenCollision(ctx, existing, st, func(ctx context.Context) error {
		return s.repo.Save(ctx, existing, phoneChanged)
	})
	if err != nil {
		if _, ferr := s.confirmation.attachFieldError(existing, err); ferr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to update identity: %w", err)
	}

	if err := s.confirmation.AfterUpdate(ctx, existing, st); err != nil {
		// The change is stored; the message can be requested again
		s.logger.WithFields(logrus.Fields{"identity_id": existing.ID}).WithError(err).Warn("failed to send reconfirmation message")
	}

	return existing, nil
}

// SkipConfirmation confirms an identity administratively.
func (s *IdentityService) SkipConfirmation(ctx context.Context, id uuid.UUID) (*identity.Identity, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.confirmation.SkipConfirmation(existing)
	if err := s.repo.Save(ctx, existing, false); err != nil {
		return nil, fmt.Errorf("failed to update identity: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"identity_id": existing.ID}).Info("confirmation skipped")
	return existing, nil
}

// Status reports the confirmation state and the access gate decision.
func (s *IdentityService) Status(ctx context.Context, id uuid.UUID) (*identity.StatusResponse, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	status := &identity.StatusResponse{
		ID:                 existing.ID,
		State:              s.confirmation.State(existing),
		Confirmed:          s.confirmation.IsConfirmed(existing),
		Active:             s.confirmation.IsActive(existing),
		PhoneChangePending: existing.HasPendingPhoneChange(),
	}
	if !status.Active {
		status.InactiveMessage = s.confirmation.InactiveMessage(existing, hostInactiveMessage)
	}
	return status, nil
}
