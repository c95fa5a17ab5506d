package ports

import (
	"context"
	"errors"

	"github.com/avatarctic/phone-confirmation/internal/core/domain/identity"
	"github.com/google/uuid"
)

// IdentityStore is the persistence contract the confirmation core relies on.
//
// Save must reject stale writes (row lock or optimistic version check) and must enforce
// uniqueness of phone and confirmation_token at the storage layer. Violations are reported
// as *identity.FieldError with kind validation_failed so callers can attach them to the entity.
type IdentityStore interface {
	// FindByUniqueField returns the identity whose field equals value, or ErrIdentityNotFound.
	FindByUniqueField(ctx context.Context, field, value string) (*identity.Identity, error)
	// ExistsWithValue probes whether any identity has field equal to value.
	ExistsWithValue(ctx context.Context, field, value string) (bool, error)
	// Save persists an existing identity. When validatePhoneUniqueness is set the store also
	// verifies that no other identity owns the phone before writing.
	Save(ctx context.Context, ident *identity.Identity, validatePhoneUniqueness bool) error
	Create(ctx context.Context, ident *identity.Identity) error
	GetByID(ctx context.Context, id uuid.UUID) (*identity.Identity, error)
}

// TokenProbe is the uniqueness check used by the token issuer.
type TokenProbe interface {
	ExistsWithValue(ctx context.Context, field, value string) (bool, error)
}

// ConfirmationService is the phone confirmation state machine.
type ConfirmationService interface {
	IssueToken(ctx context.Context, ident *identity.Identity, st *identity.RequestState) error
	DispatchNotification(ctx context.Context, ident *identity.Identity, st *identity.RequestState) (bool, error)
	Confirm(ctx context.Context, ident *identity.Identity, token string, st *identity.RequestState) (bool, error)
	Resend(ctx context.Context, ident *identity.Identity, st *identity.RequestState) (bool, error)
	SkipConfirmation(ident *identity.Identity)
	IsConfirmed(ident *identity.Identity) bool
	IsActive(ident *identity.Identity) bool
	InactiveMessage(ident *identity.Identity, hostDefault string) string
	State(ident *identity.Identity) identity.State

	RequestConfirmation(ctx context.Context, lookup map[string]string, st *identity.RequestState) (*identity.Identity, error)
	ConfirmByToken(ctx context.Context, token string, st *identity.RequestState) (*identity.Identity, error)

	BeforeCreate(ctx context.Context, ident *identity.Identity, st *identity.RequestState) error
	AfterCreate(ctx context.Context, ident *identity.Identity, st *identity.RequestState) error
	BeforeUpdate(ctx context.Context, ident *identity.Identity, persistedPhone string, st *identity.RequestState) error
	AfterUpdate(ctx context.Context, ident *identity.Identity, st *identity.RequestState) error
}

// IdentityService is the host-side glue that drives the confirmation lifecycle hooks
// around store writes.
type IdentityService interface {
	Register(ctx context.Context, req *identity.RegisterRequest, st *identity.RequestState) (*identity.Identity, error)
	Get(ctx context.Context, id uuid.UUID) (*identity.Identity, error)
	ChangePhone(ctx context.Context, id uuid.UUID, newPhone string, st *identity.RequestState) (*identity.Identity, error)
	SkipConfirmation(ctx context.Context, id uuid.UUID) (*identity.Identity, error)
	Status(ctx context.Context, id uuid.UUID) (*identity.StatusResponse, error)
}

var (
	// ErrIdentityNotFound is returned by stores when no identity matches a lookup.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrStaleIdentity is returned by Save when the row changed since it was loaded.
	ErrStaleIdentity = errors.New("identity was modified concurrently")
)
