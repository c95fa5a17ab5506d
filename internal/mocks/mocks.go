package mocks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avatarctic/phone-confirmation/internal/core/domain/identity"
	"github.com/avatarctic/phone-confirmation/internal/core/ports"
)

// IdentityStoreMock is a lightweight mock for ports.IdentityStore
type IdentityStoreMock struct {
	FindByUniqueFieldFn func(ctx context.Context, field, value string) (*identity.Identity, error)
	ExistsWithValueFn   func(ctx context.Context, field, value string) (bool, error)
	SaveFn              func(ctx context.Context, ident *identity.Identity, validatePhoneUniqueness bool) error
	CreateFn            func(ctx context.Context, ident *identity.Identity) error
	GetByIDFn           func(ctx context.Context, id uuid.UUID) (*identity.Identity, error)
}

func (m *IdentityStoreMock) FindByUniqueField(ctx context.Context, field, value string) (*identity.Identity, error) {
	if m.FindByUniqueFieldFn != nil {
		return m.FindByUniqueFieldFn(ctx, field, value)
	}
	return nil, ports.ErrIdentityNotFound
}
func (m *IdentityStoreMock) ExistsWithValue(ctx context.Context, field, value string) (bool, error) {
	if m.ExistsWithValueFn != nil {
		return m.ExistsWithValueFn(ctx, field, value)
	}
	return false, nil
}
func (m *IdentityStoreMock) Save(ctx context.Context, ident *identity.Identity, validatePhoneUniqueness bool) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, ident, validatePhoneUniqueness)
	}
	return nil
}
func (m *IdentityStoreMock) Create(ctx context.Context, ident *identity.Identity) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, ident)
	}
	return nil
}
func (m *IdentityStoreMock) GetByID(ctx context.Context, id uuid.UUID) (*identity.Identity, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, ports.ErrIdentityNotFound
}

// DispatcherMock records every message handed to it
type DispatcherMock struct {
	SendFn func(ctx context.Context, phoneNumber, message string) error
	Sent   []SentMessage
}

type SentMessage struct {
	To   string
	Body string
}

func (m *DispatcherMock) Send(ctx context.Context, phoneNumber, message string) error {
	if m.SendFn != nil {
		if err := m.SendFn(ctx, phoneNumber, message); err != nil {
			return err
		}
	}
	m.Sent = append(m.Sent, SentMessage{To: phoneNumber, Body: message})
	return nil
}

// RendererMock renders "code:<token>" unless RenderFn is set
type RendererMock struct {
	RenderFn func(ident *identity.Identity, token string) (string, error)
}

func (m *RendererMock) RenderConfirmation(ident *identity.Identity, token string) (string, error) {
	if m.RenderFn != nil {
		return m.RenderFn(ident, token)
	}
	return "code:" + token, nil
}

// RateLimitRepositoryMock is a lightweight mock for ports.RateLimitRepository
type RateLimitRepositoryMock struct {
	IncrementWindowFn func(ctx context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error)
}

func (m *RateLimitRepositoryMock) IncrementWindow(ctx context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error) {
	if m.IncrementWindowFn != nil {
		return m.IncrementWindowFn(ctx, key, window, now)
	}
	return 1, now.Truncate(window), nil
}

// RateLimiterServiceMock is a lightweight mock for ports.RateLimiterService
type RateLimiterServiceMock struct {
	AllowFn func(ctx context.Context, key string) (bool, int, int, time.Time, error)
}

func (m *RateLimiterServiceMock) Allow(ctx context.Context, key string) (bool, int, int, time.Time, error) {
	if m.AllowFn != nil {
		return m.AllowFn(ctx, key)
	}
	return true, 1, 5, time.Now().Add(time.Minute), nil
}

// IdentityServiceMock is a lightweight mock for ports.IdentityService
type IdentityServiceMock struct {
	RegisterFn         func(ctx context.Context, req *identity.RegisterRequest, st *identity.RequestState) (*identity.Identity, error)
	GetFn              func(ctx context.Context, id uuid.UUID) (*identity.Identity, error)
	ChangePhoneFn      func(ctx context.Context, id uuid.UUID, newPhone string, st *identity.RequestState) (*identity.Identity, error)
	SkipConfirmationFn func(ctx context.Context, id uuid.UUID) (*identity.Identity, error)
	StatusFn           func(ctx context.Context, id uuid.UUID) (*identity.StatusResponse, error)
}

func (m *IdentityServiceMock) Register(ctx context.Context, req *identity.RegisterRequest, st *identity.RequestState) (*identity.Identity, error) {
	if m.RegisterFn != nil {
		return m.RegisterFn(ctx, req, st)
	}
	return &identity.Identity{ID: uuid.New(), Phone: req.Phone}, nil
}
func (m *IdentityServiceMock) Get(ctx context.Context, id uuid.UUID) (*identity.Identity, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, id)
	}
	return nil, ports.ErrIdentityNotFound
}
func (m *IdentityServiceMock) ChangePhone(ctx context.Context, id uuid.UUID, newPhone string, st *identity.RequestState) (*identity.Identity, error) {
	if m.ChangePhoneFn != nil {
		return m.ChangePhoneFn(ctx, id, newPhone, st)
	}
	return nil, ports.ErrIdentityNotFound
}
func (m *IdentityServiceMock) SkipConfirmation(ctx context.Context, id uuid.UUID) (*identity.Identity, error) {
	if m.SkipConfirmationFn != nil {
		return m.SkipConfirmationFn(ctx, id)
	}
	return nil, ports.ErrIdentityNotFound
}
func (m *IdentityServiceMock) Status(ctx context.Context, id uuid.UUID) (*identity.StatusResponse, error) {
	if m.StatusFn != nil {
		return m.StatusFn(ctx, id)
	}
	return nil, ports.ErrIdentityNotFound
}

// ConfirmationServiceMock is a lightweight mock for ports.ConfirmationService. Only the
// public surface is configurable; the lifecycle hooks are no-ops.
type ConfirmationServiceMock struct {
	RequestConfirmationFn func(ctx context.Context, lookup map[string]string, st *identity.RequestState) (*identity.Identity, error)
	ConfirmByTokenFn      func(ctx context.Context, token string, st *identity.RequestState) (*identity.Identity, error)
	IsActiveFn            func(ident *identity.Identity) bool
}

var _ ports.ConfirmationService = (*ConfirmationServiceMock)(nil)

func (m *ConfirmationServiceMock) RequestConfirmation(ctx context.Context, lookup map[string]string, st *identity.RequestState) (*identity.Identity, error) {
	if m.RequestConfirmationFn != nil {
		return m.RequestConfirmationFn(ctx, lookup, st)
	}
	return &identity.Identity{ID: uuid.New(), Phone: lookup[identity.FieldPhone]}, nil
}
func (m *ConfirmationServiceMock) ConfirmByToken(ctx context.Context, token string, st *identity.RequestState) (*identity.Identity, error) {
	if m.ConfirmByTokenFn != nil {
		return m.ConfirmByTokenFn(ctx, token, st)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *ConfirmationServiceMock) IsActive(ident *identity.Identity) bool {
	if m.IsActiveFn != nil {
		return m.IsActiveFn(ident)
	}
	return ident.IsConfirmed()
}
func (m *ConfirmationServiceMock) IssueToken(ctx context.Context, ident *identity.Identity, st *identity.RequestState) error {
	return nil
}
func (m *ConfirmationServiceMock) DispatchNotification(ctx context.Context, ident *identity.Identity, st *identity.RequestState) (bool, error) {
	return true, nil
}
func (m *ConfirmationServiceMock) Confirm(ctx context.Context, ident *identity.Identity, token string, st *identity.RequestState) (bool, error) {
	return true, nil
}
func (m *ConfirmationServiceMock) Resend(ctx context.Context, ident *identity.Identity, st *identity.RequestState) (bool, error) {
	return true, nil
}
func (m *ConfirmationServiceMock) SkipConfirmation(ident *identity.Identity) {}
func (m *ConfirmationServiceMock) IsConfirmed(ident *identity.Identity) bool {
	return ident.IsConfirmed()
}
func (m *ConfirmationServiceMock) InactiveMessage(ident *identity.Identity, hostDefault string) string {
	return hostDefault
}
func (m *ConfirmationServiceMock) State(ident *identity.Identity) identity.State {
	return identity.StateUnconfirmed
}
func (m *ConfirmationServiceMock) BeforeCreate(ctx context.Context, ident *identity.Identity, st *identity.RequestState) error {
	return nil
}
func (m *ConfirmationServiceMock) AfterCreate(ctx context.Context, ident *identity.Identity, st *identity.RequestState) error {
	return nil
}
func (m *ConfirmationServiceMock) BeforeUpdate(ctx context.Context, ident *identity.Identity, persistedPhone string, st *identity.RequestState) error {
	return nil
}
func (m *ConfirmationServiceMock) AfterUpdate(ctx context.Context, ident *identity.Identity, st *identity.RequestState) error {
	return nil
}
