package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avatarctic/phone-confirmation/internal/core/domain/identity"
	"github.com/avatarctic/phone-confirmation/internal/core/ports"
)

// MemoryIdentityStore is an in-memory ports.IdentityStore that enforces the same unique
// constraints and stale-write check as the postgres repository.
type MemoryIdentityStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*identity.Identity

	// BeforeWrite, when set, runs before Create and Save; a non-nil error aborts the write.
	BeforeWrite func(ident *identity.Identity) error

	CreateCalls int
	SaveCalls   int
	// PhoneValidated records the validatePhoneUniqueness flag of the last Save.
	PhoneValidated bool
}

func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{rows: make(map[uuid.UUID]*identity.Identity)}
}

var _ ports.IdentityStore = (*MemoryIdentityStore)(nil)

// Put stores ident as-is, bypassing constraints.
func (s *MemoryIdentityStore) Put(ident *identity.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[ident.ID] = clone(ident)
}

// Row returns a copy of the stored row, or nil.
func (s *MemoryIdentityStore) Row(id uuid.UUID) *identity.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil
	}
	return clone(row)
}

func (s *MemoryIdentityStore) FindByUniqueField(ctx context.Context, field, value string) (*identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if v, ok := row.Attribute(field); ok && v == value {
			return clone(row), nil
		}
	}
	return nil, ports.ErrIdentityNotFound
}

func (s *MemoryIdentityStore) ExistsWithValue(ctx context.Context, field, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if v, ok := row.Attribute(field); ok && v == value {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryIdentityStore) GetByID(ctx context.Context, id uuid.UUID) (*identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, ports.ErrIdentityNotFound
	}
	return clone(row), nil
}

func (s *MemoryIdentityStore) Create(ctx context.Context, ident *identity.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CreateCalls++
	if s.BeforeWrite != nil {
		if err := s.BeforeWrite(ident); err != nil {
			return err
		}
	}
	if fe := s.violation(ident); fe != nil {
		return fe
	}
	if ident.ID == uuid.Nil {
		ident.ID = uuid.New()
	}
	s.rows[ident.ID] = clone(ident)
	return nil
}

func (s *MemoryIdentityStore) Save(ctx context.Context, ident *identity.Identity, validatePhoneUniqueness bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SaveCalls++
	s.PhoneValidated = validatePhoneUniqueness
	if s.BeforeWrite != nil {
		if err := s.BeforeWrite(ident); err != nil {
			return err
		}
	}
	stored, ok := s.rows[ident.ID]
	if !ok {
		return ports.ErrIdentityNotFound
	}
	if !stored.UpdatedAt.Equal(ident.UpdatedAt) {
		return ports.ErrStaleIdentity
	}
	if fe := s.violation(ident); fe != nil {
		return fe
	}
	ident.UpdatedAt = stored.UpdatedAt.Add(time.Millisecond)
	s.rows[ident.ID] = clone(ident)
	return nil
}

// violation mirrors the unique indexes on phone and confirmation_token.
func (s *MemoryIdentityStore) violation(ident *identity.Identity) *identity.FieldError {
	for id, row := range s.rows {
		if id == ident.ID {
			continue
		}
		if ident.Phone != "" && row.Phone == ident.Phone {
			return identity.NewFieldError(identity.FieldPhone, identity.ErrKindValidationFailed)
		}
		if ident.HasOutstandingToken() && row.HasOutstandingToken() && *row.ConfirmationToken == *ident.ConfirmationToken {
			return identity.NewFieldError(identity.FieldConfirmationToken, identity.ErrKindValidationFailed)
		}
	}
	return nil
}

func clone(ident *identity.Identity) *identity.Identity {
	c := *ident
	c.Errors = nil
	c.UnconfirmedPhone = cloneString(ident.UnconfirmedPhone)
	c.ConfirmationToken = cloneString(ident.ConfirmationToken)
	c.ConfirmationSentAt = cloneTime(ident.ConfirmationSentAt)
	c.ConfirmedAt = cloneTime(ident.ConfirmedAt)
	return &c
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// MemoryCache is an in-memory ports.Cache. TTLs are ignored.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string][]byte

	GetErr error
	Gets   int
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string][]byte)}
}

var _ ports.Cache = (*MemoryCache)(nil)

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Gets++
	if c.GetErr != nil {
		return nil, false, c.GetErr
	}
	v, ok := c.items[key]
	return v, ok, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = append([]byte(nil), value...)
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.items, key)
	}
	return nil
}

// Has reports whether key is cached.
func (c *MemoryCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}
