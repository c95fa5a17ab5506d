package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avatarctic/phone-confirmation/internal/core/domain/identity"
	"github.com/avatarctic/phone-confirmation/internal/core/ports"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Utility helpers
func cacheSetSilently(c ports.Cache, ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.Set(ctx, key, b, ttl)
}

func cacheGet[T any](c ports.Cache, ctx context.Context, key string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	b, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return &v, true
}

// cachedIdentity is the cache representation; Identity hides its token from JSON.
type cachedIdentity struct {
	ID                 uuid.UUID  `json:"id"`
	Phone              string     `json:"phone"`
	UnconfirmedPhone   *string    `json:"unconfirmed_phone,omitempty"`
	ConfirmationToken  *string    `json:"confirmation_token,omitempty"`
	ConfirmationSentAt *time.Time `json:"confirmation_sent_at,omitempty"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func toCached(i *identity.Identity) cachedIdentity {
	return cachedIdentity{
		ID:                 i.ID,
		Phone:              i.Phone,
		UnconfirmedPhone:   i.UnconfirmedPhone,
		ConfirmationToken:  i.ConfirmationToken,
		ConfirmationSentAt: i.ConfirmationSentAt,
		ConfirmedAt:        i.ConfirmedAt,
		CreatedAt:          i.CreatedAt,
		UpdatedAt:          i.UpdatedAt,
	}
}

func (c cachedIdentity) identity() *identity.Identity {
	return &identity.Identity{
		ID:                 c.ID,
		Phone:              c.Phone,
		UnconfirmedPhone:   c.UnconfirmedPhone,
		ConfirmationToken:  c.ConfirmationToken,
		ConfirmationSentAt: c.ConfirmationSentAt,
		ConfirmedAt:        c.ConfirmedAt,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

// CachingIdentityRepository caches GetByID only. Lookups by token and uniqueness probes
// always reach the inner store.
type CachingIdentityRepository struct {
	inner ports.IdentityStore
	cache ports.Cache
	ttl   time.Duration
	loads singleflight.Group
}

func NewCachingIdentityRepository(inner ports.IdentityStore, cache ports.Cache, ttl time.Duration) *CachingIdentityRepository {
	return &CachingIdentityRepository{inner: inner, cache: cache, ttl: ttl}
}

var _ ports.IdentityStore = (*CachingIdentityRepository)(nil)

func identityKey(id uuid.UUID) string {
	return "identity:id:" + id.String()
}

func (c *CachingIdentityRepository) Create(ctx context.Context, i *identity.Identity) error {
	if err := c.inner.Create(ctx, i); err != nil {
		return err
	}
	cacheSetSilently(c.cache, ctx, identityKey(i.ID), toCached(i), c.ttl)
	return nil
}

func (c *CachingIdentityRepository) GetByID(ctx context.Context, id uuid.UUID) (*identity.Identity, error) {
	key := identityKey(id)
	if v, ok := cacheGet[cachedIdentity](c.cache, ctx, key); ok {
		return v.identity(), nil
	}
	res, err, _ := c.loads.Do(key, func() (any, error) {
		i, err := c.inner.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		cacheSetSilently(c.cache, ctx, key, toCached(i), c.ttl)
		return toCached(i), nil
	})
	if err != nil {
		return nil, err
	}
	cached, ok := res.(cachedIdentity)
	if !ok {
		return nil, fmt.Errorf("unexpected type from singleflight result")
	}
	// every caller gets its own copy
	return cached.identity(), nil
}

func (c *CachingIdentityRepository) FindByUniqueField(ctx context.Context, field, value string) (*identity.Identity, error) {
	if field == identity.FieldID {
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, ports.ErrIdentityNotFound
		}
		return c.GetByID(ctx, id)
	}
	return c.inner.FindByUniqueField(ctx, field, value)
}

func (c *CachingIdentityRepository) ExistsWithValue(ctx context.Context, field, value string) (bool, error) {
	return c.inner.ExistsWithValue(ctx, field, value)
}

func (c *CachingIdentityRepository) Save(ctx context.Context, i *identity.Identity, validatePhoneUniqueness bool) error {
	if err := c.inner.Save(ctx, i, validatePhoneUniqueness); err != nil {
		if errors.Is(err, ports.ErrStaleIdentity) && c.cache != nil {
			_ = c.cache.Delete(ctx, identityKey(i.ID))
		}
		return err
	}
	cacheSetSilently(c.cache, ctx, identityKey(i.ID), toCached(i), c.ttl)
	return nil
}
