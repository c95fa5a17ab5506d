package repositories_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/phone-confirmation/internal/core/domain/identity"
	"github.com/avatarctic/phone-confirmation/internal/core/ports"
	"github.com/avatarctic/phone-confirmation/internal/infrastructure/repositories"
	"github.com/avatarctic/phone-confirmation/internal/mocks"
)

func TestCachingIdentityRepository_GetByIDServesFromCache(t *testing.T) {
	token := "ABCDE"
	stored := &identity.Identity{ID: uuid.New(), Phone: "+15550000001", ConfirmationToken: &token, UpdatedAt: time.Now().UTC()}
	loads := 0
	inner := &mocks.IdentityStoreMock{GetByIDFn: func(ctx context.Context, id uuid.UUID) (*identity.Identity, error) {
		loads++
		return stored, nil
	}}
	cache := mocks.NewMemoryCache()
	repo := repositories.NewCachingIdentityRepository(inner, cache, time.Minute)

	first, err := repo.GetByID(context.Background(), stored.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(context.Background(), stored.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, loads)
	assert.Equal(t, stored.Phone, second.Phone)
	require.NotNil(t, second.ConfirmationToken, "token survives the cache round trip")
	assert.Equal(t, token, *second.ConfirmationToken)
	assert.NotSame(t, first, second)
}

func TestCachingIdentityRepository_CacheErrorFallsBackToStore(t *testing.T) {
	stored := &identity.Identity{ID: uuid.New(), Phone: "+15550000001"}
	inner := &mocks.IdentityStoreMock{GetByIDFn: func(ctx context.Context, id uuid.UUID) (*identity.Identity, error) { return stored, nil }}
	cache := mocks.NewMemoryCache()
	cache.GetErr = errors.New("redis down")
	repo := repositories.NewCachingIdentityRepository(inner, cache, time.Minute)

	got, err := repo.GetByID(context.Background(), stored.ID)

	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)
}

func TestCachingIdentityRepository_TokenLookupsBypassCache(t *testing.T) {
	calls := 0
	inner := &mocks.IdentityStoreMock{FindByUniqueFieldFn: func(ctx context.Context, field, value string) (*identity.Identity, error) {
		calls++
		return nil, ports.ErrIdentityNotFound
	}}
	cache := mocks.NewMemoryCache()
	repo := repositories.NewCachingIdentityRepository(inner, cache, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := repo.FindByUniqueField(context.Background(), identity.FieldConfirmationToken, "ABCDE")
		assert.ErrorIs(t, err, ports.ErrIdentityNotFound)
	}
	assert.Equal(t, 2, calls)
	assert.Zero(t, cache.Gets)
}

func TestCachingIdentityRepository_FindByIDUsesCache(t *testing.T) {
	id := uuid.New()
	inner := &mocks.IdentityStoreMock{GetByIDFn: func(ctx context.Context, got uuid.UUID) (*identity.Identity, error) {
		return &identity.Identity{ID: got}, nil
	}}
	repo := repositories.NewCachingIdentityRepository(inner, mocks.NewMemoryCache(), time.Minute)

	found, err := repo.FindByUniqueField(context.Background(), identity.FieldID, id.String())
	require.NoError(t, err)
	assert.Equal(t, id, found.ID)

	_, err = repo.FindByUniqueField(context.Background(), identity.FieldID, "not-a-uuid")
	assert.ErrorIs(t, err, ports.ErrIdentityNotFound)
}

func TestCachingIdentityRepository_SaveWritesThroughAndDropsStaleEntries(t *testing.T) {
	store := mocks.NewMemoryIdentityStore()
	now := time.Now().UTC()
	existing := &identity.Identity{ID: uuid.New(), Phone: "+15550000001", CreatedAt: now, UpdatedAt: now}
	store.Put(existing)
	cache := mocks.NewMemoryCache()
	repo := repositories.NewCachingIdentityRepository(store, cache, time.Minute)

	loaded, err := repo.GetByID(context.Background(), existing.ID)
	require.NoError(t, err)
	loaded.Phone = "+15550000009"
	require.NoError(t, repo.Save(context.Background(), loaded, false))

	reloaded, err := repo.GetByID(context.Background(), existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "+15550000009", reloaded.Phone)

	stale := *existing
	err = repo.Save(context.Background(), &stale, false)
	assert.ErrorIs(t, err, ports.ErrStaleIdentity)
	assert.False(t, cache.Has("identity:id:"+existing.ID.String()))
}
