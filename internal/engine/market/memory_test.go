package market_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aetherwave/market-engine/internal/engine/market"
)

func TestMemory_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := market.NewMemory()

	m, err := s.Create(ctx, "Will Team A achieve first_blood in the next 5 minutes?", "oracle", 5*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, m.ID)
	assert.Equal(t, market.StatusOpen, m.Status)
	assert.Zero(t, m.YesPoolCents)
	assert.Zero(t, m.NoPoolCents)
	assert.Nil(t, m.Resolution)
	assert.Equal(t, m.CreatedAt.Add(5*time.Minute), m.ExpiresAt)

	got, err := s.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	_, err = s.Get(ctx, "nope")
	assert.ErrorIs(t, err, market.ErrNotFound)
}

func TestMemory_AddToPool(t *testing.T) {
	ctx := context.Background()
	s := market.NewMemory()
	m, _ := s.Create(ctx, "desc", "oracle", time.Minute)

	require.NoError(t, s.AddToPool(ctx, m.ID, market.SideYes, 45_000))
	require.NoError(t, s.AddToPool(ctx, m.ID, market.SideNo, 55_000))

	got, _ := s.Get(ctx, m.ID)
	assert.Equal(t, int64(45_000), got.YesPoolCents)
	assert.Equal(t, int64(55_000), got.NoPoolCents)

	assert.ErrorIs(t, s.AddToPool(ctx, "nope", market.SideYes, 1), market.ErrNotFound)
}

func TestMemory_AddToPool_RejectsExpired(t *testing.T) {
	ctx := context.Background()
	s := market.NewMemory()

	// TTL negativo: expirado no nascimento, resolução ainda não rodou
	m, _ := s.Create(ctx, "desc", "oracle", -time.Second)

	err := s.AddToPool(ctx, m.ID, market.SideYes, 100)
	assert.ErrorIs(t, err, market.ErrClosed)

	got, _ := s.Get(ctx, m.ID)
	assert.Zero(t, got.YesPoolCents)
}

func TestMemory_AddToPool_RejectsResolved(t *testing.T) {
	ctx := context.Background()
	s := market.NewMemory()
	m, _ := s.Create(ctx, "desc", "oracle", time.Minute)

	_, err := s.Resolve(ctx, m.ID, true)
	require.NoError(t, err)

	assert.ErrorIs(t, s.AddToPool(ctx, m.ID, market.SideNo, 100), market.ErrClosed)
}

func TestMemory_Resolve_OnceOnly(t *testing.T) {
	ctx := context.Background()
	s := market.NewMemory()
	m, _ := s.Create(ctx, "desc", "oracle", time.Minute)
	_ = s.AddToPool(ctx, m.ID, market.SideYes, 500)

	snap, err := s.Resolve(ctx, m.ID, true)
	require.NoError(t, err)
	assert.Equal(t, market.StatusResolved, snap.Status)
	require.NotNil(t, snap.Resolution)
	assert.True(t, *snap.Resolution)
	assert.Equal(t, int64(500), snap.YesPoolCents)

	before, _ := s.Get(ctx, m.ID)
	_, err = s.Resolve(ctx, m.ID, false)
	assert.ErrorIs(t, err, market.ErrAlreadyResolved)
	after, _ := s.Get(ctx, m.ID)
	assert.Equal(t, before, after) // segunda resolução não muda nada

	_, err = s.Resolve(ctx, "nope", true)
	assert.ErrorIs(t, err, market.ErrNotFound)
}

func TestMemory_ConcurrentAddToPool_NoLostUpdate(t *testing.T) {
	ctx := context.Background()
	s := market.NewMemory()
	m, _ := s.Create(ctx, "desc", "oracle", time.Minute)

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_ = s.AddToPool(ctx, m.ID, market.SideYes, 50)
		}()
	}
	wg.Wait()

	got, _ := s.Get(ctx, m.ID)
	assert.Equal(t, int64(n*50), got.YesPoolCents)
}

func TestMemory_ListOpenAndUnresolved(t *testing.T) {
	ctx := context.Background()
	s := market.NewMemory()

	open, _ := s.Create(ctx, "open", "oracle", time.Minute)
	expired, _ := s.Create(ctx, "expired", "oracle", -time.Second)
	resolved, _ := s.Create(ctx, "resolved", "oracle", time.Minute)
	_, err := s.Resolve(ctx, resolved.ID, false)
	require.NoError(t, err)

	opens, err := s.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, opens, 1)
	assert.Equal(t, open.ID, opens[0].ID)

	// expirado mas não resolvido ainda precisa de resolução
	unresolved, err := s.ListUnresolved(ctx)
	require.NoError(t, err)
	ids := []string{unresolved[0].ID, unresolved[1].ID}
	assert.Contains(t, ids, open.ID)
	assert.Contains(t, ids, expired.ID)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
