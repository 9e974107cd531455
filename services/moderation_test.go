package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gautam3767/additive_registry_backend/events"
	"github.com/Gautam3767/additive_registry_backend/models"
)

func strPtr(s string) *string { return &s }

func TestModeratorRequiresAdmin(t *testing.T) {
	m := NewModerator(newMemoryRemote(record("1", "A", "X", false)), nil, nil, nil)
	ctx := context.Background()

	_, err := m.Approve(ctx, contributor, "1")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, m.Delete(ctx, contributor, "1"), ErrForbidden)
	assert.ErrorIs(t, m.SetTrustTier(ctx, contributor, "u1", models.TierTrusted), ErrForbidden)
}

func TestModeratorApprove(t *testing.T) {
	remote := newMemoryRemote(record("1", "A", "X", false))
	bus := events.NewBus(nil)
	defer bus.Close()
	ch, unsubscribe := bus.Subscribe(1)
	defer unsubscribe()
	m := NewModerator(remote, nil, bus, nil)

	rec, err := m.Approve(context.Background(), admin, "1")
	require.NoError(t, err)
	assert.True(t, rec.Approved)
	assert.True(t, remote.snapshot()[0].Approved)
	assert.IsType(t, events.ReloadRequested{}, <-ch)
}

func TestModeratorUpdateValidates(t *testing.T) {
	m := NewModerator(newMemoryRemote(record("1", "A", "X", false)), nil, nil, nil)
	ctx := context.Background()

	_, err := m.Update(ctx, admin, "1", ProductPatch{Status: strPtr("unknown")})
	assert.ErrorIs(t, err, ErrValidation)

	p := 10.0
	_, err = m.Update(ctx, admin, "1", ProductPatch{Percentage: &p})
	assert.ErrorIs(t, err, ErrValidation, "percentage needs status contains")

	_, err = m.Update(ctx, admin, "1", ProductPatch{Name: strPtr(" ")})
	assert.ErrorIs(t, err, ErrValidation)

	rec, err := m.Update(ctx, admin, "1", ProductPatch{Status: strPtr("contains"), Percentage: &p, Country: []string{"US|UK"}})
	require.NoError(t, err)
	assert.Equal(t, models.StatusContains, rec.Status)
	assert.Equal(t, []string{"US", "UK"}, rec.Country)

	rec, err = m.Update(ctx, admin, "1", ProductPatch{Status: strPtr("needs-verification"), ClearPercentage: true})
	require.NoError(t, err)
	assert.Nil(t, rec.Percentage)
}

func TestModeratorKeepsKeysUnique(t *testing.T) {
	remote := newMemoryRemote(
		record("1", "Acme", "Pods", true),
		record("2", "acme", "pods", false),
		record("3", "Acme", "Sheets", false),
	)
	m := NewModerator(remote, nil, nil, nil)
	ctx := context.Background()

	_, err := m.Approve(ctx, admin, "2")
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = m.Update(ctx, admin, "3", ProductPatch{Name: strPtr("PODS")})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = m.Update(ctx, admin, "3", ProductPatch{Description: strPtr("soluble")})
	assert.NoError(t, err)
}

func TestModeratorPromotesCachedRecord(t *testing.T) {
	remote := newMemoryRemote()
	cache := newMemoryCache(record("c1", "Acme", "Pods", false))
	m := NewModerator(remote, cache, nil, nil)

	rec, err := m.Approve(context.Background(), admin, "c1")
	require.NoError(t, err)
	assert.True(t, rec.Approved)
	require.Len(t, remote.snapshot(), 1)
	assert.Equal(t, "c1", remote.snapshot()[0].ID)
	_, ok, _ := cache.Get(context.Background(), "c1")
	assert.False(t, ok)
}

func TestModeratorDegradesToCache(t *testing.T) {
	remote := newMemoryRemote(record("1", "Acme", "Pods", false))
	remote.failWrite = true
	cache := newMemoryCache()
	m := NewModerator(remote, cache, nil, nil)

	rec, err := m.Approve(context.Background(), admin, "1")
	require.ErrorIs(t, err, ErrRemoteUnavailable)
	assert.True(t, rec.Approved)
	cached, ok, _ := cache.Get(context.Background(), "1")
	require.True(t, ok)
	assert.True(t, cached.Approved)
}

func TestModeratorGet(t *testing.T) {
	remote := newMemoryRemote(record("1", "Acme", "Pods", true))
	cache := newMemoryCache(record("c1", "Acme", "Sheets", false))
	m := NewModerator(remote, cache, nil, nil)
	ctx := context.Background()

	rec, err := m.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Sheets", rec.Name)

	_, err = m.Get(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	remote.failList = true
	_, err = m.Get(ctx, "1")
	assert.ErrorIs(t, err, ErrRemoteUnavailable)
}

func TestModeratorDelete(t *testing.T) {
	remote := newMemoryRemote(record("1", "Acme", "Pods", true))
	cache := newMemoryCache(record("c1", "Acme", "Sheets", false))
	m := NewModerator(remote, cache, nil, nil)
	ctx := context.Background()

	require.NoError(t, m.Delete(ctx, admin, "1"))
	assert.Empty(t, remote.snapshot())

	require.NoError(t, m.Delete(ctx, admin, "c1"))
	_, ok, _ := cache.Get(ctx, "c1")
	assert.False(t, ok)

	assert.ErrorIs(t, m.Delete(ctx, admin, "nope"), models.ErrNotFound)
}

func TestModeratorDeleteKeepsCacheWhenRemoteFails(t *testing.T) {
	rec := record("1", "Acme", "Pods", true)
	remote := newMemoryRemote(rec)
	cache := newMemoryCache(rec)
	m := NewModerator(remote, cache, nil, nil)
	ctx := context.Background()

	remote.failWrite = true
	require.ErrorIs(t, m.Delete(ctx, admin, "1"), ErrRemoteUnavailable)
	_, ok, err := cache.Get(ctx, "1")
	require.NoError(t, err)
	assert.True(t, ok, "cached copy survives a failed remote delete")
	assert.Len(t, remote.snapshot(), 1)

	remote.failWrite = false
	require.NoError(t, m.Delete(ctx, admin, "1"))
	_, ok, _ = cache.Get(ctx, "1")
	assert.False(t, ok)
	assert.Empty(t, remote.snapshot())
}

func TestModeratorSetTrustTier(t *testing.T) {
	remote := newMemoryRemote()
	m := NewModerator(remote, nil, nil, nil)
	ctx := context.Background()

	assert.ErrorIs(t, m.SetTrustTier(ctx, admin, " ", models.TierTrusted), ErrValidation)
	require.NoError(t, m.SetTrustTier(ctx, admin, "u1", models.TierTrusted))
	assert.Equal(t, models.TierTrusted, remote.tiers["u1"])

	remote.failWrite = true
	assert.ErrorIs(t, m.SetTrustTier(ctx, admin, "u1", models.TierVerified), ErrRemoteUnavailable)
}
