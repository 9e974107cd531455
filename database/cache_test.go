package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gautam3767/additive_registry_backend/models"
)

func openTestCache(t *testing.T) *BadgerCache {
	t.Helper()
	c, err := OpenCache(CacheConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCachePutGetRoundTrip(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	pct := 12.5
	rec := models.ProductRecord{
		ID:          "p1",
		Brand:       "Acme",
		Name:        "Pods",
		Type:        "laundry",
		Status:      models.StatusContains,
		Percentage:  &pct,
		Country:     []string{"US"},
		SubmittedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, c.Put(ctx, rec))

	got, ok, err := c.Get(ctx, "p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec.Brand, got.Brand)
	require.NotNil(t, got.Percentage)
	assert.InDelta(t, 12.5, *got.Percentage, 0.0001)
	assert.True(t, rec.SubmittedAt.Equal(got.SubmittedAt))
}

func TestCacheGetMissing(t *testing.T) {
	c := openTestCache(t)
	_, ok, err := c.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheLastWriteWins(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, models.ProductRecord{ID: "p1", Name: "first"}))
	require.NoError(t, c.Put(ctx, models.ProductRecord{ID: "p1", Name: "second"}))

	all, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "second", all[0].Name)
}

func TestCacheListAndDelete(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, c.Put(ctx, models.ProductRecord{ID: id}))
	}
	require.NoError(t, c.Delete(ctx, "b"))
	require.NoError(t, c.Delete(ctx, "missing"))

	all, err := c.List(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, r := range all {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{"a", "c"}, ids)
}

func TestCachePutRequiresID(t *testing.T) {
	c := openTestCache(t)
	assert.Error(t, c.Put(context.Background(), models.ProductRecord{}))
}

func TestOpenCacheRequiresPath(t *testing.T) {
	_, err := OpenCache(CacheConfig{})
	assert.Error(t, err)
}

func TestOpenCachePersistsToDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	c, err := OpenCache(CacheConfig{Path: dir})
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, models.ProductRecord{ID: "kept", Brand: "Acme"}))
	require.NoError(t, c.Close())

	c, err = OpenCache(CacheConfig{Path: dir})
	require.NoError(t, err)
	defer c.Close()
	got, ok, err := c.Get(ctx, "kept")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Acme", got.Brand)
}
