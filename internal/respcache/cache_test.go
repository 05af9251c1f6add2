package respcache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "respcache.db")
	c, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

type testPayload struct {
	Metric float64 `msgpack:"metric"`
}

func TestCache_MissThenHit(t *testing.T) {
	c := openTestCache(t)
	key := Key{BotID: "bot-1", DataDate: "2026-01-01", Payload: map[string]any{"costBps": 5}}

	var out testPayload
	hit, err := c.Get(key, &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Put(key, testPayload{Metric: 1.23}, 1700000000))

	hit, err = c.Get(key, &out)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, 1.23, out.Metric)
}

func TestCache_DifferentPayloadsDoNotCollide(t *testing.T) {
	c := openTestCache(t)
	k1 := Key{BotID: "bot-1", DataDate: "2026-01-01", Payload: map[string]any{"costBps": 5}}
	k2 := Key{BotID: "bot-1", DataDate: "2026-01-01", Payload: map[string]any{"costBps": 10}}

	require.NoError(t, c.Put(k1, testPayload{Metric: 1}, 1700000000))

	var out testPayload
	hit, err := c.Get(k2, &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCache_PutOverwritesOnConflict(t *testing.T) {
	c := openTestCache(t)
	key := Key{BotID: "bot-1", DataDate: "2026-01-01", Payload: "same"}

	require.NoError(t, c.Put(key, testPayload{Metric: 1}, 1700000000))
	require.NoError(t, c.Put(key, testPayload{Metric: 2}, 1700000001))

	var out testPayload
	hit, err := c.Get(key, &out)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, 2.0, out.Metric)
}

func TestCache_InvalidateDropsOlderEntries(t *testing.T) {
	c := openTestCache(t)
	oldKey := Key{BotID: "bot-1", DataDate: "2025-12-01", Payload: "x"}
	newKey := Key{BotID: "bot-1", DataDate: "2026-02-01", Payload: "y"}

	require.NoError(t, c.Put(oldKey, testPayload{Metric: 1}, 1700000000))
	require.NoError(t, c.Put(newKey, testPayload{Metric: 2}, 1700000000))

	require.NoError(t, c.Invalidate("bot-1", "2026-01-01"))

	var out testPayload
	hit, err := c.Get(oldKey, &out)
	require.NoError(t, err)
	assert.False(t, hit, "entries older than cutoff should be invalidated")

	hit, err = c.Get(newKey, &out)
	require.NoError(t, err)
	assert.True(t, hit, "entries newer than cutoff should survive")
}
