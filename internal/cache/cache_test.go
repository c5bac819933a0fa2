package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	a := Key("company", "AAPL")
	b := Key("company", "MSFT")

	assert.True(t, strings.HasPrefix(a, "filingqa:v1:company:"))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, Key("company", "AAPL"))
}

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(0, 0)

	require.NoError(t, c.Set("k", []byte("value"), 0))
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "value", string(got))

	// Mutating the returned slice must not change the cached value
	got[0] = 'X'
	again, _ := c.Get("k")
	assert.Equal(t, "value", string(again))

	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestMemoryCache_TTL(t *testing.T) {
	c := NewMemoryCache(0, 0)
	require.NoError(t, c.Set("k", []byte("v"), 10*time.Millisecond))

	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestDiskCache_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	key := Key("company", "AAPL")
	require.NoError(t, c.Set(key, []byte(`{"ticker":"AAPL"}`), 0))

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, `{"ticker":"AAPL"}`, string(got))

	require.NoError(t, c.Delete(key))
	require.NoError(t, c.Delete(key))
	_, ok = c.Get(key)
	assert.False(t, ok)
}

func TestDiskCache_Expired(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	require.NoError(t, c.Set("k", []byte("v"), time.Minute))

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	first := NewLayeredCache(time.Hour, dir, time.Hour)
	require.NoError(t, first.Set("k", []byte("v"), 0))

	// A fresh layered cache over the same directory starts with empty memory
	second := NewLayeredCache(time.Hour, dir, time.Hour)
	got, ok := second.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))

	memGot, ok := second.memory.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(memGot))

	require.NoError(t, second.Clear())
	_, ok = second.Get("k")
	assert.False(t, ok)
}
