package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	require.NoError(t, c.Set("k", []byte("v"), 0))

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
	assert.Equal(t, 1, c.Len())
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	require.NoError(t, c.Set("k", []byte("v"), 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestMemoryCache_DeleteClear(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	_ = c.Set("a", []byte("1"), 0)
	_ = c.Set("b", []byte("2"), 0)

	require.NoError(t, c.Delete("a"))
	_, ok := c.Get("a")
	assert.False(t, ok)

	require.NoError(t, c.Clear())
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestJSONHelpers(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	type entry struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	require.NoError(t, SetJSON(c, ClaimKey(4), entry{ID: 4, Name: "P4"}, 0))

	var got entry
	require.True(t, GetJSON(c, ClaimKey(4), &got))
	assert.Equal(t, entry{ID: 4, Name: "P4"}, got)

	_ = c.Set(ClaimKey(5), []byte("{not json"), 0)
	assert.False(t, GetJSON(c, ClaimKey(5), &got))
	_, ok := c.Get(ClaimKey(5))
	assert.False(t, ok, "corrupt entry is dropped")
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "claimaudit:v1:claims", ClaimsKey())
	assert.Equal(t, "claimaudit:v1:claim:12", ClaimKey(12))
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	require.NoError(t, c.Set("k", []byte("v"), time.Minute))
	_, ok := c.Get("k")
	assert.False(t, ok)
}
