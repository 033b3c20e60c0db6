package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/models"
)

const (
	testOrigin = "https://example.com"
	testFP     = "abc123"
)

func liveSession(origin string) *models.Session {
	return &models.Session{
		Origin:    origin,
		CreatedAt: time.Now(),
		TTL:       time.Hour,
	}
}

func TestCachePutGet(t *testing.T) {
	cache := NewCache(30*time.Minute, arbor.NewLogger())

	assert.Nil(t, cache.Get(testOrigin, testFP))

	session := liveSession(testOrigin)
	cache.Put(testOrigin, testFP, session)
	assert.Same(t, session, cache.Get(testOrigin, testFP))
	assert.Equal(t, 1, cache.Len())
}

func TestCachePutAppliesDefaultTTL(t *testing.T) {
	cache := NewCache(30*time.Minute, arbor.NewLogger())

	session := &models.Session{Origin: testOrigin, CreatedAt: time.Now()}
	cache.Put(testOrigin, testFP, session)
	assert.Equal(t, 30*time.Minute, session.TTL)
}

func TestCacheLazyExpiry(t *testing.T) {
	cache := NewCache(30*time.Minute, arbor.NewLogger())

	expired := &models.Session{
		Origin:    testOrigin,
		CreatedAt: time.Now().Add(-2 * time.Hour),
		TTL:       time.Hour,
	}
	cache.Put(testOrigin, testFP, expired)
	require.Equal(t, 1, cache.Len())

	assert.Nil(t, cache.Get(testOrigin, testFP))
	// Expired entry removed on read
	assert.Equal(t, 0, cache.Len())
}

func TestCacheOverwrite(t *testing.T) {
	cache := NewCache(30*time.Minute, arbor.NewLogger())

	first := liveSession(testOrigin)
	second := liveSession(testOrigin)
	cache.Put(testOrigin, testFP, first)
	cache.Put(testOrigin, testFP, second)

	assert.Same(t, second, cache.Get(testOrigin, testFP))
	assert.Equal(t, 1, cache.Len())
}

func TestCacheInvalidate(t *testing.T) {
	cache := NewCache(30*time.Minute, arbor.NewLogger())

	cache.Put(testOrigin, testFP, liveSession(testOrigin))
	cache.Invalidate(testOrigin, testFP)
	assert.Nil(t, cache.Get(testOrigin, testFP))

	// Invalidating an absent key is a no-op
	cache.Invalidate(testOrigin, "missing")
}

func TestCacheOriginIsolation(t *testing.T) {
	cache := NewCache(30*time.Minute, arbor.NewLogger())

	cache.Put("https://a.example.com", testFP, liveSession("https://a.example.com"))
	cache.Put("https://b.example.com", testFP, liveSession("https://b.example.com"))

	a := cache.Get("https://a.example.com", testFP)
	b := cache.Get("https://b.example.com", testFP)
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.NotSame(t, a, b)
	assert.Equal(t, "https://a.example.com", a.Origin)
	assert.Equal(t, "https://b.example.com", b.Origin)
}

func TestCacheSweepRemovesExpired(t *testing.T) {
	cache := NewCache(30*time.Minute, arbor.NewLogger())

	cache.Put(testOrigin, "live", liveSession(testOrigin))
	cache.Put(testOrigin, "dead", &models.Session{
		Origin:    testOrigin,
		CreatedAt: time.Now().Add(-2 * time.Hour),
		TTL:       time.Hour,
	})
	require.Equal(t, 2, cache.Len())

	cache.sweep()
	assert.Equal(t, 1, cache.Len())
	assert.NotNil(t, cache.Get(testOrigin, "live"))
}

func TestCacheClose(t *testing.T) {
	cache := NewCache(30*time.Minute, arbor.NewLogger())
	require.NoError(t, cache.StartSweeper(time.Minute))

	cache.Put(testOrigin, testFP, liveSession(testOrigin))
	cache.Close()
	assert.Equal(t, 0, cache.Len())

	// Sweeper can be restarted after close
	assert.NoError(t, cache.StartSweeper(time.Minute))
	cache.Close()
}
