// Package session provides the in-memory authenticated session cache.
// Entries expire lazily on read; an optional cron sweep reclaims memory for
// keys that are never read again.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
)

// Cache holds authenticated session state keyed by (origin, credential
// fingerprint). At most one live session exists per key; a Put overwrites.
type Cache struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	ttl      time.Duration
	sweeper  *cron.Cron
	logger   arbor.ILogger
}

// NewCache creates a session cache with the given default TTL
func NewCache(ttl time.Duration, logger arbor.ILogger) *Cache {
	return &Cache{
		sessions: make(map[string]*models.Session),
		ttl:      ttl,
		logger:   logger,
	}
}

func cacheKey(origin, fingerprint string) string {
	return origin + "|" + fingerprint
}

// Get returns the cached live session for the key. Expired entries are
// removed on read and nil is returned.
func (c *Cache) Get(origin, fingerprint string) *models.Session {
	key := cacheKey(origin, fingerprint)

	c.mu.RLock()
	session := c.sessions[key]
	c.mu.RUnlock()

	if session == nil {
		return nil
	}

	// Sessions are origin-bound; a key collision across origins is a bug
	if session.Origin != origin {
		c.logger.Warn().
			Str("requested_origin", origin).
			Str("session_origin", session.Origin).
			Msg("Session origin mismatch, discarding entry")
		c.Invalidate(origin, fingerprint)
		return nil
	}

	if session.Expired() {
		c.logger.Debug().
			Str("origin", origin).
			Msg("Cached session expired, removing")
		c.Invalidate(origin, fingerprint)
		return nil
	}

	return session
}

// Put stores a session for the key, overwriting any previous entry. A zero
// TTL on the session is replaced with the cache default.
func (c *Cache) Put(origin, fingerprint string, session *models.Session) {
	if session == nil {
		return
	}
	if session.TTL == 0 {
		session.TTL = c.ttl
	}

	c.mu.Lock()
	c.sessions[cacheKey(origin, fingerprint)] = session
	c.mu.Unlock()

	c.logger.Debug().
		Str("origin", origin).
		Int("cookie_count", len(session.Cookies)).
		Dur("ttl", session.TTL).
		Msg("Session cached")
}

// Invalidate removes any cached session for the key
func (c *Cache) Invalidate(origin, fingerprint string) {
	c.mu.Lock()
	delete(c.sessions, cacheKey(origin, fingerprint))
	c.mu.Unlock()
}

// Len returns the number of cached entries, including not-yet-swept expired ones
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

// StartSweeper begins periodic removal of expired entries. Sweeping is an
// optimization only; correctness comes from lazy expiry in Get.
func (c *Cache) StartSweeper(interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	if c.sweeper != nil {
		return fmt.Errorf("session sweeper already started")
	}

	c.sweeper = cron.New()
	spec := fmt.Sprintf("@every %s", interval)
	if _, err := c.sweeper.AddFunc(spec, c.sweep); err != nil {
		c.sweeper = nil
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}
	c.sweeper.Start()

	c.logger.Info().
		Dur("interval", interval).
		Msg("Session cache sweeper started")
	return nil
}

func (c *Cache) sweep() {
	c.mu.Lock()
	removed := 0
	for key, session := range c.sessions {
		if session.Expired() {
			delete(c.sessions, key)
			removed++
		}
	}
	remaining := len(c.sessions)
	c.mu.Unlock()

	if removed > 0 {
		c.logger.Debug().
			Int("removed", removed).
			Int("remaining", remaining).
			Msg("Swept expired sessions")
	}
}

// Close stops the sweeper and drops all entries
func (c *Cache) Close() {
	if c.sweeper != nil {
		c.sweeper.Stop()
		c.sweeper = nil
	}
	c.mu.Lock()
	c.sessions = make(map[string]*models.Session)
	c.mu.Unlock()
}

var _ interfaces.SessionStore = (*Cache)(nil)
