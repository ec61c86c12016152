package service

import (
	"context"
	"sync"
	"time"

	"github.com/AlibekovAA/session-auth/backend/internal/common/clock"
	userdomain "github.com/AlibekovAA/session-auth/backend/internal/user/domain"
)

// SessionCache maps a username to the user it last authenticated as.
// Implementations must be safe for concurrent use and must never block on
// the credential store.
type SessionCache interface {
	Get(ctx context.Context, username string) (userdomain.User, bool)
	Put(ctx context.Context, username string, user userdomain.User)
	// PutSession is Put that also binds the entry to sessionID, replacing
	// whatever session the username held before.
	PutSession(ctx context.Context, username string, user userdomain.User, sessionID string)
	// HasSession reports whether username is cached as userID under
	// sessionID. An empty sessionID never matches.
	HasSession(ctx context.Context, username string, userID int64, sessionID string) bool
	InvalidateUser(ctx context.Context, userID int64) bool
	Len() int
}

const (
	evictionExpired  = "expired"
	evictionCapacity = "capacity"
	evictionLogout   = "logout"
	evictionReplaced = "replaced"

	backendMemory = "memory"
	backendRedis  = "redis"
)

type SessionCacheConfig struct {
	// TTL bounds how long an entry is served. Zero keeps entries until
	// logout or eviction.
	TTL time.Duration
	// MaxEntries caps the cache size; the oldest write is evicted when full.
	// Zero means unbounded.
	MaxEntries int
	Clock      clock.Clock
}

type sessionEntry struct {
	user      userdomain.User
	sessionID string
	expiresAt time.Time
	seq       uint64
}

type MemorySessionCache struct {
	mu         sync.Mutex
	entries    map[string]sessionEntry
	byID       map[int64]string
	seq        uint64
	ttl        time.Duration
	maxEntries int
	clock      clock.Clock
}

func NewMemorySessionCache(config SessionCacheConfig) *MemorySessionCache {
	c := config.Clock
	if c == nil {
		c = clock.NewRealClock()
	}
	return &MemorySessionCache{
		entries:    make(map[string]sessionEntry),
		byID:       make(map[int64]string),
		ttl:        config.TTL,
		maxEntries: config.MaxEntries,
		clock:      c,
	}
}

func (c *MemorySessionCache) Get(_ context.Context, username string) (userdomain.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.liveLocked(username)
	if !ok {
		return userdomain.User{}, false
	}
	return entry.user, true
}

func (c *MemorySessionCache) HasSession(_ context.Context, username string, userID int64, sessionID string) bool {
	if sessionID == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.liveLocked(username)
	return ok && entry.user.ID == userID && entry.sessionID == sessionID
}

func (c *MemorySessionCache) Put(ctx context.Context, username string, user userdomain.User) {
	c.PutSession(ctx, username, user, "")
}

func (c *MemorySessionCache) PutSession(_ context.Context, username string, user userdomain.User, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.entries[username]; ok {
		if prev.user.ID != user.ID {
			delete(c.byID, prev.user.ID)
		}
	} else if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}

	// An id cached under another username would leave the index pointing
	// at two entries.
	if other, ok := c.byID[user.ID]; ok && other != username {
		delete(c.entries, other)
		incrementCacheEviction(evictionReplaced, 1)
	}

	c.seq++
	entry := sessionEntry{user: user, sessionID: sessionID, seq: c.seq}
	if c.ttl > 0 {
		entry.expiresAt = c.clock.Now().Add(c.ttl)
	}
	c.entries[username] = entry
	c.byID[user.ID] = username
	setCacheEntries(backendMemory, len(c.entries))
}

func (c *MemorySessionCache) InvalidateUser(_ context.Context, userID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	username, ok := c.byID[userID]
	if !ok {
		return false
	}
	c.removeLocked(username, c.entries[username])
	incrementCacheEviction(evictionLogout, 1)
	setCacheEntries(backendMemory, len(c.entries))
	return true
}

// DeleteExpired drops every entry past its TTL and reports how many went.
func (c *MemorySessionCache) DeleteExpired(_ context.Context) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	var removed int64
	for username, entry := range c.entries {
		if c.expired(entry, now) {
			c.removeLocked(username, entry)
			removed++
		}
	}
	incrementCacheEviction(evictionExpired, int(removed))
	setCacheEntries(backendMemory, len(c.entries))
	return removed, nil
}

func (c *MemorySessionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemorySessionCache) liveLocked(username string) (sessionEntry, bool) {
	entry, ok := c.entries[username]
	if !ok {
		return sessionEntry{}, false
	}
	if c.expired(entry, c.clock.Now()) {
		c.removeLocked(username, entry)
		incrementCacheEviction(evictionExpired, 1)
		setCacheEntries(backendMemory, len(c.entries))
		return sessionEntry{}, false
	}
	return entry, true
}

func (c *MemorySessionCache) expired(entry sessionEntry, now time.Time) bool {
	return !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt)
}

func (c *MemorySessionCache) removeLocked(username string, entry sessionEntry) {
	delete(c.entries, username)
	if c.byID[entry.user.ID] == username {
		delete(c.byID, entry.user.ID)
	}
}

func (c *MemorySessionCache) evictOldestLocked() {
	var (
		oldestName  string
		oldestEntry sessionEntry
		found       bool
	)
	for username, entry := range c.entries {
		if !found || entry.seq < oldestEntry.seq {
			oldestName, oldestEntry, found = username, entry, true
		}
	}
	if found {
		c.removeLocked(oldestName, oldestEntry)
		incrementCacheEviction(evictionCapacity, 1)
	}
}
