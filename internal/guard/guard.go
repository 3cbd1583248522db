package guard

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 15 * time.Second

type lockEntry struct {
	token   string
	expires time.Time
}

// RequestGuard holds short-lived per-key locks so identical concurrent
// requests do not stampede the upstream store. Locks expire on their own:
// a handler that dies without releasing can only block a key for one TTL.
type RequestGuard struct {
	ttl time.Duration

	mu    sync.Mutex
	locks map[string]lockEntry
	now   func() time.Time
}

// New builds a guard whose locks expire after ttl (15s when non-positive).
func New(ttl time.Duration) *RequestGuard {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RequestGuard{
		ttl:   ttl,
		locks: make(map[string]lockEntry),
		now:   time.Now,
	}
}

// Key composes the lock key for one viewer loading one resource. Scoping by
// viewer keeps unrelated users off each other's locks while still collapsing
// duplicate loads of the same resource by the same viewer.
func Key(viewer, resource string) string {
	return fmt.Sprintf("%s|%s", viewer, resource)
}

// TryAcquire takes the lock for key if it is free or expired. It returns
// false while another holder is live; callers should answer with a
// "processing" status rather than start a second identical transfer.
//
// The returned token identifies this acquisition and must be passed back to
// Release. A holder that outlives its TTL cannot release a lock someone else
// re-acquired in the meantime.
func (g *RequestGuard) TryAcquire(key string) (string, bool) {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	for k, entry := range g.locks {
		if now.After(entry.expires) {
			delete(g.locks, k)
		}
	}

	if entry, held := g.locks[key]; held && now.Before(entry.expires) {
		return "", false
	}
	token := uuid.NewString()
	g.locks[key] = lockEntry{token: token, expires: now.Add(g.ttl)}
	return token, true
}

// Release frees the lock for key when token still owns it. A stale token is
// a no-op, so releasing after expiry never evicts a successor's lock.
func (g *RequestGuard) Release(key, token string) {
	g.mu.Lock()
	if entry, held := g.locks[key]; held && entry.token == token {
		delete(g.locks, key)
	}
	g.mu.Unlock()
}
