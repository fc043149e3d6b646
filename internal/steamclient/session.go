package steamclient

import (
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/94faddy/dz-wrokshop/internal/models"
)

const sessionKey = "current"

// session tracks whether the shared steamcmd login is known-good, backed
// by a single-entry ttlcache so a verified session expires on its own
// after the configured window; the cache's own cleanup goroutine is
// started in newSession and stopped by close (§4.5).
type session struct {
	mu       sync.RWMutex
	cache    *ttlcache.Cache[string, string]
	username string
	ttl      time.Duration
}

func newSession(ttl time.Duration) *session {
	cache := ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](ttl),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go cache.Start()
	return &session{cache: cache, ttl: ttl}
}

// state reports the current SessionState. A cache miss means either the
// session was never verified or the TTL window elapsed, both of which
// collapse to SessionUnknown per §4.5.
func (s *session) state() models.SessionState {
	item := s.cache.Get(sessionKey)
	if item == nil {
		return models.SessionUnknown
	}
	if item.Value() == "invalid" {
		return models.SessionInvalid
	}
	return models.SessionVerified
}

func (s *session) markVerified(username string) {
	s.mu.Lock()
	s.username = username
	s.mu.Unlock()
	s.cache.Set(sessionKey, "verified", s.ttl)
}

func (s *session) markInvalid() {
	s.cache.Set(sessionKey, "invalid", s.ttl)
}

func (s *session) currentUsername() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *session) valid() bool {
	return s.state() == models.SessionVerified
}

func (s *session) snapshot() models.SessionSnapshot {
	item := s.cache.Get(sessionKey)
	snap := models.SessionSnapshot{
		Username: s.currentUsername(),
		State:    s.state(),
	}
	if item != nil {
		snap.LastVerifiedAt = item.ExpiresAt().Add(-s.ttl)
	}
	return snap
}

func (s *session) close() {
	s.cache.Stop()
}
