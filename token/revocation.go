package token

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// RevocationEntry records why and when a token was withdrawn.
type RevocationEntry struct {
	Token     string
	Reason    string
	RevokedAt time.Time
}

// RevocationStore holds tokens withdrawn before their natural expiry.
type RevocationStore interface {
	// Revoke is idempotent: the first entry for a token wins.
	Revoke(token, reason string)
	IsRevoked(token string) bool
	// Cleanup drops entries whose tokens can no longer pass expiry checks.
	Cleanup()
	Len() int
}

type RevocationOption func(*InMemoryRevocationStore)

// WithRevocationClock replaces time.Now.
func WithRevocationClock(now func() time.Time) RevocationOption {
	return func(s *InMemoryRevocationStore) {
		s.now = now
	}
}

// InMemoryRevocationStore keeps entries in a map guarded by a RWMutex.
// Entries older than the retention are treated as absent; a zero retention keeps everything.
type InMemoryRevocationStore struct {
	entries   map[string]RevocationEntry
	retention time.Duration
	now       func() time.Time
	mu        sync.RWMutex
}

var _ RevocationStore = (*InMemoryRevocationStore)(nil)

// NewInMemoryRevocationStore builds a store whose retention should be the longest token TTL issued.
func NewInMemoryRevocationStore(retention time.Duration, options ...RevocationOption) *InMemoryRevocationStore {
	s := &InMemoryRevocationStore{
		entries:   make(map[string]RevocationEntry),
		retention: retention,
		now:       time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *InMemoryRevocationStore) Revoke(token, reason string) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[token]; ok && !s.stale(e, now) {
		return
	}
	s.entries[token] = RevocationEntry{Token: token, Reason: reason, RevokedAt: now}
}

func (s *InMemoryRevocationStore) IsRevoked(token string) bool {
	_, ok := s.Entry(token)
	return ok
}

// Entry returns the live entry for token, if any.
func (s *InMemoryRevocationStore) Entry(token string) (RevocationEntry, bool) {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[token]
	if !ok || s.stale(e, now) {
		return RevocationEntry{}, false
	}
	return e, true
}

func (s *InMemoryRevocationStore) Cleanup() {
	s.cleanup()
}

func (s *InMemoryRevocationStore) cleanup() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for token, e := range s.entries {
		if s.stale(e, now) {
			delete(s.entries, token)
			removed++
		}
	}
	return removed
}

// Len counts live entries.
func (s *InMemoryRevocationStore) Len() int {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if !s.stale(e, now) {
			n++
		}
	}
	return n
}

// Run calls Cleanup every interval until ctx is done.
func (s *InMemoryRevocationStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.cleanup(); removed > 0 {
				log.Debug().Int("removed", removed).Int("remaining", s.Len()).Msg("revocation sweep")
			}
		}
	}
}

func (s *InMemoryRevocationStore) stale(e RevocationEntry, now time.Time) bool {
	return s.retention > 0 && !now.Before(e.RevokedAt.Add(s.retention))
}
