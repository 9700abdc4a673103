// Package reset implements the password reset flow: issuing, verifying and
// redeeming short-lived verification codes keyed by email.
package reset

import (
	"context"
	"sync"
	"time"

	"marketplace-identity/internal/reset/domain"
)

// Store holds at most one live verification code per email. Entries expire
// on their own; Get never returns a code whose storage lifetime has passed.
type Store interface {
	// Put stores the code under its email, replacing any previous code for
	// that email.
	Put(ctx context.Context, code domain.VerificationCode) error
	// Get returns the code for email if present and not evicted. Returns ok
	// false if missing or expired; a used code is still returned until its
	// lifetime passes.
	Get(ctx context.Context, email string) (code domain.VerificationCode, ok bool)
	// Delete removes the code for email. Deleting a missing entry is a no-op.
	Delete(ctx context.Context, email string) error
	// Exists reports whether a live code is stored for email.
	Exists(ctx context.Context, email string) (bool, error)
}

type entry struct {
	code    domain.VerificationCode
	evictAt time.Time
}

// MemoryStore is an in-memory Store implementation with lazy eviction.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory code store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// Put stores code under its email until shortly after the code expires.
// The storage lifetime is rounded up to whole minutes with a one-minute
// floor, so a code written back mid-life is never evicted before its
// expiry and a just-expired code remains observable as used rather than
// vanishing mid-flow.
func (s *MemoryStore) Put(ctx context.Context, code domain.VerificationCode) error {
	now := s.nowF()
	ttl := code.ExpiresAt.Sub(now)
	if r := ttl % time.Minute; r > 0 {
		ttl += time.Minute - r
	}
	if ttl < time.Minute {
		ttl = time.Minute
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[code.Email] = entry{code: code, evictAt: now.Add(ttl)}
	return nil
}

// Get returns the code stored for email if it has not been evicted.
func (s *MemoryStore) Get(ctx context.Context, email string) (domain.VerificationCode, bool) {
	s.mu.RLock()
	e, ok := s.m[email]
	s.mu.RUnlock()
	if !ok {
		return domain.VerificationCode{}, false
	}
	if !e.evictAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, email)
		s.mu.Unlock()
		return domain.VerificationCode{}, false
	}
	return e.code, true
}

// Delete removes the code for email.
func (s *MemoryStore) Delete(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, email)
	return nil
}

// Exists reports whether a live code is stored for email.
func (s *MemoryStore) Exists(ctx context.Context, email string) (bool, error) {
	_, ok := s.Get(ctx, email)
	return ok, nil
}
