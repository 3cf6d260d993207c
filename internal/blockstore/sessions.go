package blockstore

import (
	"context"
	"sync"
)

// Loader fetches the persisted blocks of an entry.
type Loader interface {
	LoadBlocks(ctx context.Context, site, entry string) ([]Block, error)
}

// Sessions keeps one Store per entry and serialises work on each entry, so
// the read, compute and apply steps of concurrent requests cannot interleave.
type Sessions struct {
	loader Loader

	mu      sync.Mutex
	entries map[string]*session
}

type session struct {
	mu     sync.Mutex
	store  *MemoryStore
	loaded bool
	// stale is set under mu once the session has left the table. Callers
	// that were already waiting on mu must start over with a fresh session.
	stale bool
}

// NewSessions creates a session table. loader may be nil, in which case new
// entries start empty.
func NewSessions(loader Loader) *Sessions {
	return &Sessions{
		loader:  loader,
		entries: make(map[string]*session),
	}
}

func sessionKey(site, entry string) string {
	return site + "/" + entry
}

// With runs fn while holding the entry's lock. The store is loaded on first
// use; a failed load is retried on the next call.
func (s *Sessions) With(ctx context.Context, site, entry string, fn func(Store) error) error {
	sess := s.lock(sessionKey(site, entry))
	defer sess.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if !sess.loaded {
		var blocks []Block
		if s.loader != nil {
			loaded, err := s.loader.LoadBlocks(ctx, site, entry)
			if err != nil {
				return err
			}
			blocks = loaded
		}
		sess.store.Reset(blocks)
		sess.loaded = true
	}

	return fn(sess.store)
}

// Forget drops the cached store of an entry so the next call reloads it. It
// waits for the current holder of the entry, if any.
func (s *Sessions) Forget(site, entry string) {
	_ = s.Evict(context.Background(), site, entry, nil)
}

// Evict runs fn while holding the entry's lock and then drops the cached
// store. The store is not loaded for fn. When fn fails the cache is kept.
func (s *Sessions) Evict(ctx context.Context, site, entry string, fn func() error) error {
	key := sessionKey(site, entry)
	sess := s.lock(key)
	defer sess.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if fn != nil {
		if err := fn(); err != nil {
			return err
		}
	}

	sess.stale = true
	s.mu.Lock()
	if s.entries[key] == sess {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return nil
}

// lock returns the live session for key with its lock held.
func (s *Sessions) lock(key string) *session {
	for {
		sess := s.get(key)
		sess.mu.Lock()
		if !sess.stale {
			return sess
		}
		sess.mu.Unlock()
	}
}

func (s *Sessions) get(key string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.entries[key]
	if !ok {
		sess = &session{store: NewMemoryStore(nil)}
		s.entries[key] = sess
	}
	return sess
}
