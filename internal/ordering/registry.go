package ordering

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ManagerFactory builds a fresh Manager for userID in the session
// identified by sessionKey.
type ManagerFactory func(sessionKey, userID string) *Manager

// Registry hands out one Manager per session key. Idle managers expire
// after ttl; the least recently used are evicted beyond size.
type Registry struct {
	mu      sync.Mutex
	cache   *expirable.LRU[string, *Manager]
	factory ManagerFactory
}

func NewRegistry(size int, ttl time.Duration, factory ManagerFactory) *Registry {
	return &Registry{
		cache:   expirable.NewLRU[string, *Manager](size, nil, ttl),
		factory: factory,
	}
}

// Get returns the session's manager, creating it on first use. A session
// that switched users gets a new manager.
func (r *Registry) Get(sessionKey, userID string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.cache.Get(sessionKey); ok && m.UserID() == userID {
		r.cache.Add(sessionKey, m) // refresh expiry
		return m
	}
	m := r.factory(sessionKey, userID)
	r.cache.Add(sessionKey, m)
	return m
}

// Forget drops the session's manager, e.g. on logout.
func (r *Registry) Forget(sessionKey string) {
	r.cache.Remove(sessionKey)
}

// Len returns the number of live managers.
func (r *Registry) Len() int {
	return r.cache.Len()
}
