// Package profilecache caches user profiles by id in front of the user store.
// Writers that change a profile must call Invalidate.
package profilecache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/joestump/folio/internal/store"
)

// Getter loads a profile from the backing store.
type Getter interface {
	GetByID(ctx context.Context, id string) (*store.User, error)
}

type Cache struct {
	src     Getter
	entries *expirable.LRU[string, *store.User]
}

func New(src Getter, size int, ttl time.Duration) *Cache {
	return &Cache{src: src, entries: expirable.NewLRU[string, *store.User](size, nil, ttl)}
}

// Get returns the cached profile for id, reading through on a miss. Errors
// are not cached.
func (c *Cache) Get(ctx context.Context, id string) (*store.User, error) {
	if u, ok := c.entries.Get(id); ok {
		return u, nil
	}
	u, err := c.src.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.entries.Add(id, u)
	return u, nil
}

// GetByID is Get under the name the auth middleware expects.
func (c *Cache) GetByID(ctx context.Context, id string) (*store.User, error) {
	return c.Get(ctx, id)
}

// Invalidate evicts id so the next Get reloads it.
func (c *Cache) Invalidate(id string) {
	c.entries.Remove(id)
}

// Put stores a freshly written profile.
func (c *Cache) Put(u *store.User) {
	c.entries.Add(u.ID, u)
}
