package cart

import (
	"sync"
	"time"
)

// Registry holds one cart per browser session.
type Registry struct {
	mu    sync.Mutex
	carts map[string]*Cart
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{carts: make(map[string]*Cart), now: time.Now}
}

// Get returns the cart for sessionID, creating an empty one on first use.
func (r *Registry) Get(sessionID string) *Cart {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[sessionID]
	if !ok {
		c = newCart(r.now)
		r.carts[sessionID] = c
	}
	return c
}

// Drop forgets the cart for sessionID.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	delete(r.carts, sessionID)
	r.mu.Unlock()
}

// Len returns the number of live carts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}

// Sweep drops carts untouched for longer than idle and returns how many went.
func (r *Registry) Sweep(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-idle)
	n := 0
	for id, c := range r.carts {
		if c.lastTouched().Before(cutoff) {
			delete(r.carts, id)
			n++
		}
	}
	return n
}
