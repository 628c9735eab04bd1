package poller

import "sync"

// Guard is the "confirm before leaving" flag held while a presented form is in flight.
// Release is idempotent.
type Guard struct {
	mu   sync.Mutex
	held bool
}

func (g *Guard) Acquire() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.held = true
}

// Release drops the guard and reports whether it was held.
func (g *Guard) Release() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	was := g.held
	g.held = false
	return was
}

func (g *Guard) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}
