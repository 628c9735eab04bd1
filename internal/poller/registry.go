package poller

import (
	"context"
	"strings"
	"sync"
)

// Registry holds live trackers keyed by session and action kind.
type Registry struct {
	mu       sync.Mutex
	trackers map[string]*Tracker
}

func NewRegistry() *Registry {
	return &Registry{trackers: make(map[string]*Tracker)}
}

func Key(sessionID, kind string) string {
	return sessionID + "/" + kind
}

func sessionOf(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[:i]
	}
	return key
}

// Acquire returns the tracker for key, creating one when none exists or the
// existing one is closed. fresh forces a new tracker and closes the old one.
func (r *Registry) Acquire(key string, fresh bool, create func() *Tracker) *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.trackers[key]; ok {
		if !fresh && !t.Closed() {
			return t
		}
		t.Close()
	}
	t := create()
	r.trackers[key] = t
	return t
}

// Get returns the tracker for key, if any.
func (r *Registry) Get(key string) (*Tracker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[key]
	return t, ok
}

// Remove closes and forgets the tracker for key.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	t, ok := r.trackers[key]
	delete(r.trackers, key)
	r.mu.Unlock()
	if ok {
		t.Close()
	}
}

// Discard closes t and forgets it only while it is still the tracker for key,
// so a newer tracker acquired with fresh survives.
func (r *Registry) Discard(key string, t *Tracker) {
	r.mu.Lock()
	if cur, ok := r.trackers[key]; ok && cur == t {
		delete(r.trackers, key)
	}
	r.mu.Unlock()
	t.Close()
}

// RemoveSession closes and forgets every tracker of one session.
func (r *Registry) RemoveSession(sessionID string) int {
	prefix := sessionID + "/"
	r.mu.Lock()
	var gone []*Tracker
	for key, t := range r.trackers {
		if strings.HasPrefix(key, prefix) {
			gone = append(gone, t)
			delete(r.trackers, key)
		}
	}
	r.mu.Unlock()
	for _, t := range gone {
		t.Close()
	}
	return len(gone)
}

// Sweep removes the trackers of every session alive reports as gone and
// returns how many it closed. A session whose check fails is kept.
func (r *Registry) Sweep(ctx context.Context, alive func(ctx context.Context, sessionID string) (bool, error)) int {
	r.mu.Lock()
	ids := make(map[string]struct{}, len(r.trackers))
	for key := range r.trackers {
		ids[sessionOf(key)] = struct{}{}
	}
	r.mu.Unlock()

	removed := 0
	for id := range ids {
		if ctx.Err() != nil {
			break
		}
		ok, err := alive(ctx, id)
		if err != nil || ok {
			continue
		}
		removed += r.RemoveSession(id)
	}
	return removed
}

// CloseAll tears down every tracker, e.g. on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.trackers
	r.trackers = make(map[string]*Tracker)
	r.mu.Unlock()
	for _, t := range all {
		t.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trackers)
}
