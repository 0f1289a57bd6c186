// Package conversation intercepts a user's next message in a chat for a
// bounded time. At most one conversation is armed per user; arming again
// supersedes the previous one.
package conversation

import "sync"

type entry struct {
	armed      bool
	generation uint64
}

// Registry is the single source of truth for "is a conversation armed for
// this user". Generations distinguish a live session from a superseded one.
type Registry struct {
	mu sync.Mutex
	m  map[int64]entry
}

func NewRegistry() *Registry {
	return &Registry{m: make(map[int64]entry)}
}

// Arm marks the user as armed under a fresh generation and returns it.
func (r *Registry) Arm(user int64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.m[user]
	e.generation++
	e.armed = true
	r.m[user] = e
	return e.generation
}

// Disarm clears the user's flag. Safe on users that were never armed.
func (r *Registry) Disarm(user int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.m[user]; ok && e.armed {
		e.armed = false
		r.m[user] = e
	}
}

// DisarmIf clears the flag only when generation is still the armed one.
// It reports whether this call did the clearing.
func (r *Registry) DisarmIf(user int64, generation uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.m[user]
	if !ok || !e.armed || e.generation != generation {
		return false
	}
	e.armed = false
	r.m[user] = e
	return true
}

func (r *Registry) IsArmed(user int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[user].armed
}

// IsCurrent reports whether generation is armed and has not been superseded.
func (r *Registry) IsCurrent(user int64, generation uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.m[user]
	return e.armed && e.generation == generation
}

// Armed returns the live generation, if any.
func (r *Registry) Armed(user int64) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.m[user]
	return e.generation, e.armed
}

func (r *Registry) Generation(user int64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[user].generation
}
