package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/wpassist/internal/metrics"
)

// Factory builds a fresh session.
type Factory func() *State

// Registry keeps one in-memory session per visitor and browser tab.
type Registry struct {
	mu      sync.RWMutex
	active  map[string]map[string]*State
	factory Factory
	metrics *metrics.Metrics
}

// NewRegistry creates an empty registry.
func NewRegistry(factory Factory, m *metrics.Metrics) *Registry {
	return &Registry{
		active:  make(map[string]map[string]*State),
		factory: factory,
		metrics: m,
	}
}

// Get returns the session for a user and tab, or nil.
func (r *Registry) Get(userID, sessionID string) *State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if sessions, ok := r.active[userID]; ok {
		return sessions[sessionID]
	}
	return nil
}

// GetOrCreate returns the session for a user and tab, creating it on first use.
func (r *Registry) GetOrCreate(userID, sessionID string) *State {
	if s := r.Get(userID, sessionID); s != nil {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.active[userID]; !exists {
		r.active[userID] = make(map[string]*State)
	}
	if s, exists := r.active[userID][sessionID]; exists {
		return s
	}
	s := r.factory()
	r.active[userID][sessionID] = s
	r.metrics.SetActiveSessions(r.lenLocked())
	slog.Info("Widget session created", "user_id", userID, "session_id", sessionID)
	return s
}

// Remove drops a session and closes its subscriptions.
func (r *Registry) Remove(userID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.active[userID]
	if !ok {
		return
	}
	if s, exists := sessions[sessionID]; exists {
		s.Close()
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(r.active, userID)
		}
		r.metrics.SetActiveSessions(r.lenLocked())
		slog.Info("Widget session removed", "user_id", userID, "session_id", sessionID)
	}
}

// Len returns the number of sessions held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lenLocked()
}

func (r *Registry) lenLocked() int {
	n := 0
	for _, sessions := range r.active {
		n += len(sessions)
	}
	return n
}

// SweepIdle removes sessions with no visitor activity for longer than ttl.
// Sessions with a request in flight or an open subscription are kept; idle time
// counts from the last action or the last subscription change.
func (r *Registry) SweepIdle(ttl time.Duration, now time.Time) int {
	type key struct{ userID, sessionID string }
	var expired []key

	r.mu.RLock()
	for userID, sessions := range r.active {
		for sessionID, s := range sessions {
			if s.Busy() || s.Subscribers() > 0 {
				continue
			}
			if now.Sub(s.LastActive()) > ttl {
				expired = append(expired, key{userID, sessionID})
			}
		}
	}
	r.mu.RUnlock()

	for _, k := range expired {
		r.Remove(k.userID, k.sessionID)
	}
	return len(expired)
}
