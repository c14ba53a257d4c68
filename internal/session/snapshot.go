package session

import (
	"sync"

	"github.com/ashureev/wpassist/internal/domain"
)

// Phase names the lifecycle position of a session.
type Phase string

const (
	PhaseDisconnected Phase = "disconnected"
	PhaseConnecting   Phase = "connecting"
	PhaseIdle         Phase = "connected:idle"
	PhaseWaiting      Phase = "connected:waiting"
)

// Snapshot is an immutable copy of a session's state.
// Instance identifies the session itself; versions only compare within one instance.
type Snapshot struct {
	Instance  string                    `json:"instance"`
	Version   uint64                    `json:"version"`
	Mode      domain.DisplayMode        `json:"mode"`
	Open      bool                      `json:"open"`
	Tab       domain.Tab                `json:"tab"`
	Draft     string                    `json:"draft"`
	SiteInput string                    `json:"site_input,omitempty"`
	Site      domain.SiteConnection     `json:"site"`
	Turns     []domain.ConversationTurn `json:"turns"`
	Loading   bool                      `json:"loading"`
	Error     string                    `json:"error,omitempty"`
}

// Phase derives the lifecycle phase from the snapshot.
func (s Snapshot) Phase() Phase {
	switch {
	case !s.Site.Connected && s.Loading:
		return PhaseConnecting
	case !s.Site.Connected:
		return PhaseDisconnected
	case s.Loading:
		return PhaseWaiting
	default:
		return PhaseIdle
	}
}

// Snapshot returns the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	items := make([]domain.ContentItem, len(s.site.Items))
	copy(items, s.site.Items)
	turns := make([]domain.ConversationTurn, len(s.turns))
	copy(turns, s.turns)
	return Snapshot{
		Instance:  s.instance,
		Version:   s.version,
		Mode:      s.mode,
		Open:      s.open,
		Tab:       s.tab,
		Draft:     s.draft,
		SiteInput: s.siteInput,
		Site: domain.SiteConnection{
			URL:       s.site.URL,
			Items:     items,
			Connected: s.site.Connected,
		},
		Turns:   turns,
		Loading: s.loading,
		Error:   s.errMsg,
	}
}

// Subscribe returns a channel that receives a snapshot after every change, and a
// cancel func that closes it. A subscriber that falls behind only loses intermediate
// snapshots; the most recent one is always delivered.
func (s *State) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Snapshot, buffer)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = ch
	s.touchLocked()
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
				s.touchLocked()
			}
		})
	}
}

// Close ends every subscription. The session stays usable but no longer notifies.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

// notifyLocked bumps the version and pushes the new snapshot to every subscriber.
// Must be called with s.mu held.
func (s *State) notifyLocked() {
	s.version++
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		// Full: drop the oldest pending snapshot to make room for the latest.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
