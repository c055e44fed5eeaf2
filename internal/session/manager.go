package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Manager owns the in-memory sessions and expires idle ones.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// GetOrCreate returns the session for id, creating it when missing.
func (m *Manager) GetOrCreate(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	s, ok := m.sessions[id]
	if !ok {
		s = New(id, now)
		m.sessions[id] = s
		log.Debug().Str("session", id).Msg("session created")
		return s
	}
	s.Touch(now)
	return s
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed. Sessions with a call outstanding are kept. A zero TTL
// disables expiry.
func (m *Manager) Sweep(now time.Time) int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if now.Sub(s.LastActive()) > m.ttl && !s.Busy() {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on a ticker until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Sweep(m.now()); n > 0 {
				log.Info().Int("removed", n).Int("remaining", m.Len()).Msg("expired idle sessions")
			}
		}
	}
}
