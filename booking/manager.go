package booking

import (
	"context"
	"sync"

	"github.com/ThalefangN/get-more-bw-87-sub000/utils"

	"go.uber.org/zap"
)

// Manager keeps at most one open session per user.
type Manager struct {
	roster   Roster
	cfg      Config
	onChange func(userID string, snap Snapshot)

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager builds sessions from cfg; cfg.Roster is ignored in favour of
// roster, read fresh on every Open.
func NewManager(roster Roster, cfg Config, onChange func(userID string, snap Snapshot)) *Manager {
	if roster == nil {
		roster = DefaultRoster
	}
	return &Manager{
		roster:   roster,
		cfg:      cfg,
		onChange: onChange,
		sessions: map[string]*Session{},
	}
}

// Open closes any session the user already has and starts a fresh one.
func (m *Manager) Open(ctx context.Context, userID string) *Session {
	drivers, err := m.roster.Drivers(ctx)
	if err != nil || len(drivers) == 0 {
		if err != nil {
			utils.Logger.Warn("Driver roster unavailable, using built-in list", zap.Error(err))
		}
		drivers, _ = DefaultRoster.Drivers(ctx)
	}
	cfg := m.cfg
	cfg.Roster = drivers
	s := NewSession(userID, cfg)
	if m.onChange != nil {
		s.OnChange(func(snap Snapshot) { m.onChange(userID, snap) })
	}

	m.mu.Lock()
	prev := m.sessions[userID]
	m.sessions[userID] = s
	m.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	return s
}

func (m *Manager) Get(userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) Close(userID string) error {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	return nil
}

// CloseAll is used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = map[string]*Session{}
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
