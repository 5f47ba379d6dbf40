package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"sparky/internal/settings"
)

// ErrNoSettings is returned by the API key helpers when no settings store is configured.
var ErrNoSettings = errors.New("settings store is not configured")

// Manager keeps one Controller per conversation (web session, Telegram chat).
type Manager struct {
	opts     Options
	sessions map[string]*Controller
	mu       sync.RWMutex
}

// NewManager returns a manager whose sessions share opts; SessionID is ignored.
func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Manager{opts: opts, sessions: make(map[string]*Controller)}
}

// Create starts a new session. An empty id gets a generated one.
func (m *Manager) Create(ctx context.Context, id string) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id != "" {
		if _, exists := m.sessions[id]; exists {
			return nil, fmt.Errorf("session %s already exists", id)
		}
	}
	return m.createUnlocked(ctx, id)
}

// GetOrCreate returns the session with id, creating it on first use.
func (m *Manager) GetOrCreate(ctx context.Context, id string) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.sessions[id]; ok {
		return c, nil
	}
	return m.createUnlocked(ctx, id)
}

func (m *Manager) createUnlocked(ctx context.Context, id string) (*Controller, error) {
	opts := m.opts
	opts.SessionID = id
	c, err := New(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	m.sessions[c.ID()] = c
	m.opts.Logger.Info("🔥 Created session", zap.String("session", c.ID()))
	return c, nil
}

// Get returns nil when there is no such session.
func (m *Manager) Get(id string) *Controller {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// End closes the session and forgets it.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	c, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	c.Close()
	m.opts.Logger.Info("🔥 Ended session", zap.String("session", id))
	return nil
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close ends all sessions.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Controller)
	m.mu.Unlock()
	for _, c := range sessions {
		c.Close()
	}
}

// APIKey reads the persisted API key.
func (m *Manager) APIKey(ctx context.Context) (string, error) {
	if m.opts.Settings == nil {
		return "", ErrNoSettings
	}
	return settings.LoadAPIKey(ctx, m.opts.Settings)
}

// SetAPIKey persists key once and updates every live session. A blank key
// clears it.
func (m *Manager) SetAPIKey(ctx context.Context, key string) error {
	if m.opts.Settings == nil {
		return ErrNoSettings
	}
	key = strings.TrimSpace(key)
	if err := settings.SaveAPIKey(ctx, m.opts.Settings, key); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.sessions {
		c.cacheAPIKey(key)
	}
	return nil
}
