package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/twentyq/internal/metrics"
	"github.com/mesh-intelligence/twentyq/internal/model"
	"github.com/mesh-intelligence/twentyq/pkg/types"
)

// DefaultSessionID names the session used when a caller does not pick one,
// as the interactive CLI does.
const DefaultSessionID = "default"

// Limits applied to opened sessions unless overridden.
const (
	DefaultIdleTTL     = 30 * time.Minute
	DefaultMaxSessions = 1000
)

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithIdleTTL expires opened sessions unused for longer than ttl. Zero
// disables expiry.
func WithIdleTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) { m.idleTTL = ttl }
}

// WithMaxSessions caps the number of opened sessions. Zero disables the cap.
func WithMaxSessions(n int) ManagerOption {
	return func(m *Manager) { m.maxSessions = n }
}

// Manager owns the sessions of one process. Opened sessions expire after
// the idle TTL; the default session never expires.
type Manager struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	lastUsed    map[string]time.Time
	idleTTL     time.Duration
	maxSessions int
	now         func() time.Time

	models  *model.Handle
	learner Learner
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewManager returns a Manager with no sessions.
func NewManager(models *model.Handle, learner Learner, log *zap.Logger, met *metrics.Metrics, opts ...ManagerOption) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		sessions:    make(map[string]*Session),
		lastUsed:    make(map[string]time.Time),
		idleTTL:     DefaultIdleTTL,
		maxSessions: DefaultMaxSessions,
		now:         time.Now,
		models:      models,
		learner:     learner,
		log:         log,
		metrics:     met,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open creates a session with a fresh id. Expired sessions are dropped
// first; ErrSessionLimit is returned when the cap is still reached.
func (m *Manager) Open() (*Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating session id: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweepLocked(now)
	if m.maxSessions > 0 && len(m.lastUsed) >= m.maxSessions {
		return nil, fmt.Errorf("%d sessions open: %w", len(m.lastUsed), types.ErrSessionLimit)
	}
	s := NewSession(id.String(), m.models, m.learner, m.log, m.metrics)
	m.sessions[s.id] = s
	m.lastUsed[s.id] = now
	return s, nil
}

// Get returns the session with id. An empty id means DefaultSessionID, which
// is created on first use. Any other unknown or expired id is
// ErrSessionNotFound.
func (m *Manager) Get(id string) (*Session, error) {
	if id == "" {
		id = DefaultSessionID
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if s, ok := m.sessions[id]; ok {
		if m.expiredLocked(id, now) {
			m.dropLocked(id)
			return nil, fmt.Errorf("session %q expired: %w", id, types.ErrSessionNotFound)
		}
		if _, opened := m.lastUsed[id]; opened {
			m.lastUsed[id] = now
		}
		return s, nil
	}
	if id != DefaultSessionID {
		return nil, fmt.Errorf("session %q: %w", id, types.ErrSessionNotFound)
	}
	s := NewSession(id, m.models, m.learner, m.log, m.metrics)
	m.sessions[id] = s
	return s, nil
}

// Close forgets a session. Unknown ids are ignored.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropLocked(id)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) expiredLocked(id string, now time.Time) bool {
	last, opened := m.lastUsed[id]
	return opened && m.idleTTL > 0 && now.Sub(last) > m.idleTTL
}

func (m *Manager) sweepLocked(now time.Time) {
	for id := range m.lastUsed {
		if m.expiredLocked(id, now) {
			m.dropLocked(id)
			m.log.Debug("session expired", zap.String("session", id))
		}
	}
}

func (m *Manager) dropLocked(id string) {
	delete(m.sessions, id)
	delete(m.lastUsed, id)
}
