// internal/domain/checkout/manager.go
package checkout

import (
	"sync"
	"time"

	"github.com/your-org/elearning-storefront/internal/pkg/apperror"
)

// Manager keeps the live checkout session of every shopper
type Manager struct {
	mu       sync.Mutex
	orch     *Orchestrator
	sessions map[string]*Session
	byOwner  map[string]string
}

func NewManager(orch *Orchestrator) *Manager {
	return &Manager{
		orch:     orch,
		sessions: make(map[string]*Session),
		byOwner:  make(map[string]string),
	}
}

// Begin starts a checkout for owner. A session the owner already had is left,
// so only the newest checkout view receives results.
func (m *Manager) Begin(owner string, ui UI, req BeginRequest, c Cart) (*Session, error) {
	s, err := m.orch.Begin(ui, req, c)
	if err != nil {
		return nil, err
	}
	s.owner = owner

	m.mu.Lock()
	defer m.mu.Unlock()

	if prevID, ok := m.byOwner[owner]; ok {
		if prev, ok := m.sessions[prevID]; ok {
			prev.Leave()
			delete(m.sessions, prevID)
		}
	}
	m.sessions[s.id] = s
	m.byOwner[owner] = s.id

	return s, nil
}

// Get returns the session if it exists and belongs to owner
func (m *Manager) Get(id, owner string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.owner != owner {
		return nil, apperror.NotFound("Checkout session not found")
	}
	return s, nil
}

// Leave ends and drops the session
func (m *Manager) Leave(id, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.owner != owner {
		return apperror.NotFound("Checkout session not found")
	}
	s.Leave()
	m.dropLocked(s)
	return nil
}

// Sweep ends sessions idle for longer than idle and returns how many it dropped
func (m *Manager) Sweep(idle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.orch.now().Add(-idle)
	dropped := 0
	for _, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			s.Leave()
			m.dropLocked(s)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) dropLocked(s *Session) {
	delete(m.sessions, s.id)
	if m.byOwner[s.owner] == s.id {
		delete(m.byOwner, s.owner)
	}
}
