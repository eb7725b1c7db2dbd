package httpserver

import (
	"sync"
	"time"

	appaudit "github.com/bryanwahyu/seo-aio-audit/internal/application/audit"
)

// OrchestratorFactory builds the orchestrator of a new session. Each
// session gets its own cache slot.
type OrchestratorFactory func(sessionID string) *appaudit.Orchestrator

const defaultSessionIdle = time.Hour

// Sessions maps X-Session-ID values to orchestrators, so one browser tab
// (or CLI invocation) runs at most one analysis at a time.
type Sessions struct {
	factory OrchestratorFactory
	idle    time.Duration
	now     func() time.Time

	mu   sync.Mutex
	byID map[string]*session
}

type session struct {
	orch     *appaudit.Orchestrator
	lastUsed time.Time
}

func NewSessions(factory OrchestratorFactory, idle time.Duration) *Sessions {
	if idle <= 0 {
		idle = defaultSessionIdle
	}
	return &Sessions{factory: factory, idle: idle, now: time.Now, byID: map[string]*session{}}
}

// Get returns the orchestrator of id, creating it on first use. Idle
// sessions without a running analysis are dropped on the way.
func (s *Sessions) Get(id string) *appaudit.Orchestrator {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, sess := range s.byID {
		if key != id && now.Sub(sess.lastUsed) > s.idle && !sess.orch.State().InProgress() {
			delete(s.byID, key)
		}
	}

	sess, ok := s.byID[id]
	if !ok {
		sess = &session{orch: s.factory(id)}
		s.byID[id] = sess
	}
	sess.lastUsed = now
	return sess.orch
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
