package listing

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Registry holds the open draft sessions.
type Registry struct {
	analyze AnalyzeFunc
	timeout time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a registry whose sessions analyze primary photos with
// analyze, each bounded by timeout. A nil analyze disables analysis.
func NewRegistry(analyze AnalyzeFunc, timeout time.Duration) *Registry {
	return &Registry{
		analyze:  analyze,
		timeout:  timeout,
		sessions: make(map[string]*Session),
	}
}

// Create opens a session for a new draft of the given item type.
func (r *Registry) Create(itemType string) *Session {
	draft := NewDraft(uuid.NewString())
	draft.Type = itemType
	session := NewSession(draft, r.analyze, r.timeout)

	r.mu.Lock()
	r.sessions[draft.ID] = session
	r.mu.Unlock()

	log.Info().Str("draft", draft.ID).Str("type", itemType).Msg("draft session created")
	return session
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	return session, ok
}

// Delete closes and removes a session. It reports whether it existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	session, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		session.Close()
	}
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// PruneIdle closes sessions untouched for longer than maxIdle and returns
// how many were removed.
func (r *Registry) PruneIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	var stale []*Session
	for id, session := range r.sessions {
		if session.LastActive().Before(cutoff) {
			stale = append(stale, session)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	// Close outside the lock to avoid blocking
	for _, session := range stale {
		session.Close()
	}
	if len(stale) > 0 {
		log.Info().Int("count", len(stale)).Msg("pruned idle draft sessions")
	}
	return len(stale)
}

// Shutdown closes all sessions.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
	log.Info().Int("count", len(sessions)).Msg("closed all draft sessions")
}
