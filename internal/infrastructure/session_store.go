package infrastructure

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

type sessionEntry struct {
	event   domain.ProgressEvent
	updated time.Time
}

// SessionRegistry keeps the latest ProgressEvent per session in memory.
// With a zero TTL entries live for the lifetime of the process.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]sessionEntry

	ttl    time.Duration
	now    domain.Clock
	logger *zap.Logger
}

// NewSessionRegistry creates an empty registry
func NewSessionRegistry(config domain.RegistryConfig, clock domain.Clock, logger *zap.Logger) *SessionRegistry {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionRegistry{
		sessions: make(map[string]sessionEntry),
		ttl:      config.TTL,
		now:      clock,
		logger:   logger,
	}
}

// Put replaces the session's snapshot
func (r *SessionRegistry) Put(sessionID string, event domain.ProgressEvent) {
	r.mu.Lock()
	r.sessions[sessionID] = sessionEntry{event: event, updated: r.now()}
	r.mu.Unlock()
}

// Get returns the session's snapshot
func (r *SessionRegistry) Get(sessionID string) (domain.ProgressEvent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sessionID]
	return e.event, ok
}

// Delete forgets a session
func (r *SessionRegistry) Delete(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
}

// Len returns the number of tracked sessions
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot returns a copy of all tracked sessions
func (r *SessionRegistry) Snapshot() map[string]domain.ProgressEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]domain.ProgressEvent, len(r.sessions))
	for id, e := range r.sessions {
		out[id] = e.event
	}
	return out
}

// Sweep evicts terminal sessions not updated within the TTL.
// In-flight sessions are kept regardless of age.
func (r *SessionRegistry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, e := range r.sessions {
		if e.event.IsTerminal() && e.updated.Before(cutoff) {
			delete(r.sessions, id)
			evicted++
		}
	}
	return evicted
}

// RunJanitor sweeps at the given interval until ctx is done.
// It returns immediately when eviction is disabled.
func (r *SessionRegistry) RunJanitor(ctx context.Context, interval time.Duration) {
	if r.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug("Evicted sessions", zap.Int("count", n), zap.Int("remaining", r.Len()))
			}
		}
	}
}
