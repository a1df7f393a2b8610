package session

import (
	"context"
	"sync"
	"time"

	"runcomp/internal/leaderboard"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Factory builds the controller for a new session
type Factory func() *leaderboard.Controller

type session struct {
	controller *leaderboard.Controller
	lastSeen   time.Time
}

// Registry keeps one leaderboard controller per viewer session
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	factory  Factory
	idleTTL  time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewRegistry creates a registry that forgets sessions idle for idleTTL
func NewRegistry(factory Factory, idleTTL time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*session),
		factory:  factory,
		idleTTL:  idleTTL,
		now:      time.Now,
		logger:   logger,
	}
}

// Resolve returns the controller for id, creating a session when id is
// empty or unknown. created reports whether a new session was made.
func (r *Registry) Resolve(id string) (sessionID string, controller *leaderboard.Controller, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if s, ok := r.sessions[id]; ok && id != "" {
		s.lastSeen = now
		return id, s.controller, false
	}

	sessionID = uuid.NewString()
	s := &session{controller: r.factory(), lastSeen: now}
	r.sessions[sessionID] = s
	r.logger.Debug("Session created", zap.String("session", sessionID))
	return sessionID, s.controller, true
}

// Get returns the controller for an existing session
func (r *Registry) Get(id string) (*leaderboard.Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	s.lastSeen = r.now()
	return s.controller, true
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle longer than the TTL and returns how many went
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, s := range r.sessions {
		if now.Sub(s.lastSeen) > r.idleTTL {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps idle sessions every interval until ctx is done.
// The returned channel closes when the janitor has stopped.
func (r *Registry) StartJanitor(ctx context.Context, interval time.Duration) <-chan struct{} {
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := r.Sweep(); removed > 0 {
					r.logger.Info("Expired idle sessions",
						zap.Int("removed", removed),
						zap.Int("remaining", r.Len()))
				}
			}
		}
	}()

	return stopped
}
