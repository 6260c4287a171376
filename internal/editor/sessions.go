package editor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"image-editor/internal/infra"
	"image-editor/internal/metrics"
)

const (
	defaultSessionTTL  = time.Hour
	defaultMaxSessions = 1000
)

// SessionOptions configures a Sessions registry. MaxSessions bounds the
// registry; when it is full the least recently active idle session makes room.
type SessionOptions struct {
	TTL         time.Duration
	MaxSessions int
	Logger      *infra.Logger
	Metrics     *metrics.Metrics
}

// Sessions keeps one Controller per browser session in memory. Nothing is
// persisted; idle sessions are dropped by Evict.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*Controller
	editor   ImageEditor
	ttl      time.Duration
	max      int
	logger   *infra.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewSessions(editor ImageEditor, opts SessionOptions) *Sessions {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	maxSessions := opts.MaxSessions
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Sessions{
		sessions: make(map[string]*Controller),
		editor:   editor,
		ttl:      ttl,
		max:      maxSessions,
		logger:   logger,
		metrics:  opts.Metrics,
		now:      time.Now,
	}
}

// Get returns the controller for id, if the session exists.
func (s *Sessions) Get(id string) (*Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.sessions[id]
	return c, ok
}

// Resolve returns the session for id, creating a fresh one (with a new id)
// when id is unknown. created reports whether a new session was made.
func (s *Sessions) Resolve(id string) (sessionID string, c *Controller, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.sessions[id]; ok && id != "" {
		c.touch()
		return id, c, false
	}
	if len(s.sessions) >= s.max {
		s.evictOldestLocked()
	}
	sessionID = uuid.NewString()
	sessionLogger := s.logger.With().Str("session_id", sessionID).Logger()
	c = NewController(s.editor, &sessionLogger)
	c.now = s.now
	c.touch()
	s.sessions[sessionID] = c
	s.metrics.SetActiveSessions(len(s.sessions))
	s.logger.Debug().Str("session_id", sessionID).Msg("editor: session created")
	return sessionID, c, true
}

// evictOldestLocked drops the least recently active session without a submit
// in flight. When every session is busy the registry briefly exceeds its cap.
func (s *Sessions) evictOldestLocked() {
	var (
		oldestID string
		oldestAt time.Time
	)
	for id, c := range s.sessions {
		if c.Busy() {
			continue
		}
		if at := c.LastActive(); oldestID == "" || at.Before(oldestAt) {
			oldestID, oldestAt = id, at
		}
	}
	if oldestID == "" {
		s.logger.Warn().Int("sessions", len(s.sessions)).Msg("editor: session cap reached with every session busy")
		return
	}
	delete(s.sessions, oldestID)
	s.logger.Debug().Str("session_id", oldestID).Msg("editor: evicted oldest session at capacity")
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Evict drops sessions idle for longer than the TTL. Sessions with a submit
// in flight are kept.
func (s *Sessions) Evict() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	evicted := 0
	for id, c := range s.sessions {
		if c.Busy() || c.LastActive().After(cutoff) {
			continue
		}
		delete(s.sessions, id)
		evicted++
	}
	if evicted > 0 {
		s.metrics.SetActiveSessions(len(s.sessions))
		s.logger.Debug().Int("evicted", evicted).Int("remaining", len(s.sessions)).Msg("editor: evicted idle sessions")
	}
	return evicted
}

// Run evicts idle sessions every interval until ctx is done.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Evict()
		}
	}
}
