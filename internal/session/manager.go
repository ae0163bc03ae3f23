package session

import (
	"context"
	"sync"
	"time"

	"wheelofnames/internal/realtime"
	"wheelofnames/internal/spin"
)

// DefaultFrameInterval is roughly 30 frames a second.
const DefaultFrameInterval = 33 * time.Millisecond

// Manager holds one session per class and runs their animation loops.
type Manager struct {
	mu       sync.Mutex
	repo     Repository
	cfg      Config
	interval time.Duration
	loops    *realtime.Loops
	sessions map[string]*Session
	now      func() time.Time
}

// NewManager creates a manager. A non-positive interval uses DefaultFrameInterval.
func NewManager(repo Repository, cfg Config, interval time.Duration) *Manager {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Manager{
		repo:     repo,
		cfg:      cfg.withDefaults(),
		interval: interval,
		loops:    realtime.NewLoops(),
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Get returns the session for classID, creating and initialising it on
// first use. A session that fails to initialise is not kept. Initialisation
// runs without the manager lock, so a slow class does not hold up others.
func (m *Manager) Get(ctx context.Context, classID string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[classID]
	m.mu.Unlock()
	if ok {
		return s, nil
	}

	fresh := New(classID, m.repo, m.cfg)
	if err := fresh.Initialize(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if s, ok := m.sessions[classID]; ok {
		m.mu.Unlock()
		fresh.Close()
		return s, nil
	}
	m.sessions[classID] = fresh
	m.cfg.Metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()
	return fresh, nil
}

// Spin starts the class's wheel and drives it until the winner resolves.
func (m *Manager) Spin(ctx context.Context, classID string) (spin.Plan, error) {
	s, err := m.Get(ctx, classID)
	if err != nil {
		return spin.Plan{}, err
	}
	plan, err := s.Spin(m.now())
	if err != nil {
		return spin.Plan{}, err
	}
	m.loops.Run(classID, m.interval, func(now time.Time) bool {
		tickCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, done := s.Tick(tickCtx, now)
		return done
	})
	return plan, nil
}

// Close tears down one class's session and its loop.
func (m *Manager) Close(classID string) {
	m.mu.Lock()
	s, ok := m.sessions[classID]
	delete(m.sessions, classID)
	m.cfg.Metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()
	m.loops.Stop(classID)
	if ok {
		s.Close()
	}
}

// CloseAll stops every loop and session. Used on shutdown.
func (m *Manager) CloseAll() {
	m.loops.StopAll()
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.cfg.Metrics.ActiveSessions.Set(0)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
