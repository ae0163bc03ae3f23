package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"wheelofnames/internal/activity"
	"wheelofnames/internal/apperr"
	"wheelofnames/internal/geometry"
	"wheelofnames/internal/metrics"
	"wheelofnames/internal/model"
	"wheelofnames/internal/queue"
	"wheelofnames/internal/realtime"
	"wheelofnames/internal/roster"
	"wheelofnames/internal/spin"
)

// Repository is the row store a session reads and writes through.
type Repository interface {
	activity.Repository
	roster.Persister
}

// Config wires a session's collaborators. Zero values fall back to defaults.
type Config struct {
	Spin    spin.Options
	Random  spin.Random
	Layout  geometry.Layout
	Events  queue.Queue
	Metrics *metrics.Collectors
}

func (c Config) withDefaults() Config {
	if c.Spin == (spin.Options{}) {
		c.Spin = spin.DefaultOptions()
	}
	if c.Layout == (geometry.Layout{}) {
		c.Layout = geometry.DefaultLayout
	}
	if c.Metrics == nil {
		c.Metrics = metrics.Noop()
	}
	return c
}

// Session is one class's wheel page: roster lifecycle, activities and the
// spinning wheel. Calls are serialised, as the original UI event loop did.
type Session struct {
	mu sync.Mutex

	classID string
	cfg     Config
	store   *roster.Store
	ctrl    *activity.Controller
	engine  *spin.Engine
	hub     *realtime.Broadcaster

	// students on the wheel when the current spin started
	pool      []model.Student
	lastState spin.State
	winner    *Winner
}

// Winner is the announcement for a resolved spin.
type Winner struct {
	Student       model.Student `json:"student"`
	Index         int           `json:"index"`
	FinalRotation float64       `json:"final_rotation"`
	InfiniteMode  bool          `json:"infinite_mode"`
	Picked        bool          `json:"picked"`
	Error         string        `json:"error,omitempty"`
}

// New creates a session for classID. Call Initialize before use.
func New(classID string, repo Repository, cfg Config) *Session {
	cfg = cfg.withDefaults()
	store := roster.NewStore(repo)
	return &Session{
		classID: classID,
		cfg:     cfg,
		store:   store,
		ctrl:    activity.NewController(repo, store),
		engine:  spin.NewEngine(cfg.Spin, cfg.Random),
		hub:     realtime.NewBroadcaster(),
	}
}

// ClassID is the class this session serves.
func (s *Session) ClassID() string { return s.classID }

// Broadcaster streams this session's events.
func (s *Session) Broadcaster() *realtime.Broadcaster { return s.hub }

// Initialize loads the roster and activities into the Default scope.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ctrl.Initialize(ctx, s.classID); err != nil {
		s.fail("initialize", err)
		return err
	}
	return nil
}

// Reload refetches roster and activities and re-enters the selected
// activity. It is the manual retry after a load failure; a failed reload
// keeps the wheel as it was.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	if s.engine.Active() {
		s.mu.Unlock()
		return busy("reload")
	}
	err := s.ctrl.Reload(ctx, s.classID)
	if err != nil {
		s.fail("reload", err)
		s.mu.Unlock()
		return err
	}
	view := s.viewLocked()
	s.mu.Unlock()
	s.hub.Publish("state", view)
	return nil
}

// Spin starts the wheel over the currently available students.
func (s *Session) Spin(now time.Time) (spin.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool := s.store.Available()
	plan, err := s.engine.Spin(len(pool), s.engine.Rotation(), now)
	if err != nil {
		reason := "busy"
		if errors.Is(err, spin.ErrEmptyWheel) {
			reason = "empty"
		}
		s.cfg.Metrics.SpinsRejected.WithLabelValues(reason).Inc()
		return spin.Plan{}, err
	}
	s.pool = pool
	s.lastState = spin.Spinning
	s.winner = nil
	s.cfg.Metrics.Spins.Inc()
	s.cfg.Metrics.SpinDuration.Observe(plan.Duration.Seconds())
	s.hub.Publish("spin", plan)
	return plan, nil
}

// Tick advances the animation to now and reports whether the spin is over.
// The tick that resolves the spin picks the winner from the pool captured
// when the spin started.
func (s *Session) Tick(ctx context.Context, now time.Time) (spin.Frame, bool) {
	s.mu.Lock()
	if !s.engine.Active() {
		frame := s.engine.Advance(now)
		s.mu.Unlock()
		return frame, true
	}

	frame := s.engine.Advance(now)
	if frame.State == spin.Spinning || s.lastState == spin.Spinning {
		s.hub.Publish("frame", frame)
	}
	s.lastState = frame.State
	if frame.Result == nil {
		s.mu.Unlock()
		return frame, false
	}

	w := s.resolveLocked(ctx, *frame.Result)
	view := s.viewLocked()
	infinite := s.store.InfiniteMode()
	activityID := s.store.ActivityID()
	s.mu.Unlock()

	if w.Picked {
		mode := "removing"
		if infinite {
			mode = "infinite"
		}
		s.cfg.Metrics.Picks.WithLabelValues(mode).Inc()
		s.hub.Publish("winner", w)
		s.record(ctx, "pick", activityID, w.Student.ID)
	} else {
		s.hub.Publish("pick_failed", w)
	}
	s.hub.Publish("state", view)
	return frame, true
}

func (s *Session) resolveLocked(ctx context.Context, res spin.Result) Winner {
	pool := s.pool
	s.pool = nil
	w := Winner{
		Index:         res.WinningIndex,
		FinalRotation: res.FinalRotation,
		InfiniteMode:  s.store.InfiniteMode(),
	}
	if res.WinningIndex < 0 || res.WinningIndex >= len(pool) {
		w.Error = "winning index outside the wheel"
		s.winner = &w
		return w
	}
	w.Student = pool[res.WinningIndex]
	if _, err := s.store.Pick(ctx, w.Student.ID); err != nil {
		w.Error = err.Error()
		s.fail("pick", err)
	} else {
		w.Picked = true
	}
	s.winner = &w
	return w
}

// Return puts a selected student back on the wheel.
func (s *Session) Return(ctx context.Context, studentID string) error {
	return s.apply(ctx, "return", func() ([]string, error) {
		return []string{studentID}, s.store.Return(ctx, studentID)
	})
}

// ReturnAll puts every selected student back on the wheel.
func (s *Session) ReturnAll(ctx context.Context) error {
	return s.apply(ctx, "return_all", func() ([]string, error) {
		return s.store.ReturnAll(ctx)
	})
}

// ToggleAttendance marks a student absent or present and reports the new
// absence.
func (s *Session) ToggleAttendance(ctx context.Context, studentID string) (bool, error) {
	var absent bool
	err := s.applyNamed(ctx, func() (string, []string, error) {
		var err error
		absent, err = s.store.ToggleAttendance(ctx, studentID)
		event := "present"
		if absent {
			event = "absent"
		}
		return event, []string{studentID}, err
	})
	return absent, err
}

// SetInfiniteMode toggles repeat-without-removal for the next pick.
func (s *Session) SetInfiniteMode(enabled bool) {
	s.mu.Lock()
	s.store.SetInfiniteMode(enabled)
	view := s.viewLocked()
	s.mu.Unlock()
	s.hub.Publish("state", view)
}

// CreateActivity adds a named activity.
func (s *Session) CreateActivity(ctx context.Context, name string) (model.Activity, error) {
	var a model.Activity
	err := s.applyNamed(ctx, func() (string, []string, error) {
		var err error
		a, err = s.ctrl.Create(ctx, name)
		return "", nil, err
	})
	return a, err
}

// RenameActivity renames an activity.
func (s *Session) RenameActivity(ctx context.Context, id, name string) (model.Activity, error) {
	var a model.Activity
	err := s.applyNamed(ctx, func() (string, []string, error) {
		var err error
		a, err = s.ctrl.Rename(ctx, id, name)
		return "", nil, err
	})
	return a, err
}

// DeleteActivity removes an activity and its lifecycle rows. Not allowed
// while the wheel spins.
func (s *Session) DeleteActivity(ctx context.Context, id string) error {
	return s.applyNamed(ctx, func() (string, []string, error) {
		if s.engine.Active() {
			return "", nil, busy("delete activity")
		}
		return "", nil, s.ctrl.Delete(ctx, id)
	})
}

// SelectActivity switches scope; "" selects Default. Not allowed while the
// wheel spins.
func (s *Session) SelectActivity(ctx context.Context, id string) error {
	return s.applyNamed(ctx, func() (string, []string, error) {
		if s.engine.Active() {
			return "", nil, busy("select activity")
		}
		return "", nil, s.ctrl.Select(ctx, id)
	})
}

// Activities lists the class's activities, newest first.
func (s *Session) Activities() []model.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Activities()
}

// View snapshots everything the presentation layer renders.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Close abandons any spin in flight and ends every event stream.
func (s *Session) Close() {
	s.mu.Lock()
	s.engine.Reset()
	s.pool = nil
	s.mu.Unlock()
	s.hub.Close()
}

func (s *Session) apply(ctx context.Context, event string, fn func() ([]string, error)) error {
	return s.applyNamed(ctx, func() (string, []string, error) {
		ids, err := fn()
		return event, ids, err
	})
}

// applyNamed runs fn under the session lock, then publishes the new state
// and records the transition outside it.
func (s *Session) applyNamed(ctx context.Context, fn func() (string, []string, error)) error {
	s.mu.Lock()
	event, ids, err := fn()
	if err != nil {
		s.fail(opName(event), err)
		s.mu.Unlock()
		return err
	}
	view := s.viewLocked()
	activityID := s.store.ActivityID()
	s.mu.Unlock()

	s.hub.Publish("state", view)
	if event != "" {
		s.cfg.Metrics.Transitions.WithLabelValues(event).Inc()
		for _, id := range ids {
			s.record(ctx, event, activityID, id)
		}
	}
	return nil
}

func (s *Session) fail(op string, err error) {
	kind := "other"
	switch {
	case apperr.IsInvalid(err):
		kind = "invalid"
	case apperr.IsLoad(err):
		kind = "load"
	case apperr.IsPersistence(err):
		kind = "persistence"
	case apperr.IsNotFound(err):
		kind = "not_found"
	}
	s.cfg.Metrics.Failures.WithLabelValues(op, kind).Inc()
	if kind != "invalid" {
		log.Printf("wheel %s: %s failed: %v", s.classID, op, err)
	}
}

// record hands a transition to the history queue. Failures are logged only:
// history is best effort and never blocks the wheel.
func (s *Session) record(ctx context.Context, event, activityID, studentID string) {
	if s.cfg.Events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	msg := queue.Message{
		ID:         uuid.NewString(),
		Type:       event,
		ClassID:    s.classID,
		ActivityID: activityID,
		StudentID:  studentID,
		At:         time.Now().UTC(),
	}
	if err := s.cfg.Events.Publish(ctx, msg); err != nil {
		log.Printf("wheel %s: queue %s event: %v", s.classID, event, err)
	}
}

// busy rejects scope changes mid-spin. It is an invalid operation that also
// matches spin.ErrSpinning.
func busy(op string) error {
	return &apperr.Error{Kind: apperr.ErrInvalidOperation, Op: op, Err: spin.ErrSpinning}
}

func opName(event string) string {
	if event == "" {
		return "activity"
	}
	return event
}
