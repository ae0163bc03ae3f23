package spin

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"wheelofnames/internal/geometry"
)

var (
	ErrEmptyWheel = errors.New("no segments to spin")
	ErrSpinning   = errors.New("spin already in progress")
)

// State is the engine's position in a spin.
type State int

const (
	Idle State = iota
	Spinning
	Settling
	Resolved
)

func (s State) String() string {
	switch s {
	case Spinning:
		return "spinning"
	case Settling:
		return "settling"
	case Resolved:
		return "resolved"
	default:
		return "idle"
	}
}

// Random supplies uniform values in [0,1). *rand.Rand satisfies it.
type Random interface {
	Float64() float64
}

type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }

// Options tunes a spin. The zero value is not usable; start from DefaultOptions.
type Options struct {
	MinDuration time.Duration
	MaxDuration time.Duration
	MinTurns    float64
	MaxTurns    float64
	Settle      time.Duration
}

// DefaultOptions spins for 6-8s, 5-10 full turns, and settles for 500ms.
func DefaultOptions() Options {
	return Options{
		MinDuration: 6 * time.Second,
		MaxDuration: 8 * time.Second,
		MinTurns:    5,
		MaxTurns:    10,
		Settle:      500 * time.Millisecond,
	}
}

// Plan describes a spin that has just started.
type Plan struct {
	Segments      int           `json:"segments"`
	StartRotation float64       `json:"start_rotation"`
	FinalRotation float64       `json:"final_rotation"`
	Duration      time.Duration `json:"duration"`
	StartedAt     time.Time     `json:"started_at"`
}

// Result is emitted exactly once per spin.
type Result struct {
	WinningIndex  int     `json:"winning_index"`
	FinalRotation float64 `json:"final_rotation"`
}

// Frame is the engine's output for one tick.
type Frame struct {
	State    State   `json:"-"`
	Rotation float64 `json:"rotation"`
	Progress float64 `json:"progress"`
	Result   *Result `json:"result,omitempty"`
}

// Engine animates one wheel. It holds no timers: callers drive it with
// Advance and their own clock. It is not safe for concurrent use.
type Engine struct {
	opts Options
	rnd  Random

	state       State
	plan        Plan
	rotation    float64
	settleUntil time.Time
}

// NewEngine builds an idle engine. A nil rnd uses math/rand/v2.
func NewEngine(opts Options, rnd Random) *Engine {
	if rnd == nil {
		rnd = globalRandom{}
	}
	if opts.MaxDuration < opts.MinDuration {
		opts.MaxDuration = opts.MinDuration
	}
	if opts.MaxTurns < opts.MinTurns {
		opts.MaxTurns = opts.MinTurns
	}
	return &Engine{opts: opts, rnd: rnd}
}

// State reports where the engine is.
func (e *Engine) State() State { return e.state }

// Active reports whether a spin is running or settling.
func (e *Engine) Active() bool { return e.state == Spinning || e.state == Settling }

// Rotation is the last rotation the engine computed.
func (e *Engine) Rotation() float64 { return e.rotation }

// Spin starts a spin over n equal segments from current degrees. Calls made
// while a spin is active are rejected without touching state.
func (e *Engine) Spin(n int, current float64, now time.Time) (Plan, error) {
	if e.Active() {
		return Plan{}, ErrSpinning
	}
	if n <= 0 {
		return Plan{}, ErrEmptyWheel
	}

	spread := e.opts.MaxDuration - e.opts.MinDuration
	duration := e.opts.MinDuration + time.Duration(e.rnd.Float64()*float64(spread))
	turns := e.opts.MinTurns + e.rnd.Float64()*(e.opts.MaxTurns-e.opts.MinTurns)
	final := current + 360*turns + e.rnd.Float64()*360

	e.plan = Plan{
		Segments:      n,
		StartRotation: current,
		FinalRotation: final,
		Duration:      duration,
		StartedAt:     now,
	}
	e.rotation = current
	e.settleUntil = time.Time{}
	e.state = Spinning
	return e.plan, nil
}

// Advance moves the animation to now. The frame that leaves Settling carries
// the Result; every other frame has none.
func (e *Engine) Advance(now time.Time) Frame {
	switch e.state {
	case Spinning:
		t := 1.0
		if e.plan.Duration > 0 {
			t = float64(now.Sub(e.plan.StartedAt)) / float64(e.plan.Duration)
		}
		t = math.Max(0, math.Min(t, 1))
		e.rotation = e.plan.StartRotation + (e.plan.FinalRotation-e.plan.StartRotation)*EaseOut(t)
		if t >= 1 {
			e.state = Settling
			e.settleUntil = now.Add(e.opts.Settle)
		}
		return Frame{State: e.state, Rotation: e.rotation, Progress: t}
	case Settling:
		if now.Before(e.settleUntil) {
			return Frame{State: Settling, Rotation: e.rotation, Progress: 1}
		}
		e.state = Resolved
		return Frame{
			State:    Resolved,
			Rotation: e.rotation,
			Progress: 1,
			Result: &Result{
				WinningIndex:  WinningIndex(e.rotation, e.plan.Segments),
				FinalRotation: e.rotation,
			},
		}
	case Resolved:
		return Frame{State: Resolved, Rotation: e.rotation, Progress: 1}
	default:
		return Frame{State: Idle, Rotation: e.rotation}
	}
}

// Reset abandons any spin in flight without emitting a result. The wheel
// keeps its current rotation.
func (e *Engine) Reset() {
	e.state = Idle
	e.plan = Plan{}
	e.settleUntil = time.Time{}
}

// EaseOut blends quartic and quadratic ease-out curves.
func EaseOut(t float64) float64 {
	u := 1 - t
	return 1 - (0.7*u*u*u*u + 0.3*u*u)
}

// WinningIndex is the segment under the fixed pointer at rotation r. The
// pointer sits at wheel angle 360 - (r mod 360), resolved with the same
// sector formula that draws the wedges.
func WinningIndex(r float64, n int) int {
	return geometry.SectorAt(PointerAngle(r), n)
}

// PointerAngle is the wheel-local angle under the pointer, in [0,360).
func PointerAngle(r float64) float64 {
	m := math.Mod(r, 360)
	if m < 0 {
		m += 360
	}
	a := 360 - m
	if a >= 360 {
		a -= 360
	}
	return a
}
