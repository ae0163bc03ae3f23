package realtime

import (
	"context"
	"sync"
	"time"
)

// TickFunc runs once per frame. Returning true stops the loop.
type TickFunc func(now time.Time) (stop bool)

type loop struct {
	cancel context.CancelFunc
	tick   TickFunc
	rearm  bool
}

// Loops runs at most one frame loop per key. Stop and StopAll release the
// ticker of a running loop.
type Loops struct {
	mu    sync.Mutex
	loops map[string]*loop
	wg    sync.WaitGroup
	now   func() time.Time
}

// NewLoops creates an empty registry.
func NewLoops() *Loops {
	return &Loops{
		loops: make(map[string]*loop),
		now:   time.Now,
	}
}

// Run makes sure a loop for key is ticking every interval. If one is already
// running it takes over tick and keeps going even if the previous tick asked
// to stop; Run reports false in that case.
func (l *Loops) Run(key string, interval time.Duration, tick TickFunc) bool {
	l.mu.Lock()
	if lp, ok := l.loops[key]; ok {
		lp.tick = tick
		lp.rearm = true
		l.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	lp := &loop{cancel: cancel, tick: tick}
	l.loops[key] = lp
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		defer cancel()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			l.mu.Lock()
			fn := lp.tick
			lp.rearm = false
			l.mu.Unlock()

			if fn(l.now()) && l.finish(key, lp) {
				return
			}
			select {
			case <-ctx.Done():
				l.mu.Lock()
				l.drop(key, lp)
				l.mu.Unlock()
				return
			case <-ticker.C:
			}
		}
	}()
	return true
}

// finish removes the loop unless Run re-armed it since the last tick.
func (l *Loops) finish(key string, lp *loop) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lp.rearm {
		return false
	}
	l.drop(key, lp)
	return true
}

// drop forgets lp unless a newer loop already took its key. Callers hold mu.
func (l *Loops) drop(key string, lp *loop) {
	if l.loops[key] == lp {
		delete(l.loops, key)
	}
}

// Running reports whether a loop for key is active.
func (l *Loops) Running(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.loops[key]
	return ok
}

// Stop cancels the loop for key, if any. A Run after Stop starts a new loop.
func (l *Loops) Stop(key string) {
	l.mu.Lock()
	lp, ok := l.loops[key]
	delete(l.loops, key)
	l.mu.Unlock()
	if ok {
		lp.cancel()
	}
}

// StopAll cancels every loop and waits for them to exit.
func (l *Loops) StopAll() {
	l.mu.Lock()
	for _, lp := range l.loops {
		lp.cancel()
	}
	l.mu.Unlock()
	l.wg.Wait()
}
