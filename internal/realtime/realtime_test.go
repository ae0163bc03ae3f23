package realtime

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_PublishDeliversToSubscribers(t *testing.T) {
	b := NewBroadcaster()
	ch1 := b.Subscribe()
	ch2 := b.Subscribe()
	defer b.Unsubscribe(ch1)
	defer b.Unsubscribe(ch2)

	b.Publish("winner", map[string]int{"index": 1})
	for _, ch := range []chan Event{ch1, ch2} {
		got := <-ch
		assert.Equal(t, "winner", got.Name)
		assert.Equal(t, map[string]int{"index": 1}, got.Data)
	}
}

func TestBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()
	b.Unsubscribe(ch)
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.Subscribers())

	// unsubscribing twice is harmless
	b.Unsubscribe(ch)
}

func TestBroadcaster_DropsWhenSubscriberLags(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)
	for i := 0; i < 100; i++ {
		b.Publish("frame", i)
	}
	assert.Equal(t, 32, len(ch))
}

func TestBroadcaster_Close(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()
	b.Close()
	_, open := <-ch
	assert.False(t, open)

	late := b.Subscribe()
	_, open = <-late
	assert.False(t, open, "subscribing after close yields a closed channel")
	b.Publish("state", nil)
	b.Close()
}

func TestLoops_RunUntilStopped(t *testing.T) {
	l := NewLoops()
	var ticks atomic.Int32
	started := l.Run("c1", time.Millisecond, func(time.Time) bool {
		return ticks.Add(1) >= 3
	})
	require.True(t, started)

	require.Eventually(t, func() bool { return !l.Running("c1") }, time.Second, time.Millisecond)
	assert.Equal(t, int32(3), ticks.Load())
}

func TestLoops_OneLoopPerKey(t *testing.T) {
	l := NewLoops()
	require.True(t, l.Run("c1", time.Hour, func(time.Time) bool { return false }))
	assert.False(t, l.Run("c1", time.Hour, func(time.Time) bool { return false }), "second run joins the first loop")
	assert.True(t, l.Running("c1"))

	l.Stop("c1")
	require.Eventually(t, func() bool { return !l.Running("c1") }, time.Second, time.Millisecond)
	l.Stop("missing")
}

func TestLoops_StopAllWaits(t *testing.T) {
	l := NewLoops()
	var done atomic.Int32
	for _, key := range []string{"a", "b"} {
		l.Run(key, time.Hour, func(time.Time) bool { return false })
	}
	l.Run("c", time.Millisecond, func(time.Time) bool {
		done.Add(1)
		return false
	})
	l.StopAll()
	assert.False(t, l.Running("a"))
	assert.False(t, l.Running("b"))
	assert.False(t, l.Running("c"))
	assert.GreaterOrEqual(t, done.Load(), int32(1))
}

func TestLoops_RearmKeepsStoppingLoopAlive(t *testing.T) {
	l := NewLoops()
	var first, second atomic.Int32
	release := make(chan struct{})
	require.True(t, l.Run("c1", time.Millisecond, func(time.Time) bool {
		first.Add(1)
		<-release
		return true
	}))
	require.Eventually(t, func() bool { return first.Load() == 1 }, time.Second, time.Millisecond)

	// the running tick is about to ask for a stop; a new request arrives first
	assert.False(t, l.Run("c1", time.Millisecond, func(time.Time) bool {
		return second.Add(1) >= 2
	}))
	close(release)

	require.Eventually(t, func() bool { return !l.Running("c1") }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), first.Load())
	assert.Equal(t, int32(2), second.Load())
}

func TestLoops_RunAfterStopStartsFresh(t *testing.T) {
	l := NewLoops()
	require.True(t, l.Run("c1", time.Hour, func(time.Time) bool { return false }))
	l.Stop("c1")

	var ticks atomic.Int32
	assert.True(t, l.Run("c1", time.Millisecond, func(time.Time) bool {
		return ticks.Add(1) >= 2
	}))
	require.Eventually(t, func() bool { return ticks.Load() == 2 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return !l.Running("c1") }, time.Second, time.Millisecond)
	l.StopAll()
}
