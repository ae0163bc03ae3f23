package spin

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wheelofnames/internal/geometry"
)

// seq replays fixed random values, cycling when exhausted.
type seq struct {
	vals []float64
	i    int
}

func (s *seq) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

var t0 = time.Date(2024, 9, 2, 8, 30, 0, 0, time.UTC)

func TestEaseOut_Endpoints(t *testing.T) {
	assert.Equal(t, 0.0, EaseOut(0))
	assert.Equal(t, 1.0, EaseOut(1))
}

func TestEaseOut_NonDecreasing(t *testing.T) {
	prev := EaseOut(0)
	for i := 1; i <= 100; i++ {
		cur := EaseOut(float64(i) / 100)
		require.GreaterOrEqual(t, cur, prev, "easeOut decreased at step %d", i)
		prev = cur
	}
}

func TestWinningIndex_InRange(t *testing.T) {
	for n := 1; n <= 40; n++ {
		for r := -1080.0; r <= 4000; r += 7.3 {
			idx := WinningIndex(r, n)
			require.GreaterOrEqual(t, idx, 0, "r=%v n=%d", r, n)
			require.Less(t, idx, n, "r=%v n=%d", r, n)
		}
	}
}

func TestWinningIndex_MatchesDrawnSector(t *testing.T) {
	for n := 1; n <= 30; n++ {
		for r := 0.0; r < 1440; r += 3.7 {
			idx := WinningIndex(r, n)
			start, end := geometry.SectorBounds(idx, n)
			pointer := math.Mod(360-math.Mod(r, 360), 360)
			assert.True(t, pointer >= start-1e-9 && pointer < end+1e-9,
				"r=%v n=%d idx=%d pointer=%v sector=[%v,%v)", r, n, idx, pointer, start, end)
		}
	}
}

func TestWinningIndex_Examples(t *testing.T) {
	tests := []struct {
		r    float64
		n    int
		want int
	}{
		{r: 0, n: 3, want: 0},
		{r: 360, n: 3, want: 0},
		{r: 10, n: 3, want: 2},
		{r: 180, n: 3, want: 1},
		{r: 2880 + 200, n: 3, want: 1},
		{r: 90, n: 4, want: 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WinningIndex(tt.r, tt.n), "r=%v n=%d", tt.r, tt.n)
	}
}

func TestSpin_RejectsEmptyWheel(t *testing.T) {
	e := NewEngine(DefaultOptions(), &seq{vals: []float64{0.5}})
	_, err := e.Spin(0, 0, t0)
	assert.ErrorIs(t, err, ErrEmptyWheel)
	assert.Equal(t, Idle, e.State())
}

func TestSpin_Plan(t *testing.T) {
	e := NewEngine(DefaultOptions(), &seq{vals: []float64{0.5, 0.5, 0.5}})
	plan, err := e.Spin(3, 40, t0)
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, plan.Duration)
	assert.InDelta(t, 40+360*7.5+180, plan.FinalRotation, 1e-9)
	assert.Equal(t, Spinning, e.State())
}

func TestSpin_DurationAndTurnsInRange(t *testing.T) {
	for _, v := range []float64{0, 0.25, 0.999999} {
		e := NewEngine(DefaultOptions(), &seq{vals: []float64{v}})
		plan, err := e.Spin(5, 100, t0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, plan.Duration, 6*time.Second)
		assert.Less(t, plan.Duration, 8*time.Second)
		total := plan.FinalRotation - plan.StartRotation
		assert.GreaterOrEqual(t, total, 360*5.0)
		assert.Less(t, total, 360*10.0+360)
	}
}

func TestSpin_ReentrantCallIgnored(t *testing.T) {
	e := NewEngine(DefaultOptions(), &seq{vals: []float64{0.1, 0.2, 0.3, 0.9}})
	first, err := e.Spin(4, 0, t0)
	require.NoError(t, err)

	_, err = e.Spin(4, 0, t0.Add(time.Second))
	assert.ErrorIs(t, err, ErrSpinning)

	// plan unchanged and the random source untouched by the rejected call
	frame := e.Advance(t0.Add(first.Duration))
	assert.InDelta(t, first.FinalRotation, frame.Rotation, 1e-9)

	// still rejected while settling
	_, err = e.Spin(4, 0, t0.Add(first.Duration))
	assert.ErrorIs(t, err, ErrSpinning)
}

func TestAdvance_FullLifecycle(t *testing.T) {
	e := NewEngine(DefaultOptions(), &seq{vals: []float64{0.5, 0.5, 0.5}})
	plan, err := e.Spin(3, 0, t0)
	require.NoError(t, err)

	half := e.Advance(t0.Add(plan.Duration / 2))
	assert.Equal(t, Spinning, half.State)
	assert.InDelta(t, 0.5, half.Progress, 1e-9)
	assert.InDelta(t, plan.FinalRotation*EaseOut(0.5), half.Rotation, 1e-9)
	assert.Nil(t, half.Result)

	end := t0.Add(plan.Duration)
	done := e.Advance(end)
	assert.Equal(t, Settling, done.State)
	assert.Nil(t, done.Result)

	early := e.Advance(end.Add(499 * time.Millisecond))
	assert.Equal(t, Settling, early.State)
	assert.Nil(t, early.Result)

	resolved := e.Advance(end.Add(500 * time.Millisecond))
	require.NotNil(t, resolved.Result)
	assert.Equal(t, Resolved, resolved.State)
	assert.Equal(t, WinningIndex(resolved.Rotation, 3), resolved.Result.WinningIndex)
	assert.Equal(t, resolved.Rotation, resolved.Result.FinalRotation)

	again := e.Advance(end.Add(time.Second))
	assert.Nil(t, again.Result, "result is emitted once")

	_, err = e.Spin(3, e.Rotation(), end.Add(time.Second))
	assert.NoError(t, err, "a resolved wheel can spin again")
}

func TestAdvance_LateFrameClampsProgress(t *testing.T) {
	e := NewEngine(DefaultOptions(), &seq{vals: []float64{0}})
	plan, err := e.Spin(2, 0, t0)
	require.NoError(t, err)

	f := e.Advance(t0.Add(plan.Duration * 3))
	assert.Equal(t, 1.0, f.Progress)
	assert.InDelta(t, plan.FinalRotation, f.Rotation, 1e-9)
	assert.Equal(t, Settling, f.State)
}

func TestReset_DropsSpinWithoutResult(t *testing.T) {
	e := NewEngine(DefaultOptions(), &seq{vals: []float64{0.3}})
	plan, err := e.Spin(2, 0, t0)
	require.NoError(t, err)
	e.Advance(t0.Add(plan.Duration / 3))
	rot := e.Rotation()

	e.Reset()
	assert.Equal(t, Idle, e.State())
	assert.Equal(t, rot, e.Rotation())
	assert.Nil(t, e.Advance(t0.Add(time.Hour)).Result)
}
