package analytics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generation(a *Animator) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gen
}

type frameRecorder struct {
	mu     sync.Mutex
	frames []Metrics
}

func (r *frameRecorder) display(m Metrics) {
	r.mu.Lock()
	r.frames = append(r.frames, m)
	r.mu.Unlock()
}

func (r *frameRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *frameRecorder) last() Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames[len(r.frames)-1]
}

func TestFramesEndExactlyAtTarget(t *testing.T) {
	cases := []struct {
		from, to Metrics
	}{
		{Metrics{}, Metrics{TotalPatients: 120, ActiveCarePlans: 45, HighRiskCount: 12, EngagementRate: 67}},
		{Metrics{TotalPatients: 7, EngagementRate: 99}, Metrics{TotalPatients: 3, EngagementRate: 1}},
		{Metrics{HighRiskCount: 1}, Metrics{HighRiskCount: 2}},
		{Metrics{TotalPatients: 1000003}, Metrics{TotalPatients: 17}},
	}
	for _, tc := range cases {
		for _, n := range []int{1, 3, 7, 18, 31} {
			frames := Frames(tc.from, tc.to, n)
			require.Len(t, frames, n)
			assert.Equal(t, tc.to, frames[n-1], "n=%d from=%+v", n, tc.from)
		}
	}
}

func TestFramesInterpolateAndRound(t *testing.T) {
	frames := Frames(Metrics{}, Metrics{TotalPatients: 120}, 18)
	assert.Equal(t, 7, frames[0].TotalPatients) // 6.67
	assert.Equal(t, 60, frames[8].TotalPatients)
	for i := 1; i < len(frames); i++ {
		assert.GreaterOrEqual(t, frames[i].TotalPatients, frames[i-1].TotalPatients)
	}
}

func TestFramesClampsFrameCount(t *testing.T) {
	target := Metrics{ActiveCarePlans: 9}
	assert.Equal(t, []Metrics{target}, Frames(Metrics{}, target, 0))
}

func TestAnimatorReachesTarget(t *testing.T) {
	rec := &frameRecorder{}
	a := NewAnimator(rec.display, WithFrameInterval(time.Millisecond))
	target := Metrics{TotalPatients: 120, ActiveCarePlans: 45, HighRiskCount: 12, EngagementRate: 67}

	a.Animate(target)

	require.Eventually(t, func() bool { return !a.Animating() }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, target, a.Current())
	assert.Equal(t, DefaultAnimationFrames, rec.count())
	assert.Equal(t, target, rec.last())
}

func TestAnimatorRestartContinuesFromDisplayedFrame(t *testing.T) {
	rec := &frameRecorder{}
	a := NewAnimator(rec.display, WithTiming(450*time.Millisecond, 18), WithFrameInterval(time.Hour))

	a.Animate(Metrics{TotalPatients: 180})
	first := generation(a)
	for i := 0; i < 9; i++ {
		a.tick(first)
	}
	require.Equal(t, Metrics{TotalPatients: 90}, a.Current())

	a.Animate(Metrics{})
	second := generation(a)
	require.NotEqual(t, first, second)

	// The replaced run can no longer touch the display.
	a.tick(first)
	assert.Equal(t, Metrics{TotalPatients: 90}, a.Current())

	a.tick(second)
	assert.Equal(t, Metrics{TotalPatients: 85}, a.Current())

	for i := 0; i < 17; i++ {
		a.tick(second)
	}
	assert.Equal(t, Metrics{}, a.Current())
	assert.False(t, a.Animating())
}

func TestAnimatorRapidRestartsSettleOnLastTarget(t *testing.T) {
	rec := &frameRecorder{}
	a := NewAnimator(rec.display, WithFrameInterval(time.Millisecond))

	for i := 1; i <= 40; i++ {
		a.Animate(Metrics{TotalPatients: i * 10})
		time.Sleep(200 * time.Microsecond)
	}

	require.Eventually(t, func() bool { return !a.Animating() }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, Metrics{TotalPatients: 400}, a.Current())

	settled := rec.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, rec.count(), "no frames after settling")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, f := range rec.frames {
		assert.LessOrEqual(t, f.TotalPatients, 400)
	}
}

func TestAnimatorSameTargetIsNoop(t *testing.T) {
	rec := &frameRecorder{}
	a := NewAnimator(rec.display, WithFrameInterval(time.Hour))

	a.Animate(Metrics{})
	assert.False(t, a.Animating())
	assert.Zero(t, rec.count())
}

func TestAnimatorStopHaltsFrames(t *testing.T) {
	rec := &frameRecorder{}
	a := NewAnimator(rec.display, WithFrameInterval(time.Hour))

	a.Animate(Metrics{TotalPatients: 18})
	gen := generation(a)
	a.Stop()
	a.tick(gen)
	a.Animate(Metrics{TotalPatients: 50})

	assert.Zero(t, rec.count())
	assert.False(t, a.Animating())
}
