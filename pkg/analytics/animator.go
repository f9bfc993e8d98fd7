package analytics

import (
	"sync"
	"time"

	"github.com/careconnect-ai/insights/pkg/observability/metrics"
)

const (
	DefaultAnimationDuration = 450 * time.Millisecond
	DefaultAnimationFrames   = 18
	minFrameInterval         = 16 * time.Millisecond
)

// Frames interpolates every field linearly from `from` to `to` in n steps.
// The last frame is always exactly `to`.
func Frames(from, to Metrics, n int) []Metrics {
	if n < 1 {
		n = 1
	}
	out := make([]Metrics, n)
	for i := 1; i <= n; i++ {
		out[i-1] = frameAt(from, to, float64(i)/float64(n))
	}
	out[n-1] = to
	return out
}

func frameAt(from, to Metrics, t float64) Metrics {
	lerp := func(a, b int) int {
		return int(roundHalfUp(float64(a) + float64(b-a)*t))
	}
	return Metrics{
		TotalPatients:   lerp(from.TotalPatients, to.TotalPatients),
		ActiveCarePlans: lerp(from.ActiveCarePlans, to.ActiveCarePlans),
		HighRiskCount:   lerp(from.HighRiskCount, to.HighRiskCount),
		EngagementRate:  lerp(from.EngagementRate, to.EngagementRate),
	}
}

type AnimatorOption func(*Animator)

func WithTiming(duration time.Duration, frames int) AnimatorOption {
	return func(a *Animator) {
		if duration > 0 {
			a.duration = duration
		}
		if frames > 0 {
			a.frames = frames
		}
	}
}

// WithFrameInterval overrides the derived per-frame delay.
func WithFrameInterval(d time.Duration) AnimatorOption {
	return func(a *Animator) { a.interval = d }
}

// Animator smooths metric updates into a short run of display frames.
//
// It owns a single frame timer. A new target stops that timer and
// invalidates the running generation before scheduling the next one, and the
// new run starts from the last displayed frame.
type Animator struct {
	mu       sync.Mutex
	display  func(Metrics)
	duration time.Duration
	frames   int
	interval time.Duration

	current Metrics
	start   Metrics
	target  Metrics
	frame   int
	gen     uint64
	timer   *time.Timer
	stopped bool
}

// NewAnimator calls display for every frame while holding the animator's
// lock, so frames arrive in order. display must not call back into the
// Animator.
func NewAnimator(display func(Metrics), opts ...AnimatorOption) *Animator {
	a := &Animator{
		display:  display,
		duration: DefaultAnimationDuration,
		frames:   DefaultAnimationFrames,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.interval <= 0 {
		a.interval = a.duration / time.Duration(a.frames)
		if a.interval < minFrameInterval {
			a.interval = minFrameInterval
		}
	}
	return a
}

// Animate retargets the display. It returns immediately; frames are
// delivered from the frame timer.
func (a *Animator) Animate(target Metrics) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}
	if a.timer != nil {
		metrics.ObserveAnimationCancelled()
	}
	a.stopTimerLocked()
	a.gen++
	a.target = target
	if a.current == target {
		return
	}

	a.start = a.current
	a.frame = 0
	metrics.ObserveAnimationStarted()
	a.scheduleLocked(a.gen)
}

func (a *Animator) Current() Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *Animator) Target() Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.target
}

// Animating reports whether a frame timer is pending.
func (a *Animator) Animating() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer != nil
}

// Stop cancels any running animation; no display call happens afterwards.
func (a *Animator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	a.gen++
	a.stopTimerLocked()
}

func (a *Animator) scheduleLocked(gen uint64) {
	a.timer = time.AfterFunc(a.interval, func() { a.tick(gen) })
}

func (a *Animator) stopTimerLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *Animator) tick(gen uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// A timer that already fired when it was replaced still runs; drop it.
	if gen != a.gen || a.stopped {
		return
	}
	a.stopTimerLocked()

	a.frame++
	if a.frame >= a.frames {
		a.current = a.target
	} else {
		a.current = frameAt(a.start, a.target, float64(a.frame)/float64(a.frames))
		a.scheduleLocked(gen)
	}

	if a.display != nil {
		a.display(a.current)
	}
}
