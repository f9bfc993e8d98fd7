package analytics

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/careconnect-ai/insights/pkg/common/models"
	"github.com/careconnect-ai/insights/pkg/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu    sync.Mutex
	items []models.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, item models.Notification) {
	n.mu.Lock()
	n.items = append(n.items, item)
	n.mu.Unlock()
}

func (n *recordingNotifier) all() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Notification(nil), n.items...)
}

type recordingRenderer struct {
	mu       sync.Mutex
	versions []uint64
	last     Dataset
}

func (r *recordingRenderer) Render(version uint64, ds Dataset) {
	r.mu.Lock()
	r.versions = append(r.versions, version)
	r.last = ds
	r.mu.Unlock()
}

type fakeSubscription struct {
	released atomic.Int32
}

func (s *fakeSubscription) Unsubscribe() error {
	s.released.Add(1)
	return nil
}

type fakeSubscriber struct {
	mu       sync.Mutex
	calls    int
	channel  string
	handler  func(ctx context.Context, event models.Event)
	ctx      context.Context
	sub      *fakeSubscription
	failWith error
}

func (s *fakeSubscriber) Subscribe(ctx context.Context, channel string, handler func(ctx context.Context, event models.Event)) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failWith != nil {
		return nil, s.failWith
	}
	s.channel = channel
	s.handler = handler
	s.ctx = ctx
	s.sub = &fakeSubscription{}
	return s.sub, nil
}

func (s *fakeSubscriber) fire() {
	s.mu.Lock()
	handler, ctx := s.handler, s.ctx
	s.mu.Unlock()
	handler(ctx, models.NewEvent("insight", "test", nil))
}

func scenarioDataset(t *testing.T) Dataset {
	t.Helper()
	ds, err := DecodeAnalytics([]byte(scenarioPayload))
	require.NoError(t, err)
	return ds
}

func countingSource(ds Dataset) (Source, *atomic.Int32) {
	calls := &atomic.Int32{}
	return SourceFunc(func(ctx context.Context) (Dataset, error) {
		calls.Add(1)
		return ds, nil
	}), calls
}

func fastAnimator() *Animator {
	return NewAnimator(nil, WithFrameInterval(time.Millisecond))
}

func TestRefreshAppliesDataset(t *testing.T) {
	ds := scenarioDataset(t)
	source, _ := countingSource(ds)
	renderer := &recordingRenderer{}
	c := NewController(source, WithRenderer(renderer), WithAnimator(fastAnimator()))

	require.NoError(t, c.Refresh(context.Background()))

	view := c.View()
	assert.Equal(t, uint64(1), view.Version)
	assert.Equal(t, Metrics{TotalPatients: 120, ActiveCarePlans: 45, HighRiskCount: 12, EngagementRate: 67}, view.TargetMetrics)
	assert.False(t, view.Loading)
	assert.NotNil(t, view.UpdatedAt)

	renderer.mu.Lock()
	assert.Equal(t, []uint64{1}, renderer.versions)
	assert.Equal(t, []float64{80, 28, 12}, renderer.last.RiskDistribution.Values())
	_, bars := renderer.last.EngagementSeries()
	_, points := renderer.last.WeeklySeries()
	renderer.mu.Unlock()
	assert.Equal(t, []float64{30, 15}, bars)
	assert.Equal(t, []float64{10, 14}, points)

	require.Eventually(t, func() bool { return c.View().Metrics == view.TargetMetrics }, 2*time.Second, 5*time.Millisecond)
}

func TestRefreshFailureNotifiesAndKeepsData(t *testing.T) {
	ds := scenarioDataset(t)
	fail := atomic.Bool{}
	source := SourceFunc(func(ctx context.Context) (Dataset, error) {
		if fail.Load() {
			return Dataset{}, &remote.Error{StatusCode: 500, Message: "timeout"}
		}
		return ds, nil
	})
	notifier := &recordingNotifier{}
	c := NewController(source, WithNotifier(notifier), WithAnimator(fastAnimator()))

	require.NoError(t, c.Refresh(context.Background()))
	before := c.View()

	fail.Store(true)
	err := c.Refresh(context.Background())
	require.Error(t, err)

	after := c.View()
	assert.False(t, after.Loading)
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, before.TargetMetrics, after.TargetMetrics)
	assert.Equal(t, before.EngagementByType, after.EngagementByType)
	assert.Equal(t, "timeout", after.LastError)

	items := notifier.all()
	require.Len(t, items, 1)
	assert.Equal(t, "Analytics Error", items[0].Title)
	assert.Equal(t, "timeout", items[0].Message)
	assert.Equal(t, models.SeverityError, items[0].Severity)
}

func TestRefreshClearsLoadingOnBothPaths(t *testing.T) {
	for _, failing := range []bool{false, true} {
		release := make(chan struct{})
		entered := make(chan struct{})
		source := SourceFunc(func(ctx context.Context) (Dataset, error) {
			close(entered)
			<-release
			if failing {
				return Dataset{}, errors.New("boom")
			}
			return EmptyDataset(), nil
		})
		c := NewController(source, WithAnimator(fastAnimator()))

		done := make(chan error, 1)
		go func() { done <- c.Refresh(context.Background()) }()

		<-entered
		assert.True(t, c.Loading())
		close(release)
		err := <-done

		assert.Equal(t, failing, err != nil)
		assert.False(t, c.Loading())
		c.mu.Lock()
		assert.Zero(t, c.inFlight)
		c.mu.Unlock()
	}
}

func TestOverlappingRefreshesLastCompletionWins(t *testing.T) {
	slowRelease := make(chan struct{})
	var calls atomic.Int32
	source := SourceFunc(func(ctx context.Context) (Dataset, error) {
		n := calls.Add(1)
		ds := EmptyDataset()
		ds.Metrics.TotalPatients = int(n)
		if n == 1 {
			<-slowRelease
		}
		return ds, nil
	})
	renderer := &recordingRenderer{}
	c := NewController(source, WithRenderer(renderer), WithAnimator(fastAnimator()))

	slow := make(chan error, 1)
	go func() { slow <- c.Refresh(context.Background()) }()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, c.Refresh(context.Background()))
	assert.True(t, c.Loading(), "slow refresh still in flight")

	close(slowRelease)
	require.NoError(t, <-slow)

	view := c.View()
	assert.False(t, view.Loading)
	assert.Equal(t, uint64(2), view.Version)
	assert.Equal(t, 1, view.TargetMetrics.TotalPatients)
}

func TestStartSubscribesOnceAndPushRefreshes(t *testing.T) {
	source, calls := countingSource(EmptyDataset())
	sub := &fakeSubscriber{}
	c := NewController(source, WithSubscriber(sub), WithRefreshInterval(time.Hour), WithAnimator(fastAnimator()))

	require.NoError(t, c.Start(context.Background()))
	assert.ErrorIs(t, c.Start(context.Background()), ErrAlreadyStarted)

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	sub.mu.Lock()
	assert.Equal(t, 1, sub.calls)
	assert.Equal(t, DefaultPushChannel, sub.channel)
	sub.mu.Unlock()

	sub.fire()
	assert.Equal(t, int32(2), calls.Load())

	c.Stop()
	assert.Equal(t, int32(1), sub.sub.released.Load())
}

func TestTimerRefreshesUntilStopped(t *testing.T) {
	source, calls := countingSource(EmptyDataset())
	c := NewController(source, WithRefreshInterval(5*time.Millisecond), WithAnimator(fastAnimator()))

	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, time.Millisecond)

	c.Stop()
	settled := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, calls.Load())
}

func TestStopIsSafeWithoutStart(t *testing.T) {
	source, _ := countingSource(EmptyDataset())
	c := NewController(source)

	assert.NotPanics(t, func() {
		c.Stop()
		c.Stop()
	})
	assert.ErrorIs(t, c.Start(context.Background()), ErrStopped)
}

func TestSubscribeFailureKeepsPolling(t *testing.T) {
	source, calls := countingSource(EmptyDataset())
	sub := &fakeSubscriber{failWith: errors.New("channel unavailable")}
	c := NewController(source, WithSubscriber(sub), WithRefreshInterval(5*time.Millisecond), WithAnimator(fastAnimator()))
	defer c.Stop()

	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, time.Millisecond)
}

func TestRefreshAfterStopIsDropped(t *testing.T) {
	source, _ := countingSource(scenarioDataset(t))
	renderer := &recordingRenderer{}
	notifier := &recordingNotifier{}
	c := NewController(source, WithRenderer(renderer), WithNotifier(notifier))
	c.Stop()

	assert.ErrorIs(t, c.Refresh(context.Background()), ErrStopped)
	assert.Zero(t, c.View().Version)
	renderer.mu.Lock()
	assert.Empty(t, renderer.versions)
	renderer.mu.Unlock()
}

func TestRedrawPassesLatestVersion(t *testing.T) {
	source, _ := countingSource(EmptyDataset())
	renderer := &recordingRenderer{}
	c := NewController(source, WithRenderer(renderer), WithAnimator(fastAnimator()))

	c.Redraw()
	require.NoError(t, c.Refresh(context.Background()))
	c.Redraw()

	renderer.mu.Lock()
	defer renderer.mu.Unlock()
	assert.Equal(t, []uint64{0, 1, 1}, renderer.versions)
}

func TestRefreshAppliesPartiallyMalformedPayload(t *testing.T) {
	source := SourceFunc(func(ctx context.Context) (Dataset, error) {
		return DecodeAnalytics([]byte(`{"totalPatients":120,"engagementRate":"67","weeklyTrend":{"date":"W1"}}`))
	})
	notifier := &recordingNotifier{}
	c := NewController(source, WithNotifier(notifier), WithAnimator(fastAnimator()))

	require.NoError(t, c.Refresh(context.Background()))

	view := c.View()
	assert.Equal(t, uint64(1), view.Version)
	assert.Equal(t, 120, view.TargetMetrics.TotalPatients)
	assert.Zero(t, view.TargetMetrics.EngagementRate)
	assert.Empty(t, view.LastError)
	assert.Empty(t, notifier.all())
}

func TestStopRacingStartLeavesNothingRunning(t *testing.T) {
	for i := 0; i < 50; i++ {
		var afterStop atomic.Bool
		var late atomic.Int32
		source := SourceFunc(func(ctx context.Context) (Dataset, error) {
			if afterStop.Load() {
				late.Add(1)
			}
			return EmptyDataset(), nil
		})
		c := NewController(source, WithRefreshInterval(time.Millisecond), WithAnimator(fastAnimator()))

		started := make(chan struct{})
		go func() {
			defer close(started)
			_ = c.Start(context.Background())
		}()
		c.Stop()
		afterStop.Store(true)
		<-started

		time.Sleep(5 * time.Millisecond)
		require.Zero(t, late.Load(), "iteration %d: refresh ran after Stop returned", i)
	}
}
