package analytics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/careconnect-ai/insights/pkg/common/logger"
	"github.com/careconnect-ai/insights/pkg/common/models"
	"github.com/careconnect-ai/insights/pkg/observability/metrics"
	"github.com/careconnect-ai/insights/pkg/remote"
)

const (
	DefaultRefreshInterval = 30 * time.Second
	DefaultPushChannel     = "Care_Insight_Event__e"

	errorTitle = "Analytics Error"
)

var (
	ErrAlreadyStarted = errors.New("analytics: controller already started")
	ErrStopped        = errors.New("analytics: controller stopped")
)

// Notifier shows a transient message to viewers.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// Renderer redraws chart surfaces. Versions increase with every accepted
// dataset, so a renderer may skip versions it has already drawn.
type Renderer interface {
	Render(version uint64, ds Dataset)
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(version uint64, ds Dataset)

func (f RenderFunc) Render(version uint64, ds Dataset) { f(version, ds) }

type Subscription interface {
	Unsubscribe() error
}

// Subscriber attaches handler to a push channel until the returned
// Subscription is released or ctx ends.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler func(ctx context.Context, event models.Event)) (Subscription, error)
}

// View is the presentation snapshot of the dashboard.
type View struct {
	Metrics          Metrics          `json:"metrics"`
	TargetMetrics    Metrics          `json:"targetMetrics"`
	RiskDistribution RiskDistribution `json:"riskDistribution"`
	EngagementByType []LabelValue     `json:"engagementByType"`
	WeeklyTrend      []DatePoint      `json:"weeklyTrend"`
	InsightSummary   []string         `json:"insightSummary"`
	Loading          bool             `json:"loading"`
	Version          uint64           `json:"version"`
	UpdatedAt        *time.Time       `json:"updatedAt,omitempty"`
	LastError        string           `json:"lastError,omitempty"`
}

type ControllerOption func(*Controller)

func WithNotifier(n Notifier) ControllerOption     { return func(c *Controller) { c.notifier = n } }
func WithRenderer(r Renderer) ControllerOption     { return func(c *Controller) { c.renderer = r } }
func WithSubscriber(s Subscriber) ControllerOption { return func(c *Controller) { c.subscriber = s } }
func WithAnimator(a *Animator) ControllerOption    { return func(c *Controller) { c.animator = a } }

func WithRefreshInterval(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

func WithPushChannel(channel string) ControllerOption {
	return func(c *Controller) {
		if channel != "" {
			c.channel = channel
		}
	}
}

// Controller keeps the dashboard fresh from a periodic timer and a push
// channel. Both triggers, and manual callers, share Refresh.
//
// Refreshes are not serialized. When two overlap, whichever finishes last
// owns the displayed state.
type Controller struct {
	source     Source
	notifier   Notifier
	renderer   Renderer
	subscriber Subscriber
	animator   *Animator
	interval   time.Duration
	channel    string

	mu        sync.Mutex
	dataset   Dataset
	version   uint64
	updatedAt time.Time
	lastError string
	inFlight  int
	started   bool
	stopped   bool
	cancel    context.CancelFunc
	sub       Subscription

	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewController(source Source, opts ...ControllerOption) *Controller {
	c := &Controller{
		source:   source,
		interval: DefaultRefreshInterval,
		channel:  DefaultPushChannel,
		dataset:  EmptyDataset(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.animator == nil {
		c.animator = NewAnimator(nil)
	}
	return c
}

// Start runs an initial refresh, starts the periodic timer and subscribes to
// the push channel. It may be called once per controller.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	// Counted before unlocking so a concurrent Stop always waits for it.
	c.wg.Add(1)
	c.mu.Unlock()

	go c.pollLoop(runCtx)

	if c.subscriber == nil {
		return nil
	}

	log := logger.Component("refresh-controller").WithField("channel", c.channel)
	sub, err := c.subscriber.Subscribe(runCtx, c.channel, c.handlePush)
	if err != nil {
		log.WithError(err).Warn("push subscription failed, continuing with polling only")
		return nil
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		if err := sub.Unsubscribe(); err != nil {
			log.WithError(err).Warn("failed to release push subscription")
		}
		return nil
	}
	c.sub = sub
	c.mu.Unlock()

	log.Info("subscribed to push channel")
	return nil
}

// Stop cancels the timer, releases the push subscription and halts the
// metric animation. It is idempotent and safe before Start.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.stopped = true
		cancel := c.cancel
		sub := c.sub
		c.sub = nil
		c.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if sub != nil {
			if err := sub.Unsubscribe(); err != nil {
				logger.Component("refresh-controller").WithError(err).Warn("failed to release push subscription")
			}
		}
		c.wg.Wait()
		c.animator.Stop()
	})
}

// Refresh fetches the analytics aggregate and replaces every dataset. A
// failure is reported to viewers and leaves the previous data in place.
func (c *Controller) Refresh(ctx context.Context) error {
	c.setLoading(1)
	defer c.setLoading(-1)

	started := time.Now()
	metrics.RefreshStarted()
	ds, err := c.source.GetAnalyticsData(ctx)
	metrics.RefreshFinished(time.Since(started), err)

	if err != nil {
		msg := remote.Message(err)
		c.mu.Lock()
		c.lastError = msg
		stopped := c.stopped
		c.mu.Unlock()

		logger.Component("refresh-controller").WithError(err).Warn("analytics refresh failed")
		if !stopped {
			c.notify(ctx, models.NewNotification(errorTitle, msg, models.SeverityError))
		}
		return fmt.Errorf("refreshing analytics: %w", err)
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	c.dataset = ds
	c.version++
	c.updatedAt = time.Now().UTC()
	c.lastError = ""
	// Retarget under the same lock so the animator follows assignment order.
	c.animator.Animate(ds.Metrics)
	c.mu.Unlock()

	c.Redraw()
	return nil
}

// Redraw hands the latest dataset to the renderer. It is cheap to call
// repeatedly: the renderer skips versions it has already drawn.
func (c *Controller) Redraw() {
	c.mu.Lock()
	ds, version, stopped := c.dataset, c.version, c.stopped
	c.mu.Unlock()

	if stopped || c.renderer == nil {
		return
	}
	c.renderer.Render(version, ds)
}

func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight > 0
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Metrics:          c.animator.Current(),
		TargetMetrics:    c.dataset.Metrics,
		RiskDistribution: c.dataset.RiskDistribution,
		EngagementByType: c.dataset.EngagementByType,
		WeeklyTrend:      c.dataset.WeeklyTrend,
		InsightSummary:   c.dataset.InsightSummary,
		Loading:          c.inFlight > 0,
		Version:          c.version,
		LastError:        c.lastError,
	}
	if !c.updatedAt.IsZero() {
		ts := c.updatedAt
		v.UpdatedAt = &ts
	}
	return v
}

func (c *Controller) setLoading(delta int) {
	c.mu.Lock()
	c.inFlight += delta
	c.mu.Unlock()
}

func (c *Controller) notify(ctx context.Context, n models.Notification) {
	if c.notifier == nil {
		logger.Component("refresh-controller").WithFields(map[string]interface{}{
			"title":    n.Title,
			"severity": n.Severity,
		}).Info(n.Message)
		return
	}
	c.notifier.Notify(ctx, n)
}

func (c *Controller) pollLoop(ctx context.Context) {
	defer c.wg.Done()

	c.trigger(ctx, "initial")

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			// A slow fetch must not hold back the next tick.
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				c.trigger(ctx, "timer")
			}()
		case <-ctx.Done():
			return
		}
	}
}

func (c *Controller) handlePush(ctx context.Context, event models.Event) {
	metrics.ObservePushEvent()
	logger.Component("refresh-controller").WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
	}).Debug("push event received")
	c.trigger(ctx, "push")
}

func (c *Controller) trigger(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}
	if err := c.Refresh(ctx); err != nil && !errors.Is(err, ErrStopped) {
		logger.Component("refresh-controller").WithError(err).WithField("trigger", reason).Debug("triggered refresh did not apply")
	}
}
