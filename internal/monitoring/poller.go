// internal/monitoring/poller.go
package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"pulse/internal/domain"
)

// DashboardSource fetches one dashboard snapshot. *repository.Dashboard satisfies it.
type DashboardSource interface {
	Get(ctx context.Context) (domain.DashboardData, error)
}

// RefreshRecorder is told the outcome of every refresh. *metrics.Collector satisfies it.
type RefreshRecorder interface {
	RecordDashboardRefresh(err error, counts map[string]int)
}

// Notifier receives notifications raised by confirmed transitions.
// *notifications.Service satisfies it.
type Notifier interface {
	Add(n domain.AppNotification) (domain.AppNotification, error)
}

type PollerOption func(*Poller)

func WithRecorder(r RefreshRecorder) PollerOption {
	return func(p *Poller) { p.recorder = r }
}

// WithTransitions turns confirmed status changes into notifications.
func WithTransitions(tracker *StateTracker, notifier Notifier) PollerOption {
	return func(p *Poller) {
		p.tracker = tracker
		p.notifier = notifier
	}
}

// Poller refreshes the dashboard on an interval and keeps the latest snapshot.
// A failed refresh is logged and the previous snapshot is kept.
type Poller struct {
	source   DashboardSource
	interval time.Duration
	recorder RefreshRecorder
	tracker  *StateTracker
	notifier Notifier

	mu      sync.RWMutex
	latest  *domain.DashboardData
	lastErr error
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	subMu   sync.Mutex
	subs    map[int]chan domain.DashboardData
	nextSub int
}

func NewPoller(source DashboardSource, interval time.Duration, opts ...PollerOption) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	p := &Poller{
		source:   source,
		interval: interval,
		subs:     make(map[int]chan domain.DashboardData),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start refreshes once right away and then on every tick until ctx ends or
// Stop is called. Calling Start on a running poller does nothing.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	logrus.WithField("interval", p.interval).Info("Starting dashboard poller")
	go p.run(ctx, done)
}

// Stop ends the loop and waits for an in-flight refresh to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	logrus.Info("Stopping dashboard poller")
	cancel()
	<-done
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refreshWithTimeout(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refreshWithTimeout(ctx)
		}
	}
}

func (p *Poller) refreshWithTimeout(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()
	_, _ = p.Refresh(ctx)
}

// Refresh fetches one snapshot, stores it and fans it out.
func (p *Poller) Refresh(ctx context.Context) (domain.DashboardData, error) {
	start := time.Now()
	dash, err := p.source.Get(ctx)

	if p.recorder != nil {
		p.recorder.RecordDashboardRefresh(err, statusCounts(dash))
	}

	if err != nil {
		if ctx.Err() == nil {
			logrus.WithError(err).Warn("Dashboard refresh failed")
		}
		p.mu.Lock()
		p.lastErr = err
		p.mu.Unlock()
		return domain.DashboardData{}, err
	}

	p.mu.Lock()
	p.latest = &dash
	p.lastErr = nil
	p.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"endpoints": dash.EndpointCount,
		"health":    dash.OverallHealth,
		"incidents": dash.ActiveIncidentCount,
		"elapsed":   time.Since(start),
	}).Debug("Dashboard refreshed")

	p.raiseTransitions(dash)
	p.publish(dash)
	return dash, nil
}

func (p *Poller) raiseTransitions(dash domain.DashboardData) {
	if p.tracker == nil {
		return
	}
	for _, tr := range p.tracker.Observe(dash) {
		if p.notifier == nil {
			continue
		}
		if _, err := p.notifier.Add(tr.Notification()); err != nil {
			logrus.WithError(err).WithField("endpoint", tr.EndpointID).Warn("Failed to record transition notification")
		}
	}
}

func statusCounts(dash domain.DashboardData) map[string]int {
	counts := map[string]int{
		string(domain.StatusHealthy):  0,
		string(domain.StatusDegraded): 0,
		string(domain.StatusDown):     0,
		string(domain.StatusUnknown):  0,
	}
	for _, ep := range dash.Endpoints {
		counts[string(ep.Status())]++
	}
	return counts
}

// Latest returns the most recent successful snapshot.
func (p *Poller) Latest() (domain.DashboardData, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.latest == nil {
		return domain.DashboardData{}, false
	}
	return *p.latest, true
}

// LastError is the error of the latest refresh, nil after a success.
func (p *Poller) LastError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}

// Subscribe delivers each new snapshot. A subscriber that falls behind only
// ever sees the newest one.
func (p *Poller) Subscribe() (<-chan domain.DashboardData, func()) {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	id := p.nextSub
	p.nextSub++
	ch := make(chan domain.DashboardData, 1)
	p.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.subMu.Lock()
			defer p.subMu.Unlock()
			delete(p.subs, id)
			close(ch)
		})
	}
}

func (p *Poller) publish(dash domain.DashboardData) {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	for _, ch := range p.subs {
		select {
		case ch <- dash:
			continue
		default:
		}
		// Replace the stale snapshot.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- dash:
		default:
		}
	}
}
