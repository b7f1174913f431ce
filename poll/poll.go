// Package poll drives the watch loop: fetch the controller feed, classify
// it, detect staffing transitions, and hand changes to the dispatcher.
package poll

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leftos/oak-tower-watcher-sub000/dispatch"
	"github.com/leftos/oak-tower-watcher-sub000/pkg/watcher"
)

const (
	// MinInterval is the floor for the poll interval. The data feed
	// updates every 15 seconds; polling faster than this only burns
	// their bandwidth.
	MinInterval = 30 * time.Second

	// sleepChunk bounds how long Stop or ForceCheck can wait for the
	// loop to notice.
	sleepChunk = 500 * time.Millisecond

	// errorRetry caps the wait after a failed cycle so a transient feed
	// outage recovers quickly.
	errorRetry = 30 * time.Second
)

// Feed fetches the current controller list.
type Feed interface {
	Fetch(ctx context.Context) ([]watcher.Controller, error)
}

// Dispatcher fans a detected transition out to recipients.
type Dispatcher interface {
	Dispatch(ctx context.Context, prev watcher.Status, snap watcher.Snapshot, pool []watcher.Controller) dispatch.Summary
}

// Publisher receives every successful snapshot, changed or not.
type Publisher interface {
	Publish(ctx context.Context, snap watcher.Snapshot) error
}

// Cache holds the latest successful snapshot and the raw controller pool
// it was classified from. Reads and writes are whole-value swaps; a failed
// poll never touches it, so readers keep seeing the last good data.
type Cache struct {
	mu      sync.RWMutex
	snap    watcher.Snapshot
	pool    []watcher.Controller
	fetched time.Time
	ok      bool
}

// Replace swaps in a new snapshot and its controller pool.
func (c *Cache) Replace(snap watcher.Snapshot, pool []watcher.Controller) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = snap
	c.pool = pool
	c.fetched = time.Now()
	c.ok = true
}

// Current returns the cached snapshot and its age. ok is false until the
// first successful poll.
func (c *Cache) Current() (snap watcher.Snapshot, age time.Duration, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.ok {
		return watcher.Snapshot{}, 0, false
	}
	return c.snap, time.Since(c.fetched), true
}

// Pool returns the controllers behind the cached snapshot.
func (c *Cache) Pool() ([]watcher.Controller, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pool, c.ok
}

// Poller runs the periodic watch loop.
type Poller struct {
	feed       Feed
	classifier *watcher.Classifier
	dispatcher Dispatcher
	publisher  Publisher
	cache      *Cache
	interval   time.Duration
	logger     *slog.Logger

	// OnError, when set, is invoked after every failed cycle. Set it
	// before Start.
	OnError func(error)

	force   atomic.Bool
	stop    chan struct{}
	done    chan struct{}
	started atomic.Bool
	stopped atomic.Bool

	mu       sync.Mutex
	prev     watcher.Snapshot
	lastSum  dispatch.Summary
	lastErr  string
	cycles   uint64
	failures uint64
}

// New builds a Poller. publisher may be nil. Intervals below MinInterval
// are clamped up to it.
func New(feed Feed, classifier *watcher.Classifier, dispatcher Dispatcher, publisher Publisher, cache *Cache, interval time.Duration, logger *slog.Logger) *Poller {
	if interval < MinInterval {
		logger.Warn("poll interval below minimum, clamping", "requested", interval, "minimum", MinInterval)
		interval = MinInterval
	}
	return &Poller{
		feed:       feed,
		classifier: classifier,
		dispatcher: dispatcher,
		publisher:  publisher,
		cache:      cache,
		interval:   interval,
		logger:     logger,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		prev:       watcher.Snapshot{Status: watcher.StatusAllOffline, Success: true},
	}
}

// Start runs one check immediately, then polls in the background until
// Stop is called or ctx is cancelled. Calling Start twice is an error.
func (p *Poller) Start(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return fmt.Errorf("poller already started")
	}
	p.logger.Info("poller starting", "interval", p.interval)
	if err := p.runCycle(ctx); err != nil {
		p.logger.Error("initial check failed", "error", err)
	}
	go p.loop(ctx)
	return nil
}

// Stop shuts the loop down and waits for the in-flight cycle. Safe to call
// more than once.
func (p *Poller) Stop() {
	if !p.started.Load() || !p.stopped.CompareAndSwap(false, true) {
		return
	}
	close(p.stop)
	select {
	case <-p.done:
		p.logger.Info("poller stopped")
	case <-time.After(5 * time.Second):
		p.logger.Warn("poller did not stop in time, abandoning")
	}
}

// ForceCheck makes the loop run its next cycle immediately.
func (p *Poller) ForceCheck() {
	p.force.Store(true)
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)
	for {
		wait := p.interval
		if p.lastFailed() {
			wait = min(errorRetry, p.interval)
		}
		if !p.sleep(ctx, wait) {
			return
		}
		if err := p.runCycle(ctx); err != nil {
			p.logger.Error("check failed", "error", err)
		}
	}
}

// sleep waits out d in short chunks so Stop, context cancellation, and
// ForceCheck all take effect within sleepChunk. Returns false when the
// loop should exit.
func (p *Poller) sleep(ctx context.Context, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for {
		if p.force.Swap(false) {
			p.logger.Info("forced check requested")
			return true
		}
		if !time.Now().Before(deadline) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-p.stop:
			return false
		case <-time.After(sleepChunk):
		}
	}
}

func (p *Poller) runCycle(ctx context.Context) error {
	controllers, err := p.feed.Fetch(ctx)
	if err != nil {
		// The cache and the transition baseline keep their last good
		// values; recipients are never told about a fetch failure.
		p.mu.Lock()
		p.failures++
		p.lastErr = err.Error()
		p.mu.Unlock()
		if p.OnError != nil {
			p.OnError(err)
		}
		return fmt.Errorf("fetch feed: %w", err)
	}

	main, above, below := p.classifier.Classify(controllers)
	snap := watcher.Snapshot{
		Main:         main,
		SupportAbove: above,
		SupportBelow: below,
		Status:       watcher.Resolve(main, above),
		Timestamp:    time.Now().UTC(),
		Success:      true,
	}
	p.cache.Replace(snap, controllers)

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, snap); err != nil {
			p.logger.Warn("snapshot publish failed", "error", err)
		}
	}

	p.mu.Lock()
	prev := p.prev
	p.cycles++
	p.lastErr = ""
	p.mu.Unlock()

	if watcher.Changed(snap, prev) {
		p.logger.Info("staffing transition detected",
			"from", prev.Status, "to", snap.Status,
			"main", len(main), "above", len(above), "below", len(below))
		sum := p.dispatcher.Dispatch(ctx, prev.Status, snap, controllers)
		p.mu.Lock()
		p.prev = snap
		p.lastSum = sum
		p.mu.Unlock()
	} else {
		p.logger.Debug("no staffing change", "status", snap.Status, "controllers", len(controllers))
	}
	return nil
}

func (p *Poller) lastFailed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr != ""
}

// Stats describes the loop's progress for the status API.
type Stats struct {
	Cycles       uint64           `json:"cycles"`
	Failures     uint64           `json:"failures"`
	LastError    string           `json:"last_error,omitzero"`
	LastDispatch dispatch.Summary `json:"last_dispatch"`
	Interval     time.Duration    `json:"-"`
}

// Stats returns a snapshot of the loop counters.
func (p *Poller) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Cycles:       p.cycles,
		Failures:     p.failures,
		LastError:    p.lastErr,
		LastDispatch: p.lastSum,
		Interval:     p.interval,
	}
}
