package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"courierdash/internal/metrics"
)

// Fetcher returns the raw metrics document. *courier.Client satisfies it.
type Fetcher interface {
	Metrics(ctx context.Context) ([]byte, error)
}

// Sink receives every reconciled snapshot.
type Sink interface {
	Observe(ctx context.Context, at time.Time, snap metrics.StateSnapshot) error
	Failed(err error)
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithInterval sets the initial poll interval. Zero polls once and then
// waits for Refresh.
func WithInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		w.interval = d
	}
}

// WithLogger sets the worker logger.
func WithLogger(l logrus.FieldLogger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.log = l
		}
	}
}

// WithReporter routes reconciler field issues to r.
func WithReporter(r metrics.Reporter) WorkerOption {
	return func(w *Worker) {
		w.reporter = r
	}
}

// WithClock replaces time.Now for sample timestamps.
func WithClock(now func() time.Time) WorkerOption {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

// Worker polls in the background: fetch, reconcile, then fan out to sinks.
type Worker struct {
	fetcher  Fetcher
	sinks    []Sink
	interval time.Duration
	log      logrus.FieldLogger
	reporter metrics.Reporter
	now      func() time.Time

	refresh   chan struct{}
	intervals chan time.Duration

	mu      sync.Mutex
	gens    metrics.Generations
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

// NewWorker creates a worker. At least a fetcher is required; sinks are
// optional.
func NewWorker(f Fetcher, sinks []Sink, opts ...WorkerOption) (*Worker, error) {
	if f == nil {
		return nil, errors.New("fetcher is required")
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	w := &Worker{
		fetcher:   f,
		sinks:     sinks,
		interval:  5 * time.Second,
		log:       discard,
		now:       time.Now,
		refresh:   make(chan struct{}, 1),
		intervals: make(chan time.Duration, 1),
		gens:      metrics.NewGenerations(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins the poll loop. The first fetch happens immediately.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("worker already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.wg.Add(1)
	w.mu.Unlock()

	go w.loop(ctx)
	return nil
}

// Stop cancels the loop and waits for any fetch in flight to return.
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.running = false
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

// Refresh requests a manual fetch. It is dropped if one is already queued.
func (w *Worker) Refresh() {
	select {
	case w.refresh <- struct{}{}:
	default:
	}
}

// SetInterval changes the poll interval of a running worker. A queued change
// that has not been applied yet is replaced.
func (w *Worker) SetInterval(d time.Duration) {
	for {
		select {
		case w.intervals <- d:
			return
		default:
		}
		select {
		case <-w.intervals:
		default:
		}
	}
}

// PullOnce runs a single fetch cycle immediately, outside the loop.
func (w *Worker) PullOnce(ctx context.Context) error {
	return w.execute(ctx)
}

// Snapshot returns the most recent reconciled snapshot.
func (w *Worker) Snapshot() metrics.StateSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.gens.Current
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()

	ctl := NewController(w.interval)
	var tick, settle genTimer
	defer tick.stop()
	defer settle.stop()

	// One fetch at a time, so a single slot never blocks the sender.
	results := make(chan error, 1)

	apply := func(actions []Action) {
		for _, a := range actions {
			switch a.Kind {
			case ActionFetch:
				w.wg.Add(1)
				go func() {
					defer w.wg.Done()
					results <- w.execute(ctx)
				}()
			case ActionSchedule:
				tick.reset(a.After, a.Gen)
			case ActionClearUpdating:
				settle.reset(a.After, a.Gen)
			}
		}
	}

	apply(ctl.Start())
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-results:
			if err != nil && ctx.Err() == nil {
				w.log.WithError(err).Warn("poll failed")
			}
			apply(ctl.Completed())
		case <-tick.C():
			apply(ctl.Tick(tick.gen))
		case <-settle.C():
			ctl.ClearUpdating(settle.gen)
		case <-w.refresh:
			apply(ctl.Refresh())
		case d := <-w.intervals:
			w.log.WithField("interval", Label(d)).Info("poll interval changed")
			apply(ctl.SetInterval(d))
		}
	}
}

func (w *Worker) execute(ctx context.Context) error {
	raw, err := w.fetcher.Metrics(ctx)
	if err != nil {
		// Shutting down is not a broker failure.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.mu.Lock()
		w.gens = w.gens.Reset()
		w.mu.Unlock()
		for _, s := range w.sinks {
			s.Failed(err)
		}
		return fmt.Errorf("fetch metrics: %w", err)
	}

	w.mu.Lock()
	next := metrics.Reconcile(raw, w.gens.Current, metrics.WithReporter(w.reporter))
	w.gens = w.gens.Advance(next)
	w.mu.Unlock()

	at := w.now()
	var errs []error
	for _, s := range w.sinks {
		if err := s.Observe(ctx, at, next); err != nil {
			errs = append(errs, fmt.Errorf("sink %T: %w", s, err))
		}
	}
	return errors.Join(errs...)
}

// genTimer is a timer tagged with the generation it was armed for. Its
// channel is nil until armed, which disables its select case.
type genTimer struct {
	t   *time.Timer
	gen uint64
}

func (g *genTimer) C() <-chan time.Time {
	if g.t == nil {
		return nil
	}
	return g.t.C
}

func (g *genTimer) reset(d time.Duration, gen uint64) {
	g.stop()
	g.t = time.NewTimer(d)
	g.gen = gen
}

func (g *genTimer) stop() {
	if g.t != nil {
		g.t.Stop()
	}
}
