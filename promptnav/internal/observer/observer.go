// Package observer turns the document's mutation stream into settled
// rescan requests.
//
// A Watcher runs a single loop goroutine that serialises everything it
// does: qualifying mutation batches arm a trailing debounce timer, and when
// the timer fires the settle callback runs on the loop. Batches arriving
// while the callback runs wait in the channel, so a reconciliation pass
// always completes before the next batch is looked at.
//
//	idle ──qualifying batch──▶ scheduled ──quiet for window──▶ reconciling ──▶ idle
//	                              ▲   │
//	                              └───┘ qualifying batch re-arms the timer
package observer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/promptnav/promptnav/internal/dom"
)

// State is the watcher's position in its control loop.
type State int32

const (
	StateIdle State = iota
	StateScheduled
	StateReconciling
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StateReconciling:
		return "reconciling"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// ErrStarted is returned by Start on a watcher that already ran.
var ErrStarted = errors.New("observer: already started")

// Config for creating a Watcher.
type Config struct {
	Doc      dom.Document
	Selector string
	// Exclude keeps mutations under the navigation surface from triggering rescans.
	Exclude string
	// Debounce is the quiet period after the last qualifying batch. Default: 300ms.
	Debounce time.Duration
	// OnNavigate is called on the loop goroutine for navigation signals.
	OnNavigate func(ctx context.Context, nav dom.Navigation)
	Logger     *slog.Logger
}

func (c *Config) defaults() {
	if c.Debounce <= 0 {
		c.Debounce = 300 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Watcher debounces qualifying mutations into settle callbacks.
type Watcher struct {
	cfg    Config
	logger *slog.Logger

	state   atomic.Int32
	started atomic.Bool

	// lastKick is the UnixNano time of the newest qualifying batch; kickCh
	// only signals that it moved.
	lastKick atomic.Int64
	kickCh   chan struct{}
	navCh  chan dom.Navigation

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	unsubscribe func()
	stopOnce    sync.Once
}

// New creates a Watcher. Call Start to subscribe.
func New(cfg Config) *Watcher {
	cfg.defaults()
	return &Watcher{
		cfg:    cfg,
		logger: cfg.Logger,
		kickCh: make(chan struct{}, 1),
		navCh:  make(chan dom.Navigation, 16),
		done:   make(chan struct{}),
	}
}

// Start subscribes to mutations under root and begins the loop. onSettled
// runs once per quiet period that follows at least one qualifying batch.
func (w *Watcher) Start(ctx context.Context, root dom.Node, onSettled func(ctx context.Context)) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrStarted
	}
	w.ctx, w.cancel = context.WithCancel(ctx)

	unsub, err := w.cfg.Doc.Subscribe(w.ctx, dom.Subscription{
		Root:       root,
		Selector:   w.cfg.Selector,
		Exclude:    w.cfg.Exclude,
		OnMutation: w.push,
		OnNavigate: w.pushNavigate,
	})
	if err != nil {
		w.cancel()
		w.state.Store(int32(StateStopped))
		close(w.done)
		return fmt.Errorf("observer: subscribe: %w", err)
	}
	w.unsubscribe = unsub

	go w.loop(onSettled)
	return nil
}

// Stop unsubscribes, cancels any pending timer and waits for the loop to
// exit. Once Stop returns, no callback runs again. Stop must not be called
// from inside a callback.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		w.state.Store(int32(StateStopped))
		if !w.started.Load() {
			return
		}
		w.cancel()
		if w.unsubscribe != nil {
			w.unsubscribe()
		}
	})
	if w.started.Load() {
		<-w.done
	}
}

// State returns the current loop state.
func (w *Watcher) State() State {
	return State(w.state.Load())
}

// push runs on the document's delivery goroutine. It never blocks and never
// panics back into the delivery path.
func (w *Watcher) push(m dom.Mutation) {
	defer w.recoverCallback("mutation")
	if !m.Qualifies() {
		return
	}
	w.lastKick.Store(time.Now().UnixNano())
	select {
	case w.kickCh <- struct{}{}:
	default:
		// A signal is pending; the loop reads lastKick when it takes it.
	}
}

func (w *Watcher) pushNavigate(nav dom.Navigation) {
	defer w.recoverCallback("navigate")
	select {
	case w.navCh <- nav:
	case <-w.ctx.Done():
	default:
		w.logger.Warn("observer: navigation signal dropped", "url", nav.URL)
	}
}

func (w *Watcher) recoverCallback(kind string) {
	if r := recover(); r != nil {
		w.logger.Error("observer: callback panic", "kind", kind, "panic", r)
	}
}

func (w *Watcher) loop(onSettled func(ctx context.Context)) {
	defer close(w.done)

	var timer *time.Timer
	var timerC <-chan time.Time
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}
	defer stopTimer()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-w.kickCh:
			// Trailing debounce measured from the last qualifying batch.
			stopTimer()
			wait := w.cfg.Debounce - time.Since(time.Unix(0, w.lastKick.Load()))
			if wait < 0 {
				wait = 0
			}
			timer = time.NewTimer(wait)
			timerC = timer.C
			w.setState(StateScheduled)

		case <-timerC:
			timer = nil
			timerC = nil
			if w.ctx.Err() != nil {
				return
			}
			w.setState(StateReconciling)
			w.run("settle", func() { onSettled(w.ctx) })
			w.setState(StateIdle)

		case nav := <-w.navCh:
			if w.cfg.OnNavigate != nil {
				w.run("navigate", func() { w.cfg.OnNavigate(w.ctx, nav) })
			}
		}
	}
}

// run invokes a callback on the loop goroutine, containing panics.
func (w *Watcher) run(kind string, fn func()) {
	defer w.recoverCallback(kind)
	fn()
}

// setState records s unless the watcher was stopped.
func (w *Watcher) setState(s State) {
	for {
		cur := w.state.Load()
		if State(cur) == StateStopped {
			return
		}
		if w.state.CompareAndSwap(cur, int32(s)) {
			return
		}
	}
}
