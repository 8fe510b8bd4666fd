// Package promptnav discovers the user's prompts on a live chat page,
// keeps an ordered identity-deduplicated index of them, and renders a
// navigation overlay that scrolls to and briefly highlights a prompt.
//
// A Navigator is one page session. It owns the index, the mutation watcher
// and the presenter, and forwards index changes to event sinks. Session
// wraps a Navigator with the browser it runs against.
package promptnav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/promptnav/idgen"
	"github.com/hazyhaar/promptnav/promptnav/event"
	"github.com/hazyhaar/promptnav/promptnav/internal/config"
	"github.com/hazyhaar/promptnav/promptnav/internal/dom"
	"github.com/hazyhaar/promptnav/promptnav/internal/extract"
	"github.com/hazyhaar/promptnav/promptnav/internal/index"
	"github.com/hazyhaar/promptnav/promptnav/internal/observer"
	"github.com/hazyhaar/promptnav/promptnav/internal/present"
	"github.com/hazyhaar/promptnav/promptnav/internal/sink"
)

var (
	// ErrInactive is returned by operations on a navigator that is not
	// initialised (never started, failed to start, torn down or reloading).
	ErrInactive = errors.New("promptnav: navigator inactive")
	// ErrUnknownPrompt is returned when no entry has the requested ID.
	ErrUnknownPrompt = errors.New("promptnav: unknown prompt")
	// ErrTornDown is returned by Init after Teardown.
	ErrTornDown = errors.New("promptnav: navigator torn down")
)

// Source values recorded on selection events.
const (
	SourceOverlay = "overlay"
	SourceHTTP    = "http"
	SourceMCP     = "mcp"
)

// Options configures a Navigator.
type Options struct {
	Prompts config.PromptsConfig
	// Sink receives index events. Nil discards them.
	Sink sink.Sink
	// PageURL is recorded on events until the page navigates.
	PageURL string
	// SessionID identifies this navigator on events. Default: UUIDv7.
	SessionID string
	// ReloadAttempts bounds re-initialisation after the document is
	// replaced. Default: 20, spaced by ReloadBackoff (default 250ms).
	ReloadAttempts int
	ReloadBackoff  time.Duration
	Logger         *slog.Logger
}

func (o *Options) defaults() {
	o.Prompts.ApplyDefaults()
	if o.SessionID == "" {
		o.SessionID = idgen.New()
	}
	if o.ReloadAttempts <= 0 {
		o.ReloadAttempts = 20
	}
	if o.ReloadBackoff <= 0 {
		o.ReloadBackoff = 250 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Navigator is the per-page-session instance.
type Navigator struct {
	doc     dom.Document
	surface dom.Surface
	opts    Options
	logger  *slog.Logger
	newID   idgen.Generator
	seq     atomic.Uint64

	life       context.Context
	lifeCancel context.CancelFunc
	wg         sync.WaitGroup

	// mu serialises reconciliation, reset and lifecycle changes.
	mu      sync.Mutex
	idx     *index.Index
	pres    *present.Presenter
	watcher *observer.Watcher
	root    dom.Node
	active  bool
	pageURL string
}

// New creates a Navigator over doc, rendering into surface. Call Init to
// start it.
func New(doc dom.Document, surface dom.Surface, opts Options) *Navigator {
	opts.defaults()
	life, cancel := context.WithCancel(context.Background())
	return &Navigator{
		doc:        doc,
		surface:    surface,
		opts:       opts,
		logger:     opts.Logger.With("session", opts.SessionID),
		newID:      idgen.Default,
		life:       life,
		lifeCancel: cancel,
		idx:        index.New(),
		pageURL:    opts.PageURL,
	}
}

// SessionID returns the identifier stamped on this navigator's events.
func (n *Navigator) SessionID() string { return n.opts.SessionID }

// Active reports whether the navigator is initialised.
func (n *Navigator) Active() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.active
}

// PageURL returns the last known page URL.
func (n *Navigator) PageURL() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pageURL
}

// Init mounts the overlay, indexes the prompts already on the page and
// starts watching for new ones. On failure the navigator stays inactive
// and the page is left as it was.
func (n *Navigator) Init(ctx context.Context) error {
	upd, err := n.start(ctx)
	if err != nil {
		return err
	}
	if upd != nil {
		n.emitUpdate(ctx, *upd)
	}
	return nil
}

func (n *Navigator) start(ctx context.Context) (*event.Update, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.life.Err() != nil {
		return nil, ErrTornDown
	}
	if n.active {
		return nil, nil
	}

	body, err := n.doc.Body(ctx)
	if err != nil {
		return nil, fmt.Errorf("promptnav: init: body: %w", err)
	}
	if err := n.surface.Mount(ctx, n.onSelect); err != nil {
		return nil, fmt.Errorf("promptnav: init: mount overlay: %w", err)
	}

	p := n.opts.Prompts
	pres := present.New(present.Config{
		Doc:               n.doc,
		Surface:           n.surface,
		LabelMaxLength:    p.LabelMaxLength,
		HighlightColor:    p.HighlightColor,
		HighlightDuration: p.HighlightDuration,
		Logger:            n.logger,
	})
	w := observer.New(observer.Config{
		Doc:        n.doc,
		Selector:   p.Selector,
		Exclude:    n.surface.Container(),
		Debounce:   p.Debounce,
		OnNavigate: n.handleNavigate,
		Logger:     n.logger,
	})
	// Subscribe before the initial scan so nothing added in between is missed.
	if err := w.Start(n.life, body, n.rescan); err != nil {
		pres.Close()
		if uerr := n.surface.Unmount(ctx); uerr != nil {
			n.logger.Debug("promptnav: unmount after failed init", "error", uerr)
		}
		return nil, fmt.Errorf("promptnav: init: %w", err)
	}

	n.pres = pres
	n.watcher = w
	n.root = body
	n.active = true

	upd := n.rescanLocked(ctx)
	n.logger.Info("promptnav: initialised",
		"url", n.pageURL, "prompts", n.idx.Len(), "selector", p.Selector)
	return upd, nil
}

// Teardown stops watching, restores every highlighted prompt, removes the
// overlay and waits for background work. The navigator cannot be
// re-initialised afterwards.
func (n *Navigator) Teardown() {
	n.lifeCancel()

	n.mu.Lock()
	w := n.watcher
	n.watcher = nil
	n.mu.Unlock()

	// Stop outside the lock: the loop may be waiting on it in rescan.
	if w != nil {
		w.Stop()
	}
	n.wg.Wait()

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pres != nil {
		n.pres.Close()
	}
	if n.active {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := n.surface.Unmount(ctx); err != nil {
			n.logger.Debug("promptnav: unmount overlay", "error", err)
		}
	}
	n.active = false
	n.idx.Reset()
	n.logger.Info("promptnav: torn down")
}

// rescan is the watcher's settle callback.
func (n *Navigator) rescan(ctx context.Context) {
	n.mu.Lock()
	if !n.active {
		n.mu.Unlock()
		return
	}
	upd := n.rescanLocked(ctx)
	n.mu.Unlock()

	if upd != nil {
		n.emitUpdate(ctx, *upd)
	}
}

// rescanLocked runs one reconciliation pass and renders the result. It
// returns the update to emit, or nil when the index did not change.
func (n *Navigator) rescanLocked(ctx context.Context) *event.Update {
	p := n.opts.Prompts
	cands := extract.Extract(ctx, n.doc, n.root, p.Selector, n.logger)

	var removed []index.Entry
	if p.PruneOnDetach {
		removed = n.idx.Prune(func(node dom.Node) bool {
			ok, err := n.doc.Connected(ctx, node)
			// Unknown is not detached.
			return err != nil || ok
		})
	}
	added := n.idx.Reconcile(cands)
	if len(added) == 0 && len(removed) == 0 {
		return nil
	}

	if err := n.pres.Render(ctx, n.idx.All()); err != nil {
		n.logger.Warn("promptnav: render failed", "error", err)
	}
	n.logger.Debug("promptnav: reconciled",
		"added", len(added), "removed", len(removed), "total", n.idx.Len())

	upd := event.Update{
		ID:        n.newID(),
		SessionID: n.opts.SessionID,
		PageURL:   n.pageURL,
		Seq:       n.seq.Add(1),
		Added:     toPrompts(added),
		Total:     n.idx.Len(),
		Timestamp: time.Now().UnixMilli(),
	}
	for _, e := range removed {
		upd.Removed = append(upd.Removed, e.ID)
	}
	return &upd
}

// Prompts returns every indexed prompt in sequence order.
func (n *Navigator) Prompts() []event.Prompt {
	n.mu.Lock()
	defer n.mu.Unlock()
	return toPrompts(n.idx.All())
}

// Prompt returns the prompt with the given ID.
func (n *Navigator) Prompt(id string) (event.Prompt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	e, ok := n.idx.Lookup(id)
	if !ok {
		return event.Prompt{}, fmt.Errorf("%w: %s", ErrUnknownPrompt, id)
	}
	return toPrompt(e), nil
}

// Markdown converts the prompt's current content to Markdown.
func (n *Navigator) Markdown(ctx context.Context, id string) (string, error) {
	e, err := n.lookupActive(id)
	if err != nil {
		return "", err
	}
	md, err := extract.Markdown(ctx, n.doc, e.Node)
	if err != nil {
		return "", fmt.Errorf("promptnav: markdown %s: %w", id, err)
	}
	return md, nil
}

// Select scrolls to the prompt and highlights it. source is recorded on
// the selection event.
func (n *Navigator) Select(ctx context.Context, id, source string) (event.Prompt, error) {
	n.mu.Lock()
	if !n.active {
		n.mu.Unlock()
		return event.Prompt{}, ErrInactive
	}
	e, ok := n.idx.Lookup(id)
	pres := n.pres
	n.mu.Unlock()
	if !ok {
		return event.Prompt{}, fmt.Errorf("%w: %s", ErrUnknownPrompt, id)
	}

	if err := pres.Select(ctx, e); err != nil {
		return event.Prompt{}, fmt.Errorf("promptnav: select: %w", err)
	}

	prompt := toPrompt(e)
	sel := event.Selection{
		ID:        n.newID(),
		SessionID: n.opts.SessionID,
		Seq:       n.seq.Add(1),
		Prompt:    prompt,
		Source:    source,
		Timestamp: time.Now().UnixMilli(),
	}
	if n.opts.Sink != nil {
		if err := n.opts.Sink.SendSelection(ctx, sel); err != nil {
			n.logger.Error("promptnav: send selection failed", "error", err)
		}
	}
	return prompt, nil
}

// onSelect handles clicks on the overlay.
func (n *Navigator) onSelect(id string) {
	ctx, cancel := context.WithTimeout(n.life, 10*time.Second)
	defer cancel()
	if _, err := n.Select(ctx, id, SourceOverlay); err != nil {
		n.logger.Warn("promptnav: overlay select failed", "id", id, "error", err)
	}
}

// Reset clears the index and rebuilds it from the page as it is now.
// It returns the number of entries dropped.
func (n *Navigator) Reset(ctx context.Context, reason event.Reason) (int, error) {
	n.mu.Lock()
	if !n.active {
		n.mu.Unlock()
		return 0, ErrInactive
	}
	dropped := n.resetLocked(ctx)
	rst := n.resetEvent(reason, dropped)
	upd := n.rescanLocked(ctx)
	n.mu.Unlock()

	n.emitReset(ctx, rst)
	if upd != nil {
		n.emitUpdate(ctx, *upd)
	}
	return dropped, nil
}

func (n *Navigator) resetLocked(ctx context.Context) int {
	dropped := n.idx.Len()
	n.idx.Reset()
	if n.pres != nil {
		if err := n.pres.Render(ctx, nil); err != nil {
			n.logger.Warn("promptnav: clear overlay failed", "error", err)
		}
	}
	return dropped
}

func (n *Navigator) resetEvent(reason event.Reason, dropped int) event.Reset {
	return event.Reset{
		ID:        n.newID(),
		SessionID: n.opts.SessionID,
		PageURL:   n.pageURL,
		Seq:       n.seq.Add(1),
		Reason:    reason,
		Dropped:   dropped,
		Timestamp: time.Now().UnixMilli(),
	}
}

// handleNavigate runs on the watcher loop.
func (n *Navigator) handleNavigate(ctx context.Context, nav dom.Navigation) {
	if nav.Reload {
		// Re-initialising stops this watcher, which cannot happen from
		// inside its own loop.
		n.wg.Add(1)
		go n.reinit(nav)
		return
	}

	n.mu.Lock()
	if nav.URL == n.pageURL {
		// History entry for the current URL: same route, same prompts.
		n.mu.Unlock()
		return
	}
	n.pageURL = nav.URL
	n.mu.Unlock()
	n.logger.Info("promptnav: route changed", "url", nav.URL)

	if !n.opts.Prompts.ResetsOnNavigate() {
		return
	}
	if _, err := n.Reset(ctx, event.ReasonNavigate); err != nil {
		n.logger.Debug("promptnav: reset on navigate", "error", err)
	}
}

// reinit rebuilds the session after the document was replaced. Every
// handle from the old document is dropped with the index.
func (n *Navigator) reinit(nav dom.Navigation) {
	defer n.wg.Done()

	n.mu.Lock()
	w := n.watcher
	n.watcher = nil
	n.mu.Unlock()
	if w != nil {
		w.Stop()
	}

	n.mu.Lock()
	if n.pres != nil {
		n.pres.Close()
		n.pres = nil
	}
	dropped := n.idx.Len()
	n.idx.Reset()
	n.active = false
	n.pageURL = nav.URL
	rst := n.resetEvent(event.ReasonReload, dropped)
	n.mu.Unlock()

	n.logger.Info("promptnav: document replaced", "url", nav.URL, "dropped", dropped)
	n.emitReset(n.life, rst)

	for attempt := 1; attempt <= n.opts.ReloadAttempts; attempt++ {
		select {
		case <-n.life.Done():
			return
		case <-time.After(n.opts.ReloadBackoff):
		}
		ctx, cancel := context.WithTimeout(n.life, 10*time.Second)
		err := n.Init(ctx)
		cancel()
		if err == nil {
			return
		}
		if errors.Is(err, ErrTornDown) {
			return
		}
		n.logger.Debug("promptnav: re-init pending", "attempt", attempt, "error", err)
	}
	n.logger.Error("promptnav: re-init failed, navigator inactive", "url", nav.URL)
}

func (n *Navigator) emitUpdate(ctx context.Context, u event.Update) {
	if n.opts.Sink == nil {
		return
	}
	if err := n.opts.Sink.Send(ctx, u); err != nil {
		n.logger.Error("promptnav: send update failed", "error", err)
	}
}

func (n *Navigator) emitReset(ctx context.Context, r event.Reset) {
	if n.opts.Sink == nil {
		return
	}
	if err := n.opts.Sink.SendReset(ctx, r); err != nil {
		n.logger.Error("promptnav: send reset failed", "error", err)
	}
}

func (n *Navigator) lookupActive(id string) (index.Entry, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.active {
		return index.Entry{}, ErrInactive
	}
	e, ok := n.idx.Lookup(id)
	if !ok {
		return index.Entry{}, fmt.Errorf("%w: %s", ErrUnknownPrompt, id)
	}
	return e, nil
}

func toPrompt(e index.Entry) event.Prompt {
	return event.Prompt{ID: e.ID, Seq: e.Seq, Text: e.Text}
}

func toPrompts(entries []index.Entry) []event.Prompt {
	if len(entries) == 0 {
		return nil
	}
	out := make([]event.Prompt, len(entries))
	for i, e := range entries {
		out[i] = toPrompt(e)
	}
	return out
}
