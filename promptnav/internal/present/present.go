// Package present renders the prompt index as jump links and performs the
// scroll-and-highlight effect when one is selected.
package present

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/promptnav/promptnav/internal/dom"
	"github.com/hazyhaar/promptnav/promptnav/internal/index"
)

const (
	propBackground = "background-color"
	propTransition = "transition"
)

// Config for creating a Presenter.
type Config struct {
	Doc     dom.Document
	Surface dom.Surface
	// LabelMaxLength is the preview budget in display cells. Default: 100.
	LabelMaxLength int
	// HighlightColor is applied as background-color. Default: #fff59d.
	HighlightColor string
	// HighlightDuration before the original appearance is restored. Default: 2s.
	HighlightDuration time.Duration
	// Transition is applied while highlighted. Default: "background-color 0.5s ease".
	Transition string
	Logger     *slog.Logger
}

func (c *Config) defaults() {
	if c.LabelMaxLength <= 0 {
		c.LabelMaxLength = 100
	}
	if c.HighlightColor == "" {
		c.HighlightColor = "#fff59d"
	}
	if c.HighlightDuration <= 0 {
		c.HighlightDuration = 2 * time.Second
	}
	if c.Transition == "" {
		c.Transition = "background-color 0.5s ease"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// original is the inline appearance of a node before it was highlighted.
type original struct {
	background string
	transition string
	live       int
}

// highlight is one selection's pending restore. Every highlight owns its
// timer; overlapping highlights of one node share the captured original.
type highlight struct {
	node  dom.Node
	orig  *original
	timer *time.Timer
}

// Presenter keeps the surface in sync with the index.
type Presenter struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	rendered []string
	origs    map[dom.Node]*original
	pending  map[*highlight]struct{}
	closed   bool
}

// New creates a Presenter.
func New(cfg Config) *Presenter {
	cfg.defaults()
	return &Presenter{
		cfg:     cfg,
		logger:  cfg.Logger,
		origs:   make(map[dom.Node]*original),
		pending: make(map[*highlight]struct{}),
	}
}

// Render brings the surface in line with entries. When the already rendered
// links are a prefix of entries, only the missing tail is appended;
// otherwise (reset or prune) the list is rebuilt.
func (p *Presenter) Render(ctx context.Context, entries []index.Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := len(p.rendered)
	if !p.isPrefixLocked(entries) {
		if err := p.cfg.Surface.Clear(ctx); err != nil {
			return fmt.Errorf("present: clear: %w", err)
		}
		p.rendered = p.rendered[:0]
		start = 0
	}
	if start == len(entries) {
		return nil
	}

	links := make([]dom.Link, 0, len(entries)-start)
	for _, e := range entries[start:] {
		links = append(links, p.link(e))
	}
	if err := p.cfg.Surface.Append(ctx, links); err != nil {
		return fmt.Errorf("present: append: %w", err)
	}
	for _, l := range links {
		p.rendered = append(p.rendered, l.ID)
	}
	return nil
}

func (p *Presenter) isPrefixLocked(entries []index.Entry) bool {
	if len(p.rendered) > len(entries) {
		return false
	}
	for i, id := range p.rendered {
		if entries[i].ID != id {
			return false
		}
	}
	return true
}

func (p *Presenter) link(e index.Entry) dom.Link {
	return dom.Link{
		ID:    e.ID,
		Label: Label(e.Seq, e.Text, p.cfg.LabelMaxLength),
		Title: e.Text,
	}
}

// Rendered returns the IDs currently shown, in order.
func (p *Presenter) Rendered() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.rendered...)
}

// Select scrolls to the entry's node and highlights it for the configured
// duration, after which the exact prior inline appearance is restored.
func (p *Presenter) Select(ctx context.Context, e index.Entry) error {
	if err := p.cfg.Doc.ScrollIntoView(ctx, e.Node); err != nil {
		return fmt.Errorf("present: scroll %s: %w", e.ID, err)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	orig, ok := p.origs[e.Node]
	if !ok {
		bg, err := p.cfg.Doc.Style(ctx, e.Node, propBackground)
		if err != nil {
			p.mu.Unlock()
			return fmt.Errorf("present: read style %s: %w", e.ID, err)
		}
		tr, err := p.cfg.Doc.Style(ctx, e.Node, propTransition)
		if err != nil {
			p.mu.Unlock()
			return fmt.Errorf("present: read style %s: %w", e.ID, err)
		}
		orig = &original{background: bg, transition: tr}
		p.origs[e.Node] = orig
	}
	orig.live++

	if err := p.cfg.Doc.SetStyle(ctx, e.Node, propTransition, p.cfg.Transition); err != nil {
		p.logger.Debug("present: set transition failed", "id", e.ID, "error", err)
	}
	if err := p.cfg.Doc.SetStyle(ctx, e.Node, propBackground, p.cfg.HighlightColor); err != nil {
		p.logger.Debug("present: set highlight failed", "id", e.ID, "error", err)
	}

	h := &highlight{node: e.Node, orig: orig}
	p.pending[h] = struct{}{}
	h.timer = time.AfterFunc(p.cfg.HighlightDuration, func() { p.expire(h) })
	p.mu.Unlock()
	return nil
}

// Highlighted reports whether n has a pending restore.
func (p *Presenter) Highlighted(n dom.Node) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.origs[n]
	return ok
}

func (p *Presenter) expire(h *highlight) {
	p.mu.Lock()
	if _, ok := p.pending[h]; !ok {
		p.mu.Unlock()
		return
	}
	delete(p.pending, h)
	h.orig.live--
	if h.orig.live == 0 {
		delete(p.origs, h.node)
	}
	// Restore under the lock so a concurrent Select never captures the
	// highlight color as an original.
	p.restore(h)
	p.mu.Unlock()
}

func (p *Presenter) restore(h *highlight) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.cfg.Doc.SetStyle(ctx, h.node, propBackground, h.orig.background); err != nil {
		p.logger.Debug("present: restore background failed", "node", h.node, "error", err)
	}
	if err := p.cfg.Doc.SetStyle(ctx, h.node, propTransition, h.orig.transition); err != nil {
		p.logger.Debug("present: restore transition failed", "node", h.node, "error", err)
	}
}

// Close cancels pending restore timers, restoring every highlighted node
// immediately. Later Select calls only scroll.
func (p *Presenter) Close() {
	p.mu.Lock()
	p.closed = true
	due := make([]*highlight, 0, len(p.pending))
	for h := range p.pending {
		h.timer.Stop()
		due = append(due, h)
		delete(p.pending, h)
	}
	p.origs = make(map[dom.Node]*original)
	p.mu.Unlock()

	for _, h := range due {
		p.restore(h)
	}
}
