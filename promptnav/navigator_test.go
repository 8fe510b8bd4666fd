package promptnav

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/promptnav/promptnav/event"
	"github.com/hazyhaar/promptnav/promptnav/internal/config"
	"github.com/hazyhaar/promptnav/promptnav/internal/dom"
	"github.com/hazyhaar/promptnav/promptnav/internal/dom/domtest"
	"github.com/hazyhaar/promptnav/promptnav/internal/sink"
)

// recorder collects every event a navigator emits.
type recorder struct {
	mu         sync.Mutex
	updates    []event.Update
	resets     []event.Reset
	selections []event.Selection
}

func (r *recorder) sink() sink.Sink {
	return sink.NewCallback(
		func(_ context.Context, u event.Update) error {
			r.mu.Lock()
			r.updates = append(r.updates, u)
			r.mu.Unlock()
			return nil
		},
		func(_ context.Context, rs event.Reset) error {
			r.mu.Lock()
			r.resets = append(r.resets, rs)
			r.mu.Unlock()
			return nil
		},
		func(_ context.Context, s event.Selection) error {
			r.mu.Lock()
			r.selections = append(r.selections, s)
			r.mu.Unlock()
			return nil
		},
	)
}

func (r *recorder) snapshot() ([]event.Update, []event.Reset, []event.Selection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Update(nil), r.updates...),
		append([]event.Reset(nil), r.resets...),
		append([]event.Selection(nil), r.selections...)
}

func prompt(text string) domtest.Element {
	return domtest.Element{Tag: "div", Classes: []string{"whitespace-pre-wrap"}, Text: text}
}

func testPrompts() config.PromptsConfig {
	return config.PromptsConfig{
		Debounce:          20 * time.Millisecond,
		HighlightDuration: 50 * time.Millisecond,
	}
}

func newTestNavigator(t *testing.T, p config.PromptsConfig) (*domtest.Document, *domtest.Surface, *recorder, *Navigator) {
	t.Helper()
	doc := domtest.New()
	surf := domtest.NewSurface()
	rec := &recorder{}
	nav := New(doc, surf, Options{
		Prompts:       p,
		Sink:          rec.sink(),
		PageURL:       "https://chat.example/c/1",
		SessionID:     "test-session",
		ReloadBackoff: 5 * time.Millisecond,
	})
	t.Cleanup(nav.Teardown)
	return doc, surf, rec, nav
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestInit_IndexesExistingPrompts(t *testing.T) {
	doc, surf, rec, nav := newTestNavigator(t, testPrompts())
	body := doc.BodyNode()
	doc.Append(body, prompt("  first  "))
	doc.Append(body, prompt(""))
	doc.Append(body, prompt("second"))

	if err := nav.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !nav.Active() {
		t.Fatal("navigator should be active")
	}

	got := nav.Prompts()
	if len(got) != 2 {
		t.Fatalf("prompts: got %d, want 2", len(got))
	}
	if got[0].Text != "first" || got[1].ID != "prompt-1" {
		t.Errorf("prompts: %+v", got)
	}
	if !surf.Mounted() || len(surf.Links()) != 2 {
		t.Errorf("surface: mounted=%v links=%d", surf.Mounted(), len(surf.Links()))
	}

	updates, _, _ := rec.snapshot()
	if len(updates) != 1 || updates[0].Total != 2 || updates[0].SessionID != "test-session" {
		t.Errorf("updates: %+v", updates)
	}
}

func TestInit_NoBodyStaysInactive(t *testing.T) {
	doc, surf, _, nav := newTestNavigator(t, testPrompts())
	doc.FailBody()

	if err := nav.Init(context.Background()); err == nil {
		t.Fatal("Init: expected error")
	}
	if nav.Active() {
		t.Error("navigator should stay inactive")
	}
	if surf.Mounted() {
		t.Error("overlay must not be mounted")
	}
	if _, err := nav.Select(context.Background(), "prompt-0", SourceHTTP); !errors.Is(err, ErrInactive) {
		t.Errorf("Select: got %v, want ErrInactive", err)
	}
}

func TestInit_MountFailure(t *testing.T) {
	doc, surf, _, nav := newTestNavigator(t, testPrompts())
	surf.FailMount()

	if err := nav.Init(context.Background()); err == nil {
		t.Fatal("Init: expected error")
	}
	if doc.Subscribers() != 0 {
		t.Error("no subscription should survive a failed init")
	}
}

func TestInit_Idempotent(t *testing.T) {
	doc, _, _, nav := newTestNavigator(t, testPrompts())
	ctx := context.Background()
	if err := nav.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if err := nav.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if doc.Subscribers() != 1 {
		t.Errorf("subscribers: got %d, want 1", doc.Subscribers())
	}
}

func TestMutations_AppendNewPrompts(t *testing.T) {
	doc, surf, rec, nav := newTestNavigator(t, testPrompts())
	body := doc.BodyNode()
	doc.Append(body, prompt("X"))
	doc.Append(body, prompt("Y"))
	if err := nav.Init(context.Background()); err != nil {
		t.Fatal(err)
	}

	doc.Append(body, prompt("Z"))
	waitFor(t, "third prompt", func() bool { return len(nav.Prompts()) == 3 })

	got := nav.Prompts()
	for i, want := range []string{"X", "Y", "Z"} {
		if got[i].Text != want || got[i].Seq != i {
			t.Errorf("prompt %d: got %+v", i, got[i])
		}
	}
	appends, clears := surf.Counts()
	if appends != 2 || clears != 0 {
		t.Errorf("appends=%d clears=%d, want 2 and 0", appends, clears)
	}

	updates, _, _ := rec.snapshot()
	last := updates[len(updates)-1]
	if len(last.Added) != 1 || last.Added[0].Text != "Z" || last.Total != 3 {
		t.Errorf("last update: %+v", last)
	}
}

func TestMutations_BurstCoalesces(t *testing.T) {
	doc, _, rec, nav := newTestNavigator(t, testPrompts())
	if err := nav.Init(context.Background()); err != nil {
		t.Fatal(err)
	}

	body := doc.BodyNode()
	for _, txt := range []string{"a", "b", "c", "d"} {
		doc.Append(body, prompt(txt))
	}
	waitFor(t, "four prompts", func() bool { return len(nav.Prompts()) == 4 })
	time.Sleep(60 * time.Millisecond)

	updates, _, _ := rec.snapshot()
	if len(updates) != 1 {
		t.Errorf("updates: got %d, want 1 for a single burst", len(updates))
	}
}

func TestMutations_TextChangeNotResynced(t *testing.T) {
	doc, _, _, nav := newTestNavigator(t, testPrompts())
	body := doc.BodyNode()
	n := doc.Append(body, prompt("original"))
	if err := nav.Init(context.Background()); err != nil {
		t.Fatal(err)
	}

	doc.SetText(n, "edited")
	doc.Append(body, prompt("next"))
	waitFor(t, "second prompt", func() bool { return len(nav.Prompts()) == 2 })

	if got := nav.Prompts()[0].Text; got != "original" {
		t.Errorf("cached text: got %q, want original", got)
	}
}

func TestSelect_FromOverlay(t *testing.T) {
	doc, surf, rec, nav := newTestNavigator(t, testPrompts())
	n := doc.Append(doc.BodyNode(), prompt("jump here"))
	if err := nav.Init(context.Background()); err != nil {
		t.Fatal(err)
	}

	surf.Click("prompt-0")

	if got := doc.Scrolled(); len(got) != 1 || got[0] != n {
		t.Errorf("Scrolled: got %v", got)
	}
	_, _, sels := rec.snapshot()
	if len(sels) != 1 || sels[0].Source != SourceOverlay || sels[0].Prompt.Text != "jump here" {
		t.Errorf("selections: %+v", sels)
	}

	ctx := context.Background()
	waitFor(t, "highlight restore", func() bool {
		bg, _ := doc.Style(ctx, n, "background-color")
		return bg == ""
	})
}

func TestSelect_Unknown(t *testing.T) {
	_, _, _, nav := newTestNavigator(t, testPrompts())
	if err := nav.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, err := nav.Select(context.Background(), "prompt-42", SourceHTTP)
	if !errors.Is(err, ErrUnknownPrompt) {
		t.Errorf("Select: got %v, want ErrUnknownPrompt", err)
	}
}

func TestReset_RebuildsFromZero(t *testing.T) {
	doc, surf, rec, nav := newTestNavigator(t, testPrompts())
	body := doc.BodyNode()
	a := doc.Append(body, prompt("a"))
	doc.Append(body, prompt("b"))
	ctx := context.Background()
	if err := nav.Init(ctx); err != nil {
		t.Fatal(err)
	}

	doc.Remove(a)
	dropped, err := nav.Reset(ctx, event.ReasonManual)
	if err != nil {
		t.Fatal(err)
	}
	if dropped != 2 {
		t.Errorf("dropped: got %d, want 2", dropped)
	}

	got := nav.Prompts()
	if len(got) != 1 || got[0].Text != "b" || got[0].Seq != 0 {
		t.Errorf("after reset: %+v", got)
	}
	if links := surf.Links(); len(links) != 1 || links[0].Label != "1. b" {
		t.Errorf("links after reset: %+v", links)
	}

	_, resets, _ := rec.snapshot()
	if len(resets) != 1 || resets[0].Reason != event.ReasonManual || resets[0].Dropped != 2 {
		t.Errorf("resets: %+v", resets)
	}
}

func TestNavigate_ResetsIndex(t *testing.T) {
	doc, _, rec, nav := newTestNavigator(t, testPrompts())
	doc.Append(doc.BodyNode(), prompt("old route"))
	if err := nav.Init(context.Background()); err != nil {
		t.Fatal(err)
	}

	doc.Navigate(dom.Navigation{URL: "https://chat.example/c/2"})
	waitFor(t, "navigate reset", func() bool {
		_, resets, _ := rec.snapshot()
		return len(resets) == 1
	})

	_, resets, _ := rec.snapshot()
	if resets[0].Reason != event.ReasonNavigate {
		t.Errorf("reason: got %q", resets[0].Reason)
	}
	if nav.PageURL() != "https://chat.example/c/2" {
		t.Errorf("PageURL: got %q", nav.PageURL())
	}
}

func TestNavigate_SameURLKeepsIndex(t *testing.T) {
	doc, _, rec, nav := newTestNavigator(t, testPrompts())
	doc.Append(doc.BodyNode(), prompt("a"))
	doc.Append(doc.BodyNode(), prompt("b"))
	if err := nav.Init(context.Background()); err != nil {
		t.Fatal(err)
	}

	// replaceState on the current URL, then a real route change. Signals
	// are handled in order, so once the second reset lands the first
	// signal has been processed.
	doc.Navigate(dom.Navigation{URL: "https://chat.example/c/1"})
	doc.Navigate(dom.Navigation{URL: "https://chat.example/c/2"})
	waitFor(t, "route change reset", func() bool {
		_, resets, _ := rec.snapshot()
		return len(resets) >= 1
	})
	time.Sleep(20 * time.Millisecond)

	_, resets, _ := rec.snapshot()
	if len(resets) != 1 {
		t.Fatalf("resets: got %d, want 1 (%+v)", len(resets), resets)
	}
	if resets[0].Dropped != 2 {
		t.Errorf("reset: %+v", resets[0])
	}
}

func TestNavigate_KeepsIndexWhenDisabled(t *testing.T) {
	p := testPrompts()
	off := false
	p.ResetOnNavigate = &off
	doc, _, rec, nav := newTestNavigator(t, p)
	doc.Append(doc.BodyNode(), prompt("kept"))
	if err := nav.Init(context.Background()); err != nil {
		t.Fatal(err)
	}

	doc.Navigate(dom.Navigation{URL: "https://chat.example/c/2"})
	waitFor(t, "url change", func() bool { return nav.PageURL() == "https://chat.example/c/2" })

	_, resets, _ := rec.snapshot()
	if len(resets) != 0 {
		t.Errorf("resets: got %d, want 0", len(resets))
	}
	if len(nav.Prompts()) != 1 {
		t.Error("entry should survive navigation")
	}
}

func TestReload_Reinitialises(t *testing.T) {
	doc, surf, rec, nav := newTestNavigator(t, testPrompts())
	doc.Append(doc.BodyNode(), prompt("before"))
	if err := nav.Init(context.Background()); err != nil {
		t.Fatal(err)
	}

	doc.Navigate(dom.Navigation{URL: "https://chat.example/c/1", Reload: true})
	waitFor(t, "reload reset", func() bool {
		_, resets, _ := rec.snapshot()
		return len(resets) == 1
	})
	waitFor(t, "re-init", func() bool { return nav.Active() && len(nav.Prompts()) == 1 })

	_, resets, _ := rec.snapshot()
	if resets[0].Reason != event.ReasonReload || resets[0].Dropped != 1 {
		t.Errorf("reset: %+v", resets[0])
	}
	if doc.Subscribers() != 1 {
		t.Errorf("subscribers: got %d, want 1", doc.Subscribers())
	}
	if !surf.Mounted() {
		t.Error("overlay should be mounted again")
	}
}

func TestDetached_KeptByDefault(t *testing.T) {
	doc, _, _, nav := newTestNavigator(t, testPrompts())
	body := doc.BodyNode()
	a := doc.Append(body, prompt("a"))
	if err := nav.Init(context.Background()); err != nil {
		t.Fatal(err)
	}

	doc.Remove(a)
	doc.Append(body, prompt("b"))
	waitFor(t, "second prompt", func() bool { return len(nav.Prompts()) == 2 })

	if got := nav.Prompts()[0].ID; got != "prompt-0" {
		t.Errorf("detached entry lost: first is %q", got)
	}
}

func TestDetached_PrunedWhenEnabled(t *testing.T) {
	p := testPrompts()
	p.PruneOnDetach = true
	doc, surf, rec, nav := newTestNavigator(t, p)
	body := doc.BodyNode()
	a := doc.Append(body, prompt("a"))
	doc.Append(body, prompt("b"))
	if err := nav.Init(context.Background()); err != nil {
		t.Fatal(err)
	}

	doc.Remove(a)
	doc.Append(body, prompt("c"))
	waitFor(t, "prune", func() bool {
		got := nav.Prompts()
		return len(got) == 2 && got[1].Text == "c"
	})

	got := nav.Prompts()
	if got[0].ID != "prompt-1" || got[1].ID != "prompt-2" {
		t.Errorf("surviving IDs: %+v", got)
	}
	updates, _, _ := rec.snapshot()
	last := updates[len(updates)-1]
	if len(last.Removed) != 1 || last.Removed[0] != "prompt-0" {
		t.Errorf("removed: %v", last.Removed)
	}
	if links := surf.Links(); len(links) != 2 || links[0].ID != "prompt-1" {
		t.Errorf("links after prune: %+v", links)
	}
}

func TestMarkdown(t *testing.T) {
	doc, _, _, nav := newTestNavigator(t, testPrompts())
	doc.Append(doc.BodyNode(), prompt("hello"))
	ctx := context.Background()
	if err := nav.Init(ctx); err != nil {
		t.Fatal(err)
	}

	md, err := nav.Markdown(ctx, "prompt-0")
	if err != nil {
		t.Fatal(err)
	}
	if md != "hello" {
		t.Errorf("markdown: got %q", md)
	}
}

func TestTeardown(t *testing.T) {
	doc, surf, _, nav := newTestNavigator(t, config.PromptsConfig{
		Debounce:          20 * time.Millisecond,
		HighlightDuration: time.Hour,
	})
	n := doc.Append(doc.BodyNode(), prompt("a"))
	ctx := context.Background()
	if err := nav.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := nav.Select(ctx, "prompt-0", SourceHTTP); err != nil {
		t.Fatal(err)
	}

	nav.Teardown()

	if bg, _ := doc.Style(ctx, n, "background-color"); bg != "" {
		t.Errorf("highlight not restored: %q", bg)
	}
	if surf.Mounted() {
		t.Error("overlay still mounted")
	}
	if doc.Subscribers() != 0 {
		t.Errorf("subscribers: got %d, want 0", doc.Subscribers())
	}
	if err := nav.Init(ctx); !errors.Is(err, ErrTornDown) {
		t.Errorf("Init after Teardown: got %v", err)
	}
	nav.Teardown()
}
