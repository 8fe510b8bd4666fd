package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/promptnav/promptnav/internal/dom"
)

//go:embed bridge.js
var bridgeJS string

const namePlaceholder = "__PROMPTNAV__"

// Bridge exposes a rod page as a dom.Document and a dom.Surface. Element
// handles are issued by a page-side registry holding weak references, so a
// handle never keeps an element alive.
type Bridge struct {
	page      *rod.Page
	name      string
	container string
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	remove func() error

	mu       sync.Mutex
	sub      *dom.Subscription
	subGen   uint64
	onSelect func(id string)
}

var (
	_ dom.Document = (*Bridge)(nil)
	_ dom.Surface  = (*Bridge)(nil)
)

// NewBridge installs the page script on the current document and on every
// future one, then starts listening for page-side events. instance keeps
// two bridges on one page from colliding.
func NewBridge(ctx context.Context, page *rod.Page, instance string, logger *slog.Logger) (*Bridge, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ident := strings.NewReplacer("-", "_", ".", "_").Replace(instance)
	b := &Bridge{
		page:      page,
		name:      "__promptnav_" + ident,
		container: "promptnav-" + ident,
		logger:    logger,
	}
	script := strings.ReplaceAll(bridgeJS, namePlaceholder, b.name)

	if err := (proto.RuntimeAddBinding{Name: b.binding()}).Call(page); err != nil {
		return nil, fmt.Errorf("browser: add binding: %w", err)
	}
	remove, err := page.EvalOnNewDocument(script)
	if err != nil {
		return nil, fmt.Errorf("browser: register bridge: %w", err)
	}
	b.remove = remove
	if _, err := page.Context(ctx).Eval(script); err != nil {
		_ = remove()
		return nil, fmt.Errorf("browser: inject bridge: %w", err)
	}

	b.ctx, b.cancel = context.WithCancel(context.Background())
	go b.listen()

	logger.Debug("browser: bridge installed", "name", b.name)
	return b, nil
}

func (b *Bridge) binding() string { return b.name + "_emit" }

// Close stops listening and removes the script from future documents.
func (b *Bridge) Close() error {
	b.cancel()
	if b.remove != nil {
		return b.remove()
	}
	return nil
}

// message is a page-side event delivered through the binding.
type message struct {
	Type  string `json:"type"`
	Added []struct {
		ID    uint64 `json:"id"`
		Match bool   `json:"match"`
	} `json:"added"`
	URL    string `json:"url"`
	Target string `json:"target"`
}

func (b *Bridge) listen() {
	b.page.Context(b.ctx).EachEvent(
		func(e *proto.RuntimeBindingCalled) {
			if e.Name != b.binding() {
				return
			}
			var m message
			if err := json.Unmarshal([]byte(e.Payload), &m); err != nil {
				b.logger.Warn("browser: parse binding payload", "error", err)
				return
			}
			b.dispatch(m)
		},
		func(e *proto.PageFrameNavigated) {
			if e.Frame == nil || e.Frame.ParentID != "" {
				return
			}
			if sub := b.subscription(); sub != nil && sub.OnNavigate != nil {
				sub.OnNavigate(dom.Navigation{URL: e.Frame.URL, Reload: true})
			}
		},
	)()
}

func (b *Bridge) dispatch(m message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("browser: bridge handler panic", "type", m.Type, "panic", r)
		}
	}()

	switch m.Type {
	case "mutation":
		sub := b.subscription()
		if sub == nil || sub.OnMutation == nil {
			return
		}
		mut := dom.Mutation{Added: make([]dom.Added, 0, len(m.Added))}
		for _, a := range m.Added {
			mut.Added = append(mut.Added, dom.Added{Node: dom.Node(a.ID), Match: a.Match})
		}
		sub.OnMutation(mut)

	case "navigate":
		if sub := b.subscription(); sub != nil && sub.OnNavigate != nil {
			sub.OnNavigate(dom.Navigation{URL: m.URL})
		}

	case "select":
		b.mu.Lock()
		fn := b.onSelect
		b.mu.Unlock()
		if fn != nil {
			// Selection evaluates in the page; keep it off the event loop.
			go fn(m.Target)
		}

	default:
		b.logger.Debug("browser: unknown bridge message", "type", m.Type)
	}
}

func (b *Bridge) subscription() *dom.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sub
}

// call invokes a bridge method in the page. Arguments after the method
// name are passed through JSON.
func (b *Bridge) call(ctx context.Context, method string, args ...any) (*proto.RuntimeRemoteObject, error) {
	params := make([]string, len(args))
	for i := range args {
		params[i] = fmt.Sprintf("a%d", i)
	}
	js := fmt.Sprintf("(name, %s) => window[name].%s(%s)",
		strings.Join(params, ", "), method, strings.Join(params, ", "))
	if len(args) == 0 {
		js = fmt.Sprintf("(name) => window[name].%s()", method)
	}
	res, err := b.page.Context(ctx).Eval(js, append([]any{b.name}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("browser: %s: %w", method, err)
	}
	return res, nil
}

// Body implements dom.Document.
func (b *Bridge) Body(ctx context.Context) (dom.Node, error) {
	res, err := b.call(ctx, "body")
	if err != nil {
		return 0, err
	}
	return dom.Node(res.Value.Int()), nil
}

// Query implements dom.Document.
func (b *Bridge) Query(ctx context.Context, root dom.Node, selector string) ([]dom.Node, error) {
	res, err := b.call(ctx, "query", uint64(root), selector)
	if err != nil {
		return nil, err
	}
	arr := res.Value.Arr()
	nodes := make([]dom.Node, 0, len(arr))
	for _, v := range arr {
		nodes = append(nodes, dom.Node(v.Int()))
	}
	return nodes, nil
}

// Text implements dom.Document.
func (b *Bridge) Text(ctx context.Context, n dom.Node) (string, error) {
	res, err := b.call(ctx, "text", uint64(n))
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// HTML implements dom.Document.
func (b *Bridge) HTML(ctx context.Context, n dom.Node) (string, error) {
	res, err := b.call(ctx, "html", uint64(n))
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// Connected implements dom.Document.
func (b *Bridge) Connected(ctx context.Context, n dom.Node) (bool, error) {
	res, err := b.call(ctx, "connected", uint64(n))
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

// ScrollIntoView implements dom.Document.
func (b *Bridge) ScrollIntoView(ctx context.Context, n dom.Node) error {
	_, err := b.call(ctx, "scroll", uint64(n))
	return err
}

// Style implements dom.Document.
func (b *Bridge) Style(ctx context.Context, n dom.Node, prop string) (string, error) {
	res, err := b.call(ctx, "style", uint64(n), prop)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// SetStyle implements dom.Document.
func (b *Bridge) SetStyle(ctx context.Context, n dom.Node, prop, value string) error {
	_, err := b.call(ctx, "setStyle", uint64(n), prop, value)
	return err
}

// Subscribe implements dom.Document. A page holds one observer per bridge;
// a new subscription replaces the previous one.
func (b *Bridge) Subscribe(ctx context.Context, sub dom.Subscription) (func(), error) {
	b.mu.Lock()
	b.subGen++
	gen := b.subGen
	b.sub = &sub
	b.mu.Unlock()

	if _, err := b.call(ctx, "observe", uint64(sub.Root), sub.Selector, sub.Exclude); err != nil {
		b.mu.Lock()
		if b.subGen == gen {
			b.sub = nil
		}
		b.mu.Unlock()
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			current := b.subGen == gen
			if current {
				b.sub = nil
			}
			b.mu.Unlock()
			if !current {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := b.call(ctx, "disconnect"); err != nil {
				b.logger.Debug("browser: disconnect observer", "error", err)
			}
		})
	}, nil
}

// Mount implements dom.Surface.
func (b *Bridge) Mount(ctx context.Context, onSelect func(id string)) error {
	b.mu.Lock()
	b.onSelect = onSelect
	b.mu.Unlock()
	_, err := b.call(ctx, "mount", b.container)
	return err
}

// Append implements dom.Surface.
func (b *Bridge) Append(ctx context.Context, links []dom.Link) error {
	_, err := b.call(ctx, "append", b.container, links)
	return err
}

// Clear implements dom.Surface.
func (b *Bridge) Clear(ctx context.Context) error {
	_, err := b.call(ctx, "clear", b.container)
	return err
}

// Unmount implements dom.Surface.
func (b *Bridge) Unmount(ctx context.Context) error {
	b.mu.Lock()
	b.onSelect = nil
	b.mu.Unlock()
	_, err := b.call(ctx, "unmount", b.container)
	return err
}

// Container implements dom.Surface.
func (b *Bridge) Container() string {
	return "#" + b.container
}
