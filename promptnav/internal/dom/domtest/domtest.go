// Package domtest provides an in-memory dom.Document and dom.Surface for
// tests. Selectors support the simple forms "tag", ".class", "#id" and
// their compounds ("div.whitespace-pre-wrap").
package domtest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hazyhaar/promptnav/promptnav/internal/dom"
)

// ErrDetached is returned for reads on a node marked as failing.
var ErrDetached = errors.New("domtest: node detached")

// Element describes an element to insert.
type Element struct {
	Tag     string
	ID      string
	Classes []string
	Text    string
	Style   map[string]string
}

type node struct {
	id       dom.Node
	el       Element
	parent   *node
	children []*node
	failText bool
}

type subscription struct {
	sub    dom.Subscription
	active bool
}

// Document is a goroutine-safe fake document.
type Document struct {
	mu       sync.Mutex
	next     dom.Node
	nodes    map[dom.Node]*node
	body     *node
	subs     []*subscription
	scrolled []dom.Node
	failBody bool
}

// New returns a document with an empty body.
func New() *Document {
	d := &Document{nodes: make(map[dom.Node]*node)}
	d.body = d.newNode(Element{Tag: "body"})
	return d
}

func (d *Document) newNode(el Element) *node {
	d.next++
	if el.Style == nil {
		el.Style = make(map[string]string)
	}
	n := &node{id: d.next, el: el}
	d.nodes[n.id] = n
	return n
}

// BodyNode returns the body handle without a context.
func (d *Document) BodyNode() dom.Node { return d.body.id }

// FailBody makes Body return an error, simulating a page without attachment points.
func (d *Document) FailBody() {
	d.mu.Lock()
	d.failBody = true
	d.mu.Unlock()
}

// Append inserts el under parent and notifies subscribers.
func (d *Document) Append(parent dom.Node, el Element) dom.Node {
	return d.AppendTree(parent, el)[0]
}

// AppendTree inserts el under parent with children nested as a chain
// (each following element is a child of the previous one) and notifies
// subscribers once for the top element. It returns every handle created.
func (d *Document) AppendTree(parent dom.Node, el Element, children ...Element) []dom.Node {
	d.mu.Lock()
	p, ok := d.nodes[parent]
	if !ok {
		d.mu.Unlock()
		panic(fmt.Sprintf("domtest: unknown parent %d", parent))
	}
	top := d.newNode(el)
	top.parent = p
	p.children = append(p.children, top)
	ids := []dom.Node{top.id}
	cur := top
	for _, c := range children {
		n := d.newNode(c)
		n.parent = cur
		cur.children = append(cur.children, n)
		ids = append(ids, n.id)
		cur = n
	}
	notify := d.collectLocked(top)
	d.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
	return ids
}

func (d *Document) collectLocked(top *node) []func() {
	var out []func()
	for _, s := range d.subs {
		if !s.active || s.sub.OnMutation == nil {
			continue
		}
		root, ok := d.nodes[s.sub.Root]
		if !ok || !isAncestor(root, top) {
			continue
		}
		if s.sub.Exclude != "" && d.insideLocked(top, s.sub.Exclude) {
			continue
		}
		match := matches(top, s.sub.Selector) || len(queryLocked(top, s.sub.Selector)) > 0
		m := dom.Mutation{Added: []dom.Added{{Node: top.id, Match: match}}}
		fn := s.sub.OnMutation
		out = append(out, func() { fn(m) })
	}
	return out
}

func (d *Document) insideLocked(n *node, selector string) bool {
	for cur := n; cur != nil; cur = cur.parent {
		if matches(cur, selector) {
			return true
		}
	}
	return false
}

// Remove detaches n from its parent. The handle stays valid but disconnected.
func (d *Document) Remove(n dom.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, ok := d.nodes[n]
	if !ok || el.parent == nil {
		return
	}
	kids := el.parent.children
	for i, c := range kids {
		if c == el {
			el.parent.children = append(kids[:i:i], kids[i+1:]...)
			break
		}
	}
	el.parent = nil
}

// SetText changes the text of n without any mutation notification.
func (d *Document) SetText(n dom.Node, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.nodes[n]; ok {
		el.el.Text = text
	}
}

// FailText makes every Text read on n fail.
func (d *Document) FailText(n dom.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.nodes[n]; ok {
		el.failText = true
	}
}

// Navigate delivers a navigation signal to every active subscription.
func (d *Document) Navigate(nav dom.Navigation) {
	d.mu.Lock()
	var fns []func(dom.Navigation)
	for _, s := range d.subs {
		if s.active && s.sub.OnNavigate != nil {
			fns = append(fns, s.sub.OnNavigate)
		}
	}
	d.mu.Unlock()
	for _, fn := range fns {
		fn(nav)
	}
}

// Subscribers returns the number of active subscriptions.
func (d *Document) Subscribers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, s := range d.subs {
		if s.active {
			n++
		}
	}
	return n
}

// Scrolled returns the handles passed to ScrollIntoView, in call order.
func (d *Document) Scrolled() []dom.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]dom.Node(nil), d.scrolled...)
}

// --- dom.Document ---

func (d *Document) Body(context.Context) (dom.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failBody {
		return 0, errors.New("domtest: no body")
	}
	return d.body.id, nil
}

func (d *Document) Query(_ context.Context, root dom.Node, selector string) ([]dom.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.nodes[root]
	if !ok {
		return nil, fmt.Errorf("domtest: unknown root %d", root)
	}
	return queryLocked(r, selector), nil
}

func (d *Document) Text(_ context.Context, n dom.Node) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, ok := d.nodes[n]
	if !ok || el.failText {
		return "", ErrDetached
	}
	return el.el.Text, nil
}

func (d *Document) HTML(_ context.Context, n dom.Node) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, ok := d.nodes[n]
	if !ok || el.failText {
		return "", ErrDetached
	}
	return "<p>" + el.el.Text + "</p>", nil
}

func (d *Document) Connected(_ context.Context, n dom.Node) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, ok := d.nodes[n]
	if !ok {
		return false, nil
	}
	return isAncestor(d.body, el), nil
}

func (d *Document) ScrollIntoView(_ context.Context, n dom.Node) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.nodes[n]; !ok {
		return ErrDetached
	}
	d.scrolled = append(d.scrolled, n)
	return nil
}

func (d *Document) Style(_ context.Context, n dom.Node, prop string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, ok := d.nodes[n]
	if !ok {
		return "", ErrDetached
	}
	return el.el.Style[prop], nil
}

func (d *Document) SetStyle(_ context.Context, n dom.Node, prop, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, ok := d.nodes[n]
	if !ok {
		return ErrDetached
	}
	if value == "" {
		delete(el.el.Style, prop)
	} else {
		el.el.Style[prop] = value
	}
	return nil
}

func (d *Document) Subscribe(_ context.Context, sub dom.Subscription) (func(), error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.nodes[sub.Root]; !ok {
		return nil, fmt.Errorf("domtest: unknown root %d", sub.Root)
	}
	s := &subscription{sub: sub, active: true}
	d.subs = append(d.subs, s)
	return func() {
		d.mu.Lock()
		s.active = false
		d.mu.Unlock()
	}, nil
}

// --- selector matching ---

func isAncestor(anc, n *node) bool {
	for cur := n; cur != nil; cur = cur.parent {
		if cur == anc {
			return true
		}
	}
	return false
}

// queryLocked returns matching descendants of root in document order,
// excluding root itself like querySelectorAll.
func queryLocked(root *node, selector string) []dom.Node {
	var out []dom.Node
	var walk func(*node)
	walk = func(n *node) {
		for _, c := range n.children {
			if matches(c, selector) {
				out = append(out, c.id)
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

func matches(n *node, selector string) bool {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return false
	}
	tag, id, classes := parseSelector(selector)
	if tag != "" && !strings.EqualFold(tag, n.el.Tag) {
		return false
	}
	if id != "" && id != n.el.ID {
		return false
	}
	for _, want := range classes {
		found := false
		for _, have := range n.el.Classes {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func parseSelector(s string) (tag, id string, classes []string) {
	cur := &tag
	var buf strings.Builder
	flush := func() {
		if cur == nil {
			classes = append(classes, buf.String())
		} else {
			*cur = buf.String()
		}
		buf.Reset()
	}
	for _, r := range s {
		switch r {
		case '.':
			flush()
			cur = nil
		case '#':
			flush()
			cur = &id
		default:
			buf.WriteRune(r)
		}
	}
	flush()
	return tag, id, classes
}
