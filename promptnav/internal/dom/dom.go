// Package dom defines the view promptnav has of a live, externally owned
// document: opaque node handles, read-only queries, the mutation stream,
// and the few writes the navigation surface is allowed to make.
package dom

import "context"

// Node is an opaque, non-owning handle to an element of the host document.
// The value is an identity issued by the page-side registry; two handles are
// the same element if and only if they are equal. Zero is never issued.
type Node uint64

// Added is one element inserted under the observed root.
type Added struct {
	Node Node
	// Match reports whether the element matches the selector or contains a
	// matching descendant, evaluated when the mutation was observed.
	Match bool
}

// Mutation is one batch of structural changes delivered by the document.
type Mutation struct {
	Added []Added
}

// Qualifies reports whether any added element matched the selector.
func (m Mutation) Qualifies() bool {
	for _, a := range m.Added {
		if a.Match {
			return true
		}
	}
	return false
}

// Navigation signals that the page changed location.
type Navigation struct {
	URL string
	// Reload is true when the whole document was replaced. Every handle
	// issued before a reload is invalid afterwards.
	Reload bool
}

// Subscription describes what a mutation subscription observes.
type Subscription struct {
	Root     Node
	Selector string
	// Exclude is a CSS selector; elements inside a matching ancestor are
	// never reported. Used to keep the overlay out of its own feedback loop.
	Exclude    string
	OnMutation func(Mutation)
	OnNavigate func(Navigation)
}

// Document is the live page.
type Document interface {
	// Body returns the handle of the document body.
	Body(ctx context.Context) (Node, error)
	// Query returns every element under root matching selector, in document order.
	Query(ctx context.Context, root Node, selector string) ([]Node, error)
	// Text returns the rendered text of an element.
	Text(ctx context.Context, n Node) (string, error)
	// HTML returns the inner HTML of an element.
	HTML(ctx context.Context, n Node) (string, error)
	// Connected reports whether the element is still attached to the document.
	Connected(ctx context.Context, n Node) (bool, error)
	// ScrollIntoView smoothly scrolls the element to the viewport center.
	ScrollIntoView(ctx context.Context, n Node) error
	// Style returns the inline value of a style property ("" when unset).
	Style(ctx context.Context, n Node, prop string) (string, error)
	// SetStyle sets an inline style property. An empty value removes it.
	SetStyle(ctx context.Context, n Node, prop, value string) error
	// Subscribe starts delivering mutations. The returned function cancels
	// the subscription; it is safe to call more than once.
	Subscribe(ctx context.Context, sub Subscription) (func(), error)
}

// Link is one jump target rendered by the navigation surface.
type Link struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Title string `json:"title"`
}

// Surface is the navigation UI injected into the page.
type Surface interface {
	// Mount attaches the container. onSelect is called with a link ID when
	// the user picks an entry.
	Mount(ctx context.Context, onSelect func(id string)) error
	Append(ctx context.Context, links []Link) error
	Clear(ctx context.Context) error
	Unmount(ctx context.Context) error
	// Container returns a CSS selector matching the surface's root element.
	Container() string
}
