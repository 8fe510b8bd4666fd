package sink

import (
	"context"

	"github.com/hazyhaar/promptnav/promptnav/event"
)

// UpdateFunc is called for each index update.
type UpdateFunc func(ctx context.Context, u event.Update) error

// ResetFunc is called for each index reset.
type ResetFunc func(ctx context.Context, r event.Reset) error

// SelectionFunc is called for each selection.
type SelectionFunc func(ctx context.Context, s event.Selection) error

// Callback delivers events via Go function calls, for consumers living in
// the same binary.
type Callback struct {
	onUpdate    UpdateFunc
	onReset     ResetFunc
	onSelection SelectionFunc
}

// NewCallback creates a Callback sink. Any handler may be nil.
func NewCallback(onUpdate UpdateFunc, onReset ResetFunc, onSelection SelectionFunc) *Callback {
	return &Callback{onUpdate: onUpdate, onReset: onReset, onSelection: onSelection}
}

func (c *Callback) Send(ctx context.Context, u event.Update) error {
	if c.onUpdate != nil {
		return c.onUpdate(ctx, u)
	}
	return nil
}

func (c *Callback) SendReset(ctx context.Context, r event.Reset) error {
	if c.onReset != nil {
		return c.onReset(ctx, r)
	}
	return nil
}

func (c *Callback) SendSelection(ctx context.Context, s event.Selection) error {
	if c.onSelection != nil {
		return c.onSelection(ctx, s)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
