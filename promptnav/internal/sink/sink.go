// Package sink defines output backends for promptnav index events.
package sink

import (
	"context"

	"github.com/hazyhaar/promptnav/promptnav/event"
)

// Sink is the output interface. Implementations deliver events to
// different backends (stdout, webhook, in-process callback).
type Sink interface {
	Send(ctx context.Context, u event.Update) error
	SendReset(ctx context.Context, r event.Reset) error
	SendSelection(ctx context.Context, s event.Selection) error
	Close() error
}
