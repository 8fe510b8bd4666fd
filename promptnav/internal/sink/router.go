package sink

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/promptnav/promptnav/event"
)

// Router fans out events to all configured sinks. One sink error does not
// block the others: errors are logged and the first encountered is returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router delivering to all sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

func (r *Router) Send(ctx context.Context, u event.Update) error {
	return r.each("update", func(s Sink) error { return s.Send(ctx, u) })
}

func (r *Router) SendReset(ctx context.Context, rs event.Reset) error {
	return r.each("reset", func(s Sink) error { return s.SendReset(ctx, rs) })
}

func (r *Router) SendSelection(ctx context.Context, sel event.Selection) error {
	return r.each("selection", func(s Sink) error { return s.SendSelection(ctx, sel) })
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) each(kind string, fn func(Sink) error) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := fn(s); err != nil {
			r.logger.Warn("sink: send failed", "kind", kind, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
