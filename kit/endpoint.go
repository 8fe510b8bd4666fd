// Package kit holds the transport-agnostic endpoint plumbing shared by the
// HTTP control API and the MCP tools.
package kit

import (
	"context"
	"log/slog"
	"time"
)

// Endpoint is one operation, independent of the transport that invoked it.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware decorates an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares; the first one is the outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Logging logs every call with its transport, duration and error. The
// request-scoped logger from the context is preferred over logger.
func Logging(logger *slog.Logger, name string) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			attrs := []any{
				"endpoint", name,
				"transport", GetTransport(ctx),
				"duration", time.Since(start),
			}
			// A request-scoped logger already carries the request ID.
			l := GetLogger(ctx, nil)
			if l == nil {
				l = logger
				if id := GetRequestID(ctx); id != "" {
					attrs = append(attrs, "request_id", id)
				}
			}
			if err != nil {
				l.Warn("kit: endpoint failed", append(attrs, "error", err)...)
			} else {
				l.Debug("kit: endpoint", attrs...)
			}
			return resp, err
		}
	}
}
