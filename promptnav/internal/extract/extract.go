// Package extract finds candidate prompt nodes in the live document.
//
// The selector is configuration, not a contract with the host page: zero
// matches is a normal outcome and nothing here ever fails the caller.
package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hazyhaar/promptnav/promptnav/internal/dom"
	"github.com/hazyhaar/promptnav/promptnav/internal/index"
)

// Extract returns every element under root matching selector with its
// rendered text trimmed, in document order. A node whose text cannot be
// read (typically detached mid-read) is skipped on its own.
func Extract(ctx context.Context, doc dom.Document, root dom.Node, selector string, logger *slog.Logger) []index.Candidate {
	if logger == nil {
		logger = slog.Default()
	}

	nodes, err := doc.Query(ctx, root, selector)
	if err != nil {
		logger.Debug("extract: query failed", "selector", selector, "error", err)
		return nil
	}

	out := make([]index.Candidate, 0, len(nodes))
	for _, n := range nodes {
		text, err := doc.Text(ctx, n)
		if err != nil {
			logger.Debug("extract: skip node", "node", n, "error", err)
			continue
		}
		out = append(out, index.Candidate{Node: n, Text: strings.TrimSpace(text)})
	}
	return out
}
