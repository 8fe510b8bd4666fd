package promptnav

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/promptnav/kit"
	"github.com/hazyhaar/promptnav/promptnav/event"
)

// Control exposes a Navigator through transport-agnostic endpoints, served
// over HTTP by Routes and over MCP by RegisterMCP.
type Control struct {
	nav    func() *Navigator
	logger *slog.Logger

	list  kit.Endpoint
	get   kit.Endpoint
	sel   kit.Endpoint
	reset kit.Endpoint
}

// NewControl creates a Control. nav is called on every request so the
// Navigator may be replaced or appear late; a nil Navigator is inactive.
func NewControl(nav func() *Navigator, logger *slog.Logger) *Control {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Control{nav: nav, logger: logger}
	c.list = kit.Logging(logger, "list")(c.listEndpoint)
	c.get = kit.Logging(logger, "get")(c.getEndpoint)
	c.sel = kit.Logging(logger, "select")(c.selectEndpoint)
	c.reset = kit.Logging(logger, "reset")(c.resetEndpoint)
	return c
}

// ListResponse is the body of a prompt listing.
type ListResponse struct {
	Session string         `json:"session"`
	PageURL string         `json:"page_url,omitempty"`
	Active  bool           `json:"active"`
	Prompts []event.Prompt `json:"prompts"`
}

// PromptResponse is a single prompt, optionally with its Markdown content.
type PromptResponse struct {
	event.Prompt
	Markdown string `json:"markdown,omitempty"`
}

// ResetResponse reports how many entries a reset dropped.
type ResetResponse struct {
	Dropped int `json:"dropped"`
	Total   int `json:"total"`
}

type getReq struct {
	ID       string `json:"id"`
	Markdown bool   `json:"markdown"`
}

type selectReq struct {
	ID string `json:"id"`
}

func (c *Control) navigator() (*Navigator, error) {
	n := c.nav()
	if n == nil {
		return nil, ErrInactive
	}
	return n, nil
}

func (c *Control) listEndpoint(_ context.Context, _ any) (any, error) {
	n, err := c.navigator()
	if err != nil {
		return nil, err
	}
	prompts := n.Prompts()
	if prompts == nil {
		prompts = []event.Prompt{}
	}
	return ListResponse{
		Session: n.SessionID(),
		PageURL: n.PageURL(),
		Active:  n.Active(),
		Prompts: prompts,
	}, nil
}

func (c *Control) getEndpoint(ctx context.Context, req any) (any, error) {
	r := req.(*getReq)
	n, err := c.navigator()
	if err != nil {
		return nil, err
	}
	p, err := n.Prompt(r.ID)
	if err != nil {
		return nil, err
	}
	resp := PromptResponse{Prompt: p}
	if r.Markdown {
		md, err := n.Markdown(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		resp.Markdown = md
	}
	return resp, nil
}

func (c *Control) selectEndpoint(ctx context.Context, req any) (any, error) {
	r := req.(*selectReq)
	n, err := c.navigator()
	if err != nil {
		return nil, err
	}
	return n.Select(ctx, r.ID, kit.GetTransport(ctx))
}

func (c *Control) resetEndpoint(ctx context.Context, _ any) (any, error) {
	n, err := c.navigator()
	if err != nil {
		return nil, err
	}
	dropped, err := n.Reset(ctx, event.ReasonManual)
	if err != nil {
		return nil, err
	}
	return ResetResponse{Dropped: dropped, Total: len(n.Prompts())}, nil
}
