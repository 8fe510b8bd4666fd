package promptnav

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/promptnav/kit"
	"github.com/hazyhaar/promptnav/shield"
)

// Routes returns the HTTP control API. When mcpSrv is not nil its
// streamable HTTP transport is mounted at /mcp.
//
//	GET  /health
//	GET  /prompts
//	GET  /prompts/{id}            ?format=markdown adds the Markdown content
//	POST /prompts/{id}/select
//	POST /reset
func (c *Control) Routes(mcpSrv *mcp.Server) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	for _, mw := range shield.DefaultAPIStack(c.logger) {
		r.Use(mw)
	}
	c.RegisterRoutes(r)

	if mcpSrv != nil {
		r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
			return mcpSrv
		}, nil))
	}
	return r
}

// RegisterRoutes mounts the control endpoints on an existing router.
func (c *Control) RegisterRoutes(r chi.Router) {
	r.Get("/health", c.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(httpContext)
		r.Get("/prompts", c.handleList)
		r.Get("/prompts/{id}", c.handleGet)
		r.Post("/prompts/{id}/select", c.handleSelect)
		r.Post("/reset", c.handleReset)
	})
}

// httpContext tags the request context for the endpoint layer.
func httpContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(kit.WithTransport(r.Context(), SourceHTTP)))
	})
}

func (c *Control) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{"status": "ok", "active": false}
	if n := c.nav(); n != nil {
		resp["active"] = n.Active()
		resp["session"] = n.SessionID()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (c *Control) handleList(w http.ResponseWriter, r *http.Request) {
	c.serve(w, r, c.list, nil)
}

func (c *Control) handleGet(w http.ResponseWriter, r *http.Request) {
	c.serve(w, r, c.get, &getReq{
		ID:       chi.URLParam(r, "id"),
		Markdown: r.URL.Query().Get("format") == "markdown",
	})
}

func (c *Control) handleSelect(w http.ResponseWriter, r *http.Request) {
	c.serve(w, r, c.sel, &selectReq{ID: chi.URLParam(r, "id")})
}

func (c *Control) handleReset(w http.ResponseWriter, r *http.Request) {
	c.serve(w, r, c.reset, nil)
}

func (c *Control) serve(w http.ResponseWriter, r *http.Request, ep kit.Endpoint, req any) {
	resp, err := ep(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownPrompt):
		return http.StatusNotFound
	case errors.Is(err, ErrInactive):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
