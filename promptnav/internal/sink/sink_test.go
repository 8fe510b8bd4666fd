package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/promptnav/promptnav/event"
)

func TestStdout_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)
	ctx := context.Background()

	s.Send(ctx, event.Update{ID: "u1", Total: 1})
	s.SendReset(ctx, event.Reset{ID: "r1", Reason: event.ReasonManual})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("lines: got %d, want 2", len(lines))
	}
	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(lines[1], &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != "reset" {
		t.Errorf("Type: got %q, want reset", env.Type)
	}
}

func TestWebhook_RetriesThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type: got %q", r.Header.Get("Content-Type"))
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond))
	if err := wh.Send(context.Background(), event.Update{ID: "u1"}); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 3 {
		t.Errorf("hits: got %d, want 3", hits.Load())
	}
}

func TestWebhook_Exhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, WithWebhookRetries(1), WithWebhookBackoff(time.Millisecond))
	if err := wh.SendSelection(context.Background(), event.Selection{ID: "s"}); err == nil {
		t.Error("expected error after retries exhausted")
	}
}

func TestRouter_FanOutContinuesOnError(t *testing.T) {
	var got atomic.Int32
	failing := NewCallback(func(context.Context, event.Update) error {
		return errors.New("down")
	}, nil, nil)
	ok := NewCallback(func(context.Context, event.Update) error {
		got.Add(1)
		return nil
	}, nil, nil)

	r := NewRouter(nil, failing, ok)
	err := r.Send(context.Background(), event.Update{ID: "u"})
	if err == nil {
		t.Error("Router.Send: expected first error")
	}
	if got.Load() != 1 {
		t.Errorf("second sink calls: got %d, want 1", got.Load())
	}
	if err := r.SendReset(context.Background(), event.Reset{}); err != nil {
		t.Errorf("nil handlers should be no-ops: %v", err)
	}
}
