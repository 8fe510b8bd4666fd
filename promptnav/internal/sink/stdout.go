package sink

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/hazyhaar/promptnav/promptnav/event"
)

// Stdout writes JSON lines to an io.Writer (default os.Stdout).
type Stdout struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewStdout creates a Stdout sink. If w is nil, os.Stdout is used.
func NewStdout(w io.Writer) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{enc: json.NewEncoder(w)}
}

func (s *Stdout) Send(_ context.Context, u event.Update) error {
	return s.write(envelope{Type: "update", Data: u})
}

func (s *Stdout) SendReset(_ context.Context, r event.Reset) error {
	return s.write(envelope{Type: "reset", Data: r})
}

func (s *Stdout) SendSelection(_ context.Context, sel event.Selection) error {
	return s.write(envelope{Type: "selection", Data: sel})
}

func (s *Stdout) Close() error { return nil }

func (s *Stdout) write(e envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(e)
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
