package promptnav

import (
	"io"
	"log/slog"

	"github.com/hazyhaar/promptnav/promptnav/internal/sink"
)

// Sink is the output interface for promptnav events.
type Sink = sink.Sink

// NewStdoutSink creates a stdout JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// UpdateFunc is called for each index update.
type UpdateFunc = sink.UpdateFunc

// ResetFunc is called for each index reset.
type ResetFunc = sink.ResetFunc

// SelectionFunc is called for each selection.
type SelectionFunc = sink.SelectionFunc

// NewCallbackSink creates an in-process callback sink. Any handler may be nil.
func NewCallbackSink(onUpdate UpdateFunc, onReset ResetFunc, onSelection SelectionFunc) Sink {
	return sink.NewCallback(onUpdate, onReset, onSelection)
}

// SinksFromConfig builds the sinks listed in cfg. Unknown types are logged
// and skipped; an empty list yields a stdout sink.
func SinksFromConfig(cfg []SinkConfig, logger *slog.Logger) []Sink {
	if logger == nil {
		logger = slog.Default()
	}
	var sinks []Sink
	for _, sc := range cfg {
		switch sc.Type {
		case "stdout":
			sinks = append(sinks, NewStdoutSink(nil))
		case "webhook":
			sinks = append(sinks, NewWebhookSink(sc.URL, logger))
		default:
			logger.Warn("promptnav: unknown sink type", "type", sc.Type)
		}
	}
	if len(sinks) == 0 {
		sinks = append(sinks, NewStdoutSink(nil))
	}
	return sinks
}
