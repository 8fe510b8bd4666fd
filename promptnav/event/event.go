// Package event defines the structured types promptnav emits when its
// prompt index changes or a prompt is selected. Consumers (sinks, the
// control API, MCP clients) import this package to read them.
package event

// Prompt is the public view of an index entry. The node handle stays
// internal: it is meaningless outside the page session that issued it.
type Prompt struct {
	ID   string `json:"id"`  // prompt-<seq>
	Seq  int    `json:"seq"` // discovery position, never reused
	Text string `json:"text"`
}

// Update is emitted after a reconciliation pass changed the index.
type Update struct {
	ID        string   `json:"id"`      // UUIDv7
	SessionID string   `json:"session"` // navigator instance
	PageURL   string   `json:"page_url,omitempty"`
	Seq       uint64   `json:"seq"` // monotonically increasing per session
	Added     []Prompt `json:"added,omitempty"`
	Removed   []string `json:"removed,omitempty"` // IDs pruned after detaching
	Total     int      `json:"total"`
	Timestamp int64    `json:"timestamp"` // epoch milliseconds
}

// Reason explains why the index was reset.
type Reason string

const (
	ReasonManual   Reason = "manual"
	ReasonNavigate Reason = "navigate" // SPA route change
	ReasonReload   Reason = "reload"   // document replaced
)

// Reset is emitted when the index was cleared.
type Reset struct {
	ID        string `json:"id"`
	SessionID string `json:"session"`
	PageURL   string `json:"page_url,omitempty"`
	Seq       uint64 `json:"seq"`
	Reason    Reason `json:"reason"`
	Dropped   int    `json:"dropped"`
	Timestamp int64  `json:"timestamp"`
}

// Selection is emitted when a prompt was scrolled to and highlighted.
type Selection struct {
	ID        string `json:"id"`
	SessionID string `json:"session"`
	Seq       uint64 `json:"seq"`
	Prompt    Prompt `json:"prompt"`
	Source    string `json:"source"` // overlay, http, mcp
	Timestamp int64  `json:"timestamp"`
}
