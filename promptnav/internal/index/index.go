// Package index maintains the ordered, identity-deduplicated set of prompts
// discovered on a page.
//
// Entries are keyed by node identity, never by text. Sequence positions are
// assigned in discovery order, are never reassigned, and are never reused
// for the lifetime of the index (until Reset). Cached text is captured once
// at discovery and never refreshed, so navigation labels stay stable while
// a streaming reply keeps mutating the page.
//
// An Index is not safe for concurrent use; its owner serialises calls.
package index

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/promptnav/promptnav/internal/dom"
)

// Candidate is a node found by the extractor with its trimmed text.
type Candidate struct {
	Node dom.Node
	Text string
}

// Entry is one indexed prompt.
type Entry struct {
	Node dom.Node
	Seq  int
	Text string
	ID   string
}

// Index is the canonical node → entry mapping.
type Index struct {
	entries []*Entry
	byNode  map[dom.Node]*Entry
	byID    map[string]*Entry
	next    int
}

// New returns an empty index.
func New() *Index {
	return &Index{
		byNode: make(map[dom.Node]*Entry),
		byID:   make(map[string]*Entry),
	}
}

// EntryID returns the external identifier for a sequence position.
func EntryID(seq int) string {
	return fmt.Sprintf("prompt-%d", seq)
}

// Reconcile merges candidates into the index and returns the new entries in
// candidate order. Known nodes are skipped without touching their cached
// text; candidates whose trimmed text is empty are skipped.
func (x *Index) Reconcile(candidates []Candidate) []Entry {
	var added []Entry
	for _, c := range candidates {
		if _, ok := x.byNode[c.Node]; ok {
			continue
		}
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		e := &Entry{
			Node: c.Node,
			Seq:  x.next,
			Text: c.Text,
			ID:   EntryID(x.next),
		}
		x.next++
		x.entries = append(x.entries, e)
		x.byNode[e.Node] = e
		x.byID[e.ID] = e
		added = append(added, *e)
	}
	return added
}

// Prune drops every entry for which keep returns false and returns the
// removed entries. Surviving entries keep their Seq and ID, and removed
// positions are not reused.
func (x *Index) Prune(keep func(dom.Node) bool) []Entry {
	var removed []Entry
	kept := x.entries[:0]
	for _, e := range x.entries {
		if keep(e.Node) {
			kept = append(kept, e)
			continue
		}
		delete(x.byNode, e.Node)
		delete(x.byID, e.ID)
		removed = append(removed, *e)
	}
	for i := len(kept); i < len(x.entries); i++ {
		x.entries[i] = nil
	}
	x.entries = kept
	return removed
}

// Reset clears every entry and restarts the sequence at zero. Handles held
// by the index are dropped wholesale.
func (x *Index) Reset() {
	x.entries = nil
	x.byNode = make(map[dom.Node]*Entry)
	x.byID = make(map[string]*Entry)
	x.next = 0
}

// All returns a snapshot of the entries in sequence order.
func (x *Index) All() []Entry {
	out := make([]Entry, len(x.entries))
	for i, e := range x.entries {
		out[i] = *e
	}
	return out
}

// Lookup returns the entry with the given ID.
func (x *Index) Lookup(id string) (Entry, bool) {
	e, ok := x.byID[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Contains reports whether n is indexed.
func (x *Index) Contains(n dom.Node) bool {
	_, ok := x.byNode[n]
	return ok
}

// Len returns the number of entries.
func (x *Index) Len() int { return len(x.entries) }
