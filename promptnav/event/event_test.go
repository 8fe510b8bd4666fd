package event

import (
	"strings"
	"testing"
)

func TestUpdateRoundtrip(t *testing.T) {
	u := &Update{
		ID:        "01234567-89ab-cdef-0123-456789abcdef",
		SessionID: "nav-1",
		Seq:       3,
		Added:     []Prompt{{ID: "prompt-4", Seq: 4, Text: "why?"}},
		Total:     5,
		Timestamp: 1708700000000,
	}

	data, err := MarshalUpdate(u)
	if err != nil {
		t.Fatal(err)
	}
	got, err := UnmarshalUpdate(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Seq != u.Seq || got.Total != u.Total {
		t.Errorf("got seq=%d total=%d", got.Seq, got.Total)
	}
	if len(got.Added) != 1 || got.Added[0] != u.Added[0] {
		t.Errorf("Added: got %+v", got.Added)
	}
}

func TestUpdateOmitsEmptyLists(t *testing.T) {
	data, err := MarshalUpdate(&Update{ID: "x", Total: 0})
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if strings.Contains(s, "added") || strings.Contains(s, "removed") {
		t.Errorf("empty lists should be omitted: %s", s)
	}
}

func TestMarshalPrompts_NilIsArray(t *testing.T) {
	data, err := MarshalPrompts(nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Errorf("got %s, want []", data)
	}
}
