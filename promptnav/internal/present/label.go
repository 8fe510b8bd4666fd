package present

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

const ellipsis = "..."

// Preview collapses whitespace in text and truncates it to max display
// cells, ending with an ellipsis when truncated. Wide runes count as two.
func Preview(text string, max int) string {
	flat := strings.Join(strings.Fields(text), " ")
	if max <= 0 || runewidth.StringWidth(flat) <= max {
		return flat
	}
	return runewidth.Truncate(flat, max, ellipsis)
}

// Label is the visible text of a jump link: one-based position and preview.
func Label(seq int, text string, max int) string {
	return fmt.Sprintf("%d. %s", seq+1, Preview(text, max))
}
