package domtest

import (
	"context"
	"errors"
	"sync"

	"github.com/hazyhaar/promptnav/promptnav/internal/dom"
)

// Surface records what the presenter renders.
type Surface struct {
	mu        sync.Mutex
	links     []dom.Link
	mounted   bool
	onSelect  func(string)
	failMount bool
	appends   int
	clears    int
}

// NewSurface returns an unmounted surface.
func NewSurface() *Surface { return &Surface{} }

// FailMount makes Mount return an error.
func (s *Surface) FailMount() {
	s.mu.Lock()
	s.failMount = true
	s.mu.Unlock()
}

// Links returns the rendered links in order.
func (s *Surface) Links() []dom.Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]dom.Link(nil), s.links...)
}

// Mounted reports whether the container is attached.
func (s *Surface) Mounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted
}

// Counts returns how many Append and Clear calls were made.
func (s *Surface) Counts() (appends, clears int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appends, s.clears
}

// Click simulates the user picking the link with the given ID.
func (s *Surface) Click(id string) {
	s.mu.Lock()
	fn := s.onSelect
	s.mu.Unlock()
	if fn != nil {
		fn(id)
	}
}

func (s *Surface) Mount(_ context.Context, onSelect func(string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failMount {
		return errors.New("domtest: mount failed")
	}
	s.mounted = true
	s.onSelect = onSelect
	s.links = nil
	return nil
}

func (s *Surface) Append(_ context.Context, links []dom.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appends++
	s.links = append(s.links, links...)
	return nil
}

func (s *Surface) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	s.links = nil
	return nil
}

func (s *Surface) Unmount(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounted = false
	s.onSelect = nil
	s.links = nil
	return nil
}

func (s *Surface) Container() string { return "#promptnav-test" }
