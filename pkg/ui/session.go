package ui

import (
	"sync"

	"github.com/vanderheijden86/incidentline/pkg/timeline"
)

// session holds the state engine callbacks write to. Model is copied on
// every Update, so anything a callback touches lives behind this pointer.
type session struct {
	size    timeline.Size
	resize  *resizeHub
	pending []timeline.Selection
}

func newSession() *session {
	return &session{resize: newResizeHub()}
}

func (s *session) measure() timeline.Size {
	return s.size
}

// takeSelections returns and clears the selections forwarded since the last
// call.
func (s *session) takeSelections() []timeline.Selection {
	out := s.pending
	s.pending = nil
	return out
}

// resizeHub fans terminal resizes out to registered observers. It is the
// timeline.ResizeSource of the viewer.
type resizeHub struct {
	mu   sync.Mutex
	next int
	fns  map[int]func()
}

func newResizeHub() *resizeHub {
	return &resizeHub{fns: make(map[int]func())}
}

// OnResize implements timeline.ResizeSource.
func (h *resizeHub) OnResize(fn func()) (unregister func()) {
	h.mu.Lock()
	id := h.next
	h.next++
	h.fns[id] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.fns, id)
		h.mu.Unlock()
	}
}

func (h *resizeHub) fire() {
	h.mu.Lock()
	fns := make([]func(), 0, len(h.fns))
	for _, fn := range h.fns {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (h *resizeHub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.fns)
}
