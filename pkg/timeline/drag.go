package timeline

import "sync"

// PointerEvent is a pointer position in viewport coordinates.
type PointerEvent struct {
	X float64
	Y float64
}

// Listeners is a registry of pointer-move handlers. Handlers are attached only
// for the lifetime of a gesture.
type Listeners struct {
	mu       sync.Mutex
	next     int
	handlers map[int]func(PointerEvent)
}

// NewListeners returns an empty registry.
func NewListeners() *Listeners {
	return &Listeners{handlers: make(map[int]func(PointerEvent))}
}

// Subscribe attaches fn and returns a function that detaches it. The
// returned function is safe to call more than once.
func (l *Listeners) Subscribe(fn func(PointerEvent)) (unsubscribe func()) {
	l.mu.Lock()
	id := l.next
	l.next++
	l.handlers[id] = fn
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.handlers, id)
			l.mu.Unlock()
		})
	}
}

// Dispatch delivers ev to every attached handler.
func (l *Listeners) Dispatch(ev PointerEvent) {
	l.mu.Lock()
	fns := make([]func(PointerEvent), 0, len(l.handlers))
	for _, fn := range l.handlers {
		fns = append(fns, fn)
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Len returns the number of attached handlers.
func (l *Listeners) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.handlers)
}

// Drag is one active drag gesture. Its move handler stays attached until End
// is called.
type Drag struct {
	lastX       float64
	onMove      func(dx float64)
	onEnd       func(*Drag)
	unsubscribe func()
	ended       bool
}

// BeginDrag attaches a move handler to l that reports horizontal deltas from
// startX to onMove. onEnd, if set, runs once when the drag ends.
func BeginDrag(l *Listeners, startX float64, onMove func(dx float64), onEnd func(*Drag)) *Drag {
	d := &Drag{lastX: startX, onMove: onMove, onEnd: onEnd}
	d.unsubscribe = l.Subscribe(d.move)
	return d
}

func (d *Drag) move(ev PointerEvent) {
	if d.ended {
		return
	}
	dx := ev.X - d.lastX
	d.lastX = ev.X
	if dx != 0 && d.onMove != nil {
		d.onMove(dx)
	}
}

// Active reports whether the drag is still in progress.
func (d *Drag) Active() bool {
	return d != nil && !d.ended
}

// End detaches the move handler. Calling End more than once is a no-op.
func (d *Drag) End() {
	if d == nil || d.ended {
		return
	}
	d.ended = true
	d.unsubscribe()
	if d.onEnd != nil {
		d.onEnd(d)
	}
}
