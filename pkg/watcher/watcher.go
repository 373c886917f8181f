// Package watcher reports changes to an incident file so the timeline can
// reload it. It uses fsnotify where possible and falls back to polling on
// remote filesystems or when IL_FORCE_POLL is set.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanderheijden86/incidentline/pkg/debug"
)

// DefaultPollInterval is the stat interval in polling mode.
const DefaultPollInterval = 2 * time.Second

var (
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// EventKind tells what happened to the watched file.
type EventKind int

const (
	// EventChanged means the file was written, created or replaced.
	EventChanged EventKind = iota
	// EventRemoved means the file is gone.
	EventRemoved
	// EventError carries a watch failure in Err.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventChanged:
		return "changed"
	case EventRemoved:
		return "removed"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is delivered on the Events channel.
type Event struct {
	Kind EventKind
	Path string
	Time time.Time
	Err  error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the window that coalesces bursts of writes.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithPollInterval sets the stat interval used in polling mode.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithForcePoll skips fsnotify entirely.
func WithForcePoll(force bool) Option {
	return func(w *Watcher) { w.forcePoll = force }
}

// Watcher monitors one incident file.
type Watcher struct {
	path         string
	debounce     time.Duration
	pollInterval time.Duration
	forcePoll    bool

	mu        sync.Mutex
	started   bool
	polling   bool
	fsType    FilesystemType
	cancel    context.CancelFunc
	fsw       *fsnotify.Watcher
	debouncer *Debouncer
	lastMod   time.Time
	lastSize  int64

	events chan Event
}

// New returns a Watcher for path. Nothing is watched until Start.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		path:         abs,
		debounce:     DefaultDebounceDuration,
		pollInterval: DefaultPollInterval,
		fsType:       FSTypeUnknown,
		events:       make(chan Event, 4),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debouncer = NewDebouncer(w.debounce)
	return w, nil
}

// Start begins watching until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	info, err := os.Stat(w.path)
	switch {
	case err == nil:
		w.lastMod, w.lastSize = info.ModTime(), info.Size()
	case os.IsPermission(err):
		return ErrPermission
	default:
		// Not created yet; the first write shows up as a change.
		w.lastMod, w.lastSize = time.Time{}, 0
	}

	w.fsType = DetectFilesystemType(w.path)
	w.polling = w.forcePoll || envBool("IL_FORCE_POLL") || isRemoteFilesystem(w.fsType)

	ctx, w.cancel = context.WithCancel(ctx)

	if !w.polling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			// The directory is watched so atomic rename-over saves are seen.
			err = fsw.Add(filepath.Dir(w.path))
			if err != nil {
				fsw.Close()
			}
		}
		if err != nil {
			debug.Log("watcher: fsnotify unavailable for %s, polling: %v", w.path, err)
			w.polling = true
		} else {
			w.fsw = fsw
			go w.runNotify(ctx, fsw)
		}
	}
	if w.polling {
		go w.runPoll(ctx)
	}

	debug.Log("watcher: watching %s (fs=%s polling=%v)", w.path, w.fsType, w.polling)
	w.started = true
	return nil
}

// Stop ends watching. The Events channel stays open so a pending receive
// does not observe a spurious close.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	w.cancel()
	if w.fsw != nil {
		w.fsw.Close()
		w.fsw = nil
	}
	w.debouncer.Cancel()
	w.started = false
}

// Events delivers change notifications.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Path returns the absolute watched path.
func (w *Watcher) Path() string {
	return w.path
}

// IsStarted reports whether the watcher is running.
func (w *Watcher) IsStarted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}

// IsPolling reports whether polling mode is in use.
func (w *Watcher) IsPolling() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polling
}

// FilesystemType returns the classification made at Start.
func (w *Watcher) FilesystemType() FilesystemType {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fsType
}

func (w *Watcher) runNotify(ctx context.Context, fsw *fsnotify.Watcher) {
	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			switch {
			case ev.Has(fsnotify.Remove):
				w.emit(Event{Kind: EventRemoved, Err: ErrFileRemoved})
			case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create), ev.Has(fsnotify.Rename):
				w.debouncer.Trigger(w.changed)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.emit(Event{Kind: EventError, Err: err})
		}
	}
}

func (w *Watcher) runPoll(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		info, err := os.Stat(w.path)
		if err != nil {
			switch {
			case os.IsNotExist(err):
				w.mu.Lock()
				existed := !w.lastMod.IsZero()
				w.lastMod, w.lastSize = time.Time{}, 0
				w.mu.Unlock()
				if existed {
					w.emit(Event{Kind: EventRemoved, Err: ErrFileRemoved})
				}
			case os.IsPermission(err):
				w.emit(Event{Kind: EventError, Err: ErrPermission})
			default:
				w.emit(Event{Kind: EventError, Err: err})
			}
			continue
		}

		w.mu.Lock()
		changed := !info.ModTime().Equal(w.lastMod) || info.Size() != w.lastSize
		w.lastMod, w.lastSize = info.ModTime(), info.Size()
		w.mu.Unlock()

		if changed {
			w.debouncer.Trigger(w.changed)
		}
	}
}

func (w *Watcher) changed() {
	w.emit(Event{Kind: EventChanged})
}

// emit delivers ev unless the watcher is stopped. Change events are coalesced
// when the consumer lags; any queued event already implies a reload.
func (w *Watcher) emit(ev Event) {
	if !w.IsStarted() {
		return
	}
	ev.Path = w.path
	ev.Time = time.Now()
	select {
	case w.events <- ev:
	default:
		debug.Log("watcher: dropped %s event for %s, consumer busy", ev.Kind, w.path)
	}
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
