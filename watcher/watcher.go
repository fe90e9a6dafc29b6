package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"srcset/logger"
	"srcset/render"
)

// Watcher monitors source image folders for changes
type Watcher struct {
	watcher  *fsnotify.Watcher
	events   chan Event
	handler  Handler
	debounce time.Duration
	log      logger.Logger

	mu      sync.Mutex
	timers  map[string]*time.Timer
	files   map[string]bool
	dirs    map[string]bool
	stopped bool
}

// Handler is called for every debounced event
type Handler func(Event)

// Event represents a file system event
type Event struct {
	Type     EventType
	FilePath string
}

// EventType represents the type of file event
type EventType int

const (
	EventCreated EventType = iota
	EventModified
	EventDeleted
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// NewWatcher creates a new file watcher. A nil handler only feeds Events().
func NewWatcher(handler Handler, debounce time.Duration, log logger.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if log == nil {
		log = logger.GetDefault()
	}

	return &Watcher{
		watcher:  fsWatcher,
		events:   make(chan Event, 100),
		handler:  handler,
		debounce: debounce,
		log:      log,
		timers:   make(map[string]*time.Timer),
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
	}, nil
}

// Watch adds the folder of each file and limits events to those files.
// Passing a directory watches every image in it.
func (w *Watcher) Watch(paths ...string) error {
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", p, err)
		}

		dir := filepath.Dir(abs)
		w.mu.Lock()
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			dir = abs
			w.dirs[abs] = true
		} else {
			w.files[abs] = true
		}
		w.mu.Unlock()

		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch folder %s: %w", dir, err)
		}
		w.log.Debug("Watching folder", "dir", dir)
	}
	return nil
}

// Start begins processing events in the background
func (w *Watcher) Start() {
	go w.processEvents()
}

// processEvents handles fsnotify events and converts them to our event type
func (w *Watcher) processEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event.Name) {
				continue
			}

			// Debounce: editors write in several steps
			w.mu.Lock()
			if timer, exists := w.timers[event.Name]; exists {
				timer.Stop()
			}
			w.timers[event.Name] = time.AfterFunc(w.debounce, func() {
				w.mu.Lock()
				delete(w.timers, event.Name)
				w.mu.Unlock()
				w.handleEvent(event)
			})
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("Watcher error", "error", err)
		}
	}
}

// relevant filters to image files, skipping hidden temp files. Files in a
// folder watched as a whole always pass; otherwise only the named files do.
func (w *Watcher) relevant(name string) bool {
	if strings.HasPrefix(filepath.Base(name), ".") {
		return false
	}
	if !strings.HasPrefix(render.TypeByExtension(name), "image/") {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dirs[filepath.Dir(name)] || w.files[name]
}

// handleEvent processes a single file event
func (w *Watcher) handleEvent(event fsnotify.Event) {
	var eventType EventType

	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		eventType = EventCreated
	case event.Op&fsnotify.Write == fsnotify.Write:
		eventType = EventModified
	case event.Op&fsnotify.Remove == fsnotify.Remove, event.Op&fsnotify.Rename == fsnotify.Rename:
		eventType = EventDeleted
	default:
		return // Ignore chmod
	}

	ev := Event{Type: eventType, FilePath: event.Name}
	w.log.Debug("Source image changed", "file", event.Name, "type", eventType)

	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}

	select {
	case w.events <- ev:
	default:
		w.log.Warn("Dropping watcher event, channel full", "file", event.Name)
	}

	if w.handler != nil {
		w.handler(ev)
	}
}

// Events returns the event channel
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	for _, t := range w.timers {
		t.Stop()
	}
	w.mu.Unlock()

	return w.watcher.Close()
}
