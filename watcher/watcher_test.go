package watcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"srcset/logger"
)

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()
	imgDir := filepath.Join(tmpDir, "images")
	if err := os.MkdirAll(imgDir, 0755); err != nil {
		t.Fatalf("Failed to create folder: %v", err)
	}

	var calls atomic.Int32
	w, err := NewWatcher(func(Event) { calls.Add(1) }, 50*time.Millisecond, logger.NewForTests())
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	defer w.Stop()

	if err := w.Watch(imgDir); err != nil {
		t.Fatalf("Failed to watch: %v", err)
	}
	w.Start()

	// Non-image files are ignored
	if err := os.WriteFile(filepath.Join(imgDir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	testFile := filepath.Join(imgDir, "logo.png")
	if err := os.WriteFile(testFile, []byte("png"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	// Could be Create or Write depending on OS
	select {
	case event := <-w.Events():
		if event.Type != EventCreated && event.Type != EventModified {
			t.Errorf("Expected EventCreated or EventModified, got %v", event.Type)
		}
		if event.FilePath != testFile {
			t.Errorf("Expected filepath %s, got %s", testFile, event.FilePath)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for event")
	}

	if calls.Load() == 0 {
		t.Error("Expected handler to be called")
	}
}

func TestWatcherFileFilter(t *testing.T) {
	tmpDir := t.TempDir()
	watched := filepath.Join(tmpDir, "hero.jpg")
	other := filepath.Join(tmpDir, "other.jpg")
	if err := os.WriteFile(watched, []byte("a"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	w, err := NewWatcher(nil, 20*time.Millisecond, logger.NewForTests())
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	defer w.Stop()

	if err := w.Watch(watched); err != nil {
		t.Fatalf("Failed to watch: %v", err)
	}

	if !w.relevant(watched) {
		t.Error("Expected watched file to be relevant")
	}
	if w.relevant(other) {
		t.Error("Expected sibling file to be ignored")
	}
	if w.relevant(filepath.Join(tmpDir, ".hero.jpg.swp")) {
		t.Error("Expected hidden temp file to be ignored")
	}
}

func TestEventTypeString(t *testing.T) {
	tests := map[EventType]string{
		EventCreated:  "created",
		EventModified: "modified",
		EventDeleted:  "deleted",
		EventType(9):  "unknown",
	}
	for typ, want := range tests {
		if got := typ.String(); got != want {
			t.Errorf("EventType(%d).String() = %q, want %q", typ, got, want)
		}
	}
}

func TestStopTwice(t *testing.T) {
	w, err := NewWatcher(nil, time.Millisecond, nil)
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("First stop failed: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Second stop should be a no-op, got %v", err)
	}
}
