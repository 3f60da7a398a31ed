package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileFilters(t *testing.T) {
	tests := []struct {
		path   string
		scene  bool
		script bool
	}{
		{"scenes/flat.yaml", true, false},
		{"scenes/FLAT.YML", true, false},
		{"scripts/walk.tengo", false, true},
		{"scripts/walk.lua", false, false},
		{"trace.jsonl", false, false},
		{"yaml", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsSceneFile(tt.path); got != tt.scene {
				t.Fatalf("IsSceneFile = %v, want %v", got, tt.scene)
			}
			if got := IsScriptFile(tt.path); got != tt.script {
				t.Fatalf("IsScriptFile = %v, want %v", got, tt.script)
			}
		})
	}
}

func TestWatcherReportsSceneWrites(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	scenePath := filepath.Join(dir, "flat.yaml")
	if err := os.WriteFile(scenePath, []byte("name: flat\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case got := <-w.Events:
		if got != scenePath {
			t.Fatalf("event = %q, want %q", got, scenePath)
		}
	case err := <-w.Errors:
		t.Fatalf("watch error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", scenePath)
	}
}

func TestWatcherCloseClosesChannels(t *testing.T) {
	w, err := NewWatcher(t.TempDir())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if _, ok := <-w.Events; ok {
		t.Fatalf("Events still open after Close")
	}
	if _, ok := <-w.Errors; ok {
		t.Fatalf("Errors still open after Close")
	}
}

func TestNewWatcherMissingDir(t *testing.T) {
	if _, err := NewWatcher(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected error for a missing directory")
	}
}
