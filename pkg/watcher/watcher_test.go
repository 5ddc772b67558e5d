package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestClassify(t *testing.T) {
	fw, err := NewFileWatcher("/work/acme.org", "/pics")
	if err != nil {
		t.Fatalf("NewFileWatcher() error = %v", err)
	}
	defer fw.Stop()

	tests := []struct {
		event    fsnotify.Event
		want     ChangeType
		relevant bool
	}{
		{fsnotify.Event{Name: "/work/acme.org", Op: fsnotify.Write}, ChangeTypeOutline, true},
		{fsnotify.Event{Name: "/work/acme.org", Op: fsnotify.Create}, ChangeTypeOutline, true},
		{fsnotify.Event{Name: "/work/acme.org", Op: fsnotify.Chmod}, 0, false},
		{fsnotify.Event{Name: "/work/other.org", Op: fsnotify.Write}, 0, false},
		{fsnotify.Event{Name: "/pics/Alice Smith.jpeg", Op: fsnotify.Create}, ChangeTypePicture, true},
		{fsnotify.Event{Name: "/pics/notes.txt", Op: fsnotify.Write}, 0, false},
	}

	for _, tt := range tests {
		got, relevant := fw.classify(tt.event)
		if relevant != tt.relevant || got != tt.want {
			t.Errorf("classify(%s %s) = %v, %v; want %v, %v", tt.event.Op, tt.event.Name, got, relevant, tt.want, tt.relevant)
		}
	}
}

func TestFileWatcherReportsOutlineWrites(t *testing.T) {
	dir := t.TempDir()
	outline := filepath.Join(dir, "acme.org")
	if err := os.WriteFile(outline, []byte("Alice\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fw, err := NewFileWatcher(outline, "")
	if err != nil {
		t.Fatalf("NewFileWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := fw.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Unrelated files in the same directory are ignored
	if err := os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(outline, []byte("Alice\nBob\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-fw.Events():
		if ev.Type != ChangeTypeOutline {
			t.Errorf("event type = %v, want outline", ev.Type)
		}
		for _, p := range ev.Paths {
			if filepath.Base(p) != "acme.org" {
				t.Errorf("unexpected path %s", p)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}
