package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/orgviz/pkg/logging"
	"github.com/ritzau/orgviz/pkg/pictures"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	ChangeTypeOutline ChangeType = iota
	ChangeTypePicture
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeOutline:
		return "outline"
	case ChangeTypePicture:
		return "picture"
	}
	return "unknown"
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// batchDelay groups the burst of events an editor produces on save
const batchDelay = 100 * time.Millisecond

// FileWatcher watches an outline file, and optionally a profile picture
// directory, for changes
type FileWatcher struct {
	watcher    *fsnotify.Watcher
	outline    string
	pictureDir string
	events     chan ChangeEvent
	stopOnce   sync.Once
}

// NewFileWatcher creates a new file system watcher. pictureDir may be empty.
func NewFileWatcher(outline, pictureDir string) (*FileWatcher, error) {
	outline, err := filepath.Abs(outline)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", outline, err)
	}
	if pictureDir != "" {
		if pictureDir, err = filepath.Abs(pictureDir); err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", pictureDir, err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher:    watcher,
		outline:    outline,
		pictureDir: pictureDir,
		events:     make(chan ChangeEvent, 100),
	}

	return fw, nil
}

// Start begins watching for file changes
func (fw *FileWatcher) Start(ctx context.Context) error {
	// Editors replace files on save, so the directory is watched rather
	// than the file itself
	dir := filepath.Dir(fw.outline)
	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logging.Info("started watching outline", "path", fw.outline)

	if fw.pictureDir != "" {
		if err := fw.watchPictures(); err != nil {
			logging.Warn("failed to watch profile pictures", "error", err)
		}
	}

	// Process events
	go fw.processEvents(ctx)

	return nil
}

// watchPictures watches the profile picture directory if it exists
func (fw *FileWatcher) watchPictures() error {
	if _, err := os.Stat(fw.pictureDir); os.IsNotExist(err) {
		logging.Info("profile picture directory does not exist, skipping", "path", fw.pictureDir)
		return nil
	}

	if fw.pictureDir == filepath.Dir(fw.outline) {
		return nil
	}

	if err := fw.watcher.Add(fw.pictureDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", fw.pictureDir, err)
	}

	logging.Info("monitoring profile pictures", "path", fw.pictureDir)
	return nil
}

// classify maps a file system event onto a change type
func (fw *FileWatcher) classify(event fsnotify.Event) (ChangeType, bool) {
	if event.Op == fsnotify.Chmod {
		return 0, false
	}

	path := filepath.Clean(event.Name)
	if path == fw.outline {
		return ChangeTypeOutline, true
	}

	if fw.pictureDir != "" && filepath.Dir(path) == fw.pictureDir &&
		strings.EqualFold(filepath.Ext(path), pictures.Extension) {
		return ChangeTypePicture, true
	}

	return 0, false
}

// processEvents processes file system events and batches them by type
func (fw *FileWatcher) processEvents(ctx context.Context) {
	// Batch events to avoid sending one event per file
	pending := make(map[ChangeType][]string)

	flushTimer := time.NewTimer(batchDelay)
	flushTimer.Stop()

	flush := func() {
		for _, t := range []ChangeType{ChangeTypeOutline, ChangeTypePicture} {
			if paths := pending[t]; len(paths) > 0 {
				fw.events <- ChangeEvent{
					Type:      t,
					Paths:     paths,
					Timestamp: time.Now(),
				}
			}
		}
		pending = make(map[ChangeType][]string)
	}

	defer close(fw.events)

	for {
		select {
		case <-ctx.Done():
			fw.Stop()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			t, relevant := fw.classify(event)
			if !relevant {
				continue
			}
			logging.Trace("file changed", "path", event.Name, "op", event.Op.String())
			pending[t] = append(pending[t], event.Name)
			flushTimer.Reset(batchDelay)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher. It is safe to call more than once.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		err = fw.watcher.Close()
	})
	return err
}
