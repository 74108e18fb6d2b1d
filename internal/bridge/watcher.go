package bridge

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"respondo/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// SnapshotWatcher signals when a snapshot file is rewritten.
// Editors and browsers often replace the file instead of writing it in place, so the
// parent directory is watched and events are filtered by name.
type SnapshotWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	path        string
	changes     chan struct{}
	pending     bool
	lastEvent   time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewSnapshotWatcher creates a watcher for path. Call Start to begin watching.
func NewSnapshotWatcher(path string) (*SnapshotWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve snapshot path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &SnapshotWatcher{
		watcher:     w,
		path:        abs,
		changes:     make(chan struct{}, 1),
		debounceDur: 200 * time.Millisecond, // coalesce save bursts
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// WatchSnapshot creates and starts a watcher for path.
func WatchSnapshot(ctx context.Context, path string) (*SnapshotWatcher, error) {
	w, err := NewSnapshotWatcher(path)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		_ = w.watcher.Close()
		return nil, err
	}
	return w, nil
}

// Changes delivers one value per settled burst of writes. A slow reader sees at most one
// pending signal.
func (w *SnapshotWatcher) Changes() <-chan struct{} {
	return w.changes
}

// Start begins watching. It is non-blocking.
func (w *SnapshotWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logging.Bridge("watching snapshot %s", w.path)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *SnapshotWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.BridgeWarn("snapshot watcher close: %v", err)
	}
}

func (w *SnapshotWatcher) run(ctx context.Context) {
	defer close(w.doneCh)

	debounceTicker := time.NewTicker(50 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.BridgeWarn("snapshot watcher error: %v", err)

		case <-debounceTicker.C:
			w.flush()
		}
	}
}

func (w *SnapshotWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	logging.BridgeDebug("snapshot event %s for %s", event.Op, event.Name)

	w.mu.Lock()
	w.pending = true
	w.lastEvent = time.Now()
	w.mu.Unlock()
}

func (w *SnapshotWatcher) flush() {
	w.mu.Lock()
	ready := w.pending && time.Since(w.lastEvent) >= w.debounceDur
	if ready {
		w.pending = false
	}
	w.mu.Unlock()

	if !ready {
		return
	}
	select {
	case w.changes <- struct{}{}:
	default:
	}
}
