package watch

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/hupe1980/deployctl/internal/deps"
)

// Event is a change to one watched file.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Subscription delivers change events for a fixed set of paths until it is
// closed.
type Subscription interface {
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}

// Watcher creates subscriptions for sets of paths.
type Watcher interface {
	Watch(paths deps.Set) (Subscription, error)
}

// WatcherError reports that a filesystem subscription could not be created.
type WatcherError struct {
	Err error
}

func (e *WatcherError) Error() string { return fmt.Sprintf("watching dependencies: %v", e.Err) }

func (e *WatcherError) Unwrap() error { return e.Err }

// FSWatcher watches files with fsnotify. It subscribes to the parent
// directories of the requested files so that editors replacing a file via
// rename are still observed, and filters events back down to the set.
type FSWatcher struct {
	// Buffer is the capacity of each subscription's event channel.
	Buffer int
}

// NewFSWatcher returns an fsnotify based Watcher.
func NewFSWatcher() *FSWatcher {
	return &FSWatcher{Buffer: 64}
}

// Watch implements Watcher.
func (w *FSWatcher) Watch(paths deps.Set) (Subscription, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	dirs := make(map[string]struct{})
	for _, p := range paths.Sorted() {
		dirs[filepath.Dir(p)] = struct{}{}
	}

	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("watching directory %q: %w", dir, err)
		}
	}

	sub := &fsSubscription{
		watcher: fw,
		paths:   paths,
		events:  make(chan Event, w.Buffer),
		errors:  make(chan error, 1),
		quit:    make(chan struct{}),
	}

	sub.wg.Add(1)

	go sub.pump()

	return sub, nil
}

type fsSubscription struct {
	watcher *fsnotify.Watcher
	paths   deps.Set
	events  chan Event
	errors  chan error
	quit    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func (s *fsSubscription) Events() <-chan Event { return s.events }

func (s *fsSubscription) Errors() <-chan error { return s.errors }

// Close stops delivery and waits for the pump goroutine to exit. Events
// already buffered stay readable.
func (s *fsSubscription) Close() error {
	var err error

	s.once.Do(func() {
		close(s.quit)
		err = s.watcher.Close()
		s.wg.Wait()
	})

	return err
}

func (s *fsSubscription) pump() {
	defer s.wg.Done()

	for {
		select {
		case <-s.quit:
			return

		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}

			if !isRelevant(ev) || !s.paths.Has(ev.Name) {
				continue
			}

			select {
			case s.events <- Event{Path: filepath.Clean(ev.Name), Op: ev.Op}:
			case <-s.quit:
				return
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}

			select {
			case s.errors <- err:
			case <-s.quit:
				return
			default:
				// An error is already waiting to be read.
			}
		}
	}
}

// isRelevant filters out events that do not change file contents.
func isRelevant(event fsnotify.Event) bool {
	if event.Op == 0 {
		return false
	}

	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
