package watch

import (
	"errors"

	"github.com/hupe1980/deployctl/internal/deps"
)

// errNotBound is returned by Rebind before the first Bind.
var errNotBound = errors.New("stream not bound")

// Stream is the current sequence of change events for a dependency set.
// Consumers read Events without caring whether the subscription underneath
// was just replaced. A Stream is owned by one goroutine.
type Stream struct {
	watcher Watcher
	sub     Subscription
	paths   deps.Set
}

// NewStream returns an unbound stream.
func NewStream(w Watcher) *Stream {
	return &Stream{watcher: w}
}

// Bind subscribes to paths. Failures are returned as *WatcherError.
func (s *Stream) Bind(paths deps.Set) error {
	sub, err := s.watcher.Watch(paths)
	if err != nil {
		return &WatcherError{Err: err}
	}

	s.sub = sub
	s.paths = paths

	return nil
}

// Rebind switches the stream to a new set of paths. The new subscription is
// live before the old one is released, so no change goes unobserved. Events
// still queued on the old subscription are returned when they concern a file
// of the new set; the caller treats them like fresh events.
func (s *Stream) Rebind(paths deps.Set) ([]Event, error) {
	if s.sub == nil {
		return nil, errNotBound
	}

	next, err := s.watcher.Watch(paths)
	if err != nil {
		return nil, &WatcherError{Err: err}
	}

	old := s.sub
	s.sub = next
	s.paths = paths

	carried := drain(old.Events(), paths)
	_ = old.Close()
	carried = append(carried, drain(old.Events(), paths)...)

	return carried, nil
}

// Events returns the event channel of the current subscription.
func (s *Stream) Events() <-chan Event {
	if s.sub == nil {
		return nil
	}

	return s.sub.Events()
}

// Errors returns the error channel of the current subscription.
func (s *Stream) Errors() <-chan error {
	if s.sub == nil {
		return nil
	}

	return s.sub.Errors()
}

// Paths returns the set the stream is currently bound to.
func (s *Stream) Paths() deps.Set { return s.paths }

// Close releases the current subscription.
func (s *Stream) Close() error {
	if s.sub == nil {
		return nil
	}

	err := s.sub.Close()
	s.sub = nil

	return err
}

// drain reads whatever is buffered on ch without blocking and keeps the
// events that belong to paths.
func drain(ch <-chan Event, paths deps.Set) []Event {
	var out []Event

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}

			if paths.Has(ev.Path) {
				out = append(out, ev)
			}
		default:
			return out
		}
	}
}
