package client

import "sync"

// Status is the client engine's externally observable state (spec.md §4.1
// State).
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusError   Status = "error"
	StatusOffline Status = "offline"
)

// Event names the engine fans out to its subscribers (spec.md §9 Design
// Notes).
const (
	EventStatusChange         = "status-change"
	EventBlocksUpdated        = "blocks-updated"
	EventTomorrowTasksUpdated = "tomorrow-tasks-updated"
	EventSettingsUpdated      = "settings-updated"
	EventConflictDetected     = "conflict-detected"
	EventError                = "error"
)

// Handler receives one emitted event's payload. Payload shape depends on
// event: Status for status-change, []Block for blocks-updated, []TomorrowTask
// for tomorrow-tasks-updated, Settings for settings-updated, Conflict for
// conflict-detected, error for error.
type Handler func(payload any)

// Subject is a plain observer list: Subscribe registers a handler, emit
// delivers to every registered handler in registration order, and the
// returned unsubscribe func removes it. It carries no capability beyond
// that, per spec.md §9 — adapted from the teacher's EventEmitter interface,
// generalized to support more than one subscriber per event.
type Subject struct {
	mu       sync.Mutex
	nextID   int
	handlers map[string][]subscriber
}

type subscriber struct {
	id      int
	handler Handler
}

func NewSubject() *Subject {
	return &Subject{handlers: make(map[string][]subscriber)}
}

// Subscribe registers handler for event, returning a func that removes it.
func (s *Subject) Subscribe(event string, handler Handler) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.handlers[event] = append(s.handlers[event], subscriber{id: id, handler: handler})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.handlers[event]
		for i, sub := range subs {
			if sub.id == id {
				s.handlers[event] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// emit calls every handler registered for event, in registration order,
// synchronously — callers depend on this to honor spec.md §5's ordering
// guarantee (status-change, then data events, then status-change(idle)).
func (s *Subject) emit(event string, payload any) {
	s.mu.Lock()
	subs := make([]subscriber, len(s.handlers[event]))
	copy(subs, s.handlers[event])
	s.mu.Unlock()

	for _, sub := range subs {
		sub.handler(payload)
	}
}
