package agent

import (
	"sync"
	"time"
)

// EventKind identifies the type of engine event.
type EventKind string

const (
	EventUserInput         EventKind = "user_input"
	EventAssistantResponse EventKind = "assistant_response"
	EventCommandStart      EventKind = "command_start"
	EventCommandEnd        EventKind = "command_end"
	EventProtocolRetry     EventKind = "protocol_retry"
	EventCheckpointCreated EventKind = "checkpoint_created"
	EventCheckpointFailed  EventKind = "checkpoint_failed"
	EventPruned            EventKind = "pruned"
	EventLoopDetected      EventKind = "loop_detected"
	EventWarning           EventKind = "warning"
	EventError             EventKind = "error"
	EventTurnComplete      EventKind = "turn_complete"
)

// Event is a typed notification emitted by the engine.
type Event struct {
	Kind      EventKind              `json:"kind"`
	Timestamp time.Time              `json:"timestamp"`
	SessionID string                 `json:"session_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventEmitter delivers typed events to the host application via a channel.
type EventEmitter struct {
	sessionID string
	ch        chan Event
	closed    bool
	mu        sync.Mutex
}

// NewEventEmitter creates an EventEmitter with a buffered channel.
func NewEventEmitter(sessionID string, bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventEmitter{
		sessionID: sessionID,
		ch:        make(chan Event, bufferSize),
	}
}

// Emit sends an event to the channel. Closed emitters and full channels
// drop the event rather than block the step loop.
func (e *EventEmitter) Emit(kind EventKind, data map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	event := Event{
		Kind:      kind,
		Timestamp: time.Now(),
		SessionID: e.sessionID,
		Data:      data,
	}
	select {
	case e.ch <- event:
	default:
	}
}

// Events returns the read-only event channel.
func (e *EventEmitter) Events() <-chan Event {
	return e.ch
}

// Close closes the event channel. Safe to call multiple times.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}
