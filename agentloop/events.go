package agentloop

import (
	"sync"
	"time"
)

// EventKind identifies the type of loop event.
type EventKind string

const (
	EventRunStart      EventKind = "run_start"
	EventRunEnd        EventKind = "run_end"
	EventTurnStart     EventKind = "turn_start"
	EventTurnEnd       EventKind = "turn_end"
	EventSummarize     EventKind = "summarize"
	EventCompletion    EventKind = "completion"
	EventReplayHit     EventKind = "replay_hit"
	EventToolCallStart EventKind = "tool_call_start"
	EventToolCallEnd   EventKind = "tool_call_end"
	EventBudget        EventKind = "budget"
	EventError         EventKind = "error"
)

// LoopEvent is a typed event emitted by the agent loop. Data never
// contains tool arguments or secret values; it holds names, ids,
// counters and flags, the run status, and for error events the error
// message.
type LoopEvent struct {
	Kind      EventKind      `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	Data      map[string]any `json:"data,omitempty"`
}

// EventEmitter delivers typed events to the host application via a channel.
type EventEmitter struct {
	runID  string
	ch     chan LoopEvent
	closed bool
	mu     sync.Mutex
}

// NewEventEmitter creates a new EventEmitter with a buffered channel.
func NewEventEmitter(runID string, bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventEmitter{
		runID: runID,
		ch:    make(chan LoopEvent, bufferSize),
	}
}

// Emit sends an event to the channel. If the emitter is nil or closed,
// the event is silently dropped.
func (e *EventEmitter) Emit(kind EventKind, data map[string]any) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	event := LoopEvent{
		Kind:      kind,
		Timestamp: time.Now(),
		RunID:     e.runID,
		Data:      data,
	}
	select {
	case e.ch <- event:
	default:
		// Channel full; drop event to avoid blocking the loop.
	}
}

// Events returns the read-only event channel.
func (e *EventEmitter) Events() <-chan LoopEvent {
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
