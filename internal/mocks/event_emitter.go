package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/taskflow-api/internal/events"
)

// RecordingEmitter implements events.EventEmitter by recording every event.
type RecordingEmitter struct {
	mu     sync.Mutex
	events []*events.TaskEvent

	// Err is returned from every EmitEvent call.
	Err error
}

var _ events.EventEmitter = (*RecordingEmitter)(nil)

func (e *RecordingEmitter) EmitEvent(_ context.Context, event *events.TaskEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return e.Err
}

// Events returns a copy of the recorded events in emit order.
func (e *RecordingEmitter) Events() []*events.TaskEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*events.TaskEvent, len(e.events))
	copy(out, e.events)
	return out
}

// Kinds returns the kinds of the recorded events in emit order.
func (e *RecordingEmitter) Kinds() []events.Kind {
	evs := e.Events()
	kinds := make([]events.Kind, len(evs))
	for i, ev := range evs {
		kinds[i] = ev.Kind
	}
	return kinds
}
