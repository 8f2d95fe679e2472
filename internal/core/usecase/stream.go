package usecase

import (
	"sync"
	"time"

	"github.com/asemyonov/searchcore/internal/core/domain"
	"github.com/asemyonov/searchcore/internal/core/ports"
)

const defaultStreamBuffer = 256

// StreamController is the single-producer event channel the orchestrator
// publishes into. The orchestrator is the only writer; a single consumer
// drains Events. Publish never blocks the pipeline: when the buffer is
// full (a consumer that stopped reading) the event is dropped.
type StreamController struct {
	events chan domain.StreamEvent

	mu     sync.Mutex
	closed bool
}

func NewStreamController() *StreamController {
	return &StreamController{events: make(chan domain.StreamEvent, defaultStreamBuffer)}
}

// Publish implements ports.EventPublisher.
func (s *StreamController) Publish(event domain.StreamEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- event:
	default:
	}
}

// Events returns the consumer side of the channel. It is closed by Close.
func (s *StreamController) Events() <-chan domain.StreamEvent {
	return s.events
}

// Close ends the stream. Publishing after Close is a no-op.
func (s *StreamController) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}

// discardPublisher is used when a caller does not subscribe to events.
type discardPublisher struct{}

func (discardPublisher) Publish(domain.StreamEvent) {}

// MultiPublisher fans one event stream out to several sinks, typically
// the per-request StreamController plus a process-wide broker sink.
type MultiPublisher struct {
	sinks []ports.EventPublisher
}

func NewMultiPublisher(sinks ...ports.EventPublisher) *MultiPublisher {
	kept := make([]ports.EventPublisher, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			kept = append(kept, sink)
		}
	}
	return &MultiPublisher{sinks: kept}
}

// Publish implements ports.EventPublisher.
func (m *MultiPublisher) Publish(event domain.StreamEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	for _, sink := range m.sinks {
		sink.Publish(event)
	}
}
