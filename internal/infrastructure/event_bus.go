package infrastructure

import (
	"github.com/asaskevich/EventBus"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

// ProgressTopic carries (sessionID string, event domain.ProgressEvent)
const ProgressTopic = "progress"

// ProgressHandler receives every published progress event
type ProgressHandler func(sessionID string, event domain.ProgressEvent)

// EventBusPublisher implements domain.Publisher on top of an in-process event bus.
// Synchronous subscribers run on the publishing goroutine and must not block.
type EventBusPublisher struct {
	bus EventBus.Bus
}

// NewEventBusPublisher creates a publisher; a nil bus creates a fresh one
func NewEventBusPublisher(bus EventBus.Bus) *EventBusPublisher {
	if bus == nil {
		bus = EventBus.New()
	}
	return &EventBusPublisher{bus: bus}
}

// Publish fans the event out to all subscribers
func (p *EventBusPublisher) Publish(sessionID string, event domain.ProgressEvent) {
	p.bus.Publish(ProgressTopic, sessionID, event)
}

// Subscribe registers a synchronous handler
func (p *EventBusPublisher) Subscribe(handler ProgressHandler) error {
	return p.bus.Subscribe(ProgressTopic, (func(string, domain.ProgressEvent))(handler))
}

// SubscribeAsync registers a handler that runs on its own goroutine per event
func (p *EventBusPublisher) SubscribeAsync(handler ProgressHandler) error {
	return p.bus.SubscribeAsync(ProgressTopic, (func(string, domain.ProgressEvent))(handler), false)
}

// HasSubscribers reports whether any handler is registered
func (p *EventBusPublisher) HasSubscribers() bool {
	return p.bus.HasCallback(ProgressTopic)
}

// WaitAsync blocks until asynchronous handlers have returned
func (p *EventBusPublisher) WaitAsync() {
	p.bus.WaitAsync()
}
