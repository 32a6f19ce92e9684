package manager

import (
	"time"

	"vramd/pkg/types"
)

// Event names.
const (
	EventModelLoaded       = "model.loaded"
	EventModelUnloaded     = "model.unloaded"
	EventModelLoadFailed   = "model.load_failed"
	EventModelUnloadFailed = "model.unload_failed"
	EventLoadRejected      = "load.rejected"
)

// Event represents a manager lifecycle event.
// Minimal and stable: name + model key and optional fields via key/values.
type Event struct {
	Name      string
	Key       types.ModelKey
	RequestID string
	VRAMMB    int
	Reason    UnloadReason
	Err       string
	At        time.Time
	Fields    map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// MultiPublisher fans events out to several publishers in order.
type MultiPublisher []EventPublisher

func (mp MultiPublisher) Publish(e Event) {
	for _, p := range mp {
		if p != nil {
			p.Publish(e)
		}
	}
}

// PublisherFunc adapts a function to EventPublisher.
type PublisherFunc func(Event)

func (f PublisherFunc) Publish(e Event) { f(e) }
