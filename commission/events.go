package commission

import "context"

// =============================================================================
// EVENTS - Change notification after successful writes
// =============================================================================

// EventType identifies what happened to a commission record.
type EventType string

const (
	EventCreated          EventType = "created"
	EventStatusTransition EventType = "statusTransition"
)

// Event is emitted after a successful write. Emission is strictly
// post-commit: the engine never depends on a subscriber for correctness,
// and a failing subscriber cannot undo a write.
type Event struct {
	Type       EventType
	Commission Commission
	Previous   Status // set for statusTransition events
}

// Events receives post-write notifications. Implementations must not block.
type Events interface {
	Publish(ctx context.Context, e Event)
}

// NopEvents discards all events. Used when no subscriber is configured.
type NopEvents struct{}

func (NopEvents) Publish(context.Context, Event) {}

// publish is a nil-safe emission helper.
func publish(ctx context.Context, sink Events, e Event) {
	if sink != nil {
		sink.Publish(ctx, e)
	}
}
