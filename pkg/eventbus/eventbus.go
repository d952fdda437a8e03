// Package eventbus defines the contract for publishing ledger events after commit.
package eventbus

import "context"

// Event is anything published on a Bus. Type selects the registered handlers.
type Event interface {
	Type() string
}

// HandlerFunc processes one event. A returned error is logged by the bus and,
// for durable buses, routes the message to a dead-letter stream.
type HandlerFunc func(ctx context.Context, e Event) error

// Bus defines the contract for emitting and registering handlers for events.
type Bus interface {
	Emit(ctx context.Context, event Event) error
	Register(eventType string, handler HandlerFunc)
}
