package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/amirasaad/mileage/pkg/eventbus"
)

// MemoryEventBus dispatches synchronously on the emitting goroutine.
type MemoryEventBus struct {
	handlers  map[string][]eventbus.HandlerFunc
	mu        sync.RWMutex
	logger    *slog.Logger
	published []eventbus.Event
}

// NewWithMemory creates a new in-memory event bus for event-driven communication.
func NewWithMemory(logger *slog.Logger) *MemoryEventBus {
	return &MemoryEventBus{
		handlers:  make(map[string][]eventbus.HandlerFunc),
		logger:    logger.With("bus", "memory"),
		published: make([]eventbus.Event, 0),
	}
}

// Register registers a handler for a specific event type.
func (b *MemoryEventBus) Register(eventType string, handler eventbus.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emit dispatches the event to all registered handlers for its type.
// Handler errors are logged and do not fail the emit.
func (b *MemoryEventBus) Emit(ctx context.Context, event eventbus.Event) error {
	eventType := event.Type()

	b.mu.Lock()
	handlers := append([]eventbus.HandlerFunc{}, b.handlers[eventType]...)
	b.published = append(b.published, event)
	b.mu.Unlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			b.logger.Error("failed to process event", "type", eventType, "error", err)
		}
	}
	return nil
}

// ClearPublished clears the list of published events. This is useful for testing.
func (b *MemoryEventBus) ClearPublished() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = make([]eventbus.Event, 0)
}

// Published returns a copy of the events emitted so far. This is useful for testing.
func (b *MemoryEventBus) Published() []eventbus.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]eventbus.Event(nil), b.published...)
}

var _ eventbus.Bus = (*MemoryEventBus)(nil)

type pending struct {
	ctx   context.Context
	event eventbus.Event
}

// MemoryAsyncEventBus queues events and dispatches them on a background goroutine,
// so a slow subscriber never holds up a request.
type MemoryAsyncEventBus struct {
	handlers map[string][]eventbus.HandlerFunc
	mu       sync.RWMutex
	eventCh  chan pending
	closeMu  sync.RWMutex
	closed   bool
	once     sync.Once
	wg       sync.WaitGroup
	log      *slog.Logger
}

// NewWithMemoryAsync creates a new queued in-memory event bus.
func NewWithMemoryAsync(logger *slog.Logger) *MemoryAsyncEventBus {
	b := &MemoryAsyncEventBus{
		handlers: make(map[string][]eventbus.HandlerFunc),
		eventCh:  make(chan pending, 100),
		log:      logger.With("bus", "memory-async"),
	}
	go b.process()
	return b
}

func (b *MemoryAsyncEventBus) Register(eventType string, handler eventbus.HandlerFunc) {
	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.mu.Unlock()
}

// Emit enqueues the event. It blocks while the queue is full unless ctx ends first.
func (b *MemoryAsyncEventBus) Emit(ctx context.Context, event eventbus.Event) error {
	// handlers run after the request finished; keep values, drop cancellation
	p := pending{ctx: context.WithoutCancel(ctx), event: event}
	b.closeMu.RLock()
	if b.closed {
		b.closeMu.RUnlock()
		return ErrBusClosed
	}
	b.wg.Add(1)
	b.closeMu.RUnlock()

	select {
	case b.eventCh <- p:
		return nil
	case <-ctx.Done():
		b.wg.Done()
		return ctx.Err()
	}
}

// Close stops accepting events and waits until every queued event was handled.
func (b *MemoryAsyncEventBus) Close() error {
	b.once.Do(func() {
		b.closeMu.Lock()
		b.closed = true
		b.closeMu.Unlock()
		b.wg.Wait()
		close(b.eventCh)
	})
	return nil
}

func (b *MemoryAsyncEventBus) process() {
	for w := range b.eventCh {
		b.dispatch(w)
		b.wg.Done()
	}
}

func (b *MemoryAsyncEventBus) dispatch(w pending) {
	b.mu.RLock()
	handlers := append([]eventbus.HandlerFunc{}, b.handlers[w.event.Type()]...)
	b.mu.RUnlock()
	for _, handler := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.log.Error("panic recovered in event handler", "type", w.event.Type(), "panic", r)
				}
			}()
			if err := handler(w.ctx, w.event); err != nil {
				b.log.Error("failed to process event", "type", w.event.Type(), "error", err)
			}
		}()
	}
}

var _ eventbus.Bus = (*MemoryAsyncEventBus)(nil)
