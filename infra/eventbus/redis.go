package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/mileage/pkg/config"
	"github.com/amirasaad/mileage/pkg/eventbus"
	"github.com/redis/go-redis/v9"
)

// ErrBusClosed is returned by Emit after Close.
var ErrBusClosed = errors.New("event bus closed")

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// RedisEventBus publishes events to a single Redis stream. Every registered
// event type consumes through its own consumer group, so handlers of different
// types never steal each other's messages.
type RedisEventBus struct {
	client        *redis.Client
	stream        string
	group         string
	typeFactories map[string]func() eventbus.Event
	logger        *slog.Logger
	block         time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWithRedis creates a Redis Streams event bus. types maps an event type to a
// constructor of the value its payload unmarshals into.
func NewWithRedis(cfg *config.Redis, types map[string]func() eventbus.Event, logger *slog.Logger) (*RedisEventBus, error) {
	if cfg == nil || cfg.URL == "" || cfg.Stream == "" || cfg.Group == "" {
		return nil, fmt.Errorf("redis event bus: url, stream, and group are required")
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis event bus: invalid URL: %w", err)
	}
	if cfg.DialTimeout > 0 {
		opt.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opt.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opt.WriteTimeout = cfg.WriteTimeout
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis event bus: connection failed: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:        client,
		stream:        cfg.Stream,
		group:         cfg.Group,
		typeFactories: types,
		logger:        logger.With("component", "redis-event-bus", "stream", cfg.Stream),
		block:         2 * time.Second,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// Emit publishes an event to the Redis stream.
func (b *RedisEventBus) Emit(ctx context.Context, event eventbus.Event) error {
	if b.ctx.Err() != nil {
		return ErrBusClosed
	}

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("failed to marshal event", "error", err, "type", event.Type())
		return fmt.Errorf("redis event bus: marshal failed: %w", err)
	}

	envBytes, err := json.Marshal(envelope{Type: event.Type(), Payload: data})
	if err != nil {
		return fmt.Errorf("redis event bus: envelope marshal failed: %w", err)
	}

	id, err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		Values: map[string]any{"type": event.Type(), "event": string(envBytes)},
	}).Result()
	if err != nil {
		b.logger.Error("failed to emit event", "error", err, "type", event.Type())
		return fmt.Errorf("redis event bus: emit failed: %w", err)
	}

	b.logger.Debug("event emitted", "type", event.Type(), "id", id)
	return nil
}

// Register starts a consumer goroutine delivering events of eventType to handler.
// Only messages added after the first registration of a type are delivered.
func (b *RedisEventBus) Register(eventType string, handler eventbus.HandlerFunc) {
	group := b.group + ":" + eventType
	consumer := fmt.Sprintf("consumer-%d", time.Now().UnixNano())
	logger := b.logger.With("event_type", eventType, "group", group, "consumer", consumer)

	err := b.client.XGroupCreateMkStream(b.ctx, b.stream, group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		logger.Error("failed to create consumer group", "error", err)
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.consume(group, consumer, eventType, handler, logger)
	}()
	logger.Info("handler registered")
}

func (b *RedisEventBus) consume(group, consumer, eventType string, handler eventbus.HandlerFunc, logger *slog.Logger) {
	for b.ctx.Err() == nil {
		res, err := b.client.XReadGroup(b.ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{b.stream, ">"},
			Count:    16,
			Block:    b.block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if b.ctx.Err() != nil {
				return
			}
			logger.Error("error reading from stream", "error", err)
			select {
			case <-b.ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				b.handle(msg, eventType, handler, logger)
				if err := b.client.XAck(b.ctx, b.stream, group, msg.ID).Err(); err != nil {
					logger.Error("failed to acknowledge message", "error", err, "msg_id", msg.ID)
				}
			}
		}
	}
}

func (b *RedisEventBus) handle(msg redis.XMessage, eventType string, handler eventbus.HandlerFunc, logger *slog.Logger) {
	raw, ok := msg.Values["event"].(string)
	if !ok {
		b.pushToDLQ(msg.Values, "missing event field", logger)
		return
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		b.pushToDLQ(msg.Values, "bad envelope: "+err.Error(), logger)
		return
	}
	if env.Type != eventType {
		return
	}

	constructor, ok := b.typeFactories[env.Type]
	if !ok {
		b.pushToDLQ(msg.Values, "unknown event type", logger)
		return
	}
	evt := constructor()
	if err := json.Unmarshal(env.Payload, evt); err != nil {
		b.pushToDLQ(msg.Values, "bad payload: "+err.Error(), logger)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.pushToDLQ(msg.Values, fmt.Sprintf("handler panic: %v", r), logger)
		}
	}()
	if err := handler(b.ctx, evt); err != nil {
		b.pushToDLQ(msg.Values, err.Error(), logger)
	}
}

// pushToDLQ copies the raw message to <stream>-DLQ for inspection or reprocessing.
func (b *RedisEventBus) pushToDLQ(values map[string]any, reason string, logger *slog.Logger) {
	dlqStream := b.stream + "-DLQ"
	dlqValues := make(map[string]any, len(values)+1)
	for k, v := range values {
		dlqValues[k] = v
	}
	dlqValues["error"] = reason

	// the DLQ write must land even while shutting down
	if err := b.client.XAdd(context.WithoutCancel(b.ctx), &redis.XAddArgs{
		Stream: dlqStream,
		Values: dlqValues,
	}).Err(); err != nil {
		logger.Error("failed to push to DLQ", "error", err, "dlq", dlqStream)
		return
	}
	logger.Warn("event pushed to DLQ", "dlq", dlqStream, "reason", reason)
}

// Close stops every consumer and closes the Redis client.
func (b *RedisEventBus) Close() error {
	b.cancel()
	b.wg.Wait()
	return b.client.Close()
}

var _ eventbus.Bus = (*RedisEventBus)(nil)
