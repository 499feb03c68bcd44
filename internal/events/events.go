// Package events provides the in-process event bus that connects the
// comment write path to notification dispatch and thread subscribers.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ===============================
// EVENT INTERFACE
// ===============================

// Event represents a domain event
type Event interface {
	GetEventID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetCompanyID() int64
	GetMetadata() map[string]interface{}
}

// BaseEvent provides common event functionality
type BaseEvent struct {
	EventID   string                 `json:"event_id"`
	EventType string                 `json:"event_type"`
	Timestamp time.Time              `json:"timestamp"`
	CompanyID int64                  `json:"company_id"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// GetEventID returns the event ID
func (e *BaseEvent) GetEventID() string { return e.EventID }

// GetEventType returns the event type
func (e *BaseEvent) GetEventType() string { return e.EventType }

// GetTimestamp returns the event timestamp
func (e *BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

// GetCompanyID returns the tenant the event belongs to
func (e *BaseEvent) GetCompanyID() int64 { return e.CompanyID }

// GetMetadata returns the event metadata
func (e *BaseEvent) GetMetadata() map[string]interface{} { return e.Metadata }

// ===============================
// EVENT BUS INTERFACE
// ===============================

// EventBus defines the event publishing and subscription interface
type EventBus interface {
	Publish(ctx context.Context, event Event) error
	PublishAsync(ctx context.Context, event Event) error

	Subscribe(eventType string, handler EventHandler) error
	Unsubscribe(eventType string, handler EventHandler) error

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// EventHandler represents an event handler
type EventHandler interface {
	Handle(ctx context.Context, event Event) error
	GetHandlerID() string
}

// EventHandlerFunc adapts a function into an EventHandler
type EventHandlerFunc struct {
	ID   string
	Func func(ctx context.Context, event Event) error
}

// Handle implements EventHandler
func (f EventHandlerFunc) Handle(ctx context.Context, event Event) error {
	return f.Func(ctx, event)
}

// GetHandlerID implements EventHandler
func (f EventHandlerFunc) GetHandlerID() string { return f.ID }

// ===============================
// IN-MEMORY EVENT BUS
// ===============================

// Config holds event bus tuning knobs
type Config struct {
	BufferSize     int
	WorkerCount    int
	HandlerTimeout time.Duration
}

// DefaultConfig returns the default event bus configuration
func DefaultConfig() *Config {
	return &Config{
		BufferSize:     1000,
		WorkerCount:    4,
		HandlerTimeout: 30 * time.Second,
	}
}

type inMemoryEventBus struct {
	mu             sync.RWMutex
	handlers       map[string][]EventHandler
	eventQueue     chan eventMessage
	logger         *zap.Logger
	handlerTimeout time.Duration
	workerCount    int
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	started        bool
}

type eventMessage struct {
	event     Event
	timestamp time.Time
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(cfg *Config, logger *zap.Logger) EventBus {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &inMemoryEventBus{
		handlers:       make(map[string][]EventHandler),
		eventQueue:     make(chan eventMessage, cfg.BufferSize),
		logger:         logger,
		handlerTimeout: cfg.HandlerTimeout,
		workerCount:    cfg.WorkerCount,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Publish dispatches an event to its handlers synchronously.
func (b *inMemoryEventBus) Publish(ctx context.Context, event Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	return b.dispatch(ctx, event)
}

// PublishAsync enqueues an event for worker dispatch. A full queue is an
// error rather than a blocking wait; the write path must not stall on
// fan-out.
func (b *inMemoryEventBus) PublishAsync(ctx context.Context, event Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	select {
	case b.eventQueue <- eventMessage{event: event, timestamp: time.Now()}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("event queue is full")
	}
}

// Subscribe registers a handler for an event type.
func (b *inMemoryEventBus) Subscribe(eventType string, handler EventHandler) error {
	if eventType == "" {
		return fmt.Errorf("event type cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	b.logger.Debug("handler subscribed",
		zap.String("event_type", eventType),
		zap.String("handler_id", handler.GetHandlerID()),
	)
	return nil
}

// Unsubscribe removes a handler. Removing a handler that was never
// registered is a no-op.
func (b *inMemoryEventBus) Unsubscribe(eventType string, handler EventHandler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.handlers[eventType]
	for i, h := range handlers {
		if h.GetHandlerID() == handler.GetHandlerID() {
			b.handlers[eventType] = append(handlers[:i], handlers[i+1:]...)
			b.logger.Debug("handler unsubscribed",
				zap.String("event_type", eventType),
				zap.String("handler_id", handler.GetHandlerID()),
			)
			return nil
		}
	}
	return nil
}

// Start launches the worker pool.
func (b *inMemoryEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return nil
	}
	b.started = true

	b.logger.Info("starting event bus", zap.Int("worker_count", b.workerCount))
	for i := 0; i < b.workerCount; i++ {
		b.wg.Add(1)
		go b.worker(i)
	}
	return nil
}

// Stop drains workers, honoring the caller's deadline.
func (b *inMemoryEventBus) Stop(ctx context.Context) error {
	b.logger.Info("stopping event bus")
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus stop timed out: %w", ctx.Err())
	}
}

func (b *inMemoryEventBus) worker(id int) {
	defer b.wg.Done()

	for {
		select {
		case msg := <-b.eventQueue:
			ctx, cancel := context.WithTimeout(b.ctx, b.handlerTimeout)
			if err := b.dispatch(ctx, msg.event); err != nil {
				b.logger.Error("event dispatch failed",
					zap.Int("worker", id),
					zap.String("event_id", msg.event.GetEventID()),
					zap.String("event_type", msg.event.GetEventType()),
					zap.Error(err),
				)
			}
			cancel()
		case <-b.ctx.Done():
			return
		}
	}
}

// dispatch invokes every handler registered for the event's type. Handler
// failures are collected, not short-circuited; one slow subscriber must
// not starve the rest.
func (b *inMemoryEventBus) dispatch(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := make([]EventHandler, len(b.handlers[event.GetEventType()]))
	copy(handlers, b.handlers[event.GetEventType()])
	b.mu.RUnlock()

	var firstErr error
	for _, handler := range handlers {
		if err := b.safeHandle(ctx, handler, event); err != nil {
			b.logger.Warn("event handler failed",
				zap.String("event_type", event.GetEventType()),
				zap.String("handler_id", handler.GetHandlerID()),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (b *inMemoryEventBus) safeHandle(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %s panicked: %v", handler.GetHandlerID(), r)
		}
	}()
	return handler.Handle(ctx, event)
}
