package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// LocalPublisher hands events straight to in-process handlers. It stands in
// for the Redis streams when running without Redis. Events go through the same
// JSON encoding as the stream publisher, so handlers see identical payloads.
type LocalPublisher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewLocalPublisher() *LocalPublisher {
	return &LocalPublisher{handlers: make(map[string][]Handler)}
}

// Subscribe registers h for every event published to stream.
func (p *LocalPublisher) Subscribe(stream string, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[stream] = append(p.handlers[stream], h)
}

// Publish runs the stream's handlers synchronously and joins their errors.
func (p *LocalPublisher) Publish(ctx context.Context, stream, eventType string, data any) error {
	eventJSON, err := encodeEvent(eventType, data, time.Now().UTC())
	if err != nil {
		return err
	}
	var event Event
	if err := json.Unmarshal([]byte(eventJSON), &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	p.mu.RLock()
	handlers := p.handlers[stream]
	p.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("handle %s: %w", eventType, err))
		}
	}
	return errors.Join(errs...)
}
