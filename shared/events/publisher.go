package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher appends events to Redis streams. Streams are trimmed approximately
// to maxLen entries; 0 disables trimming.
type Publisher struct {
	client *redis.Client
	maxLen int64
}

func NewPublisher(client *redis.Client, maxLen int64) *Publisher {
	return &Publisher{client: client, maxLen: maxLen}
}

func (p *Publisher) Publish(ctx context.Context, stream, eventType string, data any) error {
	eventJSON, err := encodeEvent(eventType, data, time.Now().UTC())
	if err != nil {
		return err
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"event": eventJSON,
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}

	return nil
}

func encodeEvent(eventType string, data any, at time.Time) (string, error) {
	eventJSON, err := json.Marshal(Event{
		Type:      eventType,
		Timestamp: at,
		Data:      data,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}
	return string(eventJSON), nil
}
