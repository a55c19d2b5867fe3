package command

import (
	"context"

	"github.com/harold2001/financer-manager-api/shared/logger"
	"github.com/rs/zerolog"
)

// EventPublisher is satisfied by *events.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// publish emits an event after a successful write. The write has already
// happened, so a publish failure is logged rather than returned.
func publish(ctx context.Context, p EventPublisher, fallback zerolog.Logger, stream, eventType string, data any) {
	if err := p.Publish(ctx, stream, eventType, data); err != nil {
		log := logger.FromContext(ctx, fallback)
		log.Warn().Err(err).Str("event", eventType).Str("stream", stream).Msg("failed to publish event")
	}
}
