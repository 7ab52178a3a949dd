package events

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stocklens/internal/interfaces"
	"github.com/ternarybob/stocklens/internal/models"
)

// NewLoggerSubscriber creates an event handler that logs all events
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		logEvent := logger.Debug().Str("event_type", string(event.Type))

		switch payload := event.Payload.(type) {
		case models.SessionView:
			logEvent = logEvent.
				Str("ticker", payload.Inputs.Ticker).
				Str("language", string(payload.Language)).
				Int("sections", len(payload.Sections))
		case models.PriceStaleNotice:
			logEvent = logEvent.
				Str("ticker", payload.Ticker).
				Float64("price", payload.Price).
				Float64("drift", payload.Drift)
		case map[string]interface{}:
			if msg, ok := payload["error"].(string); ok {
				logEvent = logEvent.Str("error", msg)
			}
		}

		logEvent.Msg("Event published")
		return nil
	}
}

// SubscribeLoggerToAllEvents subscribes the logger to all session event types
func SubscribeLoggerToAllEvents(eventService interfaces.EventService, logger arbor.ILogger) error {
	subscriber := NewLoggerSubscriber(logger)

	for _, eventType := range interfaces.AllEventTypes {
		if err := eventService.Subscribe(eventType, subscriber); err != nil {
			return err
		}
	}

	return nil
}
