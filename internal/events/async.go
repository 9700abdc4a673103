package events

import (
	"context"
	"log"
	"time"
)

// publishTimeout is the max time allowed for a single async publish.
const publishTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after the HTTP server stops
// before closing the publisher, so in-flight async publishes have time to
// complete. Must be >= publishTimeout.
const ShutdownDrainDuration = publishTimeout

// PublishAsync runs Publish in a goroutine so the caller is not blocked.
// Use from the reset flow for fire-and-forget publishing; errors are logged.
//
// publisher and e may be nil; PublishAsync returns immediately without
// starting a goroutine. The goroutine uses context.Background() with
// publishTimeout so request cancellation does not abort an in-flight
// publish.
func PublishAsync(publisher Publisher, e *Envelope) {
	if publisher == nil || e == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := publisher.Publish(ctx, e); err != nil {
			log.Printf("events: async publish failed: %v", err)
		}
	}()
}
